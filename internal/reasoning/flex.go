package reasoning

import (
	"encoding/json"
	"strconv"
	"strings"
)

// flexBool accepts true/false as JSON booleans or strings. The grading model
// is asked for booleans but sometimes quotes them.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var asBool bool
	if err := json.Unmarshal(data, &asBool); err == nil {
		*b = flexBool(asBool)
		return nil
	}
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*b = flexBool(strings.EqualFold(strings.TrimSpace(asString), "true"))
		return nil
	}
	*b = false
	return nil
}

// flexInt accepts numbers as JSON numbers or numeric strings.
type flexInt int

func (i *flexInt) UnmarshalJSON(data []byte) error {
	var asInt int
	if err := json.Unmarshal(data, &asInt); err == nil {
		*i = flexInt(asInt)
		return nil
	}
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		if n, err := strconv.Atoi(strings.TrimSpace(asString)); err == nil {
			*i = flexInt(n)
			return nil
		}
	}
	*i = 0
	return nil
}
