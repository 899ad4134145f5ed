package speech

import (
	"sort"
	"strings"
	"sync"
)

// TranscriptBuffer accumulates the candidate's current, not-yet-submitted
// answer. Fragments are buffered by turn-order key and joined sorted by key,
// not by arrival order, so out-of-order network delivery cannot scramble the
// reconstructed answer.
type TranscriptBuffer struct {
	mu        sync.Mutex
	fragments map[int]string
}

func NewTranscriptBuffer() *TranscriptBuffer {
	return &TranscriptBuffer{fragments: make(map[int]string)}
}

// Set records the latest transcript for one turn-order key, replacing any
// earlier partial for the same key.
func (b *TranscriptBuffer) Set(turnOrder int, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fragments[turnOrder] = text
}

// Text reconstructs the full answer: fragments joined in key order.
func (b *TranscriptBuffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	keys := make([]int, 0, len(b.fragments))
	for k := range b.fragments {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		if b.fragments[k] != "" {
			parts = append(parts, b.fragments[k])
		}
	}
	return strings.Join(parts, " ")
}

// Empty reports whether nothing has been captured yet.
func (b *TranscriptBuffer) Empty() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, v := range b.fragments {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// Reset clears the buffer. Called exactly when a turn is finalized or the
// session ends.
func (b *TranscriptBuffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fragments = make(map[int]string)
}
