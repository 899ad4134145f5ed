package models

// interview sections, in the order the interviewer works through them
const (
	SectionIntroduction   = "Introduction"
	SectionSkills         = "Skills"
	SectionWorkExperience = "Work Experience"
	SectionPersonality    = "Personality"
)

// ValidSections contains every section a generated question may carry.
var ValidSections = map[string]bool{
	SectionIntroduction:   true,
	SectionSkills:         true,
	SectionWorkExperience: true,
	SectionPersonality:    true,
}

// difficulty bounds for generated questions
const (
	MinDifficulty     = 1
	MaxDifficulty     = 5
	DefaultDifficulty = 2
)

// NextDifficulty applies the adaptation rule: one step up after a correct
// answer, one step down after an incorrect one, clamped to [1,5]. A nil
// correctness flag (no graded turn yet) keeps the prior level.
func NextDifficulty(prior int, correct *bool) int {
	if prior < MinDifficulty || prior > MaxDifficulty {
		prior = DefaultDifficulty
	}
	if correct == nil {
		return prior
	}
	if *correct {
		if prior >= MaxDifficulty {
			return MaxDifficulty
		}
		return prior + 1
	}
	if prior <= MinDifficulty {
		return MinDifficulty
	}
	return prior - 1
}
