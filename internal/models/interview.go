package models

import (
	"time"
)

// InterviewStatus is the lifecycle state of an interview attempt.
type InterviewStatus string

const (
	StatusPending     InterviewStatus = "PENDING"
	StatusRescheduled InterviewStatus = "RESCHEDULED"
	StatusCompleted   InterviewStatus = "COMPLETED"
	StatusCancelled   InterviewStatus = "CANCELLED"
)

// Interview is one scheduled interview attempt for a candidate.
// COMPLETED and CANCELLED are terminal; completion is a conditioned update
// that only succeeds while the status is still PENDING or RESCHEDULED.
type Interview struct {
	InterviewID   string          `gorm:"primaryKey" json:"interviewId"`
	CandidateID   string          `gorm:"index;not null" json:"candidateId"`
	Interviewer   string          `json:"interviewer"`
	ScheduledAt   time.Time       `gorm:"not null" json:"scheduledAt"`
	DurationMin   int             `gorm:"not null" json:"durationMin"`
	Status        InterviewStatus `gorm:"not null;default:PENDING;index" json:"status"`
	CancelReason  string          `json:"cancelReason,omitempty"`
	CompletionMin float64         `json:"completionMin"`
	AttemptedAt   *time.Time      `json:"attemptedAt,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// InterviewQuestion is one asked question plus the candidate's recorded
// answer. Rows are immutable once created and totally ordered by AskedAt.
type InterviewQuestion struct {
	InterviewQuestionID uint      `gorm:"primaryKey" json:"interviewQuestionId"`
	InterviewID         string    `gorm:"index;not null" json:"interviewId"`
	Content             string    `gorm:"type:text;not null" json:"content"`
	CandidateAnswer     string    `gorm:"type:text" json:"candidateAnswer"`
	Correct             bool      `gorm:"not null" json:"correct"`
	AIFeedback          string    `json:"aiFeedback"`
	DifficultyLevel     int       `gorm:"not null" json:"difficultyLevel"`
	Section             string    `gorm:"not null" json:"section"`
	AskedAt             time.Time `gorm:"not null;index;autoCreateTime" json:"askedAt"`
}

// Candidate carries the resume-derived profile consumed at session start.
// The profile itself is produced by the resume ingestion pipeline and stored
// as opaque JSON.
type Candidate struct {
	CandidateID   string    `gorm:"primaryKey" json:"candidateId"`
	Name          string    `gorm:"not null" json:"name"`
	Email         string    `gorm:"uniqueIndex" json:"email"`
	ResumeProfile string    `gorm:"type:text" json:"resumeProfile"`
	CreatedAt     time.Time `json:"createdAt"`
}
