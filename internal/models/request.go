package models

import (
	"strings"
)

type StartSessionRequest struct {
	InterviewID string `json:"interviewId"`
	CandidateID string `json:"candidateId"`
	Name        string `json:"name"`
}

// implements the Validator interface
func (r *StartSessionRequest) Validate() error {
	if strings.TrimSpace(r.InterviewID) == "" {
		return &ErrorResponse{Code: "missing_interview_id", Message: "interviewId is required"}
	}
	if strings.TrimSpace(r.Name) == "" {
		return &ErrorResponse{Code: "missing_name", Message: "name is required"}
	}
	return nil
}

type ModerationRequest struct {
	InterviewID     string `json:"interviewId"`
	CandidateID     string `json:"candidateId"`
	Question        string `json:"question"`
	CandidateAnswer string `json:"candidateAnswer"`
}

func (r *ModerationRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return &ErrorResponse{Code: "missing_question", Message: "question is required"}
	}
	if r.CandidateAnswer == "" {
		return &ErrorResponse{Code: "missing_answer", Message: "candidateAnswer is required"}
	}
	return nil
}

type FeedbackRequest struct {
	InterviewID     string `json:"interviewId"`
	Question        string `json:"question"`
	CandidateAnswer string `json:"candidateAnswer"`
	DifficultyLevel int    `json:"difficultyLevel"`
	Section         string `json:"section"`
	ResumeProfile   string `json:"resumeProfile"`
}

func (r *FeedbackRequest) Validate() error {
	if strings.TrimSpace(r.InterviewID) == "" {
		return &ErrorResponse{Code: "missing_interview_id", Message: "interviewId is required"}
	}
	if strings.TrimSpace(r.Question) == "" {
		return &ErrorResponse{Code: "missing_question", Message: "question is required"}
	}
	if r.Section != "" && !ValidSections[r.Section] {
		return &ErrorResponse{Code: "invalid_section", Message: "section must be one of: Introduction, Skills, Work Experience, Personality"}
	}
	// zero means unset; the handler applies the default
	if r.DifficultyLevel != 0 && (r.DifficultyLevel < MinDifficulty || r.DifficultyLevel > MaxDifficulty) {
		return &ErrorResponse{Code: "invalid_difficulty", Message: "difficultyLevel must be between 1 and 5"}
	}
	return nil
}

type GenerateRequest struct {
	InterviewID  string  `json:"interviewId"`
	CandidateID  string  `json:"candidateId"`
	RemainingMin float64 `json:"remainingDuration"`
	DurationMin  int     `json:"interviewDuration"`
}

func (r *GenerateRequest) Validate() error {
	if strings.TrimSpace(r.InterviewID) == "" {
		return &ErrorResponse{Code: "missing_interview_id", Message: "interviewId is required"}
	}
	if r.DurationMin <= 0 {
		return &ErrorResponse{Code: "invalid_duration", Message: "interviewDuration must be positive"}
	}
	if r.RemainingMin < 0 {
		return &ErrorResponse{Code: "invalid_remaining", Message: "remainingDuration must not be negative"}
	}
	return nil
}

type EndSessionRequest struct {
	InterviewID   string  `json:"interviewId"`
	CandidateID   string  `json:"candidateId"`
	CompletionMin float64 `json:"completionMin"`
}

func (r *EndSessionRequest) Validate() error {
	if strings.TrimSpace(r.InterviewID) == "" {
		return &ErrorResponse{Code: "missing_interview_id", Message: "interviewId is required"}
	}
	if strings.TrimSpace(r.CandidateID) == "" {
		return &ErrorResponse{Code: "missing_candidate_id", Message: "candidateId is required"}
	}
	if r.CompletionMin < 0 {
		return &ErrorResponse{Code: "invalid_completion", Message: "completionMin must not be negative"}
	}
	return nil
}

type TTSRequest struct {
	Text string `json:"text"`
}

func (r *TTSRequest) Validate() error {
	if strings.TrimSpace(r.Text) == "" {
		return &ErrorResponse{Code: "missing_text", Message: "text is required"}
	}
	return nil
}
