package models

// StartSessionResponse carries the greeting/introduction question that opens
// a session, plus the access token for the live websocket.
type StartSessionResponse struct {
	Question        string `json:"question"`
	Section         string `json:"section"`
	DifficultyLevel int    `json:"difficultyLevel"`
	Token           string `json:"token"`
}

// ModerationResponse is the outcome of the relevance check on an answer.
// Message is only set for the confirm action.
type ModerationResponse struct {
	Action  string `json:"action"`
	Message string `json:"message,omitempty"`
}

// FeedbackResponse returns the persisted question turn after grading.
type FeedbackResponse struct {
	InterviewQuestion *InterviewQuestion `json:"interviewQuestion"`
}

// GenerateResponse carries the next question plus the feedback on the turn
// that preceded it.
type GenerateResponse struct {
	PreviousQuestionFeedback string `json:"previousQuestionFeedback"`
	Question                 string `json:"question"`
	Section                  string `json:"section"`
	DifficultyLevel          int    `json:"difficultyLevel"`
}

// EndSessionResponse acknowledges a successful completion.
type EndSessionResponse struct {
	Message string `json:"message"`
}

// TokenResponse carries a short-lived streaming credential.
type TokenResponse struct {
	Token     string `json:"token"`
	ExpiresIn int    `json:"expiresIn"`
}

// uniform error responses
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *ErrorResponse) Error() string {
	return e.Code + ": " + e.Message
}
