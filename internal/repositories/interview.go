package repositories

import (
	"errors"
	"time"

	"intervu/interview/internal/models"

	"gorm.io/gorm"
)

var (
	ErrInterviewNotFound = errors.New("interview not found")
	// ErrAlreadyCompleted signals a completion race: the interview left the
	// PENDING/RESCHEDULED states before this update ran. Callers must report
	// it, never retry it.
	ErrAlreadyCompleted = errors.New("interview already completed or cancelled")
)

type InterviewRepository struct {
	DB *gorm.DB
}

func NewInterviewRepository(db *gorm.DB) *InterviewRepository {
	return &InterviewRepository{DB: db}
}

func (r *InterviewRepository) GetInterview(interviewID string) (*models.Interview, error) {
	var interview models.Interview
	err := r.DB.First(&interview, "interview_id = ?", interviewID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInterviewNotFound
	}
	return &interview, err
}

// CompleteInterview marks the interview COMPLETED, conditioned on the current
// status still being PENDING or RESCHEDULED. The WHERE clause makes the
// transition a compare-and-swap: a concurrent or duplicate completion sees
// zero affected rows and gets ErrAlreadyCompleted.
func (r *InterviewRepository) CompleteInterview(interviewID, candidateID string, completionMin float64) (*models.Interview, error) {
	attemptedAt := time.Now().Add(-time.Duration(completionMin * float64(time.Minute)))

	result := r.DB.Model(&models.Interview{}).
		Where("interview_id = ? AND candidate_id = ? AND status IN ?",
			interviewID, candidateID,
			[]models.InterviewStatus{models.StatusPending, models.StatusRescheduled}).
		Updates(map[string]interface{}{
			"status":         models.StatusCompleted,
			"completion_min": completionMin,
			"attempted_at":   attemptedAt,
		})
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		var existing models.Interview
		if err := r.DB.First(&existing, "interview_id = ?", interviewID).Error; errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInterviewNotFound
		}
		return nil, ErrAlreadyCompleted
	}

	var interview models.Interview
	if err := r.DB.First(&interview, "interview_id = ?", interviewID).Error; err != nil {
		return nil, err
	}
	return &interview, nil
}

func (r *InterviewRepository) CreateQuestion(question *models.InterviewQuestion) error {
	if question.AskedAt.IsZero() {
		question.AskedAt = time.Now()
	}
	return r.DB.Create(question).Error
}

// ListQuestions returns the session's turns ordered by asked-at, oldest
// first. The most recent turn drives the next difficulty level.
func (r *InterviewRepository) ListQuestions(interviewID string) ([]models.InterviewQuestion, error) {
	var questions []models.InterviewQuestion
	err := r.DB.Where("interview_id = ?", interviewID).
		Order("asked_at ASC").
		Find(&questions).Error
	return questions, err
}
