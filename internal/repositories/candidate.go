package repositories

import (
	"errors"

	"intervu/interview/internal/models"

	"gorm.io/gorm"
)

var ErrCandidateNotFound = errors.New("candidate not found")

type CandidateRepository struct {
	DB *gorm.DB
}

func NewCandidateRepository(db *gorm.DB) *CandidateRepository {
	return &CandidateRepository{DB: db}
}

func (r *CandidateRepository) GetCandidate(candidateID string) (*models.Candidate, error) {
	var candidate models.Candidate
	err := r.DB.First(&candidate, "candidate_id = ?", candidateID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCandidateNotFound
	}
	return &candidate, err
}
