package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"intervu/interview/internal/config"
	"intervu/interview/internal/metrics"
	"intervu/interview/internal/middleware"
	"intervu/interview/internal/models"
	"intervu/interview/internal/reasoning"
	"intervu/interview/internal/repositories"
	"intervu/interview/internal/session"
	"intervu/interview/internal/speech"
	"intervu/interview/internal/utils"
)

// SessionHandler serves the session lifecycle API. Start spins up a live
// turn controller; the stateless reasoning endpoints (response, feedback,
// generate) also work standalone for clients that drive their own loop.
type SessionHandler struct {
	cfg        *config.Config
	registry   *session.Registry
	interviews *repositories.InterviewRepository
	candidates *repositories.CandidateRepository
	gateway    *reasoning.Gateway
	publisher  session.CompletionPublisher
	channels   speech.ChannelFactory
	logger     *zap.Logger
}

func NewSessionHandler(
	cfg *config.Config,
	registry *session.Registry,
	interviews *repositories.InterviewRepository,
	candidates *repositories.CandidateRepository,
	gateway *reasoning.Gateway,
	publisher session.CompletionPublisher,
	channels speech.ChannelFactory,
	logger *zap.Logger,
) *SessionHandler {
	return &SessionHandler{
		cfg:        cfg,
		registry:   registry,
		interviews: interviews,
		candidates: candidates,
		gateway:    gateway,
		publisher:  publisher,
		channels:   channels,
		logger:     logger,
	}
}

// StartHandler creates the live session for a scheduled interview and
// returns the opening question plus the websocket access token.
func (h *SessionHandler) StartHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.StartSessionRequest](r)

	interview, err := h.interviews.GetInterview(req.InterviewID)
	if err != nil {
		if errors.Is(err, repositories.ErrInterviewNotFound) {
			utils.JSON(w, http.StatusNotFound, models.ErrorResponse{
				Code:    "interview_not_found",
				Message: "No interview found for the given id",
			})
			return
		}
		h.logger.Error("failed to load interview", zap.Error(err))
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "storage_error",
			Message: "Failed to load interview",
		})
		return
	}

	if interview.Status != models.StatusPending && interview.Status != models.StatusRescheduled {
		utils.JSON(w, http.StatusConflict, models.ErrorResponse{
			Code:    "interview_not_startable",
			Message: "Interview is not in a startable state",
		})
		return
	}

	candidate, err := h.candidates.GetCandidate(interview.CandidateID)
	if err != nil {
		if !errors.Is(err, repositories.ErrCandidateNotFound) {
			h.logger.Error("failed to load candidate", zap.Error(err))
			utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
				Code:    "storage_error",
				Message: "Failed to load candidate",
			})
			return
		}
		// no stored profile; run the session on request data alone
		candidate = &models.Candidate{
			CandidateID: interview.CandidateID,
			Name:        req.Name,
		}
	}

	// mint before anything is registered so a failure here creates nothing
	tokenTTL := time.Duration(interview.DurationMin)*time.Minute + 10*time.Minute
	token, err := utils.MintSessionToken(interview.InterviewID, interview.CandidateID, tokenTTL)
	if err != nil {
		h.logger.Error("failed to mint session token", zap.Error(err))
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "token_error",
			Message: "Failed to issue session token",
		})
		return
	}

	speaker := session.NewAwaitableSpeaker()
	lifecycle := session.NewLifecycle(h.interviews, h.publisher, h.logger)
	controller := session.NewController(
		session.Config{
			PauseWindow:     h.cfg.PauseWindow,
			FullscreenGrace: h.cfg.FullscreenGrace,
			ViolationLimit:  h.cfg.ViolationLimit,
		},
		interview, candidate, h.gateway, speaker,
		h.interviews, lifecycle, h.channels, h.logger,
	)

	live := &session.Live{Controller: controller, Speaker: speaker}
	if !h.registry.Add(interview.InterviewID, live) {
		utils.JSON(w, http.StatusConflict, models.ErrorResponse{
			Code:    "session_exists",
			Message: "A live session already exists for this interview",
		})
		return
	}

	controller.Run(context.Background())
	metrics.SessionStarted()
	go func() {
		<-controller.Done()
		metrics.SessionTerminated(string(controller.Reason()))
		h.registry.Remove(interview.InterviewID)
	}()

	question := controller.CurrentQuestion()
	utils.JSON(w, http.StatusOK, models.StartSessionResponse{
		Question:        question.Text,
		Section:         question.Section,
		DifficultyLevel: question.Difficulty,
		Token:           token,
	})
}

// ResponseHandler moderates one candidate answer against its question.
func (h *SessionHandler) ResponseHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.ModerationRequest](r)

	decision := h.gateway.Moderate(r.Context(), req.Question, req.CandidateAnswer)

	resp := models.ModerationResponse{Action: string(decision.Action)}
	if decision.Action == reasoning.ActionConfirm {
		resp.Message = decision.Explanation + ". Shall we go to the next question?"
	}
	utils.JSON(w, http.StatusOK, resp)
}

// FeedbackHandler grades one answer and persists the finished turn. The
// introduction turn is never sent to the model.
func (h *SessionHandler) FeedbackHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.FeedbackRequest](r)

	section := req.Section
	if section == "" {
		section = models.SectionSkills
	}
	difficulty := req.DifficultyLevel
	if difficulty == 0 {
		difficulty = models.DefaultDifficulty
	}

	var grade reasoning.Grade
	if section == models.SectionIntroduction {
		grade = reasoning.Grade{Correct: true, Feedback: "Great"}
	} else {
		grade = h.gateway.GradeAnswer(r.Context(), req.Question, req.CandidateAnswer,
			difficulty, section, h.resumeProfile(req.InterviewID, req.ResumeProfile))
	}

	turn := &models.InterviewQuestion{
		InterviewID:     req.InterviewID,
		Content:         req.Question,
		CandidateAnswer: req.CandidateAnswer,
		Correct:         grade.Correct,
		AIFeedback:      grade.Feedback,
		DifficultyLevel: difficulty,
		Section:         section,
	}
	if err := h.interviews.CreateQuestion(turn); err != nil {
		h.logger.Error("failed to persist question turn", zap.Error(err))
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "storage_error",
			Message: "Failed to save the question turn",
		})
		return
	}

	utils.JSON(w, http.StatusOK, models.FeedbackResponse{InterviewQuestion: turn})
}

// GenerateHandler produces the next question from the persisted turn
// history, stepping difficulty off the most recent turn.
func (h *SessionHandler) GenerateHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.GenerateRequest](r)

	turns, err := h.interviews.ListQuestions(req.InterviewID)
	if err != nil {
		h.logger.Error("failed to load turn history", zap.Error(err))
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "storage_error",
			Message: "Failed to load question history",
		})
		return
	}

	difficulty := models.DefaultDifficulty
	feedback := ""
	if len(turns) > 0 {
		last := turns[len(turns)-1]
		difficulty = models.NextDifficulty(last.DifficultyLevel, &last.Correct)
		feedback = last.AIFeedback
	}

	history, _ := json.Marshal(turns)
	next := h.gateway.GenerateQuestion(r.Context(), h.resumeProfile(req.InterviewID, ""),
		string(history), req.RemainingMin, req.DurationMin, difficulty)

	utils.JSON(w, http.StatusOK, models.GenerateResponse{
		PreviousQuestionFeedback: feedback,
		Question:                 next.Question,
		Section:                  next.Section,
		DifficultyLevel:          next.DifficultyLevel,
	})
}

// EndHandler finalizes an interview. A live session is terminated through
// its controller; otherwise the completion runs directly against storage.
func (h *SessionHandler) EndHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.EndSessionRequest](r)

	if live, ok := h.registry.Get(req.InterviewID); ok {
		live.Controller.Terminate(session.ReasonCandidateEnded)
		utils.JSON(w, http.StatusOK, models.EndSessionResponse{
			Message: "Interview completed successfully",
		})
		return
	}

	lifecycle := session.NewLifecycle(h.interviews, h.publisher, h.logger)
	err := lifecycle.Complete(r.Context(), req.InterviewID, req.CandidateID,
		req.CompletionMin, session.ReasonCandidateEnded)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrInterviewNotFound):
			utils.JSON(w, http.StatusNotFound, models.ErrorResponse{
				Code:    "interview_not_found",
				Message: "No interview found for the given id",
			})
		case errors.Is(err, repositories.ErrAlreadyCompleted):
			utils.JSON(w, http.StatusConflict, models.ErrorResponse{
				Code:    "already_completed",
				Message: "Interview was already finalized",
			})
		default:
			h.logger.Error("failed to complete interview", zap.Error(err))
			utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
				Code:    "storage_error",
				Message: "Failed to complete interview",
			})
		}
		return
	}

	utils.JSON(w, http.StatusOK, models.EndSessionResponse{
		Message: "Interview completed successfully",
	})
}

// resumeProfile prefers the caller-supplied profile, falling back to the
// candidate record behind the interview.
func (h *SessionHandler) resumeProfile(interviewID, supplied string) string {
	if supplied != "" {
		return supplied
	}
	interview, err := h.interviews.GetInterview(interviewID)
	if err != nil {
		return ""
	}
	candidate, err := h.candidates.GetCandidate(interview.CandidateID)
	if err != nil {
		return ""
	}
	return candidate.ResumeProfile
}
