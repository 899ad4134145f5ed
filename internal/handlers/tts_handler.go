package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"intervu/interview/internal/middleware"
	"intervu/interview/internal/models"
	"intervu/interview/internal/tts"
	"intervu/interview/internal/utils"
)

// TTSHandler converts one interviewer utterance into playable WAV audio.
type TTSHandler struct {
	synthesizer tts.Synthesizer
	logger      *zap.Logger
}

func NewTTSHandler(synthesizer tts.Synthesizer, logger *zap.Logger) *TTSHandler {
	return &TTSHandler{synthesizer: synthesizer, logger: logger}
}

func (h *TTSHandler) SynthesizeHandler(w http.ResponseWriter, r *http.Request) {
	req := middleware.GetValidatedRequest[*models.TTSRequest](r)

	audio, err := h.synthesizer.Synthesize(r.Context(), req.Text)
	if err != nil {
		h.logger.Error("speech synthesis failed", zap.Error(err))
		utils.JSON(w, http.StatusInternalServerError, models.ErrorResponse{
			Code:    "tts_error",
			Message: "Failed to synthesize speech",
		})
		return
	}

	utils.Audio(w, "audio/wav", audio)
}
