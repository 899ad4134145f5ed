package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"intervu/interview/internal/models"
	"intervu/interview/internal/speech"
	"intervu/interview/internal/utils"
)

// TokenHandler proxies short-lived transcription credentials to the client
// so the speech API key never leaves the server.
type TokenHandler struct {
	tokens speech.TokenSource
	logger *zap.Logger
}

func NewTokenHandler(tokens speech.TokenSource, logger *zap.Logger) *TokenHandler {
	return &TokenHandler{tokens: tokens, logger: logger}
}

// TokenHandler requires a valid session token; the streaming credential is
// only issued to an authenticated live session.
func (h *TokenHandler) TokenHandler(w http.ResponseWriter, r *http.Request) {
	tokenString, err := utils.ExtractTokenFromHeader(r.Header.Get("Authorization"))
	if err != nil {
		utils.JSON(w, http.StatusUnauthorized, models.ErrorResponse{
			Code:    "unauthorized",
			Message: err.Error(),
		})
		return
	}
	if _, err := utils.ValidateSessionToken(tokenString); err != nil {
		utils.JSON(w, http.StatusUnauthorized, models.ErrorResponse{
			Code:    "invalid_token",
			Message: "Session token is invalid or expired",
		})
		return
	}

	streamingToken, err := h.tokens.Token(r.Context())
	if err != nil {
		h.logger.Error("failed to obtain streaming token", zap.Error(err))
		utils.JSON(w, http.StatusBadGateway, models.ErrorResponse{
			Code:    "token_unavailable",
			Message: "Failed to obtain a streaming credential",
		})
		return
	}

	utils.JSON(w, http.StatusOK, models.TokenResponse{
		Token:     streamingToken,
		ExpiresIn: 300,
	})
}
