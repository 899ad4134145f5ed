package routers

import (
	"intervu/interview/internal/handlers"
	"intervu/interview/internal/middleware"
	"intervu/interview/internal/models"

	"github.com/go-chi/chi/v5"
)

func SessionRoutes(router *chi.Mux, sessionHandler *handlers.SessionHandler, tokenHandler *handlers.TokenHandler, liveHandler *handlers.LiveHandler) {
	router.Route("/api/v1/session", func(r chi.Router) {
		r.With(middleware.ValidateRequest[*models.StartSessionRequest]()).Post("/start", sessionHandler.StartHandler)
		r.With(middleware.ValidateRequest[*models.ModerationRequest]()).Post("/response", sessionHandler.ResponseHandler)
		r.With(middleware.ValidateRequest[*models.FeedbackRequest]()).Post("/feedback", sessionHandler.FeedbackHandler)
		r.With(middleware.ValidateRequest[*models.GenerateRequest]()).Post("/generate", sessionHandler.GenerateHandler)
		r.With(middleware.ValidateRequest[*models.EndSessionRequest]()).Post("/end", sessionHandler.EndHandler)
		r.Get("/token", tokenHandler.TokenHandler)
		r.Get("/{interviewId}/live", liveHandler.LiveWS)
	})
}

func TTSRoutes(router *chi.Mux, ttsHandler *handlers.TTSHandler) {
	router.With(middleware.ValidateRequest[*models.TTSRequest]()).Post("/api/v1/tts", ttsHandler.SynthesizeHandler)
}
