package routers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"intervu/interview/internal/handlers"
)

func TestHealthRoutesMounted(t *testing.T) {
	router := chi.NewRouter()
	HealthRoutes(router, handlers.NewHealthHandler(nil, nil, nil, nil))

	for _, path := range []string{"/healthz", "/api/v1/session/healthz"} {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET %s: expected 200, got %d", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("GET /readyz with no dependencies: expected 503, got %d", rec.Code)
	}
}
