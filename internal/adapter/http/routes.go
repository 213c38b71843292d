package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// MountRoutes registers all API routes on the given chi router.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		// Version
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})

		// Analysis
		r.Post("/analysis", h.Analyze)
		r.Get("/status", h.Status)

		// Standalone agent access, bypassing the decision policy gate
		r.Post("/anomaly/predict", h.PredictAnomaly)
		r.Post("/alloy/recommend", h.RecommendAlloy)

		// Grades
		r.Get("/grades", h.ListGrades)
		r.Get("/grades/{id}", h.GetGrade)
	})
}
