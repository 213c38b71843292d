package http

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/metallisense/metallisense/internal/domain"
	"github.com/metallisense/metallisense/internal/domain/composition"
	"github.com/metallisense/metallisense/internal/service"
)

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Manager *service.ManagerService
	Grades  *service.GradeService
	Anomaly *service.AnomalyService
	Alloy   *service.AlloyService
}

// AnalysisRequest is the inbound payload for the analyze operation.
type AnalysisRequest struct {
	Composition composition.Composition `json:"composition"`
	Grade       string                  `json:"grade"`
}

// validate enforces the structural contract: a composition must be
// present and concentrations must be plausible percentages. Anything
// beyond this (missing elements, unknown grades) degrades inside the
// agents instead of failing the request.
func (req *AnalysisRequest) validate() error {
	return validateComposition(req.Composition)
}

func validateComposition(comp composition.Composition) error {
	if len(comp) == 0 {
		return fmt.Errorf("%w: composition is required", domain.ErrInvalidInput)
	}
	for el, pct := range comp {
		if el == "" {
			return fmt.Errorf("%w: empty element symbol", domain.ErrInvalidInput)
		}
		if pct < 0 || pct > 100 {
			return fmt.Errorf("%w: element %s concentration %.4f outside [0, 100]", domain.ErrInvalidInput, el, pct)
		}
	}
	return nil
}

// Analyze handles POST /api/v1/analysis.
func (h *Handlers) Analyze(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[AnalysisRequest](w, r)
	if !ok {
		return
	}
	if err := req.validate(); err != nil {
		writeDomainError(w, err, "invalid analysis request")
		return
	}

	env, err := h.Manager.Analyze(r.Context(), req.Composition, req.Grade)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidInput) && env != nil {
			// Structural short-circuit: the envelope still carries the
			// safety note, but the request itself is rejected.
			writeJSON(w, http.StatusBadRequest, env)
			return
		}
		writeDomainError(w, err, "analysis failed")
		return
	}

	writeJSON(w, http.StatusOK, env)
}

// PredictAnomaly handles POST /api/v1/anomaly/predict: the anomaly
// agent alone, outside the orchestrated pipeline. Operators use it to
// probe a reading without triggering the decision policy. Degraded
// results are in-band, as in the envelope.
func (h *Handlers) PredictAnomaly(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[AnalysisRequest](w, r)
	if !ok {
		return
	}
	if err := validateComposition(req.Composition); err != nil {
		writeDomainError(w, err, "invalid anomaly request")
		return
	}
	if !h.Anomaly.Ready() {
		writeError(w, http.StatusServiceUnavailable, "anomaly agent unavailable")
		return
	}

	writeJSON(w, http.StatusOK, h.Anomaly.Analyze(r.Context(), req.Composition))
}

// RecommendAlloy handles POST /api/v1/alloy/recommend: the alloy agent
// alone. Unlike the orchestrated pipeline there is no severity gate
// here, so the grade is mandatory.
func (h *Handlers) RecommendAlloy(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[AnalysisRequest](w, r)
	if !ok {
		return
	}
	if err := validateComposition(req.Composition); err != nil {
		writeDomainError(w, err, "invalid alloy request")
		return
	}
	if req.Grade == "" {
		writeError(w, http.StatusBadRequest, "grade is required")
		return
	}
	if !h.Alloy.Ready() {
		writeError(w, http.StatusServiceUnavailable, "alloy agent unavailable")
		return
	}

	writeJSON(w, http.StatusOK, h.Alloy.Recommend(r.Context(), req.Grade, req.Composition))
}

// ListGrades handles GET /api/v1/grades.
func (h *Handlers) ListGrades(w http.ResponseWriter, r *http.Request) {
	specs, err := h.Grades.List(r.Context())
	if err != nil {
		writeDomainError(w, err, "grades unavailable")
		return
	}
	writeJSON(w, http.StatusOK, specs)
}

// GetGrade handles GET /api/v1/grades/{id}.
func (h *Handlers) GetGrade(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	spec, err := h.Grades.Resolve(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "grade not found")
		return
	}
	writeJSON(w, http.StatusOK, spec)
}

// Status handles GET /api/v1/status.
func (h *Handlers) Status(w http.ResponseWriter, _ *http.Request) {
	status := h.Manager.Status()
	code := http.StatusOK
	if !status.Ready {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, status)
}
