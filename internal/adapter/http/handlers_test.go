package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/metallisense/metallisense/internal/config"
	"github.com/metallisense/metallisense/internal/domain"
	"github.com/metallisense/metallisense/internal/domain/analysis"
	"github.com/metallisense/metallisense/internal/domain/composition"
	"github.com/metallisense/metallisense/internal/domain/grade"
	"github.com/metallisense/metallisense/internal/resilience"
	"github.com/metallisense/metallisense/internal/service"
)

type fixedScorer struct{ score float64 }

func (s *fixedScorer) Score(context.Context, composition.Composition) (float64, error) {
	return s.score, nil
}
func (s *fixedScorer) Ready() bool { return true }

type fixedPredictor struct{}

func (p *fixedPredictor) PredictDeltas(context.Context, *grade.Spec, composition.Composition) (map[string]float64, float64, error) {
	return map[string]float64{"C": 0.3}, 0.85, nil
}
func (p *fixedPredictor) Ready() bool { return true }

type mapRegistry struct{ specs map[string]*grade.Spec }

func (r *mapRegistry) Resolve(_ context.Context, id string) (*grade.Spec, error) {
	spec, ok := r.specs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return spec, nil
}

func (r *mapRegistry) List(context.Context) ([]grade.Spec, error) {
	out := make([]grade.Spec, 0, len(r.specs))
	for _, s := range r.specs {
		out = append(out, *s)
	}
	return out, nil
}

func newTestRouter(t *testing.T, score float64) chi.Router {
	t.Helper()

	log := slog.Default()
	reg := &mapRegistry{specs: map[string]*grade.Spec{
		"SG-IRON": {
			ID: "SG-IRON",
			Ranges: map[string]grade.Range{
				"C": {Min: 3.4, Max: 3.9},
			},
		},
	}}

	anomaly := service.NewAnomalyService(&fixedScorer{score: score},
		config.Anomaly{LowThreshold: 0.33, HighThreshold: 0.66},
		resilience.NewBreaker(5, time.Second), log)
	grades := service.NewGradeService(reg, nil, time.Minute, log)
	alloy := service.NewAlloyService(grades, &fixedPredictor{},
		config.Alloy{MinAddition: 0.01, MaxAddition: 5.0},
		resilience.NewBreaker(5, time.Second), log)

	policy, err := service.NewDecisionPolicy("HIGH", nil)
	if err != nil {
		t.Fatal(err)
	}
	manager := service.NewManagerService(anomaly, alloy, policy, nil, nil, log)

	r := chi.NewRouter()
	MountRoutes(r, &Handlers{Manager: manager, Grades: grades, Anomaly: anomaly, Alloy: alloy})
	return r
}

const validBody = `{
	"composition": {"Fe": 82.5, "C": 3.7, "Si": 2.4, "Mn": 0.5, "P": 0.04, "S": 0.02},
	"grade": "SG-IRON"
}`

func TestAnalyzeReturnsEnvelope(t *testing.T) {
	router := newTestRouter(t, 0.9)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", strings.NewReader(validBody))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var env analysis.Envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatal(err)
	}
	if env.SafetyNote != analysis.SafetyNote {
		t.Errorf("safety note = %q", env.SafetyNote)
	}
	if env.Anomaly.Anomaly.Severity != analysis.SeverityHigh {
		t.Errorf("severity = %s, want HIGH", env.Anomaly.Anomaly.Severity)
	}
	if env.Alloy == nil {
		t.Error("expected alloy result for HIGH severity")
	}
}

func TestAnalyzeLowSeverityOmitsAlloy(t *testing.T) {
	router := newTestRouter(t, 0.1)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", strings.NewReader(validBody))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "alloy_result") {
		t.Error("alloy_result must be omitted when the agent is skipped")
	}
}

func TestAnalyzeInvalidJSON(t *testing.T) {
	router := newTestRouter(t, 0.1)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAnalyzeRejectsOutOfRangeConcentration(t *testing.T) {
	router := newTestRouter(t, 0.1)

	body := `{"composition": {"Fe": 182.5}, "grade": "SG-IRON"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestAnalyzeRejectsEmptyComposition(t *testing.T) {
	router := newTestRouter(t, 0.1)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/analysis", strings.NewReader(`{"grade": "SG-IRON"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPredictAnomalyStandalone(t *testing.T) {
	router := newTestRouter(t, 0.9)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/anomaly/predict", strings.NewReader(validBody))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result analysis.AgentResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Agent != analysis.AnomalyAgentName {
		t.Errorf("agent = %q", result.Agent)
	}
	if result.Anomaly == nil || result.Anomaly.Severity != analysis.SeverityHigh {
		t.Errorf("unexpected anomaly payload %+v", result.Anomaly)
	}
}

func TestPredictAnomalyRequiresComposition(t *testing.T) {
	router := newTestRouter(t, 0.9)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/anomaly/predict", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestRecommendAlloyStandalone(t *testing.T) {
	// Low anomaly score: the standalone route must still run the agent,
	// no severity gate applies here.
	router := newTestRouter(t, 0.1)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/alloy/recommend", strings.NewReader(validBody))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var result analysis.AgentResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatal(err)
	}
	if result.Agent != analysis.AlloyAgentName {
		t.Errorf("agent = %q", result.Agent)
	}
	if result.Alloy == nil || result.Alloy.Grade != "SG-IRON" {
		t.Errorf("unexpected alloy payload %+v", result.Alloy)
	}
	if len(result.Alloy.RecommendedAdditions) == 0 {
		t.Error("expected recommended additions from the fixed predictor")
	}
}

func TestRecommendAlloyRequiresGrade(t *testing.T) {
	router := newTestRouter(t, 0.1)

	body := `{"composition": {"Fe": 82.5, "C": 3.7, "Si": 2.4, "Mn": 0.5, "P": 0.04, "S": 0.02}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/alloy/recommend", strings.NewReader(body))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestListGrades(t *testing.T) {
	router := newTestRouter(t, 0.1)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/grades", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var specs []grade.Spec
	if err := json.Unmarshal(rec.Body.Bytes(), &specs); err != nil {
		t.Fatal(err)
	}
	if len(specs) != 1 || specs[0].ID != "SG-IRON" {
		t.Errorf("unexpected grades %v", specs)
	}
}

func TestGetGradeNotFound(t *testing.T) {
	router := newTestRouter(t, 0.1)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/grades/UNOBTANIUM", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestStatusEndpoint(t *testing.T) {
	router := newTestRouter(t, 0.1)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/status", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var status service.Status
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if !status.Ready {
		t.Error("expected ready")
	}
	if status.GateSeverity != analysis.SeverityHigh {
		t.Errorf("gate = %s", status.GateSeverity)
	}
}
