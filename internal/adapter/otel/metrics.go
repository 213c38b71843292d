package otel

import (
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "metallisense"

// Metrics holds all MetalliSense metric instruments.
type Metrics struct {
	AnalysesStarted   metric.Int64Counter
	AnalysesCompleted metric.Int64Counter
	AnalysesFailed    metric.Int64Counter
	AlloyInvoked      metric.Int64Counter
	AlloySkipped      metric.Int64Counter
	AnomalyScore      metric.Float64Histogram
	AnalysisDuration  metric.Float64Histogram
}

// NewMetrics creates all metric instruments.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	m := &Metrics{}
	var err error

	m.AnalysesStarted, err = meter.Int64Counter("metallisense.analyses.started",
		metric.WithDescription("Number of analysis requests started"))
	if err != nil {
		return nil, err
	}

	m.AnalysesCompleted, err = meter.Int64Counter("metallisense.analyses.completed",
		metric.WithDescription("Number of analysis requests completed"))
	if err != nil {
		return nil, err
	}

	m.AnalysesFailed, err = meter.Int64Counter("metallisense.analyses.failed",
		metric.WithDescription("Number of analysis requests rejected for invalid input"))
	if err != nil {
		return nil, err
	}

	m.AlloyInvoked, err = meter.Int64Counter("metallisense.alloy.invoked",
		metric.WithDescription("Number of analyses where the alloy agent ran"))
	if err != nil {
		return nil, err
	}

	m.AlloySkipped, err = meter.Int64Counter("metallisense.alloy.skipped",
		metric.WithDescription("Number of analyses where the alloy agent was gated off"))
	if err != nil {
		return nil, err
	}

	m.AnomalyScore, err = meter.Float64Histogram("metallisense.anomaly.score",
		metric.WithDescription("Distribution of anomaly scores"))
	if err != nil {
		return nil, err
	}

	m.AnalysisDuration, err = meter.Float64Histogram("metallisense.analysis.duration_seconds",
		metric.WithDescription("Analysis duration in seconds"))
	if err != nil {
		return nil, err
	}

	return m, nil
}
