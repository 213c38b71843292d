// Package auditlog implements the audit sink port on the structured
// logger, used when no JetStream sink is configured.
package auditlog

import (
	"context"
	"log/slog"

	"github.com/metallisense/metallisense/internal/port/audit"
)

// Sink writes decision entries to the structured log.
type Sink struct {
	log *slog.Logger
}

// New creates a log-backed audit sink.
func New(log *slog.Logger) *Sink {
	return &Sink{log: log}
}

// Record logs the decision entry.
func (s *Sink) Record(_ context.Context, entry audit.Entry) {
	s.log.Info("policy decision",
		"audit_id", entry.ID,
		"decision", entry.Decision,
		"reasoning", entry.Reasoning,
	)
}
