// Package nats implements the audit sink port using NATS JetStream.
// Every policy decision is published to the audit stream so reviewers
// can reconstruct why an agent was or was not invoked.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/metallisense/metallisense/internal/port/audit"
)

const (
	streamName    = "METALLISENSE"
	subjectPrefix = "audit.decisions."
	publishWait   = 5 * time.Second
)

// AuditSink implements audit.Sink using NATS JetStream.
type AuditSink struct {
	nc *nats.Conn
	js jetstream.JetStream
}

// Connect establishes a connection to NATS and ensures the audit stream exists.
func Connect(ctx context.Context, url string) (*AuditSink, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream init: %w", err)
	}

	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:     streamName,
		Subjects: []string{"audit.>"},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream stream create: %w", err)
	}

	slog.Info("nats connected", "url", url, "stream", streamName)
	return &AuditSink{nc: nc, js: js}, nil
}

// Record publishes a decision entry to the audit stream. Publishing is
// fire-and-forget: it runs off the request path, and an unavailable
// sink is logged, never surfaced to the analysis request.
func (s *AuditSink) Record(_ context.Context, entry audit.Entry) {
	data, err := json.Marshal(entry)
	if err != nil {
		slog.Error("audit entry marshal failed", "decision", entry.Decision, "error", err)
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), publishWait)
		defer cancel()

		if _, err := s.js.Publish(ctx, subjectPrefix+entry.Decision, data); err != nil {
			slog.Warn("audit publish failed", "decision", entry.Decision, "error", err)
		}
	}()
}

// Close shuts down the NATS connection.
func (s *AuditSink) Close() error {
	s.nc.Close()
	return nil
}
