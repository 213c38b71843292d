// Package audit defines the port for the decision audit trail.
package audit

import (
	"context"
	"time"
)

// Entry is one recorded policy decision.
type Entry struct {
	ID        string    `json:"id"`
	Decision  string    `json:"decision"`
	Reasoning string    `json:"reasoning"`
	At        time.Time `json:"at"`
}

// Sink accepts decision entries for the audit trail. Record is
// fire-and-forget: implementations must never block the analysis
// critical path and must never surface a failure to the caller.
type Sink interface {
	Record(ctx context.Context, entry Entry)
}
