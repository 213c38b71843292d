package logger

import "context"

// contextKey is a private type to prevent collisions with other context keys.
type contextKey int

const (
	requestIDKey contextKey = iota
	envelopeIDKey
)

// WithRequestID returns a new context with the given request ID stored.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestID extracts the request ID from the context.
// Returns an empty string if no request ID is set.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithEnvelopeID returns a new context carrying the analysis envelope
// ID, set by the manager so agent-level log records can be correlated
// with the envelope they belong to.
func WithEnvelopeID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, envelopeIDKey, id)
}

// EnvelopeID extracts the analysis envelope ID from the context.
// Returns an empty string if none is set.
func EnvelopeID(ctx context.Context) string {
	id, _ := ctx.Value(envelopeIDKey).(string)
	return id
}
