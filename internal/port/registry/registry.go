// Package registry defines the port for the grade specification registry.
package registry

import (
	"context"

	"github.com/metallisense/metallisense/internal/domain/grade"
)

// Registry resolves grade identifiers to their target specifications.
// Resolve returns domain.ErrNotFound when the grade is unknown.
type Registry interface {
	Resolve(ctx context.Context, id string) (*grade.Spec, error)
	List(ctx context.Context) ([]grade.Spec, error)
}
