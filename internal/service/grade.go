package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/metallisense/metallisense/internal/domain/grade"
	"github.com/metallisense/metallisense/internal/port/cache"
	"github.com/metallisense/metallisense/internal/port/registry"
)

const gradesListKey = "grades:all"

// GradeService fronts the grade registry with a read-through cache.
// Grade specs change rarely and are read on every gated analysis, so
// cache staleness is bounded by the TTL. Implements registry.Registry
// so the alloy agent sees the cached view.
type GradeService struct {
	registry registry.Registry
	cache    cache.Cache
	ttl      time.Duration
	log      *slog.Logger
}

// NewGradeService creates a cached grade registry. A nil cache disables
// caching and delegates straight to the registry.
func NewGradeService(reg registry.Registry, c cache.Cache, ttl time.Duration, log *slog.Logger) *GradeService {
	return &GradeService{registry: reg, cache: c, ttl: ttl, log: log}
}

// Resolve returns the grade spec with the given id, cache first.
func (s *GradeService) Resolve(ctx context.Context, id string) (*grade.Spec, error) {
	key := "grade:" + id

	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var spec grade.Spec
			if err := json.Unmarshal(data, &spec); err == nil {
				return &spec, nil
			}
			// Corrupt cache entry: drop it and fall through.
			_ = s.cache.Delete(ctx, key)
		}
	}

	spec, err := s.registry.Resolve(ctx, id)
	if err != nil {
		return nil, err
	}

	s.store(ctx, key, spec)
	return spec, nil
}

// List returns all grade specs, cache first.
func (s *GradeService) List(ctx context.Context) ([]grade.Spec, error) {
	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, gradesListKey); err == nil && ok {
			var specs []grade.Spec
			if err := json.Unmarshal(data, &specs); err == nil {
				return specs, nil
			}
			_ = s.cache.Delete(ctx, gradesListKey)
		}
	}

	specs, err := s.registry.List(ctx)
	if err != nil {
		return nil, err
	}

	s.store(ctx, gradesListKey, specs)
	return specs, nil
}

func (s *GradeService) store(ctx context.Context, key string, v any) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		s.log.Warn("grade cache marshal failed", "key", key, "error", err)
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		s.log.Warn("grade cache set failed", "key", key, "error", err)
	}
}
