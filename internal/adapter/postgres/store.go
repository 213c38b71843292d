package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/metallisense/metallisense/internal/domain"
	"github.com/metallisense/metallisense/internal/domain/grade"
)

// Store implements registry.Registry using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Resolve returns the grade spec with the given id, or domain.ErrNotFound.
func (s *Store) Resolve(ctx context.Context, id string) (*grade.Spec, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, description, ranges FROM grades WHERE id = $1`, id)

	spec, err := scanGrade(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("resolve grade %s: %w", id, err)
	}
	return spec, nil
}

// List returns all grade specs ordered by id.
func (s *Store) List(ctx context.Context) ([]grade.Spec, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, description, ranges FROM grades ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list grades: %w", err)
	}
	defer rows.Close()

	var specs []grade.Spec
	for rows.Next() {
		spec, err := scanGrade(rows)
		if err != nil {
			return nil, fmt.Errorf("list grades: %w", err)
		}
		specs = append(specs, *spec)
	}
	return specs, rows.Err()
}

// Upsert inserts or replaces a grade spec.
func (s *Store) Upsert(ctx context.Context, spec *grade.Spec) error {
	if err := spec.Validate(); err != nil {
		return fmt.Errorf("%w: %s", domain.ErrValidation, err)
	}

	ranges, err := json.Marshal(spec.Ranges)
	if err != nil {
		return fmt.Errorf("marshal ranges: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO grades (id, description, ranges)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE
		 SET description = EXCLUDED.description, ranges = EXCLUDED.ranges, updated_at = now()`,
		spec.ID, spec.Description, ranges)
	if err != nil {
		return fmt.Errorf("upsert grade %s: %w", spec.ID, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGrade(row rowScanner) (*grade.Spec, error) {
	var spec grade.Spec
	var ranges []byte
	if err := row.Scan(&spec.ID, &spec.Description, &ranges); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(ranges, &spec.Ranges); err != nil {
		return nil, fmt.Errorf("unmarshal ranges: %w", err)
	}
	return &spec, nil
}
