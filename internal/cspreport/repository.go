package cspreport

import (
	"context"
	"fmt"

	"github.com/uptrace/bun"
)

// Repository persists CSP reports in Postgres
type Repository struct {
	db *bun.DB
}

func NewRepository(db *bun.DB) *Repository {
	return &Repository{db: db}
}

// Save inserts a report
func (r *Repository) Save(ctx context.Context, report *Report) error {
	_, err := r.db.NewInsert().
		Model(report).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("failed to save csp report: %w", err)
	}
	return nil
}

// ListRecent returns the newest reports, up to limit
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]Report, error) {
	var reports []Report
	err := r.db.NewSelect().
		Model(&reports).
		Order("received_at DESC").
		Limit(limit).
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list csp reports: %w", err)
	}
	return reports, nil
}
