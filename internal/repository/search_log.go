package repository

import (
	"context"

	"github.com/gradnav/gradnav/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SearchLogRepository stores search logs for offline retrieval evaluation.
type SearchLogRepository struct {
	pool *pgxpool.Pool
}

func NewSearchLogRepository(pool *pgxpool.Pool) *SearchLogRepository {
	return &SearchLogRepository{pool: pool}
}

func (r *SearchLogRepository) CreateSearchLog(ctx context.Context, entry service.SearchLogEntry) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO search_logs (query, mode, school_id, page_type, result_count, duration_ms)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.Query,
		entry.Mode,
		nullableString(entry.SchoolID),
		nullableString(entry.PageType),
		entry.ResultCount,
		entry.Duration.Milliseconds(),
	)
	return err
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
