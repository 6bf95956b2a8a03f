package service

import (
	"context"
	"time"

	"github.com/gradnav/gradnav/internal/domain"
)

// SearchFilters narrows a vector search to a school and/or page type.
// Zero values mean no filtering on that dimension.
type SearchFilters struct {
	SchoolID string
	PageType domain.PageType
}

// SearchLogEntry records one executed search for offline analysis.
type SearchLogEntry struct {
	Query       string
	Mode        string
	SchoolID    string
	PageType    string
	ResultCount int
	Duration    time.Duration
}

// Search modes recorded in search logs.
const (
	SearchModeStandard = "standard"
	SearchModeExpanded = "expanded"
	SearchModeAgent    = "agent"
)

// ChunkSearchRepository defines the repository interface for vector search.
type ChunkSearchRepository interface {
	SearchByEmbedding(ctx context.Context, embedding []float32, filters SearchFilters, limit int) ([]domain.RetrievalResult, error)
}

// SearchLogRepository defines the repository interface for search logging.
type SearchLogRepository interface {
	CreateSearchLog(ctx context.Context, entry SearchLogEntry) error
}

// PageRepository defines the repository interface for page ingestion.
type PageRepository interface {
	UpsertUniversity(ctx context.Context, school *domain.School) (int64, error)
	UpsertPage(ctx context.Context, page *domain.Page) (int64, error)
}

// ChunkWriteRepository defines the repository interface for chunk persistence.
type ChunkWriteRepository interface {
	ReplaceChunks(ctx context.Context, pageID int64, chunks []domain.Chunk) (int, error)
	DeletePage(ctx context.Context, pageID int64) error
}
