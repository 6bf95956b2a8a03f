package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gradnav/gradnav/internal/domain"
	"github.com/gradnav/gradnav/internal/service"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ChunkRepository handles persistence and ANN retrieval of document chunks.
type ChunkRepository struct {
	pool *pgxpool.Pool
}

func NewChunkRepository(pool *pgxpool.Pool) *ChunkRepository {
	return &ChunkRepository{pool: pool}
}

// ReplaceChunks swaps a page's chunk set inside one transaction: either all
// new chunks replace all old ones, or the old rows remain untouched. Keyed
// deletes keep (page_id, chunk_index) contiguous, which also makes
// re-ingestion of an identical page a no-op at the state level.
func (r *ChunkRepository) ReplaceChunks(ctx context.Context, pageID int64, chunks []domain.Chunk) (int, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM document_chunks WHERE page_id = $1`, pageID); err != nil {
		return 0, err
	}

	for i, c := range chunks {
		metaJSON, err := json.Marshal(c.Metadata)
		if err != nil {
			return 0, fmt.Errorf("failed to marshal chunk metadata: %w", err)
		}
		_, err = tx.Exec(ctx,
			`INSERT INTO document_chunks
				(university_id, page_id, school_id, source_url, page_type,
				 chunk_index, chunk_text, embedding, metadata)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			c.UniversityID, pageID, c.SchoolID, c.SourceURL, c.PageType,
			i, c.Text, pgvector.NewVector(c.Embedding), metaJSON,
		)
		if err != nil {
			return 0, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return len(chunks), nil
}

// DeletePage removes every chunk belonging to a page.
func (r *ChunkRepository) DeletePage(ctx context.Context, pageID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM document_chunks WHERE page_id = $1`, pageID)
	return err
}

func (r *ChunkRepository) CountByPage(ctx context.Context, pageID int64) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT count(*) FROM document_chunks WHERE page_id = $1`, pageID,
	).Scan(&count)
	return count, err
}

// SearchByEmbedding runs the stage-1 approximate scan: cosine ordering with
// optional equality filters, returning up to limit candidates with
// vector_score = 1 - cosine distance.
func (r *ChunkRepository) SearchByEmbedding(ctx context.Context, embedding []float32, filters service.SearchFilters, limit int) ([]domain.RetrievalResult, error) {
	if limit <= 0 {
		limit = 20
	}

	vec := pgvector.NewVector(embedding)

	query := `
		SELECT dc.id, dc.page_id, dc.school_id, dc.source_url, dc.page_type,
		       dc.chunk_text, dc.metadata, u.name AS university_name,
		       1 - (dc.embedding <=> $1) AS vector_score
		FROM document_chunks dc
		JOIN universities u ON dc.university_id = u.id`
	args := []any{vec}

	if filters.SchoolID != "" {
		args = append(args, filters.SchoolID)
		query += fmt.Sprintf(" WHERE dc.school_id = $%d", len(args))
	}
	if filters.PageType != "" {
		args = append(args, filters.PageType)
		clause := " WHERE"
		if filters.SchoolID != "" {
			clause = " AND"
		}
		query += fmt.Sprintf("%s dc.page_type = $%d", clause, len(args))
	}

	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY dc.embedding <=> $1 LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := make([]domain.RetrievalResult, 0, limit)
	for rows.Next() {
		var res domain.RetrievalResult
		var metaJSON []byte
		if err := rows.Scan(&res.ChunkID, &res.PageID, &res.SchoolID, &res.SourceURL,
			&res.PageType, &res.Text, &metaJSON, &res.UniversityName, &res.VectorScore); err != nil {
			return nil, err
		}
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &res.Metadata); err != nil {
				return nil, fmt.Errorf("failed to unmarshal chunk metadata: %w", err)
			}
		}
		results = append(results, res)
	}

	return results, rows.Err()
}
