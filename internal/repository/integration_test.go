//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gradnav/gradnav/internal/domain"
	"github.com/gradnav/gradnav/internal/service"
	"github.com/gradnav/gradnav/internal/testutil"
)

// newSearchPool probes every ivfflat list so tiny test datasets are fully
// visible to the approximate index.
func newSearchPool(ctx context.Context, t *testing.T, pc *testutil.PostgresContainer) *pgxpool.Pool {
	cfg, err := pgxpool.ParseConfig(pc.ConnectionString())
	require.NoError(t, err)
	cfg.ConnConfig.RuntimeParams["ivfflat.probes"] = "100"

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))
	require.NoError(t, testutil.RunMigrations(ctx, pool, "../../migrations"))
	return pool
}

// oneHot returns a 1024-dim vector with a single spike, so cosine similarity
// between distinct seeds is exactly zero.
func oneHot(seed int) []float32 {
	v := make([]float32, 1024)
	v[seed%1024] = 1
	return v
}

func seedUniversity(ctx context.Context, t *testing.T, repo *PageRepository, slug, name string) int64 {
	id, err := repo.UpsertUniversity(ctx, &domain.School{Slug: slug, Name: name, Domain: slug + ".edu"})
	require.NoError(t, err)
	return id
}

func seedPage(ctx context.Context, t *testing.T, repo *PageRepository, universityID int64, url string, pt domain.PageType) int64 {
	id, err := repo.UpsertPage(ctx, &domain.Page{
		UniversityID: universityID,
		URL:          url,
		PageType:     pt,
		RawText:      "Applications for the PhD program are due in December.",
	})
	require.NoError(t, err)
	return id
}

func makeChunk(universityID, pageID int64, schoolID string, pt domain.PageType, text string, seed int) domain.Chunk {
	return domain.Chunk{
		UniversityID: universityID,
		PageID:       pageID,
		SchoolID:     schoolID,
		SourceURL:    "https://" + schoolID + ".edu/admissions",
		PageType:     pt,
		Text:         text,
		Embedding:    oneHot(seed),
		Metadata: domain.ChunkMetadata{
			SchoolID:  schoolID,
			PageType:  pt,
			SourceURL: "https://" + schoolID + ".edu/admissions",
		},
	}
}

func TestPageRepository_UpsertUniversity_Idempotent(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewPageRepository(pool)

	first, err := repo.UpsertUniversity(ctx, &domain.School{Slug: "cmu", Name: "Carnegie Mellon", Domain: "cmu.edu"})
	require.NoError(t, err)

	second, err := repo.UpsertUniversity(ctx, &domain.School{Slug: "cmu", Name: "Carnegie Mellon University", Domain: "cmu.edu"})
	require.NoError(t, err)

	assert.Equal(t, first, second)

	var name string
	require.NoError(t, pool.QueryRow(ctx, `SELECT name FROM universities WHERE id = $1`, first).Scan(&name))
	assert.Equal(t, "Carnegie Mellon University", name)
}

func TestPageRepository_UpsertPage_ReingestionResetsArchive(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewPageRepository(pool)
	uniID := seedUniversity(ctx, t, repo, "cmu", "Carnegie Mellon University")

	url := "https://cmu.edu/admissions"
	pageID := seedPage(ctx, t, repo, uniID, url, domain.PageTypeAdmissions)

	require.NoError(t, repo.MarkArchived(ctx, pageID, time.Now()))

	archived, err := repo.GetByURL(ctx, url)
	require.NoError(t, err)
	require.NotNil(t, archived.ArchivedAt)

	samePageID := seedPage(ctx, t, repo, uniID, url, domain.PageTypeAdmissions)
	assert.Equal(t, pageID, samePageID)

	fresh, err := repo.GetByURL(ctx, url)
	require.NoError(t, err)
	assert.Nil(t, fresh.ArchivedAt)

	pending, err := repo.ListUnarchived(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, pageID, pending[0].ID)
	assert.Equal(t, "cmu", pending[0].SchoolID)
}

func TestPageRepository_MarkArchived_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewPageRepository(pool)
	err := repo.MarkArchived(ctx, 99999, time.Now())
	assert.ErrorIs(t, err, domain.ErrPageNotFound)
}

func TestChunkRepository_ReplaceChunks_SwapsAtomically(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	pageRepo := NewPageRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	uniID := seedUniversity(ctx, t, pageRepo, "cmu", "Carnegie Mellon University")
	pageID := seedPage(ctx, t, pageRepo, uniID, "https://cmu.edu/admissions", domain.PageTypeAdmissions)

	initial := []domain.Chunk{
		makeChunk(uniID, pageID, "cmu", domain.PageTypeAdmissions, "Deadline is December 15.", 1),
		makeChunk(uniID, pageID, "cmu", domain.PageTypeAdmissions, "Three recommendation letters.", 2),
		makeChunk(uniID, pageID, "cmu", domain.PageTypeAdmissions, "GRE is optional.", 3),
	}
	n, err := chunkRepo.ReplaceChunks(ctx, pageID, initial)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	replacement := []domain.Chunk{
		makeChunk(uniID, pageID, "cmu", domain.PageTypeAdmissions, "Deadline moved to January 5.", 4),
		makeChunk(uniID, pageID, "cmu", domain.PageTypeAdmissions, "Two recommendation letters.", 5),
	}
	n, err = chunkRepo.ReplaceChunks(ctx, pageID, replacement)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	count, err := chunkRepo.CountByPage(ctx, pageID)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	rows, err := pool.Query(ctx,
		`SELECT chunk_index, chunk_text FROM document_chunks WHERE page_id = $1 ORDER BY chunk_index`, pageID)
	require.NoError(t, err)
	defer rows.Close()

	var indexes []int
	var texts []string
	for rows.Next() {
		var idx int
		var text string
		require.NoError(t, rows.Scan(&idx, &text))
		indexes = append(indexes, idx)
		texts = append(texts, text)
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, []int{0, 1}, indexes)
	assert.Equal(t, []string{"Deadline moved to January 5.", "Two recommendation letters."}, texts)
}

func TestChunkRepository_DeletePage(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	pageRepo := NewPageRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	uniID := seedUniversity(ctx, t, pageRepo, "cmu", "Carnegie Mellon University")
	pageID := seedPage(ctx, t, pageRepo, uniID, "https://cmu.edu/faq", domain.PageTypeFAQ)

	_, err := chunkRepo.ReplaceChunks(ctx, pageID, []domain.Chunk{
		makeChunk(uniID, pageID, "cmu", domain.PageTypeFAQ, "What is the deadline?", 1),
	})
	require.NoError(t, err)

	require.NoError(t, chunkRepo.DeletePage(ctx, pageID))

	count, err := chunkRepo.CountByPage(ctx, pageID)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestChunkRepository_SearchByEmbedding_RanksAndFilters(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := newSearchPool(ctx, t, pc)
	defer pool.Close()

	pageRepo := NewPageRepository(pool)
	chunkRepo := NewChunkRepository(pool)

	cmuID := seedUniversity(ctx, t, pageRepo, "cmu", "Carnegie Mellon University")
	stanfordID := seedUniversity(ctx, t, pageRepo, "stanford", "Stanford University")

	cmuAdmissions := seedPage(ctx, t, pageRepo, cmuID, "https://cmu.edu/admissions", domain.PageTypeAdmissions)
	cmuFAQ := seedPage(ctx, t, pageRepo, cmuID, "https://cmu.edu/faq", domain.PageTypeFAQ)
	stanfordAdmissions := seedPage(ctx, t, pageRepo, stanfordID, "https://stanford.edu/admissions", domain.PageTypeAdmissions)

	_, err := chunkRepo.ReplaceChunks(ctx, cmuAdmissions, []domain.Chunk{
		makeChunk(cmuID, cmuAdmissions, "cmu", domain.PageTypeAdmissions, "CMU deadline is December 15.", 1),
	})
	require.NoError(t, err)
	_, err = chunkRepo.ReplaceChunks(ctx, cmuFAQ, []domain.Chunk{
		makeChunk(cmuID, cmuFAQ, "cmu", domain.PageTypeFAQ, "How do I apply to CMU?", 2),
	})
	require.NoError(t, err)
	_, err = chunkRepo.ReplaceChunks(ctx, stanfordAdmissions, []domain.Chunk{
		makeChunk(stanfordID, stanfordAdmissions, "stanford", domain.PageTypeAdmissions, "Stanford deadline is December 1.", 3),
	})
	require.NoError(t, err)

	// Query aligned with the CMU admissions chunk ranks it first with
	// similarity 1; the orthogonal chunks score 0.
	results, err := chunkRepo.SearchByEmbedding(ctx, oneHot(1), service.SearchFilters{}, 10)
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "CMU deadline is December 15.", results[0].Text)
	assert.Equal(t, "Carnegie Mellon University", results[0].UniversityName)
	assert.InDelta(t, 1.0, results[0].VectorScore, 1e-6)
	assert.InDelta(t, 0.0, results[1].VectorScore, 1e-6)

	bySchool, err := chunkRepo.SearchByEmbedding(ctx, oneHot(1), service.SearchFilters{SchoolID: "stanford"}, 10)
	require.NoError(t, err)
	require.Len(t, bySchool, 1)
	assert.Equal(t, "stanford", bySchool[0].SchoolID)

	byBoth, err := chunkRepo.SearchByEmbedding(ctx, oneHot(2), service.SearchFilters{
		SchoolID: "cmu",
		PageType: domain.PageTypeFAQ,
	}, 10)
	require.NoError(t, err)
	require.Len(t, byBoth, 1)
	assert.Equal(t, "How do I apply to CMU?", byBoth[0].Text)
	assert.Equal(t, domain.PageTypeFAQ, byBoth[0].PageType)
	assert.Equal(t, "cmu", byBoth[0].Metadata.SchoolID)
}

func TestSearchLogRepository_CreateSearchLog(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	repo := NewSearchLogRepository(pool)

	err := repo.CreateSearchLog(ctx, service.SearchLogEntry{
		Query:       "phd deadline",
		Mode:        service.SearchModeStandard,
		SchoolID:    "cmu",
		ResultCount: 5,
		Duration:    120 * time.Millisecond,
	})
	require.NoError(t, err)

	var query, mode, schoolID string
	var pageType *string
	var resultCount int
	var durationMS int64
	require.NoError(t, pool.QueryRow(ctx,
		`SELECT query, mode, school_id, page_type, result_count, duration_ms FROM search_logs`,
	).Scan(&query, &mode, &schoolID, &pageType, &resultCount, &durationMS))

	assert.Equal(t, "phd deadline", query)
	assert.Equal(t, service.SearchModeStandard, mode)
	assert.Equal(t, "cmu", schoolID)
	assert.Nil(t, pageType)
	assert.Equal(t, 5, resultCount)
	assert.Equal(t, int64(120), durationMS)
}
