package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gradnav/gradnav/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PageRepository persists universities and harvested web pages.
type PageRepository struct {
	db dbtx
}

func NewPageRepository(pool *pgxpool.Pool) *PageRepository {
	return &PageRepository{db: pool}
}

func NewPageRepositoryWithTx(tx dbtx) *PageRepository {
	return &PageRepository{db: tx}
}

// UpsertUniversity writes or refreshes a university row and returns its id.
func (r *PageRepository) UpsertUniversity(ctx context.Context, school *domain.School) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO universities (school_id, name, domain)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (school_id) DO UPDATE SET
			name       = EXCLUDED.name,
			domain     = EXCLUDED.domain,
			updated_at = now()
		 RETURNING id`,
		school.Slug, school.Name, school.Domain,
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// UpsertPage writes or fully replaces a web page keyed by URL and returns
// its id. Re-ingestion resets archived_at so the archive worker picks the
// fresh snapshot up again.
func (r *PageRepository) UpsertPage(ctx context.Context, page *domain.Page) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx,
		`INSERT INTO web_pages (university_id, url, page_type, raw_text, char_count)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (url) DO UPDATE SET
			university_id = EXCLUDED.university_id,
			page_type     = EXCLUDED.page_type,
			raw_text      = EXCLUDED.raw_text,
			char_count    = EXCLUDED.char_count,
			archived_at   = NULL,
			updated_at    = now()
		 RETURNING id`,
		page.UniversityID, page.URL, page.PageType, page.RawText, len(page.RawText),
	).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

func (r *PageRepository) GetByURL(ctx context.Context, url string) (*domain.Page, error) {
	var p domain.Page
	var archivedAt *time.Time
	err := r.db.QueryRow(ctx,
		`SELECT p.id, p.university_id, u.school_id, p.url, p.page_type, p.raw_text,
		        p.char_count, p.archived_at, p.created_at, p.updated_at
		 FROM web_pages p
		 JOIN universities u ON p.university_id = u.id
		 WHERE p.url = $1`,
		url,
	).Scan(&p.ID, &p.UniversityID, &p.SchoolID, &p.URL, &p.PageType, &p.RawText,
		&p.CharCount, &archivedAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrPageNotFound
		}
		return nil, err
	}
	p.ArchivedAt = archivedAt
	return &p, nil
}

// ListUnarchived returns pages whose raw text has not been snapshotted yet.
func (r *PageRepository) ListUnarchived(ctx context.Context, limit int) ([]*domain.Page, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.Query(ctx,
		`SELECT p.id, p.university_id, u.school_id, p.url, p.page_type, p.raw_text,
		        p.char_count, p.created_at, p.updated_at
		 FROM web_pages p
		 JOIN universities u ON p.university_id = u.id
		 WHERE p.archived_at IS NULL
		 ORDER BY p.id
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pages []*domain.Page
	for rows.Next() {
		var p domain.Page
		if err := rows.Scan(&p.ID, &p.UniversityID, &p.SchoolID, &p.URL, &p.PageType,
			&p.RawText, &p.CharCount, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		pages = append(pages, &p)
	}
	return pages, rows.Err()
}

func (r *PageRepository) MarkArchived(ctx context.Context, pageID int64, at time.Time) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE web_pages SET archived_at = $1, updated_at = now() WHERE id = $2`,
		at.UTC(), pageID,
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrPageNotFound
	}
	return nil
}
