package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gradnav/gradnav/internal/domain"
	"github.com/gradnav/gradnav/internal/storage"
)

const archiveBatchSize = 25

// ArchivePageRepository defines the interface for finding and marking
// archivable pages.
type ArchivePageRepository interface {
	// ListUnarchived returns pages whose raw text has no snapshot yet.
	ListUnarchived(ctx context.Context, limit int) ([]*domain.Page, error)

	// MarkArchived records the snapshot time for a page.
	MarkArchived(ctx context.Context, pageID int64, at time.Time) error
}

// SnapshotStore defines the interface for writing page snapshots.
type SnapshotStore interface {
	PutPageSnapshot(ctx context.Context, key string, body []byte) error
}

// ArchiveWorker snapshots ingested raw pages to object storage so they can be
// re-chunked with new parameters without re-crawling. Run polls the repository
// on a fixed interval until its context is cancelled.
type ArchiveWorker struct {
	repo     ArchivePageRepository
	store    SnapshotStore
	interval time.Duration
	done     chan struct{}
}

// NewArchiveWorker creates an ArchiveWorker polling at the given interval.
func NewArchiveWorker(repo ArchivePageRepository, store SnapshotStore, interval time.Duration) *ArchiveWorker {
	return &ArchiveWorker{
		repo:     repo,
		store:    store,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Run archives one batch immediately, then keeps polling every interval.
// It returns when ctx is cancelled; Wait observes that return.
func (w *ArchiveWorker) Run(ctx context.Context) {
	defer close(w.done)

	log.Printf("archive worker polling every %v", w.interval)

	if err := w.archiveBatch(ctx); err != nil {
		log.Printf("archive batch failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("archive worker stopped")
			return
		case <-ticker.C:
			if err := w.archiveBatch(ctx); err != nil {
				log.Printf("archive batch failed: %v", err)
			}
		}
	}
}

// Wait blocks until Run has returned.
func (w *ArchiveWorker) Wait() {
	<-w.done
}

// archiveBatch snapshots up to archiveBatchSize pending pages. A page that
// fails to upload is logged and left unarchived for the next pass.
func (w *ArchiveWorker) archiveBatch(ctx context.Context) error {
	pages, err := w.repo.ListUnarchived(ctx, archiveBatchSize)
	if err != nil {
		return fmt.Errorf("failed to list unarchived pages: %w", err)
	}

	if len(pages) == 0 {
		return nil
	}

	log.Printf("archiving %d page snapshots", len(pages))

	for _, page := range pages {
		if err := w.archivePage(ctx, page); err != nil {
			log.Printf("failed to archive page %d (%s): %v", page.ID, page.URL, err)
		}
	}

	return nil
}

func (w *ArchiveWorker) archivePage(ctx context.Context, page *domain.Page) error {
	key := storage.SnapshotKey(page.SchoolID, page.ID)
	if err := w.store.PutPageSnapshot(ctx, key, []byte(page.RawText)); err != nil {
		return err
	}
	return w.repo.MarkArchived(ctx, page.ID, time.Now())
}
