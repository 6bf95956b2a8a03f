package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/gradnav/gradnav/internal/domain"
)

const minPageChars = 50

// PageInput is one harvested page handed to the ingestor. SchoolHint is used
// when the URL alone cannot identify the school (reddit threads, mirrors).
// Metadata carries structured fields extracted upstream; it is copied onto
// every chunk of the page.
type PageInput struct {
	URL        string
	RawText    string
	SchoolHint string
	PageType   domain.PageType
	Metadata   *domain.ChunkMetadata
}

// IngestReport summarizes one batch.
type IngestReport struct {
	Pages   int
	Chunks  int
	Skipped int
}

// Ingestor turns harvested pages into embedded chunks: identify the school,
// infer the page type, chunk, embed, and replace the page's chunk set in one
// transaction.
type Ingestor struct {
	chunker  *Chunker
	embedder EmbeddingClient
	pages    PageRepository
	chunks   ChunkWriteRepository
}

// NewIngestor creates a new Ingestor instance.
func NewIngestor(chunker *Chunker, embedder EmbeddingClient, pages PageRepository, chunks ChunkWriteRepository) *Ingestor {
	return &Ingestor{
		chunker:  chunker,
		embedder: embedder,
		pages:    pages,
		chunks:   chunks,
	}
}

// IngestBatch ingests pages one at a time. A failing page is skipped and
// counted; pages already committed stay committed. Only context cancellation
// aborts the batch.
func (s *Ingestor) IngestBatch(ctx context.Context, inputs []PageInput) (*IngestReport, error) {
	report := &IngestReport{}
	universityIDs := make(map[string]int64)
	for _, input := range inputs {
		written, err := s.ingestOne(ctx, input, universityIDs)
		if err != nil {
			if ctx.Err() != nil {
				return report, ctx.Err()
			}
			log.Printf("skipping page %s: %v", input.URL, err)
			report.Skipped++
			continue
		}
		report.Pages++
		report.Chunks += written
	}
	return report, nil
}

func (s *Ingestor) ingestOne(ctx context.Context, input PageInput, universityIDs map[string]int64) (int, error) {
	raw := strings.TrimSpace(input.RawText)
	if len([]rune(raw)) < minPageChars {
		return 0, domain.ErrPageTooShort
	}

	school, err := domain.IdentifySchool(input.URL, input.SchoolHint)
	if err != nil {
		return 0, err
	}

	pageType := input.PageType
	if pageType == "" {
		pageType = domain.InferPageType(input.URL)
	}
	if !pageType.IsValid() {
		return 0, domain.ErrInvalidPageType
	}

	universityID, ok := universityIDs[school.Slug]
	if !ok {
		universityID, err = s.pages.UpsertUniversity(ctx, school)
		if err != nil {
			return 0, err
		}
		universityIDs[school.Slug] = universityID
	}

	pageID, err := s.pages.UpsertPage(ctx, &domain.Page{
		UniversityID: universityID,
		SchoolID:     school.Slug,
		URL:          input.URL,
		PageType:     pageType,
		RawText:      raw,
		CharCount:    len([]rune(raw)),
	})
	if err != nil {
		return 0, err
	}

	texts := s.chunker.Split(raw, pageType)
	if len(texts) == 0 {
		return 0, domain.ErrEmptyChunking
	}

	embeddings, err := s.embedder.EmbedTexts(ctx, texts)
	if err != nil {
		return 0, domain.NewDomainErrorWithCause(domain.ErrCodeIngestion, "chunk embedding failed", err)
	}

	metadata := domain.ChunkMetadata{}
	if input.Metadata != nil {
		metadata = *input.Metadata
	}
	metadata.SchoolID = school.Slug
	metadata.PageType = pageType
	metadata.SourceURL = input.URL

	chunks := make([]domain.Chunk, len(texts))
	for i, text := range texts {
		chunks[i] = domain.Chunk{
			UniversityID: universityID,
			PageID:       pageID,
			SchoolID:     school.Slug,
			SourceURL:    input.URL,
			PageType:     pageType,
			Text:         text,
			Embedding:    embeddings[i],
			Metadata:     metadata,
		}
	}

	return s.chunks.ReplaceChunks(ctx, pageID, chunks)
}

// DeletePage removes a page's chunks from the index.
func (s *Ingestor) DeletePage(ctx context.Context, pageID int64) error {
	err := s.chunks.DeletePage(ctx, pageID)
	if err != nil && !errors.Is(err, domain.ErrPageNotFound) {
		return err
	}
	return nil
}
