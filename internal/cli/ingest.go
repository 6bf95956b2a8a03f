package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gradnav/gradnav/internal/config"
	"github.com/gradnav/gradnav/internal/domain"
	"github.com/gradnav/gradnav/internal/service"
)

// ingestFilePage mirrors the pages API request body so the same JSON works
// for both the HTTP endpoint and this command.
type ingestFilePage struct {
	URL        string                `json:"url"`
	RawText    string                `json:"raw_text"`
	SchoolHint string                `json:"school_hint,omitempty"`
	PageType   string                `json:"page_type,omitempty"`
	Metadata   *domain.ChunkMetadata `json:"metadata,omitempty"`
}

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest pages from a JSON file",
		Long:  "Reads a JSON array of pages, chunks and embeds them, and stores the results",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	var pages []ingestFilePage
	if err := json.Unmarshal(data, &pages); err != nil {
		return fmt.Errorf("failed to parse input file: %w", err)
	}
	if len(pages) == 0 {
		return fmt.Errorf("input file contains no pages")
	}

	inputs := make([]service.PageInput, 0, len(pages))
	for _, p := range pages {
		inputs = append(inputs, service.PageInput{
			URL:        p.URL,
			RawText:    p.RawText,
			SchoolHint: p.SchoolHint,
			PageType:   domain.PageType(p.PageType),
			Metadata:   p.Metadata,
		})
	}

	svcs, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svcs.Close()

	report, err := svcs.ingestor.IngestBatch(ctx, inputs)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("Ingested %d pages (%d chunks, %d skipped)\n", report.Pages, report.Chunks, report.Skipped)
	return nil
}
