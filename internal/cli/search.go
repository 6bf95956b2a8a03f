package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gradnav/gradnav/internal/config"
	"github.com/gradnav/gradnav/internal/domain"
	"github.com/gradnav/gradnav/internal/service"
)

// SearchCmd returns the search command
func SearchCmd() *cobra.Command {
	var (
		school     string
		pageType   string
		topK       int
		expand     bool
		outputJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search indexed pages",
		Long:  "Runs a retrieval query against the chunk index and prints the ranked results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(args[0], school, pageType, topK, expand, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&school, "school", "s", "", "Filter by school ID")
	cmd.Flags().StringVarP(&pageType, "type", "t", "", "Filter by page type")
	cmd.Flags().IntVarP(&topK, "top", "n", 0, "Number of results (0 uses the configured default)")
	cmd.Flags().BoolVar(&expand, "expand", false, "Expand the query with paraphrases before searching")
	cmd.Flags().BoolVar(&outputJSON, "output", false, "Print raw JSON")

	return cmd
}

func runSearch(query, school, pageType string, topK int, expand, outputJSON bool) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	pt := domain.PageType(pageType)
	if pageType != "" && !pt.IsValid() {
		return fmt.Errorf("unknown page type %q", pageType)
	}

	svcs, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svcs.Close()

	var results []domain.RetrievalResult
	if expand {
		results, err = svcs.expander.SearchExpanded(ctx, query, topK)
	} else {
		results, err = svcs.retriever.Search(ctx, query, topK, service.SearchFilters{
			SchoolID: school,
			PageType: pt,
		})
	}
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	results = svcs.auditor.Annotate(results)

	if outputJSON {
		output, _ := json.MarshalIndent(results, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", len(results))
	for i, r := range results {
		score := r.VectorScore
		if r.RerankScore != nil {
			score = *r.RerankScore
		}
		fmt.Printf("%d. %s / %s (%.3f)\n", i+1, r.SchoolID, r.PageType, score)
		text := r.Text
		if len(text) > 200 {
			text = text[:197] + "..."
		}
		fmt.Printf("   %s\n", text)
		if r.SourceURL != "" {
			fmt.Printf("   URL: %s\n", r.SourceURL)
		}
		if i < len(results)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}
