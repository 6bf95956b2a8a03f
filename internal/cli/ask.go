package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gradnav/gradnav/internal/config"
	"github.com/gradnav/gradnav/internal/domain"
	"github.com/gradnav/gradnav/internal/service"
)

// AskCmd returns the ask command
func AskCmd() *cobra.Command {
	var (
		school   string
		pageType string
		topK     int
		expand   bool
		agentic  bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question over indexed pages",
		Long:  "Retrieves relevant chunks and generates a grounded answer",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsk(args[0], school, pageType, topK, expand, agentic)
		},
	}

	cmd.Flags().StringVarP(&school, "school", "s", "", "Restrict retrieval to a school ID")
	cmd.Flags().StringVarP(&pageType, "type", "t", "", "Restrict retrieval to a page type")
	cmd.Flags().IntVarP(&topK, "top", "n", 0, "Number of chunks to retrieve (0 uses the configured default)")
	cmd.Flags().BoolVar(&expand, "expand", false, "Expand the question with paraphrases before retrieval")
	cmd.Flags().BoolVar(&agentic, "agentic", false, "Let the model issue its own searches instead of a single retrieval pass")

	return cmd
}

func runAsk(question, school, pageType string, topK int, expand, agentic bool) error {
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

	if agentic {
		result, err := svcs.agent.Run(ctx, question)
		if err != nil {
			return fmt.Errorf("ask failed: %w", err)
		}
		fmt.Println(result.Answer)
		if result.ForcedStop {
			fmt.Printf("\n(answer forced after %d searches)\n", result.ToolDispatches)
		}
		return nil
	}

	answer, err := svcs.answers.Ask(ctx, question, service.AnswerOptions{
		TopK:     topK,
		SchoolID: school,
		PageType: pt,
		Expand:   expand,
	})
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	fmt.Println(answer.Text)
	if len(answer.Sources) > 0 {
		fmt.Printf("\n%s\nSources:\n", strings.Repeat("-", 40))
		for i, src := range answer.Sources {
			fmt.Printf("%d. %s (%s)\n", i+1, src.SourceURL, src.PageType)
		}
	}

	return nil
}
