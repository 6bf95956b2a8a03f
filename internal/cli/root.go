// Package cli wires the gradnavd commands.
package cli

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/gradnav/gradnav/internal/config"
	"github.com/gradnav/gradnav/internal/database"
	"github.com/gradnav/gradnav/internal/openai"
	"github.com/gradnav/gradnav/internal/repository"
	"github.com/gradnav/gradnav/internal/rerank"
	"github.com/gradnav/gradnav/internal/service"
)

// RootCmd returns the gradnavd root command.
func RootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gradnavd",
		Short: "Graduate admissions retrieval service",
		Long:  "gradnavd indexes graduate admissions pages and answers questions over them",
	}

	cmd.AddCommand(ServeCmd())
	cmd.AddCommand(MigrateCmd())
	cmd.AddCommand(IngestCmd())
	cmd.AddCommand(SearchCmd())
	cmd.AddCommand(AskCmd())
	cmd.AddCommand(SnapshotCmd())

	return cmd
}

// services bundles everything a command needs once the pool is up.
type services struct {
	pool      *pgxpool.Pool
	retriever *service.Retriever
	expander  *service.Expander
	auditor   *service.Auditor
	answers   *service.AnswerService
	agent     *service.Agent
	ingestor  *service.Ingestor
	pageRepo  *repository.PageRepository
}

func (s *services) Close() {
	s.pool.Close()
}

// buildServices connects to the database and assembles the service graph from
// config. Rerank and chat are optional; retrieval degrades gracefully without
// them.
func buildServices(ctx context.Context, cfg *config.Config) (*services, error) {
	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}

	chunkRepo := repository.NewChunkRepository(pool)
	pageRepo := repository.NewPageRepository(pool)
	logRepo := repository.NewSearchLogRepository(pool)

	embedder := openai.NewClient(openai.Config{
		APIKey:              cfg.EmbeddingAPIKey,
		BaseURL:             cfg.EmbeddingBaseURL,
		EmbeddingModel:      cfg.EmbeddingModel,
		EmbeddingDimensions: cfg.EmbeddingDimensions,
	})
	chat := openai.NewClient(openai.Config{
		APIKey:    cfg.ChatAPIKey,
		BaseURL:   cfg.ChatBaseURL,
		ChatModel: cfg.ChatModel,
	})

	var reranker service.RerankClient
	if cfg.HasRerank() {
		reranker = rerank.NewClient(rerank.Config{
			BaseURL: cfg.RerankBaseURL,
			APIKey:  cfg.RerankAPIKey,
			Model:   cfg.RerankModel,
		})
	}

	retriever := service.NewRetriever(embedder, reranker, chunkRepo, logRepo, service.RetrieverConfig{
		TopK:             cfg.SearchTopK,
		OversampleFactor: cfg.OversampleFactor,
	})
	expander := service.NewExpander(retriever, chat, cfg.ExpandParaphrase)
	auditor := service.NewAuditor()

	return &services{
		pool:      pool,
		retriever: retriever,
		expander:  expander,
		auditor:   auditor,
		answers:   service.NewAnswerService(retriever, expander, auditor, chat),
		agent:     service.NewAgent(retriever, auditor, chat, service.AgentConfig{MaxSteps: cfg.AgentMaxSteps}),
		ingestor:  service.NewIngestor(service.NewChunker(nil), embedder, pageRepo, chunkRepo),
		pageRepo:  pageRepo,
	}, nil
}
