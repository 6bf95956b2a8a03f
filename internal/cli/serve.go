package cli

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gradnav/gradnav/internal/api/handlers"
	"github.com/gradnav/gradnav/internal/config"
	"github.com/gradnav/gradnav/internal/database"
	"github.com/gradnav/gradnav/internal/jobs"
	"github.com/gradnav/gradnav/internal/server"
	"github.com/gradnav/gradnav/internal/storage"
	"github.com/gradnav/gradnav/internal/telemetry"
)

const archivePollInterval = 30 * time.Second

// ServeCmd returns the serve command
func ServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		Long:  "Start the gradnav API server on the specified port",
		RunE:  runServe,
	}

	cmd.Flags().StringP("port", "p", "8080", "Port to listen on")
	cmd.Flags().Bool("no-migrate", false, "Skip automatic database migrations on startup")

	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize Sentry with tracing if SENTRY_DSN is set
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		environment := os.Getenv("ENVIRONMENT")
		if environment == "" {
			environment = "development"
		}

		// Default to 10% sampling in production, 100% in development
		sampleRate := 0.1
		if environment == "development" {
			sampleRate = 1.0
		}

		shutdownTelemetry, err := telemetry.Init(telemetry.Config{
			DSN:              dsn,
			Environment:      environment,
			TracesSampleRate: sampleRate,
		})
		if err != nil {
			log.Printf("telemetry init failed (continuing without tracing): %v", err)
		} else {
			defer shutdownTelemetry()
		}
	}

	portFlag, _ := cmd.Flags().GetString("port")
	if portFlag != "" && portFlag != "8080" {
		cfg.Port = portFlag
	}

	noMigrate, _ := cmd.Flags().GetBool("no-migrate")
	if !noMigrate {
		if err := database.Migrate(cfg.DatabaseURL, "file://migrations"); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	svcs, err := buildServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer svcs.Close()
	log.Println("connected to database")

	var archiveWorker *jobs.ArchiveWorker
	var stopArchive context.CancelFunc
	if cfg.HasS3() {
		s3Client, err := storage.NewS3Client(ctx, storage.S3ClientConfig{
			Endpoint:        cfg.S3Endpoint,
			Region:          cfg.S3Region,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			Bucket:          cfg.S3Bucket,
			UsePathStyle:    true,
		})
		if err != nil {
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		if err := s3Client.EnsureBucket(ctx); err != nil {
			return fmt.Errorf("failed to ensure S3 bucket: %w", err)
		}
		log.Printf("S3 bucket '%s' ready", cfg.S3Bucket)

		archiveWorker = jobs.NewArchiveWorker(svcs.pageRepo, s3Client, archivePollInterval)
		var archiveCtx context.Context
		archiveCtx, stopArchive = context.WithCancel(ctx)
		go archiveWorker.Run(archiveCtx)
	}

	routerCfg := server.RouterConfig{
		SearchHandler: handlers.NewSearchHandler(svcs.retriever, svcs.expander, svcs.auditor),
		AskHandler:    handlers.NewAskHandler(svcs.answers, svcs.agent),
		PagesHandler:  handlers.NewPagesHandler(svcs.ingestor),
	}

	router := server.NewRouter(routerCfg)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("starting server on port %s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down...")

	if archiveWorker != nil {
		stopArchive()
		archiveWorker.Wait()
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Println("server exited")
	return nil
}
