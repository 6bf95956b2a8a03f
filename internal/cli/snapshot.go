package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/gradnav/gradnav/internal/config"
	"github.com/gradnav/gradnav/internal/storage"
)

// SnapshotCmd returns the snapshot command group for inspecting archived
// page snapshots in object storage.
func SnapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Inspect archived page snapshots",
	}

	cmd.AddCommand(snapshotGetCmd())
	cmd.AddCommand(snapshotInfoCmd())
	cmd.AddCommand(snapshotRmCmd())

	return cmd
}

func snapshotClient(ctx context.Context) (*storage.S3Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if !cfg.HasS3() {
		return nil, fmt.Errorf("snapshot storage not configured: S3_ENDPOINT required")
	}

	return storage.NewS3Client(ctx, storage.S3ClientConfig{
		Endpoint:        cfg.S3Endpoint,
		Region:          cfg.S3Region,
		AccessKeyID:     cfg.S3AccessKey,
		SecretAccessKey: cfg.S3SecretKey,
		Bucket:          cfg.S3Bucket,
		UsePathStyle:    true,
	})
}

func snapshotArgs(args []string) (string, error) {
	pageID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil || pageID <= 0 {
		return "", fmt.Errorf("invalid page id %q", args[1])
	}
	return storage.SnapshotKey(args[0], pageID), nil
}

func snapshotGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <school> <page-id>",
		Short: "Print a page snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			key, err := snapshotArgs(args)
			if err != nil {
				return err
			}
			client, err := snapshotClient(ctx)
			if err != nil {
				return err
			}
			body, err := client.GetPageSnapshot(ctx, key)
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(body)
			return err
		},
	}
}

func snapshotInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <school> <page-id>",
		Short: "Show snapshot metadata",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			key, err := snapshotArgs(args)
			if err != nil {
				return err
			}
			client, err := snapshotClient(ctx)
			if err != nil {
				return err
			}
			meta, err := client.HeadObject(ctx, key)
			if err != nil {
				return err
			}
			fmt.Printf("Key:           %s\n", key)
			fmt.Printf("Size:          %d bytes\n", meta.ContentLength)
			fmt.Printf("Content-Type:  %s\n", meta.ContentType)
			fmt.Printf("Last-Modified: %s\n", meta.LastModified)
			return nil
		},
	}
}

func snapshotRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <school> <page-id>",
		Short: "Delete a page snapshot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			key, err := snapshotArgs(args)
			if err != nil {
				return err
			}
			client, err := snapshotClient(ctx)
			if err != nil {
				return err
			}
			if err := client.DeleteObject(ctx, key); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", key)
			return nil
		},
	}
}
