package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sagarc03/snapsi/config"
)

var reconcileCmd = &cobra.Command{
	Use:   "reconcile [folder-id...]",
	Short: "Recount cached image counts from storage",
	Long: `Recompute each folder's cached image count from a fresh storage listing.

The cached count drifts when a metadata update fails after an upload or
deletion already succeeded. Quota is always enforced against storage, so
drift only affects what the API reports.

Without arguments every folder is recounted.`,
	RunE: runReconcile,
}

var reconcileBatch int

func init() {
	reconcileCmd.Flags().IntVar(&reconcileBatch, "batch", 100, "folders fetched per page when recounting all folders")
	rootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	if len(args) == 0 {
		changed, err := a.service.RecountAll(ctx, reconcileBatch)
		if err != nil {
			return fmt.Errorf("reconcile: %w", err)
		}
		slog.Info("reconcile complete", "changed", changed)
		return nil
	}

	for _, id := range args {
		count, err := a.service.Recount(ctx, id)
		if err != nil {
			return fmt.Errorf("reconcile %s: %w", id, err)
		}
		fmt.Printf("%s\t%d\n", id, count)
	}
	return nil
}
