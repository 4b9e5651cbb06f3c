package main

import (
	"context"
	"os"

	"github.com/sagarc03/snapsi/clientcli"
	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <folder-id> <name> [name...]",
	Short: "Delete images from a folder",
	Long: `Delete one or more images from a folder.

Examples:
  snapsi-cli delete 6f1c5a8e-2b9d-4f7a-9c3e-1d2b3c4d5e6f 0b7d3c1e.png
  snapsi-cli delete --password hunter2 6f1c5a8e-2b9d-4f7a-9c3e-1d2b3c4d5e6f a.png b.png`,
	Args: cobra.MinimumNArgs(2),
	RunE: runDelete,
}

func runDelete(_ *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	ctx := context.Background()
	folderID := args[0]

	folderPass, err := folderPassword(ctx, client, folderID)
	if err != nil {
		return handleError(os.Stderr, err)
	}

	results, err := client.Delete(ctx, clientcli.DeleteOptions{
		FolderID: folderID,
		Names:    args[1:],
		Password: folderPass,
	})
	if err != nil {
		return handleError(os.Stderr, err)
	}

	if err := getFormatter().FormatDelete(os.Stdout, results); err != nil {
		return err
	}

	// Return error if any deletes failed
	if clientcli.HasDeleteErrors(results) {
		return &exitError{code: 1}
	}
	return nil
}
