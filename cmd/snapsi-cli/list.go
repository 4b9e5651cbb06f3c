package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list <folder-id>",
	Short: "List the images of a folder",
	Long: `List the images of a folder, newest first.

With --json every image carries a read URL that stays valid for the server's
configured read window.

Examples:
  snapsi-cli list 6f1c5a8e-2b9d-4f7a-9c3e-1d2b3c4d5e6f
  snapsi-cli list -q 6f1c5a8e-2b9d-4f7a-9c3e-1d2b3c4d5e6f`,
	Args: cobra.ExactArgs(1),
	RunE: runList,
}

func runList(_ *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	images, err := client.ListImages(context.Background(), args[0])
	if err != nil {
		return handleError(os.Stderr, err)
	}

	return getFormatter().FormatImages(os.Stdout, images)
}
