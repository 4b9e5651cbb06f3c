package main

import (
	"context"
	"os"

	"github.com/sagarc03/snapsi/clientcli"
	"github.com/spf13/cobra"
)

var (
	uploadContentType string
	uploadDirect      bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload <folder-id> <file> [file...]",
	Short: "Upload images to a folder",
	Long: `Upload one or more images to a folder.

Each file gets a time-bounded upload URL and is then sent to it. With
--direct the bytes go through the API in a single request instead. Files
are stored under a generated name; the output shows which name each file got.

Examples:
  snapsi-cli upload 6f1c5a8e-2b9d-4f7a-9c3e-1d2b3c4d5e6f beach.png
  snapsi-cli upload --password hunter2 6f1c5a8e-2b9d-4f7a-9c3e-1d2b3c4d5e6f *.jpg
  snapsi-cli upload --direct -t image/webp 6f1c5a8e-2b9d-4f7a-9c3e-1d2b3c4d5e6f photo.bin`,
	Args: cobra.MinimumNArgs(2),
	RunE: runUpload,
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadContentType, "content-type", "t", "", "override content-type")
	uploadCmd.Flags().BoolVar(&uploadDirect, "direct", false, "send the bytes through the API")
}

func runUpload(_ *cobra.Command, args []string) error {
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

	results, err := client.Upload(ctx, clientcli.UploadOptions{
		FolderID:    folderID,
		Paths:       args[1:],
		ContentType: uploadContentType,
		Password:    folderPass,
		Direct:      uploadDirect,
	})
	if err != nil {
		return handleError(os.Stderr, err)
	}

	if err := getFormatter().FormatUpload(os.Stdout, results); err != nil {
		return err
	}

	if clientcli.HasUploadErrors(results) {
		return &exitError{code: 1}
	}
	return nil
}
