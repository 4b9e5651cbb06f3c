package main

import (
	"context"
	"io"
	"os"

	"github.com/sagarc03/snapsi/clientcli"
	"github.com/spf13/cobra"
)

var (
	downloadOutput string
	downloadStdout bool
)

var downloadCmd = &cobra.Command{
	Use:   "download <folder-id> <name> [local-path]",
	Short: "Download an image",
	Long: `Download an image of a folder through its read URL.

Examples:
  snapsi-cli download 6f1c5a8e-2b9d-4f7a-9c3e-1d2b3c4d5e6f 0b7d3c1e.png
  snapsi-cli download 6f1c5a8e-2b9d-4f7a-9c3e-1d2b3c4d5e6f 0b7d3c1e.png ./beach.png
  snapsi-cli download --stdout 6f1c5a8e-2b9d-4f7a-9c3e-1d2b3c4d5e6f 0b7d3c1e.png | display`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runDownload,
}

func init() {
	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "output file path")
	downloadCmd.Flags().BoolVar(&downloadStdout, "stdout", false, "write to stdout")
}

func runDownload(_ *cobra.Command, args []string) error {
	localPath := ""
	if len(args) > 2 {
		localPath = args[2]
	}
	if downloadOutput != "" {
		localPath = downloadOutput
	}
	if downloadStdout {
		localPath = "-"
	}

	client, err := getClient()
	if err != nil {
		return err
	}

	result, reader, err := client.Download(context.Background(), clientcli.DownloadOptions{
		FolderID:  args[0],
		Name:      args[1],
		LocalPath: localPath,
	})
	if err != nil {
		return handleError(os.Stderr, err)
	}

	// If stdout, write content to stdout
	if reader != nil {
		defer func() { _ = reader.Close() }()
		if _, err := io.Copy(os.Stdout, reader); err != nil {
			return err
		}
		// Don't print metadata when writing to stdout (unless JSON mode)
		if jsonOutput {
			return getFormatter().FormatDownload(os.Stderr, result)
		}
		return nil
	}

	return getFormatter().FormatDownload(os.Stdout, result)
}
