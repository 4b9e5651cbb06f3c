package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var recountCmd = &cobra.Command{
	Use:   "recount <folder-id>",
	Short: "Recompute a folder's image count",
	Long: `Ask the server to count the images a folder really holds and store the
result as the folder's image count. Protected folders ask for their password.`,
	Args: cobra.ExactArgs(1),
	RunE: runRecount,
}

func runRecount(_ *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	ctx := context.Background()

	folderPass, err := folderPassword(ctx, client, args[0])
	if err != nil {
		return handleError(os.Stderr, err)
	}

	count, err := client.Recount(ctx, args[0], folderPass)
	if err != nil {
		return handleError(os.Stderr, err)
	}

	if jsonOutput {
		fmt.Printf("{\"image_count\": %d}\n", count)
		return nil
	}
	fmt.Println(count)
	return nil
}
