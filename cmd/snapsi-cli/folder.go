package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/sagarc03/snapsi/clientcli"
	"github.com/spf13/cobra"
)

var folderProtect bool

var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Create and inspect folders",
}

var folderCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a folder",
	Long: `Create a folder and print its id.

With --protect the folder gets a password, taken from --password,
SNAPSI_FOLDER_PASSWORD or an interactive prompt. Anyone can view a folder;
the password guards uploads and deletes.

Examples:
  snapsi-cli folder create "Summer 2026"
  snapsi-cli folder create --protect family
  snapsi-cli folder create -q team | xargs snapsi-cli list`,
	Args: cobra.ExactArgs(1),
	RunE: runFolderCreate,
}

var folderInfoCmd = &cobra.Command{
	Use:   "info <folder-id>",
	Short: "Show folder details",
	Args:  cobra.ExactArgs(1),
	RunE:  runFolderInfo,
}

var verifyCmd = &cobra.Command{
	Use:   "verify <folder-id>",
	Short: "Check a folder password",
	Long: `Check a folder password without changing anything.

Exits with status 0 when the password unlocks the folder and 1 otherwise.`,
	Args: cobra.ExactArgs(1),
	RunE: runVerify,
}

func init() {
	folderCreateCmd.Flags().BoolVar(&folderProtect, "protect", false, "protect the folder with a password")

	folderCmd.AddCommand(folderCreateCmd)
	folderCmd.AddCommand(folderInfoCmd)
}

func runFolderCreate(_ *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	folderPass := ""
	if folderProtect {
		folderPass, err = newFolderPassword()
		if err != nil {
			return err
		}
	}

	folder, err := client.CreateFolder(context.Background(), args[0], folderPass)
	if err != nil {
		return handleError(os.Stderr, err)
	}

	return getFormatter().FormatFolder(os.Stdout, folder)
}

// newFolderPassword returns the password for a new folder, asking twice when
// it has to be typed in.
func newFolderPassword() (string, error) {
	if password != "" {
		return password, nil
	}
	if p := clientcli.PasswordFromEnv(); p != "" {
		return p, nil
	}

	first, err := promptPassword("Folder password")
	if err != nil {
		return "", err
	}
	if first == "" {
		return "", errors.New("password must not be empty")
	}
	second, err := promptPassword("Repeat password")
	if err != nil {
		return "", err
	}
	if first != second {
		return "", errors.New("passwords do not match")
	}
	return first, nil
}

func runFolderInfo(_ *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	folder, err := client.GetFolder(context.Background(), args[0])
	if err != nil {
		return handleError(os.Stderr, err)
	}

	return getFormatter().FormatFolder(os.Stdout, folder)
}

func runVerify(_ *cobra.Command, args []string) error {
	client, err := getClient()
	if err != nil {
		return err
	}

	ctx := context.Background()
	folderPass, err := folderPassword(ctx, client, args[0])
	if err != nil {
		return handleError(os.Stderr, err)
	}

	if err := client.VerifyPassword(ctx, args[0], folderPass); err != nil {
		return handleError(os.Stderr, err)
	}

	if !quiet && !jsonOutput {
		fmt.Println("Password OK")
	}
	return nil
}
