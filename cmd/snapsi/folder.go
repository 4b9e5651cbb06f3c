package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"

	"github.com/sagarc03/snapsi"
	"github.com/sagarc03/snapsi/config"
)

var folderCmd = &cobra.Command{
	Use:   "folder",
	Short: "Manage folders directly against the configured backends",
}

var folderCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a folder",
	Long: `Create a folder and print its id.

With --protect you are prompted for a password; mutations of the folder
will require it. Without it the folder is public.

Examples:
  # Create a public folder
  snapsi folder create "Team offsite"

  # Create a password protected folder
  snapsi folder create --protect "Family 2024"`,
	Args: cobra.ExactArgs(1),
	RunE: runFolderCreate,
}

var folderInfoCmd = &cobra.Command{
	Use:   "info <folder-id>",
	Short: "Show a folder and its images",
	Args:  cobra.ExactArgs(1),
	RunE:  runFolderInfo,
}

var folderProtect bool

func init() {
	folderCreateCmd.Flags().BoolVarP(&folderProtect, "protect", "p", false, "prompt for a folder password")

	folderCmd.AddCommand(folderCreateCmd)
	folderCmd.AddCommand(folderInfoCmd)
	rootCmd.AddCommand(folderCmd)
}

func runFolderCreate(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	password := ""
	if folderProtect {
		password, err = promptPassword()
		if err != nil {
			return err
		}
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	folder, err := a.service.CreateFolder(ctx, snapsi.CreateFolderRequest{Name: args[0], Password: password})
	if err != nil {
		return err
	}

	fmt.Println(folder.ID.String())
	return nil
}

func promptPassword() (string, error) {
	validate := func(input string) error {
		if input == "" {
			return errors.New("password cannot be empty")
		}
		if len(input) > 72 {
			return errors.New("password must be at most 72 bytes")
		}
		return nil
	}

	first, err := (&promptui.Prompt{Label: "Folder password", Mask: '*', Validate: validate}).Run()
	if err != nil {
		return "", fmt.Errorf("prompt password: %w", err)
	}

	second, err := (&promptui.Prompt{Label: "Repeat password", Mask: '*'}).Run()
	if err != nil {
		return "", fmt.Errorf("prompt password: %w", err)
	}

	if first != second {
		return "", errors.New("passwords do not match")
	}
	return first, nil
}

func runFolderInfo(cmd *cobra.Command, args []string) error {
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

	folder, err := a.service.GetFolder(ctx, args[0])
	if err != nil {
		return err
	}

	images, err := a.service.ListImages(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("ID:          %s\n", folder.ID)
	fmt.Printf("Name:        %s\n", folder.Name)
	fmt.Printf("Protected:   %t\n", folder.HasPassword())
	fmt.Printf("Created:     %s\n", folder.CreatedAt.Format(time.RFC3339))
	if folder.LastUploadAt != nil {
		fmt.Printf("Last upload: %s\n", folder.LastUploadAt.Format(time.RFC3339))
	}
	fmt.Printf("Images:      %d (cached %d)\n", len(images), folder.ImageCount)

	if len(images) == 0 {
		return nil
	}

	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "NAME\tTYPE\tSIZE\tCREATED")
	for _, img := range images {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", img.Name, img.ContentType, img.Size, img.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
