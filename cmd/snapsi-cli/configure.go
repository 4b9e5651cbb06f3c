package main

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/manifoldco/promptui"
	"github.com/sagarc03/snapsi/clientcli"
	"github.com/spf13/cobra"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Manage server profiles",
	Long: `Manage server profiles in the configuration file.

Profiles save the endpoints of snapsi servers so you can switch between them
using --profile or SNAPSI_PROFILE.

Configuration is stored in ~/.snapsi/config.yaml`,
}

var configureListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configured profiles",
	Long: `List all profiles configured in the config file.

The default profile is marked with an asterisk (*).`,
	Args: cobra.NoArgs,
	RunE: runConfigureList,
}

var configureAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add or update a profile",
	Long: `Add a profile interactively.

You will be prompted for the endpoint URL and whether the profile should be
the default. The server's health endpoint is checked before saving.`,
	Args: cobra.ExactArgs(1),
	RunE: runConfigureAdd,
}

var configureRemoveCmd = &cobra.Command{
	Use:     "remove <name>",
	Aliases: []string{"rm"},
	Short:   "Remove a profile",
	Args:    cobra.ExactArgs(1),
	RunE:    runConfigureRemove,
}

var configureSetDefaultCmd = &cobra.Command{
	Use:   "set-default <name>",
	Short: "Set the default profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigureSetDefault,
}

var configureShowCmd = &cobra.Command{
	Use:   "show [name]",
	Short: "Show profile details",
	Long: `Show details for a profile.

If no name is provided, shows the default profile.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runConfigureShow,
}

func init() {
	configureCmd.AddCommand(configureListCmd)
	configureCmd.AddCommand(configureAddCmd)
	configureCmd.AddCommand(configureRemoveCmd)
	configureCmd.AddCommand(configureSetDefaultCmd)
	configureCmd.AddCommand(configureShowCmd)
}

func runConfigureList(_ *cobra.Command, _ []string) error {
	cfg, err := clientcli.LoadConfigFile(getConfigPath())
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load config: %w", err)
	}

	if cfg == nil || len(cfg.Profiles) == 0 {
		fmt.Println("No profiles configured.")
		fmt.Println("Run 'snapsi-cli configure add <name>' to create one.")
		return nil
	}

	defaultProfile, err := cfg.GetDefaultProfile()
	if err != nil {
		return err
	}

	return getFormatter().FormatProfileList(os.Stdout, cfg.Profiles, defaultProfile.Name)
}

func runConfigureAdd(_ *cobra.Command, args []string) error {
	name := args[0]
	configPath := getConfigPath()

	// Load existing config or create new
	cfg, err := clientcli.LoadConfigFile(configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = &clientcli.ConfigFile{}
	}

	existing, _ := cfg.GetProfile(name)
	if existing != nil {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("Profile '%s' already exists. Update it", name),
			IsConfirm: true,
		}
		if _, promptErr := prompt.Run(); promptErr != nil {
			fmt.Println("Cancelled.")
			return nil //nolint:nilerr // User cancelled, not an error
		}
	}

	defaultEndpoint := clientcli.DefaultEndpoint
	if existing != nil {
		defaultEndpoint = existing.Endpoint
	}
	endpointPrompt := promptui.Prompt{
		Label:    "Endpoint URL",
		Default:  defaultEndpoint,
		Validate: validateEndpoint,
	}
	endpointURL, err := endpointPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	setAsDefault := len(cfg.Profiles) == 0 || (existing != nil && existing.Default)
	if !setAsDefault {
		defaultPrompt := promptui.Prompt{
			Label:     "Set as default profile",
			IsConfirm: true,
		}
		if _, promptErr := defaultPrompt.Run(); promptErr == nil {
			setAsDefault = true
		}
	}

	fmt.Print("Testing connection... ")
	if connErr := testServerConnection(endpointURL); connErr != nil {
		fmt.Println("FAILED")
		fmt.Printf("Warning: Could not reach server: %v\n", connErr)

		continuePrompt := promptui.Prompt{
			Label:     "Save profile anyway",
			IsConfirm: true,
		}
		if _, promptErr := continuePrompt.Run(); promptErr != nil {
			fmt.Println("Cancelled.")
			return nil //nolint:nilerr // User cancelled, not an error
		}
	} else {
		fmt.Println("OK")
	}

	p := clientcli.Profile{
		Name:     name,
		Endpoint: strings.TrimSuffix(endpointURL, "/"),
	}
	if existing != nil {
		err = cfg.UpdateProfile(p)
	} else {
		err = cfg.AddProfile(p)
	}
	if err != nil {
		return fmt.Errorf("save profile: %w", err)
	}

	if setAsDefault {
		if err := cfg.SetDefault(name); err != nil {
			return err
		}
	}

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	if existing != nil {
		fmt.Printf("Profile '%s' updated.\n", name)
	} else {
		fmt.Printf("Profile '%s' added.\n", name)
	}
	if setAsDefault {
		fmt.Println("Set as default profile.")
	}

	return nil
}

func runConfigureRemove(_ *cobra.Command, args []string) error {
	name := args[0]
	configPath := getConfigPath()

	cfg, err := clientcli.LoadConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if _, err = cfg.GetProfile(name); err != nil {
		return err
	}

	prompt := promptui.Prompt{
		Label:     fmt.Sprintf("Remove profile '%s'", name),
		IsConfirm: true,
	}
	if _, promptErr := prompt.Run(); promptErr != nil {
		fmt.Println("Cancelled.")
		return nil //nolint:nilerr // User cancelled, not an error
	}

	if err := cfg.RemoveProfile(name); err != nil {
		return fmt.Errorf("remove profile: %w", err)
	}

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("Profile '%s' removed.\n", name)
	return nil
}

func runConfigureSetDefault(_ *cobra.Command, args []string) error {
	name := args[0]
	configPath := getConfigPath()

	cfg, err := clientcli.LoadConfigFile(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	if err := cfg.SetDefault(name); err != nil {
		return err
	}

	if err := cfg.Save(configPath); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	fmt.Printf("Default profile set to '%s'.\n", name)
	return nil
}

func runConfigureShow(_ *cobra.Command, args []string) error {
	cfg, err := clientcli.LoadConfigFile(getConfigPath())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	name := ""
	if len(args) > 0 {
		name = args[0]
	}

	p, err := cfg.GetProfile(name)
	if err != nil {
		return err
	}

	defaultProfile, err := cfg.GetDefaultProfile()
	if err != nil {
		return err
	}

	return getFormatter().FormatProfileShow(os.Stdout, *p, defaultProfile.Name == p.Name)
}

func validateEndpoint(input string) error {
	if input == "" {
		return errors.New("endpoint URL is required")
	}
	parsed, err := url.Parse(input)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("URL must start with http:// or https://")
	}
	return nil
}

// testServerConnection checks the server's health endpoint.
func testServerConnection(endpointURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	client, err := clientcli.New(&clientcli.Config{Endpoint: endpointURL}, clientcli.WithTimeout(5*time.Second))
	if err != nil {
		return err
	}
	return client.Health(ctx)
}
