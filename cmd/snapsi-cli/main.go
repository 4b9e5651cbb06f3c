package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/sagarc03/snapsi/clientcli"
	"github.com/spf13/cobra"
)

var (
	version = "dev"

	cfgFile    string
	endpoint   string
	profile    string
	password   string
	jsonOutput bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:     "snapsi-cli",
	Version: version,
	Short:   "Client for snapsi image folders",
	Long: `snapsi CLI - Client for the snapsi image sharing server

Folders are addressed by their id. Protected folders need a password for
uploads and deletes; it is read from --password, SNAPSI_FOLDER_PASSWORD or
asked for interactively.

The server is picked from --endpoint, SNAPSI_ENDPOINT or a profile in
~/.snapsi/config.yaml (see 'snapsi-cli configure').`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.snapsi/config.yaml, env: SNAPSI_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", "", "server URL (default: http://localhost:5708, env: SNAPSI_ENDPOINT)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "profile name (env: SNAPSI_PROFILE)")
	rootCmd.PersistentFlags().StringVar(&password, "password", "", "folder password (env: SNAPSI_FOLDER_PASSWORD)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")

	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(folderCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(recountCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.code)
		}
		_ = getFormatter().FormatError(os.Stderr, err)
		os.Exit(1)
	}
}

// getConfigPath returns the profile file in use: the flag, then
// SNAPSI_CONFIG, then the default location.
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if p := clientcli.ConfigPathFromEnv(); p != "" {
		return p
	}
	return clientcli.DefaultConfigPath()
}

// buildConfig merges config from the profile file, env vars, and flags (flags take precedence).
func buildConfig() (*clientcli.Config, error) {
	var configs []*clientcli.Config

	profileName := profile
	if profileName == "" {
		profileName = clientcli.ProfileFromEnv()
	}
	explicit := cfgFile != "" || clientcli.ConfigPathFromEnv() != "" || profileName != ""

	// 1. Load from config file
	if configPath := getConfigPath(); configPath != "" {
		file, err := clientcli.LoadConfigFile(configPath)
		switch {
		case err == nil:
			p, profileErr := file.GetProfile(profileName)
			if profileErr != nil && profileName != "" {
				return nil, profileErr
			}
			if profileErr == nil {
				configs = append(configs, clientcli.ConfigFromProfile(p))
			}
		case explicit:
			// Only error if the user asked for a config file or profile
			return nil, err
		}
	}

	// 2. Load from environment variables
	configs = append(configs, clientcli.ConfigFromEnv())

	// 3. Load from flags
	configs = append(configs, &clientcli.Config{Endpoint: endpoint})

	return clientcli.MergeConfig(configs...), nil
}

// getFormatter returns the appropriate formatter based on flags.
func getFormatter() clientcli.Formatter {
	return clientcli.NewFormatter(jsonOutput, quiet)
}

// getClient creates and returns a configured client.
func getClient() (*clientcli.Client, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}

	return clientcli.New(cfg)
}

// folderPassword returns the password for a folder operation. The folder is
// looked up first and the user is prompted only when it is protected and no
// password was supplied.
func folderPassword(ctx context.Context, client *clientcli.Client, folderID string) (string, error) {
	if password != "" {
		return password, nil
	}
	if p := clientcli.PasswordFromEnv(); p != "" {
		return p, nil
	}

	folder, err := client.GetFolder(ctx, folderID)
	if err != nil {
		return "", err
	}
	if !folder.HasPassword {
		return "", nil
	}

	return promptPassword(fmt.Sprintf("Password for %q", folder.Name))
}

func promptPassword(label string) (string, error) {
	prompt := promptui.Prompt{
		Label: label,
		Mask:  '*',
	}
	p, err := prompt.Run()
	if err != nil {
		return "", handlePromptError(err)
	}
	return p, nil
}

// handleError prints err with the active formatter and hands back an
// exitError so main does not print it a second time.
func handleError(w io.Writer, err error) error {
	_ = getFormatter().FormatError(w, err)
	return &exitError{code: 1}
}

// handlePromptError handles promptui errors.
func handlePromptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) {
		fmt.Println("\nCancelled.")
		os.Exit(0)
	}
	if errors.Is(err, promptui.ErrAbort) {
		return errCancelled
	}
	return err
}

var errCancelled = errors.New("cancelled")

// exitError is returned when we want to exit with a specific code
// but don't want to print an error message.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
