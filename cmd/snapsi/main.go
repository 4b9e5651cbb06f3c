package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/snapsi/config"
)

var version = "dev"

var configFiles []string

var rootCmd = &cobra.Command{
	Version: version,
	Use:     "snapsi",
	Short:   "Image folder server with password protected uploads",
	Long: `Snapsi serves folders of images. Anyone with a folder's id can view
its images; uploads and deletions need the folder password when one is set.

Image bytes live on the local filesystem or in an S3 compatible bucket,
folder metadata in SQLite or PostgreSQL.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configFiles, cmd.Flags())
		if err != nil {
			return err
		}

		setupLogging(cfg)
		cmd.SetContext(config.WithContext(cmd.Context(), cfg))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringSliceVar(&configFiles, "config", nil, "config file paths, merged left to right (default: ./config.yaml)")
	rootCmd.PersistentFlags().String("db-type", "", "database type: sqlite, postgres (env: SNAPSI_DATABASE_TYPE)")
	rootCmd.PersistentFlags().String("db-dsn", "", "database connection string (env: SNAPSI_DATABASE_DSN)")
	rootCmd.PersistentFlags().String("storage-type", "", "storage type: filesystem, s3 (env: SNAPSI_STORAGE_TYPE)")
	rootCmd.PersistentFlags().String("storage-path", "", "storage directory path (env: SNAPSI_STORAGE_PATH)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error (env: SNAPSI_LOG_LEVEL)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
