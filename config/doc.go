// Package config provides configuration loading and validation for snapsi.
//
// The package handles YAML configuration files, environment variables, and CLI flags
// with automatic merging and validation using go-playground/validator.
//
// # Configuration Precedence
//
// Values are loaded in this order (later sources override earlier ones):
//
//  1. Default values
//  2. Configuration file(s) - multiple files merged left-to-right
//  3. Environment variables (SNAPSI_ prefix)
//  4. CLI flags
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// Store in context for subcommands
//	ctx = config.WithContext(ctx, cfg)
//
//	// Retrieve later
//	cfg, err = config.FromContext(ctx)
//
// # Environment Variables
//
// All config keys map to environment variables with SNAPSI_ prefix:
//   - server.port → SNAPSI_SERVER_PORT
//   - database.dsn → SNAPSI_DATABASE_DSN
//   - policy.max_images_per_folder → SNAPSI_POLICY_MAX_IMAGES_PER_FOLDER
//   - storage.s3.secret_key → SNAPSI_STORAGE_S3_SECRET_KEY
//
// Durations accept Go duration strings ("15m", "24h").
//
// # Configuration Structure
//
// The Config struct contains:
//   - Server: port, public URL used in signed links, proxy trust and timeouts
//   - Service: collaborator timeouts, recount and limiter sweep intervals
//   - Policy: file size, content types, folder quota, URL lifetimes and rate limits
//   - Database: type (sqlite/postgres), DSN, and table names
//   - Storage: filesystem path or S3 endpoint and bucket
//   - Signing: keys for URLs served by this process
//   - CORS: cross-origin resource sharing settings
//   - Log: logging level
//
// Use Config.Redacted before printing a configuration.
package config
