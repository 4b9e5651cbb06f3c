package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/sagarc03/snapsi"
	"github.com/sagarc03/snapsi/bucket"
	"github.com/sagarc03/snapsi/database"
	snapsihttp "github.com/sagarc03/snapsi/http"
	"github.com/sagarc03/snapsi/keybackend"
)

// configKey is the context key for storing the loaded configuration.
type configKey struct{}

// WithContext returns a new context with the config stored.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configKey{}, cfg)
}

// FromContext retrieves the config from context.
// Returns an error if config is not found.
func FromContext(ctx context.Context) (*Config, error) {
	cfg, ok := ctx.Value(configKey{}).(*Config)
	if !ok || cfg == nil {
		return nil, errors.New("config not found in context")
	}
	return cfg, nil
}

// Config is the root configuration struct for snapsi.
type Config struct {
	Env      string                `mapstructure:"env" yaml:"env" validate:"omitempty,oneof=dev development prod production"`
	Server   ServerConfig          `mapstructure:"server" yaml:"server"`
	Service  ServiceConfig         `mapstructure:"service" yaml:"service"`
	Policy   PolicyConfig          `mapstructure:"policy" yaml:"policy"`
	Database database.Config       `mapstructure:"database" yaml:"database"`
	Storage  StorageConfig         `mapstructure:"storage" yaml:"storage"`
	Signing  SigningConfig         `mapstructure:"signing" yaml:"signing"`
	CORS     snapsihttp.CORSConfig `mapstructure:"cors" yaml:"cors"`
	Log      LogConfig             `mapstructure:"log" yaml:"log"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port int `mapstructure:"port" yaml:"port" validate:"required,min=1,max=65535"`

	// PublicURL is the externally reachable base of this server, used in
	// signed object URLs. Defaults to http://localhost:<port>.
	PublicURL         string        `mapstructure:"public_url" yaml:"public_url" validate:"omitempty,url"`
	TrustProxyHeaders bool          `mapstructure:"trust_proxy_headers" yaml:"trust_proxy_headers"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" validate:"min=0"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" validate:"min=0"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" validate:"required"`
}

// BaseURL returns PublicURL, or the local address when it is unset.
func (s ServerConfig) BaseURL() string {
	if s.PublicURL != "" {
		return strings.TrimRight(s.PublicURL, "/")
	}
	return "http://localhost:" + strconv.Itoa(s.Port)
}

// ServiceConfig holds timeouts and background task intervals.
type ServiceConfig struct {
	StoreTimeout    time.Duration `mapstructure:"store_timeout" yaml:"store_timeout" validate:"min=0"`
	MetadataTimeout time.Duration `mapstructure:"metadata_timeout" yaml:"metadata_timeout" validate:"min=0"`

	// ReconcileInterval of 0 disables the periodic recount.
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval" yaml:"reconcile_interval" validate:"min=0"`
	ReconcileBatch    int           `mapstructure:"reconcile_batch" yaml:"reconcile_batch" validate:"min=1"`
	SweepInterval     time.Duration `mapstructure:"sweep_interval" yaml:"sweep_interval" validate:"required"`
}

// PolicyConfig holds the limits enforced on callers.
type PolicyConfig struct {
	MaxFileSize         int64         `mapstructure:"max_file_size" yaml:"max_file_size" validate:"min=1"`
	AllowedContentTypes []string      `mapstructure:"allowed_content_types" yaml:"allowed_content_types" validate:"min=1,dive,required"`
	MaxImagesPerFolder  int           `mapstructure:"max_images_per_folder" yaml:"max_images_per_folder" validate:"min=1"`
	UploadURLTTL        time.Duration `mapstructure:"upload_url_ttl" yaml:"upload_url_ttl" validate:"required"`
	ReadURLTTL          time.Duration `mapstructure:"read_url_ttl" yaml:"read_url_ttl" validate:"required"`
	UploadRate          RateConfig    `mapstructure:"upload_rate" yaml:"upload_rate"`
	DeleteRate          RateConfig    `mapstructure:"delete_rate" yaml:"delete_rate"`
}

// Policy converts the section into a snapsi.Policy.
func (p PolicyConfig) Policy() snapsi.Policy {
	return snapsi.Policy{
		MaxFileSize:         p.MaxFileSize,
		AllowedContentTypes: p.AllowedContentTypes,
		MaxImagesPerFolder:  p.MaxImagesPerFolder,
		UploadURLTTL:        p.UploadURLTTL,
		ReadURLTTL:          p.ReadURLTTL,
	}
}

// RateConfig is a fixed window limit: Limit operations per Window.
type RateConfig struct {
	Limit  int           `mapstructure:"limit" yaml:"limit" validate:"min=1"`
	Window time.Duration `mapstructure:"window" yaml:"window" validate:"required"`
}

// StorageConfig selects where image bytes live.
type StorageConfig struct {
	Type string        `mapstructure:"type" yaml:"type" validate:"required,oneof=filesystem s3"`
	Path string        `mapstructure:"path" yaml:"path"`
	S3   bucket.Config `mapstructure:"s3" yaml:"s3"`
}

// SigningConfig holds the keys for capability URLs served by this process.
type SigningConfig struct {
	Keys keybackend.KeysConfig `mapstructure:"keys" yaml:"keys"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" validate:"required,oneof=debug info warn error"`
}

// IsProduction reports whether Env names a production deployment.
func (c *Config) IsProduction() bool {
	return c.Env == "prod" || c.Env == "production"
}

// validate runs the checks struct tags cannot express.
func (c *Config) validate() error {
	if c.Policy.UploadURLTTL > snapsi.MaxExpiresSeconds*time.Second || c.Policy.ReadURLTTL > snapsi.MaxExpiresSeconds*time.Second {
		return fmt.Errorf("policy: url ttl must not exceed %ds", snapsi.MaxExpiresSeconds)
	}

	switch c.Storage.Type {
	case "filesystem":
		if c.Storage.Path == "" {
			return errors.New("storage: path is required for filesystem storage")
		}
	case "s3":
		if err := c.Storage.S3.Validate(); err != nil {
			return fmt.Errorf("storage: %w", err)
		}
	}

	return nil
}

// Redacted returns a copy safe to print: secrets are masked and credentials
// are removed from the database DSN.
func (c *Config) Redacted() Config {
	out := *c

	out.Database.DSN = redactDSN(c.Database.DSN)

	if out.Storage.S3.SecretKey != "" {
		out.Storage.S3.SecretKey = mask
	}

	if len(c.Signing.Keys.Inline) > 0 {
		out.Signing.Keys.Inline = make([]keybackend.KeyPair, len(c.Signing.Keys.Inline))
		for i, p := range c.Signing.Keys.Inline {
			out.Signing.Keys.Inline[i] = keybackend.KeyPair{AccessKey: p.AccessKey, SecretKey: mask}
		}
	}

	return out
}

const mask = "********"

func redactDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.User == nil {
		return dsn
	}
	return u.Redacted()
}

// flagToViperKey maps CLI flag names to viper configuration keys.
var flagToViperKey = map[string]string{
	"db-type":      "database.type",
	"db-dsn":       "database.dsn",
	"storage-type": "storage.type",
	"storage-path": "storage.path",
	"port":         "server.port",
	"public-url":   "server.public_url",
	"log-level":    "log.level",
}

// bindFlags binds CLI flags to viper keys with custom name mapping.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		viperKey, ok := flagToViperKey[f.Name]
		if !ok {
			return
		}

		// Only bind if the flag was explicitly set
		if f.Changed {
			_ = v.BindPFlag(viperKey, f)
		}
	})
}

// setDefaults configures default values on the viper instance.
func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "dev")

	v.SetDefault("server.port", 5708)
	v.SetDefault("server.public_url", "")
	v.SetDefault("server.trust_proxy_headers", false)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "15s")

	v.SetDefault("service.store_timeout", "30s")
	v.SetDefault("service.metadata_timeout", "10s")
	v.SetDefault("service.reconcile_interval", "1h")
	v.SetDefault("service.reconcile_batch", 100)
	v.SetDefault("service.sweep_interval", "1m")

	defaults := snapsi.DefaultPolicy()
	v.SetDefault("policy.max_file_size", defaults.MaxFileSize)
	v.SetDefault("policy.allowed_content_types", defaults.AllowedContentTypes)
	v.SetDefault("policy.max_images_per_folder", defaults.MaxImagesPerFolder)
	v.SetDefault("policy.upload_url_ttl", defaults.UploadURLTTL.String())
	v.SetDefault("policy.read_url_ttl", defaults.ReadURLTTL.String())
	v.SetDefault("policy.upload_rate.limit", 5)
	v.SetDefault("policy.upload_rate.window", "1m")
	v.SetDefault("policy.delete_rate.limit", 100)
	v.SetDefault("policy.delete_rate.window", "1m")

	v.SetDefault("database.type", "sqlite")
	v.SetDefault("database.dsn", "snapsi.db")
	v.SetDefault("database.tables.folders", "snapsi_folders")

	v.SetDefault("storage.type", "filesystem")
	v.SetDefault("storage.path", "./data")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.access_key", "")
	v.SetDefault("storage.s3.secret_key", "")
	v.SetDefault("storage.s3.bucket", "snapsi")
	v.SetDefault("storage.s3.region", "us-east-1")
	v.SetDefault("storage.s3.use_ssl", true)

	v.SetDefault("signing.keys.file", "")
	v.SetDefault("signing.keys.active", "")

	v.SetDefault("log.level", "info")
}

// Load reads configuration and returns a validated Config struct.
// Order of precedence (highest to lowest): flags > env > config files > defaults
//
// Parameters:
//   - configFiles: list of config file paths (later files override earlier ones)
//   - flags: cobra flag set for flag binding (can be nil)
func Load(configFiles []string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()

	// 1. Set defaults
	setDefaults(v)

	// 2. Read config files
	if len(configFiles) > 0 {
		v.SetConfigFile(configFiles[0])
		if err := v.ReadInConfig(); err != nil {
			slog.Warn("error reading config file", "file", configFiles[0], "err", err)
		}

		for _, cf := range configFiles[1:] {
			v.SetConfigFile(cf)
			if err := v.MergeInConfig(); err != nil {
				slog.Warn("error merging config file", "file", cf, "err", err)
			}
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")

		if err := v.ReadInConfig(); err != nil {
			var configNotFound viper.ConfigFileNotFoundError
			if !errors.As(err, &configNotFound) {
				slog.Warn("error reading config file", "err", err)
			}
		}
	}

	// 3. Bind environment variables
	v.SetEnvPrefix("SNAPSI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 4. Bind flags (if provided)
	if flags != nil {
		bindFlags(v, flags)
	}

	// 5. Unmarshal into Config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// 6. Validate using go-playground/validator
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}
