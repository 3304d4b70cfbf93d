// Package config loads carecore settings from defaults, an optional YAML
// file and CARECORE_* environment variables, in that order of precedence.
package config

import (
	"carecore/internal/auth"
	"carecore/internal/blob"
	"carecore/internal/docstore"
	"carecore/internal/logging"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration.
type Config struct {
	Log      LogConfig       `yaml:"log"`
	Docstore docstore.Config `yaml:"docstore"`
	Blob     blob.Config     `yaml:"blob"`
	Assets   AssetsConfig    `yaml:"assets"`
	Metrics  MetricsConfig   `yaml:"metrics"`
	Auth     auth.Config     `yaml:"auth"`
}

// LogConfig selects the logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AssetsConfig controls uploads and asset deletion.
type AssetsConfig struct {
	PublicBaseURL string        `yaml:"public_base_url"`
	URLExpiry     time.Duration `yaml:"url_expiry"`
	Concurrency   int           `yaml:"concurrency"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:      LogConfig{Level: "info", Format: "json"},
		Docstore: docstore.Config{Driver: docstore.DriverSQLite, SQLitePath: "carecore.db"},
		Blob:     blob.Config{Driver: blob.DriverFilesystem, FSRoot: "./blobdata"},
		Assets:   AssetsConfig{PublicBaseURL: "http://localhost:8080/assets", URLExpiry: 15 * time.Minute, Concurrency: 8},
	}
}

// Load reads path (skipped when empty) over the defaults and applies the
// environment, then validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// ApplyEnv overrides fields from CARECORE_* variables resolved by lookup.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	var driver string
	str("CARECORE_DOCSTORE_DRIVER", &driver)
	if driver != "" {
		c.Docstore.Driver = docstore.Driver(driver)
	}
	str("CARECORE_SQLITE_PATH", &c.Docstore.SQLitePath)
	str("CARECORE_POSTGRES_DSN", &c.Docstore.PostgresDSN)
	str("CARECORE_REDIS_ADDR", &c.Docstore.RedisAddr)
	str("CARECORE_REDIS_PREFIX", &c.Docstore.RedisPrefix)
	if v, ok := lookup("CARECORE_REDIS_DB"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CARECORE_REDIS_DB: %w", err)
		}
		c.Docstore.RedisDB = n
	}

	driver = ""
	str("CARECORE_BLOB_DRIVER", &driver)
	if driver != "" {
		c.Blob.Driver = blob.Driver(driver)
	}
	str("CARECORE_BLOB_FS_ROOT", &c.Blob.FSRoot)
	str("CARECORE_BLOB_S3_BUCKET", &c.Blob.S3.Bucket)
	str("CARECORE_BLOB_S3_REGION", &c.Blob.S3.Region)
	str("CARECORE_BLOB_S3_ENDPOINT", &c.Blob.S3.Endpoint)
	if v, ok := lookup("CARECORE_BLOB_S3_PATH_STYLE"); ok && v != "" {
		c.Blob.S3.PathStyle = strings.EqualFold(v, "true")
	}

	str("CARECORE_LOG_LEVEL", &c.Log.Level)
	str("CARECORE_LOG_FORMAT", &c.Log.Format)
	str("CARECORE_PUBLIC_BASE_URL", &c.Assets.PublicBaseURL)
	str("CARECORE_METRICS_ADDR", &c.Metrics.Addr)
	if v, ok := lookup("CARECORE_ASSET_CONCURRENCY"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("CARECORE_ASSET_CONCURRENCY: %w", err)
		}
		c.Assets.Concurrency = n
	}
	c.normalize()
	return nil
}

// normalize lowercases driver names the way the driver factories read them.
func (c *Config) normalize() {
	c.Docstore.Driver = docstore.Driver(strings.ToLower(strings.TrimSpace(string(c.Docstore.Driver))))
	c.Blob.Driver = blob.Driver(strings.ToLower(strings.TrimSpace(string(c.Blob.Driver))))
}

// Validate checks driver names and numeric bounds.
func (c Config) Validate() error {
	var errs []error
	switch c.Docstore.Driver {
	case docstore.DriverMemory, docstore.DriverSQLite, docstore.DriverPostgres, docstore.DriverRedis:
	default:
		errs = append(errs, fmt.Errorf("docstore.driver: unknown driver %q", c.Docstore.Driver))
	}
	switch c.Blob.Driver {
	case blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Blob.S3.Bucket == "" {
			errs = append(errs, errors.New("blob.s3.bucket: required for s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("blob.driver: unknown driver %q", c.Blob.Driver))
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.level: %w", err))
	}
	if c.Docstore.RedisDB < 0 {
		errs = append(errs, fmt.Errorf("docstore.redis_db: must not be negative, got %d", c.Docstore.RedisDB))
	}
	for i, u := range c.Auth.Users {
		if u.Email == "" || u.PasswordHash == "" || u.UserID == "" {
			errs = append(errs, fmt.Errorf("auth.users[%d]: email, password_hash and user_id are required", i))
		}
	}
	if c.Assets.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("assets.concurrency: must be positive, got %d", c.Assets.Concurrency))
	}
	return errors.Join(errs...)
}
