package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const (
	StorageLocal = "local"
	StorageMinIO = "minio"

	// DefaultMaxUploadBytes caps the whole request body at 16 MiB.
	DefaultMaxUploadBytes = 16 * 1024 * 1024
)

// DatabaseConfig holds PostgreSQL settings for the optional upload ledger.
type DatabaseConfig struct {
	Host               string `mapstructure:"db_host"`
	Port               string `mapstructure:"db_port"`
	User               string `mapstructure:"db_user" validate:"required_with=Host"`
	Password           string `mapstructure:"db_password"`
	Name               string `mapstructure:"db_name" validate:"required_with=Host"`
	SSLMode            string `mapstructure:"db_sslmode" validate:"omitempty,oneof=disable allow prefer require verify-ca verify-full"`
	MaxOpenConns       int    `mapstructure:"db_max_open_conns" validate:"gte=0"`
	MaxIdleConns       int    `mapstructure:"db_max_idle_conns" validate:"gte=0"`
	ConnMaxLifetimeSec int    `mapstructure:"db_conn_max_lifetime_sec" validate:"gte=0"`
}

// Enabled reports whether the ledger database is configured.
func (c DatabaseConfig) Enabled() bool {
	return c.Host != ""
}

// MinIOConfig holds object storage settings for MinIO.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"minio_endpoint"`
	AccessKey string `mapstructure:"minio_access_key"`
	SecretKey string `mapstructure:"minio_secret_key"`
	Bucket    string `mapstructure:"minio_bucket"`
	UseSSL    bool   `mapstructure:"minio_use_ssl"`
}

// StorageConfig selects where uploaded files are written.
type StorageConfig struct {
	Backend   string      `mapstructure:"storage_backend" validate:"required,oneof=local minio"`
	UploadDir string      `mapstructure:"upload_dir" validate:"required"`
	MinIO     MinIOConfig `mapstructure:",squash"`
}

// LogConfig controls the logrus logger.
type LogConfig struct {
	Level  string `mapstructure:"log_level"`
	Format string `mapstructure:"log_format" validate:"omitempty,oneof=json text"`
}

// TracingConfig mirrors the standard OTEL_* variables the exporter setup reads.
// Endpoint and header variables are picked up by the OTLP exporters themselves.
type TracingConfig struct {
	Disabled    bool   `mapstructure:"otel_sdk_disabled"`
	ServiceName string `mapstructure:"otel_service_name" validate:"required"`
	Protocol    string `mapstructure:"otel_exporter_otlp_protocol" validate:"omitempty,oneof=grpc http/protobuf"`
	Sampler     string `mapstructure:"otel_traces_sampler"`
	SamplerArg  string `mapstructure:"otel_traces_sampler_arg"`
}

// SwaggerConfig fixes the host and schemes advertised by the API docs.
type SwaggerConfig struct {
	Host   string `mapstructure:"swagger_host"`
	Scheme string `mapstructure:"swagger_scheme" validate:"omitempty,oneof=http https"`
}

// Schemes returns the advertised scheme list; nil leaves it to the browser.
func (c SwaggerConfig) Schemes() []string {
	if c.Scheme == "" {
		return nil
	}
	return []string{c.Scheme}
}

// AppConfig is the centralized configuration struct for the application.
// It is built once at startup and never mutated afterwards.
type AppConfig struct {
	Host           string `mapstructure:"host"`
	Port           string `mapstructure:"port" validate:"required,numeric"`
	AppRoot        string `mapstructure:"app_root" validate:"required"`
	MaxUploadBytes int    `mapstructure:"max_upload_bytes" validate:"gt=0"`
	SessionSecret  string `mapstructure:"session_secret"`
	Timezone       string `mapstructure:"app_timezone"`
	MetricsEnabled bool   `mapstructure:"metrics_enabled"`

	Log      LogConfig      `mapstructure:",squash"`
	Storage  StorageConfig  `mapstructure:",squash"`
	Database DatabaseConfig `mapstructure:",squash"`
	Tracing  TracingConfig  `mapstructure:",squash"`
	Swagger  SwaggerConfig  `mapstructure:",squash"`
}

// Addr returns the listen address.
func (c *AppConfig) Addr() string {
	return c.Host + ":" + c.Port
}

// Location resolves Timezone, falling back to UTC.
func (c *AppConfig) Location() *time.Location {
	if c.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Load reads configuration from environment variables.
// A .env file can be auto-loaded by importing: _ "github.com/joho/godotenv/autoload"
func Load() (*AppConfig, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("resolve working directory: %w", err)
	}

	defaults := map[string]any{
		"host":             "0.0.0.0",
		"port":             "5000",
		"app_root":         wd,
		"upload_dir":       "",
		"max_upload_bytes": DefaultMaxUploadBytes,
		"session_secret":   "trackify_secret_key",
		"app_timezone":     "UTC",
		"metrics_enabled":  true,
		"log_level":        "info",
		"log_format":       "json",
		"storage_backend":  StorageLocal,
		"minio_endpoint":   "",
		"minio_access_key": "",
		"minio_secret_key": "",
		"minio_bucket":     "",
		"minio_use_ssl":    false,
		"db_host":          "",
		"db_port":          "5432",
		"db_user":          "",
		"db_password":      "",
		"db_name":          "",
		"db_sslmode":       "disable",

		"db_max_open_conns":        10,
		"db_max_idle_conns":        5,
		"db_conn_max_lifetime_sec": 300,

		"otel_sdk_disabled":           false,
		"otel_service_name":           "trackify",
		"otel_exporter_otlp_protocol": "grpc",
		"otel_traces_sampler":         "parentbased_traceidratio",
		"otel_traces_sampler_arg":     "1.0",

		"swagger_host":   "",
		"swagger_scheme": "",
	}
	// AutomaticEnv only resolves keys viper already knows about, so every
	// key gets a default even when it is empty.
	for k, def := range defaults {
		v.SetDefault(k, def)
	}

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	root, err := filepath.Abs(cfg.AppRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve app root: %w", err)
	}
	cfg.AppRoot = root
	if cfg.Storage.UploadDir == "" {
		cfg.Storage.UploadDir = filepath.Join(root, "static", "uploads")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks struct constraints plus the cross-field MinIO requirement.
func (c *AppConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Storage.Backend == StorageMinIO {
		m := c.Storage.MinIO
		if m.Endpoint == "" || m.AccessKey == "" || m.SecretKey == "" || m.Bucket == "" {
			return fmt.Errorf("invalid config: minio backend requires MINIO_ENDPOINT, MINIO_ACCESS_KEY, MINIO_SECRET_KEY and MINIO_BUCKET")
		}
	}
	return nil
}
