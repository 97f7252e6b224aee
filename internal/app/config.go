package app

import (
	"errors"
	"fmt"
	"log/slog"
	"os/user"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/threatflow/picusauth/internal/tokenstore"
)

// LogFormat represents the logging output format.
type LogFormat string

const (
	LogFormatText LogFormat = "text"
	LogFormatJSON LogFormat = "json"
)

// LogExport selects an optional telemetry export path for log records.
type LogExport string

const (
	LogExportNone     LogExport = "none"
	LogExportStdout   LogExport = "stdout"
	LogExportOTLPHTTP LogExport = "otlp_http"
	LogExportOTLPGRPC LogExport = "otlp_grpc"
)

// StorageType represents the different storage backends for the token record.
type StorageType string

const (
	StorageTypeFile    StorageType = "file"
	StorageTypeEnv     StorageType = "env"
	StorageTypeKeyring StorageType = "keyring"
)

// Default configuration values
const (
	DefaultConfigLogFormat      = LogFormatText
	DefaultConfigLogExport      = LogExportNone
	DefaultConfigBaseURL        = "https://api.picussecurity.com"
	DefaultConfigTimeout        = 30 * time.Second
	DefaultConfigStorageType    = StorageTypeFile
	DefaultConfigTokenFile      = "picus-tokens.json"
	DefaultConfigKeyringService = "picusauth-tokens"
)

// APIConfig holds Picus API endpoint configuration.
type APIConfig struct {
	BaseURL string `json:"base_url" validate:"required,url"`
	// Timeout bounds each request; no retries are performed.
	Timeout time.Duration `json:"timeout"`
}

// StorageConfig describes where the token record is persisted.
type StorageConfig struct {
	Type StorageType `json:"type" validate:"required,oneof=file env keyring"`

	// Backend-specific settings (mutually exclusive based on Type)
	File        string `json:"file,omitempty"`         // For file storage: path to token record file
	EnvKey      string `json:"env_key,omitempty"`      // For env storage: environment variable name
	KeyringUser string `json:"keyring_user,omitempty"` // For keyring storage: user identifier
}

// NewRecordStore creates a RecordStore from the storage configuration.
func (s *StorageConfig) NewRecordStore() (tokenstore.RecordStore, error) {
	switch s.Type {
	case StorageTypeFile:
		return tokenstore.NewFileStore(s.File)
	case StorageTypeEnv:
		return tokenstore.NewEnvStore(s.EnvKey)
	case StorageTypeKeyring:
		return tokenstore.NewKeyringStore(DefaultConfigKeyringService, s.KeyringUser)
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", s.Type)
	}
}

// Config holds the application's configuration.
type Config struct {
	// LogLevel for logging output (defaults to Info if unset).
	LogLevel  slog.Level    `json:"log_level"`
	LogFormat LogFormat     `json:"log_format" validate:"oneof=text json"`
	LogExport LogExport     `json:"log_export" validate:"oneof=none stdout otlp_http otlp_grpc"`
	API       APIConfig     `json:"api"`
	Storage   StorageConfig `json:"storage"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset config fields with sensible defaults.
func (c *Config) ApplyDefaults() error {
	if c.LogFormat == "" {
		c.LogFormat = DefaultConfigLogFormat
	}
	if c.LogExport == "" {
		c.LogExport = DefaultConfigLogExport
	}
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultConfigBaseURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultConfigTimeout
	}
	if c.Storage.Type == "" {
		c.Storage.Type = DefaultConfigStorageType
	}

	// Dynamic defaults based on storage type
	switch c.Storage.Type {
	case StorageTypeFile:
		if c.Storage.File == "" {
			c.Storage.File = DefaultConfigTokenFile
		}
	case StorageTypeKeyring:
		if c.Storage.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("storage.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Storage.KeyringUser = currentUser.Username
		}
	case StorageTypeEnv:
		// env_key must be explicitly configured (no sensible default)
	}

	return nil
}

// Validate validates the configuration using struct tags and enum values.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}

	switch c.Storage.Type {
	case StorageTypeFile:
		if c.Storage.File == "" {
			return errors.New("file path required for file storage")
		}
	case StorageTypeEnv:
		if c.Storage.EnvKey == "" {
			return errors.New("env_key required for env storage")
		}
	case StorageTypeKeyring:
		if c.Storage.KeyringUser == "" {
			return errors.New("keyring_user required for keyring storage")
		}
	}

	return nil
}
