// Package config provides configuration loading and validation for the
// scoutd agent. It uses koanf to merge environment variables with
// optional file overrides; environment variables take precedence.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config holds all configuration values for the agent.
type Config struct {
	// Local HTTP surface (health, metrics, events websocket).
	Port int    `koanf:"port"`
	Env  string `koanf:"env"`

	// Remote production API.
	RemoteBaseURL string `koanf:"remote_base_url"`

	// Device-local fallback store.
	LocalDBPath string `koanf:"local_db_path"`

	// Photo uploads.
	UploadMaxMB int `koanf:"upload_max_mb"`

	// Distributed tracing.
	TracingEnabled  bool    `koanf:"tracing_enabled"`
	TracingExporter string  `koanf:"tracing_exporter"`
	TracingEndpoint string  `koanf:"tracing_endpoint"`
	TracingSampling float64 `koanf:"tracing_sampling"`
	TracingInsecure bool    `koanf:"tracing_insecure"`
}

// Configuration validation errors.
var (
	ErrMissingRemoteBaseURL = errors.New("SCOUTPOST_REMOTE_BASE_URL is required")
	ErrInvalidRemoteBaseURL = errors.New("SCOUTPOST_REMOTE_BASE_URL must be a valid http(s) URL")
	ErrMissingLocalDBPath   = errors.New("SCOUTPOST_LOCAL_DB_PATH is required")
	ErrInvalidPort          = errors.New("SCOUTPOST_PORT must be a valid integer")
	ErrInvalidUploadMax     = errors.New("SCOUTPOST_UPLOAD_MAX_MB must be positive")
	ErrInvalidSampling      = errors.New("SCOUTPOST_TRACING_SAMPLING must be between 0 and 1")
)

// Default values for non-secret configuration.
const (
	DefaultPort            = 7610
	DefaultEnv             = "development"
	DefaultLocalDBPath     = "scoutpost.db"
	DefaultUploadMaxMB     = 10
	DefaultTracingExporter = "otlp-http"
	DefaultTracingSampling = 1.0
)

// Load reads configuration from environment variables and an optional
// YAML config file. Returns the loaded config and a slice of validation
// errors (empty if valid). A config file path that cannot be loaded is
// itself an error.
func Load(configFilePath string) (*Config, []error) {
	k := koanf.New(".")
	var loadErrs []error

	// File values load first (lower precedence).
	if configFilePath != "" {
		if err := k.Load(file.Provider(configFilePath), yaml.Parser()); err != nil {
			return nil, []error{fmt.Errorf("failed to load config file %s: %w", configFilePath, err)}
		}
	}

	port, portErr := getEnvIntOrDefault("SCOUTPOST_PORT", k.Int("port"), DefaultPort)
	if portErr != nil {
		loadErrs = append(loadErrs, fmt.Errorf("%w: %v", ErrInvalidPort, portErr))
	}

	uploadMax, uploadErr := getEnvIntOrDefault("SCOUTPOST_UPLOAD_MAX_MB", k.Int("upload_max_mb"), DefaultUploadMaxMB)
	if uploadErr != nil {
		loadErrs = append(loadErrs, fmt.Errorf("%w: %v", ErrInvalidUploadMax, uploadErr))
	}

	sampling, samplingErr := getEnvFloatOrDefault("SCOUTPOST_TRACING_SAMPLING", k.Float64("tracing_sampling"), DefaultTracingSampling)
	if samplingErr != nil {
		loadErrs = append(loadErrs, fmt.Errorf("%w: %v", ErrInvalidSampling, samplingErr))
	}

	cfg := &Config{
		Port:            port,
		Env:             getEnvOrDefault("SCOUTPOST_ENV", k.String("env"), DefaultEnv),
		RemoteBaseURL:   getEnvOrKoanf("SCOUTPOST_REMOTE_BASE_URL", k, "remote_base_url"),
		LocalDBPath:     getEnvOrDefault("SCOUTPOST_LOCAL_DB_PATH", k.String("local_db_path"), DefaultLocalDBPath),
		UploadMaxMB:     uploadMax,
		TracingEnabled:  getEnvBoolOrDefault("SCOUTPOST_TRACING_ENABLED", k, "tracing_enabled", false),
		TracingExporter: getEnvOrDefault("SCOUTPOST_TRACING_EXPORTER", k.String("tracing_exporter"), DefaultTracingExporter),
		TracingEndpoint: getEnvOrKoanf("SCOUTPOST_TRACING_ENDPOINT", k, "tracing_endpoint"),
		TracingSampling: sampling,
		TracingInsecure: getEnvBoolOrDefault("SCOUTPOST_TRACING_INSECURE", k, "tracing_insecure", false),
	}

	errs := cfg.Validate()
	errs = append(loadErrs, errs...)

	return cfg, errs
}

// Validate checks required and well-formed configuration, collecting
// every failure rather than stopping at the first.
func (c *Config) Validate() []error {
	var errs []error

	if c.RemoteBaseURL == "" {
		errs = append(errs, ErrMissingRemoteBaseURL)
	} else if u, err := url.Parse(c.RemoteBaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, ErrInvalidRemoteBaseURL)
	}

	if c.LocalDBPath == "" {
		errs = append(errs, ErrMissingLocalDBPath)
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, ErrInvalidPort)
	}
	if c.UploadMaxMB <= 0 {
		errs = append(errs, ErrInvalidUploadMax)
	}
	if c.TracingSampling < 0 || c.TracingSampling > 1 {
		errs = append(errs, ErrInvalidSampling)
	}

	return errs
}

// IsProduction reports whether the agent runs with production settings.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// getEnvOrKoanf returns the environment variable value if set, otherwise
// the koanf value.
func getEnvOrKoanf(envKey string, k *koanf.Koanf, koanfKey string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	return k.String(koanfKey)
}

// getEnvOrDefault returns the environment variable value if set,
// otherwise the koanf value, or the default.
func getEnvOrDefault(envKey, koanfVal, defaultVal string) string {
	if val := os.Getenv(envKey); val != "" {
		return val
	}
	if koanfVal != "" {
		return koanfVal
	}
	return defaultVal
}

func getEnvIntOrDefault(envKey string, koanfVal, defaultVal int) (int, error) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			return defaultVal, err
		}
		return parsed, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

func getEnvFloatOrDefault(envKey string, koanfVal, defaultVal float64) (float64, error) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return defaultVal, err
		}
		return parsed, nil
	}
	if koanfVal != 0 {
		return koanfVal, nil
	}
	return defaultVal, nil
}

func getEnvBoolOrDefault(envKey string, k *koanf.Koanf, koanfKey string, defaultVal bool) bool {
	if val := os.Getenv(envKey); val != "" {
		switch val {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
		return defaultVal
	}
	if k.Exists(koanfKey) {
		return k.Bool(koanfKey)
	}
	return defaultVal
}
