package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Default values for Config.
const (
	DefaultHost           = "0.0.0.0"
	DefaultPort           = 3000
	DefaultUpstreamURL    = "http://localhost:5000"
	DefaultUpstreamPrefix = "/spacy"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "console"
	DefaultConfigFile     = "wordcloud.yaml"
)

// Environment variables consulted by ApplyEnv.
const (
	EnvPort        = "PORT"
	EnvHost        = "WORDCLOUD_HOST"
	EnvUpstreamURL = "WORDCLOUD_UPSTREAM_URL"
	EnvLogLevel    = "WORDCLOUD_LOG_LEVEL"
)

// DefaultServerConfig returns a ServerConfig with sensible default values.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host: DefaultHost,
		Port: DefaultPort,
	}
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		Server: DefaultServerConfig(),
		Upstream: UpstreamConfig{
			URL:    DefaultUpstreamURL,
			Prefix: DefaultUpstreamPrefix,
		},
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

// LoadConfig reads and parses the YAML config file at path.
// If the file doesn't exist, returns default config.
// Applies defaults for any missing fields.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := ValidateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their YAML key so errors match the config file.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ValidateConfig checks that all config values are valid.
func ValidateConfig(cfg *Config) error {
	err := validate.Struct(cfg)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("failed to validate config: %w", err)
	}

	fe := fieldErrs[0]
	field := fe.Namespace()
	if idx := strings.Index(field, "."); idx >= 0 {
		field = field[idx+1:]
	}
	return ValidationError{Field: field, Message: describeTag(fe)}
}

func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "required field is empty"
	case "gte", "lte":
		return "must be between 0 and 65535"
	case "url":
		return "must be an absolute URL"
	case "startswith":
		return fmt.Sprintf("must start with %q", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "hostname|ip":
		return "must be a hostname or IP address"
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

// ApplyEnv overrides config values from the environment. lookup is usually
// os.LookupEnv or a LayeredLookup over an env file.
func ApplyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	if v, ok := lookup(EnvPort); ok && v != "" {
		port, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return ValidationError{Field: EnvPort, Message: "must be an integer"}
		}
		cfg.Server.Port = port
	}
	if v, ok := lookup(EnvHost); ok && v != "" {
		cfg.Server.Host = v
	}
	if v, ok := lookup(EnvUpstreamURL); ok && v != "" {
		cfg.Upstream.URL = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		cfg.Log.Level = strings.ToLower(v)
	}
	return ValidateConfig(cfg)
}

// Addr returns the host:port listen address.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoadEnvFile parses a .env file into a map of key-value pairs.
// The file format is KEY=VALUE per line. Lines starting with # are comments.
// Empty lines are ignored. A missing file yields an empty map.
func LoadEnvFile(path string) (map[string]string, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]string), nil
		}
		return nil, fmt.Errorf("failed to open env file: %w", err)
	}
	defer file.Close()

	env := make(map[string]string)
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		idx := strings.Index(line, "=")
		if idx == -1 {
			return nil, fmt.Errorf("invalid env file line %d: missing '='", lineNum)
		}

		key := strings.TrimSpace(line[:idx])
		value := strings.TrimSpace(line[idx+1:])

		// Strip surrounding quotes (single or double)
		if len(value) >= 2 {
			if (value[0] == '"' && value[len(value)-1] == '"') ||
				(value[0] == '\'' && value[len(value)-1] == '\'') {
				value = value[1 : len(value)-1]
			}
		}

		if key == "" {
			return nil, fmt.Errorf("invalid env file line %d: empty key", lineNum)
		}

		env[key] = value
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read env file: %w", err)
	}

	return env, nil
}

// LayeredLookup returns a lookup that consults the process environment first
// and falls back to env, so exported variables win over the env file.
func LayeredLookup(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := env[key]
		return v, ok
	}
}

// IsValidationError checks if an error is a ValidationError.
func IsValidationError(err error) bool {
	var ve ValidationError
	return errors.As(err, &ve)
}
