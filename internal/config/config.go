// Package config loads redline's configuration from a TOML file with
// environment variable overrides. Precedence, lowest to highest:
// defaults, config file, REDLINE_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
	"golang.org/x/text/language"
)

// EnvPrefix is the prefix for environment variable overrides.
const EnvPrefix = "REDLINE_"

// Checker provider names accepted in configuration.
const (
	ProviderLanguageTool = "languagetool"
	ProviderLLM          = "llm"
)

// ErrInvalidConfig indicates a configuration value that fails
// validation.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config holds all settings for one editor session.
type Config struct {
	Checker CheckerConfig `toml:"checker"`
	Notes   NotesConfig   `toml:"notes"`
	Filters FiltersConfig `toml:"filters"`
	UI      UIConfig      `toml:"ui"`
}

// CheckerConfig selects and configures the grammar checking backend.
type CheckerConfig struct {
	// Provider is "languagetool" or "llm".
	Provider string `toml:"provider"`

	// Endpoint is the check service URL. Only used by the
	// languagetool provider.
	Endpoint string `toml:"endpoint"`

	// Language is a BCP 47 tag such as "en-US".
	Language string `toml:"language"`

	// Username pairs with APIKey for the hosted LanguageTool service.
	Username string `toml:"username"`

	// APIKey authenticates against the configured provider.
	APIKey string `toml:"api_key"`

	// Model names the LLM to use. Only used by the llm provider.
	Model string `toml:"model"`

	// TimeoutSeconds bounds one check request.
	TimeoutSeconds int `toml:"timeout_seconds"`
}

// Timeout returns the request timeout as a duration.
func (c CheckerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// NotesConfig locates the notes directory.
type NotesConfig struct {
	Dir string `toml:"dir"`
}

// FiltersConfig locates the Lua finding filter scripts.
type FiltersConfig struct {
	Dir string `toml:"dir"`
}

// UIConfig holds terminal UI settings.
type UIConfig struct {
	Theme string `toml:"theme"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}

	return &Config{
		Checker: CheckerConfig{
			Provider:       ProviderLanguageTool,
			Endpoint:       "https://api.languagetoolplus.com/v2/check",
			Language:       "en-US",
			TimeoutSeconds: 10,
		},
		Notes: NotesConfig{
			Dir: filepath.Join(home, ".redline", "notes"),
		},
		Filters: FiltersConfig{
			Dir: filepath.Join(home, ".redline", "filters"),
		},
		UI: UIConfig{
			Theme: "dark",
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".redline", "config.toml")
}

// Load reads the config file at path, applies environment overrides,
// and validates the result. A missing file is not an error; defaults
// and environment variables still apply.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Defaults only.
	default:
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv overlays REDLINE_* environment variables onto cfg. Empty
// values are treated as set.
func applyEnv(cfg *Config) {
	set := func(key string, dst *string) {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}

	set("CHECKER_PROVIDER", &cfg.Checker.Provider)
	set("CHECKER_ENDPOINT", &cfg.Checker.Endpoint)
	set("CHECKER_LANGUAGE", &cfg.Checker.Language)
	set("CHECKER_USERNAME", &cfg.Checker.Username)
	set("CHECKER_API_KEY", &cfg.Checker.APIKey)
	set("CHECKER_MODEL", &cfg.Checker.Model)
	set("NOTES_DIR", &cfg.Notes.Dir)
	set("FILTERS_DIR", &cfg.Filters.Dir)
	set("THEME", &cfg.UI.Theme)

	if v, ok := os.LookupEnv(EnvPrefix + "CHECKER_TIMEOUT"); ok {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Checker.TimeoutSeconds = n
		}
	}
}

// Validate checks the configuration for values the rest of the program
// cannot work with.
func (c *Config) Validate() error {
	switch c.Checker.Provider {
	case ProviderLanguageTool, ProviderLLM:
	default:
		return fmt.Errorf("%w: unknown checker provider %q", ErrInvalidConfig, c.Checker.Provider)
	}

	if _, err := language.Parse(c.Checker.Language); err != nil {
		return fmt.Errorf("%w: checker language %q: %v", ErrInvalidConfig, c.Checker.Language, err)
	}

	if c.Checker.TimeoutSeconds <= 0 {
		return fmt.Errorf("%w: checker timeout must be positive, got %d", ErrInvalidConfig, c.Checker.TimeoutSeconds)
	}

	if c.Notes.Dir == "" {
		return fmt.Errorf("%w: notes directory is empty", ErrInvalidConfig)
	}

	return nil
}
