package internal

import (
	"fmt"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/ladle/internal/extract"
	"github.com/starford/ladle/internal/llm"
)

// Auth modes.
const (
	AuthModeDisabled = "disabled"
	AuthModeToken    = "token"
)

// Config represents the application configuration.
type Config struct {
	App     ApplicationConfig `yaml:"app"`
	SQLite  SQLiteConfig      `yaml:"sqlite"`
	Auth    AuthConfig        `yaml:"auth"`
	LLM     LLMConfig         `yaml:"llm"`
	Prompts PromptsConfig     `yaml:"prompts"`
	Import  ImportConfig      `yaml:"import"`
	Media   MediaConfig       `yaml:"media"`
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validators := []interface{ Validate() error }{
		&c.App, &c.SQLite, &c.Auth, &c.LLM, &c.Prompts, &c.Import, &c.Media,
	}
	for _, v := range validators {
		if err := v.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// ApplicationConfig holds application-level configuration.
type ApplicationConfig struct {
	LogLevel slog.Level `yaml:"log_level"`
	HTTP     HTTPConfig `yaml:"http"`
}

// Validate validates the application configuration.
func (c *ApplicationConfig) Validate() error {
	return c.HTTP.Validate()
}

// HTTPConfig holds HTTP server configuration.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// Address returns HTTP server address.
func (c *HTTPConfig) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Validate validates the HTTP configuration.
func (c *HTTPConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Port, validation.Required, validation.Min(1), validation.Max(65535)),
	)
}

// SQLiteConfig holds SQLite database configuration.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the SQLite configuration.
func (c *SQLiteConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// AuthConfig holds authentication configuration.
//
// Mode controls how authentication is enforced:
//   - "disabled" (default): no authentication required, recipes are ownerless.
//   - "token": Bearer token authentication; Token must be non-empty and
//     recipes are scoped to Owner.
type AuthConfig struct {
	Mode  string `yaml:"mode"`
	Token string `yaml:"token"`
	Owner string `yaml:"owner"`
}

// Validate validates the auth configuration.
func (c *AuthConfig) Validate() error {
	if c.Mode == "" {
		c.Mode = AuthModeDisabled
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Mode, validation.Required, validation.In(AuthModeDisabled, AuthModeToken)),
	); err != nil {
		return err
	}
	if c.Mode == AuthModeToken && c.Token == "" {
		return fmt.Errorf("auth: mode is %q but token is empty", AuthModeToken)
	}
	return nil
}

// AuthEnabled returns true when authentication is active.
func (c *AuthConfig) AuthEnabled() bool {
	return c.Mode == AuthModeToken
}

// RecipeOwner returns the owner scope requests work under.
func (c *AuthConfig) RecipeOwner() string {
	if !c.AuthEnabled() {
		return ""
	}
	return c.Owner
}

// LLMConfig selects the language model backend. An empty provider or API
// key is valid and leaves the AI features unavailable.
type LLMConfig struct {
	Provider       string `yaml:"provider"`
	APIKey         string `yaml:"api_key"`
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// Validate validates the LLM configuration.
func (c *LLMConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Provider, validation.In(llm.ProviderOpenAI, llm.ProviderGemini)),
		validation.Field(&c.TimeoutSeconds, validation.Min(0)),
	)
}

// Options converts the section into llm.Options.
func (c *LLMConfig) Options() llm.Options {
	return llm.Options{
		Provider: c.Provider,
		APIKey:   c.APIKey,
		BaseURL:  c.BaseURL,
		Model:    c.Model,
		Timeout:  time.Duration(c.TimeoutSeconds) * time.Second,
	}
}

// PromptsConfig points at the directory of language addendum files.
type PromptsConfig struct {
	Dir   string `yaml:"dir"`
	Watch bool   `yaml:"watch"`
}

// Validate validates the prompts configuration.
func (c *PromptsConfig) Validate() error {
	if c.Watch && c.Dir == "" {
		return fmt.Errorf("prompts: watch is enabled but dir is empty")
	}
	return nil
}

// ImportConfig tunes recipe extraction.
type ImportConfig struct {
	MaxContentChars int `yaml:"max_content_chars"`
}

// Validate validates the import configuration.
func (c *ImportConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.MaxContentChars, validation.Min(0), validation.Max(1_000_000)),
	)
}

// MediaConfig holds the directory for cooking session photos.
type MediaConfig struct {
	Dir string `yaml:"dir"`
}

// Validate validates the media configuration.
func (c *MediaConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Dir, validation.Required),
	)
}

// NewDefaultConfig returns a new Config with sensible default values.
func NewDefaultConfig() *Config {
	return &Config{
		App: ApplicationConfig{
			LogLevel: slog.LevelInfo,
			HTTP: HTTPConfig{
				Port: 8080,
			},
		},
		SQLite: SQLiteConfig{
			Path: "./ladle.db",
		},
		Auth: AuthConfig{
			Mode: AuthModeDisabled,
		},
		LLM: LLMConfig{
			TimeoutSeconds: 120,
		},
		Prompts: PromptsConfig{
			Dir:   "./prompts",
			Watch: true,
		},
		Import: ImportConfig{
			MaxContentChars: extract.DefaultMaxContentChars,
		},
		Media: MediaConfig{
			Dir: "./media",
		},
	}
}
