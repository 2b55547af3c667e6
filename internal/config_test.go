package internal

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pkgconfig "github.com/starford/ladle/pkg/config"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	err := cfg.Validate()
	if err == nil {
		t.Fatal("full config validate should catch auth error")
	}
}

func TestDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if cfg.Auth.RecipeOwner() != "" {
		t.Error("disabled auth should be ownerless")
	}
}

func TestAuthConfig_RecipeOwner(t *testing.T) {
	cfg := AuthConfig{Mode: AuthModeToken, Token: "t", Owner: "alice"}
	if got := cfg.RecipeOwner(); got != "alice" {
		t.Errorf("owner = %q", got)
	}
	cfg.Mode = AuthModeDisabled
	if got := cfg.RecipeOwner(); got != "" {
		t.Errorf("disabled owner = %q", got)
	}
}

func TestLLMConfig(t *testing.T) {
	cfg := LLMConfig{Provider: "anthropic"}
	if err := cfg.Validate(); err == nil {
		t.Error("unknown provider should fail")
	}
	cfg = LLMConfig{}
	if err := cfg.Validate(); err != nil {
		t.Errorf("empty provider means AI off and should pass: %v", err)
	}
	cfg = LLMConfig{Provider: "gemini", APIKey: "k", TimeoutSeconds: 30}
	if opts := cfg.Options(); opts.Timeout != 30*time.Second || opts.Provider != "gemini" {
		t.Errorf("options = %+v", opts)
	}
}

func TestPromptsConfig_WatchNeedsDir(t *testing.T) {
	cfg := PromptsConfig{Watch: true}
	if err := cfg.Validate(); err == nil {
		t.Error("watch without dir should fail")
	}
}

func TestLoadConfigFile(t *testing.T) {
	t.Setenv("LADLE_TEST_KEY", "sk-test")
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `app:
  log_level: debug
  http:
    port: 9090
sqlite:
  path: /tmp/ladle.db
auth:
  mode: token
  token: secret
  owner: alice
llm:
  provider: openai
  api_key: ${LADLE_TEST_KEY}
media:
  dir: /tmp/media
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := NewDefaultConfig()
	if err := pkgconfig.Load(path, cfg); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.App.HTTP.Port != 9090 || cfg.LLM.APIKey != "sk-test" || cfg.Auth.RecipeOwner() != "alice" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Prompts.Dir != "./prompts" {
		t.Errorf("unset section lost its default: %+v", cfg.Prompts)
	}
}
