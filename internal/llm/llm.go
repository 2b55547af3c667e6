// Package llm abstracts the text-completion capability behind a single
// interface and provides OpenAI and Gemini backed implementations.
//
// Completions are single-shot: no streaming and no automatic retries. A
// retried call could return different text than a confirmation the user has
// already heard, so failures surface immediately.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"
)

// Role constants.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Provider names.
const (
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Message is one prior conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completer is the black-box language model.
type Completer interface {
	Complete(ctx context.Context, system string, messages []Message, maxTokens int) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, system string, messages []Message, maxTokens int) (string, error)

// Complete implements Completer.
func (f CompleterFunc) Complete(ctx context.Context, system string, messages []Message, maxTokens int) (string, error) {
	return f(ctx, system, messages, maxTokens)
}

// Options configures New.
type Options struct {
	Provider string
	APIKey   string
	BaseURL  string
	Model    string
	Timeout  time.Duration
}

// Default models per provider.
const (
	DefaultOpenAIModel = "gpt-4o"
	DefaultGeminiModel = "gemini-2.5-flash"
)

// New builds the configured Completer. It returns a nil Completer and no
// error when no provider or API key is configured; callers treat that as
// "AI features unavailable".
func New(ctx context.Context, opts Options, logger *slog.Logger) (Completer, error) {
	if opts.Provider == "" || opts.APIKey == "" {
		return nil, nil
	}
	var (
		c   Completer
		err error
	)
	switch opts.Provider {
	case ProviderOpenAI:
		if opts.Model == "" {
			opts.Model = DefaultOpenAIModel
		}
		c = NewOpenAI(opts)
	case ProviderGemini:
		if opts.Model == "" {
			opts.Model = DefaultGeminiModel
		}
		c, err = NewGemini(ctx, opts)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", opts.Provider)
	}
	if opts.Timeout > 0 {
		c = WithTimeout(c, opts.Timeout)
	}
	if logger != nil {
		c = WithLogging(c, logger, opts.Provider, opts.Model)
	}
	return c, nil
}

// WithTimeout bounds every completion by d.
func WithTimeout(c Completer, d time.Duration) Completer {
	return CompleterFunc(func(ctx context.Context, system string, messages []Message, maxTokens int) (string, error) {
		ctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		return c.Complete(ctx, system, messages, maxTokens)
	})
}

// WithLogging logs each completion at debug level and failures at warn.
func WithLogging(c Completer, logger *slog.Logger, provider, model string) Completer {
	return CompleterFunc(func(ctx context.Context, system string, messages []Message, maxTokens int) (string, error) {
		start := time.Now()
		out, err := c.Complete(ctx, system, messages, maxTokens)
		attrs := []any{
			slog.String("provider", provider),
			slog.String("model", model),
			slog.Int("messages", len(messages)),
			slog.Int("max_tokens", maxTokens),
			slog.Duration("elapsed", time.Since(start)),
		}
		if err != nil {
			logger.Warn("llm: completion failed", append(attrs, slog.String("error", err.Error()))...)
			return "", err
		}
		logger.Debug("llm: completion", append(attrs, slog.Int("reply_chars", len(out)))...)
		return out, nil
	})
}

var (
	openFenceRe  = regexp.MustCompile("^```[A-Za-z]*\\s*")
	closeFenceRe = regexp.MustCompile("\\s*```\\s*$")
)

// StripFences removes a surrounding ```json ... ``` wrapper from model
// output.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	s = openFenceRe.ReplaceAllString(s, "")
	s = closeFenceRe.ReplaceAllString(s, "")
	return strings.TrimSpace(s)
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
