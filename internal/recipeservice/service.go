// Package recipeservice coordinates the recipe store, the language-model
// adapters and the event broker behind the HTTP and MCP surfaces.
package recipeservice

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/ladle/internal/extract"
	"github.com/starford/ladle/internal/guide"
	"github.com/starford/ladle/internal/mutation"
	"github.com/starford/ladle/internal/prompts"
	"github.com/starford/ladle/internal/store"
)

// Publisher receives library change notifications.
type Publisher interface {
	PublishLibraryEvent(kind string, data map[string]any)
}

type nopPublisher struct{}

func (nopPublisher) PublishLibraryEvent(string, map[string]any) {}

// Service coordinates persistence and AI operations.
type Service struct {
	repo     store.Repository
	extract  *extract.Adapter
	mutation *mutation.Engine
	guide    *guide.Guide
	addenda  *prompts.Registry
	events   Publisher
	logger   *slog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithExtractor sets the import adapter.
func WithExtractor(a *extract.Adapter) Option {
	return func(s *Service) { s.extract = a }
}

// WithMutation sets the voice-command engine.
func WithMutation(e *mutation.Engine) Option {
	return func(s *Service) { s.mutation = e }
}

// WithGuide sets the cooking guide.
func WithGuide(g *guide.Guide) Option {
	return func(s *Service) { s.guide = g }
}

// WithAddenda sets the language addendum registry.
func WithAddenda(r *prompts.Registry) Option {
	return func(s *Service) { s.addenda = r }
}

// WithPublisher sets the event sink.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.events = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a recipe service. AI components left unset behave as
// unconfigured: their operations fail with a configuration error.
func NewService(repo store.Repository, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		events: nopPublisher{},
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.extract == nil {
		s.extract = extract.New(nil, nil, s.addenda, s.logger)
	}
	if s.mutation == nil {
		s.mutation = mutation.New(nil, s.logger)
	}
	if s.guide == nil {
		s.guide = guide.New(nil, s.logger)
	}
	return s
}

// Capabilities reports which AI features are configured.
type Capabilities struct {
	Import       bool `json:"import"`
	VoiceCommand bool `json:"voice_command"`
	Guide        bool `json:"guide"`
}

// Capabilities returns the configured AI features.
func (s *Service) Capabilities() Capabilities {
	return Capabilities{
		Import:       s.extract.Available(),
		VoiceCommand: s.mutation.Available(),
		Guide:        s.guide.Available(),
	}
}

// Ready checks the backing store.
func (s *Service) Ready(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
