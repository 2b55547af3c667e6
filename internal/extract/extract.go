// Package extract turns unstructured recipe sources into canonical recipe
// documents using the language model, with webpage results deduplicated
// through the import cache.
package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/starford/ladle/internal/apperr"
	"github.com/starford/ladle/internal/importcache"
	"github.com/starford/ladle/internal/llm"
	"github.com/starford/ladle/internal/prompts"
	"github.com/starford/ladle/internal/recipe"
)

// Limits applied to prompts and completions.
const (
	DefaultMaxContentChars = 50000
	MaxLegacySourceChars   = 15000
	webpageMaxTokens       = 4096
	legacyMaxTokens        = 2048

	// DefaultFlightTimeout bounds one shared webpage extraction.
	DefaultFlightTimeout = 3 * time.Minute

	// DefaultName is used when the model supplies neither a name nor a title.
	DefaultName = "Imported Recipe"
)

// WebpageInput is one webpage import request. Content is the page text the
// caller already fetched.
type WebpageInput struct {
	URL      string
	Content  string
	Language string
}

// Result is a normalized extraction result: the canonical document plus the
// short name and title the import flow reports.
type Result struct {
	Name  string `json:"name"`
	Title string `json:"title"`
	*recipe.Document
	Cached bool `json:"cached,omitempty"`
}

// Adapter performs extractions.
type Adapter struct {
	completer       llm.Completer
	cache           importcache.Cache
	addenda         prompts.AddendumSource
	logger          *slog.Logger
	maxContentChars int
	flightTimeout   time.Duration
	now             func() time.Time
	onCached        func(key, url string)

	group singleflight.Group
}

// Option configures an Adapter.
type Option func(*Adapter)

// WithMaxContentChars overrides the webpage content truncation limit.
func WithMaxContentChars(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.maxContentChars = n
		}
	}
}

// WithFlightTimeout overrides the bound on a shared webpage extraction.
func WithFlightTimeout(d time.Duration) Option {
	return func(a *Adapter) {
		if d > 0 {
			a.flightTimeout = d
		}
	}
}

// WithClock overrides the time source used for import stamps.
func WithClock(now func() time.Time) Option {
	return func(a *Adapter) { a.now = now }
}

// WithCachedHook registers fn to run after a fresh result is cached.
func WithCachedHook(fn func(key, url string)) Option {
	return func(a *Adapter) { a.onCached = fn }
}

// New creates an Adapter. completer may be nil, in which case any
// extraction that needs the model fails with a configuration error. cache
// and addenda may be nil.
func New(completer llm.Completer, cache importcache.Cache, addenda prompts.AddendumSource, logger *slog.Logger, opts ...Option) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Adapter{
		completer:       completer,
		cache:           cache,
		addenda:         addenda,
		logger:          logger,
		maxContentChars: DefaultMaxContentChars,
		flightTimeout:   DefaultFlightTimeout,
		now:             time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// Available reports whether a completion capability is configured.
func (a *Adapter) Available() bool { return a.completer != nil }

// FromWebpage extracts a recipe from fetched webpage content. A cached
// result for an equivalent URL is returned without calling the model.
func (a *Adapter) FromWebpage(ctx context.Context, in WebpageInput) (*Result, error) {
	if strings.TrimSpace(in.URL) == "" {
		return nil, apperr.Validation("url is required")
	}
	key, err := importcache.Normalize(in.URL)
	if err != nil {
		return nil, err
	}

	if res, err := a.lookup(ctx, key); err != nil || res != nil {
		return res, err
	}
	if a.completer == nil {
		return nil, apperr.Configuration("recipe import")
	}
	if strings.TrimSpace(in.Content) == "" {
		return nil, apperr.Validation("content is required")
	}

	// The flight outlives any single caller: one client going away must not
	// fail the others waiting on the same key.
	ch := a.group.DoChan(key, func() (any, error) {
		flightCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.flightTimeout)
		defer cancel()
		return a.extractWebpage(flightCtx, key, in)
	})
	select {
	case <-ctx.Done():
		return nil, apperr.Adapter(ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return nil, r.Err
		}
		res := r.Val.(*Result)
		if r.Shared {
			// Each caller gets its own copy of the shared document.
			return cloneResult(res)
		}
		return res, nil
	}
}

func (a *Adapter) lookup(ctx context.Context, key string) (*Result, error) {
	if a.cache == nil {
		return nil, nil
	}
	e, err := a.cache.Lookup(ctx, key)
	if err != nil {
		return nil, apperr.Adapter(fmt.Errorf("import cache lookup: %w", err))
	}
	if e == nil {
		return nil, nil
	}
	res, err := decodeResult(e.Result)
	if err != nil {
		return nil, apperr.Adapter(fmt.Errorf("import cache entry %s: %w", key, err))
	}
	res.Cached = true
	a.logger.Debug("extract: cache hit", slog.String("key", key))
	return res, nil
}

func (a *Adapter) extractWebpage(ctx context.Context, key string, in WebpageInput) (*Result, error) {
	// A concurrent flight may have populated the key since the first lookup.
	if res, err := a.lookup(ctx, key); err != nil || res != nil {
		return res, err
	}
	content := llm.Truncate(in.Content, a.maxContentChars)
	language := strings.TrimSpace(in.Language)
	if language == "" {
		language = "en"
	}
	var addendum string
	if a.addenda != nil {
		addendum = a.addenda.Addendum(language)
	}

	user := prompts.WebpageUser(in.URL, content, language, addendum)
	raw, err := a.complete(ctx, prompts.ExtractionSystem(), user, webpageMaxTokens)
	if err != nil {
		return nil, err
	}

	res, err := parseResult(raw)
	if err != nil {
		return nil, err
	}
	res.Document.Metadata.Source = stampSource(res.Document.Metadata.Source, in.URL, a.now())

	if a.cache == nil {
		return res, nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return nil, apperr.Adapter(fmt.Errorf("encode extraction result: %w", err))
	}
	entry, err := a.cache.Store(ctx, key, in.URL, data)
	if err != nil {
		return nil, apperr.Adapter(fmt.Errorf("import cache store: %w", err))
	}
	stored, err := decodeResult(entry.Result)
	if err != nil {
		return nil, apperr.Adapter(fmt.Errorf("import cache entry %s: %w", key, err))
	}
	a.logger.Info("extract: webpage imported",
		slog.String("key", key),
		slog.String("title", stored.Title))
	if a.onCached != nil {
		a.onCached(key, in.URL)
	}
	return stored, nil
}

// FromText extracts a recipe from pasted text. Results are not cached.
func (a *Adapter) FromText(ctx context.Context, source string) (*Result, error) {
	if strings.TrimSpace(source) == "" {
		return nil, apperr.Validation("source is required")
	}
	if a.completer == nil {
		return nil, apperr.Configuration("recipe import")
	}
	raw, err := a.complete(ctx, "", prompts.LegacyImport(llm.Truncate(source, MaxLegacySourceChars)), legacyMaxTokens)
	if err != nil {
		return nil, err
	}
	return parseResult(raw)
}

func (a *Adapter) complete(ctx context.Context, system, user string, maxTokens int) (string, error) {
	raw, err := a.completer.Complete(ctx, system, []llm.Message{{Role: llm.RoleUser, Content: user}}, maxTokens)
	if err != nil {
		return "", apperr.Adapter(err)
	}
	return raw, nil
}

// parseResult strips code fences, decodes the model's JSON and normalizes
// it into a Result.
func parseResult(raw string) (*Result, error) {
	text := llm.StripFences(raw)
	var probe map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &probe); err != nil {
		return nil, apperr.Wrap(apperr.ErrExtractionParse, err, "failed to parse recipe JSON")
	}
	res, err := decodeResult([]byte(text))
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrExtractionParse, err, "failed to parse recipe JSON")
	}
	return res, nil
}

func decodeResult(data []byte) (*Result, error) {
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, err
	}
	if res.Document == nil {
		res.Document = &recipe.Document{}
	}
	normalize(&res)
	return &res, nil
}

// normalize fills name and title with their fallbacks and stabilizes the
// document's collections.
func normalize(res *Result) {
	d := res.Document
	name := strings.TrimSpace(res.Name)
	if name == "" {
		name = d.Title()
	}
	if name == "" {
		name = DefaultName
	}
	if d.Title() == "" {
		d.Metadata.Title = name
	}
	res.Name = name
	res.Title = d.Metadata.Title
	res.Cached = false
	d.Normalize()
}

func stampSource(src *recipe.Source, url string, now time.Time) *recipe.Source {
	if src == nil {
		src = &recipe.Source{}
	}
	src.Type = "webpage"
	src.URL = url
	src.ImportedAt = now.UTC().Format(time.RFC3339)
	return src
}

func cloneResult(r *Result) (*Result, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, apperr.Adapter(err)
	}
	out, err := decodeResult(data)
	if err != nil {
		return nil, apperr.Adapter(err)
	}
	out.Cached = r.Cached
	return out, nil
}
