package prompts

import (
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/starford/ladle/internal/apperr"
	"github.com/starford/ladle/internal/parser"
	"github.com/starford/ladle/internal/storage"
)

// AddendumSource supplies language-specific instructions appended to import
// prompts. An empty result means no addendum.
type AddendumSource interface {
	Addendum(language string) string
}

// Korean is the built-in addendum for Korean-language recipes.
const Korean = `ADDITIONAL KOREAN RECIPE INSTRUCTIONS:
- Preserve original Korean ingredient names in the "name" field
- Add English translations in "notes" field for common ingredients
- Normalize Korean measurements:
  * 큰술 (Tbs) → tablespoons
  * 작은술 (tsp) → teaspoons
  * 컵 → cups (note: 1 Korean cup ≈ 200ml)
  * 종이컵 → note as "paper cup (~200ml)"
- For vague measurements (약간, 적당량, 한 줌), preserve Korean term and add translation
- Extract cooking methods: 데치다 (blanch), 볶다 (stir-fry), 무치다 (season/mix), 졸이다 (reduce)
- Look for tips sections: 팁, 꿀팁, 주의사항
- Set metadata.language to "ko"
- Add metadata.translated_title with English translation when applicable`

// Addendum is one language's instruction text.
type Addendum struct {
	Language string `json:"language"`
	Text     string `json:"text"`
	Path     string `json:"path,omitempty"`
	Builtin  bool   `json:"builtin"`
}

// Registry resolves addenda from the built-in set overlaid with the
// <lang>.md files of an optional prompt directory. It is safe for
// concurrent use; Reload swaps the file overlay atomically.
type Registry struct {
	store   storage.Provider
	logger  *slog.Logger
	builtin map[string]string

	mu    sync.RWMutex
	files map[string]Addendum
}

// NewRegistry creates a registry. store may be nil, in which case only the
// built-in addenda are served and Put/Remove fail.
func NewRegistry(store storage.Provider, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		store:   store,
		logger:  logger,
		builtin: map[string]string{"ko": Korean},
		files:   map[string]Addendum{},
	}
}

var langRe = regexp.MustCompile(`^[a-z]{2,3}(-[a-z0-9]{2,8})?$`)

func normLang(language string) string {
	return strings.ToLower(strings.TrimSpace(language))
}

// Addendum implements AddendumSource. English never gets an addendum.
func (r *Registry) Addendum(language string) string {
	lang := normLang(language)
	if lang == "" || lang == "en" {
		return ""
	}
	r.mu.RLock()
	a, ok := r.files[lang]
	r.mu.RUnlock()
	if ok {
		return a.Text
	}
	return r.builtin[lang]
}

// List returns every effective addendum sorted by language.
func (r *Registry) List() []Addendum {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Addendum, 0, len(r.builtin)+len(r.files))
	for _, a := range r.files {
		out = append(out, a)
	}
	for lang, text := range r.builtin {
		if _, overridden := r.files[lang]; overridden {
			continue
		}
		out = append(out, Addendum{Language: lang, Text: text, Builtin: true})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Language < out[j].Language })
	return out
}

// Reload re-reads every addendum file from the store. Files are applied in
// path order so a later path wins when two declare the same language.
func (r *Registry) Reload() (int, error) {
	if r.store == nil {
		return 0, nil
	}
	infos, err := r.store.List("")
	if err != nil {
		return 0, fmt.Errorf("prompts: list addenda: %w", err)
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })

	files := make(map[string]Addendum, len(infos))
	for _, info := range infos {
		data, err := r.store.Read(info.Path)
		if err != nil {
			r.logger.Warn("prompts: read addendum failed",
				slog.String("path", info.Path), slog.String("error", err.Error()))
			continue
		}
		res, err := parser.Parse(info.Path, data)
		if err != nil || res.Body == "" || res.Language == "" || res.Language == "en" {
			continue
		}
		files[res.Language] = Addendum{Language: res.Language, Text: res.Body, Path: info.Path}
	}

	r.mu.Lock()
	r.files = files
	r.mu.Unlock()
	r.logger.Debug("prompts: addenda loaded", slog.Int("files", len(files)))
	return len(files), nil
}

// Put writes <lang>.md to the store and reloads.
func (r *Registry) Put(language, text string) (Addendum, error) {
	lang := normLang(language)
	if r.store == nil {
		return Addendum{}, apperr.New(apperr.ErrConfiguration, "prompts: no addendum directory configured")
	}
	if !langRe.MatchString(lang) || lang == "en" {
		return Addendum{}, apperr.Validation("invalid addendum language %q", language)
	}
	content := "---\nlanguage: " + lang + "\n---\n\n" + strings.TrimSpace(text) + "\n"
	p := lang + ".md"
	if err := r.store.Write(p, []byte(content)); err != nil {
		return Addendum{}, err
	}
	if _, err := r.Reload(); err != nil {
		return Addendum{}, err
	}
	return Addendum{Language: lang, Text: strings.TrimSpace(text), Path: p}, nil
}

// Remove deletes the file overlay for language. It reports false when no
// file-backed addendum exists; a built-in addendum is never removed.
func (r *Registry) Remove(language string) (bool, error) {
	lang := normLang(language)
	r.mu.RLock()
	a, ok := r.files[lang]
	r.mu.RUnlock()
	if !ok || r.store == nil {
		return false, nil
	}
	if err := r.store.Delete(a.Path); err != nil {
		return false, err
	}
	if _, err := r.Reload(); err != nil {
		return false, err
	}
	return true, nil
}
