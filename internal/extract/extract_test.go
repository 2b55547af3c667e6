package extract

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/starford/ladle/internal/apperr"
	"github.com/starford/ladle/internal/importcache"
	"github.com/starford/ladle/internal/llm"
	"github.com/starford/ladle/internal/prompts"
	"github.com/starford/ladle/internal/testutil"
)

const pancakes = `{"name":"Pancakes","metadata":{"title":"Fluffy Pancakes","language":"en"},
"ingredients":[{"id":"ing_001","name":"flour","quantity":2,"unit":"cups"}],
"steps":[{"id":"step_001","order":1,"instruction":"Mix."}]}`

var fixedNow = time.Date(2025, 3, 4, 5, 6, 7, 0, time.FixedZone("KST", 9*3600))

func newAdapter(c *testutil.Completer, cache importcache.Cache) *Adapter {
	return New(c, cache, prompts.NewRegistry(nil, nil), nil, WithClock(func() time.Time { return fixedNow }))
}

func TestFromWebpage_MissThenHit(t *testing.T) {
	c := testutil.NewCompleter(pancakes)
	cache := importcache.NewMemory()
	a := newAdapter(c, cache)
	ctx := context.Background()

	res, err := a.FromWebpage(ctx, WebpageInput{URL: "https://example.com/pancakes/?utm_source=x", Content: "page text"})
	if err != nil {
		t.Fatalf("FromWebpage: %v", err)
	}
	if res.Cached {
		t.Error("first import reported cached")
	}
	if res.Name != "Pancakes" || res.Title != "Fluffy Pancakes" {
		t.Errorf("name/title = %q/%q", res.Name, res.Title)
	}
	src := res.Metadata.Source
	if src == nil || src.Type != "webpage" || src.URL != "https://example.com/pancakes/?utm_source=x" || src.ImportedAt != "2025-03-03T20:06:07Z" {
		t.Errorf("source = %+v", src)
	}
	call := c.LastCall(t)
	if call.MaxTokens != 4096 {
		t.Errorf("max tokens = %d, want 4096", call.MaxTokens)
	}
	if !strings.Contains(call.System, "recipe extraction specialist") {
		t.Error("system prompt not the extraction instruction")
	}

	again, err := a.FromWebpage(ctx, WebpageInput{URL: "HTTPS://EXAMPLE.com/pancakes#top", Content: "different"})
	if err != nil {
		t.Fatalf("second FromWebpage: %v", err)
	}
	if !again.Cached {
		t.Error("equivalent URL was not served from cache")
	}
	if again.Title != "Fluffy Pancakes" || len(again.Ingredients) != 1 {
		t.Errorf("cached result = %+v", again)
	}
	if n := len(c.Calls()); n != 1 {
		t.Errorf("model calls = %d, want 1", n)
	}
}

func TestFromWebpage_CacheHitWithoutModel(t *testing.T) {
	cache := importcache.NewMemory()
	key, _ := importcache.Normalize("https://example.com/soup")
	_, _ = cache.Store(context.Background(), key, "https://example.com/soup", []byte(`{"name":"Soup","title":"Soup","metadata":{"title":"Soup"}}`))

	a := New(nil, cache, nil, nil)
	res, err := a.FromWebpage(context.Background(), WebpageInput{URL: "https://example.com/soup/"})
	if err != nil {
		t.Fatalf("FromWebpage: %v", err)
	}
	if !res.Cached || res.Name != "Soup" {
		t.Errorf("res = %+v", res)
	}

	if _, err := a.FromWebpage(context.Background(), WebpageInput{URL: "https://example.com/stew", Content: "x"}); !errors.Is(err, apperr.ErrConfiguration) {
		t.Errorf("miss without model err = %v, want configuration error", err)
	}
}

func TestFromWebpage_LanguageAddendum(t *testing.T) {
	c := testutil.NewCompleter(pancakes)
	a := newAdapter(c, nil)
	ctx := context.Background()

	if _, err := a.FromWebpage(ctx, WebpageInput{URL: "https://example.com/a", Content: "x", Language: "ko"}); err != nil {
		t.Fatal(err)
	}
	if user := c.LastCall(t).Messages[0].Content; !strings.Contains(user, "ADDITIONAL KOREAN RECIPE INSTRUCTIONS") {
		t.Error("korean addendum missing")
	}

	if _, err := a.FromWebpage(ctx, WebpageInput{URL: "https://example.com/b", Content: "x", Language: "en"}); err != nil {
		t.Fatal(err)
	}
	if user := c.LastCall(t).Messages[0].Content; strings.Contains(user, "ADDITIONAL") {
		t.Error("english import got an addendum")
	}
}

func TestFromWebpage_TruncatesContent(t *testing.T) {
	c := testutil.NewCompleter(pancakes)
	a := newAdapter(c, nil)
	content := strings.Repeat("é", 60000)
	if _, err := a.FromWebpage(context.Background(), WebpageInput{URL: "https://example.com/long", Content: content}); err != nil {
		t.Fatal(err)
	}
	user := c.LastCall(t).Messages[0].Content
	if n := strings.Count(user, "é"); n != DefaultMaxContentChars {
		t.Errorf("content chars in prompt = %d, want %d", n, DefaultMaxContentChars)
	}
}

func TestFromWebpage_FencedResponse(t *testing.T) {
	c := testutil.NewCompleter("```json\n" + pancakes + "\n```")
	a := newAdapter(c, nil)
	res, err := a.FromWebpage(context.Background(), WebpageInput{URL: "https://example.com/f", Content: "x"})
	if err != nil {
		t.Fatalf("FromWebpage: %v", err)
	}
	if res.Name != "Pancakes" {
		t.Errorf("name = %q", res.Name)
	}
}

func TestFromWebpage_Errors(t *testing.T) {
	ctx := context.Background()

	bad := newAdapter(testutil.NewCompleter("Sorry, I can't do that."), importcache.NewMemory())
	_, err := bad.FromWebpage(ctx, WebpageInput{URL: "https://example.com/x", Content: "x"})
	if !errors.Is(err, apperr.ErrExtractionParse) {
		t.Errorf("non-JSON err = %v, want parse error", err)
	}

	failing := testutil.NewCompleter()
	failing.Err = errors.New("connection reset")
	_, err = newAdapter(failing, nil).FromWebpage(ctx, WebpageInput{URL: "https://example.com/x", Content: "x"})
	if !errors.Is(err, apperr.ErrAdapter) || !strings.Contains(err.Error(), "connection reset") {
		t.Errorf("transport err = %v, want adapter error carrying message", err)
	}

	_, err = bad.FromWebpage(ctx, WebpageInput{URL: "ftp://example.com/x", Content: "x"})
	if !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("bad url err = %v, want validation error", err)
	}
}

func TestFromWebpage_FailureNotCached(t *testing.T) {
	c := testutil.NewCompleter("not json", pancakes)
	cache := importcache.NewMemory()
	a := newAdapter(c, cache)
	ctx := context.Background()
	in := WebpageInput{URL: "https://example.com/retry", Content: "x"}

	if _, err := a.FromWebpage(ctx, in); err == nil {
		t.Fatal("expected parse error")
	}
	if cache.Len() != 0 {
		t.Fatal("failed extraction was cached")
	}
	if _, err := a.FromWebpage(ctx, in); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if cache.Len() != 1 {
		t.Errorf("entries = %d, want 1", cache.Len())
	}
}

func TestFromWebpage_ConcurrentCallsShareOneCompletion(t *testing.T) {
	c := testutil.NewCompleter(pancakes)
	a := newAdapter(c, importcache.NewMemory())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := a.FromWebpage(context.Background(), WebpageInput{URL: "https://example.com/same", Content: "x"})
			if err != nil {
				t.Errorf("FromWebpage: %v", err)
				return
			}
			if res.Title != "Fluffy Pancakes" {
				t.Errorf("title = %q", res.Title)
			}
		}()
	}
	wg.Wait()
	if n := len(c.Calls()); n != 1 {
		t.Errorf("model calls = %d, want 1", n)
	}
}

func TestFromWebpage_CallerCancelDoesNotFailSharedImport(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})
	var calls atomic.Int32
	c := llm.CompleterFunc(func(ctx context.Context, _ string, _ []llm.Message, _ int) (string, error) {
		calls.Add(1)
		started <- struct{}{}
		select {
		case <-release:
			return pancakes, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	})
	a := New(c, importcache.NewMemory(), nil, nil)
	in := WebpageInput{URL: "https://example.com/shared", Content: "x"}

	ctxA, cancelA := context.WithCancel(context.Background())
	errA := make(chan error, 1)
	go func() {
		_, err := a.FromWebpage(ctxA, in)
		errA <- err
	}()
	<-started

	type outcome struct {
		res *Result
		err error
	}
	doneB := make(chan outcome, 1)
	go func() {
		res, err := a.FromWebpage(context.Background(), in)
		doneB <- outcome{res, err}
	}()
	// Let the second caller join the in-flight extraction.
	time.Sleep(50 * time.Millisecond)

	cancelA()
	select {
	case err := <-errA:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("cancelled caller err = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cancelled caller did not return")
	}

	close(release)
	select {
	case got := <-doneB:
		if got.err != nil {
			t.Fatalf("live caller failed: %v", got.err)
		}
		if got.res.Title != "Fluffy Pancakes" {
			t.Errorf("title = %q", got.res.Title)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("live caller did not return")
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("model calls = %d, want 1", n)
	}
}

func TestNormalize_NameFallbacks(t *testing.T) {
	cases := []struct {
		raw, name, title string
	}{
		{`{"name":"Stew","metadata":{}}`, "Stew", "Stew"},
		{`{"metadata":{"title":"Bibimbap"}}`, "Bibimbap", "Bibimbap"},
		{`{}`, DefaultName, DefaultName},
	}
	for _, tc := range cases {
		res, err := parseResult(tc.raw)
		if err != nil {
			t.Fatalf("parseResult(%s): %v", tc.raw, err)
		}
		if res.Name != tc.name || res.Title != tc.title || res.Metadata.Title != tc.title {
			t.Errorf("%s: name=%q title=%q meta=%q", tc.raw, res.Name, res.Title, res.Metadata.Title)
		}
		if res.Ingredients == nil || res.Steps == nil || res.Tags == nil {
			t.Errorf("%s: nil collections after normalize", tc.raw)
		}
	}
}

func TestFromText(t *testing.T) {
	c := testutil.NewCompleter(pancakes)
	cache := importcache.NewMemory()
	a := newAdapter(c, cache)

	res, err := a.FromText(context.Background(), strings.Repeat("ü", 20000))
	if err != nil {
		t.Fatalf("FromText: %v", err)
	}
	if res.Name != "Pancakes" {
		t.Errorf("name = %q", res.Name)
	}
	call := c.LastCall(t)
	if call.MaxTokens != 2048 {
		t.Errorf("max tokens = %d, want 2048", call.MaxTokens)
	}
	if n := strings.Count(call.Messages[0].Content, "ü"); n != MaxLegacySourceChars {
		t.Errorf("source chars = %d, want %d", n, MaxLegacySourceChars)
	}
	if res.Metadata.Source != nil {
		t.Error("text import must not stamp a webpage source")
	}
	if cache.Len() != 0 {
		t.Error("text import must not be cached")
	}

	if _, err := New(nil, nil, nil, nil).FromText(context.Background(), "x"); !errors.Is(err, apperr.ErrConfiguration) {
		t.Errorf("err = %v, want configuration error", err)
	}
}
