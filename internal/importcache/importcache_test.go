package importcache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/starford/ladle/internal/apperr"
)

func TestNormalize_Equivalences(t *testing.T) {
	groups := [][]string{
		{
			"https://example.com/recipes/pancakes",
			"https://example.com/recipes/pancakes/",
			"HTTPS://Example.COM/recipes/pancakes",
			"https://example.com:443/recipes/pancakes",
			"https://example.com/recipes/pancakes#comments",
			"https://example.com/recipes/pancakes?utm_source=newsletter&utm_medium=email",
			"https://example.com/recipes//pancakes?fbclid=abc",
			"example.com/recipes/pancakes",
			"  https://user:pw@example.com/recipes/pancakes  ",
		},
		{
			"https://example.com/r?b=2&a=1",
			"https://example.com/r/?a=1&b=2&gclid=xyz",
		},
		{
			"http://example.com",
			"http://example.com:80/",
			"http://EXAMPLE.com",
		},
	}
	for _, g := range groups {
		want, err := Normalize(g[0])
		if err != nil {
			t.Fatalf("Normalize(%q): %v", g[0], err)
		}
		for _, u := range g[1:] {
			got, err := Normalize(u)
			if err != nil {
				t.Fatalf("Normalize(%q): %v", u, err)
			}
			if got != want {
				t.Errorf("Normalize(%q) = %q, want %q", u, got, want)
			}
		}
	}
}

func TestNormalize_Distinct(t *testing.T) {
	pairs := [][2]string{
		{"https://example.com/a", "http://example.com/a"},
		{"https://example.com/a", "https://www.example.com/a"},
		{"https://example.com/a?id=1", "https://example.com/a?id=2"},
		{"https://example.com/A", "https://example.com/a"},
		{"https://example.com:8443/a", "https://example.com/a"},
		{"https://example.com/a?id=1;x=2", "https://example.com/a?id=2;x=2"},
		{"https://example.com/recipe.php?id=101;lang=en", "https://example.com/recipe.php?id=202;lang=en"},
		{"https://example.com/a?q=%zz", "https://example.com/a?q=%zy"},
		{"https://example.com/a?q=%zz", "https://example.com/a"},
	}
	for _, p := range pairs {
		a, err := Normalize(p[0])
		if err != nil {
			t.Fatalf("Normalize(%q): %v", p[0], err)
		}
		b, err := Normalize(p[1])
		if err != nil {
			t.Fatalf("Normalize(%q): %v", p[1], err)
		}
		if a == b {
			t.Errorf("%q and %q both normalize to %q", p[0], p[1], a)
		}
	}
}

func TestNormalize_Exact(t *testing.T) {
	got, err := Normalize("HTTPS://Www.Example.com:443/Recipes/Soup/?utm_campaign=x&servings=4#top")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := "https://www.example.com/Recipes/Soup?servings=4"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNormalize_UndecodableQueryKeptVerbatim(t *testing.T) {
	got, err := Normalize("https://example.com/a?z=1&q=%zz&utm_source=x")
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	want := "https://example.com/a?q=%zz&z=1"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestNormalize_Invalid(t *testing.T) {
	for _, u := range []string{"", "   ", "ftp://example.com/x", "https://", "http://%zz"} {
		if _, err := Normalize(u); !errors.Is(err, apperr.ErrValidation) {
			t.Errorf("Normalize(%q) err = %v, want validation error", u, err)
		}
	}
}

func TestMemory_LookupAfterStore(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()
	doc := []byte(`{"name":"Pancakes","metadata":{"title":"Pancakes"}}`)

	if e, err := c.Lookup(ctx, "k"); err != nil || e != nil {
		t.Fatalf("miss = %v, %v", e, err)
	}
	if _, err := c.Store(ctx, "k", "https://example.com/k/", doc); err != nil {
		t.Fatalf("Store: %v", err)
	}
	e, err := c.Lookup(ctx, "k")
	if err != nil || e == nil {
		t.Fatalf("Lookup = %v, %v", e, err)
	}
	if string(e.Result) != string(doc) {
		t.Errorf("result = %s, want %s", e.Result, doc)
	}
	if e.URL != "https://example.com/k/" {
		t.Errorf("url = %q", e.URL)
	}
}

func TestMemory_SecondStoreKeepsFirst(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()
	first := []byte(`{"v":1}`)
	if _, err := c.Store(ctx, "k", "u", first); err != nil {
		t.Fatal(err)
	}
	e, err := c.Store(ctx, "k", "u", []byte(`{"v":2}`))
	if err != nil {
		t.Fatalf("second Store: %v", err)
	}
	if string(e.Result) != string(first) {
		t.Errorf("second store returned %s, want first writer's %s", e.Result, first)
	}
}

func TestMemory_ConcurrentStore(t *testing.T) {
	c := NewMemory()
	ctx := context.Background()

	const n = 16
	results := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e, err := c.Store(ctx, "k", "u", []byte(fmt.Sprintf(`{"writer":%d}`, i)))
			if err != nil {
				t.Errorf("Store: %v", err)
				return
			}
			results[i] = string(e.Result)
		}(i)
	}
	wg.Wait()

	for _, r := range results[1:] {
		if r != results[0] {
			t.Fatalf("concurrent stores returned different documents: %q vs %q", r, results[0])
		}
	}
	if c.Len() != 1 {
		t.Errorf("entries = %d, want 1", c.Len())
	}
}
