package parser

import (
	"testing"
)

func TestParse_FrontmatterAndBody(t *testing.T) {
	input := []byte("---\nlanguage: JA\n---\n\nKeep katakana loanwords.\n")
	r, err := Parse("japanese.md", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Language != "ja" {
		t.Errorf("language = %q, want %q", r.Language, "ja")
	}
	if r.Body != "Keep katakana loanwords." {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_NoFrontmatterUsesFileName(t *testing.T) {
	r, err := Parse("addenda/ES.md", []byte("Usa gramos.\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
	if r.Language != "es" {
		t.Errorf("language = %q, want es", r.Language)
	}
	if r.Body != "Usa gramos." {
		t.Errorf("body = %q", r.Body)
	}
}

func TestParse_InvalidYAMLFallback(t *testing.T) {
	input := []byte("---\n: invalid: yaml: {{{\n---\nBody\n")
	r, err := Parse("fr.md", input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter on invalid YAML")
	}
	if r.Language != "fr" {
		t.Errorf("language = %q, want fr", r.Language)
	}
}

func TestParse_UnclosedFrontmatter(t *testing.T) {
	r, _ := Parse("de.md", []byte("---\nlanguage: de\nno closing"))
	if r.Frontmatter != nil {
		t.Errorf("expected nil frontmatter, got %v", r.Frontmatter)
	}
}
