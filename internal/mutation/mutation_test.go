package mutation

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/starford/ladle/internal/apperr"
	"github.com/starford/ladle/internal/llm"
	"github.com/starford/ladle/internal/recipe"
	"github.com/starford/ladle/internal/semver"
	"github.com/starford/ladle/internal/testutil"
)

func pancakesDoc(t *testing.T, version string) *recipe.Document {
	t.Helper()
	doc, err := recipe.Decode([]byte(`{"id":"r-1","metadata":{"title":"Pancakes","servings":4},
"ingredients":[{"id":"ing_001","name":"flour","quantity":2,"unit":"cups"}],
"steps":[{"id":"step_001","order":1,"instruction":"Mix."}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if version != "" {
		doc.Version = &recipe.VersionInfo{Number: version}
	}
	return doc
}

const doubled = `{"action":"scale_recipe","intent":"SCALE",
"updated_recipe":{"metadata":{"title":"Pancakes","servings":8},
"ingredients":[{"id":"ing_001","name":"flour","quantity":4,"unit":"cups"}],
"steps":[{"id":"step_001","order":1,"instruction":"Mix."}]},
"commit_message":"Double the recipe","confirmation":"Doubled to 8 servings.",
"scale_factor":2,"original_servings":4,"new_servings":8,"warnings":["Use a larger pan"]}`

func TestProcess_ScaleEndToEnd(t *testing.T) {
	c := testutil.NewCompleter("```json\n" + doubled + "\n```")
	e := New(c, nil)

	resp, err := e.Process(context.Background(), Request{Transcription: "double the recipe", Document: pancakesDoc(t, "1.0.0")})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if resp.Action != ActionScaleRecipe || resp.Intent != "SCALE" {
		t.Errorf("action/intent = %s/%s", resp.Action, resp.Intent)
	}
	if resp.VersionBump != semver.Major {
		t.Errorf("bump = %q, want major", resp.VersionBump)
	}
	if resp.SuggestedNextVersion != "2.0.0" {
		t.Errorf("suggested = %q, want 2.0.0", resp.SuggestedNextVersion)
	}
	if resp.UpdatedRecipe == nil || resp.UpdatedRecipe.ID != "r-1" {
		t.Fatalf("updated recipe = %+v", resp.UpdatedRecipe)
	}
	if q, _ := resp.UpdatedRecipe.Ingredients[0].Quantity.Float(); q != 4 {
		t.Errorf("quantity = %v, want 4", q)
	}
	if f, _ := resp.ScaleFactor.Float(); f != 2 {
		t.Errorf("scale factor = %v", f)
	}
	if len(resp.Warnings) != 1 {
		t.Errorf("warnings = %v", resp.Warnings)
	}

	call := c.LastCall(t)
	if call.MaxTokens != 4096 {
		t.Errorf("max tokens = %d", call.MaxTokens)
	}
	user := call.Messages[len(call.Messages)-1].Content
	if !strings.HasPrefix(user, "VOICE COMMAND: double the recipe") || !strings.Contains(user, `"title": "Pancakes"`) {
		t.Errorf("user prompt = %q", user)
	}
}

func TestProcess_ClarificationStripsModification(t *testing.T) {
	raw := `{"action":"request_clarification","intent":"CLARIFY",
"updated_recipe":{"metadata":{"title":"X"}},"version_bump":"minor",
"confirmation":"Which one?","questions":["Which flour?"],"possible_intents":["MODIFY","REPLACE"]}`
	e := New(testutil.NewCompleter(raw), nil)

	resp, err := e.Process(context.Background(), Request{Transcription: "change the flour", Document: pancakesDoc(t, "1.2.0")})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if !resp.IsClarification() {
		t.Fatalf("action = %s", resp.Action)
	}
	if resp.UpdatedRecipe != nil || resp.VersionBump != "" || resp.SuggestedNextVersion != "" {
		t.Errorf("clarification carries modification: %+v", resp)
	}
	if len(resp.Questions) != 1 || len(resp.PossibleIntents) != 2 {
		t.Errorf("questions=%v intents=%v", resp.Questions, resp.PossibleIntents)
	}
}

func TestProcess_BumpClassifiedWhenMissing(t *testing.T) {
	cases := []struct {
		action, intent string
		want           semver.Bump
		next           string
	}{
		{ActionModifyIngredient, "ADD", semver.Minor, "1.3.0"},
		{ActionModifyMetadata, "UPDATE_METADATA", semver.Patch, "1.2.1"},
		{ActionModifyStep, "REORDER_STEPS", semver.Minor, "1.3.0"},
	}
	for _, tc := range cases {
		raw := `{"action":"` + tc.action + `","intent":"` + tc.intent + `","updated_recipe":{"metadata":{"title":"Pancakes"}},"confirmation":"ok"}`
		resp, err := New(testutil.NewCompleter(raw), nil).Process(context.Background(),
			Request{Transcription: "x", Document: pancakesDoc(t, "v1.2")})
		if err != nil {
			t.Fatalf("%s/%s: %v", tc.action, tc.intent, err)
		}
		if resp.VersionBump != tc.want || resp.SuggestedNextVersion != tc.next {
			t.Errorf("%s/%s: bump=%q next=%q, want %q %q", tc.action, tc.intent, resp.VersionBump, resp.SuggestedNextVersion, tc.want, tc.next)
		}
		if resp.CommitMessage != "Voice command: x" {
			t.Errorf("fallback commit message = %q", resp.CommitMessage)
		}
	}
}

func TestProcess_ModelBumpKept(t *testing.T) {
	raw := `{"action":"modify_ingredient","intent":"MODIFY","updated_recipe":{"metadata":{"title":"P"}},"version_bump":"MAJOR","commit_message":"m","confirmation":"c"}`
	resp, err := New(testutil.NewCompleter(raw), nil).Process(context.Background(), Request{Transcription: "x", Document: pancakesDoc(t, "")})
	if err != nil {
		t.Fatal(err)
	}
	if resp.VersionBump != semver.Major {
		t.Errorf("bump = %q", resp.VersionBump)
	}
	if resp.SuggestedNextVersion != "" {
		t.Errorf("suggested = %q for a document without a version", resp.SuggestedNextVersion)
	}
}

func TestProcess_HistoryPrecedesCommand(t *testing.T) {
	c := testutil.NewCompleter(doubled)
	hist := []llm.Message{
		{Role: llm.RoleUser, Content: "make it bigger"},
		{Role: llm.RoleAssistant, Content: "How much bigger?"},
	}
	if _, err := New(c, nil).Process(context.Background(), Request{Transcription: "double it", Document: pancakesDoc(t, "1.0.0"), History: hist}); err != nil {
		t.Fatal(err)
	}
	msgs := c.LastCall(t).Messages
	if len(msgs) != 3 || msgs[0].Content != "make it bigger" || msgs[1].Role != llm.RoleAssistant {
		t.Errorf("messages = %+v", msgs)
	}
}

func TestProcess_ContractViolations(t *testing.T) {
	cases := map[string]string{
		"not json":              "I doubled it!",
		"unknown action":        `{"action":"delete_recipe","intent":"REMOVE","updated_recipe":{}}`,
		"unknown intent":        `{"action":"modify_step","intent":"SHUFFLE","updated_recipe":{}}`,
		"missing recipe":        `{"action":"modify_step","intent":"MODIFY_STEP","confirmation":"done"}`,
		"null recipe":           `{"action":"modify_step","intent":"MODIFY_STEP","updated_recipe":null}`,
		"clarify w/o questions": `{"action":"request_clarification","intent":"CLARIFY","questions":[" "]}`,
	}
	for name, raw := range cases {
		_, err := New(testutil.NewCompleter(raw), nil).Process(context.Background(), Request{Transcription: "x", Document: pancakesDoc(t, "1.0.0")})
		if !errors.Is(err, apperr.ErrMutationParse) {
			t.Errorf("%s: err = %v, want mutation parse error", name, err)
		}
	}
}

func TestProcess_InputAndCapabilityErrors(t *testing.T) {
	ctx := context.Background()
	e := New(testutil.NewCompleter(doubled), nil)
	if _, err := e.Process(ctx, Request{Transcription: "  ", Document: pancakesDoc(t, "")}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty transcription err = %v", err)
	}
	if _, err := e.Process(ctx, Request{Transcription: "x"}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("nil document err = %v", err)
	}
	if _, err := New(nil, nil).Process(ctx, Request{Transcription: "x", Document: pancakesDoc(t, "")}); !errors.Is(err, apperr.ErrConfiguration) {
		t.Errorf("nil completer err = %v", err)
	}
	failing := testutil.NewCompleter()
	failing.Err = context.DeadlineExceeded
	if _, err := New(failing, nil).Process(ctx, Request{Transcription: "x", Document: pancakesDoc(t, "")}); !errors.Is(err, apperr.ErrAdapter) {
		t.Errorf("transport err = %v", err)
	}
	if n := len(failing.Calls()); n != 1 {
		t.Errorf("calls = %d, failures must not be retried", n)
	}
}
