package guide

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/starford/ladle/internal/apperr"
	"github.com/starford/ladle/internal/llm"
	"github.com/starford/ladle/internal/recipe"
	"github.com/starford/ladle/internal/testutil"
)

func soup(t *testing.T) *recipe.Document {
	t.Helper()
	doc, err := recipe.Decode([]byte(`{"metadata":{"title":"Miso Soup"},
"ingredients":[
  {"name":"dashi","quantity":4,"unit":"cups"},
  {"name":"tofu","quantity":"1/2","unit":"block","preparation":"cubed","notes":"silken"},
  "1 scallion",
  {"amount":"2","unit":"tbsp","name":"miso","note":"white"},
  {"unit":"pinch"}
],
"steps":["Heat the dashi.",{"instruction":"Add tofu."},{"text":"Whisk in miso."}]}`))
	if err != nil {
		t.Fatal(err)
	}
	return doc
}

func TestBuildContext_Recipe(t *testing.T) {
	got := BuildContext(Input{Recipe: soup(t), CurrentStep: 1, Message: "How long?"})
	want := "Recipe: Miso Soup\n" +
		"Ingredients:\n" +
		"  - 4 cups dashi\n" +
		"  - 1/2 block tofu, cubed (silken)\n" +
		"  - 1 scallion\n" +
		"  - 2 tbsp miso (white)\n" +
		"  - pinch ?\n" +
		"Steps:\n" +
		"  1. Heat the dashi.\n" +
		"  2. Add tofu. (current)\n" +
		"  3. Whisk in miso.\n" +
		"\nUser is currently on step 2. " +
		"User: How long?\n\nAssistant:"
	if got != want {
		t.Errorf("context mismatch\n got: %q\nwant: %q", got, want)
	}
}

func TestBuildContext_NoRecipe(t *testing.T) {
	got := BuildContext(Input{Message: "What is mirin?"})
	if got != "User: What is mirin?\n\nAssistant:" {
		t.Errorf("got %q", got)
	}
}

func TestBuildContext_StepOutOfRange(t *testing.T) {
	got := BuildContext(Input{Recipe: soup(t), CurrentStep: 7, Message: "done?"})
	if strings.Contains(got, "(current)") || strings.Contains(got, "currently on step") {
		t.Errorf("out-of-range step flagged: %q", got)
	}
}

func TestBuildContext_LastTenTurns(t *testing.T) {
	var hist []llm.Message
	for i := 0; i < 14; i++ {
		role := llm.RoleUser
		if i%2 == 1 {
			role = llm.RoleAssistant
		}
		hist = append(hist, llm.Message{Role: role, Content: fmt.Sprintf("turn-%02d", i)})
	}
	got := BuildContext(Input{History: hist, Message: "next"})
	if strings.Contains(got, "turn-03") {
		t.Error("turn older than the last ten included")
	}
	if !strings.HasPrefix(got, "User: turn-04\nAssistant: turn-05\n") {
		t.Errorf("history rendering = %q", got)
	}
	if strings.Count(got, "turn-") != HistoryTurns {
		t.Errorf("turns = %d, want %d", strings.Count(got, "turn-"), HistoryTurns)
	}
}

func TestReply(t *testing.T) {
	c := testutil.NewCompleter("  About two minutes.  \n")
	g := New(c, nil)
	got, err := g.Reply(context.Background(), Input{Recipe: soup(t), Message: "How long?"})
	if err != nil {
		t.Fatalf("Reply: %v", err)
	}
	if got != "About two minutes." {
		t.Errorf("reply = %q", got)
	}
	call := c.LastCall(t)
	if call.MaxTokens != 1024 || !strings.Contains(call.System, "friendly cooking assistant") {
		t.Errorf("call = %+v", call)
	}
	if len(call.Messages) != 1 || !strings.HasSuffix(call.Messages[0].Content, "Assistant:") {
		t.Errorf("messages = %+v", call.Messages)
	}
}

func TestReply_Errors(t *testing.T) {
	ctx := context.Background()
	if _, err := New(nil, nil).Reply(ctx, Input{Message: "hi"}); !errors.Is(err, apperr.ErrConfiguration) {
		t.Errorf("nil completer err = %v", err)
	}
	if _, err := New(testutil.NewCompleter("x"), nil).Reply(ctx, Input{Message: " "}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("empty message err = %v", err)
	}
	failing := testutil.NewCompleter()
	failing.Err = errors.New("503 from upstream")
	if _, err := New(failing, nil).Reply(ctx, Input{Message: "hi"}); !errors.Is(err, apperr.ErrAdapter) {
		t.Errorf("transport err = %v", err)
	}
}
