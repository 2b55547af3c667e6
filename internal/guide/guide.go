// Package guide builds the live cooking-guidance prompt and asks the
// language model for a reply.
package guide

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/ladle/internal/apperr"
	"github.com/starford/ladle/internal/llm"
	"github.com/starford/ladle/internal/prompts"
	"github.com/starford/ladle/internal/recipe"
)

const (
	// HistoryTurns is how many trailing history turns enter the context.
	HistoryTurns = 10
	maxTokens    = 1024
)

// Input is one guidance request. Recipe may be nil for free-form questions.
// CurrentStep is zero-based.
type Input struct {
	Recipe      *recipe.Document
	CurrentStep int
	History     []llm.Message
	Message     string
}

// BuildContext renders the single prompt block for in.
func BuildContext(in Input) string {
	var b strings.Builder
	if d := in.Recipe; d != nil {
		fmt.Fprintf(&b, "Recipe: %s\n", d.Title())
		if len(d.Ingredients) > 0 {
			b.WriteString("Ingredients:\n")
			for _, ing := range d.Ingredients {
				b.WriteString(formatIngredient(ing))
				b.WriteByte('\n')
			}
		}
		if len(d.Steps) > 0 {
			b.WriteString("Steps:\n")
			for i, s := range d.Steps {
				marker := ""
				if i == in.CurrentStep {
					marker = " (current)"
				}
				fmt.Fprintf(&b, "  %d. %s%s\n", i+1, s.Instruction, marker)
			}
		}
		if in.CurrentStep >= 0 && in.CurrentStep < len(d.Steps) {
			fmt.Fprintf(&b, "\nUser is currently on step %d. ", in.CurrentStep+1)
		}
	}

	hist := in.History
	if len(hist) > HistoryTurns {
		hist = hist[len(hist)-HistoryTurns:]
	}
	for _, h := range hist {
		if h.Role == llm.RoleAssistant {
			fmt.Fprintf(&b, "Assistant: %s\n", h.Content)
		} else {
			fmt.Fprintf(&b, "User: %s\n", h.Content)
		}
	}
	fmt.Fprintf(&b, "User: %s\n\nAssistant:", in.Message)
	return b.String()
}

// formatIngredient renders "  - qty unit name, preparation (notes)".
func formatIngredient(ing recipe.Ingredient) string {
	if ing.Bare {
		return "  - " + ing.Name
	}
	var b strings.Builder
	b.WriteString("  - ")
	if q := ing.Quantity.String(); q != "" {
		b.WriteString(q)
		b.WriteByte(' ')
	}
	if ing.Unit != "" {
		b.WriteString(ing.Unit)
		b.WriteByte(' ')
	}
	if ing.Name != "" {
		b.WriteString(ing.Name)
	} else {
		b.WriteString("?")
	}
	if ing.Preparation != "" {
		b.WriteString(", ")
		b.WriteString(ing.Preparation)
	}
	if ing.Notes != "" {
		fmt.Fprintf(&b, " (%s)", ing.Notes)
	}
	return b.String()
}

// Guide answers cooking questions.
type Guide struct {
	completer llm.Completer
	logger    *slog.Logger
}

// New creates a Guide. completer may be nil; Reply then fails with a
// configuration error.
func New(completer llm.Completer, logger *slog.Logger) *Guide {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guide{completer: completer, logger: logger}
}

// Available reports whether a completion capability is configured.
func (g *Guide) Available() bool { return g.completer != nil }

// Reply returns the assistant's trimmed answer to in.Message.
func (g *Guide) Reply(ctx context.Context, in Input) (string, error) {
	if strings.TrimSpace(in.Message) == "" {
		return "", apperr.Validation("message is required")
	}
	if g.completer == nil {
		return "", apperr.Configuration("cooking guidance")
	}
	prompt := BuildContext(in)
	out, err := g.completer.Complete(ctx, prompts.GuidePersona, []llm.Message{{Role: llm.RoleUser, Content: prompt}}, maxTokens)
	if err != nil {
		return "", apperr.Adapter(err)
	}
	g.logger.Debug("guide: replied", slog.Int("step", in.CurrentStep), slog.Int("history", len(in.History)))
	return strings.TrimSpace(out), nil
}
