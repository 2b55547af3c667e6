// Package mutation turns a transcribed voice command plus a recipe document
// into either an applied modification or a clarification request.
//
// The engine never persists anything: the caller decides whether to store
// UpdatedRecipe as a new version.
package mutation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/starford/ladle/internal/apperr"
	"github.com/starford/ladle/internal/llm"
	"github.com/starford/ladle/internal/prompts"
	"github.com/starford/ladle/internal/recipe"
	"github.com/starford/ladle/internal/semver"
)

// Actions.
const (
	ActionModifyIngredient     = "modify_ingredient"
	ActionModifyStep           = "modify_step"
	ActionScaleRecipe          = "scale_recipe"
	ActionModifyMetadata       = "modify_metadata"
	ActionRequestClarification = "request_clarification"
)

var actions = map[string]bool{
	ActionModifyIngredient:     true,
	ActionModifyStep:           true,
	ActionScaleRecipe:          true,
	ActionModifyMetadata:       true,
	ActionRequestClarification: true,
}

var intents = map[string]bool{
	"ADD": true, "MODIFY": true, "REMOVE": true, "REPLACE": true, "SCALE": true,
	"ADD_STEP": true, "MODIFY_STEP": true, "REMOVE_STEP": true, "REORDER_STEPS": true,
	"UPDATE_METADATA": true, "CLARIFY": true,
}

const maxTokens = 4096

// Request is one voice command.
type Request struct {
	Transcription string
	Document      *recipe.Document
	History       []llm.Message
}

// Response is the validated outcome of a voice command.
type Response struct {
	Action               string           `json:"action"`
	Intent               string           `json:"intent"`
	UpdatedRecipe        *recipe.Document `json:"updated_recipe,omitempty"`
	CommitMessage        string           `json:"commit_message,omitempty"`
	Confirmation         string           `json:"confirmation"`
	Questions            []string         `json:"questions,omitempty"`
	VersionBump          semver.Bump      `json:"version_bump,omitempty"`
	SuggestedNextVersion string           `json:"suggested_next_version,omitempty"`

	Target           json.RawMessage `json:"target,omitempty"`
	Changes          json.RawMessage `json:"changes,omitempty"`
	Warnings         []string        `json:"warnings,omitempty"`
	PossibleIntents  []string        `json:"possible_intents,omitempty"`
	SuggestedActions json.RawMessage `json:"suggested_actions,omitempty"`
	ScaleFactor      *recipe.Amount  `json:"scale_factor,omitempty"`
	OriginalServings *recipe.Amount  `json:"original_servings,omitempty"`
	NewServings      *recipe.Amount  `json:"new_servings,omitempty"`
}

// IsClarification reports whether the engine asked for more input.
func (r *Response) IsClarification() bool {
	return r.Action == ActionRequestClarification
}

// wire is the raw model output before validation.
type wire struct {
	Action        string          `json:"action"`
	Intent        string          `json:"intent"`
	UpdatedRecipe json.RawMessage `json:"updated_recipe"`
	CommitMessage string          `json:"commit_message"`
	Confirmation  string          `json:"confirmation"`
	Questions     []string        `json:"questions"`
	VersionBump   string          `json:"version_bump"`

	Target           json.RawMessage `json:"target"`
	Changes          json.RawMessage `json:"changes"`
	Warnings         []string        `json:"warnings"`
	PossibleIntents  []string        `json:"possible_intents"`
	SuggestedActions json.RawMessage `json:"suggested_actions"`
	ScaleFactor      *recipe.Amount  `json:"scale_factor"`
	OriginalServings *recipe.Amount  `json:"original_servings"`
	NewServings      *recipe.Amount  `json:"new_servings"`
}

// Engine processes voice commands.
type Engine struct {
	completer llm.Completer
	logger    *slog.Logger
}

// New creates an Engine. completer may be nil; Process then fails with a
// configuration error.
func New(completer llm.Completer, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{completer: completer, logger: logger}
}

// Available reports whether a completion capability is configured.
func (e *Engine) Available() bool { return e.completer != nil }

// Process runs one voice command against req.Document.
func (e *Engine) Process(ctx context.Context, req Request) (*Response, error) {
	transcription := strings.TrimSpace(req.Transcription)
	if transcription == "" {
		return nil, apperr.Validation("transcription is required")
	}
	if req.Document == nil {
		return nil, apperr.Validation("recipe document is required")
	}
	if e.completer == nil {
		return nil, apperr.Configuration("voice commands")
	}

	doc, err := json.MarshalIndent(req.Document, "", "  ")
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrValidation, err, "encode recipe document")
	}

	msgs := make([]llm.Message, 0, len(req.History)+1)
	for _, h := range req.History {
		if strings.TrimSpace(h.Content) == "" {
			continue
		}
		role := llm.RoleUser
		if h.Role == llm.RoleAssistant {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: h.Content})
	}
	msgs = append(msgs, llm.Message{Role: llm.RoleUser, Content: prompts.VoiceUser(transcription, doc)})

	raw, err := e.completer.Complete(ctx, prompts.VoiceSystem(), msgs, maxTokens)
	if err != nil {
		return nil, apperr.Adapter(err)
	}

	resp, err := Parse(raw)
	if err != nil {
		e.logger.Warn("mutation: unusable model response", slog.String("error", err.Error()))
		return nil, err
	}
	finish(resp, req.Document, transcription)

	e.logger.Info("mutation: processed",
		slog.String("action", resp.Action),
		slog.String("intent", resp.Intent),
		slog.String("bump", string(resp.VersionBump)))
	return resp, nil
}

// Parse validates raw model output against the response contract.
func Parse(raw string) (*Response, error) {
	text := llm.StripFences(raw)
	var w wire
	if err := json.Unmarshal([]byte(text), &w); err != nil {
		return nil, apperr.Wrap(apperr.ErrMutationParse, err, "failed to parse voice command response")
	}

	w.Action = strings.TrimSpace(w.Action)
	w.Intent = strings.ToUpper(strings.TrimSpace(w.Intent))
	if !actions[w.Action] {
		return nil, apperr.New(apperr.ErrMutationParse, "unknown action %q", w.Action)
	}
	if !intents[w.Intent] {
		return nil, apperr.New(apperr.ErrMutationParse, "unknown intent %q", w.Intent)
	}

	resp := &Response{
		Action:           w.Action,
		Intent:           w.Intent,
		Confirmation:     strings.TrimSpace(w.Confirmation),
		Questions:        nonEmpty(w.Questions),
		Target:           present(w.Target),
		Changes:          present(w.Changes),
		Warnings:         nonEmpty(w.Warnings),
		PossibleIntents:  nonEmpty(w.PossibleIntents),
		SuggestedActions: present(w.SuggestedActions),
		ScaleFactor:      w.ScaleFactor,
		OriginalServings: w.OriginalServings,
		NewServings:      w.NewServings,
	}

	if resp.IsClarification() {
		// A clarification never carries a modification, whatever the model sent.
		if len(resp.Questions) == 0 {
			return nil, apperr.New(apperr.ErrMutationParse, "clarification without questions")
		}
		return resp, nil
	}

	updated := present(w.UpdatedRecipe)
	if updated == nil {
		return nil, apperr.New(apperr.ErrMutationParse, "%s response without updated_recipe", w.Action)
	}
	doc, err := recipe.Decode(updated)
	if err != nil {
		return nil, apperr.Wrap(apperr.ErrMutationParse, err, "invalid updated_recipe")
	}
	resp.UpdatedRecipe = doc
	resp.CommitMessage = strings.TrimSpace(w.CommitMessage)
	if b, ok := semver.ParseBump(w.VersionBump); ok {
		resp.VersionBump = b
	}
	return resp, nil
}

// finish applies the engine's post-processing to a parsed response.
func finish(resp *Response, current *recipe.Document, transcription string) {
	if resp.IsClarification() {
		return
	}
	if resp.VersionBump == "" {
		resp.VersionBump = semver.Classify(resp.Action, resp.Intent)
	}
	if resp.CommitMessage == "" {
		resp.CommitMessage = fmt.Sprintf("Voice command: %s", transcription)
	}
	if resp.UpdatedRecipe.ID == "" {
		resp.UpdatedRecipe.ID = current.ID
	}
	if current.Version != nil && strings.TrimSpace(current.Version.Number) != "" {
		resp.SuggestedNextVersion = semver.Apply(current.Version.Number, resp.VersionBump)
	}
}

func present(raw json.RawMessage) json.RawMessage {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 || bytes.Equal(t, []byte("null")) {
		return nil
	}
	return raw
}

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
