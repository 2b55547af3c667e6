package recipeservice

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/starford/ladle/internal/apperr"
	"github.com/starford/ladle/internal/extract"
	"github.com/starford/ladle/internal/guide"
	"github.com/starford/ladle/internal/llm"
	"github.com/starford/ladle/internal/mutation"
	"github.com/starford/ladle/internal/prompts"
	"github.com/starford/ladle/internal/recipe"
	"github.com/starford/ladle/internal/store"
)

// ImportInput imports a recipe from fetched webpage content (URL set) or
// from pasted text (Source set). Save stores the result as a new recipe.
type ImportInput struct {
	URL      string `json:"url,omitempty"`
	Content  string `json:"content,omitempty"`
	Language string `json:"language,omitempty"`
	Source   string `json:"source,omitempty"`
	Save     bool   `json:"save,omitempty"`
	Author   string `json:"author,omitempty"`
}

// ImportResult is the extraction plus the stored recipe when saved.
type ImportResult struct {
	*extract.Result
	Recipe *RecipeDetail `json:"recipe,omitempty"`
}

// Import extracts a canonical document with the language model.
func (s *Service) Import(ctx context.Context, owner string, in ImportInput) (*ImportResult, error) {
	var (
		res *extract.Result
		err error
	)
	switch {
	case strings.TrimSpace(in.URL) != "":
		res, err = s.extract.FromWebpage(ctx, extract.WebpageInput{URL: in.URL, Content: in.Content, Language: in.Language})
	case strings.TrimSpace(in.Source) != "":
		res, err = s.extract.FromText(ctx, in.Source)
	default:
		return nil, apperr.Validation("url or source is required")
	}
	if err != nil {
		return nil, err
	}
	out := &ImportResult{Result: res}
	if !in.Save {
		return out, nil
	}
	d, err := s.CreateRecipe(ctx, owner, CreateRecipeInput{Name: res.Name, Document: res.Document, Author: in.Author})
	if err != nil {
		return nil, err
	}
	out.Recipe = d
	return out, nil
}

// VoiceInput is one voice command. The recipe is either a stored version
// (RecipeSlug plus optional VersionID, latest by default) or an inline
// Document. Apply stores the updated recipe as a new version of the stored
// recipe.
type VoiceInput struct {
	Transcription string           `json:"transcription"`
	RecipeSlug    string           `json:"recipe_slug,omitempty"`
	VersionID     *int64           `json:"version_id,omitempty"`
	Document      *recipe.Document `json:"recipe,omitempty"`
	History       []llm.Message    `json:"conversation_history,omitempty"`
	Apply         bool             `json:"apply,omitempty"`
	Author        string           `json:"author,omitempty"`
}

// VoiceResult is the engine response plus the stored version when applied.
type VoiceResult struct {
	*mutation.Response
	AppliedVersion *VersionDetail `json:"applied_version,omitempty"`
}

// VoiceCommand interprets a spoken modification request.
func (s *Service) VoiceCommand(ctx context.Context, owner string, in VoiceInput) (*VoiceResult, error) {
	var (
		r   *store.Recipe
		doc = in.Document
	)
	if in.RecipeSlug != "" {
		rr, v, err := s.resolveVersion(ctx, owner, in.RecipeSlug, in.VersionID)
		if err != nil {
			return nil, err
		}
		r, doc = rr, ToDocument(rr, v)
	}
	if doc == nil {
		return nil, apperr.Validation("recipe_slug or recipe is required")
	}
	if in.Apply && r == nil {
		return nil, apperr.Validation("apply requires recipe_slug")
	}

	resp, err := s.mutation.Process(ctx, mutation.Request{
		Transcription: in.Transcription,
		Document:      doc,
		History:       in.History,
	})
	if err != nil {
		return nil, err
	}
	out := &VoiceResult{Response: resp}
	if !in.Apply || resp.IsClarification() {
		return out, nil
	}

	// The mutated version is the parent; nil means the latest.
	v, err := s.createVersion(ctx, r, CreateVersionInput{
		Document:        resp.UpdatedRecipe,
		Version:         resp.SuggestedNextVersion,
		ParentVersionID: in.VersionID,
		CommitMessage:   resp.CommitMessage,
		Author:          in.Author,
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("voice command applied",
		slog.String("slug", r.Slug),
		slog.String("intent", resp.Intent),
		slog.String("version", v.Version))
	out.AppliedVersion = v
	return out, nil
}

// GuideInput is one guidance message. The recipe is a stored version
// (RecipeSlug plus optional VersionID) or an inline Document; both may be
// absent. With SessionID the exchange is appended to that session's log.
type GuideInput struct {
	Message     string           `json:"message"`
	RecipeSlug  string           `json:"recipe_slug,omitempty"`
	VersionID   *int64           `json:"version_id,omitempty"`
	Document    *recipe.Document `json:"recipe,omitempty"`
	CurrentStep int              `json:"current_step"`
	History     []llm.Message    `json:"conversation_history,omitempty"`
	SessionID   *int64           `json:"session_id,omitempty"`
}

// GuideReply is the assistant's answer.
type GuideReply struct {
	Response string `json:"response"`
}

// Guide answers a cooking question in the context of a recipe.
func (s *Service) Guide(ctx context.Context, owner string, in GuideInput) (*GuideReply, error) {
	doc := in.Document
	var r *store.Recipe
	if in.RecipeSlug != "" {
		rr, v, err := s.resolveVersion(ctx, owner, in.RecipeSlug, in.VersionID)
		if err != nil {
			return nil, err
		}
		r, doc = rr, ToDocument(rr, v)
	}
	if in.SessionID != nil && r == nil {
		return nil, apperr.Validation("session_id requires recipe_slug")
	}

	reply, err := s.guide.Reply(ctx, guide.Input{
		Recipe:      doc,
		CurrentStep: in.CurrentStep,
		History:     in.History,
		Message:     in.Message,
	})
	if err != nil {
		return nil, err
	}

	if in.SessionID != nil {
		if err := s.appendSessionLog(ctx, r.ID, *in.SessionID, in.CurrentStep, in.Message, reply); err != nil {
			return nil, err
		}
	}
	return &GuideReply{Response: reply}, nil
}

func (s *Service) appendSessionLog(ctx context.Context, recipeID string, id int64, step int, message, reply string) error {
	sess, err := s.repo.GetSession(ctx, recipeID, id)
	if err != nil {
		return err
	}
	at := s.now().UTC().Format(time.RFC3339)
	logs := append(sess.LogEntries,
		store.LogEntry{Role: llm.RoleUser, Content: message, At: at},
		store.LogEntry{Role: llm.RoleAssistant, Content: reply, At: at},
	)
	_, err = s.repo.UpdateSession(ctx, recipeID, id, store.SessionUpdate{
		CurrentStepIndex: &step,
		LogEntries:       &logs,
	})
	return err
}

// ListAddenda returns the language addenda in effect.
func (s *Service) ListAddenda() []prompts.Addendum {
	if s.addenda == nil {
		return []prompts.Addendum{}
	}
	return s.addenda.List()
}

// PutAddendum writes a language addendum file.
func (s *Service) PutAddendum(language, text string) (prompts.Addendum, error) {
	if s.addenda == nil {
		return prompts.Addendum{}, apperr.Configuration("prompt addenda")
	}
	return s.addenda.Put(language, text)
}

// RemoveAddendum deletes a language addendum file.
func (s *Service) RemoveAddendum(language string) error {
	if s.addenda == nil {
		return apperr.Configuration("prompt addenda")
	}
	removed, err := s.addenda.Remove(language)
	if err != nil {
		return err
	}
	if !removed {
		return apperr.NotFound("no addendum file for %q", language)
	}
	return nil
}
