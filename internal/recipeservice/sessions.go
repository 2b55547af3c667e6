package recipeservice

import (
	"context"
	"time"

	"github.com/starford/ladle/internal/store"
)

// SessionDetail is the API shape of a cooking session.
type SessionDetail struct {
	ID                   int64            `json:"id"`
	RecipeVersionID      int64            `json:"recipe_version_id"`
	StartedAt            time.Time        `json:"started_at"`
	EndedAt              *time.Time       `json:"ended_at"`
	CurrentStepIndex     int              `json:"current_step_index"`
	LogEntries           []store.LogEntry `json:"log_entries"`
	SessionNotes         string           `json:"session_notes"`
	StepDurationsSeconds []int            `json:"step_durations_seconds"`
	Rating               *float64         `json:"rating"`
	Modifications        string           `json:"modifications"`
	Photos               []string         `json:"photos"`
}

// CreateSessionInput starts a session. A zero RecipeVersionID selects the
// latest version.
type CreateSessionInput struct {
	RecipeVersionID  int64  `json:"recipe_version_id"`
	CurrentStepIndex int    `json:"current_step_index"`
	SessionNotes     string `json:"session_notes"`
}

// UpdateSessionInput carries the fields to change; nil leaves a field as
// is. Ended marks the session finished now.
type UpdateSessionInput struct {
	CurrentStepIndex     *int              `json:"current_step_index,omitempty"`
	LogEntries           *[]store.LogEntry `json:"log_entries,omitempty"`
	SessionNotes         *string           `json:"session_notes,omitempty"`
	StepDurationsSeconds *[]int            `json:"step_durations_seconds,omitempty"`
	Rating               *float64          `json:"rating,omitempty"`
	Modifications        *string           `json:"modifications,omitempty"`
	Photos               *[]string         `json:"photos,omitempty"`
	Ended                bool              `json:"ended,omitempty"`
}

func detailSession(s *store.Session) *SessionDetail {
	return &SessionDetail{
		ID:                   s.ID,
		RecipeVersionID:      s.VersionID,
		StartedAt:            s.StartedAt,
		EndedAt:              s.EndedAt,
		CurrentStepIndex:     s.CurrentStepIndex,
		LogEntries:           nonNilSlice(s.LogEntries),
		SessionNotes:         s.SessionNotes,
		StepDurationsSeconds: nonNilSlice(s.StepDurations),
		Rating:               s.Rating,
		Modifications:        s.Modifications,
		Photos:               nonNilSlice(s.Photos),
	}
}

// CreateSession starts cooking a version of a recipe.
func (s *Service) CreateSession(ctx context.Context, owner, slug string, in CreateSessionInput) (*SessionDetail, error) {
	var id *int64
	if in.RecipeVersionID != 0 {
		id = &in.RecipeVersionID
	}
	r, v, err := s.resolveVersion(ctx, owner, slug, id)
	if err != nil {
		return nil, err
	}
	sess, err := s.repo.CreateSession(ctx, r.ID, v.ID, store.Session{
		Owner:            owner,
		CurrentStepIndex: in.CurrentStepIndex,
		SessionNotes:     in.SessionNotes,
	})
	if err != nil {
		return nil, err
	}
	return detailSession(sess), nil
}

// GetSession returns a session of a recipe.
func (s *Service) GetSession(ctx context.Context, owner, slug string, id int64) (*SessionDetail, error) {
	r, err := s.repo.GetRecipeBySlug(ctx, owner, slug)
	if err != nil {
		return nil, err
	}
	sess, err := s.repo.GetSession(ctx, r.ID, id)
	if err != nil {
		return nil, err
	}
	return detailSession(sess), nil
}

// ListSessions returns a recipe's sessions, most recent first.
func (s *Service) ListSessions(ctx context.Context, owner, slug string) ([]SessionDetail, error) {
	r, err := s.repo.GetRecipeBySlug(ctx, owner, slug)
	if err != nil {
		return nil, err
	}
	rows, err := s.repo.ListSessions(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	out := make([]SessionDetail, len(rows))
	for i := range rows {
		out[i] = *detailSession(&rows[i])
	}
	return out, nil
}

// UpdateSession changes a session's progress and notes.
func (s *Service) UpdateSession(ctx context.Context, owner, slug string, id int64, in UpdateSessionInput) (*SessionDetail, error) {
	r, err := s.repo.GetRecipeBySlug(ctx, owner, slug)
	if err != nil {
		return nil, err
	}
	u := store.SessionUpdate{
		CurrentStepIndex: in.CurrentStepIndex,
		LogEntries:       in.LogEntries,
		SessionNotes:     in.SessionNotes,
		StepDurations:    in.StepDurationsSeconds,
		Rating:           in.Rating,
		Modifications:    in.Modifications,
		Photos:           in.Photos,
	}
	if in.Ended {
		now := s.now().UTC()
		u.EndedAt = &now
	}
	sess, err := s.repo.UpdateSession(ctx, r.ID, id, u)
	if err != nil {
		return nil, err
	}
	return detailSession(sess), nil
}

// DeleteSession removes a session.
func (s *Service) DeleteSession(ctx context.Context, owner, slug string, id int64) error {
	r, err := s.repo.GetRecipeBySlug(ctx, owner, slug)
	if err != nil {
		return err
	}
	return s.repo.DeleteSession(ctx, r.ID, id)
}

// AddSessionPhoto records an uploaded photo URL on a session.
func (s *Service) AddSessionPhoto(ctx context.Context, owner, slug string, id int64, url string) (*SessionDetail, error) {
	r, err := s.repo.GetRecipeBySlug(ctx, owner, slug)
	if err != nil {
		return nil, err
	}
	sess, err := s.repo.GetSession(ctx, r.ID, id)
	if err != nil {
		return nil, err
	}
	photos := append(sess.Photos, url)
	sess, err = s.repo.UpdateSession(ctx, r.ID, id, store.SessionUpdate{Photos: &photos})
	if err != nil {
		return nil, err
	}
	return detailSession(sess), nil
}
