package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/starford/ladle/internal/apperr"
)

func TestSessionLifecycle(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	r, _ := db.CreateRecipe(ctx, "alice", "Risotto")
	v, _ := db.CreateVersion(ctx, r.ID, testDoc("Risotto", "rice"), VersionInput{})

	s, err := db.CreateSession(ctx, r.ID, v.ID, Session{Owner: "alice", SessionNotes: "first try"})
	if err != nil {
		t.Fatalf("CreateSession: %v", err)
	}
	if s.VersionID != v.ID || s.StartedAt.IsZero() || s.EndedAt != nil {
		t.Errorf("session = %+v", s)
	}
	if s.LogEntries == nil || s.StepDurations == nil || s.Photos == nil {
		t.Error("collections should decode as empty, not nil")
	}

	step := 3
	rating := 4.5
	logs := []LogEntry{{Role: "user", Content: "How long do I stir?"}, {Role: "assistant", Content: "About 18 minutes."}}
	durations := []int{60, 120, 1080}
	ended := time.Date(2026, 1, 2, 19, 30, 0, 0, time.UTC)
	updated, err := db.UpdateSession(ctx, r.ID, s.ID, SessionUpdate{
		CurrentStepIndex: &step,
		LogEntries:       &logs,
		StepDurations:    &durations,
		Rating:           &rating,
		EndedAt:          &ended,
	})
	if err != nil {
		t.Fatalf("UpdateSession: %v", err)
	}
	if updated.CurrentStepIndex != 3 || len(updated.LogEntries) != 2 || updated.SessionNotes != "first try" {
		t.Errorf("updated = %+v", updated)
	}

	got, err := db.GetSession(ctx, r.ID, s.ID)
	if err != nil {
		t.Fatalf("GetSession: %v", err)
	}
	if got.Rating == nil || *got.Rating != 4.5 {
		t.Errorf("rating = %v", got.Rating)
	}
	if len(got.StepDurations) != 3 || got.StepDurations[2] != 1080 {
		t.Errorf("durations = %v", got.StepDurations)
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(ended) {
		t.Errorf("ended = %v", got.EndedAt)
	}
	if got.LogEntries[1].Content != "About 18 minutes." {
		t.Errorf("log = %+v", got.LogEntries)
	}

	list, err := db.ListSessions(ctx, r.ID)
	if err != nil || len(list) != 1 {
		t.Fatalf("ListSessions = %v, %v", list, err)
	}

	if err := db.DeleteSession(ctx, r.ID, s.ID); err != nil {
		t.Fatalf("DeleteSession: %v", err)
	}
	if _, err := db.GetSession(ctx, r.ID, s.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetSession after delete err = %v", err)
	}
}

func TestCreateSession_VersionMustBelongToRecipe(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	a, _ := db.CreateRecipe(ctx, "", "A")
	b, _ := db.CreateRecipe(ctx, "", "B")
	va, _ := db.CreateVersion(ctx, a.ID, testDoc("A"), VersionInput{})

	if _, err := db.CreateSession(ctx, b.ID, va.ID, Session{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want not found", err)
	}

	s, err := db.CreateSession(ctx, a.ID, va.ID, Session{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.GetSession(ctx, b.ID, s.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("cross-recipe GetSession err = %v", err)
	}
}

func TestUpdateSession_Validation(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()
	r, _ := db.CreateRecipe(ctx, "", "A")
	v, _ := db.CreateVersion(ctx, r.ID, testDoc("A"), VersionInput{})
	s, _ := db.CreateSession(ctx, r.ID, v.ID, Session{})

	bad := 7.0
	if _, err := db.UpdateSession(ctx, r.ID, s.ID, SessionUpdate{Rating: &bad}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("rating err = %v", err)
	}
	neg := -1
	if _, err := db.UpdateSession(ctx, r.ID, s.ID, SessionUpdate{CurrentStepIndex: &neg}); !errors.Is(err, apperr.ErrValidation) {
		t.Errorf("step err = %v", err)
	}
	if _, err := db.UpdateSession(ctx, r.ID, 4242, SessionUpdate{}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing session err = %v", err)
	}
}
