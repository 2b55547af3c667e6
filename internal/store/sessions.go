package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/starford/ladle/internal/apperr"
)

// LogEntry is one turn of a cooking session's guidance conversation.
type LogEntry struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	At      string `json:"at,omitempty"`
}

// Session is one cooking run of a specific recipe version.
type Session struct {
	ID               int64
	Owner            string
	VersionID        int64
	StartedAt        time.Time
	EndedAt          *time.Time
	CurrentStepIndex int
	LogEntries       []LogEntry
	SessionNotes     string
	StepDurations    []int
	Rating           *float64
	Modifications    string
	Photos           []string
}

// SessionUpdate lists the mutable session fields; nil leaves a field as
// is. The recipe version of a session never changes.
type SessionUpdate struct {
	CurrentStepIndex *int
	LogEntries       *[]LogEntry
	SessionNotes     *string
	StepDurations    *[]int
	Rating           *float64
	Modifications    *string
	Photos           *[]string
	EndedAt          *time.Time
}

const sessionColumns = `s.id, COALESCE(s.owner, ''), s.recipe_version_id, s.started_at, s.ended_at,
	s.current_step_index, s.log_entries, s.session_notes, s.step_durations_seconds,
	s.rating, s.modifications, s.photos`

func scanSession(row interface{ Scan(...any) error }) (*Session, error) {
	var (
		s                       Session
		ended                   sql.NullTime
		rating                  sql.NullFloat64
		logs, durations, photos string
	)
	if err := row.Scan(&s.ID, &s.Owner, &s.VersionID, &s.StartedAt, &ended,
		&s.CurrentStepIndex, &logs, &s.SessionNotes, &durations,
		&rating, &s.Modifications, &photos); err != nil {
		return nil, err
	}
	if ended.Valid {
		t := ended.Time
		s.EndedAt = &t
	}
	if rating.Valid {
		r := rating.Float64
		s.Rating = &r
	}
	if err := decodeJSONColumn(logs, &s.LogEntries); err != nil {
		return nil, err
	}
	if err := decodeJSONColumn(durations, &s.StepDurations); err != nil {
		return nil, err
	}
	if err := decodeJSONColumn(photos, &s.Photos); err != nil {
		return nil, err
	}
	if s.LogEntries == nil {
		s.LogEntries = []LogEntry{}
	}
	if s.StepDurations == nil {
		s.StepDurations = []int{}
	}
	if s.Photos == nil {
		s.Photos = []string{}
	}
	return &s, nil
}

func decodeJSONColumn(raw string, dst any) error {
	if raw == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		return fmt.Errorf("store: decode json column: %w", err)
	}
	return nil
}

func encodeJSONColumn(v any) string {
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return "[]"
	}
	return string(data)
}

func validateSession(s *Session) error {
	if s.CurrentStepIndex < 0 {
		return apperr.Validation("current_step_index must not be negative")
	}
	if s.Rating != nil && (*s.Rating < 0 || *s.Rating > 5) {
		return apperr.Validation("rating must be between 0 and 5")
	}
	for _, d := range s.StepDurations {
		if d < 0 {
			return apperr.Validation("step durations must not be negative")
		}
	}
	return nil
}

// CreateSession starts a cooking session for versionID, which must belong
// to recipeID.
func (db *DB) CreateSession(ctx context.Context, recipeID string, versionID int64, s Session) (*Session, error) {
	if err := validateSession(&s); err != nil {
		return nil, err
	}
	var out *Session
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		var n int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM recipe_versions WHERE id = ? AND recipe_id = ?`, versionID, recipeID).Scan(&n); err != nil {
			return fmt.Errorf("store: check version: %w", err)
		}
		if n == 0 {
			return apperr.NotFound("recipe version not found for this recipe")
		}
		s.VersionID = versionID
		s.StartedAt = db.timestamp()
		res, err := tx.ExecContext(ctx, `
			INSERT INTO cooking_sessions (owner, recipe_version_id, started_at, ended_at, current_step_index,
				log_entries, session_notes, step_durations_seconds, rating, modifications, photos)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, ownerArg(s.Owner), s.VersionID, s.StartedAt, nullableTime(s.EndedAt), s.CurrentStepIndex,
			encodeJSONColumn(s.LogEntries), s.SessionNotes, encodeJSONColumn(s.StepDurations),
			nullableFloat(s.Rating), s.Modifications, encodeJSONColumn(s.Photos))
		if err != nil {
			return fmt.Errorf("store: insert session: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("store: session id: %w", err)
		}
		out, err = getSessionTx(ctx, tx, recipeID, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func getSessionTx(ctx context.Context, tx *sql.Tx, recipeID string, id int64) (*Session, error) {
	s, err := scanSession(tx.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM cooking_sessions s
		JOIN recipe_versions v ON v.id = s.recipe_version_id
		WHERE s.id = ? AND v.recipe_id = ?`, id, recipeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("session %d not found for this recipe", id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get session: %w", err)
	}
	return s, nil
}

// GetSession returns a session of recipeID.
func (db *DB) GetSession(ctx context.Context, recipeID string, id int64) (*Session, error) {
	s, err := scanSession(db.conn.QueryRowContext(ctx, `
		SELECT `+sessionColumns+` FROM cooking_sessions s
		JOIN recipe_versions v ON v.id = s.recipe_version_id
		WHERE s.id = ? AND v.recipe_id = ?`, id, recipeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("session %d not found for this recipe", id)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get session: %w", err)
	}
	return s, nil
}

// ListSessions returns the sessions of every version of recipeID, most
// recent first.
func (db *DB) ListSessions(ctx context.Context, recipeID string) ([]Session, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT `+sessionColumns+` FROM cooking_sessions s
		JOIN recipe_versions v ON v.id = s.recipe_version_id
		WHERE v.recipe_id = ?
		ORDER BY s.started_at DESC, s.id DESC`, recipeID)
	if err != nil {
		return nil, fmt.Errorf("store: list sessions: %w", err)
	}
	defer rows.Close()

	out := []Session{}
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

// UpdateSession applies u to a session of recipeID.
func (db *DB) UpdateSession(ctx context.Context, recipeID string, id int64, u SessionUpdate) (*Session, error) {
	var out *Session
	err := db.inTx(ctx, func(tx *sql.Tx) error {
		s, err := getSessionTx(ctx, tx, recipeID, id)
		if err != nil {
			return err
		}
		if u.CurrentStepIndex != nil {
			s.CurrentStepIndex = *u.CurrentStepIndex
		}
		if u.LogEntries != nil {
			s.LogEntries = *u.LogEntries
		}
		if u.SessionNotes != nil {
			s.SessionNotes = *u.SessionNotes
		}
		if u.StepDurations != nil {
			s.StepDurations = *u.StepDurations
		}
		if u.Rating != nil {
			r := *u.Rating
			s.Rating = &r
		}
		if u.Modifications != nil {
			s.Modifications = *u.Modifications
		}
		if u.Photos != nil {
			s.Photos = *u.Photos
		}
		if u.EndedAt != nil {
			t := u.EndedAt.UTC()
			s.EndedAt = &t
		}
		if err := validateSession(s); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE cooking_sessions SET
				ended_at = ?, current_step_index = ?, log_entries = ?, session_notes = ?,
				step_durations_seconds = ?, rating = ?, modifications = ?, photos = ?
			WHERE id = ?
		`, nullableTime(s.EndedAt), s.CurrentStepIndex, encodeJSONColumn(s.LogEntries), s.SessionNotes,
			encodeJSONColumn(s.StepDurations), nullableFloat(s.Rating), s.Modifications,
			encodeJSONColumn(s.Photos), s.ID)
		if err != nil {
			return fmt.Errorf("store: update session: %w", err)
		}
		out = s
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// DeleteSession removes a session of recipeID.
func (db *DB) DeleteSession(ctx context.Context, recipeID string, id int64) error {
	return db.inTx(ctx, func(tx *sql.Tx) error {
		if _, err := getSessionTx(ctx, tx, recipeID, id); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM cooking_sessions WHERE id = ?`, id); err != nil {
			return fmt.Errorf("store: delete session: %w", err)
		}
		return nil
	})
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return *t
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
