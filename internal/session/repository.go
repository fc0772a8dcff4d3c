package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type postgresRepo struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// NewRepository stores sessions in the sessions table created by the
// migrations. ttl behaves as in NewMemoryStore: updated_at is the last time
// the session was read or written.
func NewRepository(db *sql.DB, ttl time.Duration) Store {
	return &postgresRepo{db: db, ttl: ttl, now: time.Now}
}

func (r *postgresRepo) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	query := `SELECT id, username, authenticated, symptoms, has_symptoms, wizard, created_at, updated_at FROM sessions WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)

	var s Session
	var symptomsJSON, wizardJSON []byte

	err := row.Scan(
		&s.ID,
		&s.Username,
		&s.Authenticated,
		&symptomsJSON,
		&s.HasSymptoms,
		&wizardJSON,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	now := r.now()
	if r.ttl > 0 && now.Sub(s.UpdatedAt) > r.ttl {
		if err := r.Delete(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}

	if len(symptomsJSON) > 0 {
		if err := json.Unmarshal(symptomsJSON, &s.Symptoms); err != nil {
			return nil, fmt.Errorf("failed to unmarshal symptoms: %w", err)
		}
	}
	if len(wizardJSON) > 0 {
		if err := json.Unmarshal(wizardJSON, &s.Wizard); err != nil {
			return nil, fmt.Errorf("failed to unmarshal wizard: %w", err)
		}
	}

	if _, err := r.db.ExecContext(ctx, `UPDATE sessions SET updated_at = $2 WHERE id = $1`, id, now); err != nil {
		return nil, fmt.Errorf("failed to touch session: %w", err)
	}
	s.UpdatedAt = now

	s.Symptoms = clone(s.Symptoms)
	s.Wizard.Selected = clone(s.Wizard.Selected)
	s.persisted = true

	return &s, nil
}

func (r *postgresRepo) Save(ctx context.Context, s *Session) error {
	symptomsJSON, err := json.Marshal(clone(s.Symptoms))
	if err != nil {
		return err
	}
	wizardJSON, err := json.Marshal(s.Wizard)
	if err != nil {
		return err
	}

	s.UpdatedAt = r.now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = s.UpdatedAt
	}

	query := `
		INSERT INTO sessions (id, username, authenticated, symptoms, has_symptoms, wizard, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			username = $2,
			authenticated = $3,
			symptoms = $4,
			has_symptoms = $5,
			wizard = $6,
			updated_at = $8
	`
	_, err = r.db.ExecContext(ctx, query,
		s.ID, s.Username, s.Authenticated, symptomsJSON, s.HasSymptoms, wizardJSON, s.CreatedAt, s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	s.persisted = true
	return nil
}

func (r *postgresRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
