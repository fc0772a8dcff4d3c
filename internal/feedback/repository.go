package feedback

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"
)

type Repository interface {
	Save(ctx context.Context, f *Feedback) error
	List(ctx context.Context, limit int) ([]Feedback, error)
}

type postgresRepo struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) Repository {
	return &postgresRepo{db: db}
}

func (r *postgresRepo) Save(ctx context.Context, f *Feedback) error {
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	query := `INSERT INTO feedback (id, username, message, created_at) VALUES ($1, $2, $3, $4)`
	if _, err := r.db.ExecContext(ctx, query, f.ID, f.Username, f.Message, f.CreatedAt); err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}
	return nil
}

func (r *postgresRepo) List(ctx context.Context, limit int) ([]Feedback, error) {
	query := `SELECT id, username, message, created_at FROM feedback ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	defer rows.Close()

	out := []Feedback{}
	for rows.Next() {
		var f Feedback
		if err := rows.Scan(&f.ID, &f.Username, &f.Message, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list feedback: %w", err)
	}
	return out, nil
}

type memoryRepo struct {
	mu    sync.Mutex
	items []Feedback
}

// NewMemoryRepository keeps feedback in memory, newest last.
func NewMemoryRepository() Repository {
	return &memoryRepo{}
}

func (r *memoryRepo) Save(ctx context.Context, f *Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now()
	}
	r.items = append(r.items, *f)
	return nil
}

func (r *memoryRepo) List(ctx context.Context, limit int) ([]Feedback, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []Feedback{}
	for i := len(r.items) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		out = append(out, r.items[i])
	}
	return out, nil
}
