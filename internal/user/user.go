// Package user mirrors identity-provider accounts into the local users table.
package user

import (
	"context"
	"database/sql"
	"strings"
	"sync"
	"time"

	"gamedoc/pkg/apperr"
	"gamedoc/pkg/logger"
	"gamedoc/store"
)

type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type UserRepository struct {
	DB store.DBTX
}

func NewUserRepository(db store.DBTX) *UserRepository {
	return &UserRepository{DB: db}
}

// Upsert inserts the user or refreshes their email.
func (r *UserRepository) Upsert(ctx context.Context, id, email string) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO users (id, email, created_at, updated_at)
		VALUES ($1, $2, NOW(), NOW())
		ON CONFLICT (id) DO UPDATE
		SET email = EXCLUDED.email, updated_at = NOW()
		WHERE users.email <> EXCLUDED.email`, id, email)
	if err != nil {
		logger.Sugar.Errorf("Failed to upsert user %s: %v", id, err)
	}
	return apperr.FromDB(err, "upsert user")
}

func (r *UserRepository) Get(ctx context.Context, id string) (*User, error) {
	var u User
	err := r.DB.QueryRowContext(ctx, "SELECT id, email, created_at, updated_at FROM users WHERE id = $1", id).
		Scan(&u.ID, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to get user %s: %v", id, err)
		}
		return nil, apperr.FromDB(err, "get user")
	}
	return &u, nil
}

// GetByEmail matches case-insensitively.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	err := r.DB.QueryRowContext(ctx, "SELECT id, email, created_at, updated_at FROM users WHERE lower(email) = lower($1)", strings.TrimSpace(email)).
		Scan(&u.ID, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if err != sql.ErrNoRows {
			logger.Sugar.Errorf("Failed to get user by email: %v", err)
		}
		return nil, apperr.FromDB(err, "get user by email")
	}
	return &u, nil
}

// Syncer upserts each (id, email) pair at most once per process.
type Syncer struct {
	Repo *UserRepository

	mu   sync.Mutex
	seen map[string]string
}

func NewSyncer(db *sql.DB) *Syncer {
	return &Syncer{Repo: NewUserRepository(db), seen: make(map[string]string)}
}

func (s *Syncer) Sync(ctx context.Context, id, email string) error {
	s.mu.Lock()
	known, ok := s.seen[id]
	s.mu.Unlock()
	if ok && known == email {
		return nil
	}

	if err := s.Repo.Upsert(ctx, id, email); err != nil {
		return err
	}

	s.mu.Lock()
	s.seen[id] = email
	s.mu.Unlock()
	return nil
}
