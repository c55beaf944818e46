package models

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"eventhub/utils"
)

// Postgres error codes we translate into store errors.
const (
	pqUniqueViolation     = "23505"
	pqForeignKeyViolation = "23503"
)

type sqlUserRepo struct {
	db      *sqlx.DB
	timeout time.Duration
}

// NewSQLUserRepository keeps users in Postgres; a user's registered events
// live in user_registered_events, one row per (user, event).
func NewSQLUserRepository(db *sqlx.DB, timeout time.Duration) UserRepository {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &sqlUserRepo{db: db, timeout: timeout}
}

func (r *sqlUserRepo) Create(ctx context.Context, u *User) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	hashed, err := utils.HashPassword(u.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	u.ID = uuid.NewString()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	u.Password = hashed
	u.CreatedAt = time.Now().UTC()
	u.RegisteredEvents = []string{}

	_, err = r.db.NamedExecContext(ctx,
		`INSERT INTO users (id, name, email, password, created_at)
		 VALUES (:id, :name, :email, :password, :created_at)`, u)
	if err != nil {
		if pqCode(err) == pqUniqueViolation {
			return ErrEmailTaken
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *sqlUserRepo) ValidateCredentials(ctx context.Context, email, plain string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var u User
	err := r.db.GetContext(ctx, &u,
		`SELECT id, name, email, password, created_at FROM users WHERE email = $1`,
		strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, fmt.Errorf("load user: %w", err)
	}
	if !utils.CheckPasswordHash(plain, u.Password) {
		return User{}, ErrInvalidCredentials
	}
	return u, nil
}

func (r *sqlUserRepo) GetByID(ctx context.Context, id string) (User, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var u User
	err := r.db.GetContext(ctx, &u,
		`SELECT id, name, email, password, created_at FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}

	u.RegisteredEvents = []string{}
	err = r.db.SelectContext(ctx, &u.RegisteredEvents,
		`SELECT event_id FROM user_registered_events
		 WHERE user_id = $1
		 ORDER BY registered_at, event_id`, id)
	if err != nil {
		return User{}, fmt.Errorf("load registered events: %w", err)
	}
	return u, nil
}

func (r *sqlUserRepo) GetSummaries(ctx context.Context, ids []string) (map[string]CreatorSummary, error) {
	out := make(map[string]CreatorSummary, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var rows []CreatorSummary
	err := r.db.SelectContext(ctx, &rows,
		`SELECT id, name, email FROM users WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("load user summaries: %w", err)
	}
	for _, s := range rows {
		out[s.ID] = s
	}
	return out, nil
}

// AddRegisteredEvent is a set-insert: a repeated insert is a no-op.
func (r *sqlUserRepo) AddRegisteredEvent(ctx context.Context, id, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_registered_events (user_id, event_id, registered_at)
		 VALUES ($1, $2, now())
		 ON CONFLICT (user_id, event_id) DO NOTHING`, id, eventID)
	if err != nil {
		if pqCode(err) == pqForeignKeyViolation {
			return ErrNotFound
		}
		return fmt.Errorf("add registered event: %w", err)
	}
	return nil
}

// RemoveRegisteredEvent is a set-remove: removing an absent reference is a no-op.
func (r *sqlUserRepo) RemoveRegisteredEvent(ctx context.Context, id, eventID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx,
		`DELETE FROM user_registered_events WHERE user_id = $1 AND event_id = $2`, id, eventID)
	if err != nil {
		return fmt.Errorf("remove registered event: %w", err)
	}
	return nil
}

func (r *sqlUserRepo) ScanRegistrations(ctx context.Context, fn func(userID string, eventIDs []string) error) error {
	rows, err := r.db.QueryxContext(ctx,
		`SELECT user_id, event_id FROM user_registered_events ORDER BY user_id, event_id`)
	if err != nil {
		return fmt.Errorf("scan registrations: %w", err)
	}
	defer rows.Close()

	var (
		current string
		batch   []string
	)
	for rows.Next() {
		var userID, eventID string
		if err := rows.Scan(&userID, &eventID); err != nil {
			return fmt.Errorf("scan registration row: %w", err)
		}
		if userID != current && batch != nil {
			if err := fn(current, batch); err != nil {
				return err
			}
			batch = nil
		}
		current = userID
		batch = append(batch, eventID)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("scan registrations: %w", err)
	}
	if batch != nil {
		return fn(current, batch)
	}
	return nil
}

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}
