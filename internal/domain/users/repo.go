package users

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Store interface {
	Create(ctx context.Context, u User) (User, error)
	GetByUsername(ctx context.Context, username string) (User, error)
	GetByID(ctx context.Context, id int64) (User, error)

	CreateSession(ctx context.Context, s Session) error
	GetSession(ctx context.Context, token string) (Session, error)
	DeleteSession(ctx context.Context, token string) error
}

type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo { return &Repo{pool: pool} }

var (
	_ Store = (*Repo)(nil)
	_ Store = (*MemRepo)(nil)
)

func (r *Repo) Create(ctx context.Context, u User) (User, error) {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (username, password_hash, full_name, created_at)
		VALUES ($1,$2,$3,$4)
		RETURNING id
	`, u.Username, u.PasswordHash, u.FullName, u.CreatedAt).Scan(&u.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return User{}, ErrUsernameTaken
		}
		return User{}, err
	}
	return u, nil
}

func (r *Repo) GetByUsername(ctx context.Context, username string) (User, error) {
	return r.getOne(ctx, `WHERE username = $1`, username)
}

func (r *Repo) GetByID(ctx context.Context, id int64) (User, error) {
	return r.getOne(ctx, `WHERE id = $1`, id)
}

func (r *Repo) getOne(ctx context.Context, where string, arg any) (User, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, username, password_hash, full_name, created_at
		FROM users `+where, arg)

	var u User
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.FullName, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrNotFound
		}
		return User{}, err
	}
	return u, nil
}

func (r *Repo) CreateSession(ctx context.Context, s Session) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO sessions (token, user_id, expires_at) VALUES ($1::uuid, $2, $3)
	`, s.Token, s.UserID, s.ExpiresAt)
	return err
}

func (r *Repo) GetSession(ctx context.Context, token string) (Session, error) {
	var s Session
	err := r.pool.QueryRow(ctx, `
		SELECT token::text, user_id, expires_at FROM sessions WHERE token = $1::uuid
	`, token).Scan(&s.Token, &s.UserID, &s.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Session{}, ErrNotFound
	}
	return s, err
}

func (r *Repo) DeleteSession(ctx context.Context, token string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM sessions WHERE token = $1::uuid`, token)
	return err
}

// MemRepo — пользователи и сессии в памяти (storage.driver: memory и тесты).
type MemRepo struct {
	mu       sync.RWMutex
	seq      int64
	byID     map[int64]User
	sessions map[string]Session
}

func NewMemRepo() *MemRepo {
	return &MemRepo{byID: map[int64]User{}, sessions: map[string]Session{}}
}

func (r *MemRepo) Create(_ context.Context, u User) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, ex := range r.byID {
		if ex.Username == u.Username {
			return User{}, ErrUsernameTaken
		}
	}
	r.seq++
	u.ID = r.seq
	r.byID[u.ID] = u
	return u, nil
}

func (r *MemRepo) GetByUsername(_ context.Context, username string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (r *MemRepo) GetByID(_ context.Context, id int64) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (r *MemRepo) CreateSession(_ context.Context, s Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[s.UserID]; !ok {
		return fmt.Errorf("user %d: %w", s.UserID, ErrNotFound)
	}
	r.sessions[s.Token] = s
	return nil
}

func (r *MemRepo) GetSession(_ context.Context, token string) (Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[token]
	if !ok {
		return Session{}, ErrNotFound
	}
	return s, nil
}

func (r *MemRepo) DeleteSession(_ context.Context, token string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, token)
	return nil
}
