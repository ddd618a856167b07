package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type registration struct {
	Username string `validate:"required,max=50"`
	Password string `validate:"required,min=6,max=72"`
	FullName string `validate:"required,max=100"`
}

// Service — регистрация, вход и проверка сессий.
type Service struct {
	store Store
	ttl   time.Duration
	cost  int
	now   func() time.Time
}

func NewService(store Store, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Service{store: store, ttl: ttl, cost: bcrypt.DefaultCost, now: time.Now}
}

func (s *Service) Register(ctx context.Context, username, password, fullName string) (User, error) {
	in := registration{
		Username: strings.TrimSpace(username),
		Password: password,
		FullName: strings.TrimSpace(fullName),
	}
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			field := strings.ToLower(verrs[0].Field()[:1]) + verrs[0].Field()[1:]
			return User{}, fmt.Errorf("%w: %s failed %s", ErrValidation, field, verrs[0].Tag())
		}
		return User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.cost)
	if err != nil {
		return User{}, err
	}
	return s.store.Create(ctx, User{
		Username:     in.Username,
		FullName:     in.FullName,
		PasswordHash: string(hash),
		CreatedAt:    s.now(),
	})
}

// Login проверяет пароль и открывает сессию. Неизвестный логин и неверный пароль неразличимы.
func (s *Service) Login(ctx context.Context, username, password string) (Session, User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, User{}, fmt.Errorf("%w: username and password are required", ErrValidation)
	}
	u, err := s.store.GetByUsername(ctx, username)
	if errors.Is(err, ErrNotFound) {
		return Session{}, User{}, ErrUnauthorized
	}
	if err != nil {
		return Session{}, User{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return Session{}, User{}, ErrUnauthorized
	}

	sess := Session{
		Token:     uuid.NewString(),
		UserID:    u.ID,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return Session{}, User{}, err
	}
	return sess, u, nil
}

// Authenticate возвращает владельца живой сессии.
func (s *Service) Authenticate(ctx context.Context, token string) (User, error) {
	if _, err := uuid.Parse(token); err != nil {
		return User{}, ErrUnauthorized
	}
	sess, err := s.store.GetSession(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrUnauthorized
	}
	if err != nil {
		return User{}, err
	}
	if !sess.ExpiresAt.After(s.now()) {
		_ = s.store.DeleteSession(ctx, token)
		return User{}, ErrUnauthorized
	}
	u, err := s.store.GetByID(ctx, sess.UserID)
	if errors.Is(err, ErrNotFound) {
		return User{}, ErrUnauthorized
	}
	return u, err
}

func (s *Service) Logout(ctx context.Context, token string) error {
	if _, err := uuid.Parse(token); err != nil {
		return nil
	}
	return s.store.DeleteSession(ctx, token)
}

func (s *Service) TTL() time.Duration { return s.ttl }
