package users

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func newTestService() (*Service, *time.Time) {
	s := NewService(NewMemRepo(), time.Hour)
	s.cost = bcrypt.MinCost
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestService_RegisterValidation(t *testing.T) {
	s, _ := newTestService()
	tests := []struct {
		name                         string
		username, password, fullName string
	}{
		{"missing username", "", "secret1", "Ann"},
		{"missing password", "ann", "", "Ann"},
		{"short password", "ann", "123", "Ann"},
		{"missing full name", "ann", "secret1", "  "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Register(context.Background(), tt.username, tt.password, tt.fullName)
			if !errors.Is(err, ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestService_RegisterLoginLogout(t *testing.T) {
	ctx := context.Background()
	s, now := newTestService()

	u, err := s.Register(ctx, "ann", "secret1", "Ann Lee")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.PasswordHash == "secret1" || u.PasswordHash == "" {
		t.Fatalf("password must be hashed")
	}
	if _, err := s.Register(ctx, "ann", "other12", "Someone"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}

	if _, _, err := s.Login(ctx, "ann", "wrong-pass"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for bad password, got %v", err)
	}
	if _, _, err := s.Login(ctx, "bob", "secret1"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unknown user, got %v", err)
	}

	sess, got, err := s.Login(ctx, "ann", "secret1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != u.ID || !sess.ExpiresAt.Equal(now.Add(time.Hour)) {
		t.Errorf("unexpected login result %+v %+v", got, sess)
	}

	me, err := s.Authenticate(ctx, sess.Token)
	if err != nil || me.Username != "ann" {
		t.Fatalf("authenticate: %v %+v", err, me)
	}
	if _, err := s.Authenticate(ctx, "not-a-token"); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for garbage token, got %v", err)
	}

	if err := s.Logout(ctx, sess.Token); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Authenticate(ctx, sess.Token); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized after logout, got %v", err)
	}
}

func TestService_SessionExpires(t *testing.T) {
	ctx := context.Background()
	s, now := newTestService()
	if _, err := s.Register(ctx, "ann", "secret1", "Ann"); err != nil {
		t.Fatal(err)
	}
	sess, _, err := s.Login(ctx, "ann", "secret1")
	if err != nil {
		t.Fatal(err)
	}
	*now = now.Add(2 * time.Hour)
	if _, err := s.Authenticate(ctx, sess.Token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected expired session to be rejected, got %v", err)
	}
}
