package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/config"
	"github.com/dmehra2102/prod-golang-projects/dentaflow/internal/domain"
	"github.com/google/uuid"
)

func newTestManager() *JWTManager {
	return NewJWTManager(config.JWTConfig{
		Secret:          "test-secret-that-is-long-enough-for-hs256",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: time.Hour,
		Issuer:          "dentaflow-test",
	})
}

func TestJWTManager_RoundTrip(t *testing.T) {
	m := newTestManager()
	in := &domain.Claims{UserID: uuid.New(), Email: "front@clinic.test", Role: domain.RoleReceptionist}

	pair, err := m.GenerateTokenPair(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	out, err := m.ValidateAccessToken(pair.AccessToken)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.UserID != in.UserID || out.Role != in.Role || out.Email != in.Email {
		t.Errorf("claims mismatch: got %+v", out)
	}
}

func TestJWTManager_TokenTypeMismatch(t *testing.T) {
	m := newTestManager()
	pair, err := m.GenerateTokenPair(&domain.Claims{UserID: uuid.New(), Role: domain.RoleDentist})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := m.ValidateAccessToken(pair.RefreshToken); !errors.Is(err, ErrTokenTypeMismatch) {
		t.Errorf("expected ErrTokenTypeMismatch, got %v", err)
	}
}

func TestJWTManager_Expired(t *testing.T) {
	m := newTestManager()
	issued := time.Date(2026, 10, 14, 8, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return issued }

	pair, err := m.GenerateTokenPair(&domain.Claims{UserID: uuid.New(), Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	m.now = func() time.Time { return issued.Add(time.Hour) }
	if _, err := m.ValidateAccessToken(pair.AccessToken); !errors.Is(err, ErrTokenExpired) {
		t.Errorf("expected ErrTokenExpired, got %v", err)
	}
}

func TestJWTManager_WrongSecret(t *testing.T) {
	pair, err := newTestManager().GenerateTokenPair(&domain.Claims{UserID: uuid.New(), Role: domain.RoleAdmin})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := NewJWTManager(config.JWTConfig{Secret: "a-different-secret-value-for-testing", Issuer: "dentaflow-test"})
	if _, err := other.ValidateAccessToken(pair.AccessToken); !errors.Is(err, ErrTokenInvalid) {
		t.Errorf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestJWTManager_RejectsUnknownRole(t *testing.T) {
	if _, err := newTestManager().GenerateTokenPair(&domain.Claims{UserID: uuid.New(), Role: "janitor"}); err == nil {
		t.Error("expected error for unknown role")
	}
}
