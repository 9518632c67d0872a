package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssuePairRoundTrip(t *testing.T) {
	iss, err := NewIssuer("s3cret", "dev", time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("new issuer: %v", err)
	}
	pair, err := iss.IssuePair(Identity{UserID: "u1", Email: "a@b.com", Username: "alice", Role: "admin"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := iss.Verify(pair.Access, TokenAccess)
	if err != nil {
		t.Fatalf("verify access: %v", err)
	}
	if claims.UserID() != "u1" || claims.Role != "admin" || claims.Username != "alice" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := iss.Verify(pair.Refresh, TokenAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected refresh token rejected as access, got %v", err)
	}
	if _, err := iss.Verify(pair.Refresh, TokenRefresh); err != nil {
		t.Fatalf("verify refresh: %v", err)
	}
}

func TestVerifyRejectsExpiredAndForeignTokens(t *testing.T) {
	iss, _ := NewIssuer("s3cret", "dev", time.Minute, time.Hour)
	base := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)
	iss.now = func() time.Time { return base }

	tok, err := iss.IssueAccess(Identity{UserID: "u1"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	iss.now = func() time.Time { return base.Add(2 * time.Minute) }
	if _, err := iss.Verify(tok, TokenAccess); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token rejected, got %v", err)
	}

	other, _ := NewIssuer("different", "dev", time.Minute, time.Hour)
	other.now = func() time.Time { return base }
	iss.now = func() time.Time { return base }
	if _, err := other.Verify(tok, ""); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected foreign signature rejected, got %v", err)
	}
}

func TestNewIssuerRequiresSecretInProduction(t *testing.T) {
	if _, err := NewIssuer("", "production", 0, 0); !errors.Is(err, ErrMissingSecret) {
		t.Fatalf("expected ErrMissingSecret, got %v", err)
	}
	if _, err := NewIssuer("", "dev", 0, 0); err != nil {
		t.Fatalf("dev should fall back to default secret: %v", err)
	}
}
