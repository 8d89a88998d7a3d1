package usertoken

import (
	"context"
	"errors"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"theonebook/pkg/domain"
	"theonebook/pkg/store"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestNewVerifierRequiresSecret(t *testing.T) {
	if _, err := NewVerifier(Config{Secret: "short"}); err == nil {
		t.Fatalf("expected short secret to fail")
	}
}

func TestIssueAndVerify(t *testing.T) {
	v, err := NewVerifier(Config{Secret: testSecret})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	token, err := v.Issue(domain.User{ID: 42, Username: "joanna"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	id, err := v.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UserID != 42 || id.Username != "joanna" || id.TokenID == "" {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestVerifyDistinguishesExpired(t *testing.T) {
	v, err := NewVerifier(Config{Secret: testSecret, TTL: time.Hour, Leeway: time.Second})
	if err != nil {
		t.Fatalf("new verifier: %v", err)
	}
	issuedAt := time.Now().Add(-2 * time.Hour)
	v.now = func() time.Time { return issuedAt }
	token, err := v.Issue(domain.User{ID: 1, Username: "guest"})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	v.now = time.Now

	if _, err := v.Verify(context.Background(), token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestVerifyRejectsForgedAndMalformed(t *testing.T) {
	v, _ := NewVerifier(Config{Secret: testSecret})
	other, _ := NewVerifier(Config{Secret: "ffffffffffffffffffffffffffffffff"})
	forged, _ := other.Issue(domain.User{ID: 1, Username: "guest"})

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "1"})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	for name, token := range map[string]string{
		"empty":    "",
		"garbage":  "not-a-jwt",
		"forged":   forged,
		"alg none": unsigned,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(context.Background(), token)
			if !errors.Is(err, ErrUnauthenticated) {
				t.Fatalf("expected ErrUnauthenticated, got %v", err)
			}
		})
	}
}

func TestRevokedTokenIsUnauthenticated(t *testing.T) {
	ctx := context.Background()
	v, _ := NewVerifier(Config{Secret: testSecret, Revoker: store.NewMemoryTokenRevoker()})
	token, _ := v.Issue(domain.User{ID: 7, Username: "oksusu"})

	if err := v.Revoke(ctx, token); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := v.Verify(ctx, token); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected revoked token to be rejected, got %v", err)
	}
}
