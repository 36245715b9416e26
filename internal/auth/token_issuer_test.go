package auth

import (
	"context"
	"testing"
	"time"
)

func newTestIssuer(clock func() time.Time) *TokenIssuer {
	return NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("test-secret"),
		Issuer:        "peertube-federator",
		Audience:      "peertube-admin",
		TokenTTL:      15 * time.Minute,
		Clock:         clock,
	})
}

func TestIssueAndValidateAdminToken(t *testing.T) {
	issuer := newTestIssuer(func() time.Time { return time.Unix(1700000000, 0).UTC() })

	token, expiresIn, err := issuer.IssueAdminToken(context.Background(), "federation-admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if expiresIn != int64((15 * time.Minute).Seconds()) {
		t.Fatalf("unexpected expiry %d", expiresIn)
	}

	subject, err := issuer.ValidateToken(token)
	if err != nil {
		t.Fatalf("unexpected validation error: %v", err)
	}
	if subject != "federation-admin" {
		t.Fatalf("unexpected subject %q", subject)
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	current := time.Unix(1700000000, 0).UTC()
	issuer := newTestIssuer(func() time.Time { return current })

	token, _, err := issuer.IssueAdminToken(context.Background(), "federation-admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	current = current.Add(16 * time.Minute)
	if _, err := issuer.ValidateToken(token); err == nil {
		t.Fatalf("expected expired token to fail validation")
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	issuer := newTestIssuer(func() time.Time { return time.Unix(1700000000, 0).UTC() })
	token, _, err := issuer.IssueAdminToken(context.Background(), "federation-admin")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	other := NewTokenIssuer(TokenIssuerConfig{
		SigningSecret: []byte("different-secret"),
		Issuer:        "peertube-federator",
		Audience:      "peertube-admin",
	})
	if _, err := other.ValidateToken(token); err == nil {
		t.Fatalf("expected signature mismatch to fail validation")
	}
}

func TestIssueAdminTokenRequiresSubject(t *testing.T) {
	issuer := newTestIssuer(nil)
	if _, _, err := issuer.IssueAdminToken(context.Background(), ""); err == nil {
		t.Fatalf("expected missing subject to fail")
	}
}
