package auth

import (
	"testing"
	"time"
)

func TestIssueAndValidateRunSubscriptionToken(t *testing.T) {
	issuer := NewJWTIssuer("test-secret")

	tok, err := issuer.IssueRunSubscriptionToken("acme", "run-123", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := issuer.ValidateRunSubscriptionToken(tok)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.TenantID != "acme" || claims.RunID != "run-123" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestValidateRunSubscriptionTokenRejectsExpired(t *testing.T) {
	issuer := NewJWTIssuer("test-secret")

	tok, err := issuer.IssueRunSubscriptionToken("acme", "run-123", -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := issuer.ValidateRunSubscriptionToken(tok); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestValidateRunSubscriptionTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTIssuer("test-secret")
	other := NewJWTIssuer("other-secret")

	tok, err := issuer.IssueRunSubscriptionToken("acme", "run-123", time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if _, err := other.ValidateRunSubscriptionToken(tok); err == nil {
		t.Fatal("expected token signed with a different secret to be rejected")
	}
}
