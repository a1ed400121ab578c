package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RunSubscriptionClaims scope a token to exactly one run's stream.
type RunSubscriptionClaims struct {
	jwt.RegisteredClaims
	TenantID string `json:"tenant_id"`
	RunID    string `json:"run_id"`
}

// JWTIssuer issues and validates run-subscription tokens.
type JWTIssuer struct {
	secret []byte
}

// NewJWTIssuer creates an issuer backed by the given shared secret.
func NewJWTIssuer(secret string) *JWTIssuer {
	return &JWTIssuer{secret: []byte(secret)}
}

// IssueRunSubscriptionToken creates a short-lived JWT authorizing the
// bearer to open the stream for runID, scoped to tenantID.
func (j *JWTIssuer) IssueRunSubscriptionToken(tenantID, runID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := RunSubscriptionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   runID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "codeexec-gateway",
		},
		TenantID: tenantID,
		RunID:    runID,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.secret)
}

// ValidateRunSubscriptionToken parses and validates a run-subscription
// token, returning its claims when valid.
func (j *JWTIssuer) ValidateRunSubscriptionToken(tokenStr string) (*RunSubscriptionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &RunSubscriptionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return j.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*RunSubscriptionClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}
