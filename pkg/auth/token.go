// Package auth provides access-token lifecycle management: expiry
// detection with a safety buffer and single-flight token refresh.
package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// ErrInvalidToken indicates a structurally invalid access token.
var ErrInvalidToken = errors.New("invalid token")

// expiryBuffer is subtracted from the token expiry so a token is refreshed
// shortly before the server would reject it.
const expiryBuffer = 60 * time.Second

// Claims holds the token claims the manager cares about.
type Claims struct {
	// Sub is the subject (user ID).
	Sub string `json:"sub"`

	// Email is the user email.
	Email string `json:"email"`

	// TenantID is the farm organization the token is scoped to.
	TenantID string `json:"tenant_id"`

	// Exp is the expiration time as Unix seconds.
	Exp int64 `json:"exp"`

	// Iat is the issued-at time as Unix seconds.
	Iat int64 `json:"iat"`
}

// ParseClaims parses the claims from a JWT token without signature
// verification. Signature verification is the server's concern; the client
// only needs the expiry to decide when to refresh.
//
// Returns ErrInvalidToken for any structural failure: wrong segment count,
// undecodable payload, or non-JSON claims.
func ParseClaims(tokenString string) (*Claims, error) {
	// JWT format: header.payload.signature
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidToken
	}
	if parts[1] == "" {
		return nil, ErrInvalidToken
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrInvalidToken
	}

	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, ErrInvalidToken
	}

	return &claims, nil
}

// IsExpired reports whether the token should be considered expired.
//
// A token counts as expired when it is structurally invalid, lacks a
// positive exp claim, or expires within the 60-second safety buffer.
// Every failure path yields true (fail-closed).
func IsExpired(tokenString string) bool {
	claims, err := ParseClaims(tokenString)
	if err != nil {
		return true
	}
	if claims.Exp <= 0 {
		return true
	}

	expiresAt := time.Unix(claims.Exp, 0)
	return !time.Now().Before(expiresAt.Add(-expiryBuffer))
}
