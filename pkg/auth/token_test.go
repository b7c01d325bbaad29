package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrovista/farmsight-go/pkg/auth"
)

// mintToken creates a signed HS256 token with the given claims.
func mintToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestParseClaims(t *testing.T) {
	signed := mintToken(t, jwt.MapClaims{
		"sub":       "user-1",
		"email":     "grower@farm.example",
		"tenant_id": "tenant-1",
		"exp":       time.Now().Add(time.Hour).Unix(),
		"iat":       time.Now().Unix(),
	})

	claims, err := auth.ParseClaims(signed)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Sub)
	assert.Equal(t, "grower@farm.example", claims.Email)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Greater(t, claims.Exp, time.Now().Unix())
}

func TestParseClaims_Invalid(t *testing.T) {
	cases := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"not a jwt", "just-a-string"},
		{"two segments", "abc.def"},
		{"four segments", "a.b.c.d"},
		{"empty payload", "header..signature"},
		{"payload not base64", "header.!!!.signature"},
		{"payload not json", "header.bm90LWpzb24.signature"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := auth.ParseClaims(tc.token)
			assert.ErrorIs(t, err, auth.ErrInvalidToken)
		})
	}
}

func TestIsExpired(t *testing.T) {
	// A token with plenty of time left is valid.
	fresh := mintToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	assert.False(t, auth.IsExpired(fresh))

	// A token already past its expiry counts as expired.
	stale := mintToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(-time.Minute).Unix(),
	})
	assert.True(t, auth.IsExpired(stale))
}

func TestIsExpired_Buffer(t *testing.T) {
	// A token expiring within the 60-second safety buffer is treated as
	// expired even though the server would still accept it.
	almostExpired := mintToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(30 * time.Second).Unix(),
	})
	assert.True(t, auth.IsExpired(almostExpired))

	// Just outside the buffer it is still valid.
	outsideBuffer := mintToken(t, jwt.MapClaims{
		"sub": "user-1",
		"exp": time.Now().Add(90 * time.Second).Unix(),
	})
	assert.False(t, auth.IsExpired(outsideBuffer))
}

func TestIsExpired_FailClosed(t *testing.T) {
	// Structurally invalid tokens count as expired.
	assert.True(t, auth.IsExpired("garbage"))
	assert.True(t, auth.IsExpired(""))

	// A token without an exp claim counts as expired.
	noExp := mintToken(t, jwt.MapClaims{"sub": "user-1"})
	assert.True(t, auth.IsExpired(noExp))
}
