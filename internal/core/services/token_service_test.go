package services

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comitanigiacomo/kanso-grid/internal/core/clock"
)

func TestTokenService(t *testing.T) {
	const (
		secret = "super-secret-key-for-testing"
		issuer = "kanso-test"
		userID = "user-123-uuid"
	)
	issuedAt := time.Date(2024, 6, 14, 9, 0, 0, 0, time.UTC)

	t.Run("Success: Round trip", func(t *testing.T) {
		svc := NewTokenService(secret, issuer, time.Hour)

		token, err := svc.GenerateToken(userID)
		require.NoError(t, err)

		got, err := svc.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, userID, got)
	})

	t.Run("Success: Claims carry issuer and lifetime", func(t *testing.T) {
		clk := clock.NewFake(issuedAt)
		token, err := NewTokenService(secret, issuer, 2*time.Hour, WithTokenClock(clk)).GenerateToken(userID)
		require.NoError(t, err)

		var claims jwt.RegisteredClaims
		_, _, err = jwt.NewParser().ParseUnverified(token, &claims)
		require.NoError(t, err)
		assert.Equal(t, issuer, claims.Issuer)
		assert.Equal(t, issuedAt, claims.IssuedAt.Time.UTC())
		assert.Equal(t, issuedAt.Add(2*time.Hour), claims.ExpiresAt.Time.UTC())
	})

	t.Run("Fail: Empty subject", func(t *testing.T) {
		_, err := NewTokenService(secret, issuer, time.Hour).GenerateToken("")
		assert.Error(t, err)
	})

	t.Run("Fail: Expired once the clock passes the lifetime", func(t *testing.T) {
		clk := clock.NewFake(issuedAt)
		svc := NewTokenService(secret, issuer, time.Minute, WithTokenClock(clk))
		token, err := svc.GenerateToken(userID)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		require.NoError(t, err)

		clk.Advance(2 * time.Minute)
		got, err := svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
		assert.Empty(t, got)
	})

	rejected := map[string]func(t *testing.T) string{
		"wrong secret": func(t *testing.T) string {
			token, err := NewTokenService("wrong-key", issuer, time.Hour).GenerateToken(userID)
			require.NoError(t, err)
			return token
		},
		"wrong issuer": func(t *testing.T) string {
			token, err := NewTokenService(secret, "someone-else", time.Hour).GenerateToken(userID)
			require.NoError(t, err)
			return token
		},
		"no subject": func(t *testing.T) string {
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
				Issuer:    issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}).SignedString([]byte(secret))
			require.NoError(t, err)
			return token
		},
		"no expiry": func(t *testing.T) string {
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
				Issuer:  issuer,
				Subject: userID,
			}).SignedString([]byte(secret))
			require.NoError(t, err)
			return token
		},
		"alg none": func(t *testing.T) string {
			token, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
				Issuer:    issuer,
				Subject:   userID,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			}).SignedString(jwt.UnsafeAllowNoneSignatureType)
			require.NoError(t, err)
			return token
		},
		"malformed": func(t *testing.T) string { return "this-is-not-a-jwt" },
	}
	for name, build := range rejected {
		t.Run("Fail: "+name, func(t *testing.T) {
			got, err := NewTokenService(secret, issuer, time.Hour).ValidateToken(build(t))
			assert.ErrorIs(t, err, ErrInvalidToken)
			assert.Empty(t, got)
		})
	}
}

func TestSubjectOf(t *testing.T) {
	t.Run("Success: Reads the subject of any issuer", func(t *testing.T) {
		token, err := NewTokenService("some-secret", "elsewhere", time.Hour).GenerateToken("user-42")
		require.NoError(t, err)

		sub, err := SubjectOf(token)

		require.NoError(t, err)
		assert.Equal(t, "user-42", sub)
	})

	t.Run("Fail: Malformed token", func(t *testing.T) {
		_, err := SubjectOf("not.a.jwt")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
