package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewValidator_RequiresSecret(t *testing.T) {
	_, err := NewValidator(Config{})
	assert.ErrorIs(t, err, ErrMissingKey)
}

func TestValidator_RoundTrip(t *testing.T) {
	v, err := NewValidator(Config{Secret: "s3cret", Issuer: "post-scheduler"})
	require.NoError(t, err)

	token, err := v.IssueToken("scheduler-bot", time.Hour)
	require.NoError(t, err)

	subject, err := v.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "scheduler-bot", subject)
}

func TestValidator_Rejects(t *testing.T) {
	v, err := NewValidator(Config{Secret: "s3cret", Issuer: "post-scheduler"})
	require.NoError(t, err)

	other, err := NewValidator(Config{Secret: "other", Issuer: "post-scheduler"})
	require.NoError(t, err)

	wrongIssuer, err := NewValidator(Config{Secret: "s3cret", Issuer: "someone-else"})
	require.NoError(t, err)

	expired, err := v.IssueToken("bot", -time.Minute)
	require.NoError(t, err)

	foreign, err := other.IssueToken("bot", time.Hour)
	require.NoError(t, err)

	misissued, err := wrongIssuer.IssueToken("bot", time.Hour)
	require.NoError(t, err)

	noSubject, err := v.IssueToken("", time.Hour)
	require.NoError(t, err)

	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject: "bot",
		Issuer:  "post-scheduler",
	}).SignedString([]byte("s3cret"))
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "bot",
		Issuer:    "post-scheduler",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"expired", expired},
		{"wrong key", foreign},
		{"wrong issuer", misissued},
		{"missing subject", noSubject},
		{"missing expiry", noExpiry},
		{"alg none", unsigned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.ValidateToken(context.Background(), tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}
