// Package auth validates bearer tokens issued for API clients.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token errors.
var (
	ErrInvalidToken = errors.New("invalid token")
	ErrMissingKey   = errors.New("jwt secret is required")
)

// Config holds JWT configuration.
type Config struct {
	Secret string
	Issuer string
	// Leeway tolerates clock skew when checking exp and nbf.
	Leeway time.Duration
}

// Validator validates HS256 signed tokens.
type Validator struct {
	secret []byte
	issuer string
	parser *jwt.Parser
}

// NewValidator creates a token validator.
func NewValidator(config Config) (*Validator, error) {
	if config.Secret == "" {
		return nil, ErrMissingKey
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(config.Leeway),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}

	return &Validator{
		secret: []byte(config.Secret),
		issuer: config.Issuer,
		parser: jwt.NewParser(opts...),
	}, nil
}

// ValidateToken checks the signature and registered claims and returns the subject.
func (v *Validator) ValidateToken(_ context.Context, tokenString string) (string, error) {
	var claims jwt.RegisteredClaims
	_, err := v.parser.ParseWithClaims(tokenString, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}

// IssueToken signs a token for subject valid for ttl.
func (v *Validator) IssueToken(subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   subject,
		Issuer:    v.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
