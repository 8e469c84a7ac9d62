// Package auth issues and verifies access and password reset tokens and
// checks user credentials.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken covers malformed, tampered, expired and reused tokens
	ErrInvalidToken = errors.New("invalid token")
)

// Audiences keep the token kinds apart, both are signed with the same key
const (
	accessAudience = "access"
	resetAudience  = "password-reset"
)

// TokenIssuer signs HS256 access tokens whose subject is the user id
type TokenIssuer struct {
	secretKey []byte
	expiry    time.Duration
	now       func() time.Time
}

func NewTokenIssuer(secretKey []byte, expiry time.Duration) (*TokenIssuer, error) {
	if len(secretKey) == 0 {
		return nil, errors.New("token issuer requires a secret key")
	}
	if expiry <= 0 {
		return nil, errors.New("token issuer requires a positive expiry")
	}
	return &TokenIssuer{secretKey: secretKey, expiry: expiry, now: time.Now}, nil
}

// Expiry is the lifetime of issued tokens
func (i *TokenIssuer) Expiry() time.Duration {
	return i.expiry
}

// CreateAccessToken issues a token for subject valid for the issuer's expiry
func (i *TokenIssuer) CreateAccessToken(subject string) (string, error) {
	return i.CreateAccessTokenWithExpiry(subject, i.expiry)
}

func (i *TokenIssuer) CreateAccessTokenWithExpiry(subject string, expiresIn time.Duration) (string, error) {
	now := i.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		Audience:  jwt.ClaimStrings{accessAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
	})

	tokenString, err := token.SignedString(i.secretKey)
	if err != nil {
		return "", fmt.Errorf("cannot sign access token: %w", err)
	}
	return tokenString, nil
}

// ParseAccessToken returns the subject of a valid token
func (i *TokenIssuer) ParseAccessToken(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	if _, err := parse(tokenString, claims, accessAudience, i.secretKey, i.now); err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

func parse(tokenString string, claims jwt.Claims, audience string, secretKey []byte, now func() time.Time) (*jwt.Token, error) {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	return token, nil
}
