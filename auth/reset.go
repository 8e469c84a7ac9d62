package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/cogniloop/cogniloop-auth/model"
	"github.com/cogniloop/cogniloop-auth/store"
	"github.com/cogniloop/cogniloop-auth/util"
)

// ResetTokens issues password reset tokens. Each token is a signed JWT whose
// id refers to a record in the store, which is what makes it single-use.
type ResetTokens struct {
	db        store.IStore
	secretKey []byte
	expiry    time.Duration
	now       func() time.Time
}

func NewResetTokens(db store.IStore, secretKey []byte, expiry time.Duration) (*ResetTokens, error) {
	if len(secretKey) == 0 {
		return nil, errors.New("reset tokens require a secret key")
	}
	if expiry <= 0 {
		return nil, errors.New("reset tokens require a positive expiry")
	}
	return &ResetTokens{db: db, secretKey: secretKey, expiry: expiry, now: time.Now}, nil
}

// Expiry is how long a reset token stays valid
func (r *ResetTokens) Expiry() time.Duration {
	return r.expiry
}

// Generate persists a new reset record for email and returns its signed token
func (r *ResetTokens) Generate(email string) (string, error) {
	now := r.now()
	record := model.PasswordResetToken{
		ID:        uuid.NewString(),
		Email:     util.NormalizeEmail(email),
		ExpiresAt: now.Add(r.expiry).UTC(),
	}
	if err := r.db.SaveResetToken(record); err != nil {
		return "", fmt.Errorf("cannot save reset token: %w", err)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        record.ID,
		Subject:   record.Email,
		Audience:  jwt.ClaimStrings{resetAudience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(record.ExpiresAt),
	})
	tokenString, err := token.SignedString(r.secretKey)
	if err != nil {
		return "", fmt.Errorf("cannot sign reset token: %w", err)
	}
	return tokenString, nil
}

// Verify checks the signature, expiry and the stored record of a token
// without consuming it. Every failure is reported as ErrInvalidToken except
// store errors other than a missing record.
func (r *ResetTokens) Verify(tokenString string) (model.PasswordResetToken, error) {
	claims := &jwt.RegisteredClaims{}
	if _, err := parse(tokenString, claims, resetAudience, r.secretKey, r.now); err != nil {
		return model.PasswordResetToken{}, err
	}
	if claims.ID == "" || claims.Subject == "" {
		return model.PasswordResetToken{}, ErrInvalidToken
	}

	record, err := r.db.GetResetToken(claims.ID)
	if errors.Is(err, store.ErrNotFound) {
		return model.PasswordResetToken{}, ErrInvalidToken
	}
	if err != nil {
		return model.PasswordResetToken{}, fmt.Errorf("cannot load reset token: %w", err)
	}

	if record.Email != claims.Subject || record.UsedAt != nil || record.Expired(r.now()) {
		return model.PasswordResetToken{}, ErrInvalidToken
	}
	return record, nil
}

// Consume marks a verified token used. A token consumed concurrently by
// another request fails with ErrInvalidToken.
func (r *ResetTokens) Consume(record model.PasswordResetToken) error {
	err := r.db.ConsumeResetToken(record.ID, r.now())
	if errors.Is(err, store.ErrTokenUsed) || errors.Is(err, store.ErrNotFound) {
		return ErrInvalidToken
	}
	return err
}
