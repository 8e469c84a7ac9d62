package auth

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cogniloop/cogniloop-auth/store/memdb"
)

func TestResetTokenRoundTrip(t *testing.T) {
	db := memdb.New(false)
	resets, err := NewResetTokens(db, []byte("secret"), 48*time.Hour)
	require.NoError(t, err)

	tok, err := resets.Generate("Alice@Example.com")
	require.NoError(t, err)

	record, err := resets.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", record.Email)
	assert.Nil(t, record.UsedAt)

	require.NoError(t, resets.Consume(record))

	_, err = resets.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, resets.Consume(record), ErrInvalidToken)
}

func TestResetTokenExpired(t *testing.T) {
	db := memdb.New(false)
	resets, err := NewResetTokens(db, []byte("secret"), time.Hour)
	require.NoError(t, err)

	issued := time.Now()
	resets.now = func() time.Time { return issued }
	tok, err := resets.Generate("alice@example.com")
	require.NoError(t, err)

	resets.now = func() time.Time { return issued.Add(2 * time.Hour) }
	_, err = resets.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResetTokenTampered(t *testing.T) {
	db := memdb.New(false)
	resets, err := NewResetTokens(db, []byte("secret"), time.Hour)
	require.NoError(t, err)

	tok, err := resets.Generate("alice@example.com")
	require.NoError(t, err)

	parts := strings.Split(tok, ".")
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	_, err = resets.Verify(parts[0] + "." + parts[1] + "." + string(sig))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResetTokenSignedWithOtherKey(t *testing.T) {
	db := memdb.New(false)
	resets, err := NewResetTokens(db, []byte("secret"), time.Hour)
	require.NoError(t, err)
	other, err := NewResetTokens(db, []byte("other"), time.Hour)
	require.NoError(t, err)

	tok, err := other.Generate("alice@example.com")
	require.NoError(t, err)
	_, err = resets.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResetTokenWithoutRecord(t *testing.T) {
	resets, err := NewResetTokens(memdb.New(false), []byte("secret"), time.Hour)
	require.NoError(t, err)
	// signed with the right key but persisted in another store
	other, err := NewResetTokens(memdb.New(false), []byte("secret"), time.Hour)
	require.NoError(t, err)

	tok, err := other.Generate("alice@example.com")
	require.NoError(t, err)
	_, err = resets.Verify(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestResetTokenConsumedOnce(t *testing.T) {
	db := memdb.New(false)
	resets, err := NewResetTokens(db, []byte("secret"), time.Hour)
	require.NoError(t, err)

	tok, err := resets.Generate("alice@example.com")
	require.NoError(t, err)
	record, err := resets.Verify(tok)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if resets.Consume(record) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestTokenKindsAreNotInterchangeable(t *testing.T) {
	db := memdb.New(false)
	resets, err := NewResetTokens(db, []byte("secret"), time.Hour)
	require.NoError(t, err)
	issuer, err := NewTokenIssuer([]byte("secret"), time.Hour)
	require.NoError(t, err)

	reset, err := resets.Generate("alice@example.com")
	require.NoError(t, err)
	_, err = issuer.ParseAccessToken(reset)
	assert.ErrorIs(t, err, ErrInvalidToken)

	access, err := issuer.CreateAccessToken("alice@example.com")
	require.NoError(t, err)
	_, err = resets.Verify(access)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
