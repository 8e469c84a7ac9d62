package util

import (
	"testing"
	"testing/fstest"

	"github.com/labstack/gommon/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPassword(t *testing.T) {
	HashCost = bcrypt.MinCost

	hash, err := HashPassword("changethis")
	require.NoError(t, err)
	assert.NotContains(t, hash, "changethis")

	ok, err := VerifyHash(hash, "changethis")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyHash(hash, "wrong")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = VerifyHash("%%% not base64", "changethis")
	assert.Error(t, err)
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]log.Lvl{
		"DEBUG":   log.DEBUG,
		"info":    log.INFO,
		"Warning": log.WARN,
		"error":   log.ERROR,
		"OFF":     log.OFF,
	}
	for in, want := range tests {
		got, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLogLevel("verbose")
	assert.Error(t, err)
}

func TestLookupEnv(t *testing.T) {
	t.Setenv("COGNILOOP_TEST_STRING", "value")
	t.Setenv("COGNILOOP_TEST_INT", "42")
	t.Setenv("COGNILOOP_TEST_BAD_INT", "forty-two")
	t.Setenv("COGNILOOP_TEST_BOOL", "true")
	t.Setenv("COGNILOOP_TEST_FLOAT", "2.5")

	assert.Equal(t, "value", LookupEnvOrString("COGNILOOP_TEST_STRING", "default"))
	assert.Equal(t, "default", LookupEnvOrString("COGNILOOP_TEST_UNSET", "default"))
	assert.Equal(t, 42, LookupEnvOrInt("COGNILOOP_TEST_INT", 1))
	assert.Equal(t, 1, LookupEnvOrInt("COGNILOOP_TEST_BAD_INT", 1))
	assert.True(t, LookupEnvOrBool("COGNILOOP_TEST_BOOL", false))
	assert.Equal(t, 2.5, LookupEnvOrFloat("COGNILOOP_TEST_FLOAT", 0))
}

func TestStringFromEmbedFile(t *testing.T) {
	fsys := fstest.MapFS{"templates/a.html": {Data: []byte("<p>hi</p>")}}

	content, err := StringFromEmbedFile(fsys, "templates/a.html")
	require.NoError(t, err)
	assert.Equal(t, "<p>hi</p>", content)

	_, err = StringFromEmbedFile(fsys, "templates/missing.html")
	assert.Error(t, err)
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "alice@example.com", NormalizeEmail("  Alice@Example.COM "))
}
