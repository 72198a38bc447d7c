package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestNewRequiresCredentials(t *testing.T) {
	_, err := New("", "", "", "emotes", testLogger())
	assert.Error(t, err)
}

func TestNewRequiresContainer(t *testing.T) {
	_, err := NewDev("", testLogger())
	assert.Error(t, err)
}

func TestURLJoinsContainerAndName(t *testing.T) {
	s, err := NewDev("emotes", testLogger())
	require.NoError(t, err)

	assert.Equal(t,
		"http://127.0.0.1:10000/devstoreaccount1/emotes/emote_api/Kappa.webp",
		s.URL("emote_api/Kappa.webp"))
}

func TestNewDefaultsToPublicEndpoint(t *testing.T) {
	s, err := New("acct", azuriteKey, "", "emotes", testLogger())
	require.NoError(t, err)

	assert.Equal(t, "https://acct.blob.core.windows.net/emotes/a.webp", s.URL("a.webp"))
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(ErrBlobNotFound))
	assert.True(t, IsNotFound(fmt.Errorf("open: %w", ErrBlobNotFound)))
	assert.False(t, IsNotFound(errors.New("timeout")))
	assert.False(t, IsNotFound(nil))
}
