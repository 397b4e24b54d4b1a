package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("topsecret", time.Minute)

	token, expiresAt, err := signer.Generate("activity-1", "activities/activity-1/worksheet.pdf")
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	ownerID, relPath, parsedExp, err := signer.Parse(token, false)
	require.NoError(t, err)
	assert.Equal(t, "activity-1", ownerID)
	assert.Equal(t, "activities/activity-1/worksheet.pdf", relPath)
	assert.WithinDuration(t, expiresAt, parsedExp, time.Second)
}

func TestSignedURLTamperedSignature(t *testing.T) {
	signer := NewSignedURLSigner("topsecret", time.Minute)

	token, _, err := signer.Generate("activity-1", "activities/activity-1/worksheet.pdf")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	parts[3] = strings.Repeat("0", len(parts[3]))
	_, _, _, err = signer.Parse(strings.Join(parts, "."), false)
	assert.Error(t, err)
}

func TestSignedURLWrongSecret(t *testing.T) {
	signer := NewSignedURLSigner("topsecret", time.Minute)
	other := NewSignedURLSigner("different", time.Minute)

	token, _, err := signer.Generate("activity-1", "file.pdf")
	require.NoError(t, err)

	_, _, _, err = other.Parse(token, false)
	assert.Error(t, err)
}

func TestSignedURLExpired(t *testing.T) {
	signer := NewSignedURLSigner("topsecret", time.Minute)
	signer.ttl = -time.Minute

	token, _, err := signer.Generate("activity-1", "file.pdf")
	require.NoError(t, err)

	_, _, _, err = signer.Parse(token, false)
	assert.Error(t, err)

	_, relPath, _, err := signer.Parse(token, true)
	require.NoError(t, err)
	assert.Equal(t, "file.pdf", relPath)
}

func TestSignedURLInvalidFormat(t *testing.T) {
	signer := NewSignedURLSigner("topsecret", time.Minute)
	_, _, _, err := signer.Parse("not-a-token", false)
	assert.Error(t, err)
}
