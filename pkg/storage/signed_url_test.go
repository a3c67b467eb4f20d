package storage

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSignedURLRoundTrip(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Hour)

	token, expiresAt, err := signer.Generate("job-1", "2026-03/enrollments-job-1.csv")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	jobID, relPath, _, err := signer.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "job-1", jobID)
	assert.Equal(t, "2026-03/enrollments-job-1.csv", relPath)
}

func TestSignedURLRejectsTampering(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Hour)

	token, _, err := signer.Generate("job-1", "2026-03/report.csv")
	require.NoError(t, err)

	parts := strings.Split(token, ".")
	require.Len(t, parts, 4)
	parts[0] = "job-2"
	_, _, _, err = signer.Parse(strings.Join(parts, "."))
	assert.Error(t, err)

	_, _, _, err = signer.Parse("not-a-token")
	assert.Error(t, err)
}

func TestSignedURLRejectsExpired(t *testing.T) {
	signer := NewSignedURLSigner("test-secret", time.Nanosecond)

	token, _, err := signer.Generate("job-1", "2026-03/report.csv")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, _, _, err = signer.Parse(token)
	assert.ErrorContains(t, err, "expired")
}

func TestSignedURLDifferentSecretsDisagree(t *testing.T) {
	signer := NewSignedURLSigner("secret-a", time.Hour)
	other := NewSignedURLSigner("secret-b", time.Hour)

	token, _, err := signer.Generate("job-1", "2026-03/report.csv")
	require.NoError(t, err)

	_, _, _, err = other.Parse(token)
	assert.Error(t, err)
}
