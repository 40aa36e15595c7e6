package session

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkorchagin/shareup/internal/logging"
	"github.com/dkorchagin/shareup/internal/shared"
	"github.com/dkorchagin/shareup/internal/storage/storagetest"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})))
}

func TestGetOrCreateCachesSession(t *testing.T) {
	ctx := context.Background()
	provider := storagetest.NewFakeProvider()
	store := NewStore(provider, testLogger())

	first, err := store.GetOrCreate(ctx, "a@example.com", "pw")
	require.NoError(t, err)

	second, err := store.GetOrCreate(ctx, "a@example.com", "pw")
	require.NoError(t, err)

	assert.Same(t, first, second, "same handle and secret must reuse the cached session")
	assert.Equal(t, 1, provider.AuthCalls, "no second authentication call")
	assert.Equal(t, 1, store.Count())
}

func TestGetOrCreateAuthFailure(t *testing.T) {
	provider := storagetest.NewFakeProvider()
	provider.AuthErr = shared.ErrAuthFailed
	store := NewStore(provider, testLogger())

	_, err := store.GetOrCreate(context.Background(), "a@example.com", "bad")
	assert.ErrorIs(t, err, shared.ErrAuthFailed)
	assert.Zero(t, store.Count(), "failed authentication must not cache anything")
}

func TestChangedSecretForcesReauthentication(t *testing.T) {
	ctx := context.Background()
	provider := storagetest.NewFakeProvider()
	store := NewStore(provider, testLogger())

	_, err := store.GetOrCreate(ctx, "a@example.com", "old")
	require.NoError(t, err)

	_, err = store.GetOrCreate(ctx, "a@example.com", "new")
	require.NoError(t, err)

	assert.Equal(t, 2, provider.AuthCalls)
	assert.Equal(t, "new", provider.LastSecret)
}

func TestInvalidateEvictsAndReauthenticates(t *testing.T) {
	ctx := context.Background()
	provider := storagetest.NewFakeProvider()
	store := NewStore(provider, testLogger())

	_, err := store.GetOrCreate(ctx, "a@example.com", "pw")
	require.NoError(t, err)

	store.Invalidate("a@example.com")
	assert.Zero(t, store.Count())

	_, err = store.GetOrCreate(ctx, "a@example.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.AuthCalls, "re-add after removal must re-authenticate")
}

func TestInvalidateUnknownHandleIsNoop(t *testing.T) {
	store := NewStore(storagetest.NewFakeProvider(), testLogger())
	store.Invalidate("missing@example.com")
	assert.Zero(t, store.Count())
}
