package repository

import (
	"context"
	"testing"
	"time"

	"membership-service/internal/models"

	"github.com/stretchr/testify/require"
)

func TestMemorySessionRepository_SessionLifecycle(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()

	session := &models.Session{ID: "sid-1", Identifier: "orwell@1984.apocalypse", IsValid: true}
	require.NoError(t, repo.SaveSession(ctx, session, time.Hour))

	// Stored sessions are copies.
	session.Identifier = "changed"

	found, err := repo.GetSession(ctx, "sid-1")
	require.NoError(t, err)
	require.Equal(t, "orwell@1984.apocalypse", found.Identifier)

	found.Identifier = "changed again"
	again, err := repo.GetSession(ctx, "sid-1")
	require.NoError(t, err)
	require.Equal(t, "orwell@1984.apocalypse", again.Identifier)
}

func TestMemorySessionRepository_SessionExpires(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()

	require.NoError(t, repo.SaveSession(ctx, &models.Session{ID: "sid-1"}, 20*time.Millisecond))
	time.Sleep(60 * time.Millisecond)

	_, err := repo.GetSession(ctx, "sid-1")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestMemorySessionRepository_Delete(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()

	require.NoError(t, repo.SaveSession(ctx, &models.Session{ID: "sid-1"}, time.Hour))
	require.NoError(t, repo.DeleteSession(ctx, "sid-1"))

	_, err := repo.GetSession(ctx, "sid-1")
	require.ErrorIs(t, err, ErrSessionNotFound)

	require.NoError(t, repo.DeleteSession(ctx, "never-existed"))
}

func TestMemorySessionRepository_StatesAreSingleUse(t *testing.T) {
	repo := NewMemorySessionRepository()
	ctx := context.Background()

	require.NoError(t, repo.SaveState(ctx, "state-1", time.Minute))

	ok, err := repo.ConsumeState(ctx, "state-1")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.ConsumeState(ctx, "state-1")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.SaveState(ctx, "state-2", 20*time.Millisecond))
	time.Sleep(60 * time.Millisecond)
	ok, err = repo.ConsumeState(ctx, "state-2")
	require.NoError(t, err)
	require.False(t, ok, "expired state must be refused")
}
