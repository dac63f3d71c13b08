package store

import (
	"context"
	"testing"

	"github.com/akozlovs/vinotes/internal/common"
	"github.com/akozlovs/vinotes/internal/journal/models"
	"github.com/stretchr/testify/require"
)

func TestProfileSnapshot_RoundTripAndUpsert(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	_, err := s.ProfileSnapshot(ctx, "u1")
	require.ErrorIs(t, err, common.ErrorNotFound)

	require.NoError(t, s.SaveProfileSnapshot(ctx, &models.UserProfile{
		UserID:      "u1",
		DisplayName: "Alice",
		Email:       "alice@example.com",
	}))

	got, err := s.ProfileSnapshot(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "Alice", got.DisplayName)
	require.False(t, got.UpdatedAt.IsZero())

	require.NoError(t, s.SaveProfileSnapshot(ctx, &models.UserProfile{
		UserID:      "u1",
		DisplayName: "Alice B",
	}))

	got, err = s.ProfileSnapshot(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "Alice B", got.DisplayName)
}
