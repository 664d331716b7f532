package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/curriculum-planner-api/pkg/errors"
)

func TestLocalCacheRepositoryRoundTrip(t *testing.T) {
	repo := NewLocalCacheRepository(time.Minute)
	ctx := context.Background()

	var missing []string
	assert.ErrorIs(t, repo.Get(ctx, "catalog:8606:202010", &missing), appErrors.ErrCacheMiss)

	require.NoError(t, repo.Set(ctx, "catalog:8606:202010", []string{"DCCB-00106"}, time.Minute))
	var got []string
	require.NoError(t, repo.Get(ctx, "catalog:8606:202010", &got))
	assert.Equal(t, []string{"DCCB-00106"}, got)
}

func TestLocalCacheRepositoryDeleteByPattern(t *testing.T) {
	repo := NewLocalCacheRepository(time.Minute)
	ctx := context.Background()
	require.NoError(t, repo.Set(ctx, "catalog:8606:202010", 1, 0))
	require.NoError(t, repo.Set(ctx, "catalog:8606:201910", 2, 0))
	require.NoError(t, repo.Set(ctx, "transcript:1:8606", 3, 0))

	require.NoError(t, repo.DeleteByPattern(ctx, "catalog:*"))

	var v int
	assert.ErrorIs(t, repo.Get(ctx, "catalog:8606:202010", &v), appErrors.ErrCacheMiss)
	assert.ErrorIs(t, repo.Get(ctx, "catalog:8606:201910", &v), appErrors.ErrCacheMiss)
	require.NoError(t, repo.Get(ctx, "transcript:1:8606", &v))
	assert.Equal(t, 3, v)
}
