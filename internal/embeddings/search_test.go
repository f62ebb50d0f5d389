package embeddings

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/lily/internal/domain"
	"github.com/openclaw/lily/internal/storage"
)

func newTestStore(t *testing.T) *storage.Store {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".openclaw", "memory")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	store, err := storage.Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = storage.CloseAll() })
	return store
}

func TestSearchServesSecondCallFromCache(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	client := NewClient("http://unused", "test-model", nil)
	svc := NewService(client, store)

	decisionID := uuid.NewString()
	now := time.Now().UTC()
	require.NoError(t, store.UpsertDecision(ctx, &domain.Decision{ID: decisionID, Timestamp: now, TTLClass: domain.TTLActive, LastAccessedAt: now}))
	v := &domain.Vector{
		ID:         uuid.NewString(),
		DecisionID: decisionID,
		Content:    "the answer is 42",
		Embedding:  []float64{1, 0, 0},
		ModelID:    "test-model",
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.UpsertVector(ctx, v))

	embeddings, err := svc.loadModelVectors(ctx, "test-model")
	require.NoError(t, err)
	require.Len(t, embeddings, 1)
	require.Contains(t, embeddings, decisionID)

	// Delete the row directly; a fresh cache must still answer from
	// the in-memory scan rather than re-hitting the store.
	require.NoError(t, store.DeleteDecision(ctx, decisionID))

	cached, err := svc.loadModelVectors(ctx, "test-model")
	require.NoError(t, err)
	require.Len(t, cached, 1, "expected cached scan to still serve the deleted vector")
}

func TestLoadModelVectorsRefreshesAfterInvalidation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	client := NewClient("http://unused", "test-model", nil)
	svc := NewService(client, store)

	decisionID := uuid.NewString()
	secondID := uuid.NewString()
	now := time.Now().UTC()
	for _, id := range []string{decisionID, secondID} {
		require.NoError(t, store.UpsertDecision(ctx, &domain.Decision{ID: id, Timestamp: now, TTLClass: domain.TTLActive, LastAccessedAt: now}))
	}
	v := &domain.Vector{
		ID:         uuid.NewString(),
		DecisionID: decisionID,
		Content:    "first",
		Embedding:  []float64{1, 0, 0},
		ModelID:    "test-model",
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.UpsertVector(ctx, v))
	_, err := svc.loadModelVectors(ctx, "test-model")
	require.NoError(t, err)

	require.NoError(t, store.UpsertVector(ctx, &domain.Vector{
		ID:         uuid.NewString(),
		DecisionID: secondID,
		Content:    "second",
		Embedding:  []float64{0, 1, 0},
		ModelID:    "test-model",
		CreatedAt:  time.Now().UTC(),
	}))
	// Invalidate directly, the same way Store() does after an upsert.
	svc.mu.Lock()
	svc.cacheModel = ""
	svc.mu.Unlock()

	refreshed, err := svc.loadModelVectors(ctx, "test-model")
	require.NoError(t, err)
	require.Len(t, refreshed, 2)
}
