package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/openclaw/lily/internal/domain"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".openclaw", "memory")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	store, err := Open(filepath.Join(dir, "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = CloseAll() })
	return store
}

func newDecision(entity, key, value string, class domain.TTLClass) *domain.Decision {
	now := time.Now().UTC()
	return &domain.Decision{
		ID:             uuid.NewString(),
		Timestamp:      now,
		Importance:     0.5,
		TTLClass:       class,
		LastAccessedAt: now,
		Entity:         entity,
		FactKey:        key,
		FactValue:      value,
	}
}

func TestOpenReturnsSingletonForSamePath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	dir := filepath.Join(home, ".openclaw", "memory")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	t.Cleanup(func() { _ = CloseAll() })

	path := filepath.Join(dir, "test.db")
	a, err := Open(path)
	require.NoError(t, err)
	b, err := Open(path)
	require.NoError(t, err)
	require.Same(t, a, b)
}

func TestOpenRejectsPathOutsideMemoryRoot(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Cleanup(func() { _ = CloseAll() })

	_, err := Open(filepath.Join(home, "elsewhere.db"))
	require.Error(t, err)
}

func TestUpsertDecisionThenFindByFact(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	d := newDecision("Kevin", "favorite_food", "tacos", domain.TTLActive)
	require.NoError(t, store.UpsertDecision(ctx, d))

	got, err := store.FindDecisionByFact(ctx, "Kevin", "favorite_food")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, "tacos", got.FactValue)
}

func TestUpsertDecisionOnConflictUpdatesFactValue(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	d := newDecision("Kevin", "favorite_food", "tacos", domain.TTLActive)
	require.NoError(t, store.UpsertDecision(ctx, d))

	d.FactValue = "pizza"
	require.NoError(t, store.UpsertDecision(ctx, d))

	got, err := store.FindDecisionByFact(ctx, "Kevin", "favorite_food")
	require.NoError(t, err)
	require.Equal(t, "pizza", got.FactValue)
}

func TestFindDecisionByFactReturnsNilWhenExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	d := newDecision("Kevin", "favorite_food", "tacos", domain.TTLSession)
	past := time.Now().UTC().Add(-time.Hour)
	d.ExpiresAt = &past
	require.NoError(t, store.UpsertDecision(ctx, d))

	got, err := store.FindDecisionByFact(ctx, "Kevin", "favorite_food")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestLiveDecisionsByClassOrdersByImportanceDescending(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	low := newDecision("Kevin", "low", "x", domain.TTLStable)
	low.Importance = 0.2
	high := newDecision("Kevin", "high", "y", domain.TTLStable)
	high.Importance = 0.9
	require.NoError(t, store.UpsertDecision(ctx, low))
	require.NoError(t, store.UpsertDecision(ctx, high))

	got, err := store.LiveDecisionsByClass(ctx, domain.TTLStable)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "high", got[0].FactKey)
	require.Equal(t, "low", got[1].FactKey)
}

func TestAllLiveDecisionsExcludesExpired(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	live := newDecision("Kevin", "live", "a", domain.TTLPermanent)
	require.NoError(t, store.UpsertDecision(ctx, live))

	expired := newDecision("Kevin", "expired", "b", domain.TTLSession)
	past := time.Now().UTC().Add(-time.Hour)
	expired.ExpiresAt = &past
	require.NoError(t, store.UpsertDecision(ctx, expired))

	got, err := store.AllLiveDecisions(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "live", got[0].FactKey)
}

func TestDeleteDecisionRemovesRow(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	d := newDecision("Kevin", "favorite_food", "tacos", domain.TTLActive)
	require.NoError(t, store.UpsertDecision(ctx, d))
	require.NoError(t, store.DeleteDecision(ctx, d.ID))

	got, err := store.FindDecisionByFact(ctx, "Kevin", "favorite_food")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestTouchLastAccessedUpdatesTimestamp(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	d := newDecision("Kevin", "favorite_food", "tacos", domain.TTLPermanent)
	require.NoError(t, store.UpsertDecision(ctx, d))

	later := d.LastAccessedAt.Add(time.Hour)
	require.NoError(t, store.TouchLastAccessed(ctx, d.ID, later))

	got, err := store.LiveDecisionsByClass(ctx, domain.TTLPermanent)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.WithinDuration(t, later, got[0].LastAccessedAt, time.Second)
}

func TestSearchFTSFindsMatchingDecision(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	d := newDecision("Kevin", "favorite_food", "tacos and salsa", domain.TTLActive)
	require.NoError(t, store.UpsertDecision(ctx, d))

	ids, err := store.SearchFTS(ctx, "tacos", 10)
	require.NoError(t, err)
	require.Contains(t, ids, d.ID)
}

func TestUpsertVectorAndDecisionsMissingVector(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	d := newDecision("Kevin", "favorite_food", "tacos", domain.TTLActive)
	require.NoError(t, store.UpsertDecision(ctx, d))

	missing, err := store.DecisionsMissingVector(ctx, "model-a")
	require.NoError(t, err)
	require.Contains(t, missing, d.ID)

	v := &domain.Vector{
		ID:         uuid.NewString(),
		DecisionID: d.ID,
		Content:    "tacos",
		Embedding:  []float64{0.1, 0.2, 0.3},
		ModelID:    "model-a",
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.UpsertVector(ctx, v))

	missing, err = store.DecisionsMissingVector(ctx, "model-a")
	require.NoError(t, err)
	require.NotContains(t, missing, d.ID)

	vecs, err := store.VectorsByModel(ctx, "model-a")
	require.NoError(t, err)
	require.Len(t, vecs, 1)
}

func TestSweepOrphanedVectorsFindsNoneAfterCascadeDelete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	d := newDecision("Kevin", "favorite_food", "tacos", domain.TTLActive)
	require.NoError(t, store.UpsertDecision(ctx, d))

	v := &domain.Vector{
		ID:         uuid.NewString(),
		DecisionID: d.ID,
		Content:    "tacos",
		Embedding:  []float64{0.1},
		ModelID:    "model-a",
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, store.UpsertVector(ctx, v))
	require.NoError(t, store.DeleteDecision(ctx, d.ID))

	n, err := store.SweepOrphanedVectors(ctx)
	require.NoError(t, err)
	require.Zero(t, n) // ON DELETE CASCADE already removed it
}

func TestUpsertEntityAndAllEntities(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	e := &domain.Entity{Name: "widget", DisplayName: "Widget", Provenance: "tool", AddedAt: time.Now().UTC()}
	require.NoError(t, store.UpsertEntity(ctx, e))

	all, err := store.AllEntities(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "widget", all[0].Name)
}

func TestInsertAndRecentSecurityEvents(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	older := &domain.SecurityEvent{ID: uuid.NewString(), Timestamp: time.Now().UTC().Add(-time.Hour), EventType: "protected_entity"}
	newer := &domain.SecurityEvent{ID: uuid.NewString(), Timestamp: time.Now().UTC(), EventType: "prompt_injection"}
	require.NoError(t, store.InsertSecurityEvent(ctx, older))
	require.NoError(t, store.InsertSecurityEvent(ctx, newer))

	got, err := store.RecentSecurityEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, newer.ID, got[0].ID)
}

func TestRecentSecurityEventsRespectsLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.InsertSecurityEvent(ctx, &domain.SecurityEvent{
			ID: uuid.NewString(), Timestamp: time.Now().UTC(), EventType: "protected_entity",
		}))
	}

	got, err := store.RecentSecurityEvents(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
}

func TestPingSucceedsOnOpenStore(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Ping(context.Background()))
}
