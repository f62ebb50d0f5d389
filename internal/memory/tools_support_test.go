package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openclaw/lily/internal/domain"
)

func TestSearchDecisionsFindsMatchingRow(t *testing.T) {
	e, store := newTestRecallEngine(t)
	d := insertDecision(t, store, domain.TTLActive, "Kevin", "favorite_food", "tacos")

	got, err := e.SearchDecisions(context.Background(), "kevin favorite food", 10)
	require.NoError(t, err)
	found := false
	for _, row := range got {
		if row.ID == d.ID {
			found = true
		}
	}
	require.True(t, found)
}

func TestSearchDecisionsCapsLimitAtMax(t *testing.T) {
	e, _ := newTestRecallEngine(t)
	_, err := e.SearchDecisions(context.Background(), "anything long enough", 1000)
	require.NoError(t, err)
}

func TestDecisionsForEntityMatchesCaseInsensitively(t *testing.T) {
	e, store := newTestRecallEngine(t)
	insertDecision(t, store, domain.TTLActive, "Kevin", "favorite_food", "tacos")
	insertDecision(t, store, domain.TTLActive, "Alice", "favorite_food", "pizza")

	got, err := e.DecisionsForEntity(context.Background(), "kevin")
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Kevin", got[0].Entity)
}

func TestSemanticSearchReturnsNilWithoutEmbeddingsService(t *testing.T) {
	e, _ := newTestRecallEngine(t)
	got, err := e.SemanticSearch(context.Background(), "anything", 5, 0.5)
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestAddEntityPersistsAndRegisters(t *testing.T) {
	e, store := newTestRecallEngine(t)
	require.NoError(t, e.AddEntity(context.Background(), "Widget", "tool"))

	all, err := store.AllEntities(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "widget", all[0].Name)
	require.True(t, e.registry.Allowed("Widget"))
}

func TestRecentSecurityEventsReturnsNewestFirst(t *testing.T) {
	e, store := newTestRecallEngine(t)
	ctx := context.Background()
	require.NoError(t, store.InsertSecurityEvent(ctx, &domain.SecurityEvent{ID: "e1", EventType: "protected_entity"}))

	got, err := e.RecentSecurityEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "e1", got[0].ID)
}
