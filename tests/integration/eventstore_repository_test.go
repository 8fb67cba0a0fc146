package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundline/internal/eventstore"
	pkgerrors "fundline/pkg/errors"
	"fundline/pkg/events"
)

func TestEventStore_AppendIdempotent(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	ctx := context.Background()
	repo := eventstore.NewRepository(infra.PostgresDB)

	event := createTestEvent("evt-append-1", "donation.completed", "don-1",
		map[string]interface{}{"amount": 25.0}, time.Now().UTC().Truncate(time.Millisecond))

	inserted, err := repo.Append(ctx, event)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = repo.Append(ctx, event)
	require.NoError(t, err)
	assert.False(t, inserted)

	count, err := repo.Count(ctx, eventstore.Filter{Types: []string{"donation.completed"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestEventStore_GetRoundTrip(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	ctx := context.Background()
	repo := eventstore.NewRepository(infra.PostgresDB)

	occurredAt := time.Date(2026, 4, 1, 12, 30, 0, 0, time.UTC)
	event := events.Event{
		ID:            "evt-roundtrip-1",
		Type:          "campaign.created",
		AggregateID:   "camp-1",
		Payload:       map[string]interface{}{"title": "Reforest the delta", "goal_amount": 5000.0},
		Version:       events.DefaultVersion,
		CorrelationID: "corr-1",
		CausationID:   "evt-0",
		Metadata:      map[string]interface{}{"origin": "api"},
		Timestamp:     occurredAt,
	}

	_, err := repo.Append(ctx, event)
	require.NoError(t, err)

	got, err := repo.Get(ctx, "evt-roundtrip-1")
	require.NoError(t, err)

	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, event.Type, got.Type)
	assert.Equal(t, event.AggregateID, got.AggregateID)
	assert.Equal(t, event.CorrelationID, got.CorrelationID)
	assert.Equal(t, event.CausationID, got.CausationID)
	assert.Equal(t, "Reforest the delta", got.PayloadString("title"))
	assert.Equal(t, 5000.0, got.PayloadFloat("goal_amount"))
	assert.Equal(t, "api", got.Metadata["origin"])
	assert.True(t, got.Timestamp.Equal(occurredAt))
}

func TestEventStore_GetNotFound(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := eventstore.NewRepository(infra.PostgresDB)

	_, err := repo.Get(context.Background(), "evt-missing")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestEventStore_QueryFilters(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	ctx := context.Background()
	repo := eventstore.NewRepository(infra.PostgresDB)

	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	seed := []events.Event{
		createTestEvent("evt-f-1", "donation.completed", "don-1", map[string]interface{}{"amount": 10.0}, base),
		createTestEvent("evt-f-2", "donation.refunded", "don-1", map[string]interface{}{"amount": 10.0}, base.Add(time.Minute)),
		createTestEvent("evt-f-3", "campaign.created", "camp-1", map[string]interface{}{"title": "x"}, base.Add(2*time.Minute)),
		createTestEvent("evt-f-4", "donation.completed", "don-2", map[string]interface{}{"amount": 20.0}, base.Add(time.Hour)),
	}
	for _, event := range seed {
		_, err := repo.Append(ctx, event)
		require.NoError(t, err)
	}

	byType, err := repo.Query(ctx, eventstore.Filter{Types: []string{"donation.completed", "donation.refunded"}})
	require.NoError(t, err)
	require.Len(t, byType, 3)
	assert.Equal(t, "evt-f-1", byType[0].ID)
	assert.Equal(t, "evt-f-2", byType[1].ID)
	assert.Equal(t, "evt-f-4", byType[2].ID)

	byAggregate, err := repo.Query(ctx, eventstore.Filter{AggregateID: "don-1"})
	require.NoError(t, err)
	require.Len(t, byAggregate, 2)

	byRange, err := repo.Query(ctx, eventstore.Filter{From: base, To: base.Add(30 * time.Minute)})
	require.NoError(t, err)
	require.Len(t, byRange, 3)

	count, err := repo.Count(ctx, eventstore.Filter{Types: []string{"campaign.created"}})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestEventStore_CursorPagination(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	ctx := context.Background()
	repo := eventstore.NewRepository(infra.PostgresDB)

	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	ids := []string{"evt-p-1", "evt-p-2", "evt-p-3", "evt-p-4", "evt-p-5"}
	// evt-p-2 and evt-p-3 share a timestamp; the id tiebreak keeps the scan total.
	stamps := []time.Time{base, base.Add(time.Minute), base.Add(time.Minute), base.Add(2 * time.Minute), base.Add(3 * time.Minute)}
	for i, id := range ids {
		_, err := repo.Append(ctx, createTestEvent(id, "donation.completed", "don-1", map[string]interface{}{"n": float64(i)}, stamps[i]))
		require.NoError(t, err)
	}

	filter := eventstore.Filter{Limit: 2}
	var seen []string
	for {
		batch, err := repo.Query(ctx, filter)
		require.NoError(t, err)
		if len(batch) == 0 {
			break
		}
		for _, event := range batch {
			seen = append(seen, event.ID)
		}
		last := batch[len(batch)-1]
		filter.AfterTimestamp = last.Timestamp
		filter.AfterID = last.ID
	}

	assert.Equal(t, ids, seen)
}
