package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundline/internal/ledger"
	pkgerrors "fundline/pkg/errors"
)

func staleCutoff() time.Time {
	return time.Now().Add(-5 * time.Minute)
}

func TestLedger_ClaimFirstWins(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	ctx := context.Background()
	repo := ledger.NewRepository(infra.PostgresDB)

	claimed, err := repo.Claim(ctx, "evt-1", "donation", staleCutoff())
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = repo.Claim(ctx, "evt-1", "donation", staleCutoff())
	require.NoError(t, err)
	assert.False(t, claimed)

	// A different processor name is a different key.
	claimed, err = repo.Claim(ctx, "evt-1", "campaign", staleCutoff())
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestLedger_CompleteBlocksReclaim(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	ctx := context.Background()
	repo := ledger.NewRepository(infra.PostgresDB)

	claimed, err := repo.Claim(ctx, "evt-1", "donation", staleCutoff())
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, repo.MarkComplete(ctx, "evt-1", "donation"))

	// Complete keys stay complete even when the caller treats every pending
	// claim as stale.
	claimed, err = repo.Claim(ctx, "evt-1", "donation", time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, claimed)

	record, err := repo.Get(ctx, "evt-1", "donation")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusComplete, record.Status)
	require.NotNil(t, record.CompletedAt)
}

func TestLedger_FailedKeyIsReclaimable(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	ctx := context.Background()
	repo := ledger.NewRepository(infra.PostgresDB)

	claimed, err := repo.Claim(ctx, "evt-1", "donation", staleCutoff())
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, repo.MarkFailed(ctx, "evt-1", "donation", "db unavailable"))

	record, err := repo.Get(ctx, "evt-1", "donation")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusFailed, record.Status)
	assert.Equal(t, "db unavailable", record.FailureReason)

	claimed, err = repo.Claim(ctx, "evt-1", "donation", staleCutoff())
	require.NoError(t, err)
	assert.True(t, claimed)

	record, err = repo.Get(ctx, "evt-1", "donation")
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPending, record.Status)
	assert.Empty(t, record.FailureReason)
}

func TestLedger_StalePendingIsReclaimable(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	ctx := context.Background()
	repo := ledger.NewRepository(infra.PostgresDB)

	claimed, err := repo.Claim(ctx, "evt-1", "donation", staleCutoff())
	require.NoError(t, err)
	require.True(t, claimed)

	// Fresh pending claim is held.
	claimed, err = repo.Claim(ctx, "evt-1", "donation", staleCutoff())
	require.NoError(t, err)
	assert.False(t, claimed)

	// A cutoff in the future makes the claim stale, simulating a claimant
	// that died mid-processing.
	claimed, err = repo.Claim(ctx, "evt-1", "donation", time.Now().Add(time.Minute))
	require.NoError(t, err)
	assert.True(t, claimed)
}

func TestLedger_MarkCompleteRequiresPending(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	ctx := context.Background()
	repo := ledger.NewRepository(infra.PostgresDB)

	err := repo.MarkComplete(ctx, "evt-unclaimed", "donation")
	require.Error(t, err)

	claimed, err := repo.Claim(ctx, "evt-1", "donation", staleCutoff())
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, repo.MarkComplete(ctx, "evt-1", "donation"))

	err = repo.MarkComplete(ctx, "evt-1", "donation")
	require.Error(t, err)

	err = repo.MarkFailed(ctx, "evt-1", "donation", "late failure")
	require.Error(t, err)
}

func TestLedger_GetNotFound(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	repo := ledger.NewRepository(infra.PostgresDB)

	_, err := repo.Get(context.Background(), "evt-missing", "donation")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestLedger_ListFilters(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, false)

	ctx := context.Background()
	repo := ledger.NewRepository(infra.PostgresDB)

	for _, key := range []struct{ event, processor string }{
		{"evt-1", "donation"},
		{"evt-1", "campaign"},
		{"evt-2", "donation"},
	} {
		claimed, err := repo.Claim(ctx, key.event, key.processor, staleCutoff())
		require.NoError(t, err)
		require.True(t, claimed)
	}
	require.NoError(t, repo.MarkComplete(ctx, "evt-1", "donation"))
	require.NoError(t, repo.MarkFailed(ctx, "evt-2", "donation", "boom"))

	byEvent, err := repo.List(ctx, ledger.Filter{EventID: "evt-1"})
	require.NoError(t, err)
	assert.Len(t, byEvent, 2)

	byStatus, err := repo.List(ctx, ledger.Filter{Status: ledger.StatusFailed})
	require.NoError(t, err)
	require.Len(t, byStatus, 1)
	assert.Equal(t, "evt-2", byStatus[0].EventID)

	byProcessor, err := repo.List(ctx, ledger.Filter{ProcessorName: "donation", Limit: 10})
	require.NoError(t, err)
	assert.Len(t, byProcessor, 2)
}

func TestLedger_CachedCompleteShortCircuits(t *testing.T) {
	infra := SetupTestInfraWithOptions(t, true, false, true)

	ctx := context.Background()
	base := ledger.NewRepository(infra.PostgresDB)
	cached := ledger.NewCachedRepository(base, infra.RedisClient, time.Minute, createTestLogger())

	claimed, err := cached.Claim(ctx, "evt-1", "donation", staleCutoff())
	require.NoError(t, err)
	require.True(t, claimed)

	require.NoError(t, cached.MarkComplete(ctx, "evt-1", "donation"))

	claimed, err = cached.Claim(ctx, "evt-1", "donation", staleCutoff())
	require.NoError(t, err)
	assert.False(t, claimed)

	// Cache is an optimization only; an evicted key still lands on the
	// durable ledger and gets the same answer.
	require.NoError(t, infra.RedisClient.FlushAll(ctx).Err())

	claimed, err = cached.Claim(ctx, "evt-1", "donation", staleCutoff())
	require.NoError(t, err)
	assert.False(t, claimed)
}
