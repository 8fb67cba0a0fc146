package integration

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"fundline/internal/audit"
	"fundline/internal/bus"
	"fundline/internal/deadletter"
	"fundline/internal/eventstore"
	"fundline/internal/ledger"
	"fundline/internal/logger"
	"fundline/internal/notify"
	"fundline/internal/processors"
	"fundline/internal/processors/campaign"
	"fundline/internal/processors/donation"
	"fundline/internal/processors/update"
	"fundline/internal/search"
	"fundline/pkg/events"
)

const containerStartupTimeout = 60

func createTestLogger() logger.Logger {
	return logger.NopLogger()
}

func createTestEvent(id, eventType, aggregateID string, payload map[string]interface{}, at time.Time) events.Event {
	return events.Event{
		ID:          id,
		Type:        eventType,
		AggregateID: aggregateID,
		Payload:     payload,
		Version:     events.DefaultVersion,
		Timestamp:   at,
	}
}

type pipeline struct {
	dispatcher  *bus.Dispatcher
	store       eventstore.Repository
	ledger      ledger.Repository
	deadLetters deadletter.Repository
	donations   donation.Repository
	search      search.Repository
}

// buildPipeline wires the full dispatch path against real Postgres and Mongo,
// with notification chaining disabled.
func buildPipeline(t *testing.T, infra *TestInfra) *pipeline {
	t.Helper()

	log := createTestLogger()
	store := eventstore.NewRepository(infra.PostgresDB)
	ledgerRepo := ledger.NewRepository(infra.PostgresDB)
	deadLetters := deadletter.NewRepository(infra.PostgresDB)
	auditWriter := audit.NewWriter(infra.PostgresDB)
	donations := donation.NewRepository(infra.PostgresDB)
	roles := campaign.NewRepository(infra.PostgresDB)
	searchRepo := search.NewRepository(infra.MongoDB)
	notifier := notify.NewNotifier(nil, "")

	registry := bus.NewRegistry()
	require.NoError(t, registry.Register(donation.NewProcessor(donations, auditWriter, notifier, log)))
	require.NoError(t, registry.Register(campaign.NewProcessor(roles, searchRepo, auditWriter, log)))
	require.NoError(t, registry.Register(update.NewProcessor(auditWriter, notifier, log)))

	runner := processors.NewRunner(ledgerRepo, log, 5*time.Minute)
	dispatcher := bus.NewDispatcher(registry, runner, store, deadLetters, log, 10*time.Second)

	return &pipeline{
		dispatcher:  dispatcher,
		store:       store,
		ledger:      ledgerRepo,
		deadLetters: deadLetters,
		donations:   donations,
		search:      searchRepo,
	}
}

func countAuditEntries(t *testing.T, db *sql.DB, sourceEventID string) int {
	t.Helper()

	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM audit_logs WHERE source_event_id = $1", sourceEventID,
	).Scan(&count)
	require.NoError(t, err)
	return count
}

func countUserRoles(t *testing.T, db *sql.DB, userID, role string) int {
	t.Helper()

	var count int
	err := db.QueryRowContext(context.Background(),
		"SELECT COUNT(*) FROM user_roles WHERE user_id = $1 AND role = $2", userID, role,
	).Scan(&count)
	require.NoError(t, err)
	return count
}
