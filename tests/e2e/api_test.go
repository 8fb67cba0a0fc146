package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundline/internal/admin"
	"fundline/internal/ledger"
	"fundline/internal/replay"
)

const defaultAdminServiceURL = "http://localhost:8080"

func adminServiceURL() string {
	if url := os.Getenv("ADMIN_SERVICE_URL"); url != "" {
		return url
	}
	return defaultAdminServiceURL
}

func requireAdminService(t *testing.T) {
	t.Helper()

	resp, err := http.Get(fmt.Sprintf("%s/health", adminServiceURL()))
	if err != nil {
		t.Skipf("admin service not reachable at %s: %v", adminServiceURL(), err)
	}
	resp.Body.Close()
}

func TestAdminServiceHealth(t *testing.T) {
	requireAdminService(t)

	resp, err := http.Get(fmt.Sprintf("%s/health", adminServiceURL()))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]interface{}
	err = json.NewDecoder(resp.Body).Decode(&health)
	require.NoError(t, err)
	assert.NotNil(t, health["status"])
}

func TestPublishEventAndLedger(t *testing.T) {
	requireAdminService(t)

	resp := publishEvent(t, admin.PublishEventRequest{
		Type:        "donation.completed",
		AggregateID: "e2e-don-1",
		Payload: map[string]interface{}{
			"donation_id": "e2e-don-1",
			"campaign_id": "e2e-camp-1",
			"amount":      12.5,
		},
	})
	require.NotEmpty(t, resp.EventID)
	assert.Equal(t, "accepted", resp.Status)

	require.Eventually(t, func() bool {
		records := listLedgerRecords(t, resp.EventID, "donation")
		return len(records) == 1 && records[0].Status == ledger.StatusComplete
	}, 30*time.Second, 500*time.Millisecond, "donation processor should complete the ledger key")
}

func TestPublishEventValidation(t *testing.T) {
	requireAdminService(t)

	// Missing type fails binding.
	resp := publishEventRaw(t, map[string]interface{}{
		"aggregate_id": "e2e-don-2",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Wildcards are reserved for subscription patterns.
	resp = publishEventRaw(t, map[string]interface{}{
		"type": "donation.*",
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReplayDryRun(t *testing.T) {
	requireAdminService(t)

	publishEvent(t, admin.PublishEventRequest{
		Type:        "donation.completed",
		AggregateID: "e2e-don-3",
		Payload: map[string]interface{}{
			"donation_id": "e2e-don-3",
			"campaign_id": "e2e-camp-1",
			"amount":      5.0,
		},
	})

	body, err := json.Marshal(replay.Request{
		Types:  []string{"donation.completed"},
		DryRun: true,
	})
	require.NoError(t, err)

	resp, err := http.Post(
		fmt.Sprintf("%s/api/v1/replay", adminServiceURL()),
		"application/json",
		bytes.NewBuffer(body),
	)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var summary replay.Summary
	err = json.NewDecoder(resp.Body).Decode(&summary)
	require.NoError(t, err)

	assert.True(t, summary.DryRun)
	assert.GreaterOrEqual(t, summary.MatchedEvents, 1)
	assert.Equal(t, 0, summary.ReplayedEvents)
}

func TestReplayRejectsInvalidExpression(t *testing.T) {
	requireAdminService(t)

	body, err := json.Marshal(replay.Request{
		MatchExpression: "payload.amount >",
		DryRun:          true,
	})
	require.NoError(t, err)

	resp, err := http.Post(
		fmt.Sprintf("%s/api/v1/replay", adminServiceURL()),
		"application/json",
		bytes.NewBuffer(body),
	)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestListDeadLetters(t *testing.T) {
	requireAdminService(t)

	resp, err := http.Get(fmt.Sprintf("%s/api/v1/deadletters?limit=10", adminServiceURL()))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list admin.DeadLetterListResponse
	err = json.NewDecoder(resp.Body).Decode(&list)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, list.Total, int64(len(list.Entries)))
}

func publishEvent(t *testing.T, req admin.PublishEventRequest) admin.PublishEventResponse {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	resp, err := http.Post(
		fmt.Sprintf("%s/api/v1/events", adminServiceURL()),
		"application/json",
		bytes.NewBuffer(body),
	)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var out admin.PublishEventResponse
	err = json.NewDecoder(resp.Body).Decode(&out)
	require.NoError(t, err)

	return out
}

func publishEventRaw(t *testing.T, req map[string]interface{}) *http.Response {
	t.Helper()

	body, err := json.Marshal(req)
	require.NoError(t, err)

	resp, err := http.Post(
		fmt.Sprintf("%s/api/v1/events", adminServiceURL()),
		"application/json",
		bytes.NewBuffer(body),
	)
	require.NoError(t, err)

	return resp
}

func listLedgerRecords(t *testing.T, eventID, processor string) []ledger.Record {
	t.Helper()

	resp, err := http.Get(fmt.Sprintf("%s/api/v1/ledger?event_id=%s&processor=%s", adminServiceURL(), eventID, processor))
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list admin.LedgerListResponse
	err = json.NewDecoder(resp.Body).Decode(&list)
	require.NoError(t, err)

	return list.Records
}
