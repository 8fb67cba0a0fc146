package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name      string
		event     Event
		wantError bool
	}{
		{
			name:      "valid event",
			event:     Event{ID: "e1", Type: TypeDonationCompleted, Timestamp: now},
			wantError: false,
		},
		{
			name:      "missing id",
			event:     Event{Type: TypeDonationCompleted, Timestamp: now},
			wantError: true,
		},
		{
			name:      "missing type",
			event:     Event{ID: "e1", Timestamp: now},
			wantError: true,
		},
		{
			name:      "type without namespace",
			event:     Event{ID: "e1", Type: "donation", Timestamp: now},
			wantError: true,
		},
		{
			name:      "type with wildcard",
			event:     Event{ID: "e1", Type: "donation.*", Timestamp: now},
			wantError: true,
		},
		{
			name:      "missing timestamp",
			event:     Event{ID: "e1", Type: TypeDonationCompleted},
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if tt.wantError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		name      string
		pattern   string
		eventType string
		want      bool
	}{
		{"exact match", "donation.completed", "donation.completed", true},
		{"exact mismatch", "donation.completed", "donation.refunded", false},
		{"wildcard matches completed", "donation.*", "donation.completed", true},
		{"wildcard matches refunded", "donation.*", "donation.refunded", true},
		{"wildcard matches failed", "donation.*", "donation.failed", true},
		{"wildcard does not match other aggregate", "donation.*", "campaign.created", false},
		{"wildcard is prefix bound", "donation.*", "donations.completed", false},
		{"wildcard does not match bare aggregate", "donation.*", "donation", false},
		{"match all", "*", "campaign.created", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchesPattern(tt.pattern, tt.eventType))
		})
	}
}

func TestValidPattern(t *testing.T) {
	assert.True(t, ValidPattern("donation.*"))
	assert.True(t, ValidPattern("donation.completed"))
	assert.True(t, ValidPattern("*"))
	assert.False(t, ValidPattern(""))
	assert.False(t, ValidPattern("donation"))
	assert.False(t, ValidPattern("don*tion.*"))
}

func TestTimestampWireFormat(t *testing.T) {
	ts := time.UnixMilli(1700000000123).UTC()
	ev := NewBuilder().
		WithID("e1").
		WithType(TypeCampaignCreated).
		WithAggregateID("c1").
		WithTimestamp(ts).
		Build()

	data, err := json.Marshal(ev)
	require.NoError(t, err)

	var raw map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, float64(1700000000123), raw["timestamp"])

	var decoded Event
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ts, decoded.Timestamp)
	assert.Equal(t, "c1", decoded.AggregateID)
}

func TestBuilderDefaults(t *testing.T) {
	ev := NewBuilder().WithType(TypeDonationCompleted).Build()
	assert.NotEmpty(t, ev.ID)
	assert.False(t, ev.Timestamp.IsZero())
	assert.Equal(t, DefaultVersion, ev.Version)
}

func TestCausedBy(t *testing.T) {
	cause := Event{ID: "e1", Type: TypeDonationCompleted, CorrelationID: "corr-1"}
	ev := NewBuilder().WithType(TypeNotificationRequested).CausedBy(cause).Build()
	assert.Equal(t, "e1", ev.CausationID)
	assert.Equal(t, "corr-1", ev.CorrelationID)
}
