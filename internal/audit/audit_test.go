package audit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRejectsUnencodableDetails(t *testing.T) {
	w := NewWriter(nil)

	err := w.Record(context.Background(), Entry{
		SourceEventID: "evt-1",
		Action:        "donation_completed",
		Details: map[string]interface{}{
			"callback": func() {},
		},
		Timestamp: time.Now().UTC(),
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to encode audit details")
}
