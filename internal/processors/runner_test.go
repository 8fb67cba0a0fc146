package processors

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundline/internal/ledger"
	"fundline/internal/logger"
	pkgerrors "fundline/pkg/errors"
	"fundline/pkg/events"
)

type stubProcessor struct {
	name   string
	handle func(ctx context.Context, event events.Event) error
	calls  int
}

func (p *stubProcessor) Name() string    { return p.name }
func (p *stubProcessor) Pattern() string { return "*" }

func (p *stubProcessor) Handle(ctx context.Context, event events.Event) error {
	p.calls++
	if p.handle != nil {
		return p.handle(ctx, event)
	}
	return nil
}

type stubLedger struct {
	claimResult  bool
	claimErr     error
	staleBefore  time.Time
	honorContext bool

	completed []string
	failed    map[string]string
}

func newStubLedger(claimResult bool) *stubLedger {
	return &stubLedger{
		claimResult: claimResult,
		failed:      make(map[string]string),
	}
}

func (l *stubLedger) Claim(ctx context.Context, eventID, processorName string, staleBefore time.Time) (bool, error) {
	l.staleBefore = staleBefore
	return l.claimResult, l.claimErr
}

func (l *stubLedger) MarkComplete(ctx context.Context, eventID, processorName string) error {
	l.completed = append(l.completed, eventID+"/"+processorName)
	return nil
}

func (l *stubLedger) MarkFailed(ctx context.Context, eventID, processorName, reason string) error {
	if l.honorContext {
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	l.failed[eventID+"/"+processorName] = reason
	return nil
}

func (l *stubLedger) Get(ctx context.Context, eventID, processorName string) (*ledger.Record, error) {
	return nil, pkgerrors.ErrNotFound
}

func (l *stubLedger) List(ctx context.Context, filter ledger.Filter) ([]ledger.Record, error) {
	return nil, nil
}

func runnerTestEvent() events.Event {
	return events.Event{
		ID:        "evt-1",
		Type:      "donation.completed",
		Timestamp: time.Now().UTC(),
	}
}

func TestRunnerClaimHandleComplete(t *testing.T) {
	led := newStubLedger(true)
	runner := NewRunner(led, logger.NopLogger(), time.Minute)
	proc := &stubProcessor{name: "donation"}

	err := runner.Run(context.Background(), proc, runnerTestEvent())
	require.NoError(t, err)

	assert.Equal(t, 1, proc.calls)
	assert.Equal(t, []string{"evt-1/donation"}, led.completed)
	assert.Empty(t, led.failed)
}

func TestRunnerSkipsWhenClaimLost(t *testing.T) {
	led := newStubLedger(false)
	runner := NewRunner(led, logger.NopLogger(), time.Minute)
	proc := &stubProcessor{name: "donation"}

	err := runner.Run(context.Background(), proc, runnerTestEvent())
	require.NoError(t, err)

	assert.Equal(t, 0, proc.calls)
	assert.Empty(t, led.completed)
}

func TestRunnerMarksFailedOnHandlerError(t *testing.T) {
	led := newStubLedger(true)
	runner := NewRunner(led, logger.NopLogger(), time.Minute)
	proc := &stubProcessor{
		name: "donation",
		handle: func(ctx context.Context, event events.Event) error {
			return fmt.Errorf("db unavailable")
		},
	}

	err := runner.Run(context.Background(), proc, runnerTestEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db unavailable")

	assert.Empty(t, led.completed)
	assert.Equal(t, "db unavailable", led.failed["evt-1/donation"])
}

func TestRunnerMarksFailedAfterHandlerTimeout(t *testing.T) {
	led := newStubLedger(true)
	led.honorContext = true
	runner := NewRunner(led, logger.NopLogger(), time.Minute)
	proc := &stubProcessor{
		name: "donation",
		handle: func(ctx context.Context, event events.Event) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := runner.Run(ctx, proc, runnerTestEvent())
	require.Error(t, err)

	// The failure must land in the ledger even though the handler context
	// is already expired; a pending row here would make a prompt replay
	// skip the event.
	assert.Equal(t, context.DeadlineExceeded.Error(), led.failed["evt-1/donation"])
	assert.Empty(t, led.completed)
}

func TestRunnerPropagatesClaimError(t *testing.T) {
	led := newStubLedger(false)
	led.claimErr = fmt.Errorf("connection refused")
	runner := NewRunner(led, logger.NopLogger(), time.Minute)
	proc := &stubProcessor{name: "donation"}

	err := runner.Run(context.Background(), proc, runnerTestEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ledger claim failed")
	assert.Equal(t, 0, proc.calls)
}

func TestRunnerStaleClaimCutoff(t *testing.T) {
	led := newStubLedger(true)
	staleClaimAge := 10 * time.Minute
	runner := NewRunner(led, logger.NopLogger(), staleClaimAge)
	proc := &stubProcessor{name: "donation"}

	before := time.Now().Add(-staleClaimAge)
	require.NoError(t, runner.Run(context.Background(), proc, runnerTestEvent()))
	after := time.Now().Add(-staleClaimAge)

	assert.False(t, led.staleBefore.Before(before))
	assert.False(t, led.staleBefore.After(after))
}
