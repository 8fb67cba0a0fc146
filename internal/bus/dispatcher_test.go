package bus

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fundline/internal/deadletter"
	"fundline/internal/eventstore"
	"fundline/internal/ledger"
	"fundline/internal/logger"
	"fundline/internal/processors"
	pkgerrors "fundline/pkg/errors"
	"fundline/pkg/events"
)

type fakeProcessor struct {
	name    string
	pattern string
	handle  func(ctx context.Context, event events.Event) error

	mu    sync.Mutex
	calls int
}

func (p *fakeProcessor) Name() string    { return p.name }
func (p *fakeProcessor) Pattern() string { return p.pattern }

func (p *fakeProcessor) Handle(ctx context.Context, event events.Event) error {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	if p.handle != nil {
		return p.handle(ctx, event)
	}
	return nil
}

func (p *fakeProcessor) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type memLedger struct {
	mu      sync.Mutex
	records map[string]*ledger.Record
}

func newMemLedger() *memLedger {
	return &memLedger{records: make(map[string]*ledger.Record)}
}

func ledgerKey(eventID, processorName string) string {
	return eventID + "/" + processorName
}

func (l *memLedger) Claim(ctx context.Context, eventID, processorName string, staleBefore time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := ledgerKey(eventID, processorName)
	rec, exists := l.records[key]
	if exists {
		reclaimable := rec.Status == ledger.StatusFailed ||
			(rec.Status == ledger.StatusPending && rec.ClaimedAt.Before(staleBefore))
		if !reclaimable {
			return false, nil
		}
	}

	l.records[key] = &ledger.Record{
		EventID:       eventID,
		ProcessorName: processorName,
		Status:        ledger.StatusPending,
		ClaimedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	return true, nil
}

func (l *memLedger) MarkComplete(ctx context.Context, eventID, processorName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, exists := l.records[ledgerKey(eventID, processorName)]
	if !exists || rec.Status != ledger.StatusPending {
		return fmt.Errorf("ledger key %s/%s is not pending", eventID, processorName)
	}
	rec.Status = ledger.StatusComplete
	return nil
}

func (l *memLedger) MarkFailed(ctx context.Context, eventID, processorName, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, exists := l.records[ledgerKey(eventID, processorName)]
	if !exists || rec.Status != ledger.StatusPending {
		return fmt.Errorf("ledger key %s/%s is not pending", eventID, processorName)
	}
	rec.Status = ledger.StatusFailed
	rec.FailureReason = reason
	return nil
}

func (l *memLedger) Get(ctx context.Context, eventID, processorName string) (*ledger.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, exists := l.records[ledgerKey(eventID, processorName)]
	if !exists {
		return nil, pkgerrors.ErrNotFound
	}
	copied := *rec
	return &copied, nil
}

func (l *memLedger) List(ctx context.Context, filter ledger.Filter) ([]ledger.Record, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []ledger.Record
	for _, rec := range l.records {
		out = append(out, *rec)
	}
	return out, nil
}

func (l *memLedger) status(eventID, processorName string) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	rec, exists := l.records[ledgerKey(eventID, processorName)]
	if !exists {
		return ""
	}
	return rec.Status
}

func (l *memLedger) seed(eventID, processorName, status string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records[ledgerKey(eventID, processorName)] = &ledger.Record{
		EventID:       eventID,
		ProcessorName: processorName,
		Status:        status,
		ClaimedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
}

type memStore struct {
	mu     sync.Mutex
	events map[string]events.Event
}

func newMemStore() *memStore {
	return &memStore{events: make(map[string]events.Event)}
}

func (s *memStore) Append(ctx context.Context, event events.Event) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[event.ID]; exists {
		return false, nil
	}
	s.events[event.ID] = event
	return true, nil
}

func (s *memStore) Get(ctx context.Context, eventID string) (*events.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	event, exists := s.events[eventID]
	if !exists {
		return nil, pkgerrors.ErrNotFound
	}
	return &event, nil
}

func (s *memStore) Query(ctx context.Context, filter eventstore.Filter) ([]events.Event, error) {
	return nil, nil
}

func (s *memStore) Count(ctx context.Context, filter eventstore.Filter) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.events)), nil
}

type memDeadLetters struct {
	mu      sync.Mutex
	entries []deadletter.Entry
}

func (d *memDeadLetters) Enqueue(ctx context.Context, event events.Event, processorName, failureReason string) (*deadletter.Entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	entry := deadletter.Entry{
		ID:              fmt.Sprintf("dl-%d", len(d.entries)+1),
		OriginalEventID: event.ID,
		Event:           event,
		ProcessorName:   processorName,
		FailureReason:   failureReason,
		CreatedAt:       time.Now().UTC(),
	}
	d.entries = append(d.entries, entry)
	return &entry, nil
}

func (d *memDeadLetters) Get(ctx context.Context, id string) (*deadletter.Entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, entry := range d.entries {
		if entry.ID == id {
			copied := entry
			return &copied, nil
		}
	}
	return nil, pkgerrors.ErrNotFound
}

func (d *memDeadLetters) List(ctx context.Context, filter deadletter.Filter) ([]deadletter.Entry, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]deadletter.Entry, len(d.entries))
	copy(out, d.entries)
	return out, nil
}

func (d *memDeadLetters) Count(ctx context.Context, filter deadletter.Filter) (int64, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(len(d.entries)), nil
}

func (d *memDeadLetters) all() []deadletter.Entry {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]deadletter.Entry, len(d.entries))
	copy(out, d.entries)
	return out
}

func testEvent(id, eventType string) events.Event {
	return events.Event{
		ID:          id,
		Type:        eventType,
		AggregateID: "agg-1",
		Payload:     map[string]interface{}{"amount": 10.0},
		Timestamp:   time.Now().UTC(),
	}
}

func newTestDispatcher(led ledger.Repository, store eventstore.Repository, dls deadletter.Repository, timeout time.Duration, procs ...processors.Processor) *Dispatcher {
	registry := NewRegistry()
	for _, proc := range procs {
		if err := registry.Register(proc); err != nil {
			panic(err)
		}
	}

	log := logger.NopLogger()
	runner := processors.NewRunner(led, log, time.Minute)
	return NewDispatcher(registry, runner, store, dls, log, timeout)
}

func TestDispatchFansOutToAllMatches(t *testing.T) {
	led := newMemLedger()
	store := newMemStore()
	dls := &memDeadLetters{}

	good := &fakeProcessor{name: "good", pattern: "donation.*"}
	bad := &fakeProcessor{
		name:    "bad",
		pattern: "*",
		handle: func(ctx context.Context, event events.Event) error {
			return fmt.Errorf("boom")
		},
	}

	d := newTestDispatcher(led, store, dls, time.Second, good, bad)

	event := testEvent("evt-1", "donation.completed")
	deliveries := d.Dispatch(context.Background(), event)

	require.Len(t, deliveries, 2)
	assert.Equal(t, "good", deliveries[0].Processor)
	assert.True(t, deliveries[0].Success)
	assert.Equal(t, "bad", deliveries[1].Processor)
	assert.False(t, deliveries[1].Success)
	assert.Contains(t, deliveries[1].Error, "boom")

	assert.Equal(t, ledger.StatusComplete, led.status("evt-1", "good"))
	assert.Equal(t, ledger.StatusFailed, led.status("evt-1", "bad"))

	entries := dls.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "bad", entries[0].ProcessorName)
	assert.Equal(t, "evt-1", entries[0].OriginalEventID)
	assert.Contains(t, entries[0].FailureReason, "boom")
}

func TestDispatchNoMatchingProcessor(t *testing.T) {
	led := newMemLedger()
	store := newMemStore()
	dls := &memDeadLetters{}

	proc := &fakeProcessor{name: "donation", pattern: "donation.*"}
	d := newTestDispatcher(led, store, dls, time.Second, proc)

	deliveries := d.Dispatch(context.Background(), testEvent("evt-2", "campaign.created"))
	assert.Nil(t, deliveries)
	assert.Equal(t, 0, proc.callCount())
	assert.Empty(t, dls.all())
}

func TestDispatchTimesOutSlowProcessor(t *testing.T) {
	led := newMemLedger()
	store := newMemStore()
	dls := &memDeadLetters{}

	slow := &fakeProcessor{
		name:    "slow",
		pattern: "*",
		handle: func(ctx context.Context, event events.Event) error {
			<-ctx.Done()
			return ctx.Err()
		},
	}

	d := newTestDispatcher(led, store, dls, 50*time.Millisecond, slow)

	deliveries := d.Dispatch(context.Background(), testEvent("evt-3", "donation.completed"))
	require.Len(t, deliveries, 1)
	assert.False(t, deliveries[0].Success)

	entries := dls.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "slow", entries[0].ProcessorName)
}

func TestDispatchRecoversFromPanic(t *testing.T) {
	led := newMemLedger()
	store := newMemStore()
	dls := &memDeadLetters{}

	panicky := &fakeProcessor{
		name:    "panicky",
		pattern: "*",
		handle: func(ctx context.Context, event events.Event) error {
			panic("unexpected state")
		},
	}
	after := &fakeProcessor{name: "after", pattern: "*"}

	d := newTestDispatcher(led, store, dls, time.Second, panicky, after)

	deliveries := d.Dispatch(context.Background(), testEvent("evt-4", "donation.completed"))
	require.Len(t, deliveries, 2)
	assert.False(t, deliveries[0].Success)
	assert.True(t, deliveries[1].Success)
	assert.Equal(t, 1, after.callCount())

	require.Len(t, dls.all(), 1)
}

func TestDispatchSkipsCompletedLedgerKey(t *testing.T) {
	led := newMemLedger()
	store := newMemStore()
	dls := &memDeadLetters{}

	proc := &fakeProcessor{name: "donation", pattern: "donation.*"}
	led.seed("evt-5", "donation", ledger.StatusComplete)

	d := newTestDispatcher(led, store, dls, time.Second, proc)

	deliveries := d.Dispatch(context.Background(), testEvent("evt-5", "donation.completed"))
	require.Len(t, deliveries, 1)
	assert.True(t, deliveries[0].Success)
	assert.Equal(t, 0, proc.callCount())
	assert.Empty(t, dls.all())
}

func TestPublishRejectsInvalidEvent(t *testing.T) {
	led := newMemLedger()
	store := newMemStore()
	dls := &memDeadLetters{}

	proc := &fakeProcessor{name: "donation", pattern: "donation.*"}
	d := newTestDispatcher(led, store, dls, time.Second, proc)

	event := testEvent("evt-6", "donation.completed")
	event.Type = ""

	err := d.Publish(context.Background(), event)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))

	count, _ := store.Count(context.Background(), eventstore.Filter{})
	assert.Zero(t, count)
}

func TestPublishAppendsAndDispatches(t *testing.T) {
	led := newMemLedger()
	store := newMemStore()
	dls := &memDeadLetters{}

	proc := &fakeProcessor{name: "donation", pattern: "donation.*"}
	d := newTestDispatcher(led, store, dls, time.Second, proc)

	event := testEvent("evt-7", "donation.completed")
	require.NoError(t, d.Publish(context.Background(), event))

	stored, err := store.Get(context.Background(), "evt-7")
	require.NoError(t, err)
	assert.Equal(t, "donation.completed", stored.Type)

	require.Eventually(t, func() bool {
		return proc.callCount() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestPublishDuplicateSkipsDispatch(t *testing.T) {
	led := newMemLedger()
	store := newMemStore()
	dls := &memDeadLetters{}

	proc := &fakeProcessor{name: "donation", pattern: "donation.*"}
	d := newTestDispatcher(led, store, dls, time.Second, proc)

	event := testEvent("evt-8", "donation.completed")
	_, err := store.Append(context.Background(), event)
	require.NoError(t, err)

	require.NoError(t, d.Publish(context.Background(), event))

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 0, proc.callCount())
}

func TestPublishSurvivesCallerContextCancel(t *testing.T) {
	led := newMemLedger()
	store := newMemStore()
	dls := &memDeadLetters{}

	proc := &fakeProcessor{name: "donation", pattern: "donation.*"}
	d := newTestDispatcher(led, store, dls, time.Second, proc)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, d.Publish(ctx, testEvent("evt-9", "donation.completed")))
	cancel()

	require.Eventually(t, func() bool {
		return proc.callCount() == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, ledger.StatusComplete, led.status("evt-9", "donation"))
}
