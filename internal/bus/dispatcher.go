package bus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fundline/internal/constants"
	"fundline/internal/deadletter"
	"fundline/internal/eventstore"
	"fundline/internal/logger"
	"fundline/internal/processors"
	pkgerrors "fundline/pkg/errors"
	"fundline/pkg/events"
	"fundline/pkg/logging"
	"fundline/pkg/metrics"
)

// Delivery is the outcome of handing one event to one processor.
type Delivery struct {
	Processor string        `json:"processor"`
	Success   bool          `json:"success"`
	Error     string        `json:"error,omitempty"`
	Duration  time.Duration `json:"duration"`
}

// Dispatcher fans events out to every matching processor. Each delivery runs
// under its own timeout with panic recovery; a failed delivery produces
// exactly one dead-letter entry and never stops the remaining deliveries.
type Dispatcher struct {
	registry       *Registry
	runner         *processors.Runner
	store          eventstore.Repository
	deadLetters    deadletter.Repository
	logger         logger.Logger
	processTimeout time.Duration
}

func NewDispatcher(
	registry *Registry,
	runner *processors.Runner,
	store eventstore.Repository,
	deadLetters deadletter.Repository,
	log logger.Logger,
	processTimeout time.Duration,
) *Dispatcher {
	if processTimeout <= 0 {
		processTimeout = constants.DefaultProcessTimeout
	}
	return &Dispatcher{
		registry:       registry,
		runner:         runner,
		store:          store,
		deadLetters:    deadLetters,
		logger:         log,
		processTimeout: processTimeout,
	}
}

// Publish validates and persists the event, then dispatches it on a
// detached context. The producer learns only whether the event was accepted
// into the log; processor outcomes never propagate back.
func (d *Dispatcher) Publish(ctx context.Context, event events.Event) error {
	if err := event.Validate(); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(event.Type, "rejected").Inc()
		return pkgerrors.ErrValidation.WithCause(err).WithDetail("message", err.Error())
	}

	appended, err := d.store.Append(ctx, event)
	if err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(event.Type, "error").Inc()
		return fmt.Errorf("failed to append event: %w", err)
	}

	metrics.EventsPublishedTotal.WithLabelValues(event.Type, "accepted").Inc()

	if !appended {
		d.logger.InfowCtx(ctx, "Event already stored, skipping dispatch",
			"event_id", event.ID,
			"event_type", event.Type,
		)
		return nil
	}

	go d.Dispatch(context.WithoutCancel(ctx), event)

	return nil
}

// Dispatch synchronously fans the event out and reports every delivery.
// It is the single dispatch path: the broker consumer and the replay service
// both go through here.
func (d *Dispatcher) Dispatch(ctx context.Context, event events.Event) []Delivery {
	ctx = logging.WithEventID(ctx, event.ID)
	if event.CorrelationID != "" {
		ctx = logging.WithCorrelationID(ctx, event.CorrelationID)
	}

	matched := d.registry.Match(event.Type)
	if len(matched) == 0 {
		d.logger.InfowCtx(ctx, "No processor matches event type",
			"event_type", event.Type,
		)
		return nil
	}

	deliveries := make([]Delivery, 0, len(matched))
	for _, proc := range matched {
		deliveries = append(deliveries, d.deliver(ctx, proc, event))
	}

	return deliveries
}

func (d *Dispatcher) deliver(ctx context.Context, proc processors.Processor, event events.Event) Delivery {
	start := time.Now()

	procCtx, cancel := context.WithTimeout(ctx, d.processTimeout)
	defer cancel()

	err := d.runProtected(procCtx, proc, event)
	duration := time.Since(start)

	if err != nil {
		metrics.EventsDispatchedTotal.WithLabelValues(proc.Name(), "failed").Inc()
		metrics.ObserveDispatchDuration(proc.Name(), "failed", duration)

		d.logger.ErrorwCtx(ctx, "Processor failed",
			"processor", proc.Name(),
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err,
			"duration", duration,
		)

		d.enqueueDeadLetter(ctx, proc.Name(), event, err)

		return Delivery{
			Processor: proc.Name(),
			Success:   false,
			Error:     err.Error(),
			Duration:  duration,
		}
	}

	metrics.EventsDispatchedTotal.WithLabelValues(proc.Name(), "success").Inc()
	metrics.ObserveDispatchDuration(proc.Name(), "success", duration)

	return Delivery{
		Processor: proc.Name(),
		Success:   true,
		Duration:  duration,
	}
}

func (d *Dispatcher) runProtected(ctx context.Context, proc processors.Processor, event events.Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = pkgerrors.RecoverPanic(r)
		}
	}()

	return d.runner.Run(ctx, proc, event)
}

// enqueueDeadLetter uses a detached context so an expired processor timeout
// cannot also lose the failure record.
func (d *Dispatcher) enqueueDeadLetter(ctx context.Context, processorName string, event events.Event, cause error) {
	dlqCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.ShutdownTimeout)
	defer cancel()

	reason := classifyFailure(cause)
	if _, err := d.deadLetters.Enqueue(dlqCtx, event, processorName, cause.Error()); err != nil {
		d.logger.ErrorwCtx(ctx, "Failed to write dead letter",
			"processor", processorName,
			"event_id", event.ID,
			"error", err,
		)
		return
	}

	metrics.DeadLettersTotal.WithLabelValues(processorName, reason).Inc()
}

func classifyFailure(err error) string {
	switch {
	case err == nil:
		return "unknown"
	case pkgerrors.IsValidation(err):
		return "validation"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "processing_error"
	}
}
