package replay

import (
	"context"
	"fmt"
	"time"

	celgo "github.com/google/cel-go/cel"
	"github.com/google/uuid"

	"fundline/internal/bus"
	"fundline/internal/constants"
	"fundline/internal/eventstore"
	"fundline/internal/logger"
	"fundline/pkg/cel"
	pkgerrors "fundline/pkg/errors"
	"fundline/pkg/events"
	"fundline/pkg/logging"
	"fundline/pkg/metrics"
)

// CursorStorage checkpoints replay progress per run id.
type CursorStorage interface {
	Save(ctx context.Context, runID string, cursor eventstore.Cursor) error
	Load(ctx context.Context, runID string) (*eventstore.Cursor, error)
	Clear(ctx context.Context, runID string) error
}

// Service re-drives stored events through the normal dispatch path. Safety
// comes from the ledger, not from replay itself: complete keys are skipped
// by every processor, so replaying a healthy range is a no-op.
type Service struct {
	store      eventstore.Repository
	dispatcher *bus.Dispatcher
	cursors    CursorStorage
	evaluator  *cel.Evaluator
	logger     logger.Logger
	batchSize  int
}

func NewService(
	store eventstore.Repository,
	dispatcher *bus.Dispatcher,
	cursors CursorStorage,
	evaluator *cel.Evaluator,
	log logger.Logger,
	batchSize int,
) *Service {
	if batchSize <= 0 {
		batchSize = constants.DefaultReplayBatchSize
	}
	return &Service{
		store:      store,
		dispatcher: dispatcher,
		cursors:    cursors,
		evaluator:  evaluator,
		logger:     log,
		batchSize:  batchSize,
	}
}

// Replay runs one replay pass and reports the aggregate outcome. A dry run
// only counts what would be dispatched; it writes nothing, not even a
// cursor. A live run checkpoints after every event and continues past
// failures.
func (s *Service) Replay(ctx context.Context, req Request) (*Summary, error) {
	runID := req.RunID
	if runID == "" {
		runID = uuid.New().String()
	}
	ctx = logging.WithCorrelationID(ctx, runID)

	var program celgo.Program
	if req.MatchExpression != "" {
		var err error
		program, err = s.evaluator.CompileMatch(req.MatchExpression)
		if err != nil {
			return nil, pkgerrors.ErrValidation.WithCause(err).WithDetail("message", err.Error())
		}
	}

	summary := &Summary{
		RunID:     runID,
		DryRun:    req.DryRun,
		StartedAt: time.Now().UTC(),
	}

	filter := eventstore.Filter{
		From:        req.From,
		To:          req.To,
		Types:       req.Types,
		AggregateID: req.AggregateID,
		Limit:       s.batchSize,
	}

	if !req.DryRun && req.RunID != "" {
		cursor, err := s.cursors.Load(ctx, runID)
		if err != nil {
			return nil, err
		}
		if cursor != nil {
			filter.AfterTimestamp = cursor.Timestamp
			filter.AfterID = cursor.EventID
			summary.Resumed = true
			s.logger.InfowCtx(ctx, "Resuming replay run",
				"run_id", runID,
				"cursor_event_id", cursor.EventID,
			)
		}
	}

	mode := "live"
	if req.DryRun {
		mode = "dry_run"
	}
	metrics.ReplayRunsTotal.WithLabelValues(mode).Inc()

	s.logger.InfowCtx(ctx, "Replay run started",
		"run_id", runID,
		"mode", mode,
		"types", req.Types,
		"aggregate_id", req.AggregateID,
	)

	for {
		batch, err := s.store.Query(ctx, filter)
		if err != nil {
			return nil, fmt.Errorf("failed to query events for replay: %w", err)
		}
		if len(batch) == 0 {
			break
		}

		for _, event := range batch {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("replay interrupted: %w", err)
			}

			matched, err := s.matches(ctx, program, event)
			if err != nil {
				// A runtime evaluation error on one event must not abort the
				// run; it is reported in the summary like a failed delivery.
				summary.FailedEvents++
				summary.Failures = append(summary.Failures, Failure{
					EventID:   event.ID,
					EventType: event.Type,
					Error:     err.Error(),
				})
				metrics.ReplayEventsTotal.WithLabelValues("failed").Inc()
				s.logger.WarnwCtx(ctx, "Match expression failed on event",
					"event_id", event.ID,
					"error", err,
				)
			}
			if matched {
				summary.MatchedEvents++
				if !req.DryRun {
					s.dispatch(ctx, event, summary)
				}
			}

			if !req.DryRun {
				if err := s.cursors.Save(ctx, runID, eventstore.Cursor{
					Timestamp: event.Timestamp,
					EventID:   event.ID,
				}); err != nil {
					s.logger.WarnwCtx(ctx, "Failed to checkpoint replay cursor",
						"error", err,
						"run_id", runID,
					)
				}
			}
		}

		last := batch[len(batch)-1]
		filter.AfterTimestamp = last.Timestamp
		filter.AfterID = last.ID

		if len(batch) < s.batchSize {
			break
		}
	}

	if !req.DryRun {
		if err := s.cursors.Clear(ctx, runID); err != nil {
			s.logger.WarnwCtx(ctx, "Failed to clear replay cursor",
				"error", err,
				"run_id", runID,
			)
		}
	}

	summary.CompletedAt = time.Now().UTC()

	s.logger.InfowCtx(ctx, "Replay run finished",
		"run_id", runID,
		"mode", mode,
		"matched", summary.MatchedEvents,
		"replayed", summary.ReplayedEvents,
		"failed", summary.FailedEvents,
	)

	return summary, nil
}

func (s *Service) matches(ctx context.Context, program celgo.Program, event events.Event) (bool, error) {
	if program == nil {
		return true, nil
	}

	matched, err := s.evaluator.EvaluateCompiled(ctx, program, event)
	if err != nil {
		return false, fmt.Errorf("match expression failed on event %s: %w", event.ID, err)
	}
	return matched, nil
}

func (s *Service) dispatch(ctx context.Context, event events.Event, summary *Summary) {
	deliveries := s.dispatcher.Dispatch(ctx, event)
	summary.ReplayedEvents++

	failed := false
	for _, delivery := range deliveries {
		if !delivery.Success {
			failed = true
			summary.Failures = append(summary.Failures, Failure{
				EventID:   event.ID,
				EventType: event.Type,
				Processor: delivery.Processor,
				Error:     delivery.Error,
			})
		}
	}

	if failed {
		summary.FailedEvents++
		metrics.ReplayEventsTotal.WithLabelValues("failed").Inc()
	} else {
		metrics.ReplayEventsTotal.WithLabelValues("success").Inc()
	}
}
