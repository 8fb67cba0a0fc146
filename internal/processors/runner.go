package processors

import (
	"context"
	"fmt"
	"time"

	"fundline/internal/constants"
	"fundline/internal/ledger"
	"fundline/internal/logger"
	"fundline/pkg/events"
	"fundline/pkg/logging"
	"fundline/pkg/metrics"
)

// Runner drives one delivery through the ledger protocol:
// claim -> handle -> complete, or claim -> handle -> failed. A lost claim
// means another worker owns or already finished this key, so the delivery
// is skipped without error.
type Runner struct {
	ledger        ledger.Repository
	logger        logger.Logger
	staleClaimAge time.Duration
}

func NewRunner(ledgerRepo ledger.Repository, log logger.Logger, staleClaimAge time.Duration) *Runner {
	if staleClaimAge <= 0 {
		staleClaimAge = constants.DefaultStaleClaimAge
	}
	return &Runner{
		ledger:        ledgerRepo,
		logger:        log,
		staleClaimAge: staleClaimAge,
	}
}

func (r *Runner) Run(ctx context.Context, proc Processor, event events.Event) error {
	ctx = logging.WithProcessor(ctx, proc.Name())

	start := time.Now()
	claimed, err := r.ledger.Claim(ctx, event.ID, proc.Name(), time.Now().Add(-r.staleClaimAge))
	if err != nil {
		metrics.ObserveLedgerClaimDuration("error", time.Since(start))
		return fmt.Errorf("ledger claim failed for %s: %w", proc.Name(), err)
	}

	if !claimed {
		metrics.ObserveLedgerClaimDuration("skipped", time.Since(start))
		metrics.DuplicateSkipsTotal.WithLabelValues(proc.Name()).Inc()
		r.logger.InfowCtx(ctx, "Skipping duplicate delivery",
			"event_id", event.ID,
			"event_type", event.Type,
		)
		return nil
	}

	metrics.ObserveLedgerClaimDuration("claimed", time.Since(start))

	if err := proc.Handle(ctx, event); err != nil {
		// An expired handler context must not leave the claim pending, or the
		// key stays unclaimable until the stale cutoff passes.
		failCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), constants.ShutdownTimeout)
		defer cancel()

		if markErr := r.ledger.MarkFailed(failCtx, event.ID, proc.Name(), err.Error()); markErr != nil {
			r.logger.ErrorwCtx(ctx, "Failed to mark ledger key failed",
				"error", markErr,
				"event_id", event.ID,
			)
		}
		return err
	}

	if err := r.ledger.MarkComplete(ctx, event.ID, proc.Name()); err != nil {
		return fmt.Errorf("ledger completion failed for %s: %w", proc.Name(), err)
	}

	return nil
}
