// Package scheduler runs the recurring-mandate executor: a single background
// loop that periodically finds due mandates and executes them as direct
// debits through the movement service.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"vives-backoffice/internal/core/ports"
	"vives-backoffice/pkg/apperror"

	"github.com/rs/zerolog"
)

// Scheduler processes active mandates on a fixed interval. One instance per
// deployment; ticks are strictly sequential and never overlap.
type Scheduler struct {
	mandateRepo ports.MandateRepository
	movements   ports.MovementService
	interval    time.Duration
	log         zerolog.Logger
}

// New creates a Scheduler.
func New(mandateRepo ports.MandateRepository, movements ports.MovementService, interval time.Duration, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		mandateRepo: mandateRepo,
		movements:   movements,
		interval:    interval,
		log:         log,
	}
}

// Run executes ticks until ctx is cancelled. The first tick fires after one
// interval, not immediately, so a crash-looping process does not hammer the
// database.
func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info().Dur("interval", s.interval).Msg("mandate scheduler started")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("mandate scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			if err := s.RunTick(ctx, time.Now().UTC()); err != nil {
				s.log.Error().Err(err).Msg("scheduler tick failed")
			}
		}
	}
}

// RunTick processes every mandate due at the given instant. Mandates are
// isolated from each other: one mandate's failure never stops the tick.
// Passing now explicitly keeps the due decision consistent across the whole
// tick and testable without a clock.
func (s *Scheduler) RunTick(ctx context.Context, now time.Time) error {
	mandates, err := s.mandateRepo.ListActive(ctx)
	if err != nil {
		return fmt.Errorf("list active mandates: %w", err)
	}

	var executed, deactivated, failed int
	for i := range mandates {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		mandate := &mandates[i]
		if !mandate.DueAt(now) {
			continue
		}

		_, err := s.movements.RecordDirectDebitExecution(ctx, mandate, now)
		switch code := apperror.CodeOf(err); {
		case err == nil:
			// The movement is durably appended before the mandate state
			// advances. If this update fails the next tick re-executes,
			// which an operator must reconcile against the ledger.
			if err := s.mandateRepo.UpdateExecution(ctx, mandate.GUID, now); err != nil {
				s.log.Error().Err(err).
					Str("mandate_guid", mandate.GUID.String()).
					Msg("mandate executed but last_executed_at not advanced")
			}
			executed++

		case code == apperror.CodeInsufficientFunds:
			if err := s.mandateRepo.Deactivate(ctx, mandate.GUID); err != nil {
				s.log.Error().Err(err).
					Str("mandate_guid", mandate.GUID.String()).
					Msg("failed to deactivate mandate after insufficient funds")
			} else {
				s.log.Info().
					Str("mandate_guid", mandate.GUID.String()).
					Str("payer_iban", mandate.PayerIBAN).
					Msg("mandate deactivated: insufficient funds")
			}
			deactivated++

		case code == apperror.CodePostCommitInconsistency:
			// Never retried: the debit committed, a retry would double it.
			s.log.Error().Err(err).
				Str("mandate_guid", mandate.GUID.String()).
				Msg("mandate execution left a post-commit inconsistency, operator action required")
			failed++

		default:
			// Mandate left untouched; next tick retries.
			s.log.Warn().Err(err).
				Str("mandate_guid", mandate.GUID.String()).
				Msg("mandate execution failed")
			failed++
		}
	}

	if executed+deactivated+failed > 0 {
		s.log.Info().
			Int("executed", executed).
			Int("deactivated", deactivated).
			Int("failed", failed).
			Time("tick", now).
			Msg("mandate tick complete")
	}
	return nil
}
