package service

import (
	"context"
	"errors"
	"time"

	"dialer_backend/internal/dialer/domain"
	"dialer_backend/internal/dialer/repository"
	"dialer_backend/platform/apperr"

	"github.com/google/uuid"
)

// Stats is a read-only snapshot of the engine's runtime and backlog state.
type Stats struct {
	IsRunning      bool
	ActiveCalls    int
	StatusCounts   map[domain.OutboundStatus]int
	ScheduledToday int
}

// TriggerCycle starts one cycle in the background and returns immediately.
// If a cycle is already in flight the new trigger is a no-op.
func (s *Service) TriggerCycle() {
	go s.Start(context.Background())
}

// ScheduleLeadCall queues a lead for calling after the given delay in
// minutes; without an explicit delay a randomized pacing delay is used. The
// lead's status is reset to NEW, so a previously cancelled (REJECTED) lead
// can be deliberately reactivated this way. Returns the computed slot.
func (s *Service) ScheduleLeadCall(ctx context.Context, leadID uuid.UUID, delayMinutes *int) (time.Time, error) {
	delay := s.pacing.RandomDelay()
	if delayMinutes != nil {
		delay = time.Duration(*delayMinutes) * time.Minute
	}
	at := s.now().Add(delay)

	lead, err := s.repo.ScheduleCall(ctx, leadID, at)
	if err != nil {
		return time.Time{}, s.mapStoreErr("dialer.ScheduleLeadCall", err)
	}

	if s.cycles != nil {
		if err := s.cycles.ScheduleCycleRun(ctx, at); err != nil {
			s.log.Warn("failed to enqueue cycle for scheduled call", "leadId", leadID, "error", err)
		}
	}

	s.log.Info("lead call scheduled", "leadId", lead.ID, "scheduledAt", at)
	return at, nil
}

// CancelScheduledCall marks a lead REJECTED and clears its slot. The
// operation is idempotent: cancelling an already-cancelled lead succeeds and
// leaves the same terminal state. A lead the engine may not move to REJECTED
// (QUALIFIED, CONTACTED) is refused with a conflict.
func (s *Service) CancelScheduledCall(ctx context.Context, leadID uuid.UUID) error {
	lead, err := s.repo.GetByID(ctx, leadID)
	if err != nil {
		return s.mapStoreErr("dialer.CancelScheduledCall", err)
	}
	if lead.OutboundStatus != domain.StatusRejected &&
		!domain.CanTransition(lead.OutboundStatus, domain.StatusRejected) {
		return apperr.Conflict("lead in status " + string(lead.OutboundStatus) + " cannot be cancelled").
			WithOp("dialer.CancelScheduledCall")
	}

	if _, err := s.repo.CancelCall(ctx, leadID); err != nil {
		return s.mapStoreErr("dialer.CancelScheduledCall", err)
	}
	s.log.Info("lead call cancelled", "leadId", leadID)
	return nil
}

// GetStats assembles the runtime and backlog snapshot for the control surface.
func (s *Service) GetStats(ctx context.Context) (Stats, error) {
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return Stats{}, s.mapStoreErr("dialer.GetStats", err)
	}

	now := s.now().In(s.policy.Location())
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.policy.Location())
	scheduledToday, err := s.repo.CountScheduledBetween(ctx, dayStart, dayStart.AddDate(0, 0, 1))
	if err != nil {
		return Stats{}, s.mapStoreErr("dialer.GetStats", err)
	}

	return Stats{
		IsRunning:      s.running.Load(),
		ActiveCalls:    s.pacing.ActiveCalls(),
		StatusCounts:   counts,
		ScheduledToday: scheduledToday,
	}, nil
}

// ListNeedsReview returns leads that exhausted their attempt budget and are
// waiting for operator triage.
func (s *Service) ListNeedsReview(ctx context.Context, limit int) ([]repository.Lead, error) {
	if limit < 1 || limit > 200 {
		limit = 50
	}
	leads, err := s.repo.ListNeedsReview(ctx, limit)
	if err != nil {
		return nil, s.mapStoreErr("dialer.ListNeedsReview", err)
	}
	return leads, nil
}

func (s *Service) mapStoreErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("lead not found").WithOp(op)
	}
	return apperr.Wrap(apperr.KindInternal, "store operation failed", err).WithOp(op)
}
