// Package service implements the dialer cycle orchestrator: it drives
// batches of candidate leads through eligibility, pacing, dispatch and
// outcome recording, and exposes the manual control operations.
package service

import (
	"context"
	"sync/atomic"
	"time"

	"dialer_backend/internal/dialer/pacing"
	"dialer_backend/internal/dialer/policy"
	"dialer_backend/internal/dialer/repository"
	"dialer_backend/platform/apperr"
	"dialer_backend/platform/config"
	"dialer_backend/platform/logger"
	"dialer_backend/platform/phone"

	"github.com/google/uuid"
)

// VoiceCaller places one outbound call and returns the provider call id.
type VoiceCaller interface {
	Dispatch(ctx context.Context, lead repository.Lead) (string, error)
	FromNumber() string
}

// Alerter notifies operators about leads that need human triage.
type Alerter interface {
	LeadExhausted(ctx context.Context, lead repository.Lead) error
}

// CycleScheduler enqueues a future cycle run, typically so a manually
// scheduled lead gets picked up close to its slot instead of waiting for the
// next periodic trigger.
type CycleScheduler interface {
	ScheduleCycleRun(ctx context.Context, runAt time.Time) error
}

// Service is the cycle orchestrator. Runtime state (running flag, active
// call gauge) lives on the instance so independent schedulers can coexist.
type Service struct {
	repo   repository.Store
	caller VoiceCaller
	policy *policy.Policy
	pacing *pacing.Controller
	log    *logger.Logger

	alerter Alerter        // optional
	cycles  CycleScheduler // optional

	batchSize   int
	maxAttempts int

	now func() time.Time

	running atomic.Bool
}

// New constructs the orchestrator.
func New(repo repository.Store, caller VoiceCaller, pol *policy.Policy, pace *pacing.Controller, cfg config.DialerConfig, log *logger.Logger) *Service {
	return &Service{
		repo:        repo,
		caller:      caller,
		policy:      pol,
		pacing:      pace,
		log:         log,
		batchSize:   cfg.GetDialerBatchSize(),
		maxAttempts: cfg.GetMaxCallAttempts(),
		now:         time.Now,
	}
}

// SetAlerter wires the operator alert channel. Optional.
func (s *Service) SetAlerter(alerter Alerter) {
	s.alerter = alerter
}

// SetCycleScheduler wires the deferred cycle trigger. Optional.
func (s *Service) SetCycleScheduler(cycles CycleScheduler) {
	s.cycles = cycles
}

// Start runs exactly one cycle, guarded so that a concurrent invocation
// while a cycle is in flight is a no-op. The engine has no internal timer;
// cadence belongs to whoever calls Start.
func (s *Service) Start(ctx context.Context) {
	if !s.running.CompareAndSwap(false, true) {
		s.log.Info("dialer cycle already running, skipping")
		return
	}
	defer s.running.Store(false)

	processed, err := s.RunCycle(ctx)
	if err != nil {
		s.log.Error("dialer cycle failed", "error", err)
		return
	}
	s.log.Info("dialer cycle complete", "dispatched", processed)
}

// RunCycle claims one batch of due leads and drives each through the
// pipeline in (scheduled_at, created_at) order. A single lead's failure
// never aborts the batch. Returns the number of successful dispatches.
func (s *Service) RunCycle(ctx context.Context) (int, error) {
	leads, err := s.repo.ClaimPending(ctx, s.batchSize, s.maxAttempts)
	if err != nil {
		return 0, apperr.Wrap(apperr.KindInternal, "claim pending leads", err).WithOp("dialer.RunCycle")
	}

	processed := 0
	for i, lead := range leads {
		if ctx.Err() != nil {
			s.releaseRemaining(leads[i:])
			break
		}

		dispatched := s.processLead(ctx, lead)
		if !dispatched {
			continue
		}
		processed++

		// Pacing delay applies only between successful dispatches;
		// skipped and rescheduled leads move on immediately.
		if i < len(leads)-1 {
			if err := s.pacing.Wait(ctx, s.pacing.RandomDelay()); err != nil {
				s.releaseRemaining(leads[i+1:])
				break
			}
		}
	}

	return processed, nil
}

// processLead runs one lead through acquire -> evaluate -> dispatch ->
// record -> release. Returns true only for a successful dispatch.
func (s *Service) processLead(ctx context.Context, lead repository.Lead) bool {
	if err := s.pacing.Acquire(ctx); err != nil {
		s.releaseClaim(lead.ID)
		return false
	}
	defer s.pacing.Release()

	decision := s.policy.Evaluate(lead, s.now())
	if !decision.Eligible {
		if decision.Reason.IsTimingReason() {
			s.rescheduleLead(ctx, lead.ID, string(decision.Reason))
		} else {
			s.log.Info("lead skipped", "leadId", lead.ID, "reason", decision.Reason)
			s.releaseClaim(lead.ID)
		}
		return false
	}

	callID, dispatchErr := s.caller.Dispatch(ctx, lead)

	// Configuration and validation failures are problems with the engine or
	// the request, not with the lead: no attempt is booked and the lead stays
	// untouched for a later, correctly configured cycle.
	switch apperr.GetKind(dispatchErr) {
	case apperr.KindConfiguration, apperr.KindValidation:
		s.log.Error("dispatch aborted", "leadId", lead.ID, "error", dispatchErr)
		s.releaseClaim(lead.ID)
		return false
	}

	s.recordDispatchOutcome(ctx, lead, callID, dispatchErr)
	return dispatchErr == nil
}

// rescheduleLead moves a timing-blocked lead to the next valid calling slot.
// The slot is always recomputed from the current moment.
func (s *Service) rescheduleLead(ctx context.Context, leadID uuid.UUID, reason string) {
	slot := s.policy.NextEligibleSlot(s.now())
	if _, err := s.repo.Reschedule(ctx, leadID, slot, "Rescheduled: "+reason); err != nil {
		s.log.DatabaseError("reschedule lead", err)
		return
	}
	s.log.Info("lead rescheduled", "leadId", leadID, "reason", reason, "scheduledAt", slot)
}

// recordDispatchOutcome applies the dispatch result to lead state. On
// success the lead update and call record creation share one store
// transaction; on failure only the attempt bookkeeping changes.
func (s *Service) recordDispatchOutcome(ctx context.Context, lead repository.Lead, callID string, dispatchErr error) {
	now := s.now()

	if dispatchErr == nil {
		var fromNumber *string
		if from := s.caller.FromNumber(); from != "" {
			fromNumber = &from
		}

		toNumber := ""
		if lead.Phone != nil {
			toNumber = phone.NormalizeE164(*lead.Phone)
		}

		_, err := s.repo.RecordDispatchSuccess(ctx, repository.RecordSuccessParams{
			LeadID:         lead.ID,
			ProviderCallID: callID,
			FromNumber:     fromNumber,
			ToNumber:       toNumber,
			Metadata: map[string]any{
				"leadName": lead.FullName,
				"callType": "outbound_prospecting",
			},
			AttemptedAt: now,
		})
		if err != nil {
			s.log.DatabaseError("record dispatch success", err)
		}
		return
	}

	masked := ""
	if lead.Phone != nil {
		masked = phone.Mask(phone.NormalizeE164(*lead.Phone))
	}
	s.log.DispatchFailed(lead.ID.String(), masked, dispatchErr)

	updated, err := s.repo.RecordDispatchFailure(ctx, repository.RecordFailureParams{
		LeadID:      lead.ID,
		Reason:      dispatchErr.Error(),
		MaxAttempts: s.maxAttempts,
		AttemptedAt: now,
	})
	if err != nil {
		s.log.DatabaseError("record dispatch failure", err)
		return
	}

	if updated.NeedsReview && s.alerter != nil {
		if err := s.alerter.LeadExhausted(ctx, updated); err != nil {
			s.log.Error("exhaustion alert failed", "leadId", updated.ID, "error", err)
		}
	}
}

func (s *Service) releaseClaim(leadID uuid.UUID) {
	if err := s.repo.ReleaseClaim(context.Background(), leadID); err != nil {
		s.log.DatabaseError("release claim", err)
	}
}

func (s *Service) releaseRemaining(leads []repository.Lead) {
	for _, lead := range leads {
		s.releaseClaim(lead.ID)
	}
}
