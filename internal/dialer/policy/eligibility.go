// Package policy provides the calling-eligibility rules and slot arithmetic
// for the dialer bounded context. Everything here is pure: no clocks, no
// stores, no side effects.
package policy

import (
	"time"

	"dialer_backend/internal/dialer/domain"
	"dialer_backend/internal/dialer/repository"
	"dialer_backend/platform/config"
)

// Reason explains why a lead may not be called right now.
type Reason string

const (
	ReasonNoPhone              Reason = "NoPhone"
	ReasonRejected             Reason = "Rejected"
	ReasonAlreadyQualified     Reason = "AlreadyQualified"
	ReasonMaxAttemptsReached   Reason = "MaxAttemptsReached"
	ReasonWeekend              Reason = "Weekend"
	ReasonOutsideBusinessHours Reason = "OutsideBusinessHours"
)

// IsTimingReason reports whether the reason is a structural timing problem
// that rescheduling can fix, as opposed to a property of the lead itself.
func (r Reason) IsTimingReason() bool {
	return r == ReasonWeekend || r == ReasonOutsideBusinessHours
}

// Decision is the outcome of an eligibility evaluation.
type Decision struct {
	Eligible bool
	Reason   Reason
}

// Policy evaluates whether a lead may be called at a given moment.
type Policy struct {
	location    *time.Location
	hourStart   int
	hourEnd     int
	maxAttempts int
}

// New builds a Policy from dialer configuration.
func New(cfg config.DialerConfig) *Policy {
	return &Policy{
		location:    cfg.GetDialerLocation(),
		hourStart:   cfg.GetBusinessHourStart(),
		hourEnd:     cfg.GetBusinessHourEnd(),
		maxAttempts: cfg.GetMaxCallAttempts(),
	}
}

// Location returns the policy's local calling timezone.
func (p *Policy) Location() *time.Location {
	return p.location
}

// Evaluate decides whether the lead may be called at the given instant.
// Checks run in a fixed order and short-circuit on the first failure, so the
// reported reason is always the highest-priority one.
func (p *Policy) Evaluate(lead repository.Lead, now time.Time) Decision {
	if lead.Phone == nil || *lead.Phone == "" {
		return Decision{Reason: ReasonNoPhone}
	}
	if domain.IsTerminal(lead.OutboundStatus) {
		if lead.OutboundStatus == domain.StatusRejected {
			return Decision{Reason: ReasonRejected}
		}
		return Decision{Reason: ReasonAlreadyQualified}
	}
	if lead.CallAttempts >= p.maxAttempts {
		return Decision{Reason: ReasonMaxAttemptsReached}
	}

	local := now.In(p.location)
	if local.Weekday() == time.Saturday || local.Weekday() == time.Sunday {
		return Decision{Reason: ReasonWeekend}
	}
	if local.Hour() < p.hourStart || local.Hour() >= p.hourEnd {
		return Decision{Reason: ReasonOutsideBusinessHours}
	}

	return Decision{Eligible: true}
}
