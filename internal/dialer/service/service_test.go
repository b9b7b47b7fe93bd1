package service

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"dialer_backend/internal/dialer/domain"
	"dialer_backend/internal/dialer/pacing"
	"dialer_backend/internal/dialer/policy"
	"dialer_backend/internal/dialer/repository"
	"dialer_backend/platform/apperr"
	"dialer_backend/platform/config"
	"dialer_backend/platform/logger"

	"github.com/google/uuid"
)

// fakeStore is an in-memory Store that mirrors the repository's update
// semantics closely enough for orchestration tests.
type fakeStore struct {
	mu          sync.Mutex
	leads       map[uuid.UUID]*repository.Lead
	callRecords []repository.RecordSuccessParams
	claimOrder  []uuid.UUID
}

func newFakeStore() *fakeStore {
	return &fakeStore{leads: make(map[uuid.UUID]*repository.Lead)}
}

func (f *fakeStore) add(lead repository.Lead) uuid.UUID {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := lead
	f.leads[lead.ID] = &copied
	f.claimOrder = append(f.claimOrder, lead.ID)
	return lead.ID
}

func (f *fakeStore) get(id uuid.UUID) repository.Lead {
	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.leads[id]
}

func (f *fakeStore) GetByID(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	return *lead, nil
}

func (f *fakeStore) ClaimPending(_ context.Context, limit, maxAttempts int) ([]repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	claimed := make([]repository.Lead, 0, limit)
	now := time.Now()
	for _, id := range f.claimOrder {
		if len(claimed) >= limit {
			break
		}
		lead := f.leads[id]
		if lead.OutboundStatus != domain.StatusNew || lead.Phone == nil {
			continue
		}
		if lead.CallAttempts >= maxAttempts {
			continue
		}
		if lead.ScheduledAt != nil && lead.ScheduledAt.After(now) {
			continue
		}
		if lead.ClaimedAt != nil {
			continue
		}
		lead.ClaimedAt = &now
		claimed = append(claimed, *lead)
	}
	return claimed, nil
}

func (f *fakeStore) ReleaseClaim(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if lead, ok := f.leads[id]; ok {
		lead.ClaimedAt = nil
	}
	return nil
}

func (f *fakeStore) Reschedule(_ context.Context, id uuid.UUID, at time.Time, note string) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	lead.ScheduledAt = &at
	if lead.Notes == "" {
		lead.Notes = note
	} else {
		lead.Notes += "\n" + note
	}
	lead.ClaimedAt = nil
	return *lead, nil
}

func (f *fakeStore) ScheduleCall(_ context.Context, id uuid.UUID, at time.Time) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	lead.OutboundStatus = domain.StatusNew
	lead.ScheduledAt = &at
	lead.NeedsReview = false
	lead.ClaimedAt = nil
	return *lead, nil
}

func (f *fakeStore) CancelCall(_ context.Context, id uuid.UUID) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[id]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	lead.OutboundStatus = domain.StatusRejected
	lead.ScheduledAt = nil
	lead.Notes = "Manually cancelled"
	lead.ClaimedAt = nil
	return *lead, nil
}

func (f *fakeStore) RecordDispatchSuccess(_ context.Context, params repository.RecordSuccessParams) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[params.LeadID]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	if lead.OutboundStatus != domain.StatusQualified {
		lead.OutboundStatus = domain.StatusContacted
	}
	lead.CallAttempts++
	lead.ContactCount++
	lead.LastAttemptAt = &params.AttemptedAt
	lead.LastProviderCallID = &params.ProviderCallID
	lead.ClaimedAt = nil
	f.callRecords = append(f.callRecords, params)
	return *lead, nil
}

func (f *fakeStore) RecordDispatchFailure(_ context.Context, params repository.RecordFailureParams) (repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	lead, ok := f.leads[params.LeadID]
	if !ok {
		return repository.Lead{}, repository.ErrNotFound
	}
	lead.CallAttempts++
	lead.LastAttemptAt = &params.AttemptedAt
	lead.Notes = "Error: " + params.Reason
	lead.NeedsReview = lead.CallAttempts >= params.MaxAttempts
	lead.ClaimedAt = nil
	return *lead, nil
}

func (f *fakeStore) CountByStatus(context.Context) (map[domain.OutboundStatus]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := make(map[domain.OutboundStatus]int)
	for _, status := range domain.AllStatuses() {
		counts[status] = 0
	}
	for _, lead := range f.leads {
		counts[lead.OutboundStatus]++
	}
	return counts, nil
}

func (f *fakeStore) CountScheduledBetween(_ context.Context, from, to time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, lead := range f.leads {
		if lead.ScheduledAt != nil && !lead.ScheduledAt.Before(from) && lead.ScheduledAt.Before(to) {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) ListNeedsReview(_ context.Context, limit int) ([]repository.Lead, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	leads := make([]repository.Lead, 0)
	for _, id := range f.claimOrder {
		if len(leads) >= limit {
			break
		}
		if lead := f.leads[id]; lead.NeedsReview {
			leads = append(leads, *lead)
		}
	}
	return leads, nil
}

var _ repository.Store = (*fakeStore)(nil)

// fakeCaller returns scripted results per destination number.
type fakeCaller struct {
	mu       sync.Mutex
	results  map[string]dispatchResult
	dispatch []string
	times    []time.Time
	stall    chan struct{} // when set, Dispatch blocks until closed
	active   int
	peak     int
}

type dispatchResult struct {
	callID string
	err    error
}

func (f *fakeCaller) Dispatch(_ context.Context, lead repository.Lead) (string, error) {
	f.mu.Lock()
	f.active++
	if f.active > f.peak {
		f.peak = f.active
	}
	f.dispatch = append(f.dispatch, *lead.Phone)
	f.times = append(f.times, time.Now())
	result := f.results[*lead.Phone]
	stall := f.stall
	f.mu.Unlock()

	if stall != nil {
		<-stall
	}

	f.mu.Lock()
	f.active--
	f.mu.Unlock()

	if result.err != nil {
		return "", result.err
	}
	return result.callID, nil
}

func (f *fakeCaller) FromNumber() string { return "+34911000000" }

type fakeAlerter struct {
	mu    sync.Mutex
	leads []uuid.UUID
}

func (f *fakeAlerter) LeadExhausted(_ context.Context, lead repository.Lead) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.leads = append(f.leads, lead.ID)
	return nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Madrid")
	if err != nil {
		t.Fatalf("failed to load location: %v", err)
	}
	return &config.Config{
		DialerLocation:     loc,
		BusinessHourStart:  9,
		BusinessHourEnd:    20,
		MaxCallAttempts:    3,
		PacingMinDelay:     time.Millisecond,
		PacingMaxDelay:     5 * time.Millisecond,
		MaxConcurrentCalls: 1,
		DialerBatchSize:    10,
	}
}

func newTestService(t *testing.T, store repository.Store, caller VoiceCaller) *Service {
	t.Helper()
	cfg := testConfig(t)
	svc := New(store, caller, policy.New(cfg), pacing.New(cfg), cfg, logger.New("test"))
	// Tuesday 2025-06-10 11:00 local: inside the calling window.
	svc.now = func() time.Time {
		return time.Date(2025, time.June, 10, 11, 0, 0, 0, cfg.DialerLocation)
	}
	return svc
}

func newLead(phone string) repository.Lead {
	p := phone
	return repository.Lead{
		ID:             uuid.New(),
		FullName:       "Laura Vega",
		Phone:          &p,
		OutboundStatus: domain.StatusNew,
		CreatedAt:      time.Now(),
	}
}

func TestRunCycleRecordsSuccessfulDispatch(t *testing.T) {
	store := newFakeStore()
	id := store.add(newLead("+34600111222"))

	caller := &fakeCaller{results: map[string]dispatchResult{
		"+34600111222": {callID: "call_123"},
	}}
	svc := newTestService(t, store, caller)

	processed, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if processed != 1 {
		t.Fatalf("expected 1 dispatch, got %d", processed)
	}

	lead := store.get(id)
	if lead.OutboundStatus != domain.StatusContacted {
		t.Fatalf("expected CONTACTED, got %s", lead.OutboundStatus)
	}
	if lead.CallAttempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", lead.CallAttempts)
	}
	if lead.LastProviderCallID == nil || *lead.LastProviderCallID != "call_123" {
		t.Fatalf("expected provider call id to be stored, got %v", lead.LastProviderCallID)
	}
	if len(store.callRecords) != 1 {
		t.Fatalf("expected 1 call record, got %d", len(store.callRecords))
	}
	if store.callRecords[0].ProviderCallID != "call_123" {
		t.Fatalf("unexpected call record %+v", store.callRecords[0])
	}
}

func TestRunCycleRecordsFailedDispatch(t *testing.T) {
	store := newFakeStore()
	id := store.add(newLead("+34600111222"))

	caller := &fakeCaller{results: map[string]dispatchResult{
		"+34600111222": {err: apperr.Provider("rate_limited")},
	}}
	svc := newTestService(t, store, caller)

	processed, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if processed != 0 {
		t.Fatalf("expected 0 dispatches, got %d", processed)
	}

	lead := store.get(id)
	if lead.OutboundStatus != domain.StatusNew {
		t.Fatalf("failed dispatch must keep the lead NEW, got %s", lead.OutboundStatus)
	}
	if lead.CallAttempts != 1 {
		t.Fatalf("expected 1 attempt, got %d", lead.CallAttempts)
	}
	if lead.Notes != "Error: rate_limited" {
		t.Fatalf("expected error note, got %q", lead.Notes)
	}
	if len(store.callRecords) != 0 {
		t.Fatal("failed dispatch must not create a call record")
	}
}

func TestRunCycleReschedulesOutsideBusinessHours(t *testing.T) {
	store := newFakeStore()
	id := store.add(newLead("+34600111222"))

	caller := &fakeCaller{}
	svc := newTestService(t, store, caller)
	// Tuesday 22:00 local: outside the calling window.
	loc := svc.policy.Location()
	svc.now = func() time.Time {
		return time.Date(2025, time.June, 10, 22, 0, 0, 0, loc)
	}

	processed, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if processed != 0 {
		t.Fatalf("expected no dispatches, got %d", processed)
	}
	if len(caller.dispatch) != 0 {
		t.Fatal("ineligible lead must not reach the provider")
	}

	lead := store.get(id)
	if lead.ScheduledAt == nil {
		t.Fatal("expected lead to be rescheduled")
	}
	want := time.Date(2025, time.June, 11, 9, 0, 0, 0, loc)
	if !lead.ScheduledAt.Equal(want) {
		t.Fatalf("expected slot %v, got %v", want, lead.ScheduledAt)
	}
	if !strings.Contains(lead.Notes, "Rescheduled: OutsideBusinessHours") {
		t.Fatalf("expected reschedule note, got %q", lead.Notes)
	}
	if lead.CallAttempts != 0 {
		t.Fatalf("reschedule must not consume an attempt, got %d", lead.CallAttempts)
	}
}

func TestRunCycleConfigurationErrorLeavesLeadUntouched(t *testing.T) {
	store := newFakeStore()
	id := store.add(newLead("+34600111222"))

	caller := &fakeCaller{results: map[string]dispatchResult{
		"+34600111222": {err: apperr.Configuration("voice provider credentials or agent id not configured")},
	}}
	alerter := &fakeAlerter{}
	svc := newTestService(t, store, caller)
	svc.SetAlerter(alerter)

	processed, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if processed != 0 {
		t.Fatalf("expected 0 dispatches, got %d", processed)
	}

	lead := store.get(id)
	if lead.CallAttempts != 0 {
		t.Fatalf("configuration error must leave the lead untouched; attempts = %d", lead.CallAttempts)
	}
	if lead.OutboundStatus != domain.StatusNew {
		t.Fatalf("expected lead to stay NEW, got %s", lead.OutboundStatus)
	}
	if lead.Notes != "" {
		t.Fatalf("expected untouched notes, got %q", lead.Notes)
	}
	if lead.NeedsReview {
		t.Fatal("configuration error must not flag the lead for review")
	}
	if lead.ClaimedAt != nil {
		t.Fatal("expected the claim to be released")
	}
	if len(alerter.leads) != 0 {
		t.Fatal("configuration error must not raise an operator alert")
	}
}

func TestRunCycleValidationErrorLeavesLeadUntouched(t *testing.T) {
	store := newFakeStore()
	id := store.add(newLead("+34600111222"))

	caller := &fakeCaller{results: map[string]dispatchResult{
		"+34600111222": {err: apperr.Validation("lead has no phone number")},
	}}
	svc := newTestService(t, store, caller)

	if _, err := svc.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	lead := store.get(id)
	if lead.CallAttempts != 0 || lead.Notes != "" || lead.NeedsReview {
		t.Fatalf("validation error must leave the lead untouched, got %+v", lead)
	}
	if lead.ClaimedAt != nil {
		t.Fatal("expected the claim to be released")
	}
}

func TestRunCyclePacesBetweenSuccessfulDispatches(t *testing.T) {
	store := newFakeStore()
	store.add(newLead("+34600111222"))
	store.add(newLead("+34600333444"))

	caller := &fakeCaller{results: map[string]dispatchResult{
		"+34600111222": {callID: "call_1"},
		"+34600333444": {callID: "call_2"},
	}}
	cfg := testConfig(t)
	cfg.PacingMinDelay = 50 * time.Millisecond
	cfg.PacingMaxDelay = 150 * time.Millisecond

	svc := New(store, caller, policy.New(cfg), pacing.New(cfg), cfg, logger.New("test"))
	svc.now = func() time.Time {
		return time.Date(2025, time.June, 10, 11, 0, 0, 0, cfg.DialerLocation)
	}

	processed, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if processed != 2 {
		t.Fatalf("expected 2 dispatches, got %d", processed)
	}

	caller.mu.Lock()
	times := append([]time.Time(nil), caller.times...)
	caller.mu.Unlock()
	if len(times) != 2 {
		t.Fatalf("expected 2 dispatch timestamps, got %d", len(times))
	}

	gap := times[1].Sub(times[0])
	if gap < 50*time.Millisecond {
		t.Fatalf("inter-dispatch gap %v below the pacing minimum", gap)
	}
	// Generous upper tolerance for scheduler jitter on loaded machines.
	if gap > 150*time.Millisecond+time.Second {
		t.Fatalf("inter-dispatch gap %v far above the pacing maximum", gap)
	}
}

func TestRunCycleSkippedLeadsIntroduceNoPacingDelay(t *testing.T) {
	store := newFakeStore()
	store.add(newLead("+34600111222"))
	store.add(newLead("+34600333444"))

	caller := &fakeCaller{}
	cfg := testConfig(t)
	cfg.PacingMinDelay = time.Hour
	cfg.PacingMaxDelay = 2 * time.Hour

	svc := New(store, caller, policy.New(cfg), pacing.New(cfg), cfg, logger.New("test"))
	// Tuesday 22:00 local: both leads get rescheduled, nothing dispatches.
	svc.now = func() time.Time {
		return time.Date(2025, time.June, 10, 22, 0, 0, 0, cfg.DialerLocation)
	}

	start := time.Now()
	processed, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if processed != 0 {
		t.Fatalf("expected no dispatches, got %d", processed)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("cycle with only skipped leads must not pace, took %v", elapsed)
	}
}

func TestRunCycleExhaustionFlagsForReviewAndAlerts(t *testing.T) {
	store := newFakeStore()
	lead := newLead("+34600111222")
	lead.CallAttempts = 2
	id := store.add(lead)

	caller := &fakeCaller{results: map[string]dispatchResult{
		"+34600111222": {err: apperr.Provider("no_answer")},
	}}
	alerter := &fakeAlerter{}
	svc := newTestService(t, store, caller)
	svc.SetAlerter(alerter)

	if _, err := svc.RunCycle(context.Background()); err != nil {
		t.Fatalf("cycle failed: %v", err)
	}

	updated := store.get(id)
	if updated.CallAttempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", updated.CallAttempts)
	}
	if !updated.NeedsReview {
		t.Fatal("expected lead to be flagged for review after exhausting attempts")
	}
	if len(alerter.leads) != 1 || alerter.leads[0] != id {
		t.Fatalf("expected one exhaustion alert for the lead, got %v", alerter.leads)
	}
}

func TestRunCycleSkipsLeadsClaimedElsewhere(t *testing.T) {
	store := newFakeStore()
	lead := newLead("+34600111222")
	claimed := time.Now()
	lead.ClaimedAt = &claimed
	store.add(lead)

	caller := &fakeCaller{}
	svc := newTestService(t, store, caller)

	processed, err := svc.RunCycle(context.Background())
	if err != nil {
		t.Fatalf("cycle failed: %v", err)
	}
	if processed != 0 || len(caller.dispatch) != 0 {
		t.Fatal("claimed lead must not be processed by another cycle")
	}
}

func TestRunCycleNeverExceedsConcurrencyLimit(t *testing.T) {
	store := newFakeStore()
	for i := 0; i < 4; i++ {
		store.add(newLead("+3460011122" + string(rune('0'+i))))
	}

	stall := make(chan struct{})
	caller := &fakeCaller{stall: stall, results: map[string]dispatchResult{}}
	svc := newTestService(t, store, caller)

	done := make(chan struct{})
	go func() {
		_, _ = svc.RunCycle(context.Background())
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	close(stall)
	<-done

	caller.mu.Lock()
	peak := caller.peak
	caller.mu.Unlock()
	if peak > 1 {
		t.Fatalf("expected at most 1 concurrent dispatch, observed %d", peak)
	}
}

func TestStartIsNoOpWhileCycleInFlight(t *testing.T) {
	store := newFakeStore()
	store.add(newLead("+34600111222"))

	stall := make(chan struct{})
	caller := &fakeCaller{stall: stall, results: map[string]dispatchResult{}}
	svc := newTestService(t, store, caller)

	done := make(chan struct{})
	go func() {
		svc.Start(context.Background())
		close(done)
	}()

	time.Sleep(20 * time.Millisecond)
	// Second start must return immediately without dispatching anything new.
	svc.Start(context.Background())

	caller.mu.Lock()
	dispatches := len(caller.dispatch)
	caller.mu.Unlock()
	if dispatches != 1 {
		t.Fatalf("expected exactly 1 dispatch, got %d", dispatches)
	}

	close(stall)
	<-done
}

func TestScheduleLeadCallReactivatesCancelledLead(t *testing.T) {
	store := newFakeStore()
	lead := newLead("+34600111222")
	lead.OutboundStatus = domain.StatusRejected
	lead.NeedsReview = true
	id := store.add(lead)

	svc := newTestService(t, store, &fakeCaller{})

	delay := 5
	at, err := svc.ScheduleLeadCall(context.Background(), id, &delay)
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	want := svc.now().Add(5 * time.Minute)
	if !at.Equal(want) {
		t.Fatalf("expected slot %v, got %v", want, at)
	}

	updated := store.get(id)
	if updated.OutboundStatus != domain.StatusNew {
		t.Fatalf("expected lead back to NEW, got %s", updated.OutboundStatus)
	}
	if updated.NeedsReview {
		t.Fatal("scheduling must clear the review flag")
	}
	if updated.ScheduledAt == nil || !updated.ScheduledAt.Equal(want) {
		t.Fatalf("expected stored slot %v, got %v", want, updated.ScheduledAt)
	}
}

func TestScheduleLeadCallWithoutDelayUsesPacingBounds(t *testing.T) {
	store := newFakeStore()
	id := store.add(newLead("+34600111222"))

	svc := newTestService(t, store, &fakeCaller{})

	at, err := svc.ScheduleLeadCall(context.Background(), id, nil)
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	base := svc.now()
	if at.Before(base.Add(time.Millisecond)) || at.After(base.Add(5*time.Millisecond)) {
		t.Fatalf("expected slot within pacing bounds, got offset %v", at.Sub(base))
	}
}

func TestScheduleLeadCallUnknownLeadReturnsNotFound(t *testing.T) {
	svc := newTestService(t, newFakeStore(), &fakeCaller{})

	_, err := svc.ScheduleLeadCall(context.Background(), uuid.New(), nil)
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Fatalf("expected not found error, got %v", err)
	}
}

func TestCancelScheduledCallIsIdempotent(t *testing.T) {
	store := newFakeStore()
	id := store.add(newLead("+34600111222"))

	svc := newTestService(t, store, &fakeCaller{})

	for i := 0; i < 2; i++ {
		if err := svc.CancelScheduledCall(context.Background(), id); err != nil {
			t.Fatalf("cancel %d failed: %v", i+1, err)
		}
	}

	lead := store.get(id)
	if lead.OutboundStatus != domain.StatusRejected {
		t.Fatalf("expected REJECTED, got %s", lead.OutboundStatus)
	}
	if lead.Notes != "Manually cancelled" {
		t.Fatalf("expected cancellation note, got %q", lead.Notes)
	}
	if lead.ScheduledAt != nil {
		t.Fatal("expected cleared slot")
	}
}

func TestCancelScheduledCallRefusesQualifiedLead(t *testing.T) {
	store := newFakeStore()
	lead := newLead("+34600111222")
	lead.OutboundStatus = domain.StatusQualified
	id := store.add(lead)

	svc := newTestService(t, store, &fakeCaller{})

	err := svc.CancelScheduledCall(context.Background(), id)
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Fatalf("expected conflict error, got %v", err)
	}

	updated := store.get(id)
	if updated.OutboundStatus != domain.StatusQualified {
		t.Fatalf("QUALIFIED lead must never be downgraded, got %s", updated.OutboundStatus)
	}
}

func TestGetStatsReportsBacklogAndRuntime(t *testing.T) {
	store := newFakeStore()
	store.add(newLead("+34600111222"))

	contacted := newLead("+34600333444")
	contacted.OutboundStatus = domain.StatusContacted
	store.add(contacted)

	svc := newTestService(t, store, &fakeCaller{})

	scheduled := newLead("+34600555666")
	slot := svc.now().Add(2 * time.Hour)
	scheduled.ScheduledAt = &slot
	store.add(scheduled)

	stats, err := svc.GetStats(context.Background())
	if err != nil {
		t.Fatalf("stats failed: %v", err)
	}
	if stats.IsRunning {
		t.Fatal("expected engine idle")
	}
	if stats.ActiveCalls != 0 {
		t.Fatalf("expected 0 active calls, got %d", stats.ActiveCalls)
	}
	if stats.StatusCounts[domain.StatusNew] != 2 {
		t.Fatalf("expected 2 NEW leads, got %d", stats.StatusCounts[domain.StatusNew])
	}
	if stats.StatusCounts[domain.StatusContacted] != 1 {
		t.Fatalf("expected 1 CONTACTED lead, got %d", stats.StatusCounts[domain.StatusContacted])
	}
	if stats.ScheduledToday != 1 {
		t.Fatalf("expected 1 scheduled today, got %d", stats.ScheduledToday)
	}
}

func TestListNeedsReviewClampsLimit(t *testing.T) {
	store := newFakeStore()
	lead := newLead("+34600111222")
	lead.NeedsReview = true
	store.add(lead)

	svc := newTestService(t, store, &fakeCaller{})

	leads, err := svc.ListNeedsReview(context.Background(), -1)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(leads) != 1 {
		t.Fatalf("expected 1 lead, got %d", len(leads))
	}
}
