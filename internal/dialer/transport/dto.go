package transport

import (
	"time"

	"github.com/google/uuid"

	"dialer_backend/internal/dialer/domain"
	"dialer_backend/internal/dialer/repository"
	"dialer_backend/internal/dialer/service"
)

// ScheduleCallRequest asks the engine to queue a lead for calling.
type ScheduleCallRequest struct {
	DelayMinutes *int `json:"delayMinutes,omitempty" validate:"omitempty,min=1,max=10080"`
}

// ScheduleCallResponse reports the computed calling slot.
type ScheduleCallResponse struct {
	LeadID      uuid.UUID `json:"leadId"`
	ScheduledAt time.Time `json:"scheduledAt"`
	Status      string    `json:"status"`
}

// CancelCallResponse confirms a cancellation.
type CancelCallResponse struct {
	LeadID uuid.UUID `json:"leadId"`
	Status string    `json:"status"`
}

// CycleTriggeredResponse confirms a manual cycle trigger.
type CycleTriggeredResponse struct {
	Status string `json:"status"`
}

// StatsResponse is the engine snapshot for the operator UI.
type StatsResponse struct {
	IsRunning      bool           `json:"isRunning"`
	ActiveCalls    int            `json:"activeCalls"`
	StatusCounts   map[string]int `json:"statusCounts"`
	ScheduledToday int            `json:"scheduledToday"`
}

// NeedsReviewLeadResponse describes a lead awaiting operator triage.
type NeedsReviewLeadResponse struct {
	ID            uuid.UUID  `json:"id"`
	FullName      string     `json:"fullName"`
	Phone         *string    `json:"phone,omitempty"`
	Company       *string    `json:"company,omitempty"`
	CallAttempts  int        `json:"callAttempts"`
	LastAttemptAt *time.Time `json:"lastAttemptAt,omitempty"`
	Notes         string     `json:"notes"`
}

// NeedsReviewListResponse wraps the triage list.
type NeedsReviewListResponse struct {
	Items []NeedsReviewLeadResponse `json:"items"`
	Total int                       `json:"total"`
}

// NewStatsResponse maps the service snapshot to the wire format.
func NewStatsResponse(stats service.Stats) StatsResponse {
	counts := make(map[string]int, len(stats.StatusCounts))
	for status, count := range stats.StatusCounts {
		counts[string(status)] = count
	}
	for _, status := range domain.AllStatuses() {
		if _, ok := counts[string(status)]; !ok {
			counts[string(status)] = 0
		}
	}

	return StatsResponse{
		IsRunning:      stats.IsRunning,
		ActiveCalls:    stats.ActiveCalls,
		StatusCounts:   counts,
		ScheduledToday: stats.ScheduledToday,
	}
}

// NewNeedsReviewListResponse maps triage leads to the wire format.
func NewNeedsReviewListResponse(leads []repository.Lead) NeedsReviewListResponse {
	items := make([]NeedsReviewLeadResponse, 0, len(leads))
	for _, lead := range leads {
		items = append(items, NeedsReviewLeadResponse{
			ID:            lead.ID,
			FullName:      lead.FullName,
			Phone:         lead.Phone,
			Company:       lead.Company,
			CallAttempts:  lead.CallAttempts,
			LastAttemptAt: lead.LastAttemptAt,
			Notes:         lead.Notes,
		})
	}
	return NeedsReviewListResponse{Items: items, Total: len(items)}
}
