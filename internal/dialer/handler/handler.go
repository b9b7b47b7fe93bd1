package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"dialer_backend/internal/dialer/service"
	"dialer_backend/internal/dialer/transport"
	"dialer_backend/platform/httpkit"
	"dialer_backend/platform/validator"
)

// Handler handles HTTP requests for the dialer control surface.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
	msgInvalidID        = "invalid lead ID"
)

// New creates a new dialer control handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// TriggerCycle starts one dialer cycle in the background.
// POST /api/v1/admin/dialer/cycle
func (h *Handler) TriggerCycle(c *gin.Context) {
	h.svc.TriggerCycle()
	httpkit.Accepted(c, transport.CycleTriggeredResponse{Status: "triggered"})
}

// ScheduleCall queues a lead for calling.
// POST /api/v1/admin/dialer/leads/:id/schedule
func (h *Handler) ScheduleCall(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	var req transport.ScheduleCallRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	scheduledAt, err := h.svc.ScheduleLeadCall(c.Request.Context(), leadID, req.DelayMinutes)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.ScheduleCallResponse{
		LeadID:      leadID,
		ScheduledAt: scheduledAt,
		Status:      "scheduled",
	})
}

// CancelCall removes a lead from the calling queue.
// POST /api/v1/admin/dialer/leads/:id/cancel
func (h *Handler) CancelCall(c *gin.Context) {
	leadID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID, nil)
		return
	}

	if err := h.svc.CancelScheduledCall(c.Request.Context(), leadID); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, transport.CancelCallResponse{LeadID: leadID, Status: "cancelled"})
}

// Stats returns the engine runtime and backlog snapshot.
// GET /api/v1/admin/dialer/stats
func (h *Handler) Stats(c *gin.Context) {
	stats, err := h.svc.GetStats(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewStatsResponse(stats))
}

// NeedsReview lists leads awaiting operator triage.
// GET /api/v1/admin/dialer/leads/needs-review
func (h *Handler) NeedsReview(c *gin.Context) {
	leads, err := h.svc.ListNeedsReview(c.Request.Context(), 50)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, transport.NewNeedsReviewListResponse(leads))
}
