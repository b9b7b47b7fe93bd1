// Package dialer provides the outbound call scheduling bounded context module.
// This file defines the module that encapsulates all dialer setup and route registration.
package dialer

import (
	"dialer_backend/internal/dialer/handler"
	"dialer_backend/internal/dialer/pacing"
	"dialer_backend/internal/dialer/policy"
	"dialer_backend/internal/dialer/provider"
	"dialer_backend/internal/dialer/repository"
	"dialer_backend/internal/dialer/service"
	apphttp "dialer_backend/internal/http"
	"dialer_backend/platform/config"
	"dialer_backend/platform/logger"
	"dialer_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the dialer bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the dialer module with all its dependencies.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, cfg *config.Config, log *logger.Logger) *Module {
	repo := repository.New(pool)
	pol := policy.New(cfg)
	pace := pacing.New(cfg)
	caller := provider.NewClient(cfg, log)
	svc := service.New(repo, caller, pol, pace, cfg, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "dialer"
}

// Service returns the orchestrator for external use (worker, scheduler).
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for direct access if needed.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// SetAlerter wires the operator alert channel into the orchestrator.
func (m *Module) SetAlerter(alerter service.Alerter) {
	m.service.SetAlerter(alerter)
}

// SetCycleScheduler wires the deferred cycle trigger into the orchestrator.
func (m *Module) SetCycleScheduler(cycles service.CycleScheduler) {
	m.service.SetCycleScheduler(cycles)
}

// RegisterRoutes mounts dialer control routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Admin.Group("/dialer")
	group.POST("/cycle", m.handler.TriggerCycle)
	group.GET("/stats", m.handler.Stats)
	group.GET("/leads/needs-review", m.handler.NeedsReview)
	group.POST("/leads/:id/schedule", m.handler.ScheduleCall)
	group.POST("/leads/:id/cancel", m.handler.CancelCall)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
