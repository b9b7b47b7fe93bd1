package repository

import (
	"context"
	"time"

	"dialer_backend/internal/dialer/domain"

	"github.com/google/uuid"
)

// Store is the narrow persistence interface the dialer service depends on.
// The pgx-backed Repository implements it; tests substitute an in-memory fake.
type Store interface {
	GetByID(ctx context.Context, id uuid.UUID) (Lead, error)
	ClaimPending(ctx context.Context, limit, maxAttempts int) ([]Lead, error)
	ReleaseClaim(ctx context.Context, id uuid.UUID) error
	Reschedule(ctx context.Context, id uuid.UUID, at time.Time, note string) (Lead, error)
	ScheduleCall(ctx context.Context, id uuid.UUID, at time.Time) (Lead, error)
	CancelCall(ctx context.Context, id uuid.UUID) (Lead, error)
	RecordDispatchSuccess(ctx context.Context, params RecordSuccessParams) (Lead, error)
	RecordDispatchFailure(ctx context.Context, params RecordFailureParams) (Lead, error)
	CountByStatus(ctx context.Context) (map[domain.OutboundStatus]int, error)
	CountScheduledBetween(ctx context.Context, from, to time.Time) (int, error)
	ListNeedsReview(ctx context.Context, limit int) ([]Lead, error)
}

// Compile-time check that Repository implements Store.
var _ Store = (*Repository)(nil)
