package repository

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"dialer_backend/internal/dialer/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("lead not found")

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type Lead struct {
	ID                 uuid.UUID
	FullName           string
	Phone              *string
	Email              *string
	Company            *string
	Role               *string
	ProfileURL         *string
	Enrichment         map[string]any
	OutboundStatus     domain.OutboundStatus
	CallAttempts       int
	ScheduledAt        *time.Time
	LastAttemptAt      *time.Time
	LastProviderCallID *string
	Notes              string
	ContactCount       int
	NeedsReview        bool
	ClaimedAt          *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

const leadColumns = `id, full_name, phone, email, company, role, profile_url, enrichment,
	outbound_status, call_attempts, scheduled_at, last_attempt_at, last_provider_call_id,
	notes, contact_count, needs_review, claimed_at, created_at, updated_at`

type leadRow interface {
	Scan(dest ...any) error
}

func scanLead(row leadRow) (Lead, error) {
	var lead Lead
	err := row.Scan(
		&lead.ID, &lead.FullName, &lead.Phone, &lead.Email, &lead.Company, &lead.Role,
		&lead.ProfileURL, &lead.Enrichment, &lead.OutboundStatus, &lead.CallAttempts,
		&lead.ScheduledAt, &lead.LastAttemptAt, &lead.LastProviderCallID,
		&lead.Notes, &lead.ContactCount, &lead.NeedsReview, &lead.ClaimedAt,
		&lead.CreatedAt, &lead.UpdatedAt,
	)
	return lead, err
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+`
		FROM leads WHERE id = $1
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// ClaimPending atomically claims up to limit due leads so that a second
// dialer instance cannot pick them up between fetch and outcome recording.
// A claim left behind by a crashed instance expires after fifteen minutes.
func (r *Repository) ClaimPending(ctx context.Context, limit, maxAttempts int) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		WITH due AS (
			SELECT id FROM leads
			WHERE outbound_status = 'NEW'
				AND phone IS NOT NULL
				AND COALESCE(scheduled_at, to_timestamp(0)) <= now()
				AND call_attempts < $2
				AND (claimed_at IS NULL OR claimed_at < now() - interval '15 minutes')
			ORDER BY scheduled_at ASC NULLS FIRST, created_at ASC
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		)
		UPDATE leads l
		SET claimed_at = now(), updated_at = now()
		FROM due
		WHERE l.id = due.id
		RETURNING `+prefixedLeadColumns("l")+`
	`, limit, maxAttempts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0, limit)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	// The claim query cannot order across the batch it returns, so restore
	// the (scheduled_at, created_at) processing order here.
	sortLeadsBySchedule(leads)

	return leads, nil
}

// ReleaseClaim clears the claim marker without touching lead state. Used
// when a claimed lead is skipped without any dispatch attempt.
func (r *Repository) ReleaseClaim(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE leads SET claimed_at = NULL, updated_at = now() WHERE id = $1
	`, id)
	return err
}

// Reschedule moves a lead's earliest calling slot and appends a note
// explaining why.
func (r *Repository) Reschedule(ctx context.Context, id uuid.UUID, at time.Time, note string) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET
			scheduled_at = $2,
			notes = CASE WHEN notes = '' THEN $3 ELSE notes || E'\n' || $3 END,
			claimed_at = NULL,
			updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns+`
	`, id, at, note))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// ScheduleCall puts a lead (back) into the calling queue at the given time.
func (r *Repository) ScheduleCall(ctx context.Context, id uuid.UUID, at time.Time) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET
			outbound_status = 'NEW',
			scheduled_at = $2,
			needs_review = false,
			claimed_at = NULL,
			updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns+`
	`, id, at))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// CancelCall marks a lead rejected and removes it from the calling queue.
// Safe to call repeatedly.
func (r *Repository) CancelCall(ctx context.Context, id uuid.UUID) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET
			outbound_status = 'REJECTED',
			scheduled_at = NULL,
			notes = 'Manually cancelled',
			claimed_at = NULL,
			updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns+`
	`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

type RecordSuccessParams struct {
	LeadID         uuid.UUID
	ProviderCallID string
	FromNumber     *string
	ToNumber       string
	Metadata       map[string]any
	AttemptedAt    time.Time
}

// RecordDispatchSuccess applies a successful dispatch outcome: the lead
// becomes CONTACTED (a QUALIFIED lead is never downgraded), counters advance
// and exactly one call record is created. Both writes share one transaction.
func (r *Repository) RecordDispatchSuccess(ctx context.Context, params RecordSuccessParams) (Lead, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Lead{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	lead, err := scanLead(tx.QueryRow(ctx, `
		UPDATE leads SET
			outbound_status = CASE WHEN outbound_status = 'QUALIFIED' THEN outbound_status ELSE 'CONTACTED' END,
			call_attempts = call_attempts + 1,
			last_attempt_at = $2,
			contact_count = contact_count + 1,
			last_provider_call_id = $3,
			claimed_at = NULL,
			updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns+`
	`, params.LeadID, params.AttemptedAt, params.ProviderCallID))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	if err != nil {
		return Lead{}, err
	}

	metadata := params.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO call_records (provider_call_id, from_number, to_number, lead_id, direction, status, metadata)
		VALUES ($1, $2, $3, $4, 'outbound', 'initiated', $5)
	`, params.ProviderCallID, params.FromNumber, params.ToNumber, params.LeadID, metadata)
	if err != nil {
		return Lead{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Lead{}, err
	}

	return lead, nil
}

type RecordFailureParams struct {
	LeadID      uuid.UUID
	Reason      string
	MaxAttempts int
	AttemptedAt time.Time
}

// RecordDispatchFailure applies a failed dispatch outcome: the attempt
// counter advances, the failure reason is noted and the lead stays NEW. When
// the lead exhausts its attempt budget it is flagged for operator review
// instead of silently dropping out of the candidate set.
func (r *Repository) RecordDispatchFailure(ctx context.Context, params RecordFailureParams) (Lead, error) {
	lead, err := scanLead(r.pool.QueryRow(ctx, `
		UPDATE leads SET
			call_attempts = call_attempts + 1,
			last_attempt_at = $2,
			notes = 'Error: ' || $3,
			needs_review = (call_attempts + 1 >= $4),
			claimed_at = NULL,
			updated_at = now()
		WHERE id = $1
		RETURNING `+leadColumns+`
	`, params.LeadID, params.AttemptedAt, params.Reason, params.MaxAttempts))
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, ErrNotFound
	}
	return lead, err
}

// CountByStatus returns the number of leads per outbound status.
func (r *Repository) CountByStatus(ctx context.Context) (map[domain.OutboundStatus]int, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT outbound_status, COUNT(*) FROM leads GROUP BY outbound_status
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[domain.OutboundStatus]int)
	for _, status := range domain.AllStatuses() {
		counts[status] = 0
	}
	for rows.Next() {
		var status domain.OutboundStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return counts, nil
}

// CountScheduledBetween returns how many leads have a calling slot inside [from, to).
func (r *Repository) CountScheduledBetween(ctx context.Context, from, to time.Time) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM leads
		WHERE scheduled_at >= $1 AND scheduled_at < $2
	`, from, to).Scan(&count)
	return count, err
}

func prefixedLeadColumns(alias string) string {
	parts := strings.Split(leadColumns, ",")
	for i, part := range parts {
		parts[i] = alias + "." + strings.TrimSpace(part)
	}
	return strings.Join(parts, ", ")
}

func sortLeadsBySchedule(leads []Lead) {
	sort.SliceStable(leads, func(i, j int) bool {
		a, b := leads[i], leads[j]
		at, bt := time.Time{}, time.Time{}
		if a.ScheduledAt != nil {
			at = *a.ScheduledAt
		}
		if b.ScheduledAt != nil {
			bt = *b.ScheduledAt
		}
		if !at.Equal(bt) {
			return at.Before(bt)
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
}

// ListNeedsReview returns leads flagged for operator triage after exhausting
// their attempt budget.
func (r *Repository) ListNeedsReview(ctx context.Context, limit int) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE needs_review = true
		ORDER BY last_attempt_at DESC NULLS LAST
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0, limit)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return leads, nil
}
