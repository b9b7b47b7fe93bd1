package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type CallRecord struct {
	ID             uuid.UUID
	ProviderCallID string
	FromNumber     *string
	ToNumber       string
	LeadID         uuid.UUID
	Direction      string
	Status         string
	Metadata       map[string]any
	CreatedAt      time.Time
}

type CreateCallRecordParams struct {
	ProviderCallID string
	FromNumber     *string
	ToNumber       string
	LeadID         uuid.UUID
	Status         string
	Metadata       map[string]any
}

// CreateCallRecord inserts a standalone call record. The normal dispatch path
// creates its record inside RecordDispatchSuccess; this is used by the
// reconciliation backfill.
func (r *Repository) CreateCallRecord(ctx context.Context, params CreateCallRecordParams) (CallRecord, error) {
	metadata := params.Metadata
	if metadata == nil {
		metadata = map[string]any{}
	}
	status := params.Status
	if status == "" {
		status = "initiated"
	}

	var record CallRecord
	err := r.pool.QueryRow(ctx, `
		INSERT INTO call_records (provider_call_id, from_number, to_number, lead_id, direction, status, metadata)
		VALUES ($1, $2, $3, $4, 'outbound', $5, $6)
		RETURNING id, provider_call_id, from_number, to_number, lead_id, direction, status, metadata, created_at
	`, params.ProviderCallID, params.FromNumber, params.ToNumber, params.LeadID, status, metadata).Scan(
		&record.ID, &record.ProviderCallID, &record.FromNumber, &record.ToNumber,
		&record.LeadID, &record.Direction, &record.Status, &record.Metadata, &record.CreatedAt,
	)
	return record, err
}

// ListCallRecordsByLead returns all call records for a lead, newest first.
func (r *Repository) ListCallRecordsByLead(ctx context.Context, leadID uuid.UUID) ([]CallRecord, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, provider_call_id, from_number, to_number, lead_id, direction, status, metadata, created_at
		FROM call_records
		WHERE lead_id = $1
		ORDER BY created_at DESC
	`, leadID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := make([]CallRecord, 0)
	for rows.Next() {
		var record CallRecord
		if err := rows.Scan(
			&record.ID, &record.ProviderCallID, &record.FromNumber, &record.ToNumber,
			&record.LeadID, &record.Direction, &record.Status, &record.Metadata, &record.CreatedAt,
		); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}

	return records, nil
}

// ListContactedMissingCallRecord finds CONTACTED leads whose last provider
// call id has no matching call record. These are leads where the outcome
// transaction was interrupted between the two writes on an older schema; the
// backfill tool repairs them.
func (r *Repository) ListContactedMissingCallRecord(ctx context.Context, limit int) ([]Lead, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+`
		FROM leads
		WHERE outbound_status = 'CONTACTED'
			AND last_provider_call_id IS NOT NULL
			AND NOT EXISTS (
				SELECT 1 FROM call_records cr
				WHERE cr.lead_id = leads.id AND cr.provider_call_id = leads.last_provider_call_id
			)
		ORDER BY last_attempt_at ASC NULLS FIRST
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
