package main

import (
	"context"

	"dialer_backend/internal/dialer/repository"
	"dialer_backend/platform/config"
	"dialer_backend/platform/db"
	"dialer_backend/platform/logger"
)

// Backfills call_records rows for leads that were marked CONTACTED before
// dispatch outcomes were written transactionally. Safe to re-run.
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting call record backfill")

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	repo := repository.New(pool)
	fromNumber := cfg.GetVoiceFromNumber()

	const batchSize = 50
	total := 0
	for {
		leads, err := repo.ListContactedMissingCallRecord(ctx, batchSize)
		if err != nil {
			log.Error("failed to list leads missing call records", "error", err)
			return
		}
		if len(leads) == 0 {
			log.Info("call record backfill complete", "created", total)
			return
		}

		progress := false

		for _, lead := range leads {
			if lead.Phone == nil || lead.LastProviderCallID == nil {
				log.Info("skipping lead without phone or provider call id", "leadId", lead.ID)
				continue
			}

			params := repository.CreateCallRecordParams{
				ProviderCallID: *lead.LastProviderCallID,
				ToNumber:       *lead.Phone,
				LeadID:         lead.ID,
				Metadata: map[string]any{
					"leadName": lead.FullName,
					"source":   "backfill",
				},
			}
			if fromNumber != "" {
				params.FromNumber = &fromNumber
			}

			if _, err := repo.CreateCallRecord(ctx, params); err != nil {
				log.Error("failed to create call record", "leadId", lead.ID, "error", err)
				continue
			}

			log.Info("call record backfilled", "leadId", lead.ID, "providerCallId", *lead.LastProviderCallID)
			total++
			progress = true
		}

		if !progress {
			log.Info("no backfill progress in batch, stopping", "created", total)
			return
		}
	}
}
