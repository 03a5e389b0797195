package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"spin-rewards-service/models"
	"spin-rewards-service/storage"
	"spin-rewards-service/utils"
)

// StartPayoutReportWorker exports, once a day, the previous day's resolved
// withdrawals as a JSON object to R2 under reports/payouts-<date>.json. The
// finance side reads these straight from the bucket.
func StartPayoutReportWorker(ctx context.Context, store storage.Store) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(24*time.Hour),
		gocron.NewTask(func() {
			if err := exportPayoutReport(ctx, store); err != nil {
				log.Printf("[PayoutReport] export failed: %v", err)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}

func exportPayoutReport(ctx context.Context, store storage.Store) error {
	since := time.Now().UTC().Add(-24 * time.Hour)
	resolved, err := store.ListResolvedWithdrawalsSince(ctx, since)
	if err != nil {
		return fmt.Errorf("listing resolved withdrawals: %w", err)
	}
	if len(resolved) == 0 {
		log.Println("[PayoutReport] nothing resolved in the last 24h, skipping upload")
		return nil
	}

	report := struct {
		GeneratedAt time.Time                  `json:"generated_at"`
		Since       time.Time                  `json:"since"`
		Count       int                        `json:"count"`
		Withdrawals []models.WithdrawalRequest `json:"withdrawals"`
	}{
		GeneratedAt: time.Now().UTC(),
		Since:       since,
		Count:       len(resolved),
		Withdrawals: resolved,
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding report: %w", err)
	}

	key := fmt.Sprintf("reports/payouts-%s.json", time.Now().UTC().Format("2006-01-02"))
	if err := utils.UploadBytesToR2(ctx, key, data, "application/json"); err != nil {
		return err
	}
	log.Printf("[PayoutReport] uploaded %s (%d withdrawal(s))", key, len(resolved))
	return nil
}
