package workers

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"

	"spin-rewards-service/services"
	"spin-rewards-service/storage"
)

// staleAfter is how long a request may sit pending before it shows up in the
// admin digest again.
const staleAfter = 24 * time.Hour

// StartWithdrawalDigest re-notifies the admin about withdrawal requests that
// have been pending for more than a day, every 6 hours. The original
// notification can get buried; this is the reminder path.
func StartWithdrawalDigest(ctx context.Context, store storage.Store, notifier services.Notifier) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(6*time.Hour),
		gocron.NewTask(func() {
			cutoff := time.Now().UTC().Add(-staleAfter)
			pending, err := store.ListPendingWithdrawals(ctx, cutoff)
			if err != nil {
				log.Printf("[WithdrawalDigest] listing pending requests failed: %v", err)
				return
			}
			if len(pending) == 0 {
				return
			}
			log.Printf("[WithdrawalDigest] %d request(s) pending for over %s", len(pending), staleAfter)
			for _, req := range pending {
				acc, err := store.GetAccount(ctx, req.UserID)
				if err != nil {
					log.Printf("[WithdrawalDigest] account lookup for %s failed: %v", req.UserID, err)
					continue
				}
				notifier.NotifyAdmin(req, acc.DisplayName)
			}
		}),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	return sched, nil
}
