package services

import (
	"context"
	"math/rand"
	"time"

	"spin-rewards-service/models"
	"spin-rewards-service/storage"
)

// rewardWheel is the discrete reward distribution. Integer weights out of a
// 100-tick wheel keep the threshold sampler exact: a roll in [0,100) maps to
// exactly one slot and every tick is equally likely.
type rewardSlot struct {
	amount int64
	weight int
}

var rewardWheel = []rewardSlot{
	{amount: 10, weight: 40},
	{amount: 20, weight: 30},
	{amount: 30, weight: 20},
	{amount: 50, weight: 5},
	{amount: 0, weight: 5},
}

const wheelTicks = 100

func init() {
	total := 0
	for _, slot := range rewardWheel {
		total += slot.weight
	}
	if total != wheelTicks {
		panic("reward wheel weights must sum to 100")
	}
}

// pickReward maps a roll in [0, wheelTicks) onto the wheel.
func pickReward(roll int) int64 {
	for _, slot := range rewardWheel {
		if roll < slot.weight {
			return slot.amount
		}
		roll -= slot.weight
	}
	return rewardWheel[len(rewardWheel)-1].amount
}

// SpinResult is the snapshot returned after a successful draw.
type SpinResult struct {
	Reward         int64 `json:"reward"`
	SpinsRemaining int   `json:"spins_left"`
	Balance        int64 `json:"balance"`
}

// SpinService executes reward draws, consuming daily quota. The quota reset
// policy runs inside the same transaction as the draw, so a reset day still
// costs a spin (the reset restores the allowance first, then the draw
// consumes from it).
type SpinService struct {
	store storage.Store
	roll  func(n int) int
	now   func() time.Time
}

func NewSpinService(store storage.Store) *SpinService {
	return &SpinService{
		store: store,
		roll:  rand.Intn,
		now:   time.Now,
	}
}

// Spin performs one weighted draw for the user. Fails with
// storage.ErrNotFound if no account exists and ErrNoSpinsLeft if the
// post-reset quota is exhausted.
func (s *SpinService) Spin(ctx context.Context, userID string) (*SpinResult, error) {
	var res SpinResult
	_, err := s.store.UpdateAccount(ctx, userID, func(acc *models.Account) error {
		today := s.now().UTC()
		applyDailyReset(acc, today)
		if acc.SpinsRemaining <= 0 {
			return ErrNoSpinsLeft
		}
		reward := pickReward(s.roll(wheelTicks))
		acc.SpinsRemaining--
		acc.Balance += reward
		day := utcDate(today)
		acc.LastSpinDate = &day

		res = SpinResult{
			Reward:         reward,
			SpinsRemaining: acc.SpinsRemaining,
			Balance:        acc.Balance,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// applyDailyReset restores the full quota when the last spin happened on an
// earlier UTC day. A nil LastSpinDate means the account carries its creation
// quota, no reset needed. The check keys on the stored date, so the reset
// fires at most once per UTC day and never claws back a same-day referral
// credit.
func applyDailyReset(acc *models.Account, now time.Time) {
	if acc.LastSpinDate == nil {
		return
	}
	if !sameUTCDate(*acc.LastSpinDate, now) {
		acc.SpinsRemaining = models.DailySpinQuota
	}
}

func sameUTCDate(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func utcDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
