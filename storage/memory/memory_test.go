package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spin-rewards-service/models"
	"spin-rewards-service/storage"
)

func account(userID, code string) *models.Account {
	return &models.Account{
		UserID:         userID,
		DisplayName:    userID,
		SpinsRemaining: models.DailySpinQuota,
		ReferralCode:   code,
	}
}

func TestCreateAndGetAccount(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateAccount(ctx, account("u1", "code-1")))

	got, err := s.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", got.UserID)
	assert.False(t, got.CreatedAt.IsZero())

	byCode, err := s.GetAccountByReferralCode(ctx, "code-1")
	require.NoError(t, err)
	assert.Equal(t, "u1", byCode.UserID)

	_, err = s.GetAccount(ctx, "u2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetAccountByReferralCode(ctx, "code-2")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestCreateAccountConflicts(t *testing.T) {
	s := New()
	ctx := context.Background()

	require.NoError(t, s.CreateAccount(ctx, account("u1", "code-1")))

	err := s.CreateAccount(ctx, account("u1", "code-other"))
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	err = s.CreateAccount(ctx, account("u2", "code-1"))
	assert.ErrorIs(t, err, storage.ErrConflict)
}

func TestUpdateAccountRollsBackOnError(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateAccount(ctx, account("u1", "code-1")))

	boom := errors.New("boom")
	_, err := s.UpdateAccount(ctx, "u1", func(acc *models.Account) error {
		acc.Balance = 999
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Balance)
}

func TestGetAccountReturnsCopy(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateAccount(ctx, account("u1", "code-1")))

	got, err := s.GetAccount(ctx, "u1")
	require.NoError(t, err)
	got.Balance = 999

	fresh, err := s.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), fresh.Balance)
}

func TestApplyReferralAtomicity(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateAccount(ctx, account("u1", "code-1")))
	require.NoError(t, s.CreateAccount(ctx, account("u2", "code-2")))

	// Creating the referred account fails, so the credit must not land.
	_, err := s.ApplyReferral(ctx, "code-1", account("u2", "code-3"), func(ref *models.Account) error {
		ref.ReferralCount++
		return nil
	})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	referrer, err := s.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 0, referrer.ReferralCount)

	// Success commits both sides.
	_, err = s.ApplyReferral(ctx, "code-1", account("u3", "code-3"), func(ref *models.Account) error {
		ref.ReferralCount++
		return nil
	})
	require.NoError(t, err)

	referrer, err = s.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, referrer.ReferralCount)

	ids, err := s.ListReferredUserIDs(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, []string{"u3"}, ids)
}

func pendingRequest(userID string, amount int64, at time.Time) func(acc *models.Account) (*models.WithdrawalRequest, error) {
	return func(acc *models.Account) (*models.WithdrawalRequest, error) {
		return &models.WithdrawalRequest{
			ID:              "req-" + userID,
			UserID:          userID,
			RequestedAmount: amount,
			PayoutDetails:   "name@upi",
			Status:          models.WithdrawalStatusPending,
			RequestedAt:     at,
		}, nil
	}
}

func TestWithdrawalLifecycle(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateAccount(ctx, account("u1", "code-1")))

	now := time.Now().UTC()
	req, err := s.SubmitWithdrawal(ctx, "u1", pendingRequest("u1", 150, now))
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusPending, req.Status)

	_, err = s.SubmitWithdrawal(ctx, "u1", pendingRequest("u1", 150, now))
	assert.ErrorIs(t, err, storage.ErrPendingExists)

	resolvedAt := now.Add(time.Hour)
	resolved, err := s.ResolveWithdrawal(ctx, "u1", func(req *models.WithdrawalRequest, acc *models.Account) error {
		req.Status = models.WithdrawalStatusConfirmed
		req.ResolvedAt = &resolvedAt
		acc.Balance = 0
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusConfirmed, resolved.Status)

	_, err = s.ResolveWithdrawal(ctx, "u1", func(*models.WithdrawalRequest, *models.Account) error { return nil })
	assert.ErrorIs(t, err, storage.ErrNoPending)

	// Resolution clears the pending slot, so a new request goes through.
	_, err = s.SubmitWithdrawal(ctx, "u1", pendingRequest("u1", 50, now.Add(2*time.Hour)))
	require.NoError(t, err)
}

func TestListPendingWithdrawalsHonorsCutoff(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateAccount(ctx, account("u1", "code-1")))
	require.NoError(t, s.CreateAccount(ctx, account("u2", "code-2")))

	now := time.Now().UTC()
	_, err := s.SubmitWithdrawal(ctx, "u1", pendingRequest("u1", 100, now.Add(-48*time.Hour)))
	require.NoError(t, err)
	_, err = s.SubmitWithdrawal(ctx, "u2", pendingRequest("u2", 100, now))
	require.NoError(t, err)

	stale, err := s.ListPendingWithdrawals(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.Equal(t, "u1", stale[0].UserID)
}

func TestListResolvedWithdrawalsSince(t *testing.T) {
	s := New()
	ctx := context.Background()
	require.NoError(t, s.CreateAccount(ctx, account("u1", "code-1")))

	now := time.Now().UTC()
	_, err := s.SubmitWithdrawal(ctx, "u1", pendingRequest("u1", 100, now.Add(-2*time.Hour)))
	require.NoError(t, err)

	resolvedAt := now.Add(-time.Hour)
	_, err = s.ResolveWithdrawal(ctx, "u1", func(req *models.WithdrawalRequest, _ *models.Account) error {
		req.Status = models.WithdrawalStatusRejected
		req.ResolvedAt = &resolvedAt
		return nil
	})
	require.NoError(t, err)

	got, err := s.ListResolvedWithdrawalsSince(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.WithdrawalStatusRejected, got[0].Status)

	got, err = s.ListResolvedWithdrawalsSince(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, got)
}
