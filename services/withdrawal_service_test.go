package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spin-rewards-service/models"
	"spin-rewards-service/storage"
	"spin-rewards-service/storage/memory"
)

const testAdminID = "admin-7"

type recordNotifier struct {
	adminReqs []models.WithdrawalRequest
	userMsgs  map[string][]string
}

func newRecordNotifier() *recordNotifier {
	return &recordNotifier{userMsgs: make(map[string][]string)}
}

func (n *recordNotifier) NotifyAdmin(req models.WithdrawalRequest, _ string) {
	n.adminReqs = append(n.adminReqs, req)
}

func (n *recordNotifier) NotifyUser(userID, message string) {
	n.userMsgs[userID] = append(n.userMsgs[userID], message)
}

func newWithdrawalFixture(t *testing.T) (*memory.Store, *WithdrawalService, *recordNotifier) {
	t.Helper()
	store := memory.New()
	notifier := newRecordNotifier()
	return store, NewWithdrawalService(store, testAdminID, notifier), notifier
}

func makeEligible(t *testing.T, store storage.Store, userID string, balance int64, referrals int) {
	t.Helper()
	newTestAccount(t, store, userID)
	setAccountState(t, store, userID, func(acc *models.Account) {
		acc.Balance = balance
		acc.ReferralCount = referrals
	})
}

func TestCheckEligibility(t *testing.T) {
	store, svc, _ := newWithdrawalFixture(t)
	ctx := context.Background()

	cases := []struct {
		name      string
		balance   int64
		referrals int
		want      bool
	}{
		{"below both thresholds", 50, 3, false},
		{"enough balance, too few referrals", 150, 14, false},
		{"enough referrals, balance short", 99, 15, false},
		{"exactly at thresholds", 100, 15, true},
		{"above thresholds", 500, 30, true},
	}
	for i, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			userID := string(rune('a' + i))
			makeEligible(t, store, userID, tc.balance, tc.referrals)
			ok, err := svc.CheckEligibility(ctx, userID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ok)
		})
	}
}

func TestSubmitRequiresPayoutDetails(t *testing.T) {
	store, svc, _ := newWithdrawalFixture(t)
	makeEligible(t, store, "u1", 150, 15)

	_, err := svc.Submit(context.Background(), "u1", "   ")
	assert.ErrorIs(t, err, ErrMissingDetails)
}

func TestSubmitRequiresEligibility(t *testing.T) {
	store, svc, notifier := newWithdrawalFixture(t)
	makeEligible(t, store, "u1", 99, 15)

	_, err := svc.Submit(context.Background(), "u1", "name@upi")
	assert.ErrorIs(t, err, ErrNotEligible)
	assert.Empty(t, notifier.adminReqs)
}

func TestSubmitSnapshotsBalanceAndNotifiesAdmin(t *testing.T) {
	store, svc, notifier := newWithdrawalFixture(t)
	makeEligible(t, store, "u1", 150, 15)

	req, err := svc.Submit(context.Background(), "u1", "name@upi")
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusPending, req.Status)
	assert.Equal(t, int64(150), req.RequestedAmount)
	assert.Equal(t, "name@upi", req.PayoutDetails)

	require.Len(t, notifier.adminReqs, 1)
	assert.Equal(t, req.ID, notifier.adminReqs[0].ID)
}

func TestSubmitRejectsSecondPendingRequest(t *testing.T) {
	store, svc, _ := newWithdrawalFixture(t)
	makeEligible(t, store, "u1", 150, 15)
	ctx := context.Background()

	_, err := svc.Submit(ctx, "u1", "name@upi")
	require.NoError(t, err)

	_, err = svc.Submit(ctx, "u1", "name@upi")
	assert.ErrorIs(t, err, storage.ErrPendingExists)
}

func TestResolveRequiresAdmin(t *testing.T) {
	store, svc, _ := newWithdrawalFixture(t)
	makeEligible(t, store, "u1", 150, 15)
	ctx := context.Background()

	// Unauthorized wins over every other condition, even with no pending
	// request to resolve.
	_, err := svc.Resolve(ctx, "u1", "u1", models.DecisionConfirm)
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = svc.Resolve(ctx, "", "u1", models.DecisionConfirm)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestResolveWithoutPendingRequest(t *testing.T) {
	store, svc, _ := newWithdrawalFixture(t)
	makeEligible(t, store, "u1", 150, 15)

	_, err := svc.Resolve(context.Background(), testAdminID, "u1", models.DecisionConfirm)
	assert.ErrorIs(t, err, storage.ErrNoPending)
}

func TestConfirmDeductsSnapshotAmount(t *testing.T) {
	store, svc, notifier := newWithdrawalFixture(t)
	makeEligible(t, store, "u1", 150, 15)
	ctx := context.Background()

	_, err := svc.Submit(ctx, "u1", "name@upi")
	require.NoError(t, err)

	// Earnings landing between submission and confirmation stay with the user.
	setAccountState(t, store, "u1", func(acc *models.Account) {
		acc.Balance += 20
	})

	req, err := svc.Resolve(ctx, testAdminID, "u1", models.DecisionConfirm)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusConfirmed, req.Status)
	require.NotNil(t, req.ResolvedAt)

	acc, err := store.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(20), acc.Balance)

	require.Len(t, notifier.userMsgs["u1"], 1)
	assert.Contains(t, notifier.userMsgs["u1"][0], "processed successfully")
}

func TestSubmitAndConfirmFullBalance(t *testing.T) {
	store, svc, _ := newWithdrawalFixture(t)
	makeEligible(t, store, "u1", 150, 15)
	ctx := context.Background()

	req, err := svc.Submit(ctx, "u1", "name@upi")
	require.NoError(t, err)
	assert.Equal(t, int64(150), req.RequestedAmount)

	_, err = svc.Resolve(ctx, testAdminID, "u1", models.DecisionConfirm)
	require.NoError(t, err)

	acc, err := store.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), acc.Balance)

	// Confirmed is terminal; nothing left to resolve.
	_, err = svc.Resolve(ctx, testAdminID, "u1", models.DecisionConfirm)
	assert.ErrorIs(t, err, storage.ErrNoPending)
}

func TestRejectKeepsBalanceAndAllowsResubmission(t *testing.T) {
	store, svc, notifier := newWithdrawalFixture(t)
	makeEligible(t, store, "u1", 150, 15)
	ctx := context.Background()

	_, err := svc.Submit(ctx, "u1", "name@upi")
	require.NoError(t, err)

	req, err := svc.Resolve(ctx, testAdminID, "u1", models.DecisionReject)
	require.NoError(t, err)
	assert.Equal(t, models.WithdrawalStatusRejected, req.Status)

	acc, err := store.GetAccount(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(150), acc.Balance)

	require.Len(t, notifier.userMsgs["u1"], 1)
	assert.Contains(t, notifier.userMsgs["u1"][0], "rejected")

	// A rejected request does not block a new one.
	_, err = svc.Submit(ctx, "u1", "name@upi")
	require.NoError(t, err)
}
