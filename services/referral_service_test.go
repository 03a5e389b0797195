package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"spin-rewards-service/models"
	"spin-rewards-service/storage/memory"
)

func TestApplyReferralCreditsBothSides(t *testing.T) {
	store := memory.New()
	svc := NewReferralService(store)
	ctx := context.Background()

	referrer := newTestAccount(t, store, "alice")
	setAccountState(t, store, "alice", func(acc *models.Account) {
		acc.SpinsRemaining = 1
	})

	name, err := svc.ApplyReferral(ctx, referrer.ReferralCode, "bob", "Bob")
	require.NoError(t, err)
	assert.Equal(t, "alice", name)

	ref, err := store.GetAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, ref.SpinsRemaining)
	assert.Equal(t, 1, ref.ReferralCount)
	assert.Equal(t, int64(models.EarningsPerReferral), ref.ReferralEarnings)

	referred, err := store.GetAccount(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, models.DailySpinQuota, referred.SpinsRemaining)
	assert.NotEmpty(t, referred.ReferralCode)

	ids, err := store.ListReferredUserIDs(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"bob"}, ids)
}

func TestApplyReferralSpinCreditCapsAtQuota(t *testing.T) {
	store := memory.New()
	svc := NewReferralService(store)
	ctx := context.Background()

	referrer := newTestAccount(t, store, "alice") // already at full quota

	_, err := svc.ApplyReferral(ctx, referrer.ReferralCode, "bob", "Bob")
	require.NoError(t, err)

	ref, err := store.GetAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, models.DailySpinQuota, ref.SpinsRemaining)
	assert.Equal(t, int64(models.EarningsPerReferral), ref.ReferralEarnings)
}

func TestApplyReferralInvalidCode(t *testing.T) {
	svc := NewReferralService(memory.New())
	_, err := svc.ApplyReferral(context.Background(), "nope1234", "bob", "Bob")
	assert.ErrorIs(t, err, ErrInvalidCode)
}

func TestApplyReferralSelf(t *testing.T) {
	store := memory.New()
	svc := NewReferralService(store)
	referrer := newTestAccount(t, store, "alice")

	_, err := svc.ApplyReferral(context.Background(), referrer.ReferralCode, "alice", "Alice")
	assert.ErrorIs(t, err, ErrSelfReferral)
}

func TestApplyReferralAlreadyReferred(t *testing.T) {
	store := memory.New()
	svc := NewReferralService(store)
	ctx := context.Background()

	a := newTestAccount(t, store, "alice")
	b := newTestAccount(t, store, "bella")

	_, err := svc.ApplyReferral(ctx, a.ReferralCode, "carol", "Carol")
	require.NoError(t, err)

	// Second referral of the same user, even via a different code, fails.
	_, err = svc.ApplyReferral(ctx, b.ReferralCode, "carol", "Carol")
	assert.ErrorIs(t, err, ErrAlreadyReferred)

	// An existing account counts as already referred too.
	_, err = svc.ApplyReferral(ctx, a.ReferralCode, "bella", "Bella")
	assert.ErrorIs(t, err, ErrAlreadyReferred)
}

func TestApplyReferralFailureLeavesReferrerUntouched(t *testing.T) {
	store := memory.New()
	svc := NewReferralService(store)
	ctx := context.Background()

	a := newTestAccount(t, store, "alice")
	newTestAccount(t, store, "bella")

	_, err := svc.ApplyReferral(ctx, a.ReferralCode, "bella", "Bella")
	require.ErrorIs(t, err, ErrAlreadyReferred)

	// Neither side of the failed referral may be visible.
	ref, err := store.GetAccount(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 0, ref.ReferralCount)
	assert.Equal(t, int64(0), ref.ReferralEarnings)
	assert.Equal(t, models.DailySpinQuota, ref.SpinsRemaining)

	ids, err := store.ListReferredUserIDs(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
