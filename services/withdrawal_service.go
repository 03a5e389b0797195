package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"spin-rewards-service/models"
	"spin-rewards-service/storage"
)

// WithdrawalService runs the withdrawal state machine:
// none -> pending -> confirmed | rejected. Notifications go out only after
// the transaction has committed.
type WithdrawalService struct {
	store    storage.Store
	adminID  string
	notifier Notifier
	now      func() time.Time
}

func NewWithdrawalService(store storage.Store, adminID string, notifier Notifier) *WithdrawalService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &WithdrawalService{
		store:    store,
		adminID:  adminID,
		notifier: notifier,
		now:      time.Now,
	}
}

// CheckEligibility reports whether the user clears the referral and balance
// thresholds. Pure read.
func (s *WithdrawalService) CheckEligibility(ctx context.Context, userID string) (bool, error) {
	acc, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		return false, err
	}
	return eligible(acc), nil
}

// Submit files a withdrawal request for the user's current balance. Fails
// with ErrMissingDetails on empty payout details, ErrNotEligible below the
// thresholds and storage.ErrPendingExists when a request is already open.
// The requested amount is the balance snapshot at submission time.
func (s *WithdrawalService) Submit(ctx context.Context, userID, payoutDetails string) (*models.WithdrawalRequest, error) {
	if strings.TrimSpace(payoutDetails) == "" {
		return nil, ErrMissingDetails
	}

	var displayName string
	req, err := s.store.SubmitWithdrawal(ctx, userID, func(acc *models.Account) (*models.WithdrawalRequest, error) {
		if !eligible(acc) {
			return nil, ErrNotEligible
		}
		displayName = acc.DisplayName
		return &models.WithdrawalRequest{
			ID:              uuid.NewString(),
			UserID:          userID,
			RequestedAmount: acc.Balance,
			PayoutDetails:   payoutDetails,
			Status:          models.WithdrawalStatusPending,
			RequestedAt:     s.now().UTC(),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	s.notifier.NotifyAdmin(*req, displayName)
	return req, nil
}

// Resolve applies the admin decision to the user's pending request. Fails
// with ErrUnauthorized before touching any record unless actor matches the
// configured administrator, and storage.ErrNoPending when nothing is open.
// Confirm deducts the requested (submission-time) amount from the balance;
// spins and referrals earned since submission are kept. Reject leaves the
// balance untouched so the user may submit again once re-eligible.
func (s *WithdrawalService) Resolve(ctx context.Context, actor, userID string, decision models.WithdrawalDecision) (*models.WithdrawalRequest, error) {
	if actor == "" || actor != s.adminID {
		return nil, ErrUnauthorized
	}

	req, err := s.store.ResolveWithdrawal(ctx, userID, func(req *models.WithdrawalRequest, acc *models.Account) error {
		resolvedAt := s.now().UTC()
		switch decision {
		case models.DecisionConfirm:
			req.Status = models.WithdrawalStatusConfirmed
			req.ResolvedAt = &resolvedAt
			acc.Balance -= req.RequestedAmount
			if acc.Balance < 0 {
				acc.Balance = 0
			}
		case models.DecisionReject:
			req.Status = models.WithdrawalStatusRejected
			req.ResolvedAt = &resolvedAt
		default:
			return fmt.Errorf("unknown decision %q", decision)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case models.WithdrawalStatusConfirmed:
		s.notifier.NotifyUser(userID, "🎉 Your withdrawal has been processed successfully! Check your account.")
	case models.WithdrawalStatusRejected:
		s.notifier.NotifyUser(userID, "❌ Your withdrawal request was rejected. Please contact support.")
	}
	return req, nil
}

func eligible(acc *models.Account) bool {
	return acc.ReferralCount >= models.WithdrawalMinReferrals &&
		acc.Balance >= models.WithdrawalMinBalance
}
