package services

import (
	"context"
	"errors"
	"fmt"

	"spin-rewards-service/models"
	"spin-rewards-service/storage"
)

// ReferralService creates referred accounts and credits referrers. The two
// account mutations plus the referral edge land in one atomic transaction;
// no other transaction can ever observe one effect without the other.
type ReferralService struct {
	store storage.Store
}

func NewReferralService(store storage.Store) *ReferralService {
	return &ReferralService{store: store}
}

// ApplyReferral registers newUserID as referred via referrerCode. Fails with
// ErrInvalidCode when no account owns the code, ErrSelfReferral when the code
// belongs to newUserID, and ErrAlreadyReferred when newUserID already has an
// account (a referral is only valid at first contact). On success the new
// account starts with the full quota and the referrer gains one bonus spin
// (capped at the daily quota) and the referral earnings credit. Returns the
// referrer's display name.
func (s *ReferralService) ApplyReferral(ctx context.Context, referrerCode, newUserID, newDisplayName string) (string, error) {
	if newUserID == "" {
		return "", fmt.Errorf("user id required")
	}
	if newDisplayName == "" {
		newDisplayName = newUserID
	}

	var referrer *models.Account
	var err error
	for attempt := 0; attempt < codeAttempts; attempt++ {
		referred := &models.Account{
			UserID:         newUserID,
			DisplayName:    newDisplayName,
			SpinsRemaining: models.DailySpinQuota,
			ReferralCode:   NewReferralCode(),
		}
		referrer, err = s.store.ApplyReferral(ctx, referrerCode, referred, func(ref *models.Account) error {
			if ref.UserID == newUserID {
				return ErrSelfReferral
			}
			if ref.SpinsRemaining < models.DailySpinQuota {
				ref.SpinsRemaining += models.SpinsPerReferral
			}
			ref.ReferralCount++
			ref.ReferralEarnings += models.EarningsPerReferral
			return nil
		})
		if errors.Is(err, storage.ErrConflict) {
			continue // referral code collision on the new account
		}
		break
	}
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			return "", ErrInvalidCode
		case errors.Is(err, storage.ErrAlreadyExists):
			return "", ErrAlreadyReferred
		}
		return "", err
	}
	return referrer.DisplayName, nil
}
