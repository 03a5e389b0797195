package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"spin-rewards-service/models"
	"spin-rewards-service/storage"
)

// codeAttempts bounds referral-code regeneration on the (rare) collision of
// an 8-char token with an existing account.
const codeAttempts = 5

type AccountService struct {
	store storage.Store
}

func NewAccountService(store storage.Store) *AccountService {
	return &AccountService{store: store}
}

// CreateOrGetAccount returns the existing account for userID or creates one
// with the full daily quota and a fresh referral code. The bool is true when
// a new account was created.
func (s *AccountService) CreateOrGetAccount(ctx context.Context, userID, displayName string) (*models.Account, bool, error) {
	if userID == "" {
		return nil, false, fmt.Errorf("user id required")
	}
	acc, err := s.store.GetAccount(ctx, userID)
	if err == nil {
		return acc, false, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, false, err
	}

	if strings.TrimSpace(displayName) == "" {
		displayName = userID
	}
	for attempt := 0; attempt < codeAttempts; attempt++ {
		acc := &models.Account{
			UserID:         userID,
			DisplayName:    displayName,
			SpinsRemaining: models.DailySpinQuota,
			ReferralCode:   NewReferralCode(),
		}
		err := s.store.CreateAccount(ctx, acc)
		if err == nil {
			return acc, true, nil
		}
		if errors.Is(err, storage.ErrAlreadyExists) {
			// Lost the race against a concurrent first contact.
			existing, getErr := s.store.GetAccount(ctx, userID)
			if getErr != nil {
				return nil, false, getErr
			}
			return existing, false, nil
		}
		if errors.Is(err, storage.ErrConflict) {
			continue // referral code collision, regenerate
		}
		return nil, false, err
	}
	return nil, false, fmt.Errorf("could not allocate a unique referral code for %s", userID)
}

// GetSnapshot returns the account view including the referred user set.
// Returns storage.ErrNotFound if the user has no account.
func (s *AccountService) GetSnapshot(ctx context.Context, userID string) (models.AccountView, error) {
	acc, err := s.store.GetAccount(ctx, userID)
	if err != nil {
		return models.AccountView{}, err
	}
	referred, err := s.store.ListReferredUserIDs(ctx, userID)
	if err != nil {
		return models.AccountView{}, err
	}
	return acc.View(referred), nil
}

// NewReferralCode mints an opaque 8-character referral token.
func NewReferralCode() string {
	return uuid.NewString()[:8]
}
