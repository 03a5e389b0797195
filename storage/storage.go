package storage

import (
	"context"
	"errors"
	"time"

	"spin-rewards-service/models"
)

// Storage error taxonomy. Domain-level validation errors live in services;
// these cover record state and transactional outcomes.
var (
	ErrNotFound      = errors.New("record not found")
	ErrAlreadyExists = errors.New("record already exists")
	ErrPendingExists = errors.New("a pending withdrawal request already exists")
	ErrNoPending     = errors.New("no pending withdrawal request")
	// ErrConflict is a transient transaction conflict surfaced after the
	// store has exhausted its internal retries.
	ErrConflict = errors.New("storage conflict, retry later")
)

// Store provides atomic mutation primitives over accounts, referral edges and
// withdrawal requests. Every Update*/Submit*/Resolve*/ApplyReferral call is a
// single all-or-nothing transaction; a non-nil error from the callback rolls
// the whole transaction back. Callbacks run under the row lock(s) for the
// affected user(s) and must not block on external calls.
type Store interface {
	// GetAccount returns ErrNotFound if the user has no account.
	GetAccount(ctx context.Context, userID string) (*models.Account, error)
	// GetAccountByReferralCode returns ErrNotFound if no account owns code.
	GetAccountByReferralCode(ctx context.Context, code string) (*models.Account, error)
	// CreateAccount returns ErrAlreadyExists if the user already has an
	// account, and ErrConflict if the referral code collides.
	CreateAccount(ctx context.Context, acc *models.Account) error
	// ListReferredUserIDs returns the ids of users referred by userID,
	// oldest first.
	ListReferredUserIDs(ctx context.Context, userID string) ([]string, error)

	// UpdateAccount atomically applies mutate to the account and persists
	// the result. Returns the mutated snapshot.
	UpdateAccount(ctx context.Context, userID string, mutate func(acc *models.Account) error) (*models.Account, error)

	// ApplyReferral resolves the referrer by code, runs credit against the
	// locked referrer row, creates the referred account and the referral
	// edge — all in one transaction. ErrNotFound: no such code.
	// ErrAlreadyExists: the referred user already has an account.
	ApplyReferral(ctx context.Context, code string, referred *models.Account, credit func(referrer *models.Account) error) (*models.Account, error)

	// SubmitWithdrawal locks the account, rejects with ErrPendingExists if a
	// pending request exists, then calls build to validate eligibility and
	// produce the request to persist.
	SubmitWithdrawal(ctx context.Context, userID string, build func(acc *models.Account) (*models.WithdrawalRequest, error)) (*models.WithdrawalRequest, error)

	// ResolveWithdrawal locks the account and its pending request
	// (ErrNoPending if absent) and calls resolve to apply the decision to
	// both records.
	ResolveWithdrawal(ctx context.Context, userID string, resolve func(req *models.WithdrawalRequest, acc *models.Account) error) (*models.WithdrawalRequest, error)

	// ListPendingWithdrawals returns pending requests requested before
	// cutoff, oldest first.
	ListPendingWithdrawals(ctx context.Context, cutoff time.Time) ([]models.WithdrawalRequest, error)
	// ListResolvedWithdrawalsSince returns requests resolved at or after
	// since, oldest first.
	ListResolvedWithdrawalsSince(ctx context.Context, since time.Time) ([]models.WithdrawalRequest, error)
}
