package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"spin-rewards-service/models"
	"spin-rewards-service/storage"
)

// Store is an in-memory implementation of storage.Store. A single mutex
// serializes every mutating call, which gives the same all-or-nothing,
// no-interleaving guarantees as the Postgres row locks. Intended for tests
// and local development.
type Store struct {
	mu            sync.RWMutex
	accounts      map[string]models.Account
	codes         map[string]string // referral_code -> user_id
	referredBy    map[string]string // referred_id -> referrer_id
	referrals     map[string][]models.Referral
	withdrawals   map[string]models.WithdrawalRequest // request id -> request
	byUserPending map[string]string                   // user_id -> pending request id
}

var _ storage.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		accounts:      make(map[string]models.Account),
		codes:         make(map[string]string),
		referredBy:    make(map[string]string),
		referrals:     make(map[string][]models.Referral),
		withdrawals:   make(map[string]models.WithdrawalRequest),
		byUserPending: make(map[string]string),
	}
}

func (s *Store) GetAccount(_ context.Context, userID string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return cloneAccount(acc), nil
}

func (s *Store) GetAccountByReferralCode(_ context.Context, code string) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.codes[code]
	if !ok {
		return nil, storage.ErrNotFound
	}
	acc := s.accounts[userID]
	return cloneAccount(acc), nil
}

func (s *Store) CreateAccount(_ context.Context, acc *models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createAccountLocked(acc)
}

func (s *Store) createAccountLocked(acc *models.Account) error {
	if _, exists := s.accounts[acc.UserID]; exists {
		return storage.ErrAlreadyExists
	}
	if _, taken := s.codes[acc.ReferralCode]; taken {
		return storage.ErrConflict
	}
	now := time.Now().UTC()
	acc.CreatedAt = now
	acc.UpdatedAt = now
	s.accounts[acc.UserID] = *acc
	s.codes[acc.ReferralCode] = acc.UserID
	return nil
}

func (s *Store) ListReferredUserIDs(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	edges := s.referrals[userID]
	ids := make([]string, 0, len(edges))
	for _, e := range edges {
		ids = append(ids, e.ReferredID)
	}
	return ids, nil
}

func (s *Store) UpdateAccount(_ context.Context, userID string, mutate func(acc *models.Account) error) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	// Mutate a copy; the stored record only changes when mutate succeeds.
	work := acc
	if err := mutate(&work); err != nil {
		return nil, err
	}
	work.UpdatedAt = time.Now().UTC()
	s.accounts[userID] = work
	return cloneAccount(work), nil
}

func (s *Store) ApplyReferral(_ context.Context, code string, referred *models.Account, credit func(referrer *models.Account) error) (*models.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	referrerID, ok := s.codes[code]
	if !ok {
		return nil, storage.ErrNotFound
	}
	referrer := s.accounts[referrerID]
	if err := credit(&referrer); err != nil {
		return nil, err
	}
	if _, referredBefore := s.referredBy[referred.UserID]; referredBefore {
		return nil, storage.ErrAlreadyExists
	}
	if err := s.createAccountLocked(referred); err != nil {
		return nil, err
	}
	edge := models.Referral{
		ID:         uuid.NewString(),
		ReferrerID: referrerID,
		ReferredID: referred.UserID,
		CreatedAt:  time.Now().UTC(),
	}
	s.referrals[referrerID] = append(s.referrals[referrerID], edge)
	s.referredBy[referred.UserID] = referrerID
	referrer.UpdatedAt = time.Now().UTC()
	s.accounts[referrerID] = referrer
	return cloneAccount(referrer), nil
}

func (s *Store) SubmitWithdrawal(_ context.Context, userID string, build func(acc *models.Account) (*models.WithdrawalRequest, error)) (*models.WithdrawalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	if _, pending := s.byUserPending[userID]; pending {
		return nil, storage.ErrPendingExists
	}
	req, err := build(&acc)
	if err != nil {
		return nil, err
	}
	s.withdrawals[req.ID] = *req
	s.byUserPending[userID] = req.ID
	out := *req
	return &out, nil
}

func (s *Store) ResolveWithdrawal(_ context.Context, userID string, resolve func(req *models.WithdrawalRequest, acc *models.Account) error) (*models.WithdrawalRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.accounts[userID]
	if !ok {
		return nil, storage.ErrNotFound
	}
	reqID, pending := s.byUserPending[userID]
	if !pending {
		return nil, storage.ErrNoPending
	}
	req := s.withdrawals[reqID]
	if err := resolve(&req, &acc); err != nil {
		return nil, err
	}
	s.withdrawals[reqID] = req
	acc.UpdatedAt = time.Now().UTC()
	s.accounts[userID] = acc
	if req.Status != models.WithdrawalStatusPending {
		delete(s.byUserPending, userID)
	}
	out := req
	return &out, nil
}

func (s *Store) ListPendingWithdrawals(_ context.Context, cutoff time.Time) ([]models.WithdrawalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var reqs []models.WithdrawalRequest
	for _, id := range s.byUserPending {
		req := s.withdrawals[id]
		if req.RequestedAt.Before(cutoff) {
			reqs = append(reqs, req)
		}
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].RequestedAt.Before(reqs[j].RequestedAt) })
	return reqs, nil
}

func (s *Store) ListResolvedWithdrawalsSince(_ context.Context, since time.Time) ([]models.WithdrawalRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var reqs []models.WithdrawalRequest
	for _, req := range s.withdrawals {
		if req.Status == models.WithdrawalStatusPending || req.ResolvedAt == nil {
			continue
		}
		if !req.ResolvedAt.Before(since) {
			reqs = append(reqs, req)
		}
	}
	sort.Slice(reqs, func(i, j int) bool { return reqs[i].ResolvedAt.Before(*reqs[j].ResolvedAt) })
	return reqs, nil
}

func cloneAccount(acc models.Account) *models.Account {
	out := acc
	if acc.LastSpinDate != nil {
		d := *acc.LastSpinDate
		out.LastSpinDate = &d
	}
	return &out
}
