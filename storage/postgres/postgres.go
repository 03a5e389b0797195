package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"spin-rewards-service/models"
	"spin-rewards-service/storage"
)

// maxRetries bounds how often a transaction is replayed after a transient
// serialization or deadlock failure before ErrConflict is surfaced.
const maxRetries = 3

// Store is the Postgres-backed storage implementation. All mutating calls run
// inside db.Transaction with SELECT ... FOR UPDATE row locks; the two-account
// referral credit locks rows in deterministic order to avoid deadlocks.
type Store struct {
	db *gorm.DB
}

var _ storage.Store = (*Store)(nil)

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) GetAccount(ctx context.Context, userID string) (*models.Account, error) {
	var acc models.Account
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&acc).Error
	if err != nil {
		return nil, translate(err)
	}
	return &acc, nil
}

func (s *Store) GetAccountByReferralCode(ctx context.Context, code string) (*models.Account, error) {
	var acc models.Account
	err := s.db.WithContext(ctx).Where("referral_code = ?", code).First(&acc).Error
	if err != nil {
		return nil, translate(err)
	}
	return &acc, nil
}

func (s *Store) CreateAccount(ctx context.Context, acc *models.Account) error {
	err := s.db.WithContext(ctx).Create(acc).Error
	if err == nil {
		return nil
	}
	if isUniqueViolation(err) {
		// The primary key and the referral code share the error class;
		// disambiguate so callers can retry a code collision.
		var existing models.Account
		if lookupErr := s.db.WithContext(ctx).Where("user_id = ?", acc.UserID).First(&existing).Error; lookupErr == nil {
			return storage.ErrAlreadyExists
		}
		return storage.ErrConflict
	}
	return err
}

func (s *Store) ListReferredUserIDs(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&models.Referral{}).
		Where("referrer_id = ?", userID).
		Order("created_at ASC").
		Pluck("referred_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (s *Store) UpdateAccount(ctx context.Context, userID string, mutate func(acc *models.Account) error) (*models.Account, error) {
	var out *models.Account
	err := s.withRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var acc models.Account
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("user_id = ?", userID).
				First(&acc).Error; err != nil {
				return translate(err)
			}
			if err := mutate(&acc); err != nil {
				return err
			}
			if err := tx.Save(&acc).Error; err != nil {
				return err
			}
			out = &acc
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ApplyReferral(ctx context.Context, code string, referred *models.Account, credit func(referrer *models.Account) error) (*models.Account, error) {
	var out *models.Account
	err := s.withRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var referrer models.Account
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("referral_code = ?", code).
				First(&referrer).Error; err != nil {
				return translate(err)
			}
			if err := credit(&referrer); err != nil {
				return err
			}
			if err := tx.Create(referred).Error; err != nil {
				if isUniqueViolation(err) {
					return storage.ErrAlreadyExists
				}
				return err
			}
			edge := models.Referral{
				ID:         uuid.NewString(),
				ReferrerID: referrer.UserID,
				ReferredID: referred.UserID,
			}
			if err := tx.Create(&edge).Error; err != nil {
				if isUniqueViolation(err) {
					return storage.ErrAlreadyExists
				}
				return err
			}
			if err := tx.Save(&referrer).Error; err != nil {
				return err
			}
			out = &referrer
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) SubmitWithdrawal(ctx context.Context, userID string, build func(acc *models.Account) (*models.WithdrawalRequest, error)) (*models.WithdrawalRequest, error) {
	var out *models.WithdrawalRequest
	err := s.withRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			// The account row lock serializes submit/resolve per user, so
			// the at-most-one-pending check below cannot race.
			var acc models.Account
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("user_id = ?", userID).
				First(&acc).Error; err != nil {
				return translate(err)
			}
			var pending int64
			if err := tx.Model(&models.WithdrawalRequest{}).
				Where("user_id = ? AND status = ?", userID, models.WithdrawalStatusPending).
				Count(&pending).Error; err != nil {
				return err
			}
			if pending > 0 {
				return storage.ErrPendingExists
			}
			req, err := build(&acc)
			if err != nil {
				return err
			}
			if err := tx.Create(req).Error; err != nil {
				return err
			}
			out = req
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ResolveWithdrawal(ctx context.Context, userID string, resolve func(req *models.WithdrawalRequest, acc *models.Account) error) (*models.WithdrawalRequest, error) {
	var out *models.WithdrawalRequest
	err := s.withRetry(func() error {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var acc models.Account
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("user_id = ?", userID).
				First(&acc).Error; err != nil {
				return translate(err)
			}
			var req models.WithdrawalRequest
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("user_id = ? AND status = ?", userID, models.WithdrawalStatusPending).
				First(&req).Error; err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return storage.ErrNoPending
				}
				return err
			}
			if err := resolve(&req, &acc); err != nil {
				return err
			}
			if err := tx.Save(&req).Error; err != nil {
				return err
			}
			if err := tx.Save(&acc).Error; err != nil {
				return err
			}
			out = &req
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) ListPendingWithdrawals(ctx context.Context, cutoff time.Time) ([]models.WithdrawalRequest, error) {
	var reqs []models.WithdrawalRequest
	err := s.db.WithContext(ctx).
		Where("status = ? AND requested_at < ?", models.WithdrawalStatusPending, cutoff).
		Order("requested_at ASC").
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

func (s *Store) ListResolvedWithdrawalsSince(ctx context.Context, since time.Time) ([]models.WithdrawalRequest, error) {
	var reqs []models.WithdrawalRequest
	err := s.db.WithContext(ctx).
		Where("status <> ? AND resolved_at >= ?", models.WithdrawalStatusPending, since).
		Order("resolved_at ASC").
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	return reqs, nil
}

// withRetry replays fn on transient Postgres failures (serialization 40001,
// deadlock 40P01) up to maxRetries before giving up with ErrConflict.
func (s *Store) withRetry(fn func() error) error {
	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = fn()
		if err == nil || !isRetryable(err) {
			return err
		}
	}
	return storage.ErrConflict
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return storage.ErrNotFound
	}
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == "40001" || pgErr.Code == "40P01"
}
