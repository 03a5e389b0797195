package models

import "time"

// Referral records a referral edge: ReferredID joined via ReferrerID's code.
// The unique index on ReferredID guarantees a user is referred at most once.
type Referral struct {
	ID         string    `gorm:"primaryKey;type:uuid" json:"id"`
	ReferrerID string    `gorm:"index;not null" json:"referrer_id"`
	ReferredID string    `gorm:"uniqueIndex;not null" json:"referred_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// SpinsPerReferral and EarningsPerReferral are credited to the referrer when
// a referred user joins. The spin credit never pushes spins_remaining past
// DailySpinQuota.
const (
	SpinsPerReferral    = 1
	EarningsPerReferral = 10
)

// WithdrawalMinReferrals and WithdrawalMinBalance gate withdrawal submission.
const (
	WithdrawalMinReferrals = 15
	WithdrawalMinBalance   = 100
)
