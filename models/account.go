package models

import "time"

// Account is the per-user reward/referral record. One row per user regardless
// of which front end (bot or web) created it.
type Account struct {
	UserID          string     `gorm:"primaryKey;size:64" json:"user_id"`
	DisplayName     string     `gorm:"not null" json:"display_name"`
	Balance         int64      `gorm:"not null;default:0" json:"balance"`
	SpinsRemaining  int        `gorm:"not null;default:3" json:"spins_remaining"`
	ReferralCode    string     `gorm:"uniqueIndex;size:16;not null" json:"referral_code"`
	ReferralCount   int        `gorm:"not null;default:0" json:"referral_count"`
	ReferralEarnings int64     `gorm:"not null;default:0" json:"referral_earnings"`
	LastSpinDate    *time.Time `gorm:"type:date" json:"last_spin_date,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// DailySpinQuota is the full daily allowance restored at the UTC day boundary.
const DailySpinQuota = 3

// AccountView is the read snapshot returned to callers. ReferredUserIDs is
// hydrated from the referrals table, not stored on the account row.
type AccountView struct {
	UserID           string     `json:"user_id"`
	DisplayName      string     `json:"display_name"`
	Balance          int64      `json:"balance"`
	SpinsRemaining   int        `json:"spins_remaining"`
	ReferralCode     string     `json:"referral_code"`
	ReferredUserIDs  []string   `json:"referrals"`
	ReferralEarnings int64      `json:"referral_earnings"`
	LastSpinDate     *time.Time `json:"last_spin_date,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

// View builds an AccountView from the account row plus its referral edges.
func (a *Account) View(referredIDs []string) AccountView {
	if referredIDs == nil {
		referredIDs = []string{}
	}
	return AccountView{
		UserID:           a.UserID,
		DisplayName:      a.DisplayName,
		Balance:          a.Balance,
		SpinsRemaining:   a.SpinsRemaining,
		ReferralCode:     a.ReferralCode,
		ReferredUserIDs:  referredIDs,
		ReferralEarnings: a.ReferralEarnings,
		LastSpinDate:     a.LastSpinDate,
		CreatedAt:        a.CreatedAt,
	}
}
