package models

import "time"

// WithdrawalStatus is the state of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalStatusPending   WithdrawalStatus = "pending"
	WithdrawalStatusConfirmed WithdrawalStatus = "confirmed"
	WithdrawalStatusRejected  WithdrawalStatus = "rejected"
)

// WithdrawalRequest is a cash-out ask gated by an admin decision.
// Lifecycle: pending -> confirmed | rejected; confirmed and rejected are
// terminal. At most one pending request per user at any time, enforced under
// the account row lock at submission.
type WithdrawalRequest struct {
	ID              string           `gorm:"primaryKey;type:uuid" json:"id"`
	UserID          string           `gorm:"index;not null" json:"user_id"`
	RequestedAmount int64            `gorm:"not null" json:"requested_amount"`
	PayoutDetails   string           `gorm:"not null" json:"payout_details"`
	Status          WithdrawalStatus `gorm:"index;not null;default:'pending'" json:"status"`
	RequestedAt     time.Time        `gorm:"not null" json:"requested_at"`
	ResolvedAt      *time.Time       `json:"resolved_at,omitempty"`
}

// WithdrawalDecision is the admin's verdict on a pending request.
type WithdrawalDecision string

const (
	DecisionConfirm WithdrawalDecision = "confirm"
	DecisionReject  WithdrawalDecision = "reject"
)

// ParseWithdrawalDecision validates a decision string from an inbound call.
func ParseWithdrawalDecision(s string) (WithdrawalDecision, bool) {
	switch WithdrawalDecision(s) {
	case DecisionConfirm:
		return DecisionConfirm, true
	case DecisionReject:
		return DecisionReject, true
	}
	return "", false
}
