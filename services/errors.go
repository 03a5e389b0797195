package services

import "errors"

// Validation errors surfaced to callers for direct display. Storage-level
// errors (not found, already exists, conflict) come from the storage package.
var (
	ErrNoSpinsLeft     = errors.New("no spins left")
	ErrInvalidCode     = errors.New("invalid referral code")
	ErrSelfReferral    = errors.New("self-referral is not allowed")
	ErrAlreadyReferred = errors.New("user already joined")
	ErrNotEligible     = errors.New("not eligible for withdrawal")
	ErrMissingDetails  = errors.New("payout details required")
	ErrUnauthorized    = errors.New("unauthorized")
)
