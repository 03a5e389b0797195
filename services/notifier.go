package services

import "spin-rewards-service/models"

// Notifier delivers outbound messages. Implementations must be safe to call
// after the owning transaction has committed; services never notify from
// inside a transactional boundary.
type Notifier interface {
	NotifyAdmin(req models.WithdrawalRequest, displayName string)
	NotifyUser(userID, message string)
}

// NopNotifier discards all notifications. Used in tests and when no chat
// front end is configured.
type NopNotifier struct{}

func (NopNotifier) NotifyAdmin(models.WithdrawalRequest, string) {}

func (NopNotifier) NotifyUser(string, string) {}
