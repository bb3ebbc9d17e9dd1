package billing

import "github.com/p-n-ai/pai-solutions/internal/account"

// Transition returns the subscription status after event and whether it
// differs from current. Unknown events never change the status.
func Transition(current account.SubscriptionStatus, event string) (account.SubscriptionStatus, bool) {
	next := current
	switch event {
	case EventSubscriptionCreate, EventChargeSuccess:
		next = account.SubscriptionActive
	case EventInvoiceCreate:
		if current == account.SubscriptionNone {
			next = account.SubscriptionPending
		}
	case EventInvoiceFailed:
		if current == account.SubscriptionActive {
			next = account.SubscriptionPending
		}
	case EventSubscriptionDisable:
		next = account.SubscriptionCancelled
	}
	return next, next != current
}
