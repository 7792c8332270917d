package enums

import "fmt"

// SubscriptionStatus is the canonical lifecycle state of a subscription.
type SubscriptionStatus string

const (
	SubscriptionStatusPending       SubscriptionStatus = "PENDING"
	SubscriptionStatusTrial         SubscriptionStatus = "TRIAL"
	SubscriptionStatusActive        SubscriptionStatus = "ACTIVE"
	SubscriptionStatusPastDue       SubscriptionStatus = "PAST_DUE"
	SubscriptionStatusPaymentFailed SubscriptionStatus = "PAYMENT_FAILED"
	SubscriptionStatusCanceled      SubscriptionStatus = "CANCELED"
	SubscriptionStatusExpired       SubscriptionStatus = "EXPIRED"
	SubscriptionStatusSuspended     SubscriptionStatus = "SUSPENDED"
	SubscriptionStatusLifetime      SubscriptionStatus = "LIFETIME"
)

var validSubscriptionStatuses = []SubscriptionStatus{
	SubscriptionStatusPending,
	SubscriptionStatusTrial,
	SubscriptionStatusActive,
	SubscriptionStatusPastDue,
	SubscriptionStatusPaymentFailed,
	SubscriptionStatusCanceled,
	SubscriptionStatusExpired,
	SubscriptionStatusSuspended,
	SubscriptionStatusLifetime,
}

// LiveSubscriptionStatuses are the states that block creating another
// subscription for the same account.
var LiveSubscriptionStatuses = []SubscriptionStatus{
	SubscriptionStatusActive,
	SubscriptionStatusTrial,
	SubscriptionStatusLifetime,
	SubscriptionStatusPending,
	SubscriptionStatusPastDue,
	SubscriptionStatusPaymentFailed,
}

// String implements fmt.Stringer.
func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s SubscriptionStatus) IsValid() bool {
	for _, candidate := range validSubscriptionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// GrantsAccess reports whether the state entitles the account to use
// paid features. PAST_DUE still grants access during the grace window.
func (s SubscriptionStatus) GrantsAccess() bool {
	switch s {
	case SubscriptionStatusTrial, SubscriptionStatusActive,
		SubscriptionStatusLifetime, SubscriptionStatusPastDue:
		return true
	}
	return false
}

// ParseSubscriptionStatus converts raw input into a SubscriptionStatus.
func ParseSubscriptionStatus(value string) (SubscriptionStatus, error) {
	for _, candidate := range validSubscriptionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription status %q", value)
}
