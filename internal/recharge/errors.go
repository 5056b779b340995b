package recharge

import (
	"errors" // Sentinel errors
	"fmt"    // Error formatting
)

// Errors surfaced to callers configuring auto-recharge
var (
	ErrThresholdBelowMinimum = errors.New("threshold amount below platform minimum") // threshold under the floor
	ErrRechargeBelowMinimum  = errors.New("recharge amount below platform minimum")  // recharge amount under the floor
	ErrSettingsNotFound      = errors.New("auto-recharge not configured")            // no settings row for the wallet
)

// ErrRechargeInProgress signals a dropped trigger: another recharge already
// holds the wallet's single-flight lock. Expected under concurrency and never
// surfaced to debit callers.
var ErrRechargeInProgress = errors.New("recharge already in progress")

// GatewayError is a payment gateway failure. Retryable marks transport-level
// failures (timeouts, 5xx); terminal rejections are not retried automatically
// either way — a new qualifying debit is required for the next attempt.
type GatewayError struct {
	Reason    string // Gateway-provided reason
	Retryable bool   // Transport failure vs terminal rejection
}

// Error implements the error interface
func (e *GatewayError) Error() string {
	if e.Retryable {
		return fmt.Sprintf("gateway transport failure: %s", e.Reason)
	}
	return fmt.Sprintf("gateway rejected charge: %s", e.Reason)
}
