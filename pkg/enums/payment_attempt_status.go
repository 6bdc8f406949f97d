package enums

import "fmt"

// PaymentAttemptStatus tracks the lifecycle of a single gateway attempt.
type PaymentAttemptStatus string

const (
	PaymentAttemptStatusInitiated PaymentAttemptStatus = "INITIATED"
	PaymentAttemptStatusVerified  PaymentAttemptStatus = "VERIFIED"
	PaymentAttemptStatusFailed    PaymentAttemptStatus = "FAILED"
)

var validPaymentAttemptStatuses = []PaymentAttemptStatus{
	PaymentAttemptStatusInitiated,
	PaymentAttemptStatusVerified,
	PaymentAttemptStatusFailed,
}

// String implements fmt.Stringer.
func (p PaymentAttemptStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentAttemptStatus.
func (p PaymentAttemptStatus) IsValid() bool {
	for _, candidate := range validPaymentAttemptStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentAttemptStatus converts raw input into a PaymentAttemptStatus.
func ParsePaymentAttemptStatus(value string) (PaymentAttemptStatus, error) {
	for _, candidate := range validPaymentAttemptStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment attempt status %q", value)
}
