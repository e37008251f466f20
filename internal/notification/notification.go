// Package notification defines the outbound message contract for the
// admissions lifecycle: which message kinds exist, what a dispatch attempt
// reports back, and the Dispatcher interface implementations must satisfy.
//
// Dispatch failures are data, never errors: the lifecycle service commits a
// transition first and treats a failed send as retryable state on the record,
// so a Dispatcher must not panic or surface transport errors as Go errors.
package notification

import dErrors "enrolldesk/pkg/domain-errors"

// Kind names a category of outbound message tied to a lifecycle transition.
type Kind string

const (
	// KindPaymentRequest is sent when an application is approved and asks
	// the applicant to pay the course fee before the stored deadline.
	KindPaymentRequest Kind = "paymentRequest"
	// KindStatusRejected informs the applicant their application was rejected.
	KindStatusRejected Kind = "statusRejected"
)

var validKinds = map[Kind]bool{
	KindPaymentRequest: true,
	KindStatusRejected: true,
}

// ParseKind constructs a Kind from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseKind(s string) (Kind, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "notification kind cannot be empty")
	}
	k := Kind(s)
	if !k.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported notification kind")
	}
	return k, nil
}

func (k Kind) IsValid() bool {
	return validKinds[k]
}

func (k Kind) String() string {
	return string(k)
}

// Status reports the dispatch outcome of a lifecycle operation to the caller.
type Status string

const (
	// StatusSent means the dispatch attempt succeeded and was recorded.
	StatusSent Status = "sent"
	// StatusFailed means the dispatch attempt failed; the transition still
	// stands and the kind is eligible for resend.
	StatusFailed Status = "failed"
	// StatusSkipped means no dispatch was attempted: the transition carries
	// no message, the kind was already recorded as sent, or a resend hit
	// the cooldown window.
	StatusSkipped Status = "skipped"
)

// Result is what a dispatch attempt reports back to the lifecycle service.
type Result struct {
	Success           bool
	ProviderMessageID string
	Err               string
}
