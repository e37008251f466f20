package models

import dErrors "enrolldesk/pkg/domain-errors"

// ReviewStatus is the review axis of the application lifecycle.
//
// Valid transitions:
//
//	pending --approve--> approved
//	pending --reject---> rejected
//
// approved and rejected are terminal on this axis.
type ReviewStatus string

const (
	ReviewPending  ReviewStatus = "pending"
	ReviewApproved ReviewStatus = "approved"
	ReviewRejected ReviewStatus = "rejected"
)

var validReviewStatuses = map[ReviewStatus]bool{
	ReviewPending:  true,
	ReviewApproved: true,
	ReviewRejected: true,
}

// ParseReviewStatus constructs a ReviewStatus from external input (query
// filters, stored rows).
func ParseReviewStatus(s string) (ReviewStatus, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "review status cannot be empty")
	}
	rs := ReviewStatus(s)
	if !rs.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported review status")
	}
	return rs, nil
}

func (s ReviewStatus) IsValid() bool {
	return validReviewStatuses[s]
}

func (s ReviewStatus) String() string {
	return string(s)
}

// PaymentStatus is the payment axis. It is meaningful only while the review
// status is approved; the engine ignores it otherwise.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

var validPaymentStatuses = map[PaymentStatus]bool{
	PaymentUnpaid: true,
	PaymentPaid:   true,
}

// ParsePaymentStatus constructs a PaymentStatus from external input.
func ParsePaymentStatus(s string) (PaymentStatus, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "payment status cannot be empty")
	}
	ps := PaymentStatus(s)
	if !ps.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported payment status")
	}
	return ps, nil
}

func (s PaymentStatus) IsValid() bool {
	return validPaymentStatuses[s]
}

func (s PaymentStatus) String() string {
	return string(s)
}

// Transition is a requested lifecycle change, validated and applied by the
// lifecycle service.
type Transition string

const (
	TransitionApprove  Transition = "approve"
	TransitionReject   Transition = "reject"
	TransitionMarkPaid Transition = "markPaid"
)

var validTransitions = map[Transition]bool{
	TransitionApprove:  true,
	TransitionReject:   true,
	TransitionMarkPaid: true,
}

// ParseTransition constructs a Transition from external input.
func ParseTransition(s string) (Transition, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "transition cannot be empty")
	}
	t := Transition(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported transition")
	}
	return t, nil
}

func (t Transition) IsValid() bool {
	return validTransitions[t]
}

func (t Transition) String() string {
	return string(t)
}
