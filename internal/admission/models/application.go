package models

import (
	"slices"
	"strings"
	"time"

	"enrolldesk/internal/notification"
	id "enrolldesk/pkg/domain"
	dErrors "enrolldesk/pkg/domain-errors"
	pkgemail "enrolldesk/pkg/email"
)

// Application is the aggregate root for one submitted admission form.
//
// Invariants:
//   - PaymentStatus = paid implies ReviewStatus = approved
//   - ReviewedAt is set iff ReviewStatus != pending
//   - PaidAt is set iff PaymentStatus = paid
//   - PaymentDeadline is set iff ReviewStatus = approved
//   - Each notification kind appears at most once in NotificationsSent
//
// Descriptive fields (applicant, course, fee) are immutable after
// construction; status fields mutate only through the lifecycle service's
// store.Execute calls, which run the Can*/Apply* pairs below atomically
// against the current row.
type Application struct {
	ID             id.ApplicationID `json:"id"`
	ApplicantEmail string           `json:"applicant_email"`
	ApplicantName  string           `json:"applicant_name"`
	CourseName     string           `json:"course_name"`
	// CourseFee is in minor currency units.
	CourseFee     int64         `json:"course_fee"`
	ReviewStatus  ReviewStatus  `json:"review_status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	SubmittedAt   time.Time     `json:"submitted_at"`
	ReviewedAt    *time.Time    `json:"reviewed_at,omitempty"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	// PaymentDeadline is computed once at approval and persisted so retried
	// payment-request sends quote the same date.
	PaymentDeadline   *time.Time          `json:"payment_deadline,omitempty"`
	NotificationsSent []notification.Kind `json:"notifications_sent"`
}

// NewApplication constructs a pending, unpaid application.
func NewApplication(applicationID id.ApplicationID, email, name, course string, fee int64, now time.Time) (*Application, error) {
	email = strings.TrimSpace(email)
	name = strings.TrimSpace(name)
	course = strings.TrimSpace(course)

	if !pkgemail.Valid(email) {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "applicant email must be a valid address")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "applicant name is required")
	}
	if course == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "course name is required")
	}
	if fee < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "course fee cannot be negative")
	}

	return &Application{
		ID:             applicationID,
		ApplicantEmail: email,
		ApplicantName:  name,
		CourseName:     course,
		CourseFee:      fee,
		ReviewStatus:   ReviewPending,
		PaymentStatus:  PaymentUnpaid,
		SubmittedAt:    now,
	}, nil
}

// CanApprove checks whether the review axis permits approval.
// Use with ApplyApproval in Execute callbacks so validation and mutation run
// atomically against the current row.
func (a *Application) CanApprove() error {
	if a.ReviewStatus != ReviewPending {
		return dErrors.New(dErrors.CodeInvalidTransition, "review is already closed: "+a.ReviewStatus.String())
	}
	return nil
}

// ApplyApproval moves the review axis to approved, stamps ReviewedAt, and
// persists the payment deadline. Call CanApprove first.
func (a *Application) ApplyApproval(now time.Time) {
	a.ReviewStatus = ReviewApproved
	a.ReviewedAt = &now
	deadline := notification.PaymentDeadlineFrom(now)
	a.PaymentDeadline = &deadline
}

// CanReject checks whether the review axis permits rejection.
func (a *Application) CanReject() error {
	if a.ReviewStatus != ReviewPending {
		return dErrors.New(dErrors.CodeInvalidTransition, "review is already closed: "+a.ReviewStatus.String())
	}
	return nil
}

// ApplyRejection moves the review axis to rejected and stamps ReviewedAt.
// Call CanReject first.
func (a *Application) ApplyRejection(now time.Time) {
	a.ReviewStatus = ReviewRejected
	a.ReviewedAt = &now
}

// ErrAlreadyPaid is returned by CanMarkPaid when the record is already paid.
// Duplicate paid signals from billing are a success, not a conflict; the
// service maps this to an idempotent no-op.
var ErrAlreadyPaid = dErrors.New(dErrors.CodeConflict, "application is already paid")

// CanMarkPaid checks whether the payment axis permits marking paid. Payment
// is only defined for approved applications.
func (a *Application) CanMarkPaid() error {
	if a.ReviewStatus != ReviewApproved {
		return dErrors.New(dErrors.CodeInvalidTransition, "payment requires an approved application, status is "+a.ReviewStatus.String())
	}
	if a.PaymentStatus == PaymentPaid {
		return ErrAlreadyPaid
	}
	return nil
}

// ApplyPayment moves the payment axis to paid and stamps PaidAt. Call
// CanMarkPaid first.
func (a *Application) ApplyPayment(now time.Time) {
	a.PaymentStatus = PaymentPaid
	a.PaidAt = &now
}

// HasNotification reports whether the kind was already recorded as sent.
func (a *Application) HasNotification(kind notification.Kind) bool {
	return slices.Contains(a.NotificationsSent, kind)
}

// RecordNotification appends the kind to NotificationsSent if absent,
// preserving the at-most-once invariant.
func (a *Application) RecordNotification(kind notification.Kind) {
	if !a.HasNotification(kind) {
		a.NotificationsSent = append(a.NotificationsSent, kind)
	}
}

// Clone returns a deep copy so stores can hand out snapshots without
// exposing internal state to callers.
func (a *Application) Clone() *Application {
	clone := *a
	if a.ReviewedAt != nil {
		t := *a.ReviewedAt
		clone.ReviewedAt = &t
	}
	if a.PaidAt != nil {
		t := *a.PaidAt
		clone.PaidAt = &t
	}
	if a.PaymentDeadline != nil {
		t := *a.PaymentDeadline
		clone.PaymentDeadline = &t
	}
	clone.NotificationsSent = slices.Clone(a.NotificationsSent)
	return &clone
}
