package notification

import (
	"context"
	"time"
)

// Payload carries the template inputs for one message. The lifecycle service
// flattens the application record into this shape so dispatchers stay
// decoupled from the admission model.
type Payload struct {
	ApplicationID  string
	RecipientEmail string
	RecipientName  string
	CourseName     string
	// CourseFee is in minor currency units.
	CourseFee int64
	// PaymentDeadline is the deadline persisted at approval time. Only
	// meaningful for KindPaymentRequest.
	PaymentDeadline time.Time
}

// Dispatcher attempts delivery of one message. Implementations report the
// outcome in Result and never return transport failures as Go errors; the
// caller applies its own timeout via ctx.
type Dispatcher interface {
	Send(ctx context.Context, kind Kind, payload Payload) Result
}
