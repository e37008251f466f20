package notification

import (
	"bytes"
	"fmt"
	"text/template"
	"time"
)

// Email is a rendered message ready for a transport.
type Email struct {
	Subject string
	Body    string
}

const paymentRequestBody = `Dear {{.Name}},

Congratulations! Your application for {{.Course}} has been approved.

To confirm your enrollment, please pay the course fee of {{.Fee}} by {{.Deadline}}.

Enrollment is only final once payment is received.

Regards,
The Admissions Office`

const statusRejectedBody = `Dear {{.Name}},

Thank you for your interest in {{.Course}}.

After careful review, we are unable to offer you a place at this time.

Regards,
The Admissions Office`

var (
	paymentRequestTmpl = template.Must(template.New("paymentRequest").Parse(paymentRequestBody))
	statusRejectedTmpl = template.Must(template.New("statusRejected").Parse(statusRejectedBody))
)

// Render produces the subject and body for a kind from the payload. The
// payment deadline is the value stored on the record at approval, so a
// retried send quotes the same date as the original.
func Render(kind Kind, payload Payload) (Email, error) {
	data := struct {
		Name     string
		Course   string
		Fee      string
		Deadline string
	}{
		Name:     payload.RecipientName,
		Course:   payload.CourseName,
		Fee:      FormatFee(payload.CourseFee),
		Deadline: payload.PaymentDeadline.Format("2 January 2006"),
	}

	var tmpl *template.Template
	var subject string
	switch kind {
	case KindPaymentRequest:
		tmpl = paymentRequestTmpl
		subject = fmt.Sprintf("Application approved: payment due for %s", payload.CourseName)
	case KindStatusRejected:
		tmpl = statusRejectedTmpl
		subject = fmt.Sprintf("Application update for %s", payload.CourseName)
	default:
		return Email{}, fmt.Errorf("no template for notification kind %q", kind)
	}

	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return Email{}, fmt.Errorf("render %s: %w", kind, err)
	}
	return Email{Subject: subject, Body: body.String()}, nil
}

// FormatFee renders a minor-unit amount as a decimal string, e.g. 125000 ->
// "1250.00".
func FormatFee(minorUnits int64) string {
	return fmt.Sprintf("%d.%02d", minorUnits/100, minorUnits%100)
}

// PaymentDeadlineFrom computes the payment deadline persisted at approval
// time.
func PaymentDeadlineFrom(approvedAt time.Time) time.Time {
	return approvedAt.Add(7 * 24 * time.Hour)
}
