package audit

import "time"

// Event captures one staff or system action on an application. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Timestamp     time.Time `json:"timestamp"`
	ActorID       string    `json:"actor_id,omitempty"`
	Action        Action    `json:"action"`
	ApplicationID string    `json:"application_id"`
	Outcome       string    `json:"outcome,omitempty"`
	Detail        string    `json:"detail,omitempty"`
}

// Action names the audited operation.
type Action string

const (
	ActionSubmitted          Action = "application.submitted"
	ActionApproved           Action = "application.approved"
	ActionRejected           Action = "application.rejected"
	ActionMarkedPaid         Action = "application.marked_paid"
	ActionNotificationSent   Action = "notification.sent"
	ActionNotificationFailed Action = "notification.failed"
	ActionNotificationResent Action = "notification.resent"
)
