// Package store persists admission applications. The lifecycle service
// depends on the Store interface; InMemory backs unit tests and local runs,
// Postgres backs production.
package store

import (
	"context"

	"enrolldesk/internal/admission/models"
	"enrolldesk/internal/notification"
	id "enrolldesk/pkg/domain"
)

// Store is the record store capability handed to the lifecycle service.
//
// Execute is the conditional write that makes concurrent duplicate requests
// safe: validate and mutate run atomically against the current row (mutex in
// memory, SELECT ... FOR UPDATE in Postgres), so of two racing approvals
// exactly one passes validation. A validation error aborts with no write and
// is returned unwrapped so services can translate it.
type Store interface {
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, applicationID id.ApplicationID) (*models.Application, error)
	List(ctx context.Context, filter Filter) ([]*models.Application, error)
	CountByStatus(ctx context.Context) (StatusCounts, error)
	Execute(ctx context.Context, applicationID id.ApplicationID,
		validate func(*models.Application) error,
		mutate func(*models.Application)) (*models.Application, error)
	// RecordNotification appends the kind to the record's sent set if absent
	// and returns the updated snapshot.
	RecordNotification(ctx context.Context, applicationID id.ApplicationID, kind notification.Kind) (*models.Application, error)
}

// Filter narrows List results. Zero values mean "no constraint".
type Filter struct {
	ReviewStatus  models.ReviewStatus
	PaymentStatus models.PaymentStatus
	Limit         int
}

// StatusCounts is the read projection behind the admissions dashboard.
type StatusCounts struct {
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Paid     int `json:"paid"`
}
