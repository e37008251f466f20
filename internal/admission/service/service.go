// Package service implements the application lifecycle engine: it validates
// and applies review/payment transitions, triggers the notification each
// transition requires at most once, and translates store facts into coded
// domain errors.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"enrolldesk/internal/admission/metrics"
	"enrolldesk/internal/admission/models"
	"enrolldesk/internal/admission/store"
	"enrolldesk/internal/audit"
	"enrolldesk/internal/notification"
	id "enrolldesk/pkg/domain"
	dErrors "enrolldesk/pkg/domain-errors"
	"enrolldesk/pkg/platform/sentinel"
	"enrolldesk/pkg/requestcontext"
)

const defaultDispatchTimeout = 10 * time.Second

// AuditPublisher receives lifecycle audit events. Optional; nil disables
// auditing.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// ResendThrottle rate-limits explicit resends. Optional; nil disables the
// cooldown.
type ResendThrottle interface {
	Allow(ctx context.Context, applicationID string, kind notification.Kind) (bool, error)
}

// Service orchestrates the admission application lifecycle.
type Service struct {
	store           store.Store
	dispatcher      notification.Dispatcher
	throttle        ResendThrottle
	logger          *slog.Logger
	metrics         *metrics.Metrics
	audit           AuditPublisher
	tracer          trace.Tracer
	dispatchTimeout time.Duration
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) { s.audit = publisher }
}

func WithResendThrottle(throttle ResendThrottle) Option {
	return func(s *Service) { s.throttle = throttle }
}

// WithDispatchTimeout bounds each notification dispatch attempt. A timeout
// is a dispatch failure, not an engine failure.
func WithDispatchTimeout(timeout time.Duration) Option {
	return func(s *Service) { s.dispatchTimeout = timeout }
}

// New constructs a Service around a record store and a dispatcher.
func New(recordStore store.Store, dispatcher notification.Dispatcher, opts ...Option) *Service {
	s := &Service{
		store:           recordStore,
		dispatcher:      dispatcher,
		dispatchTimeout: defaultDispatchTimeout,
		tracer:          otel.Tracer("enrolldesk/admission"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// SubmitInput carries the applicant-provided fields of a new application.
type SubmitInput struct {
	ApplicantEmail string
	ApplicantName  string
	CourseName     string
	// CourseFee is in minor currency units.
	CourseFee int64
}

// Submit creates a pending, unpaid application. It is the entry point that
// produces the initial record; it applies no transitions.
func (s *Service) Submit(ctx context.Context, input SubmitInput) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "admission.Submit")
	defer span.End()

	app, err := models.NewApplication(
		id.NewApplicationID(),
		input.ApplicantEmail,
		input.ApplicantName,
		input.CourseName,
		input.CourseFee,
		requestcontext.Now(ctx),
	)
	if err != nil {
		return nil, err
	}

	if err := s.store.Create(ctx, app); err != nil {
		return nil, translateStoreErr(err)
	}

	if s.metrics != nil {
		s.metrics.IncrementSubmissions()
	}
	s.emitAudit(ctx, audit.Event{
		Action:        audit.ActionSubmitted,
		ApplicationID: app.ID.String(),
		Outcome:       "created",
	})
	s.logger.InfoContext(ctx, "application submitted",
		"application_id", app.ID.String(),
		"course", app.CourseName,
		"request_id", requestcontext.RequestID(ctx),
	)
	return app, nil
}

// Get returns the current record snapshot. Requires an authenticated caller
// but no particular role.
func (s *Service) Get(ctx context.Context, applicationID id.ApplicationID) (*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "admission.Get")
	defer span.End()

	if err := requireAuthenticated(ctx); err != nil {
		return nil, err
	}
	app, err := s.store.FindByID(ctx, applicationID)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return app, nil
}

// List returns filtered record snapshots, newest first. Read projection
// only; no state-machine involvement.
func (s *Service) List(ctx context.Context, filter store.Filter) ([]*models.Application, error) {
	ctx, span := s.tracer.Start(ctx, "admission.List")
	defer span.End()

	if err := requireAuthenticated(ctx); err != nil {
		return nil, err
	}
	apps, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, translateStoreErr(err)
	}
	return apps, nil
}

// Stats returns status counts for the admissions dashboard.
func (s *Service) Stats(ctx context.Context) (store.StatusCounts, error) {
	ctx, span := s.tracer.Start(ctx, "admission.Stats")
	defer span.End()

	if err := requireAuthenticated(ctx); err != nil {
		return store.StatusCounts{}, err
	}
	counts, err := s.store.CountByStatus(ctx)
	if err != nil {
		return store.StatusCounts{}, translateStoreErr(err)
	}
	return counts, nil
}

// requireAuthenticated enforces the read-side boundary check: any
// authenticated caller may read, so future entry points inherit the rule
// without duplicating it in route handlers.
func requireAuthenticated(ctx context.Context) error {
	if requestcontext.CallerID(ctx) == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	return nil
}

// requireAdmin enforces the transition-side boundary check. The role comes
// from the caller, not only from middleware, because the identity gate is an
// external collaborator whose contract the engine verifies itself.
func requireAdmin(role id.Role) error {
	if role != id.RoleAdmin {
		return dErrors.New(dErrors.CodeUnauthorized, "transition requires the admin role")
	}
	return nil
}

// translateStoreErr converts store sentinels into coded errors. Coded errors
// pass through untouched; anything else is a transient store failure the
// caller may retry.
func translateStoreErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.Wrap(err, dErrors.CodeNotFound, "application not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.Wrap(err, dErrors.CodeConflict, "application already exists")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "record store unavailable")
	}
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	event.ActorID = requestcontext.CallerID(ctx)
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed",
			"action", string(event.Action),
			"application_id", event.ApplicationID,
			"error", err,
		)
	}
}
