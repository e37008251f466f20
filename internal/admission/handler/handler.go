// Package handler exposes the admission lifecycle over HTTP. It stays thin:
// parse, delegate to the service, translate coded errors to JSON responses.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"enrolldesk/internal/admission/models"
	"enrolldesk/internal/admission/service"
	"enrolldesk/internal/admission/store"
	"enrolldesk/internal/notification"
	mwauth "enrolldesk/internal/platform/middleware/auth"
	id "enrolldesk/pkg/domain"
	dErrors "enrolldesk/pkg/domain-errors"
	"enrolldesk/pkg/requestcontext"
)

// Service defines the lifecycle operations the handler delegates to.
type Service interface {
	Submit(ctx context.Context, input service.SubmitInput) (*models.Application, error)
	Get(ctx context.Context, applicationID id.ApplicationID) (*models.Application, error)
	List(ctx context.Context, filter store.Filter) ([]*models.Application, error)
	Stats(ctx context.Context) (store.StatusCounts, error)
	Apply(ctx context.Context, applicationID id.ApplicationID, transition models.Transition, role id.Role) (*service.ApplyResult, error)
	ResendNotification(ctx context.Context, applicationID id.ApplicationID, kind notification.Kind, role id.Role) (notification.Status, error)
}

// Handler handles admission application endpoints.
type Handler struct {
	logger    *slog.Logger
	service   Service
	validator mwauth.TokenValidator
}

// New creates a new admission Handler.
func New(svc Service, validator mwauth.TokenValidator, logger *slog.Logger) *Handler {
	return &Handler{
		logger:    logger,
		service:   svc,
		validator: validator,
	}
}

// Register registers the admission routes with the chi router. Submission is
// public; reads require a valid token; transitions additionally require the
// admin role, which the service enforces.
func (h *Handler) Register(r chi.Router) {
	r.Post("/applications", h.handleSubmit)

	r.Group(func(r chi.Router) {
		r.Use(mwauth.RequireAuth(h.validator, h.logger))
		r.Get("/applications/{id}", h.handleGet)
		r.Get("/admin/applications", h.handleList)
		r.Get("/admin/applications/stats", h.handleStats)
		r.Post("/admin/applications/{id}/approve", h.handleTransition(models.TransitionApprove))
		r.Post("/admin/applications/{id}/reject", h.handleTransition(models.TransitionReject))
		r.Post("/admin/applications/{id}/mark-paid", h.handleTransition(models.TransitionMarkPaid))
		r.Post("/admin/applications/{id}/notifications/{kind}/resend", h.handleResend)
	})
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	req, err := decodeSubmitRequest(r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid submit request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}

	app, err := h.service.Submit(ctx, service.SubmitInput{
		ApplicantEmail: req.ApplicantEmail,
		ApplicantName:  req.ApplicantName,
		CourseName:     req.CourseName,
		CourseFee:      req.CourseFee,
	})
	if err != nil {
		h.logError(ctx, "failed to submit application", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, app)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	applicationID, err := pathApplicationID(r)
	if err != nil {
		writeError(w, err)
		return
	}

	app, err := h.service.Get(ctx, applicationID)
	if err != nil {
		h.logError(ctx, "failed to fetch application", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, app)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	filter, err := parseListFilter(r)
	if err != nil {
		writeError(w, err)
		return
	}

	apps, err := h.service.List(ctx, filter)
	if err != nil {
		h.logError(ctx, "failed to list applications", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, listResponse{Applications: apps, Count: len(apps)})
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	counts, err := h.service.Stats(ctx)
	if err != nil {
		h.logError(ctx, "failed to compute stats", err)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, counts)
}

// handleTransition builds the handler for one lifecycle transition route. The
// caller role travels as an explicit argument so the service re-checks it.
func (h *Handler) handleTransition(transition models.Transition) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		applicationID, err := pathApplicationID(r)
		if err != nil {
			writeError(w, err)
			return
		}

		result, err := h.service.Apply(ctx, applicationID, transition, requestcontext.Role(ctx))
		if err != nil {
			h.logError(ctx, "failed to apply transition", err,
				"transition", transition.String(),
			)
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	}
}

func (h *Handler) handleResend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	applicationID, err := pathApplicationID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	kind, err := notification.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, err)
		return
	}

	status, err := h.service.ResendNotification(ctx, applicationID, kind, requestcontext.Role(ctx))
	if err != nil {
		h.logError(ctx, "failed to resend notification", err,
			"kind", kind.String(),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resendResponse{NotificationStatus: status})
}

// logError logs expected domain outcomes at warn and everything else at error.
func (h *Handler) logError(ctx context.Context, msg string, err error, args ...any) {
	args = append(args,
		"request_id", requestcontext.RequestID(ctx),
		"error", err.Error(),
	)
	switch dErrors.CodeOf(err) {
	case dErrors.CodeInternal, dErrors.CodeUnavailable:
		h.logger.ErrorContext(ctx, msg, args...)
	default:
		h.logger.WarnContext(ctx, msg, args...)
	}
}

func pathApplicationID(r *http.Request) (id.ApplicationID, error) {
	return id.ParseApplicationID(chi.URLParam(r, "id"))
}
