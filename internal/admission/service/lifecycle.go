package service

import (
	"context"
	"errors"
	"time"

	"enrolldesk/internal/admission/models"
	"enrolldesk/internal/audit"
	"enrolldesk/internal/notification"
	id "enrolldesk/pkg/domain"
	dErrors "enrolldesk/pkg/domain-errors"
	"enrolldesk/pkg/requestcontext"
)

// ApplyResult is the response of a lifecycle transition: the post-transition
// record snapshot plus the dispatch outcome. The dispatch outcome is data,
// never an error; a failed send leaves the transition committed and the
// notification eligible for resend.
type ApplyResult struct {
	Record             *models.Application `json:"record"`
	NotificationStatus notification.Status `json:"notification_status"`
}

// Apply validates and applies one transition as a single conditional write,
// then attempts the notification the transition requires, at most once.
//
// Errors: CodeNotFound, CodeInvalidTransition, CodeUnauthorized,
// CodeUnavailable. None leave partial writes: the store's Execute either
// commits the whole mutation or nothing.
func (s *Service) Apply(ctx context.Context, applicationID id.ApplicationID, transition models.Transition, role id.Role) (*ApplyResult, error) {
	ctx, span := s.tracer.Start(ctx, "admission.Apply")
	defer span.End()

	start := time.Now()
	defer func() {
		if s.metrics != nil {
			s.metrics.ObserveApply(start)
		}
	}()

	if err := requireAdmin(role); err != nil {
		s.observeTransition(transition, "unauthorized")
		return nil, err
	}
	if !transition.IsValid() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unsupported transition")
	}

	now := requestcontext.Now(ctx)

	var (
		record *models.Application
		err    error
	)
	switch transition {
	case models.TransitionApprove:
		record, err = s.store.Execute(ctx, applicationID,
			func(a *models.Application) error { return a.CanApprove() },
			func(a *models.Application) { a.ApplyApproval(now) },
		)
	case models.TransitionReject:
		record, err = s.store.Execute(ctx, applicationID,
			func(a *models.Application) error { return a.CanReject() },
			func(a *models.Application) { a.ApplyRejection(now) },
		)
	case models.TransitionMarkPaid:
		record, err = s.store.Execute(ctx, applicationID,
			func(a *models.Application) error { return a.CanMarkPaid() },
			func(a *models.Application) { a.ApplyPayment(now) },
		)
		if errors.Is(err, models.ErrAlreadyPaid) {
			// Duplicate paid signals from billing are fine: succeed with the
			// unchanged record instead of erroring.
			record, err = s.store.FindByID(ctx, applicationID)
			if err != nil {
				return nil, translateStoreErr(err)
			}
			s.observeTransition(transition, "noop")
			return &ApplyResult{Record: record, NotificationStatus: notification.StatusSkipped}, nil
		}
	}
	if err != nil {
		outcome := "error"
		if dErrors.HasCode(err, dErrors.CodeInvalidTransition) {
			outcome = "invalid_transition"
		}
		s.observeTransition(transition, outcome)
		return nil, translateStoreErr(err)
	}

	s.observeTransition(transition, "applied")
	s.emitAudit(ctx, audit.Event{
		Action:        actionForTransition(transition),
		ApplicationID: record.ID.String(),
		Outcome:       "committed",
	})
	s.logger.InfoContext(ctx, "transition applied",
		"application_id", record.ID.String(),
		"transition", transition.String(),
		"review_status", record.ReviewStatus.String(),
		"payment_status", record.PaymentStatus.String(),
		"request_id", requestcontext.RequestID(ctx),
	)

	status := s.notify(ctx, record, kindForTransition(transition))
	return &ApplyResult{Record: record, NotificationStatus: status}, nil
}

// ResendNotification re-attempts dispatch for a kind the record's current
// state structurally permits, regardless of whether it was already recorded
// as sent. The only path that may deliver the same kind twice, by explicit
// staff request.
func (s *Service) ResendNotification(ctx context.Context, applicationID id.ApplicationID, kind notification.Kind, role id.Role) (notification.Status, error) {
	ctx, span := s.tracer.Start(ctx, "admission.ResendNotification")
	defer span.End()

	if err := requireAdmin(role); err != nil {
		return "", err
	}
	if !kind.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported notification kind")
	}

	record, err := s.store.FindByID(ctx, applicationID)
	if err != nil {
		return "", translateStoreErr(err)
	}
	if err := structurallyValid(record, kind); err != nil {
		return "", err
	}

	if s.throttle != nil {
		allowed, err := s.throttle.Allow(ctx, record.ID.String(), kind)
		if err != nil {
			// The cooldown is advisory; a broken cache must not block staff.
			s.logger.WarnContext(ctx, "resend throttle unavailable", "error", err)
		} else if !allowed {
			return notification.StatusSkipped, nil
		}
	}

	status := s.dispatch(ctx, record, kind)
	s.emitAudit(ctx, audit.Event{
		Action:        audit.ActionNotificationResent,
		ApplicationID: record.ID.String(),
		Outcome:       string(status),
		Detail:        kind.String(),
	})
	return status, nil
}

// notify implements the at-most-once contract for transition-triggered
// sends: an empty kind or an already-recorded kind is skipped.
func (s *Service) notify(ctx context.Context, record *models.Application, kind notification.Kind) notification.Status {
	if kind == "" {
		return notification.StatusSkipped
	}
	if record.HasNotification(kind) {
		return notification.StatusSkipped
	}
	return s.dispatch(ctx, record, kind)
}

// dispatch attempts delivery with its own timeout and records a successful
// send on the record. The transition is already committed when this runs, so
// the dispatch context is detached from the caller's cancellation: an
// abandoned request must not strand a deliverable message.
func (s *Service) dispatch(ctx context.Context, record *models.Application, kind notification.Kind) notification.Status {
	payload := notification.Payload{
		ApplicationID:  record.ID.String(),
		RecipientEmail: record.ApplicantEmail,
		RecipientName:  record.ApplicantName,
		CourseName:     record.CourseName,
		CourseFee:      record.CourseFee,
	}
	if record.PaymentDeadline != nil {
		payload.PaymentDeadline = *record.PaymentDeadline
	}

	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.dispatchTimeout)
	defer cancel()

	result := s.dispatcher.Send(sendCtx, kind, payload)
	if !result.Success {
		s.observeNotification(kind, notification.StatusFailed)
		s.emitAudit(ctx, audit.Event{
			Action:        audit.ActionNotificationFailed,
			ApplicationID: record.ID.String(),
			Outcome:       string(notification.StatusFailed),
			Detail:        result.Err,
		})
		s.logger.WarnContext(ctx, "notification dispatch failed",
			"application_id", record.ID.String(),
			"kind", kind.String(),
			"error", result.Err,
		)
		return notification.StatusFailed
	}

	// Record success so retries and future transitions skip this kind. The
	// write runs on its own detached context so a slow provider send cannot
	// eat the bookkeeping budget. If it still fails the send happened; log
	// it and let a later resend decision fall to staff.
	if _, err := s.store.RecordNotification(context.WithoutCancel(ctx), record.ID, kind); err != nil {
		s.logger.ErrorContext(ctx, "failed to record notification",
			"application_id", record.ID.String(),
			"kind", kind.String(),
			"error", err,
		)
	} else {
		record.RecordNotification(kind)
	}

	s.observeNotification(kind, notification.StatusSent)
	s.emitAudit(ctx, audit.Event{
		Action:        audit.ActionNotificationSent,
		ApplicationID: record.ID.String(),
		Outcome:       string(notification.StatusSent),
		Detail:        kind.String(),
	})
	return notification.StatusSent
}

// structurallyValid checks that a kind makes sense for the record's current
// state before a resend: a payment request needs an approved record, a
// rejection notice a rejected one.
func structurallyValid(record *models.Application, kind notification.Kind) error {
	switch kind {
	case notification.KindPaymentRequest:
		if record.ReviewStatus != models.ReviewApproved {
			return dErrors.New(dErrors.CodeInvalidTransition, "payment request requires an approved application")
		}
	case notification.KindStatusRejected:
		if record.ReviewStatus != models.ReviewRejected {
			return dErrors.New(dErrors.CodeInvalidTransition, "rejection notice requires a rejected application")
		}
	}
	return nil
}

// kindForTransition maps each transition to the notification it triggers.
// markPaid triggers none.
func kindForTransition(transition models.Transition) notification.Kind {
	switch transition {
	case models.TransitionApprove:
		return notification.KindPaymentRequest
	case models.TransitionReject:
		return notification.KindStatusRejected
	default:
		return ""
	}
}

func actionForTransition(transition models.Transition) audit.Action {
	switch transition {
	case models.TransitionApprove:
		return audit.ActionApproved
	case models.TransitionReject:
		return audit.ActionRejected
	default:
		return audit.ActionMarkedPaid
	}
}

func (s *Service) observeTransition(transition models.Transition, outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveTransition(transition.String(), outcome)
	}
}

func (s *Service) observeNotification(kind notification.Kind, status notification.Status) {
	if s.metrics != nil {
		s.metrics.ObserveNotification(kind.String(), string(status))
	}
}
