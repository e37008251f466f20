package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enrolldesk/internal/admission/models"
	"enrolldesk/internal/admission/store"
	"enrolldesk/internal/audit"
	"enrolldesk/internal/notification"
	id "enrolldesk/pkg/domain"
	dErrors "enrolldesk/pkg/domain-errors"
	"enrolldesk/pkg/requestcontext"
)

// fakeDispatcher records dispatch attempts and reports a configurable
// outcome, standing in for SES.
type fakeDispatcher struct {
	mu    sync.Mutex
	fail  bool
	calls []notification.Kind
}

func (f *fakeDispatcher) Send(_ context.Context, kind notification.Kind, _ notification.Payload) notification.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, kind)
	if f.fail {
		return notification.Result{Err: "provider unavailable"}
	}
	return notification.Result{Success: true, ProviderMessageID: "msg-1"}
}

func (f *fakeDispatcher) sent() []notification.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]notification.Kind, len(f.calls))
	copy(out, f.calls)
	return out
}

type fixture struct {
	svc        *Service
	store      *store.InMemory
	dispatcher *fakeDispatcher
	sink       *audit.InMemory
	ctx        context.Context
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	recordStore := store.NewInMemory()
	dispatcher := &fakeDispatcher{}
	sink := audit.NewInMemory()
	opts = append(opts, WithAuditPublisher(audit.NewPublisher(sink)))
	svc := New(recordStore, dispatcher, opts...)

	ctx := requestcontext.WithCallerID(context.Background(), "staff-1")
	return &fixture{svc: svc, store: recordStore, dispatcher: dispatcher, sink: sink, ctx: ctx}
}

func (f *fixture) submit(t *testing.T) *models.Application {
	t.Helper()
	app, err := f.svc.Submit(f.ctx, SubmitInput{
		ApplicantEmail: "amara@example.com",
		ApplicantName:  "Amara Osei",
		CourseName:     "Software Engineering",
		CourseFee:      250000,
	})
	require.NoError(t, err)
	return app
}

func TestSubmit(t *testing.T) {
	f := newFixture(t)

	t.Run("creates a pending unpaid record", func(t *testing.T) {
		app := f.submit(t)
		assert.Equal(t, models.ReviewPending, app.ReviewStatus)
		assert.Equal(t, models.PaymentUnpaid, app.PaymentStatus)
		assert.False(t, app.SubmittedAt.IsZero())
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		_, err := f.svc.Submit(f.ctx, SubmitInput{ApplicantEmail: "nope"})
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

// TestApproveHappyPath is the submit -> approve flow: approved, unpaid,
// payment request sent and recorded.
func TestApproveHappyPath(t *testing.T) {
	f := newFixture(t)
	app := f.submit(t)

	result, err := f.svc.Apply(f.ctx, app.ID, models.TransitionApprove, id.RoleAdmin)
	require.NoError(t, err)

	assert.Equal(t, models.ReviewApproved, result.Record.ReviewStatus)
	assert.Equal(t, models.PaymentUnpaid, result.Record.PaymentStatus)
	assert.Equal(t, notification.StatusSent, result.NotificationStatus)
	require.NotNil(t, result.Record.ReviewedAt)
	require.NotNil(t, result.Record.PaymentDeadline)

	// Round-trip through Get: the sent kind is persisted.
	got, err := f.svc.Get(f.ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewApproved, got.ReviewStatus)
	assert.Equal(t, []notification.Kind{notification.KindPaymentRequest}, got.NotificationsSent)
}

// TestRejectThenApprove verifies a closed review stays closed: the late
// approval reports InvalidTransition and the record remains rejected.
func TestRejectThenApprove(t *testing.T) {
	f := newFixture(t)
	app := f.submit(t)

	result, err := f.svc.Apply(f.ctx, app.ID, models.TransitionReject, id.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewRejected, result.Record.ReviewStatus)
	assert.Equal(t, notification.StatusSent, result.NotificationStatus)

	_, err = f.svc.Apply(f.ctx, app.ID, models.TransitionApprove, id.RoleAdmin)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	got, err := f.svc.Get(f.ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewRejected, got.ReviewStatus)
	// The failed approval must not have dispatched anything new.
	assert.Equal(t, []notification.Kind{notification.KindStatusRejected}, got.NotificationsSent)
}

// TestRepeatApprove verifies retrying an applied transition reports the
// conflict instead of re-applying, and triggers no second dispatch.
func TestRepeatApprove(t *testing.T) {
	f := newFixture(t)
	app := f.submit(t)

	first, err := f.svc.Apply(f.ctx, app.ID, models.TransitionApprove, id.RoleAdmin)
	require.NoError(t, err)

	_, err = f.svc.Apply(f.ctx, app.ID, models.TransitionApprove, id.RoleAdmin)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))

	got, err := f.svc.Get(f.ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Record.ReviewedAt.Unix(), got.ReviewedAt.Unix())
	assert.Len(t, f.dispatcher.sent(), 1)
}

// TestMarkPaidIdempotent covers approve -> markPaid -> markPaid: both paid
// calls succeed and PaidAt does not move.
func TestMarkPaidIdempotent(t *testing.T) {
	f := newFixture(t)
	app := f.submit(t)

	_, err := f.svc.Apply(f.ctx, app.ID, models.TransitionApprove, id.RoleAdmin)
	require.NoError(t, err)

	first, err := f.svc.Apply(f.ctx, app.ID, models.TransitionMarkPaid, id.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, first.Record.PaymentStatus)
	// markPaid carries no notification.
	assert.Equal(t, notification.StatusSkipped, first.NotificationStatus)
	require.NotNil(t, first.Record.PaidAt)

	second, err := f.svc.Apply(f.ctx, app.ID, models.TransitionMarkPaid, id.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, second.Record.PaymentStatus)
	assert.Equal(t, notification.StatusSkipped, second.NotificationStatus)
	require.NotNil(t, second.Record.PaidAt)
	assert.Equal(t, first.Record.PaidAt.Unix(), second.Record.PaidAt.Unix())
}

func TestMarkPaidRequiresApproval(t *testing.T) {
	f := newFixture(t)

	t.Run("pending record", func(t *testing.T) {
		app := f.submit(t)
		_, err := f.svc.Apply(f.ctx, app.ID, models.TransitionMarkPaid, id.RoleAdmin)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))

		got, err := f.svc.Get(f.ctx, app.ID)
		require.NoError(t, err)
		assert.Equal(t, models.PaymentUnpaid, got.PaymentStatus)
		assert.Nil(t, got.PaidAt)
	})

	t.Run("rejected record", func(t *testing.T) {
		app := f.submit(t)
		_, err := f.svc.Apply(f.ctx, app.ID, models.TransitionReject, id.RoleAdmin)
		require.NoError(t, err)

		_, err = f.svc.Apply(f.ctx, app.ID, models.TransitionMarkPaid, id.RoleAdmin)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})
}

func TestApplyAuthorization(t *testing.T) {
	f := newFixture(t)
	app := f.submit(t)

	_, err := f.svc.Apply(f.ctx, app.ID, models.TransitionApprove, id.RoleStaff)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	got, err := f.svc.Get(f.ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewPending, got.ReviewStatus)
}

func TestApplyNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Apply(f.ctx, id.NewApplicationID(), models.TransitionApprove, id.RoleAdmin)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
}

// TestDispatchFailure covers the two-phase contract: the transition commits
// even when the provider fails, the failure is reported as data, and an
// explicit resend later succeeds and records the kind.
func TestDispatchFailure(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.fail = true
	app := f.submit(t)

	result, err := f.svc.Apply(f.ctx, app.ID, models.TransitionApprove, id.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.ReviewApproved, result.Record.ReviewStatus)
	assert.Equal(t, notification.StatusFailed, result.NotificationStatus)

	got, err := f.svc.Get(f.ctx, app.ID)
	require.NoError(t, err)
	assert.Empty(t, got.NotificationsSent)

	// Provider recovers; staff trigger a resend.
	f.dispatcher.fail = false
	status, err := f.svc.ResendNotification(f.ctx, app.ID, notification.KindPaymentRequest, id.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusSent, status)

	got, err = f.svc.Get(f.ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, []notification.Kind{notification.KindPaymentRequest}, got.NotificationsSent)
}

func TestResendNotification(t *testing.T) {
	t.Run("may deliver an already-recorded kind again", func(t *testing.T) {
		f := newFixture(t)
		app := f.submit(t)

		_, err := f.svc.Apply(f.ctx, app.ID, models.TransitionApprove, id.RoleAdmin)
		require.NoError(t, err)

		status, err := f.svc.ResendNotification(f.ctx, app.ID, notification.KindPaymentRequest, id.RoleAdmin)
		require.NoError(t, err)
		assert.Equal(t, notification.StatusSent, status)
		assert.Len(t, f.dispatcher.sent(), 2)

		// Bookkeeping stays at-most-once even after a double delivery.
		got, err := f.svc.Get(f.ctx, app.ID)
		require.NoError(t, err)
		assert.Len(t, got.NotificationsSent, 1)
	})

	t.Run("rejects a kind the state does not permit", func(t *testing.T) {
		f := newFixture(t)
		app := f.submit(t)

		_, err := f.svc.ResendNotification(f.ctx, app.ID, notification.KindPaymentRequest, id.RoleAdmin)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidTransition))
	})

	t.Run("requires admin", func(t *testing.T) {
		f := newFixture(t)
		app := f.submit(t)
		_, err := f.svc.ResendNotification(f.ctx, app.ID, notification.KindPaymentRequest, id.RoleStaff)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

// blockingThrottle denies every resend, simulating an active cooldown.
type blockingThrottle struct{}

func (blockingThrottle) Allow(context.Context, string, notification.Kind) (bool, error) {
	return false, nil
}

func TestResendThrottle(t *testing.T) {
	f := newFixture(t, WithResendThrottle(blockingThrottle{}))
	app := f.submit(t)

	_, err := f.svc.Apply(f.ctx, app.ID, models.TransitionApprove, id.RoleAdmin)
	require.NoError(t, err)

	status, err := f.svc.ResendNotification(f.ctx, app.ID, notification.KindPaymentRequest, id.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusSkipped, status)
	// Only the transition-triggered send went out.
	assert.Len(t, f.dispatcher.sent(), 1)
}

// exhaustingDispatcher succeeds only after its context budget is spent,
// standing in for a provider that answers right at the deadline.
type exhaustingDispatcher struct{}

func (exhaustingDispatcher) Send(ctx context.Context, _ notification.Kind, _ notification.Payload) notification.Result {
	<-ctx.Done()
	return notification.Result{Success: true, ProviderMessageID: "msg-slow"}
}

// deadlineSensitiveStore fails bookkeeping writes arriving on a spent
// context, the way a real driver would.
type deadlineSensitiveStore struct {
	*store.InMemory
}

func (s deadlineSensitiveStore) RecordNotification(ctx context.Context, appID id.ApplicationID, kind notification.Kind) (*models.Application, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.InMemory.RecordNotification(ctx, appID, kind)
}

// TestSlowSendStillRecorded pins the bookkeeping write to a live context: a
// send that consumes the whole dispatch budget must not leave the kind
// sent-but-unrecorded.
func TestSlowSendStillRecorded(t *testing.T) {
	recordStore := deadlineSensitiveStore{store.NewInMemory()}
	svc := New(recordStore, exhaustingDispatcher{}, WithDispatchTimeout(10*time.Millisecond))
	ctx := requestcontext.WithCallerID(context.Background(), "staff-1")

	app, err := svc.Submit(ctx, SubmitInput{
		ApplicantEmail: "amara@example.com",
		ApplicantName:  "Amara Osei",
		CourseName:     "Software Engineering",
		CourseFee:      250000,
	})
	require.NoError(t, err)

	result, err := svc.Apply(ctx, app.ID, models.TransitionApprove, id.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, notification.StatusSent, result.NotificationStatus)

	got, err := svc.Get(ctx, app.ID)
	require.NoError(t, err)
	assert.Equal(t, []notification.Kind{notification.KindPaymentRequest}, got.NotificationsSent)
}

func TestReadsRequireAuthentication(t *testing.T) {
	f := newFixture(t)
	app := f.submit(t)

	anon := context.Background()
	_, err := f.svc.Get(anon, app.ID)
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = f.svc.List(anon, store.Filter{})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func TestRequestScopedClock(t *testing.T) {
	f := newFixture(t)
	app := f.submit(t)

	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(f.ctx, fixed)

	result, err := f.svc.Apply(ctx, app.ID, models.TransitionApprove, id.RoleAdmin)
	require.NoError(t, err)
	require.NotNil(t, result.Record.ReviewedAt)
	assert.Equal(t, fixed, *result.Record.ReviewedAt)
	require.NotNil(t, result.Record.PaymentDeadline)
	assert.Equal(t, fixed.Add(7*24*time.Hour), *result.Record.PaymentDeadline)
}

func TestAuditTrail(t *testing.T) {
	f := newFixture(t)
	app := f.submit(t)

	_, err := f.svc.Apply(f.ctx, app.ID, models.TransitionApprove, id.RoleAdmin)
	require.NoError(t, err)

	var actions []audit.Action
	for _, event := range f.sink.Events() {
		actions = append(actions, event.Action)
		assert.Equal(t, "staff-1", event.ActorID)
	}
	assert.Equal(t, []audit.Action{audit.ActionSubmitted, audit.ActionApproved, audit.ActionNotificationSent}, actions)
}
