package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"enrolldesk/internal/admission/models"
	"enrolldesk/internal/notification"
	id "enrolldesk/pkg/domain"
	"enrolldesk/pkg/platform/sentinel"
)

// Postgres persists applications in PostgreSQL. Execute takes a row lock
// (SELECT ... FOR UPDATE) so validation always runs against the committed
// current state; that lock is the conditional-write primitive the lifecycle
// service relies on.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Schema is idempotent; the server applies it at boot and integration tests
// apply it against throwaway containers.
const Schema = `
CREATE TABLE IF NOT EXISTS applications (
	id                 UUID PRIMARY KEY,
	applicant_email    TEXT NOT NULL,
	applicant_name     TEXT NOT NULL,
	course_name        TEXT NOT NULL,
	course_fee         BIGINT NOT NULL,
	review_status      TEXT NOT NULL,
	payment_status     TEXT NOT NULL,
	submitted_at       TIMESTAMPTZ NOT NULL,
	reviewed_at        TIMESTAMPTZ,
	paid_at            TIMESTAMPTZ,
	payment_deadline   TIMESTAMPTZ,
	notifications_sent JSONB NOT NULL DEFAULT '[]'
);
CREATE INDEX IF NOT EXISTS applications_review_status_idx ON applications (review_status);
`

const selectColumns = `id, applicant_email, applicant_name, course_name, course_fee,
	review_status, payment_status, submitted_at, reviewed_at, paid_at,
	payment_deadline, notifications_sent`

func (s *Postgres) Create(ctx context.Context, app *models.Application) error {
	sent, err := json.Marshal(app.NotificationsSent)
	if err != nil {
		return fmt.Errorf("marshal notifications: %w", err)
	}
	if app.NotificationsSent == nil {
		sent = []byte("[]")
	}

	query := `
		INSERT INTO applications (` + selectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(app.ID),
		app.ApplicantEmail,
		app.ApplicantName,
		app.CourseName,
		app.CourseFee,
		string(app.ReviewStatus),
		string(app.PaymentStatus),
		app.SubmittedAt,
		app.ReviewedAt,
		app.PaidAt,
		app.PaymentDeadline,
		sent,
	)
	if err != nil {
		return fmt.Errorf("insert application: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, applicationID id.ApplicationID) (*models.Application, error) {
	query := `SELECT ` + selectColumns + ` FROM applications WHERE id = $1`
	row := s.db.QueryRowContext(ctx, query, uuid.UUID(applicationID))
	return scanApplication(row)
}

func (s *Postgres) List(ctx context.Context, filter Filter) ([]*models.Application, error) {
	query := `SELECT ` + selectColumns + ` FROM applications WHERE 1=1`
	args := []any{}
	if filter.ReviewStatus != "" {
		args = append(args, string(filter.ReviewStatus))
		query += fmt.Sprintf(" AND review_status = $%d", len(args))
	}
	if filter.PaymentStatus != "" {
		args = append(args, string(filter.PaymentStatus))
		query += fmt.Sprintf(" AND payment_status = $%d", len(args))
	}
	query += " ORDER BY submitted_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", err)
	}
	defer rows.Close()

	var out []*models.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, app)
	}
	return out, rows.Err()
}

func (s *Postgres) CountByStatus(ctx context.Context) (StatusCounts, error) {
	query := `
		SELECT
			COUNT(*) FILTER (WHERE review_status = 'pending'),
			COUNT(*) FILTER (WHERE review_status = 'approved'),
			COUNT(*) FILTER (WHERE review_status = 'rejected'),
			COUNT(*) FILTER (WHERE payment_status = 'paid')
		FROM applications
	`
	var counts StatusCounts
	err := s.db.QueryRowContext(ctx, query).Scan(&counts.Pending, &counts.Approved, &counts.Rejected, &counts.Paid)
	if err != nil {
		return StatusCounts{}, fmt.Errorf("count applications: %w", err)
	}
	return counts, nil
}

func (s *Postgres) Execute(ctx context.Context, applicationID id.ApplicationID,
	validate func(*models.Application) error,
	mutate func(*models.Application)) (*models.Application, error) {

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `SELECT ` + selectColumns + ` FROM applications WHERE id = $1 FOR UPDATE`
	app, err := scanApplication(tx.QueryRowContext(ctx, query, uuid.UUID(applicationID)))
	if err != nil {
		return nil, err
	}

	if validate != nil {
		if err := validate(app); err != nil {
			// Abort without writing; the row lock releases on rollback.
			return nil, err
		}
	}
	if mutate != nil {
		mutate(app)
	}

	sent, err := json.Marshal(app.NotificationsSent)
	if err != nil {
		return nil, fmt.Errorf("marshal notifications: %w", err)
	}
	if app.NotificationsSent == nil {
		sent = []byte("[]")
	}

	update := `
		UPDATE applications
		SET review_status = $2, payment_status = $3, reviewed_at = $4,
			paid_at = $5, payment_deadline = $6, notifications_sent = $7
		WHERE id = $1
	`
	if _, err := tx.ExecContext(ctx, update,
		uuid.UUID(app.ID),
		string(app.ReviewStatus),
		string(app.PaymentStatus),
		app.ReviewedAt,
		app.PaidAt,
		app.PaymentDeadline,
		sent,
	); err != nil {
		return nil, fmt.Errorf("update application: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return app, nil
}

func (s *Postgres) RecordNotification(ctx context.Context, applicationID id.ApplicationID, kind notification.Kind) (*models.Application, error) {
	return s.Execute(ctx, applicationID, nil, func(app *models.Application) {
		app.RecordNotification(kind)
	})
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanApplication(row rowScanner) (*models.Application, error) {
	var (
		app       models.Application
		rawID     uuid.UUID
		review    string
		payment   string
		reviewed  sql.NullTime
		paid      sql.NullTime
		deadline  sql.NullTime
		sentBytes []byte
	)
	err := row.Scan(
		&rawID,
		&app.ApplicantEmail,
		&app.ApplicantName,
		&app.CourseName,
		&app.CourseFee,
		&review,
		&payment,
		&app.SubmittedAt,
		&reviewed,
		&paid,
		&deadline,
		&sentBytes,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan application: %w", err)
	}

	app.ID = id.ApplicationID(rawID)
	app.ReviewStatus = models.ReviewStatus(review)
	app.PaymentStatus = models.PaymentStatus(payment)
	app.ReviewedAt = nullTimePtr(reviewed)
	app.PaidAt = nullTimePtr(paid)
	app.PaymentDeadline = nullTimePtr(deadline)
	if len(sentBytes) > 0 {
		if err := json.Unmarshal(sentBytes, &app.NotificationsSent); err != nil {
			return nil, fmt.Errorf("unmarshal notifications: %w", err)
		}
	}
	return &app, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}
