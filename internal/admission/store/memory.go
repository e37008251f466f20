package store

import (
	"context"
	"sort"
	"sync"

	"enrolldesk/internal/admission/models"
	"enrolldesk/internal/notification"
	id "enrolldesk/pkg/domain"
	"enrolldesk/pkg/platform/sentinel"
)

// InMemory keeps applications in a map guarded by a RWMutex. It favors
// clarity over performance and backs unit tests and local development.
type InMemory struct {
	mu   sync.RWMutex
	apps map[id.ApplicationID]*models.Application
}

func NewInMemory() *InMemory {
	return &InMemory{apps: make(map[id.ApplicationID]*models.Application)}
}

func (s *InMemory) Create(_ context.Context, app *models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.apps[app.ID]; exists {
		return sentinel.ErrConflict
	}
	s.apps[app.ID] = app.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, applicationID id.ApplicationID) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[applicationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return app.Clone(), nil
}

func (s *InMemory) List(_ context.Context, filter Filter) ([]*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Application, 0, len(s.apps))
	for _, app := range s.apps {
		if filter.ReviewStatus != "" && app.ReviewStatus != filter.ReviewStatus {
			continue
		}
		if filter.PaymentStatus != "" && app.PaymentStatus != filter.PaymentStatus {
			continue
		}
		out = append(out, app.Clone())
	}
	// Newest first, matching the Postgres ordering.
	sort.Slice(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *InMemory) CountByStatus(_ context.Context) (StatusCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var counts StatusCounts
	for _, app := range s.apps {
		switch app.ReviewStatus {
		case models.ReviewPending:
			counts.Pending++
		case models.ReviewApproved:
			counts.Approved++
		case models.ReviewRejected:
			counts.Rejected++
		}
		if app.PaymentStatus == models.PaymentPaid {
			counts.Paid++
		}
	}
	return counts, nil
}

// Execute runs validate and mutate while holding the write lock, so the
// validation always sees the row's current state and no concurrent call can
// interleave between check and write.
func (s *InMemory) Execute(_ context.Context, applicationID id.ApplicationID,
	validate func(*models.Application) error,
	mutate func(*models.Application)) (*models.Application, error) {

	s.mu.Lock()
	defer s.mu.Unlock()

	app, ok := s.apps[applicationID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if validate != nil {
		if err := validate(app); err != nil {
			return nil, err
		}
	}
	if mutate != nil {
		mutate(app)
	}
	return app.Clone(), nil
}

func (s *InMemory) RecordNotification(ctx context.Context, applicationID id.ApplicationID, kind notification.Kind) (*models.Application, error) {
	return s.Execute(ctx, applicationID, nil, func(app *models.Application) {
		app.RecordNotification(kind)
	})
}
