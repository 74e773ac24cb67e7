// Package service records voter feedback and lists it for administrators.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"votebooth/internal/audit"
	"votebooth/internal/feedback/models"
	votermodels "votebooth/internal/voter/models"
	id "votebooth/pkg/domain"
	dErrors "votebooth/pkg/domain-errors"
	"votebooth/pkg/requestcontext"
)

const (
	defaultListLimit = 100
	maxListLimit     = 1000
)

// VoterLookup confirms that feedback names a voter on the roll.
type VoterLookup interface {
	GetByID(ctx context.Context, voterID id.VoterID) (*votermodels.Voter, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store  Store
	voters VoterLookup
	logger *slog.Logger
	audit  AuditPublisher
	now    func() time.Time
}

type Option func(*Service)

func WithAuditPublisher(a AuditPublisher) Option {
	return func(s *Service) { s.audit = a }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(store Store, voters VoterLookup, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
		voters: voters,
		logger: logger,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Submit stores a message from a voter on the roll. Unknown voters are
// not_found.
func (s *Service) Submit(ctx context.Context, req *models.SubmitRequest) (*models.Feedback, error) {
	voterID, err := id.ParseVoterID(req.VoterID)
	if err != nil {
		return nil, err
	}
	if _, err := s.voters.GetByID(ctx, voterID); err != nil {
		return nil, err
	}

	f := &models.Feedback{
		ID:        id.NewFeedbackID(),
		VoterID:   voterID,
		Message:   req.Message,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Create(ctx, f); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save feedback")
	}

	s.emit(ctx, audit.Event{Action: audit.ActionFeedbackReceived, VoterID: voterID.String()})
	return f, nil
}

// Recent lists feedback newest first. A non-positive limit means the default;
// larger limits are capped.
func (s *Service) Recent(ctx context.Context, limit int) ([]*models.Feedback, error) {
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}
	items, err := s.store.Recent(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list feedback")
	}
	return items, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	if err := s.audit.Emit(ctx, event); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.WarnContext(ctx, "audit emit failed", "error", err, "action", string(event.Action))
	}
}
