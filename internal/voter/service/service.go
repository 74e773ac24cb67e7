// Package service resolves voters by identifier and runs the administrative
// registration, approval and flagging actions on the voter roll.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"votebooth/internal/audit"
	"votebooth/internal/voter/models"
	id "votebooth/pkg/domain"
	dErrors "votebooth/pkg/domain-errors"
	"votebooth/pkg/platform/sentinel"
	"votebooth/pkg/requestcontext"
)

// AuditPublisher records administrative changes to the roll.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store  Store
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

func New(store Store, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:  store,
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

// ResolveByIdentifier looks up a voter by one of the accepted identifier types.
func (s *Service) ResolveByIdentifier(ctx context.Context, identifierType, value string) (*models.Voter, error) {
	t, err := models.ParseIdentifierType(identifierType)
	if err != nil {
		return nil, err
	}
	normalized, err := t.Normalize(value)
	if err != nil {
		return nil, err
	}

	voter, err := s.store.FindByIdentifier(ctx, t, normalized)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "voter not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve voter")
	}
	return voter, nil
}

// GetByID loads a voter by ID.
func (s *Service) GetByID(ctx context.Context, voterID id.VoterID) (*models.Voter, error) {
	voter, err := s.store.FindByID(ctx, voterID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "voter not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load voter")
	}
	return voter, nil
}

// Register creates a Pending voter from self-registration. A duplicate
// identifier or phone number is a conflict.
func (s *Service) Register(ctx context.Context, req *models.RegisterRequest) (*models.Voter, error) {
	voter, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, audit.ActionVoterRegistered, voter)
	return voter, nil
}

// CreateDirect is administrative direct entry. The voter still starts Pending
// and must be approved like any other registration.
func (s *Service) CreateDirect(ctx context.Context, req *models.RegisterRequest) (*models.Voter, error) {
	voter, err := s.create(ctx, req)
	if err != nil {
		return nil, err
	}
	s.emit(ctx, audit.ActionVoterCreated, voter)
	return voter, nil
}

func (s *Service) create(ctx context.Context, req *models.RegisterRequest) (*models.Voter, error) {
	if req == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "request is required")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	identifiers := make(map[models.IdentifierType]string)
	for t, value := range req.Identifiers() {
		normalized, err := t.Normalize(value)
		if err != nil {
			return nil, err
		}
		identifiers[t] = normalized
	}

	now := s.now()
	voter := &models.Voter{
		ID:             id.NewVoterID(),
		FullName:       req.FullName,
		DateOfBirth:    req.DateOfBirth,
		Address:        req.Address,
		Phone:          req.Phone,
		Identifiers:    identifiers,
		ReferencePhoto: req.PhotoBase64,
		Status:         models.StatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.store.Create(ctx, voter); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a voter with one of the provided identifiers already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register voter")
	}
	return voter, nil
}

// Approve marks a voter Verified.
func (s *Service) Approve(ctx context.Context, voterID id.VoterID) (*models.Voter, error) {
	voter, err := s.GetByID(ctx, voterID)
	if err != nil {
		return nil, err
	}
	voter.Approve(s.now())
	if err := s.store.UpdateStatus(ctx, voter); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to approve voter")
	}
	s.emit(ctx, audit.ActionVoterApproved, voter)
	return voter, nil
}

// Flag marks a voter Flagged with a reason. A flagged voter can no longer
// obtain new credentials or cast a vote.
func (s *Service) Flag(ctx context.Context, voterID id.VoterID, reason string) (*models.Voter, error) {
	voter, err := s.GetByID(ctx, voterID)
	if err != nil {
		return nil, err
	}
	voter.Flag(reason, s.now())
	if err := s.store.UpdateStatus(ctx, voter); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to flag voter")
	}
	s.emit(ctx, audit.ActionVoterFlagged, voter)
	return voter, nil
}

// List returns voters newest first.
func (s *Service) List(ctx context.Context, filter models.ListFilter) ([]*models.Voter, error) {
	for _, st := range filter.Statuses {
		if !st.IsValid() {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown voter status")
		}
	}
	voters, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list voters")
	}
	return voters, nil
}

// Counts summarizes the roll.
func (s *Service) Counts(ctx context.Context) (models.Counts, error) {
	counts, err := s.store.Counts(ctx)
	if err != nil {
		return models.Counts{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count voters")
	}
	return counts, nil
}

func (s *Service) emit(ctx context.Context, action audit.Action, voter *models.Voter) {
	s.logger.InfoContext(ctx, string(action),
		"voter_id", voter.ID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	if s.audit == nil {
		return
	}
	_ = s.audit.Emit(ctx, audit.Event{
		Action:  action,
		VoterID: voter.ID.String(),
		Actor:   requestcontext.StaffRole(ctx),
		Reason:  voter.FlagReason,
	})
}
