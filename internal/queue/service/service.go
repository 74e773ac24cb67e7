// Package service allocates queue tickets and announces every queue change.
package service

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"votebooth/internal/audit"
	"votebooth/internal/platform/metrics"
	"votebooth/internal/queue/models"
	votermodels "votebooth/internal/voter/models"
	id "votebooth/pkg/domain"
	dErrors "votebooth/pkg/domain-errors"
	"votebooth/pkg/platform/sentinel"
	"votebooth/pkg/requestcontext"
)

const (
	// waitSampleSize is how many recently completed tickets feed the average.
	waitSampleSize = 20
	// minWaitSamples is the fewest samples trusted before falling back.
	minWaitSamples = 3
	// defaultProcessingMinutes is assumed per voter without enough samples.
	defaultProcessingMinutes = 5.0
)

// Publisher announces committed queue changes. It must not block the caller
// and has no way to fail the mutation.
type Publisher interface {
	Publish(ctx context.Context, event models.Event)
}

// VoterLookup loads the voter named by a vote-eligible credential.
type VoterLookup interface {
	GetByID(ctx context.Context, voterID id.VoterID) (*votermodels.Voter, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store     Store
	voters    VoterLookup
	publisher Publisher
	audit     AuditPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithPublisher(p Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func WithAuditPublisher(a AuditPublisher) Option {
	return func(s *Service) { s.audit = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
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

// NextTicket issues the next ticket number to holderName.
func (s *Service) NextTicket(ctx context.Context, holderName string, voterID *id.VoterID) (*models.Ticket, error) {
	if holderName == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "holder name is required")
	}
	ticket, err := s.store.Next(ctx, holderName, voterID, s.now())
	if err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "voter already holds a waiting ticket")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue ticket")
	}

	s.metrics.IncTicketIssued()
	s.logger.InfoContext(ctx, "ticket issued",
		"ticket_number", ticket.Number,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.ActionTicketIssued, ticket)
	s.publish(ctx, models.Event{Type: models.EventTicketCreated, Ticket: ticket, At: ticket.CreatedAt})
	return ticket, nil
}

// AddTicket is the staff path for adding someone to the queue by hand.
func (s *Service) AddTicket(ctx context.Context, req *models.AddTicketRequest) (*models.Ticket, error) {
	return s.NextTicket(ctx, req.HolderName, req.ParsedVoterID())
}

// RequestSlot places the credential's voter in the queue. A voter already
// waiting gets the existing ticket back instead of a second one.
func (s *Service) RequestSlot(ctx context.Context, voterID id.VoterID) (*models.SlotResult, error) {
	voter, err := s.voters.GetByID(ctx, voterID)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "voter session is invalid")
		}
		return nil, err
	}
	if voter.HasVoted {
		return nil, dErrors.New(dErrors.CodeConflict, "this voter has already cast their vote")
	}
	if voter.Status != votermodels.StatusVerified {
		return nil, dErrors.New(dErrors.CodeForbidden, "voter registration is not approved")
	}

	if existing, err := s.findWaiting(ctx, voterID); err != nil {
		return nil, err
	} else if existing != nil {
		return s.slotResult(ctx, existing, true, "you are already in the queue")
	}

	ticket, err := s.NextTicket(ctx, voter.FullName, &voterID)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeConflict) {
			return nil, err
		}
		// Lost a race with a concurrent request from the same voter.
		existing, findErr := s.findWaiting(ctx, voterID)
		if findErr != nil || existing == nil {
			return nil, err
		}
		return s.slotResult(ctx, existing, true, "you are already in the queue")
	}
	return s.slotResult(ctx, ticket, false, "slot requested, you are in the queue")
}

func (s *Service) findWaiting(ctx context.Context, voterID id.VoterID) (*models.Ticket, error) {
	ticket, err := s.store.FindWaitingByVoter(ctx, voterID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, nil
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to look up queue ticket")
	}
	return ticket, nil
}

func (s *Service) slotResult(ctx context.Context, ticket *models.Ticket, already bool, msg string) (*models.SlotResult, error) {
	wait, err := s.EstimateWait(ctx)
	if err != nil {
		return nil, err
	}
	return &models.SlotResult{Message: msg, Ticket: ticket, AlreadyQueued: already, Wait: wait}, nil
}

// Complete marks a waiting ticket as served.
func (s *Service) Complete(ctx context.Context, ticketID id.TicketID) (*models.Ticket, error) {
	ticket, err := s.store.Complete(ctx, ticketID, s.now())
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "ticket not found")
		case errors.Is(err, sentinel.ErrInvalidState):
			return nil, dErrors.New(dErrors.CodeConflict, "ticket is already completed")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to complete ticket")
	}

	s.logger.InfoContext(ctx, "ticket completed",
		"ticket_number", ticket.Number,
		"staff_role", requestcontext.StaffRole(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.ActionTicketCompleted, ticket)
	s.publish(ctx, models.Event{Type: models.EventTicketCompleted, Ticket: ticket, At: *ticket.CompletedAt})
	return ticket, nil
}

// List returns waiting tickets by number, completed tickets by completion
// time newest first, or both groups in that order when status is empty.
func (s *Service) List(ctx context.Context, status models.Status) ([]*models.Ticket, error) {
	tickets, err := s.store.List(ctx, status)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list tickets")
	}
	return tickets, nil
}

// Clear removes every waiting ticket. Issued numbers stay retired.
func (s *Service) Clear(ctx context.Context) (int, error) {
	removed, err := s.store.ClearWaiting(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear queue")
	}

	now := s.now()
	s.logger.WarnContext(ctx, "queue cleared",
		"removed", removed,
		"staff_role", requestcontext.StaffRole(ctx),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emitEvent(ctx, audit.Event{
		Action: audit.ActionQueueCleared,
		Actor:  requestcontext.StaffRole(ctx),
		Attrs:  map[string]string{"removed": strconv.Itoa(removed)},
	})
	s.publish(ctx, models.Event{Type: models.EventQueueCleared, Cleared: removed, At: now})
	return removed, nil
}

// EstimateWait multiplies the waiting count by the average processing time
// of recently completed tickets.
func (s *Service) EstimateWait(ctx context.Context) (models.WaitEstimate, error) {
	waiting, err := s.store.CountWaiting(ctx)
	if err != nil {
		return models.WaitEstimate{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count waiting tickets")
	}
	if waiting == 0 {
		return models.WaitEstimate{Basis: "queue empty"}, nil
	}

	recent, err := s.store.RecentCompleted(ctx, waitSampleSize)
	if err != nil {
		return models.WaitEstimate{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load completed tickets")
	}
	var total time.Duration
	samples := 0
	for _, t := range recent {
		if d, ok := t.ProcessingTime(); ok {
			total += d
			samples++
		}
	}

	avg, basis := defaultProcessingMinutes, "default average"
	if samples >= minWaitSamples {
		avg = total.Minutes() / float64(samples)
		basis = "recent average of " + strconv.Itoa(samples) + " tickets"
	}
	return models.WaitEstimate{
		WaitingCount:         waiting,
		AverageMinutes:       avg,
		EstimatedWaitMinutes: avg * float64(waiting),
		Basis:                basis,
	}, nil
}

func (s *Service) publish(ctx context.Context, event models.Event) {
	if s.publisher == nil {
		return
	}
	s.publisher.Publish(ctx, event)
}

func (s *Service) emit(ctx context.Context, action audit.Action, ticket *models.Ticket) {
	event := audit.Event{
		Action: action,
		Actor:  requestcontext.StaffRole(ctx),
		Attrs:  map[string]string{"ticket_number": strconv.FormatInt(ticket.Number, 10)},
	}
	if ticket.VoterID != nil {
		event.VoterID = ticket.VoterID.String()
	}
	s.emitEvent(ctx, event)
}

func (s *Service) emitEvent(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "error", err, "action", string(event.Action))
	}
}
