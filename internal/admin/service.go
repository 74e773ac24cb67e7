// Package admin aggregates read-only views across the pipeline for the
// administrator dashboard.
package admin

import (
	"context"
	"log/slog"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"votebooth/internal/audit"
	dErrors "votebooth/pkg/domain-errors"
)

const (
	defaultAuditLimit = 50
	maxAuditLimit     = 500
)

// VoterCounts reports voter roll totals.
type VoterCounts interface {
	VoterTally(ctx context.Context) (VoterTally, error)
}

// VoteCounter reports the number of recorded votes.
type VoteCounter interface {
	CountVotes(ctx context.Context) (int, error)
}

// WaitingTickets reports the length of the waiting queue.
type WaitingTickets interface {
	WaitingTickets(ctx context.Context) (int, error)
}

// AuditTrail returns recent audit events.
type AuditTrail interface {
	Recent(ctx context.Context, limit int) ([]audit.Event, error)
}

// Service computes dashboard statistics and exposes the audit trail.
type Service struct {
	voters  VoterCounts
	votes   VoteCounter
	tickets WaitingTickets
	trail   AuditTrail
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(voters VoterCounts, votes VoteCounter, tickets WaitingTickets, trail AuditTrail, logger *slog.Logger) *Service {
	return &Service{
		voters:  voters,
		votes:   votes,
		tickets: tickets,
		trail:   trail,
		logger:  logger,
		now:     time.Now,
	}
}

// Stats gathers the counters concurrently. Any failing source fails the whole
// response; partial dashboards are not served.
func (s *Service) Stats(ctx context.Context) (*StatsResponse, error) {
	var (
		tally   VoterTally
		votes   int
		waiting int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		tally, err = s.voters.VoterTally(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		votes, err = s.votes.CountVotes(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		waiting, err = s.tickets.WaitingTickets(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "failed to gather admin stats", "error", err)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to gather stats")
	}

	resp := &StatsResponse{
		Voters:         tally,
		Votes:          votes,
		WaitingTickets: waiting,
		GeneratedAt:    s.now(),
	}
	if tally.Verified > 0 {
		resp.Turnout = math.Round(float64(votes)/float64(tally.Verified)*10000) / 100
	}
	return resp, nil
}

// AuditTrail returns up to limit recent events. Zero selects the default.
func (s *Service) AuditTrail(ctx context.Context, limit int) (*AuditTrailResponse, error) {
	if limit < 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "limit must not be negative")
	}
	if limit == 0 {
		limit = defaultAuditLimit
	}
	limit = min(limit, maxAuditLimit)

	events, err := s.trail.Recent(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load audit trail")
	}
	if events == nil {
		events = []audit.Event{}
	}
	return &AuditTrailResponse{Events: events, Total: len(events)}, nil
}
