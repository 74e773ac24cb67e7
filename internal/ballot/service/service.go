// Package service is the vote ledger: it checks a voter's single-use right to
// vote and records the vote together with the candidate's tally increment.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"votebooth/internal/audit"
	"votebooth/internal/ballot/models"
	"votebooth/internal/platform/metrics"
	votermodels "votebooth/internal/voter/models"
	id "votebooth/pkg/domain"
	dErrors "votebooth/pkg/domain-errors"
	"votebooth/pkg/platform/sentinel"
	"votebooth/pkg/requestcontext"
)

const tracerName = "votebooth/ballot"

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	candidates CandidateStore
	votes      VoteStore
	voters     VoterStore
	tx         LedgerTx
	audit      AuditPublisher
	metrics    *metrics.Metrics
	tracer     trace.Tracer
	logger     *slog.Logger
	now        func() time.Time
}

type Option func(*Service)

func WithAuditPublisher(a AuditPublisher) Option {
	return func(s *Service) { s.audit = a }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(candidates CandidateStore, votes VoteStore, voters VoterStore, tx LedgerTx, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		candidates: candidates,
		votes:      votes,
		voters:     voters,
		tx:         tx,
		logger:     logger,
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// CastVote records one vote for the voter named by the credential subject.
// Validation never writes. The has-voted flip, the tally increment and the
// vote record commit together; a concurrent second cast for the same voter
// fails the conditional flip and rolls back.
func (s *Service) CastVote(ctx context.Context, voterID id.VoterID, rawCandidateID string) (receipt *models.Receipt, err error) {
	ctx, span := s.tracer.Start(ctx, "ballot.cast_vote", trace.WithAttributes(
		attribute.String("voter.id", voterID.String()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	candidateID, err := id.ParseCandidateID(rawCandidateID)
	if err != nil {
		s.rejected(ctx, voterID, "invalid_candidate")
		return nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid candidate")
	}
	candidate, err := s.candidates.FindByID(ctx, candidateID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.rejected(ctx, voterID, "invalid_candidate")
			return nil, dErrors.New(dErrors.CodeNotFound, "candidate not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load candidate")
	}

	voter, err := s.voters.FindByID(ctx, voterID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			s.rejected(ctx, voterID, "unknown_voter")
			return nil, dErrors.New(dErrors.CodeUnauthorized, "voter session is invalid")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load voter")
	}
	if err := checkMayVote(voter); err != nil {
		s.rejected(ctx, voterID, rejectionReason(err))
		return nil, err
	}

	vote := &models.Vote{
		ID:          id.NewVoteID(),
		VoterID:     voterID,
		CandidateID: candidateID,
		CreatedAt:   s.now(),
	}
	var tally int64
	err = s.tx.RunInTx(ctx, voterID, func(txCtx context.Context) error {
		if err := s.voters.MarkVoted(txCtx, voterID, vote.CreatedAt); err != nil {
			return err
		}
		n, err := s.candidates.IncrementTally(txCtx, candidateID)
		if err != nil {
			return err
		}
		tally = n
		return s.votes.Insert(txCtx, vote)
	})
	if err != nil {
		return nil, s.translateTxError(ctx, voterID, err)
	}

	span.SetAttributes(attribute.String("candidate.id", candidateID.String()), attribute.Int64("candidate.tally", tally))
	s.metrics.IncVoteCast()
	s.logger.InfoContext(ctx, "vote cast",
		"voter_id", voterID.String(),
		"candidate_id", candidateID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{
		Action:  audit.ActionVoteCast,
		VoterID: voterID.String(),
		Attrs:   map[string]string{"vote_id": vote.ID.String()},
	})

	return &models.Receipt{
		VoteID:        vote.ID,
		CandidateID:   candidate.ID,
		CandidateName: candidate.Name,
		Party:         candidate.Party,
		VoteCount:     tally,
		VotedAt:       vote.CreatedAt,
	}, nil
}

// checkMayVote applies the cast policy: already voted is a permanent
// conflict, and only approved voters may vote. A voter flagged after reaching
// vote-eligible is refused.
func checkMayVote(voter *votermodels.Voter) error {
	from := models.StageFaceVerified
	if voter.HasVoted {
		from = models.StageVoted
	}
	if _, err := from.Advance(models.StageVoted); err != nil {
		return err
	}
	switch voter.Status {
	case votermodels.StatusVerified:
		return nil
	case votermodels.StatusFlagged:
		return dErrors.New(dErrors.CodeForbidden, "voter is flagged for review")
	default:
		return dErrors.New(dErrors.CodeForbidden, "voter registration is not approved")
	}
}

func rejectionReason(err error) string {
	if dErrors.HasCode(err, dErrors.CodeConflict) {
		return "already_voted"
	}
	return "not_eligible"
}

func (s *Service) translateTxError(ctx context.Context, voterID id.VoterID, err error) error {
	switch {
	case errors.Is(err, sentinel.ErrAlreadyUsed), errors.Is(err, sentinel.ErrConflict):
		s.rejected(ctx, voterID, "already_voted")
		return dErrors.New(dErrors.CodeConflict, "this voter has already cast their vote")
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "candidate or voter no longer exists")
	}
	var domainErr *dErrors.Error
	if errors.As(err, &domainErr) {
		return err
	}
	s.logger.ErrorContext(ctx, "vote transaction failed",
		"voter_id", voterID.String(),
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record vote")
}

func (s *Service) rejected(ctx context.Context, voterID id.VoterID, reason string) {
	s.metrics.IncVoteRejected(reason)
	s.logger.WarnContext(ctx, "vote rejected",
		"voter_id", voterID.String(),
		"reason", reason,
		"request_id", requestcontext.RequestID(ctx),
	)
	s.emit(ctx, audit.Event{Action: audit.ActionVoteRejected, VoterID: voterID.String(), Reason: reason})
}

// ListCandidates returns every candidate ordered by name.
func (s *Service) ListCandidates(ctx context.Context) ([]*models.Candidate, error) {
	candidates, err := s.candidates.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list candidates")
	}
	return candidates, nil
}

// CreateCandidate adds a contestant with a zero tally.
func (s *Service) CreateCandidate(ctx context.Context, req *models.CreateCandidateRequest) (*models.Candidate, error) {
	c := &models.Candidate{
		ID:        id.NewCandidateID(),
		Name:      req.Name,
		Party:     req.Party,
		Position:  req.Position,
		SymbolURL: req.SymbolURL,
		CreatedAt: s.now(),
	}
	if err := s.candidates.Create(ctx, c); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "candidate already exists for this position")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create candidate")
	}
	s.emit(ctx, audit.Event{
		Action: audit.ActionCandidateCreated,
		Actor:  requestcontext.StaffRole(ctx),
		Attrs:  map[string]string{"candidate_id": c.ID.String(), "name": c.Name},
	})
	return c, nil
}

// Results ranks candidates by votes, highest first, with their share of the
// total.
func (s *Service) Results(ctx context.Context) ([]models.Result, error) {
	candidates, err := s.candidates.List(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load results")
	}
	var total int64
	for _, c := range candidates {
		total += c.VoteCount
	}
	results := make([]models.Result, 0, len(candidates))
	for _, c := range candidates {
		r := models.Result{
			CandidateID: c.ID,
			Name:        c.Name,
			Party:       c.Party,
			Position:    c.Position,
			Votes:       c.VoteCount,
		}
		if total > 0 {
			r.Share = float64(c.VoteCount) * 100 / float64(total)
		}
		results = append(results, r)
	}
	sort.SliceStable(results, func(i, j int) bool { return results[i].Votes > results[j].Votes })
	return results, nil
}

// VoteLogs returns the most recent votes, newest first.
func (s *Service) VoteLogs(ctx context.Context, limit int) ([]*models.VoteLog, error) {
	logs, err := s.votes.Logs(ctx, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load vote logs")
	}
	return logs, nil
}

// CountVotes is the number of votes recorded.
func (s *Service) CountVotes(ctx context.Context) (int, error) {
	n, err := s.votes.Count(ctx)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count votes")
	}
	return n, nil
}

func (s *Service) emit(ctx context.Context, event audit.Event) {
	if s.audit == nil {
		return
	}
	if err := s.audit.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "audit emit failed", "error", err, "action", string(event.Action))
	}
}
