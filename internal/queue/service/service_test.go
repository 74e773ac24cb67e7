package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"votebooth/internal/queue/models"
	"votebooth/internal/queue/store"
	votermodels "votebooth/internal/voter/models"
	voterservice "votebooth/internal/voter/service"
	voterstore "votebooth/internal/voter/store"
	id "votebooth/pkg/domain"
	dErrors "votebooth/pkg/domain-errors"
	"votebooth/pkg/testutil"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []models.Event
}

func (r *recordingPublisher) Publish(_ context.Context, event models.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingPublisher) types() []models.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type QueueServiceSuite struct {
	suite.Suite
	ctx       context.Context
	now       time.Time
	store     *store.InMemory
	voters    *voterstore.InMemory
	publisher *recordingPublisher
	service   *Service
}

func TestQueueServiceSuite(t *testing.T) {
	suite.Run(t, new(QueueServiceSuite))
}

func (s *QueueServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.now = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.store = store.NewInMemory()
	s.voters = voterstore.NewInMemory()
	s.publisher = &recordingPublisher{}
	s.service = New(s.store, voterservice.New(s.voters, logger), logger,
		WithPublisher(s.publisher),
		WithClock(func() time.Time { return s.now }),
	)
}

func (s *QueueServiceSuite) seedVoter(status votermodels.Status, phone string) *votermodels.Voter {
	v := &votermodels.Voter{
		ID:          id.NewVoterID(),
		FullName:    "Voter " + phone,
		DateOfBirth: "1980-01-01",
		Address:     "1 Main Road",
		Phone:       phone,
		Identifiers: map[votermodels.IdentifierType]string{votermodels.IdentifierRegisterNumber: "REG-" + phone},
		Status:      status,
		CreatedAt:   s.now,
		UpdatedAt:   s.now,
	}
	s.Require().NoError(s.voters.Create(s.ctx, v))
	return v
}

func (s *QueueServiceSuite) TestConcurrentNextTicketIsContiguous() {
	for i := 0; i < 3; i++ {
		_, err := s.service.NextTicket(s.ctx, "warmup", nil)
		s.Require().NoError(err)
	}
	const k, n = 3, 50

	tickets, errs := testutil.RunConcurrentCollect(n, func(int) (*models.Ticket, error) {
		return s.service.NextTicket(s.ctx, "walk-in", nil)
	})

	s.Require().Empty(errs)
	s.Require().Len(tickets, n)
	numbers := make([]int, 0, n)
	for _, t := range tickets {
		numbers = append(numbers, int(t.Number))
	}
	sort.Ints(numbers)
	for i, got := range numbers {
		s.Equal(k+i+1, got)
	}
}

func (s *QueueServiceSuite) TestNumbersAreNotReusedAfterClear() {
	for i := 0; i < 4; i++ {
		_, err := s.service.NextTicket(s.ctx, "walk-in", nil)
		s.Require().NoError(err)
	}

	removed, err := s.service.Clear(s.ctx)
	s.Require().NoError(err)
	s.Equal(4, removed)

	next, err := s.service.NextTicket(s.ctx, "after clear", nil)
	s.Require().NoError(err)
	s.Equal(int64(5), next.Number)
	s.Equal([]models.EventType{
		models.EventTicketCreated, models.EventTicketCreated, models.EventTicketCreated, models.EventTicketCreated,
		models.EventQueueCleared, models.EventTicketCreated,
	}, s.publisher.types())
}

func (s *QueueServiceSuite) TestCompleteAndList() {
	first, _ := s.service.NextTicket(s.ctx, "first", nil)
	second, _ := s.service.NextTicket(s.ctx, "second", nil)
	third, _ := s.service.NextTicket(s.ctx, "third", nil)

	s.now = s.now.Add(2 * time.Minute)
	_, err := s.service.Complete(s.ctx, first.ID)
	s.Require().NoError(err)
	s.now = s.now.Add(2 * time.Minute)
	_, err = s.service.Complete(s.ctx, third.ID)
	s.Require().NoError(err)

	waiting, err := s.service.List(s.ctx, models.StatusWaiting)
	s.Require().NoError(err)
	s.Require().Len(waiting, 1)
	s.Equal(second.ID, waiting[0].ID)

	completed, err := s.service.List(s.ctx, models.StatusCompleted)
	s.Require().NoError(err)
	s.Require().Len(completed, 2)
	s.Equal(third.ID, completed[0].ID, "most recently completed first")

	_, err = s.service.Complete(s.ctx, first.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	_, err = s.service.Complete(s.ctx, id.NewTicketID())
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *QueueServiceSuite) TestEstimateWait() {
	s.Run("empty queue", func() {
		est, err := s.service.EstimateWait(s.ctx)
		s.Require().NoError(err)
		s.Zero(est.EstimatedWaitMinutes)
	})

	s.Run("falls back to five minutes with too few samples", func() {
		t, _ := s.service.NextTicket(s.ctx, "a", nil)
		_, _ = s.service.NextTicket(s.ctx, "b", nil)
		s.now = s.now.Add(time.Minute)
		_, _ = s.service.Complete(s.ctx, t.ID)

		est, err := s.service.EstimateWait(s.ctx)
		s.Require().NoError(err)
		s.Equal(1, est.WaitingCount)
		s.InDelta(5.0, est.EstimatedWaitMinutes, 0.001)
	})

	s.Run("uses the recent average once there are enough samples", func() {
		for i := 0; i < 2; i++ {
			t, _ := s.service.NextTicket(s.ctx, "c", nil)
			s.now = s.now.Add(time.Minute)
			_, _ = s.service.Complete(s.ctx, t.ID)
		}
		_, _ = s.service.NextTicket(s.ctx, "d", nil)

		est, err := s.service.EstimateWait(s.ctx)
		s.Require().NoError(err)
		s.Equal(2, est.WaitingCount)
		s.InDelta(1.0, est.AverageMinutes, 0.001)
		s.InDelta(2.0, est.EstimatedWaitMinutes, 0.001)
	})
}

func (s *QueueServiceSuite) TestRequestSlot() {
	voter := s.seedVoter(votermodels.StatusVerified, "+919800000001")

	first, err := s.service.RequestSlot(s.ctx, voter.ID)
	s.Require().NoError(err)
	s.False(first.AlreadyQueued)
	s.Equal(voter.FullName, first.Ticket.HolderName)

	again, err := s.service.RequestSlot(s.ctx, voter.ID)
	s.Require().NoError(err)
	s.True(again.AlreadyQueued)
	s.Equal(first.Ticket.Number, again.Ticket.Number)
}

func (s *QueueServiceSuite) TestConcurrentSlotRequestsYieldOneTicket() {
	voter := s.seedVoter(votermodels.StatusVerified, "+919800000002")

	results, errs := testutil.RunConcurrentCollect(10, func(int) (*models.SlotResult, error) {
		return s.service.RequestSlot(s.ctx, voter.ID)
	})
	s.Require().Empty(errs)
	s.Require().Len(results, 10)
	for _, r := range results {
		s.Equal(int64(1), r.Ticket.Number)
	}
	waiting, _ := s.store.CountWaiting(s.ctx)
	s.Equal(1, waiting)
}

func (s *QueueServiceSuite) TestRequestSlotRefusals() {
	s.Run("pending voter", func() {
		v := s.seedVoter(votermodels.StatusPending, "+919800000003")
		_, err := s.service.RequestSlot(s.ctx, v.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("already voted", func() {
		v := s.seedVoter(votermodels.StatusVerified, "+919800000004")
		s.Require().NoError(s.voters.MarkVoted(s.ctx, v.ID, s.now))
		_, err := s.service.RequestSlot(s.ctx, v.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("unknown credential subject", func() {
		_, err := s.service.RequestSlot(s.ctx, id.NewVoterID())
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}
