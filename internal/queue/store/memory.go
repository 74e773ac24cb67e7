// Package store provides in-memory and PostgreSQL queue ticket persistence.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"votebooth/internal/queue/models"
	id "votebooth/pkg/domain"
	"votebooth/pkg/platform/sentinel"
)

// InMemory serializes allocation behind one mutex. highWater is the largest
// number ever issued and survives ClearWaiting, so numbers are never reused.
type InMemory struct {
	mu        sync.Mutex
	tickets   map[id.TicketID]*models.Ticket
	highWater int64
}

func NewInMemory() *InMemory {
	return &InMemory{tickets: make(map[id.TicketID]*models.Ticket)}
}

func (s *InMemory) Next(_ context.Context, holderName string, voterID *id.VoterID, now time.Time) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if voterID != nil {
		if _, ok := s.waitingFor(*voterID); ok {
			return nil, fmt.Errorf("voter %s already waiting: %w", voterID, sentinel.ErrConflict)
		}
	}

	s.highWater++
	ticket := &models.Ticket{
		ID:         id.NewTicketID(),
		Number:     s.highWater,
		HolderName: holderName,
		Status:     models.StatusWaiting,
		CreatedAt:  now,
	}
	if voterID != nil {
		v := *voterID
		ticket.VoterID = &v
	}
	s.tickets[ticket.ID] = ticket
	return ticket.Clone(), nil
}

func (s *InMemory) waitingFor(voterID id.VoterID) (*models.Ticket, bool) {
	for _, t := range s.tickets {
		if t.Status == models.StatusWaiting && t.VoterID != nil && *t.VoterID == voterID {
			return t, true
		}
	}
	return nil, false
}

func (s *InMemory) FindWaitingByVoter(_ context.Context, voterID id.VoterID) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.waitingFor(voterID); ok {
		return t.Clone(), nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) Complete(_ context.Context, ticketID id.TicketID, at time.Time) (*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[ticketID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	if t.Status == models.StatusCompleted {
		return nil, sentinel.ErrInvalidState
	}
	t.Status = models.StatusCompleted
	t.CompletedAt = &at
	return t.Clone(), nil
}

func (s *InMemory) List(_ context.Context, status models.Status) ([]*models.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var waiting, completed []*models.Ticket
	for _, t := range s.tickets {
		switch {
		case t.Status == models.StatusWaiting && status != models.StatusCompleted:
			waiting = append(waiting, t.Clone())
		case t.Status == models.StatusCompleted && status != models.StatusWaiting:
			completed = append(completed, t.Clone())
		}
	}
	sortWaiting(waiting)
	sortCompleted(completed)
	return append(waiting, completed...), nil
}

func (s *InMemory) ClearWaiting(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for ticketID, t := range s.tickets {
		if t.Status == models.StatusWaiting {
			delete(s.tickets, ticketID)
			removed++
		}
	}
	return removed, nil
}

func (s *InMemory) CountWaiting(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, t := range s.tickets {
		if t.Status == models.StatusWaiting {
			n++
		}
	}
	return n, nil
}

func (s *InMemory) RecentCompleted(ctx context.Context, limit int) ([]*models.Ticket, error) {
	completed, err := s.List(ctx, models.StatusCompleted)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(completed) > limit {
		completed = completed[:limit]
	}
	return completed, nil
}

func sortWaiting(tickets []*models.Ticket) {
	slices.SortFunc(tickets, func(a, b *models.Ticket) int {
		switch {
		case a.Number < b.Number:
			return -1
		case a.Number > b.Number:
			return 1
		}
		return 0
	})
}

func sortCompleted(tickets []*models.Ticket) {
	slices.SortFunc(tickets, func(a, b *models.Ticket) int {
		return b.CompletedAt.Compare(*a.CompletedAt)
	})
}
