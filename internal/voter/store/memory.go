// Package store provides in-memory and PostgreSQL voter roll persistence.
package store

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"votebooth/internal/voter/models"
	id "votebooth/pkg/domain"
	"votebooth/pkg/platform/sentinel"
)

type identifierKey struct {
	t     models.IdentifierType
	value string
}

// InMemory keeps voters in maps guarded by a single RWMutex. Identifier and
// phone indexes enforce the same uniqueness the Postgres schema does.
type InMemory struct {
	mu           sync.RWMutex
	voters       map[id.VoterID]*models.Voter
	byIdentifier map[identifierKey]id.VoterID
	byPhone      map[string]id.VoterID
}

func NewInMemory() *InMemory {
	return &InMemory{
		voters:       make(map[id.VoterID]*models.Voter),
		byIdentifier: make(map[identifierKey]id.VoterID),
		byPhone:      make(map[string]id.VoterID),
	}
}

func (s *InMemory) Create(_ context.Context, voter *models.Voter) error {
	if voter == nil {
		return fmt.Errorf("voter is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byPhone[voter.Phone]; ok {
		return fmt.Errorf("phone already registered: %w", sentinel.ErrConflict)
	}
	for t, value := range voter.Identifiers {
		if _, ok := s.byIdentifier[identifierKey{t, value}]; ok {
			return fmt.Errorf("%s already registered: %w", t, sentinel.ErrConflict)
		}
	}

	s.voters[voter.ID] = voter.Clone()
	s.byPhone[voter.Phone] = voter.ID
	for t, value := range voter.Identifiers {
		s.byIdentifier[identifierKey{t, value}] = voter.ID
	}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, voterID id.VoterID) (*models.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.voters[voterID]
	if !ok {
		return nil, fmt.Errorf("voter not found: %w", sentinel.ErrNotFound)
	}
	return v.Clone(), nil
}

func (s *InMemory) FindByIdentifier(_ context.Context, t models.IdentifierType, value string) (*models.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	voterID, ok := s.byIdentifier[identifierKey{t, value}]
	if !ok {
		return nil, fmt.Errorf("voter not found: %w", sentinel.ErrNotFound)
	}
	return s.voters[voterID].Clone(), nil
}

func (s *InMemory) List(_ context.Context, filter models.ListFilter) ([]*models.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Voter, 0, len(s.voters))
	for _, v := range s.voters {
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, v.Status) {
			continue
		}
		out = append(out, v.Clone())
	}
	slices.SortFunc(out, func(a, b *models.Voter) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return out, nil
}

// UpdateStatus persists the status, flag reason and update time. HasVoted is
// only ever changed through MarkVoted.
func (s *InMemory) UpdateStatus(_ context.Context, voter *models.Voter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.voters[voter.ID]
	if !ok {
		return fmt.Errorf("voter not found: %w", sentinel.ErrNotFound)
	}
	existing.Status = voter.Status
	existing.FlagReason = voter.FlagReason
	existing.UpdatedAt = voter.UpdatedAt
	return nil
}

func (s *InMemory) MarkVoted(_ context.Context, voterID id.VoterID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.voters[voterID]
	if !ok {
		return fmt.Errorf("voter not found: %w", sentinel.ErrNotFound)
	}
	if v.HasVoted {
		return fmt.Errorf("voter already voted: %w", sentinel.ErrAlreadyUsed)
	}
	v.HasVoted = true
	v.VotedAt = &at
	v.UpdatedAt = at
	return nil
}

func (s *InMemory) Counts(_ context.Context) (models.Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var c models.Counts
	for _, v := range s.voters {
		c.Total++
		switch v.Status {
		case models.StatusPending:
			c.Pending++
		case models.StatusVerified:
			c.Verified++
		case models.StatusFlagged:
			c.Flagged++
		}
		if v.HasVoted {
			c.Voted++
		}
	}
	return c, nil
}
