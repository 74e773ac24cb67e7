// Package store provides in-memory and PostgreSQL persistence for candidates
// and votes, plus the in-memory ledger transaction.
package store

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"votebooth/internal/ballot/models"
	votermodels "votebooth/internal/voter/models"
	id "votebooth/pkg/domain"
	"votebooth/pkg/platform/sentinel"
)

type candidateKey struct {
	name     string
	position string
}

// InMemoryCandidates keeps candidates in a map. Name and position together
// are unique, case-insensitively.
type InMemoryCandidates struct {
	mu         sync.RWMutex
	candidates map[id.CandidateID]*models.Candidate
	byKey      map[candidateKey]id.CandidateID
}

func NewInMemoryCandidates() *InMemoryCandidates {
	return &InMemoryCandidates{
		candidates: make(map[id.CandidateID]*models.Candidate),
		byKey:      make(map[candidateKey]id.CandidateID),
	}
}

func keyFor(c *models.Candidate) candidateKey {
	return candidateKey{strings.ToLower(c.Name), strings.ToLower(c.Position)}
}

func (s *InMemoryCandidates) Create(_ context.Context, c *models.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := keyFor(c)
	if _, ok := s.byKey[k]; ok {
		return fmt.Errorf("candidate %q for %q: %w", c.Name, c.Position, sentinel.ErrConflict)
	}
	stored := *c
	s.candidates[c.ID] = &stored
	s.byKey[k] = c.ID
	return nil
}

func (s *InMemoryCandidates) FindByID(_ context.Context, candidateID id.CandidateID) (*models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.candidates[candidateID]
	if !ok {
		return nil, fmt.Errorf("candidate not found: %w", sentinel.ErrNotFound)
	}
	out := *c
	return &out, nil
}

func (s *InMemoryCandidates) List(_ context.Context) ([]*models.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Candidate, 0, len(s.candidates))
	for _, c := range s.candidates {
		cp := *c
		out = append(out, &cp)
	}
	slices.SortFunc(out, func(a, b *models.Candidate) int {
		return strings.Compare(a.Name, b.Name)
	})
	return out, nil
}

func (s *InMemoryCandidates) IncrementTally(_ context.Context, candidateID id.CandidateID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.candidates[candidateID]
	if !ok {
		return 0, fmt.Errorf("candidate not found: %w", sentinel.ErrNotFound)
	}
	c.VoteCount++
	return c.VoteCount, nil
}

// VoterLookup resolves voter names for the vote log.
type VoterLookup interface {
	FindByID(ctx context.Context, voterID id.VoterID) (*votermodels.Voter, error)
}

// InMemoryVotes keeps votes in insertion order with a per-voter index.
type InMemoryVotes struct {
	mu         sync.RWMutex
	votes      []*models.Vote
	byVoter    map[id.VoterID]struct{}
	candidates *InMemoryCandidates
	voters     VoterLookup
}

func NewInMemoryVotes(candidates *InMemoryCandidates, voters VoterLookup) *InMemoryVotes {
	return &InMemoryVotes{
		byVoter:    make(map[id.VoterID]struct{}),
		candidates: candidates,
		voters:     voters,
	}
}

func (s *InMemoryVotes) Insert(_ context.Context, vote *models.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byVoter[vote.VoterID]; ok {
		return fmt.Errorf("vote for voter %s: %w", vote.VoterID, sentinel.ErrConflict)
	}
	stored := *vote
	s.votes = append(s.votes, &stored)
	s.byVoter[vote.VoterID] = struct{}{}
	return nil
}

func (s *InMemoryVotes) Logs(ctx context.Context, limit int) ([]*models.VoteLog, error) {
	s.mu.RLock()
	recent := make([]models.Vote, 0, len(s.votes))
	for i := len(s.votes) - 1; i >= 0; i-- {
		recent = append(recent, *s.votes[i])
		if limit > 0 && len(recent) == limit {
			break
		}
	}
	s.mu.RUnlock()

	logs := make([]*models.VoteLog, 0, len(recent))
	for _, v := range recent {
		entry := &models.VoteLog{
			VoteID:      v.ID,
			VoterID:     v.VoterID,
			CandidateID: v.CandidateID,
			CastAt:      v.CreatedAt,
		}
		if c, err := s.candidates.FindByID(ctx, v.CandidateID); err == nil {
			entry.CandidateName = c.Name
		}
		if s.voters != nil {
			if voter, err := s.voters.FindByID(ctx, v.VoterID); err == nil {
				entry.VoterName = voter.FullName
			}
		}
		logs = append(logs, entry)
	}
	return logs, nil
}

func (s *InMemoryVotes) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.votes), nil
}
