package service

import (
	"context"
	"time"

	"votebooth/internal/ballot/models"
	votermodels "votebooth/internal/voter/models"
	id "votebooth/pkg/domain"
)

// CandidateStore persists candidates and their tallies.
type CandidateStore interface {
	Create(ctx context.Context, c *models.Candidate) error
	FindByID(ctx context.Context, candidateID id.CandidateID) (*models.Candidate, error)
	// List returns every candidate ordered by name.
	List(ctx context.Context) ([]*models.Candidate, error)
	// IncrementTally adds exactly one vote and returns the new count.
	IncrementTally(ctx context.Context, candidateID id.CandidateID) (int64, error)
}

// VoteStore persists immutable vote records. Insert returns
// sentinel.ErrConflict when the voter already has a vote.
type VoteStore interface {
	Insert(ctx context.Context, vote *models.Vote) error
	Logs(ctx context.Context, limit int) ([]*models.VoteLog, error)
	Count(ctx context.Context) (int, error)
}

// VoterStore is the part of the voter roll the ledger reads and flips.
// MarkVoted must be conditional: sentinel.ErrAlreadyUsed when already set.
type VoterStore interface {
	FindByID(ctx context.Context, voterID id.VoterID) (*votermodels.Voter, error)
	MarkVoted(ctx context.Context, voterID id.VoterID, at time.Time) error
}

// LedgerTx runs fn so that every store write inside it commits together or
// not at all. Stores find the transaction through ctx.
type LedgerTx interface {
	RunInTx(ctx context.Context, voterID id.VoterID, fn func(ctx context.Context) error) error
}
