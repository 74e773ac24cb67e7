package adapters

import (
	"context"

	"votebooth/internal/admin"
	voterModels "votebooth/internal/voter/models"
)

// VoterCounter is the interface that voter stores and services implement.
type VoterCounter interface {
	Counts(ctx context.Context) (voterModels.Counts, error)
}

// VoterCountsAdapter adapts a voter counter to admin's VoterCounts interface.
type VoterCountsAdapter struct {
	source VoterCounter
}

// NewVoterCountsAdapter creates a new adapter wrapping a voter counter.
func NewVoterCountsAdapter(source VoterCounter) *VoterCountsAdapter {
	return &VoterCountsAdapter{source: source}
}

// VoterTally returns roll counts mapped to admin types.
func (a *VoterCountsAdapter) VoterTally(ctx context.Context) (admin.VoterTally, error) {
	c, err := a.source.Counts(ctx)
	if err != nil {
		return admin.VoterTally{}, err
	}
	return admin.VoterTally{
		Total:    c.Total,
		Pending:  c.Pending,
		Verified: c.Verified,
		Flagged:  c.Flagged,
		Voted:    c.Voted,
	}, nil
}
