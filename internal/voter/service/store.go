package service

import (
	"context"
	"time"

	"votebooth/internal/voter/models"
	id "votebooth/pkg/domain"
)

// Store persists voters. Implementations return sentinel.ErrNotFound for
// unknown voters, sentinel.ErrConflict when an identifier or phone is already
// registered, and sentinel.ErrAlreadyUsed when MarkVoted finds the flag set.
type Store interface {
	Create(ctx context.Context, voter *models.Voter) error
	FindByID(ctx context.Context, voterID id.VoterID) (*models.Voter, error)
	FindByIdentifier(ctx context.Context, t models.IdentifierType, value string) (*models.Voter, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Voter, error)
	UpdateStatus(ctx context.Context, voter *models.Voter) error
	MarkVoted(ctx context.Context, voterID id.VoterID, at time.Time) error
	Counts(ctx context.Context) (models.Counts, error)
}
