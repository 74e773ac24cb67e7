package service

import (
	"context"
	"time"

	"votebooth/internal/queue/models"
	id "votebooth/pkg/domain"
)

// Store persists tickets. Next must allocate numbers atomically: concurrent
// callers never observe the same high-water mark, and numbers are never
// reused. When voterID is set and that voter already holds a waiting ticket,
// Next returns sentinel.ErrConflict.
type Store interface {
	Next(ctx context.Context, holderName string, voterID *id.VoterID, now time.Time) (*models.Ticket, error)
	FindWaitingByVoter(ctx context.Context, voterID id.VoterID) (*models.Ticket, error)
	Complete(ctx context.Context, ticketID id.TicketID, at time.Time) (*models.Ticket, error)
	List(ctx context.Context, status models.Status) ([]*models.Ticket, error)
	ClearWaiting(ctx context.Context) (int, error)
	CountWaiting(ctx context.Context) (int, error)
	RecentCompleted(ctx context.Context, limit int) ([]*models.Ticket, error)
}
