package adapters

import "context"

// WaitingCounter is the interface that ticket stores implement.
type WaitingCounter interface {
	CountWaiting(ctx context.Context) (int, error)
}

// QueueCountsAdapter adapts a ticket store to admin's WaitingTickets interface.
type QueueCountsAdapter struct {
	store WaitingCounter
}

// NewQueueCountsAdapter creates a new adapter wrapping a ticket store.
func NewQueueCountsAdapter(store WaitingCounter) *QueueCountsAdapter {
	return &QueueCountsAdapter{store: store}
}

// WaitingTickets returns the number of tickets still waiting.
func (a *QueueCountsAdapter) WaitingTickets(ctx context.Context) (int, error) {
	return a.store.CountWaiting(ctx)
}
