// Package models defines queue tickets and the events announced when the
// queue changes.
package models

import (
	"strings"
	"time"

	id "votebooth/pkg/domain"
	dErrors "votebooth/pkg/domain-errors"
)

// Status of a queue ticket.
type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusCompleted Status = "completed"
)

// ParseStatus accepts the status names case-insensitively. Empty means any.
func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case "", StatusWaiting, StatusCompleted:
		return st, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "status must be waiting or completed")
}

// Ticket is a numbered place in the physical voting queue. Numbers are global
// and never reused, including after the waiting queue is cleared.
type Ticket struct {
	ID          id.TicketID `json:"id"`
	Number      int64       `json:"ticketNumber"`
	HolderName  string      `json:"holderName"`
	VoterID     *id.VoterID `json:"voterId,omitempty"`
	Status      Status      `json:"status"`
	CreatedAt   time.Time   `json:"createdAt"`
	CompletedAt *time.Time  `json:"completedAt,omitempty"`
}

// Clone returns a deep copy.
func (t *Ticket) Clone() *Ticket {
	c := *t
	if t.VoterID != nil {
		v := *t.VoterID
		c.VoterID = &v
	}
	if t.CompletedAt != nil {
		at := *t.CompletedAt
		c.CompletedAt = &at
	}
	return &c
}

// ProcessingTime is how long a completed ticket spent in the queue.
func (t *Ticket) ProcessingTime() (time.Duration, bool) {
	if t.Status != StatusCompleted || t.CompletedAt == nil {
		return 0, false
	}
	d := t.CompletedAt.Sub(t.CreatedAt)
	if d < 0 {
		return 0, false
	}
	return d, true
}

// EventType names a queue change.
type EventType string

const (
	EventTicketCreated   EventType = "ticket.created"
	EventTicketCompleted EventType = "ticket.completed"
	EventQueueCleared    EventType = "queue.cleared"
)

// Event is broadcast to queue observers after a mutation commits.
type Event struct {
	Type    EventType `json:"type"`
	Ticket  *Ticket   `json:"ticket,omitempty"`
	Cleared int       `json:"cleared,omitempty"`
	At      time.Time `json:"at"`
}

// WaitEstimate is the expected wait for someone joining the queue now.
type WaitEstimate struct {
	WaitingCount         int     `json:"waitingCount"`
	AverageMinutes       float64 `json:"averageProcessingMinutes"`
	EstimatedWaitMinutes float64 `json:"estimatedWaitMinutes"`
	Basis                string  `json:"calculationBasis"`
}
