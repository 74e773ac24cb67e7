package admin

import (
	"time"

	"votebooth/internal/audit"
)

// VoterTally is the admin view of the voter roll.
type VoterTally struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Verified int `json:"verified"`
	Flagged  int `json:"flagged"`
	Voted    int `json:"voted"`
}

// StatsResponse is the HTTP response DTO for the admin dashboard counters.
type StatsResponse struct {
	Voters         VoterTally `json:"voters"`
	Votes          int        `json:"votes"`
	WaitingTickets int        `json:"waitingTickets"`
	Turnout        float64    `json:"turnoutPercent"`
	GeneratedAt    time.Time  `json:"generatedAt"`
}

// AuditTrailResponse wraps the most recent audit events, newest first.
type AuditTrailResponse struct {
	Events []audit.Event `json:"events"`
	Total  int           `json:"total"`
}
