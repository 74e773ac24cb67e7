package models

import (
	"strings"

	id "votebooth/pkg/domain"
	dErrors "votebooth/pkg/domain-errors"
)

const maxHolderNameLen = 120

// AddTicketRequest is a staff member adding someone to the queue by hand.
type AddTicketRequest struct {
	HolderName string `json:"holderName"`
	VoterID    string `json:"voterId,omitempty"`

	voterID *id.VoterID
}

func (r *AddTicketRequest) Sanitize() {
	r.HolderName = strings.TrimSpace(r.HolderName)
	r.VoterID = strings.TrimSpace(r.VoterID)
}

func (r *AddTicketRequest) Validate() error {
	if r.HolderName == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "holder name is required")
	}
	if len(r.HolderName) > maxHolderNameLen {
		return dErrors.New(dErrors.CodeInvalidInput, "holder name is too long")
	}
	if r.VoterID != "" {
		parsed, err := id.ParseVoterID(r.VoterID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInvalidInput, "voter id is malformed")
		}
		r.voterID = &parsed
	}
	return nil
}

// ParsedVoterID is the optional voter reference, set by Validate.
func (r *AddTicketRequest) ParsedVoterID() *id.VoterID {
	return r.voterID
}

// SlotResult answers a voter's request for a place in the queue.
type SlotResult struct {
	Message       string       `json:"message"`
	Ticket        *Ticket      `json:"ticket"`
	AlreadyQueued bool         `json:"alreadyQueued"`
	Wait          WaitEstimate `json:"wait"`
}
