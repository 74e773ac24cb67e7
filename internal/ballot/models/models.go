// Package models defines candidates, cast votes and the per-voter stage
// progression that ends in exactly one vote.
package models

import (
	"strings"
	"time"

	id "votebooth/pkg/domain"
	dErrors "votebooth/pkg/domain-errors"
)

// Candidate is a contestant. VoteCount only ever grows and always equals the
// number of Vote records that reference the candidate.
type Candidate struct {
	ID        id.CandidateID `json:"id"`
	Name      string         `json:"name"`
	Party     string         `json:"party"`
	Position  string         `json:"position"`
	SymbolURL string         `json:"symbolUrl,omitempty"`
	VoteCount int64          `json:"voteCount"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Vote is the immutable record that a voter voted for a candidate. At most
// one exists per voter.
type Vote struct {
	ID          id.VoteID      `json:"id"`
	VoterID     id.VoterID     `json:"voterId"`
	CandidateID id.CandidateID `json:"candidateId"`
	CreatedAt   time.Time      `json:"createdAt"`
}

// Receipt confirms a recorded vote to the booth operator. It is not a proof
// of how anyone voted.
type Receipt struct {
	VoteID        id.VoteID      `json:"voteId"`
	CandidateID   id.CandidateID `json:"candidateId"`
	CandidateName string         `json:"candidateName"`
	Party         string         `json:"party"`
	VoteCount     int64          `json:"voteCount"`
	VotedAt       time.Time      `json:"votedAt"`
}

// VoteLog is one row of the administrative vote log.
type VoteLog struct {
	VoteID        id.VoteID      `json:"voteId"`
	VoterID       id.VoterID     `json:"voterId"`
	VoterName     string         `json:"voterName"`
	CandidateID   id.CandidateID `json:"candidateId"`
	CandidateName string         `json:"candidateName"`
	CastAt        time.Time      `json:"castAt"`
}

// Result is a candidate's standing in the tally.
type Result struct {
	CandidateID id.CandidateID `json:"candidateId"`
	Name        string         `json:"name"`
	Party       string         `json:"party"`
	Position    string         `json:"position"`
	Votes       int64          `json:"votes"`
	Share       float64        `json:"sharePercent"`
}

// CastRequest is the vote-cast body. The voter comes from the credential,
// never from here.
type CastRequest struct {
	CandidateID string `json:"candidateId"`
}

func (r *CastRequest) Sanitize() {
	r.CandidateID = strings.TrimSpace(r.CandidateID)
}

func (r *CastRequest) Validate() error {
	if r.CandidateID == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "candidate id is required")
	}
	return nil
}

// CreateCandidateRequest adds a contestant.
type CreateCandidateRequest struct {
	Name      string `json:"name"`
	Party     string `json:"party"`
	Position  string `json:"position"`
	SymbolURL string `json:"symbolUrl"`
}

func (r *CreateCandidateRequest) Sanitize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Party = strings.TrimSpace(r.Party)
	r.Position = strings.TrimSpace(r.Position)
	r.SymbolURL = strings.TrimSpace(r.SymbolURL)
}

func (r *CreateCandidateRequest) Validate() error {
	if r.Name == "" || r.Party == "" || r.Position == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name, party and position are required")
	}
	return nil
}
