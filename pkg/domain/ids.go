// Package domain provides type-safe identifiers to prevent mixing up IDs at compile time.
package domain

import (
	"github.com/google/uuid"

	dErrors "votebooth/pkg/domain-errors"
)

// Distinct ID types - compiler prevents passing a VoterID where a CandidateID is expected.
type (
	VoterID     uuid.UUID
	CandidateID uuid.UUID
	TicketID    uuid.UUID
	VoteID      uuid.UUID
	FeedbackID  uuid.UUID
)

// Parse functions - use at trust boundaries (handlers, credential subjects).

func ParseVoterID(s string) (VoterID, error) {
	id, err := parseUUID(s, "voter ID")
	return VoterID(id), err
}

func ParseCandidateID(s string) (CandidateID, error) {
	id, err := parseUUID(s, "candidate ID")
	return CandidateID(id), err
}

func ParseTicketID(s string) (TicketID, error) {
	id, err := parseUUID(s, "ticket ID")
	return TicketID(id), err
}

func ParseVoteID(s string) (VoteID, error) {
	id, err := parseUUID(s, "vote ID")
	return VoteID(id), err
}

// Constructors for freshly minted records.

func NewVoterID() VoterID         { return VoterID(uuid.New()) }
func NewCandidateID() CandidateID { return CandidateID(uuid.New()) }
func NewTicketID() TicketID       { return TicketID(uuid.New()) }
func NewVoteID() VoteID           { return VoteID(uuid.New()) }
func NewFeedbackID() FeedbackID   { return FeedbackID(uuid.New()) }

// String methods - for logging and debugging.

func (id VoterID) String() string     { return uuid.UUID(id).String() }
func (id CandidateID) String() string { return uuid.UUID(id).String() }
func (id TicketID) String() string    { return uuid.UUID(id).String() }
func (id VoteID) String() string      { return uuid.UUID(id).String() }
func (id FeedbackID) String() string  { return uuid.UUID(id).String() }

// Text encoding - IDs appear as canonical UUID strings in JSON payloads.

func (id VoterID) MarshalText() ([]byte, error)     { return uuid.UUID(id).MarshalText() }
func (id CandidateID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id TicketID) MarshalText() ([]byte, error)    { return uuid.UUID(id).MarshalText() }
func (id VoteID) MarshalText() ([]byte, error)      { return uuid.UUID(id).MarshalText() }
func (id FeedbackID) MarshalText() ([]byte, error)  { return uuid.UUID(id).MarshalText() }

func (id *VoterID) UnmarshalText(b []byte) error     { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *CandidateID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *TicketID) UnmarshalText(b []byte) error    { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *VoteID) UnmarshalText(b []byte) error      { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *FeedbackID) UnmarshalText(b []byte) error  { return (*uuid.UUID)(id).UnmarshalText(b) }

// IsNil checks - used for service-layer validation.

func (id VoterID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id CandidateID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id TicketID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id VoteID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id FeedbackID) IsNil() bool  { return uuid.UUID(id) == uuid.Nil }

// parseUUID is the shared validation logic. The nil UUID never names a real
// record, so it is rejected alongside malformed input.
func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	}
	if id == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return id, nil
}
