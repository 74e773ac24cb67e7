package models

import (
	"regexp"
	"strings"
	"time"

	id "votebooth/pkg/domain"
	dErrors "votebooth/pkg/domain-errors"
)

// IdentifierType is one of the government identifiers a voter may present.
type IdentifierType string

const (
	IdentifierAadhaar        IdentifierType = "AADHAAR"
	IdentifierVoterID        IdentifierType = "VOTER_ID"
	IdentifierRegisterNumber IdentifierType = "REGISTER_NUMBER"
)

// IdentifierTypes lists every accepted type in a stable order.
var IdentifierTypes = []IdentifierType{IdentifierAadhaar, IdentifierVoterID, IdentifierRegisterNumber}

var (
	aadhaarPattern = regexp.MustCompile(`^\d{12}$`)
	voterIDPattern = regexp.MustCompile(`^[A-Z0-9]{6,15}$`)
)

// ParseIdentifierType accepts the canonical names case-insensitively.
func ParseIdentifierType(s string) (IdentifierType, error) {
	t := IdentifierType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case IdentifierAadhaar, IdentifierVoterID, IdentifierRegisterNumber:
		return t, nil
	}
	return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported identifier type")
}

// Normalize trims and canonicalizes value for the type, rejecting malformed input.
// Voter roll IDs are stored uppercase.
func (t IdentifierType) Normalize(value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "identifier value is required")
	}
	switch t {
	case IdentifierAadhaar:
		if !aadhaarPattern.MatchString(value) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "aadhaar number must be 12 digits")
		}
	case IdentifierVoterID:
		value = strings.ToUpper(value)
		if !voterIDPattern.MatchString(value) {
			return "", dErrors.New(dErrors.CodeInvalidInput, "voter id must be 6 to 15 letters or digits")
		}
	case IdentifierRegisterNumber:
		if len(value) > 64 {
			return "", dErrors.New(dErrors.CodeInvalidInput, "register number is too long")
		}
	default:
		return "", dErrors.New(dErrors.CodeInvalidInput, "unsupported identifier type")
	}
	return value, nil
}

// Status is the administrative approval state of a voter.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusVerified Status = "Verified"
	StatusFlagged  Status = "Flagged"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusVerified, StatusFlagged:
		return true
	}
	return false
}

// Voter is a registered identity record. HasVoted moves from false to true
// exactly once and is never reset.
type Voter struct {
	ID             id.VoterID                `json:"id"`
	FullName       string                    `json:"full_name"`
	DateOfBirth    string                    `json:"date_of_birth"`
	Address        string                    `json:"address"`
	Phone          string                    `json:"phone"`
	Identifiers    map[IdentifierType]string `json:"identifiers"`
	ReferencePhoto string                    `json:"-"`
	Status         Status                    `json:"status"`
	FlagReason     string                    `json:"flag_reason,omitempty"`
	HasVoted       bool                      `json:"has_voted"`
	VotedAt        *time.Time                `json:"voted_at,omitempty"`
	CreatedAt      time.Time                 `json:"created_at"`
	UpdatedAt      time.Time                 `json:"updated_at"`
}

// Eligible reports whether the voter may still proceed to vote.
func (v *Voter) Eligible() bool {
	return v.Status == StatusVerified && !v.HasVoted
}

// Identifier returns the stored value for t, if any.
func (v *Voter) Identifier(t IdentifierType) (string, bool) {
	value, ok := v.Identifiers[t]
	return value, ok && value != ""
}

// Approve marks the voter verified and clears any earlier flag.
func (v *Voter) Approve(now time.Time) {
	v.Status = StatusVerified
	v.FlagReason = ""
	v.UpdatedAt = now
}

// Flag marks the voter for review with a reason.
func (v *Voter) Flag(reason string, now time.Time) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "No reason provided"
	}
	v.Status = StatusFlagged
	v.FlagReason = reason
	v.UpdatedAt = now
}

// Clone returns a deep copy so in-memory stores never share mutable state.
func (v *Voter) Clone() *Voter {
	c := *v
	c.Identifiers = make(map[IdentifierType]string, len(v.Identifiers))
	for k, val := range v.Identifiers {
		c.Identifiers[k] = val
	}
	if v.VotedAt != nil {
		at := *v.VotedAt
		c.VotedAt = &at
	}
	return &c
}

// ListFilter narrows voter listings. Empty Statuses means all.
type ListFilter struct {
	Statuses []Status
}

// Counts summarizes the voter roll for the admin dashboard.
type Counts struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Verified int `json:"verified"`
	Flagged  int `json:"flagged"`
	Voted    int `json:"voted"`
}
