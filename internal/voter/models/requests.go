package models

import (
	"strings"
	"time"

	dErrors "votebooth/pkg/domain-errors"
)

// RegisterRequest is the self-registration and admin direct-entry payload.
type RegisterRequest struct {
	FullName       string `json:"fullName"`
	DateOfBirth    string `json:"dob"`
	Address        string `json:"address"`
	Phone          string `json:"phoneNumber"`
	AadhaarNumber  string `json:"aadharNumber,omitempty"`
	VoterIDNumber  string `json:"voterIdNumber,omitempty"`
	RegisterNumber string `json:"registerNumber,omitempty"`
	PhotoBase64    string `json:"photoUrl,omitempty"`
}

func (r *RegisterRequest) Sanitize() {
	r.FullName = strings.TrimSpace(r.FullName)
	r.DateOfBirth = strings.TrimSpace(r.DateOfBirth)
	r.Address = strings.TrimSpace(r.Address)
	r.Phone = strings.TrimSpace(r.Phone)
	r.AadhaarNumber = strings.TrimSpace(r.AadhaarNumber)
	r.VoterIDNumber = strings.TrimSpace(r.VoterIDNumber)
	r.RegisterNumber = strings.TrimSpace(r.RegisterNumber)
}

func (r *RegisterRequest) Normalize() {
	r.VoterIDNumber = strings.ToUpper(r.VoterIDNumber)
}

// Validate enforces the required fields and that at least one identifier is present.
func (r *RegisterRequest) Validate() error {
	if r.FullName == "" || r.DateOfBirth == "" || r.Address == "" || r.Phone == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "missing required registration fields")
	}
	if _, err := time.Parse(time.DateOnly, r.DateOfBirth); err != nil {
		return dErrors.New(dErrors.CodeInvalidInput, "dob must be formatted YYYY-MM-DD")
	}
	if len(r.Identifiers()) == 0 {
		return dErrors.New(dErrors.CodeInvalidInput, "at least one identifier is required")
	}
	for t, value := range r.Identifiers() {
		if _, err := t.Normalize(value); err != nil {
			return err
		}
	}
	return nil
}

// Identifiers returns the non-empty identifiers keyed by type.
func (r *RegisterRequest) Identifiers() map[IdentifierType]string {
	out := make(map[IdentifierType]string, 3)
	if r.AadhaarNumber != "" {
		out[IdentifierAadhaar] = r.AadhaarNumber
	}
	if r.VoterIDNumber != "" {
		out[IdentifierVoterID] = r.VoterIDNumber
	}
	if r.RegisterNumber != "" {
		out[IdentifierRegisterNumber] = r.RegisterNumber
	}
	return out
}

// FlagRequest carries the administrator's reason for flagging.
type FlagRequest struct {
	Reason string `json:"reason"`
}

func (r *FlagRequest) Sanitize() {
	r.Reason = strings.TrimSpace(r.Reason)
}

// VoterResponse is the public projection of a voter. The reference photo is never returned.
type VoterResponse struct {
	ID          string            `json:"id"`
	FullName    string            `json:"fullName"`
	DateOfBirth string            `json:"dob"`
	Address     string            `json:"address"`
	Phone       string            `json:"phoneNumber"`
	Identifiers map[string]string `json:"identifiers"`
	Status      Status            `json:"status"`
	FlagReason  string            `json:"flagReason,omitempty"`
	HasVoted    bool              `json:"hasVoted"`
	HasPhoto    bool              `json:"hasPhoto"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
}

func NewVoterResponse(v *Voter) VoterResponse {
	ids := make(map[string]string, len(v.Identifiers))
	for t, value := range v.Identifiers {
		ids[string(t)] = value
	}
	return VoterResponse{
		ID:          v.ID.String(),
		FullName:    v.FullName,
		DateOfBirth: v.DateOfBirth,
		Address:     v.Address,
		Phone:       v.Phone,
		Identifiers: ids,
		Status:      v.Status,
		FlagReason:  v.FlagReason,
		HasVoted:    v.HasVoted,
		HasPhoto:    v.ReferencePhoto != "",
		CreatedAt:   v.CreatedAt,
		UpdatedAt:   v.UpdatedAt,
	}
}
