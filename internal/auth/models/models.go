package models

import (
	"strings"
	"time"

	dErrors "votebooth/pkg/domain-errors"
)

// InitiateRequest starts check-in with one government identifier.
type InitiateRequest struct {
	IdentifierType  string `json:"identifierType"`
	IdentifierValue string `json:"identifierValue"`
}

func (r *InitiateRequest) Sanitize() {
	r.IdentifierType = strings.TrimSpace(r.IdentifierType)
	r.IdentifierValue = strings.TrimSpace(r.IdentifierValue)
}

func (r *InitiateRequest) Normalize() {
	r.IdentifierType = strings.ToUpper(r.IdentifierType)
}

func (r *InitiateRequest) Validate() error {
	if r.IdentifierType == "" || r.IdentifierValue == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "identifier type and value are required")
	}
	return nil
}

// VerifyCodeRequest submits the one-time code for the same identifier.
// "otp" is accepted as an alias for "code".
type VerifyCodeRequest struct {
	IdentifierType  string `json:"identifierType"`
	IdentifierValue string `json:"identifierValue"`
	Code            string `json:"code"`
	OTP             string `json:"otp,omitempty"`
}

func (r *VerifyCodeRequest) Sanitize() {
	r.IdentifierType = strings.TrimSpace(r.IdentifierType)
	r.IdentifierValue = strings.TrimSpace(r.IdentifierValue)
	r.Code = strings.TrimSpace(r.Code)
	r.OTP = strings.TrimSpace(r.OTP)
}

func (r *VerifyCodeRequest) Normalize() {
	r.IdentifierType = strings.ToUpper(r.IdentifierType)
	if r.Code == "" {
		r.Code = r.OTP
	}
}

func (r *VerifyCodeRequest) Validate() error {
	if r.IdentifierType == "" || r.IdentifierValue == "" || r.Code == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "identifier type, value and code are required")
	}
	return nil
}

// FaceRequest carries the live capture as base64, optionally a data URL.
type FaceRequest struct {
	LivePhoto string `json:"livePhoto"`
}

func (r *FaceRequest) Sanitize() {
	r.LivePhoto = strings.TrimSpace(r.LivePhoto)
}

func (r *FaceRequest) Validate() error {
	if r.LivePhoto == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "live photo is required")
	}
	return nil
}

// InitiateResult tells the voter where the code went without revealing the number.
type InitiateResult struct {
	Message   string `json:"message"`
	PhoneHint string `json:"phoneHint"`
}

// StageResult is returned when a stage mints the next credential.
type StageResult struct {
	Message   string       `json:"message"`
	Token     string       `json:"token"`
	Purpose   string       `json:"purpose"`
	ExpiresAt time.Time    `json:"expiresAt"`
	Voter     VoterSummary `json:"voter"`
}

// VoterSummary is the minimal voter projection shown during check-in.
type VoterSummary struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
}
