// Package credential mints and verifies the short-lived, purpose-scoped bearer
// credentials that gate each stage of voter check-in.
//
// A credential is an HS256 JWT whose subject is the voter ID and whose
// "purpose" claim names the single stage allowed to accept it. Verification
// is self-contained; an optional revocation list lets a credential be retired
// before its natural expiry.
package credential

import (
	"errors"
	"time"

	id "votebooth/pkg/domain"
)

// Purpose names the pipeline stage a credential unlocks.
type Purpose string

const (
	// PurposeOTPVerified is minted after the one-time code matches and is
	// accepted only by the liveness stage.
	PurposeOTPVerified Purpose = "otp-verified"
	// PurposeVoteEligible is minted after a positive face match and is
	// accepted by the queue-slot, candidate listing and vote-cast stages.
	PurposeVoteEligible Purpose = "vote-eligible"
)

// IsValid reports whether p is one of the known purposes.
func (p Purpose) IsValid() bool {
	switch p {
	case PurposeOTPVerified, PurposeVoteEligible:
		return true
	}
	return false
}

func (p Purpose) String() string { return string(p) }

// Verification failures. Each is wrapped in an unauthorized domain error so
// callers can both map it to 401 and tell the reasons apart with errors.Is.
var (
	ErrExpired      = errors.New("credential expired")
	ErrMalformed    = errors.New("credential malformed")
	ErrWrongPurpose = errors.New("credential purpose mismatch")
	ErrRevoked      = errors.New("credential revoked")
)

// Token is a freshly minted credential.
type Token struct {
	Value     string
	ID        string
	Purpose   Purpose
	ExpiresAt time.Time
}

// Verified is the trusted content of a credential that passed verification.
type Verified struct {
	Subject   id.VoterID
	ID        string
	Purpose   Purpose
	IssuedAt  time.Time
	ExpiresAt time.Time
}
