// Package models defines free-text feedback left by voters after the booth
// visit.
package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "votebooth/pkg/domain"
	dErrors "votebooth/pkg/domain-errors"
)

// MaxMessageLength caps a message in characters.
const MaxMessageLength = 2000

// Feedback is one submitted message. Records are never edited.
type Feedback struct {
	ID        id.FeedbackID `json:"id"`
	VoterID   id.VoterID    `json:"voterId"`
	Message   string        `json:"message"`
	CreatedAt time.Time     `json:"createdAt"`
}

// SubmitRequest is the public feedback body.
type SubmitRequest struct {
	VoterID string `json:"voterId"`
	Message string `json:"message"`
}

func (r *SubmitRequest) Sanitize() {
	r.VoterID = strings.TrimSpace(r.VoterID)
	r.Message = strings.TrimSpace(r.Message)
}

func (r *SubmitRequest) Validate() error {
	if r.VoterID == "" || r.Message == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "voter id and message are required")
	}
	if utf8.RuneCountInString(r.Message) > MaxMessageLength {
		return dErrors.New(dErrors.CodeInvalidInput, "message is too long")
	}
	return nil
}
