package models

import (
	"fmt"

	dErrors "votebooth/pkg/domain-errors"
)

// Stage is how far a voter has progressed through check-in. Each step is
// unlocked by the credential minted at the previous one.
type Stage int

const (
	StageNotStarted Stage = iota
	StageOTPVerified
	StageFaceVerified
	StageQueued
	StageVoted
)

var stageNames = [...]string{"NotStarted", "OtpVerified", "FaceVerified", "Queued", "Voted"}

func (s Stage) String() string {
	if s < StageNotStarted || s > StageVoted {
		return fmt.Sprintf("Stage(%d)", int(s))
	}
	return stageNames[s]
}

// transitions lists the legal moves. Queueing is physical and optional, so a
// face-verified voter may vote directly. Voted has no way out.
var transitions = map[Stage][]Stage{
	StageNotStarted:   {StageOTPVerified},
	StageOTPVerified:  {StageFaceVerified},
	StageFaceVerified: {StageQueued, StageVoted},
	StageQueued:       {StageVoted},
}

// Advance validates the move from s to next. Any attempt to leave Voted is
// an already-voted conflict.
func (s Stage) Advance(next Stage) (Stage, error) {
	if s == StageVoted {
		return s, dErrors.New(dErrors.CodeConflict, "this voter has already cast their vote")
	}
	for _, allowed := range transitions[s] {
		if allowed == next {
			return next, nil
		}
	}
	return s, dErrors.New(dErrors.CodeForbidden, fmt.Sprintf("cannot move from %s to %s", s, next))
}
