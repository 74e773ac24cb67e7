// Package liveness relays face-match verdicts from the external matcher.
// It never decides identity itself: a transport failure is reported as
// ErrServiceUnavailable and is never folded into either verdict.
package liveness

import (
	"context"
	"errors"

	dErrors "votebooth/pkg/domain-errors"
)

// Verdict is the matcher's answer for a reference/live image pair.
type Verdict string

const (
	Verified    Verdict = "verified"
	NotVerified Verdict = "not_verified"
)

// ErrServiceUnavailable marks a matcher that could not answer: unreachable,
// timed out, answered 5xx, or returned a body we could not decode.
var ErrServiceUnavailable = errors.New("liveness service unavailable")

// Matcher compares a stored reference image with a freshly captured one.
// Images are base64 strings, optionally carrying a data URL prefix.
type Matcher interface {
	Compare(ctx context.Context, reference, live string) (Verdict, error)
}

// IsUnavailable reports whether err came from an unreachable matcher.
func IsUnavailable(err error) bool {
	return errors.Is(err, ErrServiceUnavailable)
}

func unavailable(msg string, cause error) error {
	if cause == nil {
		return dErrors.Wrap(ErrServiceUnavailable, dErrors.CodeUnavailable, msg)
	}
	return dErrors.Wrap(errors.Join(ErrServiceUnavailable, cause), dErrors.CodeUnavailable, msg)
}

// StaticMatcher answers every comparison with a fixed outcome. It backs local
// runs where no matcher is deployed.
type StaticMatcher struct {
	Verdict Verdict
	Err     error
}

func (m StaticMatcher) Compare(ctx context.Context, reference, live string) (Verdict, error) {
	if err := ctx.Err(); err != nil {
		return "", unavailable("liveness comparison cancelled", err)
	}
	if m.Err != nil {
		return "", m.Err
	}
	if m.Verdict == "" {
		return NotVerified, nil
	}
	return m.Verdict, nil
}
