// Package auth enforces stage credentials on voter-facing routes.
package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	id "votebooth/pkg/domain"
	dErrors "votebooth/pkg/domain-errors"
	"votebooth/pkg/platform/httputil"
	"votebooth/pkg/requestcontext"
)

// Principal is the verified content of a stage credential.
type Principal struct {
	VoterID      id.VoterID
	CredentialID string
	Purpose      string
	ExpiresAt    time.Time
}

// Authenticator verifies a bearer token for exactly one purpose.
// Any rejection must carry dErrors.CodeUnauthorized.
type Authenticator interface {
	Authenticate(ctx context.Context, token, purpose string) (*Principal, error)
}

// RequirePurpose admits only requests bearing a credential minted for purpose
// and places its subject in context. Handlers downstream must take the acting
// voter from context, never from the request body.
func RequirePurpose(authenticator Authenticator, purpose string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				logger.WarnContext(ctx, "unauthorized access - missing credential",
					"required_purpose", purpose,
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "missing or invalid Authorization header"))
				return
			}

			principal, err := authenticator.Authenticate(ctx, strings.TrimSpace(token), purpose)
			if err != nil {
				if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
					logger.WarnContext(ctx, "unauthorized access - credential rejected",
						"error", err,
						"required_purpose", purpose,
						"request_id", requestID,
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "invalid or expired credential"))
					return
				}
				logger.ErrorContext(ctx, "failed to verify credential",
					"error", err,
					"request_id", requestID,
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to verify credential"))
				return
			}

			ctx = requestcontext.WithVoterID(ctx, principal.VoterID)
			ctx = requestcontext.WithCredential(ctx, requestcontext.Credential{
				ID:        principal.CredentialID,
				Purpose:   principal.Purpose,
				ExpiresAt: principal.ExpiresAt,
			})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
