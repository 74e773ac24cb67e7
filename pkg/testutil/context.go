package testutil

import (
	"net/http"
	"time"

	id "votebooth/pkg/domain"
	"votebooth/pkg/requestcontext"
)

// WithVoter simulates the credential middleware for handler tests.
func WithVoter(req *http.Request, voterID id.VoterID, purpose string) *http.Request {
	ctx := requestcontext.WithVoterID(req.Context(), voterID)
	ctx = requestcontext.WithCredential(ctx, requestcontext.Credential{
		ID:        "test-credential",
		Purpose:   purpose,
		ExpiresAt: time.Now().Add(time.Hour),
	})
	return req.WithContext(ctx)
}
