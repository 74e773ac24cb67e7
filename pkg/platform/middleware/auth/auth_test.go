package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	id "votebooth/pkg/domain"
	dErrors "votebooth/pkg/domain-errors"
	"votebooth/pkg/requestcontext"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAuthenticator struct {
	principal *Principal
	err       error
	purpose   string
}

func (s *stubAuthenticator) Authenticate(_ context.Context, _ string, purpose string) (*Principal, error) {
	s.purpose = purpose
	return s.principal, s.err
}

func TestRequirePurpose(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	voterID := id.NewVoterID()

	run := func(a Authenticator, header string) (*httptest.ResponseRecorder, *http.Request) {
		var got *http.Request
		handler := RequirePurpose(a, "vote-eligible", logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = r
			w.WriteHeader(http.StatusOK)
		}))
		req := httptest.NewRequest(http.MethodPost, "/api/v1/vote", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w, got
	}

	t.Run("valid credential places subject in context", func(t *testing.T) {
		a := &stubAuthenticator{principal: &Principal{
			VoterID: voterID, CredentialID: "jti-1", Purpose: "vote-eligible", ExpiresAt: time.Now().Add(time.Hour),
		}}

		w, got := run(a, "Bearer token-value")

		assert.Equal(t, http.StatusOK, w.Code)
		require.NotNil(t, got)
		assert.Equal(t, voterID, requestcontext.VoterID(got.Context()))
		cred, ok := requestcontext.CredentialInfo(got.Context())
		require.True(t, ok)
		assert.Equal(t, "jti-1", cred.ID)
		assert.Equal(t, "vote-eligible", a.purpose)
	})

	t.Run("missing header rejected", func(t *testing.T) {
		w, got := run(&stubAuthenticator{}, "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Nil(t, got)
	})

	t.Run("wrong scheme rejected", func(t *testing.T) {
		w, got := run(&stubAuthenticator{}, "Basic abc")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Nil(t, got)
	})

	t.Run("rejected credential is 401 with generic message", func(t *testing.T) {
		a := &stubAuthenticator{err: dErrors.Wrap(errors.New("purpose mismatch"), dErrors.CodeUnauthorized, "wrong purpose")}
		w, got := run(a, "Bearer token-value")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), "invalid or expired credential")
		assert.NotContains(t, w.Body.String(), "wrong purpose")
		assert.Nil(t, got)
	})

	t.Run("verifier failure fails closed with 500", func(t *testing.T) {
		a := &stubAuthenticator{err: errors.New("redis down")}
		w, got := run(a, "Bearer token-value")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Nil(t, got)
	})
}
