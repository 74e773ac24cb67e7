package liveness

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "votebooth/pkg/domain-errors"
	"votebooth/pkg/platform/circuit"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func matcherServer(t *testing.T, status int, body string) (*httptest.Server, *atomic.Int32) {
	t.Helper()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/verify", r.URL.Path)
		var req verifyRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "reference", req.Img1)
		assert.Equal(t, "live", req.Img2)
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestHTTPMatcher_Verdicts(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		want        Verdict
		unavailable bool
	}{
		{name: "match", status: http.StatusOK, body: `{"verified":true}`, want: Verified},
		{name: "explicit mismatch", status: http.StatusOK, body: `{"verified":false}`, want: NotVerified},
		{name: "matcher rejects faces", status: http.StatusUnauthorized, body: `{"verified":false}`, want: NotVerified},
		{name: "no face found", status: http.StatusBadRequest, body: `{"error":"no face"}`, want: NotVerified},
		{name: "server error", status: http.StatusInternalServerError, body: `{}`, unavailable: true},
		{name: "gateway timeout", status: http.StatusGatewayTimeout, body: ``, unavailable: true},
		{name: "garbage body", status: http.StatusOK, body: `<html>`, unavailable: true},
		{name: "missing verdict", status: http.StatusOK, body: `{}`, unavailable: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := matcherServer(t, tt.status, tt.body)
			m := NewHTTPMatcher(srv.URL, discardLogger())

			got, err := m.Compare(context.Background(), "reference", "live")
			if tt.unavailable {
				require.Error(t, err)
				assert.True(t, IsUnavailable(err))
				assert.True(t, dErrors.HasCode(err, dErrors.CodeUnavailable))
				assert.Empty(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHTTPMatcher_TimeoutIsUnavailable(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	m := NewHTTPMatcher(srv.URL, discardLogger(), WithTimeout(50*time.Millisecond))
	start := time.Now()
	verdict, err := m.Compare(context.Background(), "reference", "live")

	require.Error(t, err)
	assert.True(t, IsUnavailable(err), "a timeout is neither verified nor not verified")
	assert.Empty(t, verdict)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestHTTPMatcher_UnreachableIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	m := NewHTTPMatcher(url, discardLogger())
	_, err := m.Compare(context.Background(), "reference", "live")
	assert.True(t, IsUnavailable(err))
}

func TestHTTPMatcher_BreakerShortCircuits(t *testing.T) {
	srv, calls := matcherServer(t, http.StatusServiceUnavailable, `{}`)
	now := time.Now()
	breaker := circuit.New("liveness",
		circuit.WithFailureThreshold(2),
		circuit.WithCooldown(time.Minute),
		circuit.WithClock(func() time.Time { return now }),
	)
	m := NewHTTPMatcher(srv.URL, discardLogger(), WithBreaker(breaker))

	for i := 0; i < 2; i++ {
		_, err := m.Compare(context.Background(), "reference", "live")
		require.True(t, IsUnavailable(err))
	}
	require.True(t, breaker.IsOpen())

	_, err := m.Compare(context.Background(), "reference", "live")
	assert.True(t, IsUnavailable(err))
	assert.EqualValues(t, 2, calls.Load(), "open circuit skips the matcher")
}

type doerFunc func(*http.Request) (*http.Response, error)

func (f doerFunc) Do(r *http.Request) (*http.Response, error) { return f(r) }

func TestHTTPMatcher_CustomClient(t *testing.T) {
	m := NewHTTPMatcher("http://matcher.invalid/", discardLogger(), WithHTTPClient(doerFunc(func(r *http.Request) (*http.Response, error) {
		assert.Equal(t, "http://matcher.invalid/verify", r.URL.String())
		return nil, errors.New("dial refused")
	})))
	_, err := m.Compare(context.Background(), "reference", "live")
	assert.True(t, IsUnavailable(err))
}

func TestStaticMatcher(t *testing.T) {
	v, err := StaticMatcher{Verdict: Verified}.Compare(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, Verified, v)

	v, err = StaticMatcher{}.Compare(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Equal(t, NotVerified, v)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = StaticMatcher{Verdict: Verified}.Compare(ctx, "a", "b")
	assert.True(t, IsUnavailable(err))
}
