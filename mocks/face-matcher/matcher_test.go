package main

import (
	"context"
	"encoding/base64"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"votebooth/internal/liveness"
	"votebooth/pkg/testutil"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestCompareMode(t *testing.T) {
	img := base64.StdEncoding.EncodeToString([]byte("face-bytes"))
	other := base64.StdEncoding.EncodeToString([]byte("someone-else"))
	router := newRouter(ModeCompare, discard())

	rr := testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/verify", map[string]string{
		"img1_base64": img, "img2_base64": "data:image/jpeg;base64," + img,
	}))
	testutil.AssertStatusOK(t, rr)
	testutil.AssertJSONContains(t, rr, "verified", true)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/verify", map[string]string{
		"img1_base64": img, "img2_base64": other,
	}))
	testutil.AssertJSONContains(t, rr, "verified", false)

	rr = testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, "/verify", map[string]string{
		"img1_base64": "%%%", "img2_base64": other,
	}))
	testutil.AssertStatus(t, rr, http.StatusBadRequest)
}

func TestLivenessClientAgainstStub(t *testing.T) {
	img := base64.StdEncoding.EncodeToString([]byte("face-bytes"))

	t.Run("verified", func(t *testing.T) {
		srv := httptest.NewServer(newRouter(ModeCompare, discard()))
		defer srv.Close()

		verdict, err := liveness.NewHTTPMatcher(srv.URL, discard()).Compare(context.Background(), img, img)
		require.NoError(t, err)
		assert.Equal(t, liveness.Verified, verdict)
	})

	t.Run("outage is never a verdict", func(t *testing.T) {
		srv := httptest.NewServer(newRouter(ModeDown, discard()))
		defer srv.Close()

		_, err := liveness.NewHTTPMatcher(srv.URL, discard()).Compare(context.Background(), img, img)
		require.Error(t, err)
		assert.True(t, liveness.IsUnavailable(err))
	})
}
