package httputil

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	dErrors "votebooth/pkg/domain-errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type codeRequest struct {
	Contact string `json:"contact"`
	Code    string `json:"code"`
}

func (r *codeRequest) Sanitize() {
	r.Contact = strings.TrimSpace(r.Contact)
	r.Code = strings.TrimSpace(r.Code)
}

func (r *codeRequest) Validate() error {
	if r.Code == "" {
		return errors.New("code is required")
	}
	if r.Contact == "blocked" {
		return dErrors.New(dErrors.CodeForbidden, "contact blocked")
	}
	return nil
}

func TestDecodeAndPrepare(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("sanitizes before validating", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"contact":"  9876543210 ","code":" 123456 "}`))
		w := httptest.NewRecorder()

		req, ok := DecodeAndPrepare[codeRequest](w, r, logger, ctx, "req-1")

		require.True(t, ok)
		assert.Equal(t, "9876543210", req.Contact)
		assert.Equal(t, "123456", req.Code)
	})

	t.Run("plain validation error becomes 400", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"contact":"x"}`))
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[codeRequest](w, r, logger, ctx, "req-2")

		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "validation_error")
	})

	t.Run("domain validation error keeps its code", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"contact":"blocked","code":"1"}`))
		w := httptest.NewRecorder()

		_, ok := DecodeAndPrepare[codeRequest](w, r, logger, ctx, "req-3")

		assert.False(t, ok)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("malformed JSON", func(t *testing.T) {
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{not json`))
		w := httptest.NewRecorder()

		_, ok := DecodeJSON[codeRequest](w, r, logger, ctx, "req-4")

		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "invalid request body")
	})

	t.Run("oversized body rejected", func(t *testing.T) {
		big := `{"contact":"` + strings.Repeat("a", int(MaxBodyBytes)) + `","code":"1"}`
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(big))
		w := httptest.NewRecorder()

		_, ok := DecodeJSON[codeRequest](w, r, logger, ctx, "req-5")

		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
