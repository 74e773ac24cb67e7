package main

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Mode selects how the stub answers comparisons.
type Mode string

const (
	// ModeCompare verifies when both images decode to identical bytes.
	ModeCompare Mode = "compare"
	ModeAlways  Mode = "always"
	ModeNever   Mode = "never"
	// ModeDown answers every request with 503 to exercise outage handling.
	ModeDown Mode = "down"
)

const maxRequestBytes = 8 << 20

type verifyRequest struct {
	Img1 string `json:"img1_base64"`
	Img2 string `json:"img2_base64"`
}

type verifyResponse struct {
	Verified *bool  `json:"verified,omitempty"`
	Error    string `json:"error,omitempty"`
}

type matcher struct {
	mode   Mode
	logger *slog.Logger
}

func newRouter(mode Mode, logger *slog.Logger) http.Handler {
	m := &matcher{mode: mode, logger: logger}
	r := chi.NewRouter()
	r.Post("/verify", m.handleVerify)
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return r
}

func (m *matcher) handleVerify(w http.ResponseWriter, r *http.Request) {
	if m.mode == ModeDown {
		writeJSON(w, http.StatusServiceUnavailable, verifyResponse{Error: "matcher offline"})
		return
	}

	var req verifyRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, verifyResponse{Error: "invalid request body"})
		return
	}
	reference, err := decodeImage(req.Img1)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, verifyResponse{Error: "img1_base64 is not valid base64"})
		return
	}
	live, err := decodeImage(req.Img2)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, verifyResponse{Error: "img2_base64 is not valid base64"})
		return
	}

	var verified bool
	switch m.mode {
	case ModeAlways:
		verified = true
	case ModeNever:
		verified = false
	default:
		verified = len(reference) > 0 && bytes.Equal(reference, live)
	}
	m.logger.InfoContext(r.Context(), "comparison answered", "mode", string(m.mode), "verified", verified)
	writeJSON(w, http.StatusOK, verifyResponse{Verified: &verified})
}

// decodeImage accepts raw base64 or a data URL.
func decodeImage(s string) ([]byte, error) {
	if i := strings.Index(s, ","); i >= 0 && strings.HasPrefix(s, "data:") {
		s = s[i+1:]
	}
	return base64.StdEncoding.DecodeString(strings.TrimSpace(s))
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
