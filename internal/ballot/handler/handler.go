package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"votebooth/internal/ballot/models"
	id "votebooth/pkg/domain"
	dErrors "votebooth/pkg/domain-errors"
	"votebooth/pkg/platform/httputil"
	"votebooth/pkg/requestcontext"
)

const (
	defaultLogLimit = 100
	maxLogLimit     = 1000
)

// Service defines the ballot operations exposed over HTTP.
type Service interface {
	CastVote(ctx context.Context, voterID id.VoterID, rawCandidateID string) (*models.Receipt, error)
	ListCandidates(ctx context.Context) ([]*models.Candidate, error)
	CreateCandidate(ctx context.Context, req *models.CreateCandidateRequest) (*models.Candidate, error)
	Results(ctx context.Context) ([]models.Result, error)
	VoteLogs(ctx context.Context, limit int) ([]*models.VoteLog, error)
}

// Handler serves the ballot to eligible voters and the tally to admins.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterVoter mounts the ballot. The caller guards it with a vote-eligible
// credential.
func (h *Handler) RegisterVoter(r chi.Router) {
	r.Get("/candidates", h.HandleListCandidates)
	r.Post("/vote", h.HandleCastVote)
}

// RegisterAdmin mounts candidate management and the tally. The caller applies
// the admin token guard.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/candidates", h.HandleListCandidates)
	r.Post("/admin/candidates", h.HandleCreateCandidate)
	r.Get("/admin/results", h.HandleResults)
	r.Get("/admin/votes", h.HandleVoteLogs)
}

// HandleCastVote handles POST /vote.
//
// Input: { "candidateId": "<uuid>" }
// Output: the vote receipt. A second cast by the same voter is 409.
func (h *Handler) HandleCastVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	voterID, err := httputil.RequireVoterID(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.CastRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	receipt, err := h.service.CastVote(ctx, voterID, req.CandidateID)
	if err != nil {
		h.logFailure(ctx, "vote cast failed", err, requestID, "voter_id", voterID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "vote recorded",
		"receipt": receipt,
	})
}

// HandleListCandidates handles GET /candidates and GET /admin/candidates.
func (h *Handler) HandleListCandidates(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	candidates, err := h.service.ListCandidates(ctx)
	if err != nil {
		h.logFailure(ctx, "failed to list candidates", err, requestID)
		httputil.WriteError(w, err)
		return
	}
	if candidates == nil {
		candidates = []*models.Candidate{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"candidates": candidates,
		"total":      len(candidates),
	})
}

// HandleCreateCandidate handles POST /admin/candidates.
func (h *Handler) HandleCreateCandidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.CreateCandidateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	candidate, err := h.service.CreateCandidate(ctx, req)
	if err != nil {
		h.logFailure(ctx, "candidate creation failed", err, requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, candidate)
}

// HandleResults handles GET /admin/results.
func (h *Handler) HandleResults(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	results, err := h.service.Results(ctx)
	if err != nil {
		h.logFailure(ctx, "failed to compute results", err, requestID)
		httputil.WriteError(w, err)
		return
	}
	var total int64
	for _, res := range results {
		total += res.Votes
	}
	if results == nil {
		results = []models.Result{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"results":    results,
		"totalVotes": total,
	})
}

// HandleVoteLogs handles GET /admin/votes?limit=N, newest first.
func (h *Handler) HandleVoteLogs(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	logs, err := h.service.VoteLogs(ctx, limit)
	if err != nil {
		h.logFailure(ctx, "failed to load vote log", err, requestID)
		httputil.WriteError(w, err)
		return
	}
	if logs == nil {
		logs = []*models.VoteLog{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"votes": logs,
		"total": len(logs),
	})
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultLogLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "limit must be a positive integer")
	}
	return min(n, maxLogLimit), nil
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error, requestID string, attrs ...any) {
	args := append([]any{"error", err, "request_id", requestID}, attrs...)
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg, args...)
		return
	}
	h.logger.WarnContext(ctx, msg, args...)
}
