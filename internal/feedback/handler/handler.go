package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"votebooth/internal/feedback/models"
	dErrors "votebooth/pkg/domain-errors"
	"votebooth/pkg/platform/httputil"
	"votebooth/pkg/requestcontext"
)

// Service defines the feedback operations exposed over HTTP.
type Service interface {
	Submit(ctx context.Context, req *models.SubmitRequest) (*models.Feedback, error)
	Recent(ctx context.Context, limit int) ([]*models.Feedback, error)
}

// Handler serves feedback submission and the administrative listing.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public submission endpoint.
func (h *Handler) Register(r chi.Router) {
	r.Post("/feedback", h.HandleSubmit)
}

// RegisterAdmin mounts the listing. The caller applies the admin token guard.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/feedback", h.HandleList)
}

// HandleSubmit handles POST /feedback.
//
// Input: { "voterId": "<uuid>", "message": "..." }
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.SubmitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	f, err := h.service.Submit(ctx, req)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			h.logger.ErrorContext(ctx, "feedback submission failed", "error", err, "request_id", requestID)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": "feedback submitted successfully",
		"id":      f.ID,
	})
}

// HandleList handles GET /admin/feedback?limit=N, newest first.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var limit int
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "limit must be an integer"))
			return
		}
		limit = n
	}

	items, err := h.service.Recent(ctx, limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list feedback", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	if items == nil {
		items = []*models.Feedback{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"feedback": items,
		"total":    len(items),
	})
}
