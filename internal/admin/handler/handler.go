package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"votebooth/internal/admin"
	dErrors "votebooth/pkg/domain-errors"
	"votebooth/pkg/platform/httputil"
	"votebooth/pkg/requestcontext"
)

// Service defines the admin dashboard operations exposed over HTTP.
type Service interface {
	Stats(ctx context.Context) (*admin.StatsResponse, error)
	AuditTrail(ctx context.Context, limit int) (*admin.AuditTrailResponse, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the dashboard. The caller applies the admin token guard.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/stats", h.HandleStats)
	r.Get("/admin/audit", h.HandleAuditTrail)
}

// HandleStats handles GET /admin/stats.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	stats, err := h.service.Stats(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to load stats", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// HandleAuditTrail handles GET /admin/audit?limit=N.
func (h *Handler) HandleAuditTrail(w http.ResponseWriter, r *http.Request) {
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

	trail, err := h.service.AuditTrail(ctx, limit)
	if err != nil {
		h.logger.WarnContext(ctx, "failed to load audit trail", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, trail)
}
