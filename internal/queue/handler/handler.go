package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"votebooth/internal/queue/models"
	id "votebooth/pkg/domain"
	dErrors "votebooth/pkg/domain-errors"
	"votebooth/pkg/platform/httputil"
	"votebooth/pkg/requestcontext"
)

// Service defines the queue operations exposed over HTTP.
type Service interface {
	AddTicket(ctx context.Context, req *models.AddTicketRequest) (*models.Ticket, error)
	RequestSlot(ctx context.Context, voterID id.VoterID) (*models.SlotResult, error)
	Complete(ctx context.Context, ticketID id.TicketID) (*models.Ticket, error)
	List(ctx context.Context, status models.Status) ([]*models.Ticket, error)
	Clear(ctx context.Context) (int, error)
	EstimateWait(ctx context.Context) (models.WaitEstimate, error)
}

// Handler serves the voter slot request, staff queue management and the
// display stream.
type Handler struct {
	service   Service
	observers Observers
	origins   []string
	logger    *slog.Logger
}

type Option func(*Handler)

// WithStream enables GET /queue/stream backed by observers.
func WithStream(observers Observers, allowedOrigins []string) Option {
	return func(h *Handler) {
		h.observers = observers
		h.origins = allowedOrigins
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// RegisterVoter mounts the slot request. The caller guards it with a
// vote-eligible credential.
func (h *Handler) RegisterVoter(r chi.Router) {
	r.Post("/queue/slot", h.HandleRequestSlot)
}

// Register mounts staff queue management. The caller applies the staff guard.
func (h *Handler) Register(r chi.Router) {
	r.Get("/queue", h.HandleList)
	r.Post("/queue", h.HandleAdd)
	r.Get("/queue/wait", h.HandleWait)
	r.Patch("/queue/{ticket_id}/complete", h.HandleComplete)
	r.Delete("/queue/reset", h.HandleClear)
}

// RegisterStream mounts the unauthenticated display channel.
func (h *Handler) RegisterStream(r chi.Router) {
	if h.observers == nil {
		return
	}
	r.Get("/queue/stream", h.HandleStream)
}

// HandleRequestSlot handles POST /queue/slot for the credential's voter.
func (h *Handler) HandleRequestSlot(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	voterID, err := httputil.RequireVoterID(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.RequestSlot(ctx, voterID)
	if err != nil {
		h.logFailure(ctx, "slot request failed", err, requestID, "voter_id", voterID.String())
		httputil.WriteError(w, err)
		return
	}
	status := http.StatusCreated
	if res.AlreadyQueued {
		status = http.StatusOK
	}
	httputil.WriteJSON(w, status, res)
}

// HandleAdd handles POST /queue.
//
// Input: { "holderName": "Asha", "voterId": "<optional uuid>" }
func (h *Handler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.AddTicketRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	ticket, err := h.service.AddTicket(ctx, req)
	if err != nil {
		h.logFailure(ctx, "manual ticket failed", err, requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, ticket)
}

// HandleList handles GET /queue?status=waiting|completed.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	status, err := models.ParseStatus(r.URL.Query().Get("status"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	tickets, err := h.service.List(ctx, status)
	if err != nil {
		h.logFailure(ctx, "failed to list tickets", err, requestID)
		httputil.WriteError(w, err)
		return
	}
	if tickets == nil {
		tickets = []*models.Ticket{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"tickets": tickets,
		"total":   len(tickets),
	})
}

// HandleWait handles GET /queue/wait.
func (h *Handler) HandleWait(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	est, err := h.service.EstimateWait(ctx)
	if err != nil {
		h.logFailure(ctx, "wait estimate failed", err, requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, est)
}

// HandleComplete handles PATCH /queue/{ticket_id}/complete.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	ticketID, err := id.ParseTicketID(chi.URLParam(r, "ticket_id"))
	if err != nil {
		h.logger.WarnContext(ctx, "invalid ticket id", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	ticket, err := h.service.Complete(ctx, ticketID)
	if err != nil {
		h.logFailure(ctx, "ticket completion failed", err, requestID, "ticket_id", ticketID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ticket)
}

// HandleClear handles DELETE /queue/reset.
func (h *Handler) HandleClear(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	removed, err := h.service.Clear(ctx)
	if err != nil {
		h.logFailure(ctx, "queue clear failed", err, requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "waiting queue cleared",
		"removed": removed,
	})
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error, requestID string, attrs ...any) {
	args := append([]any{"error", err, "request_id", requestID}, attrs...)
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg, args...)
		return
	}
	h.logger.WarnContext(ctx, msg, args...)
}
