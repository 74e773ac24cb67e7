package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"votebooth/internal/voter/models"
	id "votebooth/pkg/domain"
	dErrors "votebooth/pkg/domain-errors"
	"votebooth/pkg/platform/httputil"
	liststr "votebooth/pkg/platform/strings"
	"votebooth/pkg/requestcontext"
)

// Service defines the voter roll operations exposed over HTTP.
type Service interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.Voter, error)
	CreateDirect(ctx context.Context, req *models.RegisterRequest) (*models.Voter, error)
	GetByID(ctx context.Context, voterID id.VoterID) (*models.Voter, error)
	Approve(ctx context.Context, voterID id.VoterID) (*models.Voter, error)
	Flag(ctx context.Context, voterID id.VoterID, reason string) (*models.Voter, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Voter, error)
}

// Handler serves voter self-registration and the administrative roll endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public registration endpoint.
func (h *Handler) Register(r chi.Router) {
	r.Post("/voters", h.HandleRegister)
}

// RegisterStaff mounts the read-only roll listing for booth officers. The
// caller applies the staff guard.
func (h *Handler) RegisterStaff(r chi.Router) {
	r.Get("/voters", h.HandleList)
}

// RegisterAdmin mounts roll management. The caller applies the admin token guard.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/voters", h.HandleList)
	r.Post("/admin/voters", h.HandleCreate)
	r.Get("/admin/voters/{voter_id}", h.HandleGet)
	r.Post("/admin/voters/{voter_id}/approve", h.HandleApprove)
	r.Post("/admin/voters/{voter_id}/flag", h.HandleFlag)
}

// HandleRegister handles POST /voters. New voters start Pending.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	voter, err := h.service.Register(ctx, req)
	if err != nil {
		h.logFailure(ctx, "voter registration failed", err, requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.NewVoterResponse(voter))
}

// HandleCreate handles POST /admin/voters.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	voter, err := h.service.CreateDirect(ctx, req)
	if err != nil {
		h.logFailure(ctx, "admin voter creation failed", err, requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, models.NewVoterResponse(voter))
}

// HandleList handles GET /admin/voters and GET /voters, filtered by
// ?status=Pending,Flagged.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	var filter models.ListFilter
	if raw := r.URL.Query().Get("status"); raw != "" {
		for _, part := range liststr.SplitList(raw) {
			filter.Statuses = append(filter.Statuses, models.Status(part))
		}
	}

	voters, err := h.service.List(ctx, filter)
	if err != nil {
		h.logFailure(ctx, "failed to list voters", err, requestID)
		httputil.WriteError(w, err)
		return
	}

	resp := make([]models.VoterResponse, 0, len(voters))
	for _, v := range voters {
		resp = append(resp, models.NewVoterResponse(v))
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"voters": resp,
		"total":  len(resp),
	})
}

// HandleGet handles GET /admin/voters/{voter_id}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	h.withVoterID(w, r, func(ctx context.Context, voterID id.VoterID) (*models.Voter, error) {
		return h.service.GetByID(ctx, voterID)
	})
}

// HandleApprove handles POST /admin/voters/{voter_id}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.withVoterID(w, r, h.service.Approve)
}

// HandleFlag handles POST /admin/voters/{voter_id}/flag. The body is optional.
func (h *Handler) HandleFlag(w http.ResponseWriter, r *http.Request) {
	var reason string
	if r.ContentLength > 0 {
		ctx := r.Context()
		req, ok := httputil.DecodeAndPrepare[models.FlagRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
		if !ok {
			return
		}
		reason = req.Reason
	}
	h.withVoterID(w, r, func(ctx context.Context, voterID id.VoterID) (*models.Voter, error) {
		return h.service.Flag(ctx, voterID, reason)
	})
}

func (h *Handler) withVoterID(w http.ResponseWriter, r *http.Request, fn func(context.Context, id.VoterID) (*models.Voter, error)) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	voterID, err := id.ParseVoterID(chi.URLParam(r, "voter_id"))
	if err != nil {
		h.logger.WarnContext(ctx, "invalid voter id", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	voter, err := fn(ctx, voterID)
	if err != nil {
		h.logFailure(ctx, "voter operation failed", err, requestID)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.NewVoterResponse(voter))
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error, requestID string) {
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg, "error", err, "request_id", requestID)
		return
	}
	h.logger.WarnContext(ctx, msg, "error", err, "request_id", requestID)
}
