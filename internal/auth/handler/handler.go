package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"votebooth/internal/auth/models"
	id "votebooth/pkg/domain"
	dErrors "votebooth/pkg/domain-errors"
	"votebooth/pkg/platform/httputil"
	"votebooth/pkg/requestcontext"
)

// Service defines the check-in stage operations.
type Service interface {
	Initiate(ctx context.Context, req *models.InitiateRequest) (*models.InitiateResult, error)
	VerifyCode(ctx context.Context, req *models.VerifyCodeRequest) (*models.StageResult, error)
	VerifyFace(ctx context.Context, voterID id.VoterID, req *models.FaceRequest) (*models.StageResult, error)
}

// Handler serves the voter check-in endpoints.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the unauthenticated check-in steps.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/voter/initiate", h.HandleInitiate)
	r.Post("/auth/voter/verify", h.HandleVerifyCode)
}

// RegisterFace mounts the liveness step. The caller must guard it with an
// otp-verified credential.
func (h *Handler) RegisterFace(r chi.Router) {
	r.Post("/verification/face", h.HandleVerifyFace)
}

// HandleInitiate handles POST /auth/voter/initiate.
//
// Input: { "identifierType": "AADHAAR", "identifierValue": "123456789012" }
// Output: { "message": "...", "phoneHint": "3210" }
func (h *Handler) HandleInitiate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.InitiateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.Initiate(ctx, req)
	if err != nil {
		h.logFailure(ctx, "check-in initiation failed", err, requestID, "identifier_type", req.IdentifierType)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleVerifyCode handles POST /auth/voter/verify and returns an
// otp-verified credential.
func (h *Handler) HandleVerifyCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.VerifyCodeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.VerifyCode(ctx, req)
	if err != nil {
		h.logFailure(ctx, "code verification failed", err, requestID, "identifier_type", req.IdentifierType)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

// HandleVerifyFace handles POST /verification/face and returns a
// vote-eligible credential for the credential's subject.
func (h *Handler) HandleVerifyFace(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	voterID, err := httputil.RequireVoterID(ctx, h.logger, requestID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[models.FaceRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.VerifyFace(ctx, voterID, req)
	if err != nil {
		h.logFailure(ctx, "face verification failed", err, requestID, "voter_id", voterID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error, requestID string, attrs ...any) {
	args := append([]any{"error", err, "request_id", requestID}, attrs...)
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg, args...)
		return
	}
	h.logger.WarnContext(ctx, msg, args...)
}
