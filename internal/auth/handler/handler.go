package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"loanbroker/internal/auth/models"
	id "loanbroker/pkg/domain"
	dErrors "loanbroker/pkg/domain-errors"
	"loanbroker/pkg/platform/httputil"
	"loanbroker/pkg/requestcontext"
)

// Service is the account surface the handler needs.
type Service interface {
	Register(ctx context.Context, req models.RegisterRequest) (*models.TokenResult, error)
	Login(ctx context.Context, req models.LoginRequest) (*models.TokenResult, error)
	Me(ctx context.Context, userID id.UserID) (*models.User, error)
}

type Handler struct {
	service     Service
	logger      *slog.Logger
	requireAuth func(http.Handler) http.Handler
}

func New(service Service, logger *slog.Logger, requireAuth func(http.Handler) http.Handler) *Handler {
	return &Handler{service: service, logger: logger, requireAuth: requireAuth}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/auth/register", h.HandleRegister)
	r.Post("/v1/auth/login", h.HandleLogin)
	r.With(h.requireAuth).Get("/v1/auth/me", h.HandleMe)
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.RegisterRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.Register(ctx, req)
	if err != nil {
		h.logFailure(ctx, "register failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, res)
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.LoginRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	res, err := h.service.Login(ctx, req)
	if err != nil {
		h.logFailure(ctx, "login failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}
	user, err := h.service.Me(ctx, userID)
	if err != nil {
		h.logFailure(ctx, "load current user failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ToUserResponse(user))
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	level := slog.LevelWarn
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}
