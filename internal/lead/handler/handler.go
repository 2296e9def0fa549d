package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"loanbroker/internal/lead/models"
	id "loanbroker/pkg/domain"
	dErrors "loanbroker/pkg/domain-errors"
	"loanbroker/pkg/platform/httputil"
	"loanbroker/pkg/requestcontext"
)

type Service interface {
	Capture(ctx context.Context, req models.CaptureRequest) (*models.Lead, error)
	Get(ctx context.Context, leadID id.LeadID) (*models.Lead, error)
	List(ctx context.Context, filter models.ListFilter) (*models.ListResponse, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the public capture endpoint.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/leads", h.HandleCapture)
}

// RegisterAdmin mounts listing endpoints; the caller applies admin auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/v1/admin/leads", h.HandleList)
	r.Get("/v1/admin/leads/{id}", h.HandleGet)
}

type captureResponse struct {
	ID        id.LeadID `json:"id"`
	Message   string    `json:"message"`
	CreatedAt string    `json:"created_at"`
}

func (h *Handler) HandleCapture(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.CaptureRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	lead, err := h.service.Capture(ctx, req)
	if err != nil {
		h.logFailure(ctx, "lead capture failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, captureResponse{
		ID:        lead.ID,
		Message:   "Thank you, an advisor will contact you shortly.",
		CreatedAt: lead.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := parseFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp, err := h.service.List(ctx, filter)
	if err != nil {
		h.logFailure(ctx, "lead list failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	leadID, err := id.ParseLeadID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	lead, err := h.service.Get(ctx, leadID)
	if err != nil {
		h.logFailure(ctx, "lead lookup failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, lead)
}

func parseFilter(r *http.Request) (models.ListFilter, error) {
	q := r.URL.Query()
	filter := models.ListFilter{Email: q.Get("email")}
	if raw := q.Get("loan_type"); raw != "" {
		lt, err := id.ParseLoanType(raw)
		if err != nil {
			return filter, err
		}
		filter.LoanType = lt
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		return filter, err
	}
	if filter.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		return filter, err
	}
	return filter, nil
}

func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, name+" must be a non-negative integer")
	}
	return v, nil
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
