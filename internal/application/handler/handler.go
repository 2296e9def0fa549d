package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"loanbroker/internal/application/models"
	id "loanbroker/pkg/domain"
	dErrors "loanbroker/pkg/domain-errors"
	"loanbroker/pkg/platform/httputil"
	"loanbroker/pkg/requestcontext"
)

type Service interface {
	Create(ctx context.Context, userID id.UserID, req models.CreateRequest) (*models.Application, error)
	SaveStep(ctx context.Context, userID id.UserID, appID id.ApplicationID, in models.StepInput) (*models.Application, error)
	Submit(ctx context.Context, userID id.UserID, appID id.ApplicationID) (*models.Application, error)
	Get(ctx context.Context, userID id.UserID, admin bool, appID id.ApplicationID) (*models.Application, error)
	ListMine(ctx context.Context, userID id.UserID) ([]models.Summary, error)
	ListForReview(ctx context.Context, filter models.ReviewFilter) (*models.ListResponse, error)
	StartReview(ctx context.Context, adminID id.UserID, appID id.ApplicationID) (*models.Application, error)
	Review(ctx context.Context, adminID id.UserID, appID id.ApplicationID, req models.ReviewRequest) (*models.Application, error)
}

type Handler struct {
	service   Service
	logger    *slog.Logger
	adminRole string
}

func New(service Service, logger *slog.Logger, adminRole string) *Handler {
	return &Handler{service: service, logger: logger, adminRole: adminRole}
}

// RegisterPublic mounts the product catalogue.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/v1/loan-types", h.HandleLoanTypes)
}

// Register mounts customer endpoints; the caller applies authentication.
func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/applications", h.HandleCreate)
	r.Get("/v1/applications", h.HandleListMine)
	r.Get("/v1/applications/{id}", h.HandleGet)
	r.Put("/v1/applications/{id}/steps/{step}", h.HandleSaveStep)
	r.Post("/v1/applications/{id}/submit", h.HandleSubmit)
}

// RegisterAdmin mounts the review queue; the caller applies admin auth.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/v1/admin/applications", h.HandleListForReview)
	r.Get("/v1/admin/applications/{id}", h.HandleGet)
	r.Post("/v1/admin/applications/{id}/start-review", h.HandleStartReview)
	r.Post("/v1/admin/applications/{id}/review", h.HandleReview)
}

type loanTypeInfo struct {
	LoanType       id.LoanType `json:"loan_type"`
	RequiredFields []string    `json:"required_fields"`
}

func (h *Handler) HandleLoanTypes(w http.ResponseWriter, _ *http.Request) {
	out := make([]loanTypeInfo, 0, len(id.AllLoanTypes()))
	for _, lt := range id.AllLoanTypes() {
		out = append(out, loanTypeInfo{LoanType: lt, RequiredFields: models.RequiredDetailFields(lt)})
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"loan_types": out, "steps": models.AllSteps()})
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req models.CreateRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	app, err := h.service.Create(ctx, requestcontext.UserID(ctx), req)
	if err != nil {
		h.logFailure(ctx, "create application failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, app)
}

func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	apps, err := h.service.ListMine(ctx, requestcontext.UserID(ctx))
	if err != nil {
		h.logFailure(ctx, "list applications failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.ListResponse{Applications: apps, Total: len(apps)})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	admin := requestcontext.Role(ctx) == h.adminRole
	app, err := h.service.Get(ctx, requestcontext.UserID(ctx), admin, appID)
	if err != nil {
		h.logFailure(ctx, "load application failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) HandleSaveStep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	step, err := models.ParseStep(chi.URLParam(r, "step"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	in := models.StepInput{Step: step}
	var target any
	switch step {
	case models.StepApplicant:
		in.Applicant = &models.Applicant{}
		target = in.Applicant
	case models.StepEmployment:
		in.Employment = &models.Employment{}
		target = in.Employment
	case models.StepLoan:
		in.Loan = &models.LoanTerms{}
		target = in.Loan
	case models.StepDetails:
		target = &in.Details
	}
	if err := httputil.DecodeJSON(w, r, target); err != nil {
		httputil.WriteError(w, err)
		return
	}

	app, err := h.service.SaveStep(ctx, requestcontext.UserID(ctx), appID, in)
	if err != nil {
		h.logFailure(ctx, "save application step failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	app, err := h.service.Submit(ctx, requestcontext.UserID(ctx), appID)
	if err != nil {
		h.logFailure(ctx, "submit application failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) HandleListForReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := parseReviewFilter(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp, err := h.service.ListForReview(ctx, filter)
	if err != nil {
		h.logFailure(ctx, "list review queue failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleStartReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	app, err := h.service.StartReview(ctx, requestcontext.UserID(ctx), appID)
	if err != nil {
		h.logFailure(ctx, "start review failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

func (h *Handler) HandleReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	appID, err := id.ParseApplicationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	var req models.ReviewRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	app, err := h.service.Review(ctx, requestcontext.UserID(ctx), appID, req)
	if err != nil {
		h.logFailure(ctx, "review failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, app)
}

// parseReviewFilter reads status (comma separated), loan_type, limit, offset.
func parseReviewFilter(r *http.Request) (models.ReviewFilter, error) {
	q := r.URL.Query()
	var filter models.ReviewFilter
	if raw := q.Get("status"); raw != "" {
		for _, part := range strings.Split(raw, ",") {
			st := models.Status(strings.TrimSpace(part))
			if !st.IsValid() {
				return filter, dErrors.New(dErrors.CodeBadRequest, "unknown status "+part)
			}
			filter.Statuses = append(filter.Statuses, st)
		}
	}
	if raw := q.Get("loan_type"); raw != "" {
		lt, err := id.ParseLoanType(raw)
		if err != nil {
			return filter, err
		}
		filter.LoanType = lt
	}
	for name, dst := range map[string]*int{"limit": &filter.Limit, "offset": &filter.Offset} {
		raw := q.Get(name)
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return filter, dErrors.New(dErrors.CodeBadRequest, name+" must be a non-negative integer")
		}
		*dst = v
	}
	return filter, nil
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
