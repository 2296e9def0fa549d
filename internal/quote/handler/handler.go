package handler

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"loanbroker/internal/emi"
	"loanbroker/internal/quote/models"
	"loanbroker/internal/quote/report"
	dErrors "loanbroker/pkg/domain-errors"
	"loanbroker/pkg/platform/httputil"
	"loanbroker/pkg/requestcontext"
)

type Service interface {
	Quote(ctx context.Context, in emi.Input) (*models.Quote, error)
	Schedule(ctx context.Context, in emi.Input) (*models.ScheduleResponse, error)
	Limits() emi.Limits
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/v1/emi", h.HandleQuoteJSON)
	r.Get("/v1/emi", h.HandleQuoteQuery)
	r.Get("/v1/emi/limits", h.HandleLimits)
	r.Get("/v1/emi/schedule", h.HandleSchedule)
	r.Get("/v1/emi/schedule.pdf", h.HandleSchedulePDF)
}

// HandleQuoteJSON takes a strict JSON body.
func (h *Handler) HandleQuoteJSON(w http.ResponseWriter, r *http.Request) {
	var req models.QuoteRequest
	if err := httputil.DecodeJSON(w, r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.writeQuote(w, r, req.Input())
}

// HandleQuoteQuery is the live-calculator path: unparseable or missing
// fields are treated as zero and produce the zero state.
func (h *Handler) HandleQuoteQuery(w http.ResponseWriter, r *http.Request) {
	h.writeQuote(w, r, queryInput(r))
}

func (h *Handler) HandleLimits(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.service.Limits())
}

func (h *Handler) HandleSchedule(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	resp, err := h.service.Schedule(ctx, queryInput(r))
	if err != nil {
		h.logFailure(ctx, "schedule failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleSchedulePDF(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	in := queryInput(r)
	resp, err := h.service.Schedule(ctx, in)
	if err != nil {
		h.logFailure(ctx, "schedule pdf failed", err)
		httputil.WriteError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := report.SchedulePDF(&buf, in, resp.Quote.Result, resp.Periods, requestcontext.Now(ctx)); err != nil {
		h.logFailure(ctx, "render schedule pdf failed", err)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render pdf"))
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="emi-schedule-%s.pdf"`,
		strconv.FormatInt(int64(in.Principal), 10)))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) writeQuote(w http.ResponseWriter, r *http.Request, in emi.Input) {
	ctx := r.Context()
	q, err := h.service.Quote(ctx, in)
	if err != nil {
		h.logFailure(ctx, "quote failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, q)
}

func (h *Handler) logFailure(ctx context.Context, msg string, err error) {
	level := slog.LevelInfo
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, msg,
		"error", err,
		"request_id", requestcontext.RequestID(ctx),
	)
}

func queryInput(r *http.Request) emi.Input {
	q := r.URL.Query()
	return emi.ParseInput(q.Get("principal"), q.Get("rate"), q.Get("tenure"))
}
