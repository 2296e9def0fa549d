package handler

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanbroker/internal/application/models"
	"loanbroker/internal/application/service"
	"loanbroker/internal/application/store"
	"loanbroker/internal/emi"
	"loanbroker/internal/platform/logger"
	id "loanbroker/pkg/domain"
	"loanbroker/pkg/testutil"
)

type harness struct {
	t      *testing.T
	router http.Handler
	user   id.UserID
	admin  id.UserID
}

func newHarness(t *testing.T) *harness {
	svc := service.New(store.NewInMemory(), emi.DefaultLimits(), service.WithLogger(logger.Discard()))
	h := New(svc, logger.Discard(), "admin")
	r := chi.NewRouter()
	h.RegisterPublic(r)
	h.Register(r)
	h.RegisterAdmin(r)
	return &harness{t: t, router: r, user: id.NewUserID(), admin: id.NewUserID()}
}

func (h *harness) asUser(method, path string, body any) *http.Request {
	return testutil.WithIdentity(testutil.NewJSONRequest(h.t, method, path, body), h.user, "user", "user@example.com")
}

func (h *harness) asAdmin(method, path string, body any) *http.Request {
	return testutil.WithIdentity(testutil.NewJSONRequest(h.t, method, path, body), h.admin, "admin", "ops@example.com")
}

func (h *harness) do(req *http.Request, want int) []byte {
	h.t.Helper()
	rr := testutil.DoRequest(h.router, req)
	require.Equal(h.t, want, rr.Code, rr.Body.String())
	return rr.Body.Bytes()
}

func TestApplicationLifecycle(t *testing.T) {
	h := newHarness(t)

	rr := testutil.DoRequest(h.router, h.asUser(http.MethodPost, "/v1/applications", map[string]string{"loan_type": "vehicle"}))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	app := testutil.UnmarshalResponse[models.Application](t, rr)
	base := fmt.Sprintf("/v1/applications/%s", app.ID)

	h.do(h.asUser(http.MethodPut, base+"/steps/applicant", map[string]any{
		"full_name": "Sanjay Patil", "date_of_birth": "1985-01-20", "phone": "9876543210", "city": "Nagpur",
	}), http.StatusOK)
	h.do(h.asUser(http.MethodPut, base+"/steps/employment", map[string]any{
		"type": "self_employed", "monthly_income": 150000, "years_employed": 10,
	}), http.StatusOK)
	h.do(h.asUser(http.MethodPut, base+"/steps/loan", map[string]any{
		"amount": 900000, "tenure_years": 5, "annual_rate_percent": 9.5,
	}), http.StatusOK)
	h.do(h.asUser(http.MethodPut, base+"/steps/details", map[string]string{
		"vehicle_make": "Tata", "vehicle_model": "Nexon EV",
	}), http.StatusOK)

	rr = testutil.DoRequest(h.router, h.asUser(http.MethodPost, base+"/submit", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	submitted := testutil.UnmarshalResponse[models.Application](t, rr)
	assert.Equal(t, models.StatusSubmitted, submitted.Status)
	require.NotNil(t, submitted.Estimate)
	assert.Greater(t, submitted.Estimate.Installment, 0.0)

	rr = testutil.DoRequest(h.router, h.asAdmin(http.MethodGet, "/v1/admin/applications?status=submitted&loan_type=vehicle", nil))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	queue := testutil.UnmarshalResponse[models.ListResponse](t, rr)
	require.Equal(t, 1, queue.Total)
	assert.Equal(t, app.Reference, queue.Applications[0].Reference)

	adminBase := fmt.Sprintf("/v1/admin/applications/%s", app.ID)
	h.do(h.asAdmin(http.MethodPost, adminBase+"/start-review", nil), http.StatusOK)
	rr = testutil.DoRequest(h.router, h.asAdmin(http.MethodPost, adminBase+"/review", map[string]string{"decision": "approve", "note": "verified"}))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	reviewed := testutil.UnmarshalResponse[models.Application](t, rr)
	assert.Equal(t, models.StatusApproved, reviewed.Status)

	rr = testutil.DoRequest(h.router, h.asUser(http.MethodGet, "/v1/applications", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	mine := testutil.UnmarshalResponse[models.ListResponse](t, rr)
	require.Len(t, mine.Applications, 1)
	assert.Equal(t, models.StatusApproved, mine.Applications[0].Status)
}

func TestApplicationErrors(t *testing.T) {
	h := newHarness(t)
	rr := testutil.DoRequest(h.router, h.asUser(http.MethodPost, "/v1/applications", map[string]string{"loan_type": "home"}))
	require.Equal(t, http.StatusCreated, rr.Code)
	app := testutil.UnmarshalResponse[models.Application](t, rr)
	base := fmt.Sprintf("/v1/applications/%s", app.ID)

	t.Run("unknown step", func(t *testing.T) {
		rr := testutil.DoRequest(h.router, h.asUser(http.MethodPut, base+"/steps/documents", map[string]string{}))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})

	t.Run("unknown field in step body", func(t *testing.T) {
		rr := testutil.DoRequest(h.router, h.asUser(http.MethodPut, base+"/steps/loan", map[string]any{"amount": 1, "colour": "red"}))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})

	t.Run("incomplete submit", func(t *testing.T) {
		rr := testutil.DoRequest(h.router, h.asUser(http.MethodPost, base+"/submit", nil))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "validation_error")
	})

	t.Run("other customers cannot see it", func(t *testing.T) {
		req := testutil.WithIdentity(testutil.NewJSONRequest(t, http.MethodGet, base, nil), id.NewUserID(), "user", "x@example.com")
		rr := testutil.DoRequest(h.router, req)
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})

	t.Run("admins can", func(t *testing.T) {
		h.do(h.asAdmin(http.MethodGet, fmt.Sprintf("/v1/admin/applications/%s", app.ID), nil), http.StatusOK)
	})

	t.Run("draft cannot be reviewed", func(t *testing.T) {
		rr := testutil.DoRequest(h.router, h.asAdmin(http.MethodPost, fmt.Sprintf("/v1/admin/applications/%s/review", app.ID), map[string]string{"decision": "approve"}))
		testutil.AssertStatusAndError(t, rr, http.StatusConflict, "invalid_state")
	})

	t.Run("bad status filter", func(t *testing.T) {
		rr := testutil.DoRequest(h.router, h.asAdmin(http.MethodGet, "/v1/admin/applications?status=pending", nil))
		testutil.AssertStatusAndError(t, rr, http.StatusBadRequest, "bad_request")
	})
}

func TestLoanTypes(t *testing.T) {
	h := newHarness(t)
	rr := testutil.DoRequest(h.router, testutil.NewJSONRequest(t, http.MethodGet, "/v1/loan-types", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := testutil.UnmarshalResponse[struct {
		LoanTypes []loanTypeInfo `json:"loan_types"`
		Steps     []models.Step  `json:"steps"`
	}](t, rr)
	assert.Len(t, body.LoanTypes, 5)
	assert.Equal(t, models.AllSteps(), body.Steps)
}
