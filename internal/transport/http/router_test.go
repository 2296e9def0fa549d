package httptransport

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	apphandler "loanbroker/internal/application/handler"
	appservice "loanbroker/internal/application/service"
	appstore "loanbroker/internal/application/store"
	authhandler "loanbroker/internal/auth/handler"
	authmodels "loanbroker/internal/auth/models"
	authservice "loanbroker/internal/auth/service"
	userstore "loanbroker/internal/auth/store/user"
	dashhandler "loanbroker/internal/dashboard/handler"
	dashservice "loanbroker/internal/dashboard/service"
	"loanbroker/internal/emi"
	jwttoken "loanbroker/internal/jwt_token"
	leadhandler "loanbroker/internal/lead/handler"
	leadservice "loanbroker/internal/lead/service"
	leadstore "loanbroker/internal/lead/store"
	"loanbroker/internal/platform/logger"
	"loanbroker/internal/platform/metrics"
	"loanbroker/internal/platform/middleware"
	quotehandler "loanbroker/internal/quote/handler"
	quoteservice "loanbroker/internal/quote/service"
	"loanbroker/pkg/testutil"
)

type fixture struct {
	router http.Handler
	auth   *authservice.Service
	health *Health
}

func newFixture(t *testing.T, limiter *middleware.RateLimiter) *fixture {
	t.Helper()
	log := logger.Discard()
	jwt := jwttoken.NewJWTService("router-test-key", "loanbroker", "loanbroker-api")
	validator := jwttoken.NewJWTServiceAdapter(jwt)

	users := userstore.New()
	auth, err := authservice.New(users, jwt,
		authservice.WithTxRunner(users),
		authservice.WithBcryptCost(bcrypt.MinCost),
		authservice.WithLogger(log),
	)
	require.NoError(t, err)
	require.NoError(t, auth.EnsureAdmin(context.Background(), "ops@loanbroker.test", "admin-password"))

	leads := leadservice.New(leadstore.NewInMemory(), leadservice.WithLogger(log))
	apps := appservice.New(appstore.NewInMemory(), emi.DefaultLimits(), appservice.WithLogger(log))
	health := NewHealth(time.Second)

	router := NewRouter(Deps{
		Logger:         log,
		Metrics:        metrics.NewWithRegisterer(prometheus.NewRegistry()),
		TokenValidator: validator,
		RateLimiter:    limiter,
		RequestTimeout: 5 * time.Second,
		Auth:           authhandler.New(auth, log, middleware.RequireAuth(validator, log)),
		Quote:          quotehandler.New(quoteservice.New(emi.DefaultLimits(), quoteservice.WithLogger(log)), log),
		Leads:          leadhandler.New(leads, log),
		Applications:   apphandler.New(apps, log, AdminRole),
		Dashboard:      dashhandler.New(dashservice.New(apps, leads, log), log),
		Health:         health,
	})
	return &fixture{router: router, auth: auth, health: health}
}

func (f *fixture) login(t *testing.T, email, password string) string {
	t.Helper()
	res, err := f.auth.Login(context.Background(), authmodels.LoginRequest{Email: email, Password: password})
	require.NoError(t, err)
	return res.AccessToken
}

func TestRouteGroups(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.auth.Register(context.Background(), authmodels.RegisterRequest{Email: "cust@example.com", Password: "customer-pass"})
	require.NoError(t, err)
	customer := f.login(t, "cust@example.com", "customer-pass")
	admin := f.login(t, "ops@loanbroker.test", "admin-password")

	t.Run("calculator is public", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodGet, "/v1/emi?principal=1200000&rate=0&tenure=10", nil))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.NotEmpty(t, rr.Header().Get(middleware.HeaderRequestID))
	})

	t.Run("applications need a token", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodGet, "/v1/applications", nil))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")

		req := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodGet, "/v1/applications", nil), customer)
		assert.Equal(t, http.StatusOK, testutil.DoRequest(f.router, req).Code)
	})

	t.Run("admin routes need the admin role", func(t *testing.T) {
		req := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodGet, "/v1/admin/leads", nil), customer)
		testutil.AssertStatusAndError(t, testutil.DoRequest(f.router, req), http.StatusForbidden, "forbidden")

		req = testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodGet, "/v1/admin/applications", nil), admin)
		assert.Equal(t, http.StatusOK, testutil.DoRequest(f.router, req).Code)
	})

	t.Run("dashboard", func(t *testing.T) {
		req := testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodGet, "/v1/dashboard", nil), customer)
		rr := testutil.DoRequest(f.router, req)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	})

	t.Run("unknown route is a JSON 404", func(t *testing.T) {
		rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodGet, "/v1/nope", nil))
		testutil.AssertStatusAndError(t, rr, http.StatusNotFound, "not_found")
	})
}

func TestPublicRoutesAreRateLimited(t *testing.T) {
	limiter := middleware.NewRateLimiter(2, time.Hour)
	t.Cleanup(limiter.Stop)
	f := newFixture(t, limiter)

	for range 2 {
		rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodGet, "/v1/emi/limits", nil))
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodGet, "/v1/emi/limits", nil))
	testutil.AssertStatusAndError(t, rr, http.StatusTooManyRequests, "rate_limited")

	rr = testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code, "health checks are not rate limited")
}

func TestHealth(t *testing.T) {
	f := newFixture(t, nil)
	f.health.Add("postgres", func(context.Context) error { return nil })

	rr := testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	body := testutil.UnmarshalResponse[healthResponse](t, rr)
	assert.Equal(t, "ok", body.Status)
	assert.Equal(t, "ok", body.Checks["postgres"])

	f.health.Add("redis", func(context.Context) error { return errors.New("connection refused") })
	rr = testutil.DoRequest(f.router, testutil.NewJSONRequest(t, http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
	body = testutil.UnmarshalResponse[healthResponse](t, rr)
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "connection refused", body.Checks["redis"])
}
