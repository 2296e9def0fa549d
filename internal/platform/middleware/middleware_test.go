package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"loanbroker/internal/platform/logger"
	"loanbroker/internal/platform/metrics"
	id "loanbroker/pkg/domain"
	"loanbroker/pkg/requestcontext"
	"loanbroker/pkg/testutil"
)

type stubValidator struct {
	claims *Claims
	err    error
}

func (s stubValidator) ValidateToken(string) (*Claims, error) { return s.claims, s.err }

type MiddlewareSuite struct {
	suite.Suite
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareSuite))
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })
}

func (s *MiddlewareSuite) TestRequestID() {
	s.Run("mints an id when absent", func() {
		var seen string
		h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = requestcontext.RequestID(r.Context())
		}))
		rr := testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/", nil))
		s.NotEmpty(seen)
		s.Equal(seen, rr.Header().Get(HeaderRequestID))
	})

	s.Run("propagates inbound id", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(HeaderRequestID, "abc-123")
		rr := testutil.DoRequest(RequestID(okHandler()), req)
		s.Equal("abc-123", rr.Header().Get(HeaderRequestID))
	})
}

func (s *MiddlewareSuite) TestRecovery() {
	h := Recovery(logger.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rr := testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/", nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusInternalServerError, "internal_error")
}

func (s *MiddlewareSuite) TestClientMetadata() {
	var ip, ua string
	capture := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip = requestcontext.ClientIP(r.Context())
		ua = requestcontext.UserAgent(r.Context())
	})

	s.Run("forwarding headers ignored by default", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.10:4321"
		req.Header.Set("X-Forwarded-For", "203.0.113.7")
		req.Header.Set("User-Agent", "curl/8.0")
		testutil.DoRequest(ClientMetadata(capture), req)

		s.Equal("192.0.2.10", ip)
		s.Equal("curl/8.0", ua)
	})

	s.Run("forwarding headers honoured behind a trusted proxy", func() {
		trusted, err := ParseTrustedProxies([]string{"10.0.0.0/8"})
		s.Require().NoError(err)
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.2:4321"
		req.Header.Set("X-Forwarded-For", "198.51.100.9, 203.0.113.7, 10.0.0.1")
		testutil.DoRequest(ClientMetadataBehind(trusted)(capture), req)

		s.Equal("203.0.113.7", ip, "right-most untrusted hop, not the client-supplied first entry")
	})
}

func (s *MiddlewareSuite) TestClientIPFromRequest() {
	trusted, err := ParseTrustedProxies([]string{"127.0.0.1", "10.0.0.0/8"})
	s.Require().NoError(err)

	s.Run("x-real-ip from trusted proxy", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "127.0.0.1:80"
		req.Header.Set("X-Real-IP", " 198.51.100.4 ")
		s.Equal("198.51.100.4", ClientIPFromRequest(req, trusted))
	})
	s.Run("x-real-ip from untrusted peer", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.1:80"
		req.Header.Set("X-Real-IP", "198.51.100.4")
		s.Equal("192.0.2.1", ClientIPFromRequest(req, trusted))
	})
	s.Run("all hops trusted falls back to peer", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.1.1.1:80"
		req.Header.Set("X-Forwarded-For", "10.2.2.2")
		s.Equal("10.1.1.1", ClientIPFromRequest(req, trusted))
	})
	s.Run("remote addr ipv6", func() {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "[::1]:5555"
		s.Equal("::1", ClientIPFromRequest(req, nil))
	})
}

func TestParseTrustedProxies(t *testing.T) {
	got, err := ParseTrustedProxies([]string{" 10.0.0.0/8 ", "", "::1", "192.0.2.7"})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "::1/128", got[1].String())
	assert.Equal(t, "192.0.2.7/32", got[2].String())

	_, err = ParseTrustedProxies([]string{"proxy.internal"})
	assert.Error(t, err)
}

func (s *MiddlewareSuite) TestContentTypeJSON() {
	h := ContentTypeJSON(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("a=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	testutil.AssertStatusAndError(s.T(), testutil.DoRequest(h, req), http.StatusBadRequest, "bad_request")

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	s.Equal(http.StatusOK, testutil.DoRequest(h, req).Code)
}

func (s *MiddlewareSuite) TestTimeoutSetsDeadline() {
	var hasDeadline bool
	h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, hasDeadline = r.Context().Deadline()
	}))
	testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/", nil))
	s.True(hasDeadline)
}

func (s *MiddlewareSuite) TestRequireAuth() {
	userID := id.NewUserID()

	s.Run("missing header", func() {
		h := RequireAuth(stubValidator{}, logger.Discard())(okHandler())
		rr := testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
	})

	s.Run("invalid token", func() {
		h := RequireAuth(stubValidator{err: errors.New("expired")}, logger.Discard())(okHandler())
		req := testutil.WithBearer(httptest.NewRequest(http.MethodGet, "/", nil), "bad")
		testutil.AssertStatusAndError(s.T(), testutil.DoRequest(h, req), http.StatusUnauthorized, "unauthorized")
	})

	s.Run("malformed subject", func() {
		h := RequireAuth(stubValidator{claims: &Claims{UserID: "nope"}}, logger.Discard())(okHandler())
		req := testutil.WithBearer(httptest.NewRequest(http.MethodGet, "/", nil), "tok")
		testutil.AssertStatusAndError(s.T(), testutil.DoRequest(h, req), http.StatusUnauthorized, "unauthorized")
	})

	s.Run("valid token populates identity", func() {
		var gotUser id.UserID
		var gotRole, gotEmail string
		h := RequireAuth(stubValidator{claims: &Claims{UserID: userID.String(), Role: "user", Email: "a@b.io"}}, logger.Discard())(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUser = requestcontext.UserID(r.Context())
				gotRole = requestcontext.Role(r.Context())
				gotEmail = requestcontext.Email(r.Context())
			}))
		req := testutil.WithBearer(httptest.NewRequest(http.MethodGet, "/", nil), "tok")
		testutil.DoRequest(h, req)
		s.Equal(userID, gotUser)
		s.Equal("user", gotRole)
		s.Equal("a@b.io", gotEmail)
	})
}

func (s *MiddlewareSuite) TestRequireRole() {
	h := RequireRole("admin", logger.Discard())(okHandler())

	rr := testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/", nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")

	req := testutil.WithIdentity(httptest.NewRequest(http.MethodGet, "/", nil), id.NewUserID(), "user", "u@x.io")
	testutil.AssertStatusAndError(s.T(), testutil.DoRequest(h, req), http.StatusForbidden, "forbidden")

	req = testutil.WithIdentity(httptest.NewRequest(http.MethodGet, "/", nil), id.NewUserID(), "admin", "a@x.io")
	s.Equal(http.StatusOK, testutil.DoRequest(h, req).Code)
}

func TestRateLimiterRefills(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl := newRateLimiter(2, time.Minute, func() time.Time { return now })

	ok, remaining, _ := rl.Allow("1.1.1.1")
	assert.True(t, ok)
	assert.Equal(t, 1, remaining)
	ok, _, _ = rl.Allow("1.1.1.1")
	assert.True(t, ok)
	ok, _, resetAt := rl.Allow("1.1.1.1")
	assert.False(t, ok)
	assert.Equal(t, now.Add(time.Minute), resetAt)

	ok, _, _ = rl.Allow("2.2.2.2")
	assert.True(t, ok, "buckets are per key")

	now = now.Add(time.Minute)
	ok, _, _ = rl.Allow("1.1.1.1")
	assert.True(t, ok, "bucket refills after the window")
}

func TestRateLimiterCleanupDropsIdleBuckets(t *testing.T) {
	now := time.Now()
	rl := newRateLimiter(1, time.Minute, func() time.Time { return now })
	rl.Allow("idle")
	now = now.Add(2 * time.Hour)
	rl.cleanup()
	assert.Empty(t, rl.clients)
}

func TestRateLimitMiddleware(t *testing.T) {
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	rl := NewRateLimiter(1, time.Hour)
	defer rl.Stop()

	h := ClientMetadata(RateLimit(rl, m, logger.Discard())(okHandler()))

	req := httptest.NewRequest(http.MethodPost, "/v1/leads", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	rr := testutil.DoRequest(h, req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rr.Header().Get("X-RateLimit-Remaining"))

	rr = testutil.DoRequest(h, req)
	testutil.AssertStatusAndError(t, rr, http.StatusTooManyRequests, "rate_limited")
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.RateLimited))
}

func TestRateLimitIgnoresSpoofedForwardedFor(t *testing.T) {
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	rl := NewRateLimiter(1, time.Hour)
	defer rl.Stop()
	h := ClientMetadata(RateLimit(rl, m, logger.Discard())(okHandler()))

	for i, hop := range []string{"203.0.113.1", "203.0.113.2", "203.0.113.3"} {
		req := httptest.NewRequest(http.MethodPost, "/v1/leads", nil)
		req.RemoteAddr = "192.0.2.50:1234"
		req.Header.Set("X-Forwarded-For", hop)
		rr := testutil.DoRequest(h, req)
		if i == 0 {
			require.Equal(t, http.StatusOK, rr.Code)
			continue
		}
		assert.Equal(t, http.StatusTooManyRequests, rr.Code, "rotating %s must not refill the bucket", hop)
	}
}

func TestRateLimitNilLimiterPassesThrough(t *testing.T) {
	h := RateLimit(nil, nil, logger.Discard())(okHandler())
	rr := testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestLatencyUsesRoutePattern(t *testing.T) {
	m := metrics.NewWithRegisterer(prometheus.NewRegistry())
	r := chi.NewRouter()
	r.Use(Latency(m))
	r.Get("/v1/items/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })

	testutil.DoRequest(r, httptest.NewRequest(http.MethodGet, "/v1/items/42", nil))
	assert.Equal(t, 1.0, promtest.ToFloat64(m.RequestsTotal.WithLabelValues("GET", "/v1/items/{id}", "204")))
}
