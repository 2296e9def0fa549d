package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"loanbroker/internal/emi"
	"loanbroker/internal/quote/cache"
	"loanbroker/internal/quote/metrics"
	"loanbroker/internal/quote/models"
	"loanbroker/pkg/platform/sentinel"
	"loanbroker/pkg/requestcontext"
)

var tracer = otel.Tracer("loanbroker/quote")

// Cache memoizes results by canonical input key. Get returns
// sentinel.ErrNotFound on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (emi.Result, error)
	Set(ctx context.Context, key string, result emi.Result, ttl time.Duration) error
}

type Service struct {
	limits   emi.Limits
	cache    Cache
	cacheTTL time.Duration
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

type Option func(*Service)

func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache = c
		s.cacheTTL = ttl
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(limits emi.Limits, opts ...Option) *Service {
	s := &Service{
		limits: limits,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Limits() emi.Limits { return s.limits }

// Quote validates in against the configured limits and returns the
// installment breakdown. Cache failures are logged and ignored.
func (s *Service) Quote(ctx context.Context, in emi.Input) (*models.Quote, error) {
	start := time.Now()
	defer s.metrics.ObserveComputeLatency(start)

	ctx, span := tracer.Start(ctx, "quote.Quote")
	defer span.End()
	span.SetAttributes(
		attribute.Float64("principal", in.Principal),
		attribute.Float64("annual_rate_percent", in.AnnualRatePercent),
		attribute.Int("tenure_years", in.TenureYears),
	)

	if err := s.limits.Validate(in); err != nil {
		s.metrics.IncrementQuote("rejected")
		span.SetStatus(codes.Error, "rejected")
		return nil, err
	}

	key := cache.Key(in)
	if res, ok := s.lookup(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache_hit", true))
		s.metrics.IncrementQuote(outcome(res))
		return s.quote(ctx, in, res, true), nil
	}

	res, err := emi.Compute(in)
	if err != nil {
		if errors.Is(err, emi.ErrOverflow) {
			s.metrics.IncrementQuote("overflow")
		} else {
			s.metrics.IncrementQuote("rejected")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "compute failed")
		return nil, err
	}
	s.store(ctx, key, res)
	s.metrics.IncrementQuote(outcome(res))
	return s.quote(ctx, in, res, false), nil
}

// Schedule returns the quote together with its amortization table.
func (s *Service) Schedule(ctx context.Context, in emi.Input) (*models.ScheduleResponse, error) {
	ctx, span := tracer.Start(ctx, "quote.Schedule")
	defer span.End()

	q, err := s.Quote(ctx, in)
	if err != nil {
		return nil, err
	}
	periods, err := emi.Schedule(in)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if periods == nil {
		periods = []emi.Period{}
	}
	span.SetAttributes(attribute.Int("periods", len(periods)))
	return &models.ScheduleResponse{Quote: *q, Periods: periods}, nil
}

func (s *Service) quote(ctx context.Context, in emi.Input, res emi.Result, cached bool) *models.Quote {
	return &models.Quote{
		Input:      in,
		Result:     res,
		Display:    models.NewDisplay(res),
		Cached:     cached,
		ComputedAt: requestcontext.Now(ctx).UTC(),
	}
}

func (s *Service) lookup(ctx context.Context, key string) (emi.Result, bool) {
	if s.cache == nil {
		return emi.Result{}, false
	}
	res, err := s.cache.Get(ctx, key)
	switch {
	case err == nil:
		s.metrics.IncrementCache("hit")
		return res, true
	case errors.Is(err, sentinel.ErrNotFound):
		s.metrics.IncrementCache("miss")
	default:
		s.metrics.IncrementCache("error")
		trace.SpanFromContext(ctx).AddEvent("cache.error", trace.WithAttributes(attribute.String("key", key)))
		s.logger.WarnContext(ctx, "quote cache read failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	return emi.Result{}, false
}

func (s *Service) store(ctx context.Context, key string, res emi.Result) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, key, res, s.cacheTTL); err != nil {
		s.logger.WarnContext(ctx, "quote cache write failed",
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}

func outcome(res emi.Result) string {
	if res.IsZero() {
		return "zero"
	}
	return "ok"
}
