package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"loanbroker/internal/emi"
	"loanbroker/internal/platform/logger"
	"loanbroker/internal/quote/cache"
	"loanbroker/internal/quote/metrics"
	"loanbroker/internal/quote/service/mocks"
	dErrors "loanbroker/pkg/domain-errors"
	"loanbroker/pkg/platform/sentinel"
)

type ServiceSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	cache   *mocks.MockCache
	metrics *metrics.Metrics
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.cache = mocks.NewMockCache(s.ctrl)
	s.metrics = metrics.NewWithRegisterer(prometheus.NewRegistry())
	s.service = New(emi.DefaultLimits(),
		WithCache(s.cache, time.Minute),
		WithLogger(logger.Discard()),
		WithMetrics(s.metrics),
	)
}

var reference = emi.Input{Principal: 2_500_000, AnnualRatePercent: 8.5, TenureYears: 20}

func (s *ServiceSuite) TestQuote() {
	s.Run("miss computes and stores", func() {
		s.SetupTest()
		s.cache.EXPECT().Get(gomock.Any(), cache.Key(reference)).Return(emi.Result{}, sentinel.ErrNotFound)
		s.cache.EXPECT().Set(gomock.Any(), cache.Key(reference), gomock.Any(), time.Minute).Return(nil)

		q, err := s.service.Quote(context.Background(), reference)
		s.Require().NoError(err)
		s.False(q.Cached)
		s.InDelta(21_695.58, q.Result.Installment, 0.01)
		s.Equal(int64(21_696), q.Display.Installment)
		s.Equal(1.0, promtest.ToFloat64(s.metrics.CacheLookups.WithLabelValues("miss")))
		s.Equal(1.0, promtest.ToFloat64(s.metrics.QuotesComputed.WithLabelValues("ok")))
	})

	s.Run("hit skips computation", func() {
		s.SetupTest()
		cached := emi.Result{Installment: 1, TotalPayment: 240, TotalInterest: 0}
		s.cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(cached, nil)

		q, err := s.service.Quote(context.Background(), reference)
		s.Require().NoError(err)
		s.True(q.Cached)
		s.Equal(cached, q.Result)
	})

	s.Run("cache failures are ignored", func() {
		s.SetupTest()
		s.cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(emi.Result{}, errors.New("redis down"))
		s.cache.EXPECT().Set(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("redis down"))

		q, err := s.service.Quote(context.Background(), reference)
		s.Require().NoError(err)
		s.InDelta(21_695.58, q.Result.Installment, 0.01)
		s.Equal(1.0, promtest.ToFloat64(s.metrics.CacheLookups.WithLabelValues("error")))
	})

	s.Run("zero state is served", func() {
		s.SetupTest()
		s.cache.EXPECT().Get(gomock.Any(), gomock.Any()).Return(emi.Result{}, sentinel.ErrNotFound)
		s.cache.EXPECT().Set(gomock.Any(), gomock.Any(), emi.Result{}, gomock.Any()).Return(nil)

		q, err := s.service.Quote(context.Background(), emi.Input{Principal: 0, AnnualRatePercent: 8, TenureYears: 10})
		s.Require().NoError(err)
		s.True(q.Result.IsZero())
		s.Equal(1.0, promtest.ToFloat64(s.metrics.QuotesComputed.WithLabelValues("zero")))
	})

	s.Run("limits reject before the cache is consulted", func() {
		s.SetupTest()
		_, err := s.service.Quote(context.Background(), emi.Input{Principal: 60_000_000, AnnualRatePercent: 8, TenureYears: 10})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.service.Quote(context.Background(), emi.Input{Principal: 1000, AnnualRatePercent: 19, TenureYears: 10})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))

		_, err = s.service.Quote(context.Background(), emi.Input{Principal: 1000, AnnualRatePercent: 8, TenureYears: 31})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		s.Equal(3.0, promtest.ToFloat64(s.metrics.QuotesComputed.WithLabelValues("rejected")))
	})
}

func (s *ServiceSuite) TestQuoteWithoutLimitsSurfacesOverflow() {
	svc := New(emi.Limits{}, WithLogger(logger.Discard()))
	_, err := svc.Quote(context.Background(), emi.Input{Principal: 1e308, AnnualRatePercent: 18, TenureYears: 30})
	s.ErrorIs(err, emi.ErrOverflow)
}

func (s *ServiceSuite) TestSchedule() {
	svc := New(emi.DefaultLimits(), WithLogger(logger.Discard()))

	s.Run("table matches the quote", func() {
		resp, err := svc.Schedule(context.Background(), emi.Input{Principal: 1_200_000, AnnualRatePercent: 0, TenureYears: 10})
		s.Require().NoError(err)
		s.Len(resp.Periods, 120)
		s.Equal(10_000.0, resp.Quote.Result.Installment)
		s.Equal(0.0, resp.Periods[119].Balance)
	})

	s.Run("zero state yields an empty table", func() {
		resp, err := svc.Schedule(context.Background(), emi.Input{})
		s.Require().NoError(err)
		s.NotNil(resp.Periods)
		s.Empty(resp.Periods)
	})
}
