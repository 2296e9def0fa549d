package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"loanbroker/internal/device"
	"loanbroker/internal/events"
	"loanbroker/internal/lead/metrics"
	"loanbroker/internal/lead/models"
	id "loanbroker/pkg/domain"
	dErrors "loanbroker/pkg/domain-errors"
	"loanbroker/pkg/email"
	"loanbroker/pkg/platform/sentinel"
	"loanbroker/pkg/requestcontext"
)

var tracer = otel.Tracer("loanbroker/lead")

// Store persists leads. List returns the page and the total matching count.
type Store interface {
	Save(ctx context.Context, lead *models.Lead) error
	FindByID(ctx context.Context, leadID id.LeadID) (*models.Lead, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Lead, int, error)
}

type Service struct {
	store     Store
	publisher events.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithPublisher(p events.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Capture validates and stores a lead. Client IP and device details come from
// the request metadata on ctx.
func (s *Service) Capture(ctx context.Context, req models.CaptureRequest) (*models.Lead, error) {
	ctx, span := tracer.Start(ctx, "lead.Capture")
	defer span.End()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	loanType, _ := id.ParseLoanType(req.LoanType)
	info := device.Parse(requestcontext.UserAgent(ctx))

	lead := &models.Lead{
		ID:        id.NewLeadID(),
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		LoanType:  loanType,
		Amount:    req.Amount,
		City:      req.City,
		Message:   req.Message,
		Source:    req.Source,
		Tags:      req.Tags,
		Browser:   info.Browser,
		OS:        info.OS,
		Mobile:    info.Mobile,
		ClientIP:  requestcontext.ClientIP(ctx),
		CreatedAt: requestcontext.Now(ctx).UTC(),
	}
	span.SetAttributes(
		attribute.String("lead_id", lead.ID.String()),
		attribute.String("loan_type", string(loanType)),
	)

	if err := s.store.Save(ctx, lead); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "lead already recorded")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to save lead")
	}

	s.metrics.IncrementCaptured(string(loanType))
	if info.Bot {
		s.metrics.IncrementBot()
		s.logger.InfoContext(ctx, "lead submitted by crawler",
			"lead_id", lead.ID.String(),
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	s.publish(ctx, events.New(events.LeadCaptured, lead.ID.String(), lead.CreatedAt, map[string]any{
		"loan_type": string(lead.LoanType),
		"amount":    lead.Amount,
		"source":    lead.Source,
		"mobile":    lead.Mobile,
	}))
	return lead, nil
}

// Get loads a single lead.
func (s *Service) Get(ctx context.Context, leadID id.LeadID) (*models.Lead, error) {
	lead, err := s.store.FindByID(ctx, leadID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "lead not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load lead")
	}
	return lead, nil
}

// List pages through leads newest first.
func (s *Service) List(ctx context.Context, filter models.ListFilter) (*models.ListResponse, error) {
	filter = filter.Clamp()
	leads, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list leads")
	}
	if leads == nil {
		leads = []*models.Lead{}
	}
	return &models.ListResponse{Leads: leads, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// ListByEmail returns the most recent leads submitted under address.
func (s *Service) ListByEmail(ctx context.Context, address string) ([]*models.Lead, error) {
	address = email.Normalize(address)
	if address == "" {
		return []*models.Lead{}, nil
	}
	resp, err := s.List(ctx, models.ListFilter{Email: address})
	if err != nil {
		return nil, err
	}
	return resp.Leads, nil
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to publish event",
			"event_type", string(event.Type),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
}
