package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"loanbroker/internal/application/metrics"
	"loanbroker/internal/application/models"
	"loanbroker/internal/emi"
	"loanbroker/internal/events"
	id "loanbroker/pkg/domain"
	dErrors "loanbroker/pkg/domain-errors"
	"loanbroker/pkg/platform/sentinel"
	"loanbroker/pkg/requestcontext"
)

var tracer = otel.Tracer("loanbroker/application")

// Store persists applications. Update is a compare-and-swap on Version: it
// writes app only when the stored version is app.Version-1 and returns
// sentinel.ErrStale otherwise.
type Store interface {
	Create(ctx context.Context, app *models.Application) error
	FindByID(ctx context.Context, appID id.ApplicationID) (*models.Application, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Application, error)
	List(ctx context.Context, filter models.ReviewFilter) ([]*models.Application, int, error)
	Update(ctx context.Context, app *models.Application) error
}

var errNotFound = dErrors.New(dErrors.CodeNotFound, "application not found")

type Service struct {
	store     Store
	limits    emi.Limits
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

func New(store Store, limits emi.Limits, opts ...Option) *Service {
	s := &Service{
		store:  store,
		limits: limits,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create opens a draft for userID.
func (s *Service) Create(ctx context.Context, userID id.UserID, req models.CreateRequest) (*models.Application, error) {
	ctx, span := tracer.Start(ctx, "application.Create")
	defer span.End()

	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	loanType, err := id.ParseLoanType(req.LoanType)
	if err != nil {
		return nil, err
	}
	now := requestcontext.Now(ctx).UTC()
	app := &models.Application{
		ID:        id.NewApplicationID(),
		Reference: id.NewApplicationReference(now),
		UserID:    userID,
		LoanType:  loanType,
		Status:    models.StatusDraft,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
	}
	span.SetAttributes(attribute.String("application_id", app.ID.String()))

	if err := s.store.Create(ctx, app); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			return nil, dErrors.New(dErrors.CodeConflict, "application reference already issued")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create application")
	}
	s.metrics.IncrementTransition(string(app.Status), string(app.LoanType))
	return app, nil
}

// SaveStep replaces one step of a draft owned by userID.
func (s *Service) SaveStep(ctx context.Context, userID id.UserID, appID id.ApplicationID, in models.StepInput) (*models.Application, error) {
	ctx, span := tracer.Start(ctx, "application.SaveStep")
	defer span.End()
	span.SetAttributes(attribute.String("step", string(in.Step)))

	app, err := s.loadOwned(ctx, userID, appID)
	if err != nil {
		return nil, err
	}
	if !app.Status.IsEditable() {
		return nil, dErrors.New(dErrors.CodeInvalidState, "only draft applications can be edited")
	}

	now := requestcontext.Now(ctx).UTC()
	switch in.Step {
	case models.StepApplicant:
		if in.Applicant == nil {
			return nil, dErrors.New(dErrors.CodeValidation, "applicant details are required")
		}
		in.Applicant.Normalize()
		if err := in.Applicant.Validate(now); err != nil {
			return nil, err
		}
		app.Applicant = in.Applicant
	case models.StepEmployment:
		if in.Employment == nil {
			return nil, dErrors.New(dErrors.CodeValidation, "employment details are required")
		}
		in.Employment.Normalize()
		if err := in.Employment.Validate(); err != nil {
			return nil, err
		}
		app.Employment = in.Employment
	case models.StepLoan:
		if in.Loan == nil {
			return nil, dErrors.New(dErrors.CodeValidation, "loan terms are required")
		}
		if err := in.Loan.Validate(); err != nil {
			return nil, err
		}
		if err := s.limits.Validate(termsInput(in.Loan)); err != nil {
			return nil, err
		}
		app.Loan = in.Loan
	case models.StepDetails:
		details := models.NormalizeDetails(in.Details)
		if err := models.ValidateDetails(app.LoanType, details); err != nil {
			return nil, err
		}
		app.Details = details
	default:
		return nil, dErrors.New(dErrors.CodeValidation, "unknown step "+string(in.Step))
	}

	app.UpdatedAt = now
	if err := s.update(ctx, app); err != nil {
		return nil, err
	}
	return app, nil
}

// Submit moves a complete draft to submitted and attaches the installment
// estimate for its loan terms.
func (s *Service) Submit(ctx context.Context, userID id.UserID, appID id.ApplicationID) (*models.Application, error) {
	ctx, span := tracer.Start(ctx, "application.Submit")
	defer span.End()

	app, err := s.loadOwned(ctx, userID, appID)
	if err != nil {
		return nil, err
	}
	if !app.Status.CanTransitionTo(models.StatusSubmitted) {
		return nil, dErrors.New(dErrors.CodeInvalidState, "application has already been submitted")
	}
	if missing := app.MissingSteps(); len(missing) > 0 {
		names := make([]string, len(missing))
		for i, step := range missing {
			names[i] = string(step)
		}
		return nil, dErrors.New(dErrors.CodeValidation, "incomplete steps: "+strings.Join(names, ", "))
	}

	in := termsInput(app.Loan)
	if err := s.limits.Validate(in); err != nil {
		return nil, err
	}
	estimate, err := emi.Compute(in)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	now := requestcontext.Now(ctx).UTC()
	app.Status = models.StatusSubmitted
	app.Estimate = &estimate
	app.SubmittedAt = &now
	app.UpdatedAt = now
	if err := s.update(ctx, app); err != nil {
		return nil, err
	}

	s.metrics.IncrementTransition(string(app.Status), string(app.LoanType))
	s.metrics.ObserveSubmittedAmount(string(app.LoanType), app.Loan.Amount)
	s.publish(ctx, events.New(events.ApplicationSubmitted, app.ID.String(), now, map[string]any{
		"reference":   app.Reference,
		"user_id":     app.UserID.String(),
		"loan_type":   string(app.LoanType),
		"amount":      app.Loan.Amount,
		"installment": estimate.Installment,
	}))
	return app, nil
}

// Get returns an application to its owner or to an admin. Other callers see
// not found.
func (s *Service) Get(ctx context.Context, userID id.UserID, admin bool, appID id.ApplicationID) (*models.Application, error) {
	if admin {
		return s.load(ctx, appID)
	}
	return s.loadOwned(ctx, userID, appID)
}

// ListMine returns the caller's applications, most recently updated first.
func (s *Service) ListMine(ctx context.Context, userID id.UserID) ([]models.Summary, error) {
	apps, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}
	sort.Slice(apps, func(i, j int) bool { return apps[i].UpdatedAt.After(apps[j].UpdatedAt) })
	out := make([]models.Summary, 0, len(apps))
	for _, app := range apps {
		out = append(out, models.ToSummary(app))
	}
	return out, nil
}

// ListForReview pages through the admin queue, oldest submission first.
func (s *Service) ListForReview(ctx context.Context, filter models.ReviewFilter) (*models.ListResponse, error) {
	filter = filter.Clamp()
	apps, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list applications")
	}
	out := make([]models.Summary, 0, len(apps))
	for _, app := range apps {
		out = append(out, models.ToSummary(app))
	}
	return &models.ListResponse{Applications: out, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// StartReview claims a submitted application for review.
func (s *Service) StartReview(ctx context.Context, adminID id.UserID, appID id.ApplicationID) (*models.Application, error) {
	ctx, span := tracer.Start(ctx, "application.StartReview")
	defer span.End()

	app, err := s.load(ctx, appID)
	if err != nil {
		return nil, err
	}
	if !app.Status.CanTransitionTo(models.StatusUnderReview) {
		return nil, dErrors.New(dErrors.CodeInvalidState, "only submitted applications can be taken into review")
	}
	now := requestcontext.Now(ctx).UTC()
	app.Status = models.StatusUnderReview
	app.ReviewedBy = &adminID
	app.UpdatedAt = now
	if err := s.update(ctx, app); err != nil {
		return nil, err
	}
	s.metrics.IncrementTransition(string(app.Status), string(app.LoanType))
	return app, nil
}

// Review records a final decision. Terminal applications never change.
func (s *Service) Review(ctx context.Context, adminID id.UserID, appID id.ApplicationID, req models.ReviewRequest) (*models.Application, error) {
	ctx, span := tracer.Start(ctx, "application.Review")
	defer span.End()

	next, ok := req.Decision.Status()
	if !ok {
		return nil, dErrors.New(dErrors.CodeValidation, "decision must be approve or reject")
	}
	note := strings.TrimSpace(req.Note)
	if utf8.RuneCountInString(note) > models.MaxReviewNoteLength {
		return nil, dErrors.New(dErrors.CodeValidation, "review note is too long")
	}
	if next == models.StatusRejected && note == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "a note is required when rejecting")
	}

	app, err := s.load(ctx, appID)
	if err != nil {
		return nil, err
	}
	if !app.Status.CanTransitionTo(next) {
		return nil, dErrors.New(dErrors.CodeInvalidState, "application in status "+string(app.Status)+" cannot be "+string(next))
	}

	now := requestcontext.Now(ctx).UTC()
	app.Status = next
	app.ReviewNote = note
	app.ReviewedBy = &adminID
	app.ReviewedAt = &now
	app.UpdatedAt = now
	if err := s.update(ctx, app); err != nil {
		return nil, err
	}

	s.metrics.IncrementTransition(string(app.Status), string(app.LoanType))
	s.logger.InfoContext(ctx, "application reviewed",
		"application_id", app.ID.String(),
		"status", string(app.Status),
		"reviewer_id", adminID.String(),
		"request_id", requestcontext.RequestID(ctx),
	)
	s.publish(ctx, events.New(events.ApplicationReviewed, app.ID.String(), now, map[string]any{
		"reference":   app.Reference,
		"user_id":     app.UserID.String(),
		"status":      string(app.Status),
		"reviewer_id": adminID.String(),
	}))
	return app, nil
}

func (s *Service) load(ctx context.Context, appID id.ApplicationID) (*models.Application, error) {
	app, err := s.store.FindByID(ctx, appID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, errNotFound
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load application")
	}
	return app, nil
}

func (s *Service) loadOwned(ctx context.Context, userID id.UserID, appID id.ApplicationID) (*models.Application, error) {
	app, err := s.load(ctx, appID)
	if err != nil {
		return nil, err
	}
	if !app.IsOwnedBy(userID) {
		return nil, errNotFound
	}
	return app, nil
}

func (s *Service) update(ctx context.Context, app *models.Application) error {
	app.Version++
	if err := s.store.Update(ctx, app); err != nil {
		app.Version--
		switch {
		case errors.Is(err, sentinel.ErrStale):
			return dErrors.New(dErrors.CodeConflict, "application was modified concurrently, reload and retry")
		case errors.Is(err, sentinel.ErrNotFound):
			return errNotFound
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save application")
	}
	return nil
}

func termsInput(terms *models.LoanTerms) emi.Input {
	return emi.Input{
		Principal:         terms.Amount,
		AnnualRatePercent: terms.AnnualRatePercent,
		TenureYears:       terms.TenureYears,
	}
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
