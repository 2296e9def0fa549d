// Package service assembles the signed-in customer's dashboard from the
// application and lead modules.
package service

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks ApplicationLister,LeadLister

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"

	appmodels "loanbroker/internal/application/models"
	leadmodels "loanbroker/internal/lead/models"
	id "loanbroker/pkg/domain"
	dErrors "loanbroker/pkg/domain-errors"
	"loanbroker/pkg/requestcontext"
)

var tracer = otel.Tracer("loanbroker/dashboard")

const (
	// RecentLimit bounds each recent-items list.
	RecentLimit     = 5
	overviewTimeout = 5 * time.Second
)

type ApplicationLister interface {
	ListMine(ctx context.Context, userID id.UserID) ([]appmodels.Summary, error)
}

type LeadLister interface {
	ListByEmail(ctx context.Context, email string) ([]*leadmodels.Lead, error)
}

// LeadSummary is the customer-safe view of an enquiry; device and network
// details stay internal.
type LeadSummary struct {
	ID        id.LeadID   `json:"id"`
	LoanType  id.LoanType `json:"loan_type"`
	Amount    float64     `json:"amount"`
	CreatedAt time.Time   `json:"created_at"`
}

type Overview struct {
	Email              string                   `json:"email"`
	ApplicationsTotal  int                      `json:"applications_total"`
	ByStatus           map[appmodels.Status]int `json:"by_status"`
	RecentApplications []appmodels.Summary      `json:"recent_applications"`
	LeadsTotal         int                      `json:"leads_total"`
	RecentLeads        []LeadSummary            `json:"recent_leads"`
	GeneratedAt        time.Time                `json:"generated_at"`
}

type Service struct {
	applications ApplicationLister
	leads        LeadLister
	logger       *slog.Logger
}

func New(applications ApplicationLister, leads LeadLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{applications: applications, leads: leads, logger: logger}
}

// Overview loads the user's applications and the leads captured under their
// email concurrently. Either failure fails the whole overview.
func (s *Service) Overview(ctx context.Context, userID id.UserID, email string) (*Overview, error) {
	ctx, span := tracer.Start(ctx, "dashboard.Overview")
	defer span.End()

	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}

	ctx, cancel := context.WithTimeout(ctx, overviewTimeout)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	var (
		apps  []appmodels.Summary
		leads []*leadmodels.Lead
	)
	g.Go(func() error {
		var err error
		apps, err = s.applications.ListMine(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		leads, err = s.leads.ListByEmail(gctx, email)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "dashboard overview failed",
			"user_id", userID.String(),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		if dErrors.CodeOf(err) != dErrors.CodeInternal {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load dashboard")
	}

	out := &Overview{
		Email:              email,
		ApplicationsTotal:  len(apps),
		ByStatus:           make(map[appmodels.Status]int, len(appmodels.AllStatuses())),
		RecentApplications: apps[:min(len(apps), RecentLimit)],
		LeadsTotal:         len(leads),
		RecentLeads:        make([]LeadSummary, 0, min(len(leads), RecentLimit)),
		GeneratedAt:        requestcontext.Now(ctx).UTC(),
	}
	for _, st := range appmodels.AllStatuses() {
		out.ByStatus[st] = 0
	}
	for _, app := range apps {
		out.ByStatus[app.Status]++
	}
	for _, lead := range leads[:min(len(leads), RecentLimit)] {
		out.RecentLeads = append(out.RecentLeads, LeadSummary{
			ID:        lead.ID,
			LoanType:  lead.LoanType,
			Amount:    lead.Amount,
			CreatedAt: lead.CreatedAt,
		})
	}
	if out.RecentApplications == nil {
		out.RecentApplications = []appmodels.Summary{}
	}
	return out, nil
}
