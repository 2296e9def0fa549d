package models

import (
	"time"

	"loanbroker/internal/emi"
	id "loanbroker/pkg/domain"
)

// Application is a customer's multi-step loan application. Step sections are
// nil until saved.
type Application struct {
	ID          id.ApplicationID  `json:"id"`
	Reference   string            `json:"reference"`
	UserID      id.UserID         `json:"user_id"`
	LoanType    id.LoanType       `json:"loan_type"`
	Status      Status            `json:"status"`
	Applicant   *Applicant        `json:"applicant,omitempty"`
	Employment  *Employment       `json:"employment,omitempty"`
	Loan        *LoanTerms        `json:"loan,omitempty"`
	Details     map[string]string `json:"details,omitempty"`
	Estimate    *emi.Result       `json:"estimate,omitempty"`
	ReviewNote  string            `json:"review_note,omitempty"`
	ReviewedBy  *id.UserID        `json:"reviewed_by,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	SubmittedAt *time.Time        `json:"submitted_at,omitempty"`
	ReviewedAt  *time.Time        `json:"reviewed_at,omitempty"`
	// Version increments on every stored change.
	Version int `json:"version"`
}

// IsOwnedBy reports whether userID created the application.
func (a *Application) IsOwnedBy(userID id.UserID) bool {
	return a.UserID == userID
}

// StepComplete reports whether step has been saved with its required data.
func (a *Application) StepComplete(step Step) bool {
	switch step {
	case StepApplicant:
		return a.Applicant != nil
	case StepEmployment:
		return a.Employment != nil
	case StepLoan:
		return a.Loan != nil
	case StepDetails:
		return a.Details != nil && ValidateDetails(a.LoanType, a.Details) == nil
	}
	return false
}

// MissingSteps lists incomplete steps in form order.
func (a *Application) MissingSteps() []Step {
	var missing []Step
	for _, step := range AllSteps() {
		if !a.StepComplete(step) {
			missing = append(missing, step)
		}
	}
	return missing
}

// Progress is the completed share of steps as a whole percentage.
func (a *Application) Progress() int {
	steps := AllSteps()
	return (len(steps) - len(a.MissingSteps())) * 100 / len(steps)
}

// Clone deep-copies a so stores never share mutable state with callers.
func (a *Application) Clone() *Application {
	c := *a
	if a.Applicant != nil {
		v := *a.Applicant
		c.Applicant = &v
	}
	if a.Employment != nil {
		v := *a.Employment
		c.Employment = &v
	}
	if a.Loan != nil {
		v := *a.Loan
		c.Loan = &v
	}
	if a.Details != nil {
		c.Details = make(map[string]string, len(a.Details))
		for k, v := range a.Details {
			c.Details[k] = v
		}
	}
	if a.Estimate != nil {
		v := *a.Estimate
		c.Estimate = &v
	}
	if a.ReviewedBy != nil {
		v := *a.ReviewedBy
		c.ReviewedBy = &v
	}
	if a.SubmittedAt != nil {
		v := *a.SubmittedAt
		c.SubmittedAt = &v
	}
	if a.ReviewedAt != nil {
		v := *a.ReviewedAt
		c.ReviewedAt = &v
	}
	return &c
}

// StepInput carries one step's payload; only the field named by Step is read.
type StepInput struct {
	Step       Step
	Applicant  *Applicant
	Employment *Employment
	Loan       *LoanTerms
	Details    map[string]string
}

// CreateRequest starts a draft.
type CreateRequest struct {
	LoanType string `json:"loan_type"`
}

// ReviewRequest carries an admin decision.
type ReviewRequest struct {
	Decision Decision `json:"decision"`
	Note     string   `json:"note"`
}

const MaxReviewNoteLength = 1000

// ReviewFilter narrows the admin queue. An empty Statuses means the
// actionable ones: submitted and under review.
type ReviewFilter struct {
	Statuses []Status
	LoanType id.LoanType
	Limit    int
	Offset   int
}

const (
	DefaultListLimit = 50
	MaxListLimit     = 200
)

func (f ReviewFilter) Clamp() ReviewFilter {
	if len(f.Statuses) == 0 {
		f.Statuses = []Status{StatusSubmitted, StatusUnderReview}
	}
	if f.Limit <= 0 {
		f.Limit = DefaultListLimit
	}
	if f.Limit > MaxListLimit {
		f.Limit = MaxListLimit
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return f
}

// Matches reports whether app passes the non-paging parts of f.
func (f ReviewFilter) Matches(app *Application) bool {
	if f.LoanType != "" && app.LoanType != f.LoanType {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, st := range f.Statuses {
		if app.Status == st {
			return true
		}
	}
	return false
}

// Summary is the compact view used in listings and the dashboard.
type Summary struct {
	ID          id.ApplicationID `json:"id"`
	Reference   string           `json:"reference"`
	LoanType    id.LoanType      `json:"loan_type"`
	Status      Status           `json:"status"`
	Amount      float64          `json:"amount,omitempty"`
	Installment float64          `json:"installment,omitempty"`
	Progress    int              `json:"progress"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

func ToSummary(a *Application) Summary {
	s := Summary{
		ID:        a.ID,
		Reference: a.Reference,
		LoanType:  a.LoanType,
		Status:    a.Status,
		Progress:  a.Progress(),
		UpdatedAt: a.UpdatedAt,
	}
	if a.Loan != nil {
		s.Amount = a.Loan.Amount
	}
	if a.Estimate != nil {
		s.Installment = a.Estimate.Installment
	}
	return s
}

type ListResponse struct {
	Applications []Summary `json:"applications"`
	Total        int       `json:"total"`
	Limit        int       `json:"limit,omitempty"`
	Offset       int       `json:"offset,omitempty"`
}
