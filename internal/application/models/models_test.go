package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanbroker/internal/emi"
	id "loanbroker/pkg/domain"
	dErrors "loanbroker/pkg/domain-errors"
)

func TestStatusTransitions(t *testing.T) {
	allowed := map[Status][]Status{
		StatusDraft:       {StatusSubmitted},
		StatusSubmitted:   {StatusUnderReview, StatusApproved, StatusRejected},
		StatusUnderReview: {StatusApproved, StatusRejected},
	}
	for _, from := range AllStatuses() {
		for _, to := range AllStatuses() {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
		}
	}
	assert.True(t, StatusApproved.IsTerminal())
	assert.True(t, StatusRejected.IsTerminal())
	assert.False(t, StatusUnderReview.IsTerminal())
	assert.True(t, StatusDraft.IsEditable())
	assert.False(t, StatusSubmitted.IsEditable())
}

func TestDecisionStatus(t *testing.T) {
	st, ok := DecisionApprove.Status()
	assert.True(t, ok)
	assert.Equal(t, StatusApproved, st)
	_, ok = Decision("maybe").Status()
	assert.False(t, ok)
}

func TestApplicantValidate(t *testing.T) {
	now := time.Date(2026, 6, 15, 0, 0, 0, 0, time.UTC)
	valid := func() Applicant {
		return Applicant{FullName: " Kavya  Nair ", DateOfBirth: "1990-04-02", PAN: "abcde1234f", Phone: "9876543210", City: "Kochi"}
	}

	a := valid()
	a.Normalize()
	assert.Equal(t, "Kavya Nair", a.FullName)
	assert.Equal(t, "ABCDE1234F", a.PAN)
	require.NoError(t, a.Validate(now))

	t.Run("birthday not yet reached this year", func(t *testing.T) {
		a := valid()
		a.Normalize()
		a.DateOfBirth = "2008-06-16"
		err := a.Validate(now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		a.DateOfBirth = "2008-06-15"
		assert.NoError(t, a.Validate(now))
	})

	t.Run("bad date", func(t *testing.T) {
		a := valid()
		a.Normalize()
		a.DateOfBirth = "02/04/1990"
		assert.EqualError(t, a.Validate(now), "date of birth must be YYYY-MM-DD")
	})

	t.Run("lowercase PAN is rejected until normalized", func(t *testing.T) {
		a := valid()
		assert.EqualError(t, a.Validate(now), "PAN must look like ABCDE1234F")
	})

	t.Run("bad PAN", func(t *testing.T) {
		a := valid()
		a.Normalize()
		a.PAN = "ABC123"
		assert.EqualError(t, a.Validate(now), "PAN must look like ABCDE1234F")
	})
}

func TestEmploymentValidate(t *testing.T) {
	e := Employment{Type: " Salaried ", MonthlyIncome: 90_000}
	e.Normalize()
	assert.EqualError(t, e.Validate(), "employer is required for salaried applicants")
	e.Employer = "Infosys"
	assert.NoError(t, e.Validate())

	e = Employment{Type: EmploymentRetired}
	assert.EqualError(t, e.Validate(), "monthly income must be positive")

	e = Employment{Type: "student", MonthlyIncome: 1}
	assert.Error(t, e.Validate())
}

func TestDetails(t *testing.T) {
	details := NormalizeDetails(map[string]string{" Vehicle_Make ": " Tata ", "vehicle_model": "", "": "x"})
	assert.Equal(t, map[string]string{"vehicle_make": "Tata"}, details)
	assert.EqualError(t, ValidateDetails(id.LoanVehicle, details), "missing details: vehicle_model")

	details["vehicle_model"] = "Nexon"
	assert.NoError(t, ValidateDetails(id.LoanVehicle, details))
	assert.Equal(t, []string{"purpose"}, RequiredDetailFields(id.LoanPersonal))
}

func TestProgressAndClone(t *testing.T) {
	app := &Application{LoanType: id.LoanPersonal, Status: StatusDraft}
	assert.Equal(t, 0, app.Progress())
	assert.Equal(t, AllSteps(), app.MissingSteps())

	app.Applicant = &Applicant{FullName: "A"}
	app.Loan = &LoanTerms{Amount: 100_000, TenureYears: 2, AnnualRatePercent: 11}
	app.Details = map[string]string{"purpose": "wedding"}
	assert.Equal(t, 75, app.Progress())
	assert.Equal(t, []Step{StepEmployment}, app.MissingSteps())

	app.Estimate = &emi.Result{Installment: 4660.78}
	c := app.Clone()
	c.Details["purpose"] = "travel"
	c.Loan.Amount = 1
	c.Estimate.Installment = 0
	assert.Equal(t, "wedding", app.Details["purpose"])
	assert.Equal(t, 100_000.0, app.Loan.Amount)
	assert.Equal(t, 4660.78, app.Estimate.Installment)

	sum := ToSummary(app)
	assert.Equal(t, 100_000.0, sum.Amount)
	assert.Equal(t, 75, sum.Progress)
}

func TestReviewFilter(t *testing.T) {
	f := ReviewFilter{}.Clamp()
	assert.Equal(t, []Status{StatusSubmitted, StatusUnderReview}, f.Statuses)
	assert.True(t, f.Matches(&Application{Status: StatusSubmitted}))
	assert.False(t, f.Matches(&Application{Status: StatusDraft}))

	f.LoanType = id.LoanHome
	assert.False(t, f.Matches(&Application{Status: StatusSubmitted, LoanType: id.LoanVehicle}))
}

func TestParseStep(t *testing.T) {
	step, err := ParseStep(" Loan ")
	require.NoError(t, err)
	assert.Equal(t, StepLoan, step)
	_, err = ParseStep("documents")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
