package models

import (
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	id "loanbroker/pkg/domain"
	dErrors "loanbroker/pkg/domain-errors"
)

// Step names one section of the multi-step form.
type Step string

const (
	StepApplicant  Step = "applicant"
	StepEmployment Step = "employment"
	StepLoan       Step = "loan"
	StepDetails    Step = "details"
)

// AllSteps lists steps in form order.
func AllSteps() []Step {
	return []Step{StepApplicant, StepEmployment, StepLoan, StepDetails}
}

func ParseStep(s string) (Step, error) {
	step := Step(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllSteps() {
		if step == known {
			return step, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "unknown step "+s)
}

const (
	MaxFieldLength   = 200
	MaxDetailFields  = 20
	MinApplicantAge  = 18
	MaxApplicantAge  = 75
	dateOfBirthShape = "2006-01-02"
)

var panPattern = regexp.MustCompile(`^[A-Z]{5}[0-9]{4}[A-Z]$`)

type Applicant struct {
	FullName    string `json:"full_name" bson:"full_name"`
	DateOfBirth string `json:"date_of_birth" bson:"date_of_birth"`
	PAN         string `json:"pan" bson:"pan"`
	Phone       string `json:"phone" bson:"phone"`
	Address     string `json:"address" bson:"address"`
	City        string `json:"city" bson:"city"`
}

func (a *Applicant) Normalize() {
	a.FullName = strings.Join(strings.Fields(a.FullName), " ")
	a.DateOfBirth = strings.TrimSpace(a.DateOfBirth)
	a.PAN = strings.ToUpper(strings.TrimSpace(a.PAN))
	a.Phone = strings.TrimSpace(a.Phone)
	a.Address = strings.TrimSpace(a.Address)
	a.City = strings.TrimSpace(a.City)
}

// Validate checks required fields and the applicant's age on now.
func (a *Applicant) Validate(now time.Time) error {
	switch {
	case a.FullName == "":
		return dErrors.New(dErrors.CodeValidation, "full name is required")
	case a.Phone == "":
		return dErrors.New(dErrors.CodeValidation, "phone is required")
	case a.City == "":
		return dErrors.New(dErrors.CodeValidation, "city is required")
	case a.PAN != "" && !panPattern.MatchString(a.PAN):
		return dErrors.New(dErrors.CodeValidation, "PAN must look like ABCDE1234F")
	}
	for _, f := range []string{a.FullName, a.Address, a.City, a.Phone} {
		if utf8.RuneCountInString(f) > MaxFieldLength {
			return dErrors.New(dErrors.CodeValidation, "applicant field is too long")
		}
	}
	dob, err := time.Parse(dateOfBirthShape, a.DateOfBirth)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "date of birth must be YYYY-MM-DD")
	}
	age := ageOn(dob, now)
	if age < MinApplicantAge || age > MaxApplicantAge {
		return dErrors.New(dErrors.CodeValidation, "applicant must be between 18 and 75 years old")
	}
	return nil
}

func ageOn(dob, now time.Time) int {
	age := now.Year() - dob.Year()
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

// EmploymentType classifies the income source.
type EmploymentType string

const (
	EmploymentSalaried     EmploymentType = "salaried"
	EmploymentSelfEmployed EmploymentType = "self_employed"
	EmploymentBusiness     EmploymentType = "business_owner"
	EmploymentRetired      EmploymentType = "retired"
)

type Employment struct {
	Type          EmploymentType `json:"type" bson:"type"`
	Employer      string         `json:"employer,omitempty" bson:"employer,omitempty"`
	MonthlyIncome float64        `json:"monthly_income" bson:"monthly_income"`
	YearsEmployed int            `json:"years_employed" bson:"years_employed"`
}

func (e *Employment) Normalize() {
	e.Type = EmploymentType(strings.ToLower(strings.TrimSpace(string(e.Type))))
	e.Employer = strings.TrimSpace(e.Employer)
}

func (e *Employment) Validate() error {
	switch e.Type {
	case EmploymentSalaried:
		if e.Employer == "" {
			return dErrors.New(dErrors.CodeValidation, "employer is required for salaried applicants")
		}
	case EmploymentSelfEmployed, EmploymentBusiness, EmploymentRetired:
	default:
		return dErrors.New(dErrors.CodeValidation, "employment type must be salaried, self_employed, business_owner or retired")
	}
	if math.IsNaN(e.MonthlyIncome) || math.IsInf(e.MonthlyIncome, 0) || e.MonthlyIncome <= 0 {
		return dErrors.New(dErrors.CodeValidation, "monthly income must be positive")
	}
	if e.YearsEmployed < 0 || e.YearsEmployed > 60 {
		return dErrors.New(dErrors.CodeValidation, "years employed must be between 0 and 60")
	}
	if utf8.RuneCountInString(e.Employer) > MaxFieldLength {
		return dErrors.New(dErrors.CodeValidation, "employer is too long")
	}
	return nil
}

// LoanTerms are the requested amount and terms. Range checks against product
// limits happen in the service.
type LoanTerms struct {
	Amount            float64 `json:"amount" bson:"amount"`
	TenureYears       int     `json:"tenure_years" bson:"tenure_years"`
	AnnualRatePercent float64 `json:"annual_rate_percent" bson:"annual_rate_percent"`
}

func (l *LoanTerms) Validate() error {
	switch {
	case math.IsNaN(l.Amount) || math.IsInf(l.Amount, 0) || l.Amount <= 0:
		return dErrors.New(dErrors.CodeValidation, "loan amount must be positive")
	case l.TenureYears <= 0:
		return dErrors.New(dErrors.CodeValidation, "tenure must be at least one year")
	case math.IsNaN(l.AnnualRatePercent) || math.IsInf(l.AnnualRatePercent, 0) || l.AnnualRatePercent < 0:
		return dErrors.New(dErrors.CodeValidation, "annual rate must be a non-negative percentage")
	}
	return nil
}

var requiredDetails = map[id.LoanType][]string{
	id.LoanHome:     {"property_value", "property_city"},
	id.LoanMortgage: {"property_value", "property_city"},
	id.LoanVehicle:  {"vehicle_make", "vehicle_model"},
	id.LoanBusiness: {"business_name", "annual_turnover"},
	id.LoanPersonal: {"purpose"},
}

// RequiredDetailFields lists the type-specific fields a loan type needs.
func RequiredDetailFields(loanType id.LoanType) []string {
	return append([]string(nil), requiredDetails[loanType]...)
}

// NormalizeDetails trims keys and values and drops empty entries.
func NormalizeDetails(details map[string]string) map[string]string {
	out := make(map[string]string, len(details))
	for k, v := range details {
		k = strings.ToLower(strings.TrimSpace(k))
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		out[k] = v
	}
	return out
}

// ValidateDetails requires every field the loan type declares.
func ValidateDetails(loanType id.LoanType, details map[string]string) error {
	if len(details) > MaxDetailFields {
		return dErrors.New(dErrors.CodeValidation, "too many detail fields")
	}
	for k, v := range details {
		if utf8.RuneCountInString(k) > MaxFieldLength || utf8.RuneCountInString(v) > MaxFieldLength {
			return dErrors.New(dErrors.CodeValidation, "detail field is too long")
		}
	}
	var missing []string
	for _, field := range requiredDetails[loanType] {
		if details[field] == "" {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return dErrors.New(dErrors.CodeValidation, "missing details: "+strings.Join(missing, ", "))
	}
	return nil
}
