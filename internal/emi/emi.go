// Package emi computes equated monthly installments for fixed-rate,
// fixed-term loans.
//
// Compute is a pure function of three scalars. It places no upper bound on
// its arguments beyond numeric overflow; product maxima (principal, rate,
// tenure) are enforced by Limits at the request boundary.
package emi

import (
	"math"

	dErrors "loanbroker/pkg/domain-errors"
)

var (
	// ErrInvalidInput is returned for negative or non-finite inputs.
	ErrInvalidInput = dErrors.New(dErrors.CodeInvalidInput, "principal, rate and tenure must be finite and non-negative")
	// ErrOverflow is returned when the compound factor or any output is not
	// finite, or when a positive principal yields an installment that
	// underflows to zero.
	ErrOverflow = dErrors.New(dErrors.CodeOverflow, "installment is outside the representable range")
)

// Input is the latest snapshot of the three calculator fields.
type Input struct {
	Principal         float64 `json:"principal"`
	AnnualRatePercent float64 `json:"annual_rate_percent"`
	TenureYears       int     `json:"tenure_years"`
}

// Result holds the derived values. The zero value is the zero state.
type Result struct {
	Installment   float64 `json:"installment"`
	TotalPayment  float64 `json:"total_payment"`
	TotalInterest float64 `json:"total_interest"`
}

// MonthlyRate returns R / 12 / 100.
func (in Input) MonthlyRate() float64 {
	return in.AnnualRatePercent / 12 / 100
}

// Periods returns the number of monthly installments.
func (in Input) Periods() int {
	return in.TenureYears * 12
}

// IsZero reports whether the input degrades to the zero state.
func (in Input) IsZero() bool {
	return in.Principal == 0 || in.TenureYears == 0
}

func (in Input) check() error {
	if !finite(in.Principal) || !finite(in.AnnualRatePercent) {
		return ErrInvalidInput
	}
	if in.Principal < 0 || in.AnnualRatePercent < 0 || in.TenureYears < 0 {
		return ErrInvalidInput
	}
	if in.TenureYears > math.MaxInt/12 {
		return ErrOverflow
	}
	return nil
}

// IsZero reports whether r is the zero state.
func (r Result) IsZero() bool {
	return r == Result{}
}

// Compute converts principal, annual rate and tenure into the installment,
// total payment and total interest.
//
// A zero principal or tenure yields the zero state. A zero rate divides the
// principal linearly across the periods. TotalPayment is always exactly
// Installment*n and TotalInterest exactly TotalPayment-Principal; nothing is
// rounded here.
func Compute(in Input) (Result, error) {
	if err := in.check(); err != nil {
		return Result{}, err
	}
	if in.IsZero() {
		return Result{}, nil
	}

	n := float64(in.Periods())
	installment, err := installmentFor(in.Principal, in.MonthlyRate(), n)
	if err != nil {
		return Result{}, err
	}
	if installment == 0 {
		return Result{}, ErrOverflow
	}

	total := installment * n
	res := Result{
		Installment:   installment,
		TotalPayment:  total,
		TotalInterest: total - in.Principal,
	}
	if !finite(res.Installment) || !finite(res.TotalPayment) || !finite(res.TotalInterest) {
		return Result{}, ErrOverflow
	}
	return res, nil
}

func installmentFor(principal, r, n float64) (float64, error) {
	if r == 0 {
		return principal / n, nil
	}
	growth := math.Pow(1+r, n)
	if math.IsInf(growth, 0) || math.IsNaN(growth) {
		return 0, ErrOverflow
	}
	// 1+r rounds to 1 for vanishingly small rates.
	if growth == 1 {
		return principal / n, nil
	}
	return principal * r * growth / (growth - 1), nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
