package emi

import (
	"fmt"

	dErrors "loanbroker/pkg/domain-errors"
)

// Limits are product maxima enforced where requests enter the system. They
// are not applied by Compute.
type Limits struct {
	MaxPrincipal   float64 `json:"max_principal" yaml:"max_principal"`
	MaxRatePercent float64 `json:"max_rate_percent" yaml:"max_rate_percent"`
	MaxTenureYears int     `json:"max_tenure_years" yaml:"max_tenure_years"`
}

// DefaultLimits returns the brokerage defaults: 5 crore, 18%, 30 years.
func DefaultLimits() Limits {
	return Limits{
		MaxPrincipal:   50_000_000,
		MaxRatePercent: 18,
		MaxTenureYears: 30,
	}
}

// Validate rejects negative, non-finite and out-of-range inputs. Out-of-range
// values are rejected, never clamped. Zero fields pass; they produce the zero
// state.
func (l Limits) Validate(in Input) error {
	switch {
	case !finite(in.Principal) || in.Principal < 0:
		return dErrors.New(dErrors.CodeValidation, "principal must be a non-negative amount")
	case l.MaxPrincipal > 0 && in.Principal > l.MaxPrincipal:
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("principal must not exceed %s", FormatAmount(l.MaxPrincipal)))
	case !finite(in.AnnualRatePercent) || in.AnnualRatePercent < 0:
		return dErrors.New(dErrors.CodeValidation, "annual rate must be a non-negative percentage")
	case l.MaxRatePercent > 0 && in.AnnualRatePercent > l.MaxRatePercent:
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("annual rate must not exceed %g%%", l.MaxRatePercent))
	case in.TenureYears < 0:
		return dErrors.New(dErrors.CodeValidation, "tenure must be a non-negative number of years")
	case l.MaxTenureYears > 0 && in.TenureYears > l.MaxTenureYears:
		return dErrors.New(dErrors.CodeValidation, fmt.Sprintf("tenure must not exceed %d years", l.MaxTenureYears))
	}
	return nil
}
