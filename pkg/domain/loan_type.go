package domain

import (
	"strings"

	dErrors "loanbroker/pkg/domain-errors"
)

// LoanType is a product line offered by the brokerage.
type LoanType string

const (
	LoanHome     LoanType = "home"
	LoanVehicle  LoanType = "vehicle"
	LoanPersonal LoanType = "personal"
	LoanBusiness LoanType = "business"
	LoanMortgage LoanType = "mortgage"
)

// AllLoanTypes lists every product in display order.
func AllLoanTypes() []LoanType {
	return []LoanType{LoanHome, LoanVehicle, LoanPersonal, LoanBusiness, LoanMortgage}
}

func (t LoanType) IsValid() bool {
	switch t {
	case LoanHome, LoanVehicle, LoanPersonal, LoanBusiness, LoanMortgage:
		return true
	}
	return false
}

func (t LoanType) String() string { return string(t) }

// ParseLoanType accepts any casing and surrounding whitespace.
func ParseLoanType(s string) (LoanType, error) {
	t := LoanType(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return "", dErrors.New(dErrors.CodeValidation, "loan type is required")
	}
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeValidation, "unknown loan type "+s)
	}
	return t, nil
}
