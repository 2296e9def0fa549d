package emi

import (
	"math"

	dErrors "loanbroker/pkg/domain-errors"
)

// MaxSchedulePeriods bounds the size of a generated table.
const MaxSchedulePeriods = 100 * 12

// Period is one row of an amortization table.
type Period struct {
	Month       int     `json:"month"`
	Installment float64 `json:"installment"`
	Principal   float64 `json:"principal"`
	Interest    float64 `json:"interest"`
	Balance     float64 `json:"balance"`
}

// Schedule expands in into its month-by-month amortization table. The zero
// state yields an empty table. The final row pays off whatever balance is
// left, so Principal sums to the loan amount and the closing balance is
// exactly zero; its Installment absorbs the floating point drift.
func Schedule(in Input) ([]Period, error) {
	res, err := Compute(in)
	if err != nil {
		return nil, err
	}
	if res.IsZero() {
		return nil, nil
	}
	n := in.Periods()
	if n > MaxSchedulePeriods {
		return nil, dErrors.New(dErrors.CodeValidation, "tenure too long for an amortization table")
	}

	r := in.MonthlyRate()
	balance := in.Principal
	periods := make([]Period, 0, n)
	for m := 1; m <= n; m++ {
		interest := balance * r
		installment := res.Installment
		principal := installment - interest
		if m == n {
			principal = balance
			installment = principal + interest
		}
		balance -= principal
		periods = append(periods, Period{
			Month:       m,
			Installment: installment,
			Principal:   principal,
			Interest:    interest,
			Balance:     balance,
		})
	}
	return periods, nil
}

// RemainingBalance returns the outstanding principal after paid installments:
// B = P[(1+r)^n - (1+r)^p] / [(1+r)^n - 1].
func RemainingBalance(in Input, paid int) (float64, error) {
	if err := in.check(); err != nil {
		return 0, err
	}
	if in.IsZero() {
		return 0, nil
	}
	n := in.Periods()
	if paid < 0 || paid > n {
		return 0, dErrors.New(dErrors.CodeValidation, "paid installments must be between zero and the number of periods")
	}

	r := in.MonthlyRate()
	if r == 0 {
		return in.Principal * float64(n-paid) / float64(n), nil
	}
	gn := math.Pow(1+r, float64(n))
	if math.IsInf(gn, 0) {
		return 0, ErrOverflow
	}
	if gn == 1 {
		return in.Principal * float64(n-paid) / float64(n), nil
	}
	gp := math.Pow(1+r, float64(paid))
	return in.Principal * (gn - gp) / (gn - 1), nil
}
