package models

import (
	"time"

	"github.com/shopspring/decimal"

	"loanbroker/internal/emi"
)

// Display is the rounded, formatted view of a Result. Raw floats stay on the
// Quote; these values are for presentation only.
type Display struct {
	Installment       int64  `json:"installment"`
	TotalPayment      int64  `json:"total_payment"`
	TotalInterest     int64  `json:"total_interest"`
	InstallmentText   string `json:"installment_text"`
	TotalPaymentText  string `json:"total_payment_text"`
	TotalInterestText string `json:"total_interest_text"`
	InterestSharePct  int64  `json:"interest_share_percent"`
	PrincipalSharePct int64  `json:"principal_share_percent"`
}

type Quote struct {
	Input      emi.Input  `json:"input"`
	Result     emi.Result `json:"result"`
	Display    Display    `json:"display"`
	Cached     bool       `json:"cached"`
	ComputedAt time.Time  `json:"computed_at"`
}

// NewDisplay derives the presentation block for res. The principal/interest
// split mirrors the calculator's breakdown chart and always sums to 100 for a
// non-zero result.
func NewDisplay(res emi.Result) Display {
	r := res.Rounded()
	d := Display{
		Installment:       r.Installment,
		TotalPayment:      r.TotalPayment,
		TotalInterest:     r.TotalInterest,
		InstallmentText:   emi.FormatAmount(res.Installment),
		TotalPaymentText:  emi.FormatAmount(res.TotalPayment),
		TotalInterestText: emi.FormatAmount(res.TotalInterest),
	}
	if res.TotalPayment > 0 {
		share := decimal.NewFromFloat(res.TotalInterest / res.TotalPayment * 100).Round(0).IntPart()
		d.InterestSharePct = share
		d.PrincipalSharePct = 100 - share
	}
	return d
}

type ScheduleResponse struct {
	Quote   Quote        `json:"quote"`
	Periods []emi.Period `json:"periods"`
}

// QuoteRequest is the JSON body of POST /v1/emi.
type QuoteRequest struct {
	Principal         float64 `json:"principal"`
	AnnualRatePercent float64 `json:"annual_rate_percent"`
	TenureYears       int     `json:"tenure_years"`
}

func (r QuoteRequest) Input() emi.Input {
	return emi.Input{
		Principal:         r.Principal,
		AnnualRatePercent: r.AnnualRatePercent,
		TenureYears:       r.TenureYears,
	}
}
