package emi

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Rounded is a Result rounded to whole currency units for display.
type Rounded struct {
	Installment   int64 `json:"installment"`
	TotalPayment  int64 `json:"total_payment"`
	TotalInterest int64 `json:"total_interest"`
}

// Rounded rounds each field independently, half away from zero. Rounding
// happens only here, after every identity has been computed on raw floats.
func (r Result) Rounded() Rounded {
	return Rounded{
		Installment:   roundUnits(r.Installment),
		TotalPayment:  roundUnits(r.TotalPayment),
		TotalInterest: roundUnits(r.TotalInterest),
	}
}

func roundUnits(v float64) int64 {
	return decimal.NewFromFloat(v).Round(0).IntPart()
}

// FormatAmount renders v rounded to whole units with Indian digit grouping,
// e.g. 2500000 -> "25,00,000".
func FormatAmount(v float64) string {
	s := decimal.NewFromFloat(v).Round(0).String()
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	if len(s) > 3 {
		head, tail := s[:len(s)-3], s[len(s)-3:]
		var groups []string
		for len(head) > 2 {
			groups = append([]string{head[len(head)-2:]}, groups...)
			head = head[:len(head)-2]
		}
		if head != "" {
			groups = append([]string{head}, groups...)
		}
		s = strings.Join(groups, ",") + "," + tail
	}
	if neg {
		return "-" + s
	}
	return s
}
