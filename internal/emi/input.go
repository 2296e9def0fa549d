package emi

import (
	"math"
	"strconv"
	"strings"
)

// ParseInput reads the three calculator fields as typed by a user. Empty or
// non-numeric fields read as zero so a half-edited form produces the zero
// state instead of an error. Negative numbers are kept so Compute and Limits
// can reject them.
func ParseInput(principal, rate, tenure string) Input {
	return Input{
		Principal:         parseAmount(principal),
		AnnualRatePercent: parseAmount(rate),
		TenureYears:       parseYears(tenure),
	}
}

func parseAmount(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "₹")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSuffix(s, "%")
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

func parseYears(s string) int {
	v := parseAmount(s)
	if v != math.Trunc(v) || v > math.MaxInt32 || v < math.MinInt32 {
		return 0
	}
	return int(v)
}
