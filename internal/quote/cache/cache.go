// Package cache memoizes computed quotes. A cache is an optimisation only:
// the calculation is always the source of truth.
package cache

import (
	"strconv"

	"loanbroker/internal/emi"
)

// Key renders the canonical cache key for an input.
func Key(in emi.Input) string {
	return "quote:" +
		strconv.FormatFloat(in.Principal, 'g', -1, 64) + ":" +
		strconv.FormatFloat(in.AnnualRatePercent, 'g', -1, 64) + ":" +
		strconv.Itoa(in.TenureYears)
}
