package emi

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "loanbroker/pkg/domain-errors"
)

// referenceInstallment uses the reciprocal form P*r / (1 - (1+r)^-n) so the
// expected value does not share code with Compute.
func referenceInstallment(p, annual float64, years int) float64 {
	r := annual / 1200
	n := float64(years * 12)
	return p * r / (1 - math.Pow(1+r, -n))
}

func TestIdentityInvariant(t *testing.T) {
	inputs := []Input{
		{Principal: 100_000, AnnualRatePercent: 7.25, TenureYears: 5},
		{Principal: 2_500_000, AnnualRatePercent: 8.5, TenureYears: 20},
		{Principal: 1, AnnualRatePercent: 18, TenureYears: 1},
		{Principal: 1_200_000, AnnualRatePercent: 0, TenureYears: 10},
		{Principal: 50_000_000, AnnualRatePercent: 18, TenureYears: 30},
		{Principal: 333_333.33, AnnualRatePercent: 0.01, TenureYears: 30},
	}
	for _, in := range inputs {
		res, err := Compute(in)
		require.NoError(t, err)

		n := float64(in.TenureYears * 12)
		assert.Equal(t, res.Installment*n, res.TotalPayment, "total payment for %+v", in)
		assert.Equal(t, res.TotalPayment-in.Principal, res.TotalInterest, "total interest for %+v", in)
	}
}

func TestZeroInterest(t *testing.T) {
	res, err := Compute(Input{Principal: 1_200_000, AnnualRatePercent: 0, TenureYears: 10})
	require.NoError(t, err)

	assert.Equal(t, 10_000.0, res.Installment)
	assert.Equal(t, 1_200_000.0, res.TotalPayment)
	assert.Equal(t, 0.0, res.TotalInterest)
}

func TestMonotonicInRate(t *testing.T) {
	prev, err := Compute(Input{Principal: 1_000_000, AnnualRatePercent: 0, TenureYears: 15})
	require.NoError(t, err)

	for rate := 0.5; rate <= 18; rate += 0.5 {
		cur, err := Compute(Input{Principal: 1_000_000, AnnualRatePercent: rate, TenureYears: 15})
		require.NoError(t, err)
		assert.Greater(t, cur.Installment, prev.Installment, "installment at %.1f%%", rate)
		assert.Greater(t, cur.TotalInterest, prev.TotalInterest, "interest at %.1f%%", rate)
		prev = cur
	}
}

func TestMonotonicInTenure(t *testing.T) {
	t.Run("positive rate", func(t *testing.T) {
		prev, err := Compute(Input{Principal: 1_000_000, AnnualRatePercent: 9, TenureYears: 1})
		require.NoError(t, err)

		for years := 2; years <= 30; years++ {
			cur, err := Compute(Input{Principal: 1_000_000, AnnualRatePercent: 9, TenureYears: years})
			require.NoError(t, err)
			assert.Greater(t, cur.TotalPayment, prev.TotalPayment, "total at %d years", years)
			assert.Greater(t, cur.TotalInterest, prev.TotalInterest, "interest at %d years", years)
			assert.Less(t, cur.Installment, prev.Installment, "installment at %d years", years)
			prev = cur
		}
	})

	t.Run("zero rate holds totals", func(t *testing.T) {
		short, err := Compute(Input{Principal: 600_000, TenureYears: 5})
		require.NoError(t, err)
		long, err := Compute(Input{Principal: 600_000, TenureYears: 10})
		require.NoError(t, err)

		assert.Less(t, long.Installment, short.Installment)
		assert.InDelta(t, short.TotalPayment, long.TotalPayment, 1e-6)
		assert.InDelta(t, 0, long.TotalInterest, 1e-6)
	})
}

func TestReferenceScenario(t *testing.T) {
	in := Input{Principal: 2_500_000, AnnualRatePercent: 8.5, TenureYears: 20}
	assert.InDelta(t, 0.0070833, in.MonthlyRate(), 1e-7)
	assert.Equal(t, 240, in.Periods())

	res, err := Compute(in)
	require.NoError(t, err)

	want := referenceInstallment(2_500_000, 8.5, 20)
	assert.InDelta(t, want, res.Installment, 1)
	assert.InDelta(t, math.Round(want), float64(res.Rounded().Installment), 1)
	assert.InDelta(t, 21_696, float64(res.Rounded().Installment), 1)
}

func TestDegenerateInputsYieldZeroState(t *testing.T) {
	for _, in := range []Input{
		{Principal: 0, AnnualRatePercent: 8.5, TenureYears: 20},
		{Principal: 2_500_000, AnnualRatePercent: 0, TenureYears: 0},
		{},
		ParseInput("", "8.5", "20"),
		ParseInput("abc", "x", "twenty"),
	} {
		res, err := Compute(in)
		require.NoError(t, err, "%+v", in)
		assert.True(t, res.IsZero(), "%+v", in)
	}
}

func TestScaleScenario(t *testing.T) {
	in := Input{Principal: 50_000_000, AnnualRatePercent: 18, TenureYears: 30}
	res, err := Compute(in)
	require.NoError(t, err)

	assert.False(t, math.IsInf(res.TotalPayment, 0))
	assert.Equal(t, res.Installment*360, res.TotalPayment)
	assert.Equal(t, res.TotalPayment-in.Principal, res.TotalInterest)
	assert.InDelta(t, referenceInstallment(50_000_000, 18, 30), res.Installment, 1e-3)
}

func TestInvalidInputs(t *testing.T) {
	cases := map[string]Input{
		"negative principal": {Principal: -1, AnnualRatePercent: 8, TenureYears: 5},
		"negative rate":      {Principal: 1000, AnnualRatePercent: -0.5, TenureYears: 5},
		"negative tenure":    {Principal: 1000, AnnualRatePercent: 8, TenureYears: -5},
		"NaN principal":      {Principal: math.NaN(), AnnualRatePercent: 8, TenureYears: 5},
		"infinite rate":      {Principal: 1000, AnnualRatePercent: math.Inf(1), TenureYears: 5},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Compute(in)
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
		})
	}
}

func TestOverflow(t *testing.T) {
	t.Run("compound factor overflows", func(t *testing.T) {
		_, err := Compute(Input{Principal: 1000, AnnualRatePercent: 1e6, TenureYears: 1000})
		require.ErrorIs(t, err, ErrOverflow)
	})

	t.Run("total overflows", func(t *testing.T) {
		_, err := Compute(Input{Principal: math.MaxFloat64 / 2, AnnualRatePercent: 18, TenureYears: 30})
		require.ErrorIs(t, err, ErrOverflow)
	})

	t.Run("subnormal principal underflows the installment", func(t *testing.T) {
		res, err := Compute(Input{Principal: math.SmallestNonzeroFloat64, AnnualRatePercent: 18, TenureYears: 30})
		require.ErrorIs(t, err, ErrOverflow)
		assert.True(t, res.IsZero())
	})

	t.Run("tenure periods overflow int", func(t *testing.T) {
		_, err := Compute(Input{Principal: 1000, AnnualRatePercent: 5, TenureYears: math.MaxInt / 6})
		require.ErrorIs(t, err, ErrOverflow)
	})
}

func TestVanishingRateFallsBackToLinear(t *testing.T) {
	res, err := Compute(Input{Principal: 1200, AnnualRatePercent: 1e-18, TenureYears: 1})
	require.NoError(t, err)
	assert.InDelta(t, 100, res.Installment, 1e-9)
}
