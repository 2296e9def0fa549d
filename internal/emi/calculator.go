package emi

// Calculator holds the latest inputs of a live calculator form and the result
// derived from them. It is owned by its caller and is not safe for
// concurrent use; share Inputs, not Calculators.
type Calculator struct {
	input  Input
	result Result
	err    error
}

// NewCalculator computes the initial result for in.
func NewCalculator(in Input) *Calculator {
	c := &Calculator{input: in}
	c.recompute()
	return c
}

func (c *Calculator) recompute() {
	c.result, c.err = Compute(c.input)
}

// SetPrincipal replaces the principal and recomputes.
func (c *Calculator) SetPrincipal(p float64) (Result, error) {
	c.input.Principal = p
	c.recompute()
	return c.result, c.err
}

// SetRate replaces the annual rate and recomputes.
func (c *Calculator) SetRate(annualRatePercent float64) (Result, error) {
	c.input.AnnualRatePercent = annualRatePercent
	c.recompute()
	return c.result, c.err
}

// SetTenure replaces the tenure and recomputes.
func (c *Calculator) SetTenure(years int) (Result, error) {
	c.input.TenureYears = years
	c.recompute()
	return c.result, c.err
}

// Input returns the current snapshot of the three fields.
func (c *Calculator) Input() Input { return c.input }

// Result returns the result derived from Input; it is the zero state while
// Err is non-nil.
func (c *Calculator) Result() Result { return c.result }

// Err returns the error from the last recomputation, if any.
func (c *Calculator) Err() error { return c.err }
