package anthro

import (
	"errors"
	"math"
)

// ZScore applies the LMS transform to an observed value x.
//
//	L != 0: Z = ((x/M)^L - 1) / (L*S)
//	L == 0: Z = ln(x/M) / S
func ZScore(l, m, s, x float64) (float64, error) {
	if !(m > 0) || !(s > 0) {
		return 0, &ComputationError{Reason: "M and S must be positive"}
	}
	if !(x > 0) {
		return 0, &ComputationError{Reason: "observed value must be positive"}
	}

	var z float64
	if l == 0 {
		z = math.Log(x/m) / s
	} else {
		d := l * s
		if d == 0 {
			return 0, &ComputationError{Reason: "L*S evaluated to zero"}
		}
		z = (math.Pow(x/m, l) - 1) / d
	}
	if math.IsNaN(z) || math.IsInf(z, 0) {
		return 0, &ComputationError{Reason: "z-score is not finite"}
	}
	return z, nil
}

// ValueAtZ inverts the LMS transform, returning the measurement that lies
// z standard deviations from the median.
func ValueAtZ(l, m, s, z float64) float64 {
	if l == 0 {
		return m * math.Exp(s*z)
	}
	base := 1 + l*s*z
	if base <= 0 {
		return math.NaN()
	}
	return m * math.Pow(base, 1/l)
}

// Calculator computes z-scores against a loaded ReferenceTable. It keeps
// no state of its own and is safe for concurrent use.
type Calculator struct {
	ref *ReferenceTable
}

// NewCalculator binds a calculator to reference data.
func NewCalculator(ref *ReferenceTable) *Calculator {
	return &Calculator{ref: ref}
}

// Reference exposes the underlying tables for read-only queries.
func (c *Calculator) Reference() *ReferenceTable { return c.ref }

// LMS resolves the reference parameters for ind at the key carried by m.
func (c *Calculator) LMS(ind Indicator, m Measurement) (LMSEntry, error) {
	t, err := c.ref.Table(ind, m.Sex)
	if err != nil {
		return LMSEntry{}, err
	}
	return t.Resolve(ind.Key(m))
}

// ComputeZScore returns the standard score of m for one indicator.
func (c *Calculator) ComputeZScore(ind Indicator, m Measurement) (float64, error) {
	if err := m.Validate(); err != nil {
		return 0, err
	}
	x, ok := ind.Observed(m)
	if !ok {
		return 0, &MissingValueError{Indicator: ind, Field: "head circumference"}
	}
	lms, err := c.LMS(ind, m)
	if err != nil {
		return 0, err
	}
	z, err := ZScore(lms.L, lms.M, lms.S, x)
	if err != nil {
		var ce *ComputationError
		if errors.As(err, &ce) {
			ce.Indicator = ind
		}
		return 0, err
	}
	return z, nil
}

// Score computes and classifies one indicator.
func (c *Calculator) Score(ind Indicator, m Measurement) (ZScoreResult, error) {
	z, err := c.ComputeZScore(ind, m)
	if err != nil {
		return ZScoreResult{}, err
	}
	return NewZScoreResult(ind, z), nil
}

// Assessment is the outcome of scoring every applicable indicator.
type Assessment struct {
	Results []ZScoreResult
	Errors  map[Indicator]error
}

// Result returns the result for ind, if it was computed.
func (a Assessment) Result(ind Indicator) (ZScoreResult, bool) {
	for _, r := range a.Results {
		if r.Indicator == ind {
			return r, true
		}
	}
	return ZScoreResult{}, false
}

// Assess scores every indicator m carries data for. Head
// circumference-for-age is skipped when no head circumference was
// measured. An indicator that cannot be scored (for example a height
// outside the weight-for-height table) is reported in Errors without
// affecting the others. A measurement that fails validation is returned
// as an error.
func (c *Calculator) Assess(m Measurement) (Assessment, error) {
	if err := m.Validate(); err != nil {
		return Assessment{}, err
	}
	a := Assessment{Errors: map[Indicator]error{}}
	for _, ind := range Indicators {
		if ind == HeadCircumferenceForAge && m.HeadCircumferenceCm == nil {
			continue
		}
		r, err := c.Score(ind, m)
		if err != nil {
			a.Errors[ind] = err
			continue
		}
		a.Results = append(a.Results, r)
	}
	return a, nil
}
