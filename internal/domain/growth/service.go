package growth

import (
	"errors"
	"fmt"
	"math"

	"github.com/anthrogizi/anthrogizi/internal/anthro"
)

// Service adapts HTTP requests to the assessment engine. It holds no
// mutable state; the reference tables behind the calculator are shared
// read-only by every request.
type Service struct {
	calc     *anthro.Calculator
	recorder Recorder
}

// Recorder receives one observation per scored or unscorable indicator.
type Recorder interface {
	ObserveResult(indicator, severity string)
	ObserveFailure(indicator, reason string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveResult(string, string)  {}
func (nopRecorder) ObserveFailure(string, string) {}

func NewService(calc *anthro.Calculator) *Service {
	return &Service{calc: calc, recorder: nopRecorder{}}
}

// WithRecorder sets where assessment outcomes are counted.
func (s *Service) WithRecorder(r Recorder) *Service {
	if r != nil {
		s.recorder = r
	}
	return s
}

func (s *Service) observe(a anthro.Assessment) {
	for _, r := range a.Results {
		s.recorder.ObserveResult(r.Indicator.ScoreCode(), r.Severity.String())
	}
	for ind, err := range a.Errors {
		s.recorder.ObserveFailure(ind.ScoreCode(), failureReason(err))
	}
}

func failureReason(err error) string {
	var (
		missing  *anthro.MissingValueError
		rng      *anthro.OutOfRangeError
		table    *anthro.MissingTableError
		validate *anthro.ValidationError
	)
	switch {
	case errors.As(err, &missing):
		return "missing_value"
	case errors.As(err, &rng):
		return "out_of_range"
	case errors.As(err, &table):
		return "missing_table"
	case errors.As(err, &validate):
		return "invalid"
	default:
		return "computation"
	}
}

func (s *Service) CalculateAll(req MeasurementRequest) (*AssessmentResult, error) {
	m, err := req.Measurement()
	if err != nil {
		return nil, err
	}
	a, err := s.calc.Assess(m)
	if err != nil {
		return nil, err
	}
	s.observe(a)
	// An assessment where nothing could be scored is a failure of the
	// first indicator, usually an age outside every table.
	if len(a.Results) == 0 {
		return nil, a.Errors[anthro.WeightForAge]
	}

	out := &AssessmentResult{
		AgeDays:           m.AgeInDays,
		AgeMonths:         round(m.AgeInMonths(), 1),
		Gender:            req.Gender,
		Weight:            m.WeightKg,
		Height:            m.HeightCm,
		BMI:               round(m.BMI(), 2),
		HeadCircumference: m.HeadCircumferenceCm,
		Indices:           make(map[string]IndexResult, len(a.Results)),
	}
	for _, r := range a.Results {
		out.Indices[r.Indicator.ScoreCode()] = newIndexResult(r)
	}
	for ind, e := range a.Errors {
		if out.Unavailable == nil {
			out.Unavailable = map[string]string{}
		}
		out.Unavailable[ind.ScoreCode()] = e.Error()
	}
	return out, nil
}

// EasyMode returns the weight-for-age and height-for-age values at -2, 0
// and +2 SD for the child's age and sex.
func (s *Service) EasyMode(req EasyModeRequest) (*EasyModeResult, error) {
	sex, err := anthro.ParseSex(req.Gender)
	if err != nil {
		return nil, &anthro.ValidationError{Field: "gender", Reason: "must be L or P"}
	}
	days, err := ageInDays(req.AgeMonths, req.BirthDate, req.MeasurementDate)
	if err != nil {
		return nil, err
	}
	m := anthro.Measurement{AgeInDays: days, Sex: sex}

	out := &EasyModeResult{
		AgeDays:   days,
		AgeMonths: round(m.AgeInMonths(), 1),
		Gender:    req.Gender,
		Ranges:    map[string]Range{},
	}
	for _, ind := range []anthro.Indicator{anthro.WeightForAge, anthro.HeightForAge} {
		r, err := s.normalRange(ind, m)
		if err != nil {
			return nil, err
		}
		out.Ranges[rangeName(ind)] = r
	}
	return out, nil
}

func (s *Service) normalRange(ind anthro.Indicator, m anthro.Measurement) (Range, error) {
	lms, err := s.calc.LMS(ind, m)
	if err != nil {
		return Range{}, err
	}
	lo := anthro.ValueAtZ(lms.L, lms.M, lms.S, anthro.ModerateCutoff)
	hi := anthro.ValueAtZ(lms.L, lms.M, lms.S, anthro.AboveCutoff)
	if math.IsNaN(lo) || math.IsNaN(hi) {
		return Range{}, &anthro.ComputationError{Indicator: ind, Reason: "range bound is undefined"}
	}
	return Range{
		Min:    round(lo, 1),
		Median: round(lms.M, 1),
		Max:    round(hi, 1),
		Unit:   ind.Unit(),
	}, nil
}

func rangeName(ind anthro.Indicator) string {
	if ind == anthro.HeightForAge {
		return "height"
	}
	return "weight"
}

func (s *Service) Velocity(req VelocityRequest) (*VelocityResult, error) {
	sex := anthro.SexUnknown
	if req.Gender != "" {
		var err error
		if sex, err = anthro.ParseSex(req.Gender); err != nil {
			return nil, &anthro.ValidationError{Field: "gender", Reason: "must be L or P"}
		}
	}

	series := make([]anthro.Measurement, 0, len(req.Measurements))
	for i, p := range req.Measurements {
		field := fmt.Sprintf("measurements[%d]", i)
		if !(p.Weight > 0) || !(p.Height > 0) {
			return nil, &anthro.ValidationError{Field: field, Reason: "weight and height must be positive"}
		}
		var days int
		if p.AgeDays != nil {
			if err := anthro.CheckAgeMonths(field, float64(*p.AgeDays)/anthro.DaysPerMonth); err != nil {
				return nil, err
			}
			days = *p.AgeDays
		} else {
			if err := anthro.CheckAgeMonths(field, p.AgeMonths); err != nil {
				return nil, err
			}
			days = anthro.DaysFromMonths(p.AgeMonths)
		}
		series = append(series, anthro.Measurement{
			AgeInDays: days,
			WeightKg:  p.Weight,
			HeightCm:  p.Height,
			Sex:       sex,
		})
	}

	rep, err := anthro.ComputeVelocities(series)
	if err != nil {
		return nil, err
	}
	out := &VelocityResult{
		Velocities: make([]VelocityEntry, 0, len(rep.Records)),
		Skipped:    rep.Skipped,
	}
	for _, r := range rep.Records {
		out.Velocities = append(out.Velocities, VelocityEntry{
			Period:         r.PeriodLabel,
			WeightVelocity: round(r.WeightVelocityKgPerYear, 2),
			HeightVelocity: round(r.HeightVelocityCmPerYear, 2),
			TimeDiff:       round(r.ElapsedYears, 2),
		})
	}
	return out, nil
}

// Chart scores the requested indicator and renders it against the
// reference curves.
func (s *Service) Chart(req ChartRequest) (string, error) {
	ind := anthro.WeightForAge
	if req.Indicator != "" {
		var err error
		if ind, err = anthro.ParseIndicator(req.Indicator); err != nil {
			return "", &anthro.ValidationError{Field: "indicator", Reason: "is not a known indicator"}
		}
	}
	m, err := req.Measurement()
	if err != nil {
		return "", err
	}
	res, err := s.calc.Score(ind, m)
	if err != nil {
		return "", err
	}
	return RenderChart(s.calc.Reference(), res, m)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
