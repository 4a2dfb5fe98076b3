// Package anthro implements the anthropometric assessment engine: WHO-style
// LMS reference tables, z-score computation, nutritional-status
// classification and growth velocity. It is a pure computation library;
// nothing in it performs I/O after the reference tables are loaded.
package anthro

import (
	"fmt"
	"math"
	"strings"
)

// DaysPerMonth is the average month length used by the WHO standards.
const DaysPerMonth = 30.4375

// DaysPerYear is the average year length used for velocity normalisation.
const DaysPerYear = 365.25

// MaxAgeMonths bounds caller-supplied ages. No growth reference extends
// past 20 years; anything above is a unit or typing error.
const MaxAgeMonths = 240

// Indicator identifies one growth index.
type Indicator int

const (
	WeightForAge Indicator = iota
	HeightForAge
	WeightForHeight
	BMIForAge
	HeadCircumferenceForAge
)

// Indicators lists every indicator in presentation order.
var Indicators = []Indicator{
	WeightForAge,
	HeightForAge,
	WeightForHeight,
	BMIForAge,
	HeadCircumferenceForAge,
}

// KeyKind tells which measurement dimension indexes a reference table.
type KeyKind int

const (
	KeyAgeMonths KeyKind = iota
	KeyHeightCm
)

var indicatorCodes = map[Indicator]string{
	WeightForAge:            "wfa",
	HeightForAge:            "hfa",
	WeightForHeight:         "wfh",
	BMIForAge:               "bfa",
	HeadCircumferenceForAge: "hcfa",
}

var indicatorScoreCodes = map[Indicator]string{
	WeightForAge:            "waz",
	HeightForAge:            "haz",
	WeightForHeight:         "whz",
	BMIForAge:               "baz",
	HeadCircumferenceForAge: "hcz",
}

var indicatorNames = map[Indicator]string{
	WeightForAge:            "Weight-for-Age",
	HeightForAge:            "Height-for-Age",
	WeightForHeight:         "Weight-for-Height",
	BMIForAge:               "BMI-for-Age",
	HeadCircumferenceForAge: "Head Circumference-for-Age",
}

// Code returns the short table code, e.g. "wfa".
func (i Indicator) Code() string { return indicatorCodes[i] }

// ScoreCode returns the z-score code, e.g. "waz".
func (i Indicator) ScoreCode() string { return indicatorScoreCodes[i] }

func (i Indicator) String() string {
	if n, ok := indicatorNames[i]; ok {
		return n
	}
	return fmt.Sprintf("Indicator(%d)", int(i))
}

// KeyKind reports whether the indicator's table is keyed by age or height.
func (i Indicator) KeyKind() KeyKind {
	if i == WeightForHeight {
		return KeyHeightCm
	}
	return KeyAgeMonths
}

// Unit is the unit of the observed value.
func (i Indicator) Unit() string {
	switch i {
	case WeightForAge, WeightForHeight:
		return "kg"
	case BMIForAge:
		return "kg/m2"
	default:
		return "cm"
	}
}

// ParseIndicator accepts either the table code ("wfa") or the z-score
// code ("waz").
func ParseIndicator(s string) (Indicator, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for ind, code := range indicatorCodes {
		if s == code || s == indicatorScoreCodes[ind] {
			return ind, nil
		}
	}
	return 0, fmt.Errorf("unknown indicator %q", s)
}

// Key extracts the table lookup key for this indicator from m.
func (i Indicator) Key(m Measurement) float64 {
	if i.KeyKind() == KeyHeightCm {
		return m.HeightCm
	}
	return m.AgeInMonths()
}

// Observed extracts the measured value the indicator scores. ok is false
// when the measurement does not carry it (head circumference is optional).
func (i Indicator) Observed(m Measurement) (value float64, ok bool) {
	switch i {
	case WeightForAge, WeightForHeight:
		return m.WeightKg, true
	case HeightForAge:
		return m.HeightCm, true
	case BMIForAge:
		return m.BMI(), true
	case HeadCircumferenceForAge:
		if m.HeadCircumferenceCm == nil {
			return 0, false
		}
		return *m.HeadCircumferenceCm, true
	}
	return 0, false
}

// Sex partitions every reference table.
type Sex int

const (
	SexUnknown Sex = iota
	Male
	Female
)

func (s Sex) String() string {
	switch s {
	case Male:
		return "male"
	case Female:
		return "female"
	}
	return "unknown"
}

// ParseSex understands the codes used by the web forms ("L" laki-laki,
// "P" perempuan) as well as English forms.
func ParseSex(s string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "l", "m", "male", "boy", "boys", "laki-laki":
		return Male, nil
	case "p", "f", "female", "girl", "girls", "perempuan":
		return Female, nil
	}
	return SexUnknown, fmt.Errorf("unknown sex %q", s)
}

// Measurement is one observation of a child.
type Measurement struct {
	AgeInDays           int
	WeightKg            float64
	HeightCm            float64
	HeadCircumferenceCm *float64
	Sex                 Sex
}

// Validate checks the measurement invariants.
func (m Measurement) Validate() error {
	switch {
	case m.AgeInDays < 0:
		return &ValidationError{Field: "age", Reason: "must not be negative"}
	case !(m.WeightKg > 0) || math.IsInf(m.WeightKg, 0):
		return &ValidationError{Field: "weight", Reason: "must be positive"}
	case !(m.HeightCm > 0) || math.IsInf(m.HeightCm, 0):
		return &ValidationError{Field: "height", Reason: "must be positive"}
	case m.HeadCircumferenceCm != nil && (!(*m.HeadCircumferenceCm > 0) || math.IsInf(*m.HeadCircumferenceCm, 0)):
		return &ValidationError{Field: "head_circumference", Reason: "must be positive"}
	case m.Sex != Male && m.Sex != Female:
		return &ValidationError{Field: "sex", Reason: "must be male or female"}
	}
	return nil
}

// AgeInMonths converts the age to fractional months.
func (m Measurement) AgeInMonths() float64 {
	return float64(m.AgeInDays) / DaysPerMonth
}

// BMI is weight divided by height in metres squared.
func (m Measurement) BMI() float64 {
	h := m.HeightCm / 100
	return m.WeightKg / (h * h)
}

// DaysFromMonths converts completed months to whole days. Callers check
// the age with CheckAgeMonths first.
func DaysFromMonths(months float64) int {
	return int(math.Round(months * DaysPerMonth))
}

// CheckAgeMonths rejects ages that are negative, not finite, or above
// MaxAgeMonths.
func CheckAgeMonths(field string, months float64) error {
	switch {
	case math.IsNaN(months) || math.IsInf(months, 0):
		return &ValidationError{Field: field, Reason: "must be a finite number"}
	case months < 0:
		return &ValidationError{Field: field, Reason: "must not be negative"}
	case months > MaxAgeMonths:
		return &ValidationError{Field: field, Reason: fmt.Sprintf("must not exceed %d months", MaxAgeMonths)}
	}
	return nil
}

// LMSEntry is one reference point of an LMS table.
type LMSEntry struct {
	Key float64 `json:"key"`
	L   float64 `json:"l"`
	M   float64 `json:"m"`
	S   float64 `json:"s"`
}
