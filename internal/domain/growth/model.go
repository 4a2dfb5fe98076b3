package growth

import (
	"time"

	"github.com/anthrogizi/anthrogizi/internal/anthro"
)

const dateLayout = "2006-01-02"

// MeasurementRequest is the body of calculate-all and growth-chart.
// Age comes from birth_date/measurement_date when both are given,
// otherwise from age_months.
type MeasurementRequest struct {
	Weight            float64  `json:"weight"`
	Height            float64  `json:"height"`
	AgeMonths         *float64 `json:"age_months"`
	Gender            string   `json:"gender"`
	HeadCircumference *float64 `json:"head_circumference,omitempty"`
	BirthDate         string   `json:"birth_date,omitempty"`
	MeasurementDate   string   `json:"measurement_date,omitempty"`
}

// Measurement converts the request into an engine measurement and
// validates it.
func (r MeasurementRequest) Measurement() (anthro.Measurement, error) {
	sex, err := anthro.ParseSex(r.Gender)
	if err != nil {
		return anthro.Measurement{}, &anthro.ValidationError{Field: "gender", Reason: "must be L or P"}
	}
	days, err := ageInDays(r.AgeMonths, r.BirthDate, r.MeasurementDate)
	if err != nil {
		return anthro.Measurement{}, err
	}
	m := anthro.Measurement{
		AgeInDays:           days,
		WeightKg:            r.Weight,
		HeightCm:            r.Height,
		HeadCircumferenceCm: r.HeadCircumference,
		Sex:                 sex,
	}
	if err := m.Validate(); err != nil {
		return anthro.Measurement{}, err
	}
	return m, nil
}

// ChartRequest selects one indicator to plot for the measurement.
type ChartRequest struct {
	MeasurementRequest
	Indicator string `json:"indicator"`
}

// EasyModeRequest asks for the normal ranges of a child's age and sex.
type EasyModeRequest struct {
	AgeMonths       *float64 `json:"age_months"`
	Gender          string   `json:"gender"`
	BirthDate       string   `json:"birth_date,omitempty"`
	MeasurementDate string   `json:"measurement_date,omitempty"`
}

// VelocityPoint is one entry of a velocity series. age_days takes
// precedence over age_months when both are present.
type VelocityPoint struct {
	AgeMonths float64 `json:"age_months"`
	AgeDays   *int    `json:"age_days,omitempty"`
	Weight    float64 `json:"weight"`
	Height    float64 `json:"height"`
}

// VelocityRequest is the body of growth-velocity.
type VelocityRequest struct {
	Gender       string          `json:"gender,omitempty"`
	Measurements []VelocityPoint `json:"measurements"`
}

// IndexResult is one classified z-score as returned to clients.
type IndexResult struct {
	Code        string  `json:"code"`
	Indicator   string  `json:"indicator"`
	ZScore      float64 `json:"z_score"`
	Status      string  `json:"status"`
	Severity    string  `json:"severity"`
	LocalStatus string  `json:"local_status"`
	Tone        string  `json:"tone"`
	Implausible bool    `json:"implausible,omitempty"`
}

func newIndexResult(r anthro.ZScoreResult) IndexResult {
	return IndexResult{
		Code:        r.Indicator.ScoreCode(),
		Indicator:   r.Indicator.String(),
		ZScore:      round(r.Value, 2),
		Status:      string(r.Status()),
		Severity:    r.Severity.String(),
		LocalStatus: r.Severity.LocalStatus(),
		Tone:        r.Severity.Tone(),
		Implausible: r.Implausible,
	}
}

// AssessmentResult is the response of calculate-all.
type AssessmentResult struct {
	AgeDays           int                    `json:"age_days"`
	AgeMonths         float64                `json:"age_months"`
	Gender            string                 `json:"gender"`
	Weight            float64                `json:"weight"`
	Height            float64                `json:"height"`
	BMI               float64                `json:"bmi"`
	HeadCircumference *float64               `json:"head_circumference,omitempty"`
	Indices           map[string]IndexResult `json:"indices"`
	// Unavailable explains indices that could not be scored, by code.
	Unavailable map[string]string `json:"unavailable,omitempty"`
}

// Range is a normal interval at -2 and +2 SD around the median.
type Range struct {
	Min    float64 `json:"min"`
	Median float64 `json:"median"`
	Max    float64 `json:"max"`
	Unit   string  `json:"unit"`
}

// EasyModeResult is the response of easy-mode.
type EasyModeResult struct {
	AgeDays   int              `json:"age_days"`
	AgeMonths float64          `json:"age_months"`
	Gender    string           `json:"gender"`
	Ranges    map[string]Range `json:"ranges"`
}

// VelocityEntry is one velocity period as returned to clients.
type VelocityEntry struct {
	Period         string  `json:"period"`
	WeightVelocity float64 `json:"weight_velocity"`
	HeightVelocity float64 `json:"height_velocity"`
	TimeDiff       float64 `json:"time_diff"`
}

// VelocityResult is the response of growth-velocity.
type VelocityResult struct {
	Velocities []VelocityEntry `json:"velocities"`
	Skipped    int             `json:"skipped"`
}

func ageInDays(ageMonths *float64, birth, measured string) (int, error) {
	if birth != "" && measured != "" {
		b, err := time.Parse(dateLayout, birth)
		if err != nil {
			return 0, &anthro.ValidationError{Field: "birth_date", Reason: "must be YYYY-MM-DD"}
		}
		m, err := time.Parse(dateLayout, measured)
		if err != nil {
			return 0, &anthro.ValidationError{Field: "measurement_date", Reason: "must be YYYY-MM-DD"}
		}
		if m.Before(b) {
			return 0, &anthro.ValidationError{Field: "measurement_date", Reason: "must not be before birth_date"}
		}
		days := int(m.Sub(b).Hours() / 24)
		if err := anthro.CheckAgeMonths("measurement_date", float64(days)/anthro.DaysPerMonth); err != nil {
			return 0, err
		}
		return days, nil
	}
	if ageMonths == nil {
		return 0, &anthro.ValidationError{Field: "age_months", Reason: "is required"}
	}
	if err := anthro.CheckAgeMonths("age_months", *ageMonths); err != nil {
		return 0, err
	}
	return anthro.DaysFromMonths(*ageMonths), nil
}
