package anthro

import "math"

// Severity is the nutritional-status band of a z-score.
type Severity int

const (
	Normal Severity = iota
	Moderate
	Severe
	Above
)

// Classification cut-offs, in standard deviations.
const (
	SevereCutoff     = -3.0
	ModerateCutoff   = -2.0
	AboveCutoff      = 2.0
	ImplausibleLimit = 6.0
)

func (s Severity) String() string {
	switch s {
	case Severe:
		return "severe"
	case Moderate:
		return "moderate"
	case Above:
		return "above"
	}
	return "normal"
}

// StatusCategory is the label shown for a severity band.
type StatusCategory string

const (
	StatusSeverelyLow StatusCategory = "Severely Low"
	StatusLow         StatusCategory = "Low"
	StatusNormal      StatusCategory = "Normal"
	StatusHigh        StatusCategory = "High"
)

// Status returns the category label for the band.
func (s Severity) Status() StatusCategory {
	switch s {
	case Severe:
		return StatusSeverelyLow
	case Moderate:
		return StatusLow
	case Above:
		return StatusHigh
	}
	return StatusNormal
}

// LocalStatus returns the Indonesian nutritional-status term.
func (s Severity) LocalStatus() string {
	switch s {
	case Severe:
		return "Gizi Buruk"
	case Moderate:
		return "Gizi Kurang"
	case Above:
		return "Gizi Lebih"
	}
	return "Gizi Baik"
}

// Tone is the presentation hint the web front-end colours results with.
func (s Severity) Tone() string {
	switch s {
	case Severe:
		return "danger"
	case Moderate:
		return "warning"
	case Above:
		return "info"
	}
	return "success"
}

// Classify maps a z-score to its status band. It is total over the
// finite reals.
func Classify(z float64) (StatusCategory, Severity) {
	var sev Severity
	switch {
	case z < SevereCutoff:
		sev = Severe
	case z < ModerateCutoff:
		sev = Moderate
	case z > AboveCutoff:
		sev = Above
	default:
		sev = Normal
	}
	return sev.Status(), sev
}

// Implausible reports whether z lies so far from the median that the
// measurement is more likely an entry error than a real child.
func Implausible(z float64) bool {
	return math.Abs(z) > ImplausibleLimit
}

// ZScoreResult is a classified z-score for one indicator.
type ZScoreResult struct {
	Indicator   Indicator
	Value       float64
	Severity    Severity
	Implausible bool
}

// NewZScoreResult classifies z for ind.
func NewZScoreResult(ind Indicator, z float64) ZScoreResult {
	_, sev := Classify(z)
	return ZScoreResult{
		Indicator:   ind,
		Value:       z,
		Severity:    sev,
		Implausible: Implausible(z),
	}
}

// Status is always derived from Value.
func (r ZScoreResult) Status() StatusCategory {
	status, _ := Classify(r.Value)
	return status
}
