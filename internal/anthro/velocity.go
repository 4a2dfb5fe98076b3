package anthro

import (
	"iter"
	"math"
	"strconv"
)

// VelocityRecord is the rate of change between two consecutive
// measurements, normalised to one year.
type VelocityRecord struct {
	PeriodLabel             string
	WeightVelocityKgPerYear float64
	HeightVelocityCmPerYear float64
	ElapsedYears            float64
}

// VelocityReport is the materialised output of ComputeVelocities.
type VelocityReport struct {
	Records []VelocityRecord
	// Skipped counts adjacent pairs whose age did not increase.
	Skipped int
}

const minVelocitySeries = 2

// Velocities returns a lazy sequence of velocity records for an
// age-ordered series. The sequence can be ranged over any number of
// times and yields the same records each time. Pairs whose age does not
// increase are not yielded.
func Velocities(series []Measurement) (iter.Seq[VelocityRecord], error) {
	if len(series) < minVelocitySeries {
		return nil, &InsufficientDataError{Got: len(series), Need: minVelocitySeries}
	}
	return func(yield func(VelocityRecord) bool) {
		for i := 1; i < len(series); i++ {
			rec, ok := velocity(series[i-1], series[i])
			if !ok {
				continue
			}
			if !yield(rec) {
				return
			}
		}
	}, nil
}

// ComputeVelocities materialises Velocities and reports how many pairs
// were skipped.
func ComputeVelocities(series []Measurement) (VelocityReport, error) {
	seq, err := Velocities(series)
	if err != nil {
		return VelocityReport{}, err
	}
	var rep VelocityReport
	for rec := range seq {
		rep.Records = append(rep.Records, rec)
	}
	rep.Skipped = len(series) - 1 - len(rep.Records)
	return rep, nil
}

func velocity(prev, curr Measurement) (VelocityRecord, bool) {
	elapsed := float64(curr.AgeInDays-prev.AgeInDays) / DaysPerYear
	if elapsed <= 0 {
		return VelocityRecord{}, false
	}
	return VelocityRecord{
		PeriodLabel:             periodLabel(prev, curr),
		WeightVelocityKgPerYear: (curr.WeightKg - prev.WeightKg) / elapsed,
		HeightVelocityCmPerYear: (curr.HeightCm - prev.HeightCm) / elapsed,
		ElapsedYears:            elapsed,
	}, true
}

func periodLabel(prev, curr Measurement) string {
	return formatMonths(prev.AgeInMonths()) + "-" + formatMonths(curr.AgeInMonths()) + " bulan"
}

func formatMonths(m float64) string {
	return strconv.FormatFloat(math.Round(m*10)/10, 'f', -1, 64)
}
