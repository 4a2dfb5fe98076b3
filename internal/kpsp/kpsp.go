// Package kpsp scores the KPSP (Kuesioner Pra Skrining Perkembangan)
// developmental screening checklist.
package kpsp

import (
	"errors"
	"fmt"
)

// Tier is the screening interpretation band.
type Tier string

const (
	TierNormal       Tier = "normal"
	TierQuestionable Tier = "meragukan"
	TierDelayed      Tier = "terlambat"
)

// Tier cut-offs, as percentages of questions passed.
const (
	NormalThreshold       = 80.0
	QuestionableThreshold = 60.0
)

// Response maps a question identifier to whether the child passed it.
type Response map[string]bool

// Result is the outcome of scoring one checklist.
type Result struct {
	Score           int      `json:"score"`
	TotalQuestions  int      `json:"total_questions"`
	Percentage      float64  `json:"percentage"`
	Tier            Tier     `json:"status"`
	Interpretation  string   `json:"interpretation"`
	Recommendations []string `json:"recommendations"`
}

// EmptyResponseSetError is returned when no questions were answered.
type EmptyResponseSetError struct{}

func (*EmptyResponseSetError) Error() string {
	return "no screening responses supplied"
}

var interpretations = map[Tier]string{
	TierNormal:       "Perkembangan Normal",
	TierQuestionable: "Perkembangan Meragukan",
	TierDelayed:      "Perkembangan Terlambat",
}

var recommendations = map[Tier][]string{
	TierNormal: {
		"Lanjutkan stimulasi rutin di rumah",
		"Ikuti jadwal KMS sesuai usia",
		"Berikan nutrisi yang seimbang",
	},
	TierQuestionable: {
		"Konsultasikan dengan tenaga kesehatan",
		"Lakukan stimulasi perkembangan secara intensif",
		"Lakukan pemeriksaan ulang dalam 1-2 bulan",
	},
	TierDelayed: {
		"Segera konsultasi dengan dokter anak",
		"Rujuk ke layanan intervensi dini",
		"Lakukan pemeriksaan menyeluruh",
	},
}

// Score counts passed questions and assigns the interpretation tier.
func Score(responses Response) (Result, error) {
	total := len(responses)
	if total == 0 {
		return Result{}, &EmptyResponseSetError{}
	}
	passed := 0
	for _, ok := range responses {
		if ok {
			passed++
		}
	}
	pct := 100 * float64(passed) / float64(total)
	tier := Classify(pct)

	return Result{
		Score:           passed,
		TotalQuestions:  total,
		Percentage:      pct,
		Tier:            tier,
		Interpretation:  interpretations[tier],
		Recommendations: Recommendations(tier),
	}, nil
}

// Classify maps a percentage to its tier.
func Classify(percentage float64) Tier {
	switch {
	case percentage >= NormalThreshold:
		return TierNormal
	case percentage >= QuestionableThreshold:
		return TierQuestionable
	default:
		return TierDelayed
	}
}

// Recommendations returns the fixed guidance for a tier.
func Recommendations(t Tier) []string {
	recs := make([]string, len(recommendations[t]))
	copy(recs, recommendations[t])
	return recs
}

// ScheduleAges are the ages in months at which a KPSP questionnaire
// exists.
var ScheduleAges = []int{3, 6, 9, 12, 15, 18, 21, 24, 30, 36, 42, 48, 54, 60, 66, 72}

// ErrNoQuestionnaire is returned for ages outside the KPSP schedule.
var ErrNoQuestionnaire = errors.New("no KPSP questionnaire for this age")

// ScheduleAge returns the questionnaire age to administer to a child of
// ageMonths: the latest scheduled age not after the child's age.
func ScheduleAge(ageMonths int) (int, error) {
	first, last := ScheduleAges[0], ScheduleAges[len(ScheduleAges)-1]
	if ageMonths < first || ageMonths > last+5 {
		return 0, fmt.Errorf("%w: %d months (supported %d-%d)", ErrNoQuestionnaire, ageMonths, first, last+5)
	}
	sched := first
	for _, a := range ScheduleAges {
		if a > ageMonths {
			break
		}
		sched = a
	}
	return sched, nil
}
