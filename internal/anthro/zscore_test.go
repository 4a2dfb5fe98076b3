package anthro

import (
	"errors"
	"io"
	"math"
	"strings"
	"sync"
	"testing"
)

func approx(a, b, tol float64) bool { return math.Abs(a-b) <= tol }

func testReference(t *testing.T) *ReferenceTable {
	t.Helper()
	flat := "key,L,M,S\n0,1,10,0.1\n60,1,20,0.1\n"
	sources := map[TableKey]io.Reader{
		{WeightForAge, Male}:            strings.NewReader(wfaBoys),
		{HeightForAge, Male}:            strings.NewReader("Month,L,M,S\n0,1,49.8842,0.03795\n6,1,67.6236,0.03165\n12,1,75.7488,0.03137\n24,1,87.1161,0.03507\n"),
		{WeightForHeight, Male}:         strings.NewReader("Height,L,M,S\n65,-0.3521,7.4327,0.08217\n75,-0.3521,9.4770,0.08006\n85,-0.3521,11.6972,0.07993\n"),
		{BMIForAge, Male}:               strings.NewReader("Month,L,M,S\n0,-0.3053,13.4069,0.09560\n12,-0.1039,17.1476,0.08227\n24,-0.3306,16.0190,0.08128\n"),
		{HeadCircumferenceForAge, Male}: strings.NewReader("Month,L,M,S\n0,1,34.4618,0.03686\n12,1,46.0661,0.02812\n24,1,48.2515,0.02795\n"),
		{WeightForAge, Female}:          strings.NewReader(flat),
	}
	ref, err := Load(sources)
	if err != nil {
		t.Fatalf("load reference: %v", err)
	}
	return ref
}

func TestResolve_ExactMatchIsIdentity(t *testing.T) {
	ref := testReference(t)
	tbl, _ := ref.Table(WeightForAge, Male)
	for i := 0; i < tbl.Len(); i++ {
		want := tbl.Entry(i)
		got, err := tbl.Resolve(want.Key)
		if err != nil {
			t.Fatalf("resolve %g: %v", want.Key, err)
		}
		if got != want {
			t.Errorf("resolve %g: expected %+v, got %+v", want.Key, want, got)
		}
	}
}

func TestResolve_Interpolates(t *testing.T) {
	ref := testReference(t)
	tbl, _ := ref.Table(WeightForAge, Female)
	got, err := tbl.Resolve(15)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approx(got.M, 12.5, 1e-12) || got.L != 1 || !approx(got.S, 0.1, 1e-12) {
		t.Errorf("expected M 12.5 at key 15, got %+v", got)
	}
	if got.Key != 15 {
		t.Errorf("expected key 15, got %g", got.Key)
	}
}

func TestResolve_OutOfRange(t *testing.T) {
	ref := testReference(t)
	tbl, _ := ref.Table(WeightForAge, Male)
	for _, key := range []float64{-0.01, 24.01, 120, math.NaN()} {
		_, err := tbl.Resolve(key)
		var oor *OutOfRangeError
		if !errors.As(err, &oor) {
			t.Errorf("key %g: expected OutOfRangeError, got %v", key, err)
			continue
		}
		if oor.Min != 0 || oor.Max != 24 {
			t.Errorf("key %g: expected domain [0,24], got [%g,%g]", key, oor.Min, oor.Max)
		}
	}
}

func TestZScore_Formula(t *testing.T) {
	tests := []struct {
		name       string
		l, m, s, x float64
		want       float64
	}{
		{"median is zero", 0.5, 12, 0.1, 12, 0},
		{"L=1 is linear", 1, 10, 0.1, 11, 1},
		{"L=1 below median", 1, 10, 0.1, 8, -2},
		{"L=0 uses log", 0, 10, 0.1, 10 * math.Exp(0.1), 1},
		{"negative L", -0.5, 10, 0.1, 12.5, (math.Pow(1.25, -0.5) - 1) / (-0.05)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ZScore(tt.l, tt.m, tt.s, tt.x)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !approx(got, tt.want, 1e-9) {
				t.Errorf("expected %g, got %g", tt.want, got)
			}
		})
	}
}

func TestZScore_Guards(t *testing.T) {
	var ce *ComputationError
	if _, err := ZScore(1, 0, 0.1, 10); !errors.As(err, &ce) {
		t.Errorf("expected ComputationError for M=0, got %v", err)
	}
	if _, err := ZScore(1, 10, 0, 10); !errors.As(err, &ce) {
		t.Errorf("expected ComputationError for S=0, got %v", err)
	}
	if _, err := ZScore(1, 10, 0.1, 0); !errors.As(err, &ce) {
		t.Errorf("expected ComputationError for x=0, got %v", err)
	}
}

func TestZScore_MonotonicInObservedValue(t *testing.T) {
	for _, l := range []float64{-1.5, -0.3521, 0.1257, 1, 2.3} {
		prev := math.Inf(-1)
		for x := 2.0; x <= 30; x += 0.25 {
			z, err := ZScore(l, 9.6479, 0.10925, x)
			if err != nil {
				t.Fatalf("L=%g x=%g: %v", l, x, err)
			}
			if z <= prev {
				t.Fatalf("L=%g: z not increasing at x=%g (%g <= %g)", l, x, z, prev)
			}
			prev = z
		}
	}
}

func TestValueAtZ_InvertsZScore(t *testing.T) {
	for _, l := range []float64{-0.3521, 0, 0.3487, 1} {
		for _, z := range []float64{-3, -2, 0, 1.5, 2} {
			x := ValueAtZ(l, 7.934, 0.11316, z)
			back, err := ZScore(l, 7.934, 0.11316, x)
			if err != nil {
				t.Fatalf("L=%g z=%g: %v", l, z, err)
			}
			if !approx(back, z, 1e-9) {
				t.Errorf("L=%g: expected %g, got %g", l, z, back)
			}
		}
	}
}

func TestCalculator_ComputeZScore(t *testing.T) {
	calc := NewCalculator(testReference(t))
	m := Measurement{AgeInDays: DaysFromMonths(12), WeightKg: 9.6479, HeightCm: 75.7488, Sex: Male}

	z, err := calc.ComputeZScore(WeightForAge, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !approx(z, 0, 0.01) {
		t.Errorf("expected z close to 0 at the median, got %g", z)
	}

	z, err = calc.ComputeZScore(WeightForHeight, m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !(z > -1 && z < 1) {
		t.Errorf("expected weight-for-height near 0, got %g", z)
	}
}

func TestCalculator_HeadCircumferenceMissing(t *testing.T) {
	calc := NewCalculator(testReference(t))
	m := Measurement{AgeInDays: 200, WeightKg: 8, HeightCm: 68, Sex: Male}
	_, err := calc.ComputeZScore(HeadCircumferenceForAge, m)
	var mve *MissingValueError
	if !errors.As(err, &mve) {
		t.Fatalf("expected MissingValueError, got %v", err)
	}
}

func TestCalculator_InvalidMeasurement(t *testing.T) {
	calc := NewCalculator(testReference(t))
	tests := []Measurement{
		{AgeInDays: -1, WeightKg: 8, HeightCm: 68, Sex: Male},
		{AgeInDays: 10, WeightKg: 0, HeightCm: 68, Sex: Male},
		{AgeInDays: 10, WeightKg: 8, HeightCm: -2, Sex: Male},
		{AgeInDays: 10, WeightKg: 8, HeightCm: 68},
	}
	for _, m := range tests {
		_, err := calc.ComputeZScore(WeightForAge, m)
		var ve *ValidationError
		if !errors.As(err, &ve) {
			t.Errorf("%+v: expected ValidationError, got %v", m, err)
		}
	}
}

func TestCalculator_MissingSexTable(t *testing.T) {
	calc := NewCalculator(testReference(t))
	m := Measurement{AgeInDays: 100, WeightKg: 6, HeightCm: 60, Sex: Female}
	_, err := calc.ComputeZScore(HeightForAge, m)
	var mte *MissingTableError
	if !errors.As(err, &mte) {
		t.Fatalf("expected MissingTableError, got %v", err)
	}
}

func TestCalculator_Assess(t *testing.T) {
	calc := NewCalculator(testReference(t))
	hc := 46.0
	m := Measurement{AgeInDays: DaysFromMonths(12), WeightKg: 9.2, HeightCm: 74, HeadCircumferenceCm: &hc, Sex: Male}

	a, err := calc.Assess(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(a.Results) != 5 {
		t.Fatalf("expected 5 results, got %d (errors: %v)", len(a.Results), a.Errors)
	}
	if len(a.Errors) != 0 {
		t.Errorf("expected no errors, got %v", a.Errors)
	}
	if _, ok := a.Result(HeadCircumferenceForAge); !ok {
		t.Error("expected head circumference result")
	}
}

func TestCalculator_AssessCollectsPerIndicatorErrors(t *testing.T) {
	calc := NewCalculator(testReference(t))
	// 100 cm is beyond the weight-for-height table; no head circumference.
	m := Measurement{AgeInDays: DaysFromMonths(20), WeightKg: 11, HeightCm: 100, Sex: Male}

	a, err := calc.Assess(m)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var oor *OutOfRangeError
	if !errors.As(a.Errors[WeightForHeight], &oor) {
		t.Errorf("expected OutOfRangeError for weight-for-height, got %v", a.Errors[WeightForHeight])
	}
	if _, ok := a.Result(HeadCircumferenceForAge); ok {
		t.Error("head circumference should be skipped when not measured")
	}
	if _, ok := a.Result(WeightForAge); !ok {
		t.Error("expected weight-for-age result")
	}
}

func TestParseSexAndIndicator(t *testing.T) {
	if s, err := ParseSex("L"); err != nil || s != Male {
		t.Errorf("expected L to parse as male, got %v %v", s, err)
	}
	if s, err := ParseSex("P"); err != nil || s != Female {
		t.Errorf("expected P to parse as female, got %v %v", s, err)
	}
	if _, err := ParseSex("x"); err == nil {
		t.Error("expected error for unknown sex")
	}
	if ind, err := ParseIndicator("WHZ"); err != nil || ind != WeightForHeight {
		t.Errorf("expected WHZ to parse as weight-for-height, got %v %v", ind, err)
	}
}

func TestCheckAgeMonths(t *testing.T) {
	tests := []struct {
		months float64
		ok     bool
	}{
		{0, true},
		{59.5, true},
		{MaxAgeMonths, true},
		{-0.1, false},
		{MaxAgeMonths + 0.1, false},
		{1e300, false},
		{math.Inf(1), false},
		{math.NaN(), false},
	}
	for _, tt := range tests {
		err := CheckAgeMonths("age_months", tt.months)
		if (err == nil) != tt.ok {
			t.Errorf("CheckAgeMonths(%g) = %v, want ok=%v", tt.months, err, tt.ok)
		}
	}
}

func TestCalculator_AssessConcurrent(t *testing.T) {
	calc := NewCalculator(testReference(t))
	measurement := func(i int) Measurement {
		hc := 44 + float64(i%5)
		return Measurement{
			AgeInDays:           DaysFromMonths(float64(i % 24)),
			WeightKg:            7 + float64(i%6)*0.5,
			HeightCm:            66 + float64(i%18),
			HeadCircumferenceCm: &hc,
			Sex:                 Male,
		}
	}

	const workers = 32
	want := make([]Assessment, workers)
	for i := range want {
		a, err := calc.Assess(measurement(i))
		if err != nil {
			t.Fatalf("assess %d: %v", i, err)
		}
		want[i] = a
	}

	var wg sync.WaitGroup
	errs := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for n := 0; n < 200; n++ {
				a, err := calc.Assess(measurement(i))
				if err != nil {
					errs <- err.Error()
					return
				}
				if len(a.Results) != len(want[i].Results) {
					errs <- "result count changed between runs"
					return
				}
				for j, r := range a.Results {
					if r != want[i].Results[j] {
						errs <- "result changed between runs"
						return
					}
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for e := range errs {
		t.Error(e)
	}
}
