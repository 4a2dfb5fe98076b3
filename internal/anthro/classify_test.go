package anthro

import (
	"math"
	"testing"
)

func TestClassify_Boundaries(t *testing.T) {
	tests := []struct {
		z      float64
		status StatusCategory
		sev    Severity
	}{
		{-3.5, StatusSeverelyLow, Severe},
		{-3.0000001, StatusSeverelyLow, Severe},
		{-3.0, StatusLow, Moderate},
		{-2.5, StatusLow, Moderate},
		{-2.0, StatusNormal, Normal},
		{0, StatusNormal, Normal},
		{2.0, StatusNormal, Normal},
		{2.0000001, StatusHigh, Above},
		{4, StatusHigh, Above},
	}
	for _, tt := range tests {
		status, sev := Classify(tt.z)
		if status != tt.status || sev != tt.sev {
			t.Errorf("Classify(%g): expected %s/%s, got %s/%s", tt.z, tt.status, tt.sev, status, sev)
		}
	}
}

func TestClassify_IsTotal(t *testing.T) {
	valid := map[Severity]bool{Severe: true, Moderate: true, Normal: true, Above: true}
	for _, z := range []float64{-math.MaxFloat64, -1e9, -6.0001, -0.0, 1e-300, 6.5, math.MaxFloat64} {
		_, sev := Classify(z)
		if !valid[sev] {
			t.Errorf("Classify(%g) returned unknown severity %d", z, sev)
		}
	}
}

func TestZScoreResult_Implausible(t *testing.T) {
	if r := NewZScoreResult(WeightForAge, -6.2); !r.Implausible || r.Severity != Severe {
		t.Errorf("expected implausible severe result, got %+v", r)
	}
	if r := NewZScoreResult(WeightForAge, 6.0); r.Implausible {
		t.Error("expected 6.0 to be plausible")
	}
	if r := NewZScoreResult(HeightForAge, 1.2); r.Status() != StatusNormal {
		t.Errorf("expected Normal status, got %s", r.Status())
	}
}

func TestSeverity_LocalLabels(t *testing.T) {
	tests := map[Severity][2]string{
		Severe:   {"Gizi Buruk", "danger"},
		Moderate: {"Gizi Kurang", "warning"},
		Normal:   {"Gizi Baik", "success"},
		Above:    {"Gizi Lebih", "info"},
	}
	for sev, want := range tests {
		if sev.LocalStatus() != want[0] || sev.Tone() != want[1] {
			t.Errorf("%s: expected %v, got %s/%s", sev, want, sev.LocalStatus(), sev.Tone())
		}
	}
}
