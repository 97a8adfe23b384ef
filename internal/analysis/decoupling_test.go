package analysis

import (
	"math"
	"testing"
)

func makeSamples(n int, watts, hr float64) []PowerHR {
	out := make([]PowerHR, n)
	for i := range out {
		out[i] = PowerHR{T: float64(i), Watts: watts, HR: hr}
	}
	return out
}

func TestAerobicDecoupling(t *testing.T) {
	tests := []struct {
		name     string
		samples  []PowerHR
		expected float64
		delta    float64
	}{
		{
			name:     "empty samples",
			samples:  nil,
			expected: 0,
		},
		{
			name:     "insufficient data - less than 2 minutes",
			samples:  makeSamples(100, 200, 140),
			expected: 0,
		},
		{
			name:     "no decoupling - consistent efficiency",
			samples:  makeSamples(200, 200, 140),
			expected: 0,
			delta:    0.1,
		},
		{
			name:    "positive decoupling - power fades at same HR",
			samples: append(makeSamples(100, 200, 140), makeSamples(100, 180, 140)...),
			// First EF = 200/140, second = 180/140
			// ((200/180) - 1) * 100 = 11.1%
			expected: 11.1,
			delta:    0.1,
		},
		{
			name:    "positive decoupling - HR drift at same power",
			samples: append(makeSamples(100, 200, 140), makeSamples(100, 200, 154)...),
			// (154/140 - 1) * 100 = 10%
			expected: 10,
			delta:    0.1,
		},
		{
			name:     "negative decoupling - second half more efficient",
			samples:  append(makeSamples(100, 200, 150), makeSamples(100, 200, 140)...),
			expected: (140.0/150.0 - 1) * 100,
			delta:    0.1,
		},
		{
			name:     "coasting only",
			samples:  makeSamples(200, 0, 120),
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AerobicDecoupling(tt.samples)
			if math.Abs(got-tt.expected) > tt.delta {
				t.Errorf("AerobicDecoupling() = %v, want %v (±%v)", got, tt.expected, tt.delta)
			}
		})
	}
}

func TestCardiacDrift(t *testing.T) {
	steady := append(makeSamples(150, 200, 135), makeSamples(150, 200, 147)...)

	tests := []struct {
		name     string
		samples  []PowerHR
		avg      float64
		expected float64
	}{
		{"too short", makeSamples(200, 200, 140), 200, 0},
		{"zero average", steady, 0, 0},
		{"drift", steady, 200, 12},
		{"no steady samples", makeSamples(300, 300, 140), 200, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CardiacDrift(tt.samples, tt.avg)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("CardiacDrift() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestSteadyStatePct(t *testing.T) {
	samples := append(makeSamples(75, 200, 140), makeSamples(25, 300, 150)...)
	if got := SteadyStatePct(samples, 200); math.Abs(got-75) > 1e-9 {
		t.Errorf("SteadyStatePct() = %v, want 75", got)
	}
	if got := SteadyStatePct(nil, 200); got != 0 {
		t.Errorf("SteadyStatePct(nil) = %v, want 0", got)
	}
}

func TestEfficiencyFactor(t *testing.T) {
	tests := []struct {
		name     string
		samples  []PowerHR
		expected float64
	}{
		{"empty", nil, 0},
		{"steady", makeSamples(60, 210, 140), 1.5},
		{"filters low HR", append(makeSamples(60, 210, 140), makeSamples(60, 300, 60)...), 1.5},
		{"filters coasting", append(makeSamples(60, 210, 140), makeSamples(60, 0, 130)...), 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := EfficiencyFactor(tt.samples)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("EfficiencyFactor() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestPairPowerHR(t *testing.T) {
	power := []Point{{T: 0, V: 200}, {T: 1, V: 210}, {T: 2, V: 220}, {T: 10, V: 230}}
	hr := []Point{{T: 0.2, V: 130}, {T: 1.9, V: 132}}

	pairs := PairPowerHR(power, hr, 1)
	if len(pairs) != 3 {
		t.Fatalf("PairPowerHR() = %d pairs, want 3", len(pairs))
	}
	if pairs[1].HR != 130 {
		t.Errorf("pairs[1].HR = %v, want nearest sample 130", pairs[1].HR)
	}
	if pairs[2].Watts != 220 || pairs[2].HR != 132 {
		t.Errorf("pairs[2] = %+v", pairs[2])
	}
}

func TestPowerAtHR(t *testing.T) {
	samples := append(makeSamples(40, 180, 130), makeSamples(40, 240, 150)...)
	if got := PowerAtHR(samples, 150, 3); got != 240 {
		t.Errorf("PowerAtHR() = %v, want 240", got)
	}
	if got := PowerAtHR(samples[:20], 130, 3); got != 0 {
		t.Errorf("PowerAtHR() with 20 samples = %v, want 0", got)
	}
}

func TestDataQualityDescription(t *testing.T) {
	tests := []struct {
		score    float64
		expected string
	}{
		{1.0, "Excellent"},
		{0.95, "Excellent"},
		{0.90, "Good"},
		{0.75, "Fair"},
		{0.55, "Poor"},
		{0.2, "Very Poor"},
	}

	for _, tt := range tests {
		if got := DataQualityDescription(tt.score); got != tt.expected {
			t.Errorf("DataQualityDescription(%v) = %q, want %q", tt.score, got, tt.expected)
		}
	}
}

func TestDataQuality(t *testing.T) {
	series := &CleanedSeries{
		Points:       make([]Point, 100),
		Removed:      5,
		Interpolated: 5,
	}
	// 95 kept of 100 raw
	if got := DataQuality(series); math.Abs(got-0.95) > 1e-9 {
		t.Errorf("DataQuality() = %v, want 0.95", got)
	}
	if got := DataQuality(&CleanedSeries{}); got != 0 {
		t.Errorf("DataQuality(empty) = %v, want 0", got)
	}
}

func TestDecouplingAssessment(t *testing.T) {
	tests := []struct {
		decoupling float64
		expected   string
	}{
		{1, "Excellent aerobic base"},
		{4, "Good aerobic fitness"},
		{6, "Developing aerobic base"},
		{10, "Needs more endurance volume"},
		{15, "Aerobic system needs work"},
		{math.NaN(), "Unknown"},
	}

	for _, tt := range tests {
		if got := DecouplingAssessment(tt.decoupling); got != tt.expected {
			t.Errorf("DecouplingAssessment(%v) = %q, want %q", tt.decoupling, got, tt.expected)
		}
	}
}
