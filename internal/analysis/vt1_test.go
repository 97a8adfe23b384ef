package analysis

import (
	"errors"
	"math"
	"testing"
)

// syntheticTimeline builds windows with alpha1 from fn(i), 120 s windows every 30 s
func syntheticTimeline(n int, fn func(i int) float64) []DFAWindow {
	windows := make([]DFAWindow, n)
	for i := range windows {
		start := float64(30 * i)
		windows[i] = DFAWindow{
			Start:       start,
			End:         start + 120,
			Alpha1:      fn(i),
			RSquared:    0.95,
			SampleCount: 150,
			MeanRRMs:    600 - 10*float64(i),
		}
	}
	return windows
}

func rampPower(seconds int) []Point {
	pts := make([]Point, seconds)
	for i := range pts {
		pts[i] = Point{T: float64(i), V: 100 + float64(i)}
	}
	return pts
}

func TestDetectVT1_MonotonicDecrease(t *testing.T) {
	cfg := DefaultConfig().VT1
	windows := syntheticTimeline(15, func(i int) float64 { return 1.0 - 0.04*float64(i) })

	res, err := DetectVT1(windows, rampPower(900), cfg)
	if err != nil {
		t.Fatalf("DetectVT1() error = %v", err)
	}
	if !res.Detected() {
		t.Fatal("expected a crossing")
	}
	// alpha1: ... 0.76 (i=6), 0.72 (i=7)
	if res.WindowIndex != 7 {
		t.Errorf("WindowIndex = %d, want 7", res.WindowIndex)
	}
	// midpoints 240 and 270, crossing a quarter of the way between them
	if math.Abs(*res.Timestamp-247.5) > 1e-6 {
		t.Errorf("Timestamp = %v, want 247.5", *res.Timestamp)
	}
	if res.PowerWatts == nil || math.Abs(*res.PowerWatts-347.5) > 1 {
		t.Errorf("PowerWatts = %v, want ~347.5", res.PowerWatts)
	}
	// mean RR 540 -> 530, interpolated 537.5 ms
	if res.HeartRate == nil || math.Abs(*res.HeartRate-60000/537.5) > 1e-6 {
		t.Errorf("HeartRate = %v, want %v", res.HeartRate, 60000/537.5)
	}
	if res.Confidence < 0.9 || res.Confidence > 1 {
		t.Errorf("Confidence = %v, want in [0.9, 1] for a clean timeline", res.Confidence)
	}
}

func TestDetectVT1_ReportsFirstCrossingOnly(t *testing.T) {
	cfg := DefaultConfig().VT1
	alphas := []float64{1.0, 0.9, 0.7, 0.8, 0.95, 0.6, 0.5}
	windows := syntheticTimeline(len(alphas), func(i int) float64 { return alphas[i] })

	res, err := DetectVT1(windows, nil, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if res.WindowIndex != 2 {
		t.Errorf("WindowIndex = %d, want 2", res.WindowIndex)
	}
	if res.PowerWatts != nil {
		t.Errorf("PowerWatts = %v, want nil without power data", *res.PowerWatts)
	}
}

func TestDetectVT1_NoCrossing(t *testing.T) {
	cfg := DefaultConfig().VT1

	tests := []struct {
		name string
		fn   func(i int) float64
	}{
		{"always above threshold", func(i int) float64 { return 1.1 - 0.01*float64(i) }},
		{"always below threshold", func(i int) float64 { return 0.6 }},
		{"rising through threshold", func(i int) float64 { return 0.5 + 0.05*float64(i) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := DetectVT1(syntheticTimeline(12, tt.fn), rampPower(600), cfg)
			if err != nil {
				t.Fatalf("DetectVT1() error = %v, want nil", err)
			}
			if res.Detected() || res.Timestamp != nil || res.PowerWatts != nil || res.HeartRate != nil {
				t.Errorf("expected null result, got %+v", res)
			}
			if res.Confidence != 0 {
				t.Errorf("Confidence = %v, want 0", res.Confidence)
			}
		})
	}
}

func TestDetectVT1_PowerOutsideTolerance(t *testing.T) {
	cfg := DefaultConfig().VT1
	windows := syntheticTimeline(15, func(i int) float64 { return 1.0 - 0.04*float64(i) })
	// power only recorded well after the crossing
	power := []Point{{T: 400, V: 250}, {T: 401, V: 255}}

	res, err := DetectVT1(windows, power, cfg)
	if err != nil {
		t.Fatal(err)
	}
	if res.PowerWatts != nil {
		t.Errorf("PowerWatts = %v, want nil", *res.PowerWatts)
	}
	if res.HeartRate == nil {
		t.Error("HeartRate should still be reported")
	}
}

func TestDetectVT1_ConfidenceFactors(t *testing.T) {
	cfg := DefaultConfig().VT1
	clean := syntheticTimeline(15, func(i int) float64 { return 1.0 - 0.04*float64(i) })
	base, _ := DetectVT1(clean, nil, cfg)

	tests := []struct {
		name   string
		mutate func(w []DFAWindow)
	}{
		{"poor fit at crossing", func(w []DFAWindow) { w[7].RSquared = 0.3 }},
		{"sparse crossing window", func(w []DFAWindow) { w[7].SampleCount = 50 }},
		{"unstable neighbourhood", func(w []DFAWindow) { w[5].Alpha1 = 1.3; w[9].Alpha1 = 0.2 }},
		{"alpha outside valid range", func(w []DFAWindow) { w[8].Alpha1 = 0.1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := syntheticTimeline(15, func(i int) float64 { return 1.0 - 0.04*float64(i) })
			tt.mutate(w)
			res, err := DetectVT1(w, nil, cfg)
			if err != nil {
				t.Fatal(err)
			}
			if res.WindowIndex != 7 {
				t.Fatalf("WindowIndex = %d, want 7", res.WindowIndex)
			}
			if res.Confidence >= base.Confidence {
				t.Errorf("Confidence = %v, want below clean %v", res.Confidence, base.Confidence)
			}
			if res.Confidence < 0 || res.Confidence > 1 {
				t.Errorf("Confidence = %v out of [0,1]", res.Confidence)
			}
		})
	}
}

func TestDetectVT1_TooFewWindows(t *testing.T) {
	_, err := DetectVT1(syntheticTimeline(1, func(int) float64 { return 1 }), nil, DefaultConfig().VT1)
	var target *InsufficientDataError
	if !errors.As(err, &target) {
		t.Errorf("DetectVT1() error = %v, want InsufficientDataError", err)
	}
}
