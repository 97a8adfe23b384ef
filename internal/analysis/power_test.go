package analysis

import (
	"errors"
	"math"
	"testing"
)

func TestNormalizedPower(t *testing.T) {
	noFilter := DefaultConfig().Power
	noFilter.OutlierK = 0

	t.Run("steady power equals average", func(t *testing.T) {
		series := mustPreprocess(t, KindPower, PowerPoints(steadyPower(600, 220, 0, 1)), noFilter)
		np, err := NormalizedPower(series, 30)
		if err != nil {
			t.Fatal(err)
		}
		if math.Abs(np-220) > 1e-9 {
			t.Errorf("NormalizedPower() = %v, want 220", np)
		}
	})

	t.Run("variable power exceeds average", func(t *testing.T) {
		samples := steadyPower(1200, 150, 0, 1)
		for i := range samples {
			if (i/60)%2 == 1 {
				samples[i].Watts = 350
			}
		}
		series := mustPreprocess(t, KindPower, PowerPoints(samples), noFilter)
		summary, err := SummarizePower(series, DefaultConfig().NP)
		if err != nil {
			t.Fatal(err)
		}
		if summary.NormalizedPower <= summary.AveragePower {
			t.Errorf("NP %v should exceed average %v", summary.NormalizedPower, summary.AveragePower)
		}
		if summary.VariabilityIndex <= 1 {
			t.Errorf("VariabilityIndex = %v, want > 1", summary.VariabilityIndex)
		}
	})

	t.Run("shorter than rolling window", func(t *testing.T) {
		series := mustPreprocess(t, KindPower, PowerPoints(steadyPower(20, 200, 0, 1)), func() PreprocessConfig {
			c := noFilter
			c.MinSamples = 10
			return c
		}())
		_, err := NormalizedPower(series, 30)
		var target *InsufficientDataError
		if !errors.As(err, &target) {
			t.Errorf("NormalizedPower() error = %v, want InsufficientDataError", err)
		}
	})
}

func TestTrainingStressScore(t *testing.T) {
	tests := []struct {
		name     string
		duration float64
		np, ftp  float64
		expected float64
	}{
		{"one hour at threshold", 3600, 250, 250, 100},
		{"two hours at IF 0.8", 7200, 200, 250, 128},
		{"no ftp", 3600, 250, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TrainingStressScore(tt.duration, tt.np, tt.ftp)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("TrainingStressScore() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestAirDensityRatio(t *testing.T) {
	tests := []struct {
		name     string
		alt      float64
		temp     float64
		expected float64
		delta    float64
	}{
		{"sea level standard", 0, 15, 1, 1e-12},
		{"2000 m", 2000, 15, 0.7846, 1e-3},
		{"hot sea level", 0, 35, 0.9, 1e-9},
		{"cold sea level clamped", 0, -5, 1, 1e-12},
		{"extreme altitude clamped", 8000, 40, 0.5, 1e-12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AirDensityRatio(tt.alt, tt.temp)
			if math.Abs(got-tt.expected) > tt.delta {
				t.Errorf("AirDensityRatio(%v, %v) = %v, want %v", tt.alt, tt.temp, got, tt.expected)
			}
		})
	}
}

func TestCorrectNormalizedPower(t *testing.T) {
	cfg := DefaultConfig().NP

	tests := []struct {
		name        string
		np          float64
		alt, temp   float64
		expected    float64
		wantApplied bool
	}{
		{"reference conditions", 300, 0, 15, 300, false},
		{"low altitude mild temp", 300, 150, 18, 300, false},
		{"2000 m", 300, 2000, 15, 325.27, true},
		{"1500 m hot", 300, 1500, 30, 327.03, true},
		{"heat at sea level", 300, 0, 35, 310.72, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CorrectNormalizedPower(tt.np, tt.alt, tt.temp, cfg)
			if err != nil {
				t.Fatal(err)
			}
			if math.Abs(got.CorrectedNP-tt.expected) > 0.05 {
				t.Errorf("CorrectedNP = %v, want %v", got.CorrectedNP, tt.expected)
			}
			if got.Applied != tt.wantApplied {
				t.Errorf("Applied = %v, want %v", got.Applied, tt.wantApplied)
			}
			if got.Factor < 1 {
				t.Errorf("Factor = %v, should never reduce power", got.Factor)
			}
		})
	}
}

func TestCorrectNormalizedPower_Invalid(t *testing.T) {
	cfg := DefaultConfig().NP
	for _, in := range [][3]float64{{-1, 0, 15}, {300, 20000, 15}, {300, 0, 100}, {math.NaN(), 0, 15}} {
		_, err := CorrectNormalizedPower(in[0], in[1], in[2], cfg)
		var target *InvalidInputError
		if !errors.As(err, &target) {
			t.Errorf("CorrectNormalizedPower(%v) error = %v, want InvalidInputError", in, err)
		}
	}
}

func TestComputeWPrimeBalance(t *testing.T) {
	const cp, wp = 250.0, 20000.0

	// 60 s at 450 W depletes 12 kJ, then 300 s easy
	var pts []Point
	for i := 0; i < 360; i++ {
		w := 150.0
		if i >= 30 && i < 90 {
			w = 450
		}
		pts = append(pts, Point{T: float64(i), V: w})
	}

	bal, err := ComputeWPrimeBalance(pts, cp, wp)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(bal.Min-8000) > 1 {
		t.Errorf("Min = %v, want 8000", bal.Min)
	}
	if bal.MinAt != 89 {
		t.Errorf("MinAt = %v, want 89", bal.MinAt)
	}
	if bal.Exhausted {
		t.Error("should not be exhausted")
	}
	last := bal.Balance[len(bal.Balance)-1]
	if last <= bal.Min || last > wp {
		t.Errorf("final balance %v should have recovered above %v", last, bal.Min)
	}

	t.Run("exhaustion is floored at zero", func(t *testing.T) {
		hard := make([]Point, 200)
		for i := range hard {
			hard[i] = Point{T: float64(i), V: 500}
		}
		b, err := ComputeWPrimeBalance(hard, cp, wp)
		if err != nil {
			t.Fatal(err)
		}
		if !b.Exhausted || b.Min != 0 {
			t.Errorf("Exhausted = %v, Min = %v", b.Exhausted, b.Min)
		}
	})
}

func TestTimeToExhaustion(t *testing.T) {
	if got := TimeToExhaustion(20000, 450, 250); got != 100 {
		t.Errorf("TimeToExhaustion() = %v, want 100", got)
	}
	if got := TimeToExhaustion(20000, 200, 250); !math.IsInf(got, 1) {
		t.Errorf("TimeToExhaustion() below CP = %v, want +Inf", got)
	}
}
