package analysis

import (
	"math/rand"
	"testing"
)

func floatPtr(f float64) *float64 {
	return &f
}

// regularRR returns n beats at a fixed spacing with small gaussian jitter
func regularRR(n int, meanMs, jitterMs float64, seed int64) []RRSample {
	rng := rand.New(rand.NewSource(seed))
	out := make([]RRSample, n)
	var t float64
	for i := range out {
		rr := meanMs + jitterMs*rng.NormFloat64()
		t += rr / 1000
		out[i] = RRSample{Timestamp: t, IntervalMs: rr}
	}
	return out
}

// steadyPower returns n one-second samples around watts
func steadyPower(n int, watts, jitter float64, seed int64) []PowerSample {
	rng := rand.New(rand.NewSource(seed))
	out := make([]PowerSample, n)
	for i := range out {
		out[i] = PowerSample{Timestamp: float64(i), Watts: watts + jitter*rng.NormFloat64()}
	}
	return out
}

func mustPreprocess(t *testing.T, kind SignalKind, pts []Point, cfg PreprocessConfig) *CleanedSeries {
	t.Helper()
	series, err := Preprocess(kind, pts, cfg)
	if err != nil {
		t.Fatalf("Preprocess() error = %v", err)
	}
	return series
}
