package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// VT1Result is the first ventilatory threshold estimate of an activity.
// All pointer fields are nil when no crossing was found.
type VT1Result struct {
	Timestamp   *float64 `json:"timestamp"`
	PowerWatts  *float64 `json:"power_watts"`
	HeartRate   *float64 `json:"heart_rate"`
	Alpha1      *float64 `json:"alpha1,omitempty"`
	Confidence  float64  `json:"confidence"`
	WindowIndex int      `json:"window_index"` // -1 when not detected
}

// Detected reports whether a crossing was found
func (r VT1Result) Detected() bool { return r.Timestamp != nil }

// Confidence weights
const (
	vt1WeightFit       = 0.40
	vt1WeightStability = 0.35
	vt1WeightDensity   = 0.25

	// residual alpha1 spread at which stability halves roughly
	vt1StabilityScale = 0.1
	// multiplier applied when alpha1 around the crossing is outside the valid range
	vt1OutOfRangePenalty = 0.5
)

// DetectVT1 scans windows in time order for the first transition from above
// the threshold to at or below it. The crossing time is interpolated between
// window midpoints. Power comes from the nearest sample within the configured
// tolerance. A timeline without a crossing yields an empty result and no error.
func DetectVT1(windows []DFAWindow, power []Point, cfg VT1Config) (VT1Result, error) {
	none := VT1Result{WindowIndex: -1}
	if len(windows) < 2 {
		return none, insufficient(ModuleVT1, 2, len(windows))
	}

	idx := -1
	for i := 1; i < len(windows); i++ {
		if windows[i-1].Alpha1 > cfg.Threshold && windows[i].Alpha1 <= cfg.Threshold {
			idx = i
			break
		}
	}
	if idx < 0 {
		return none, nil
	}

	prev, cur := windows[idx-1], windows[idx]
	frac := (prev.Alpha1 - cfg.Threshold) / (prev.Alpha1 - cur.Alpha1)
	ts := prev.Mid() + frac*(cur.Mid()-prev.Mid())
	alpha := cfg.Threshold

	res := VT1Result{
		Timestamp:   &ts,
		Alpha1:      &alpha,
		WindowIndex: idx,
		Confidence:  vt1Confidence(windows, idx, cfg),
	}

	if p, ok := nearestValue(power, ts, cfg.PowerToleranceSeconds); ok {
		res.PowerWatts = &p
	}

	meanRR := prev.MeanRRMs + frac*(cur.MeanRRMs-prev.MeanRRMs)
	if meanRR > 0 {
		hr := 60000 / meanRR
		res.HeartRate = &hr
	}

	return res, nil
}

// vt1Confidence blends fit quality at the crossing window, alpha1 stability in
// the surrounding windows and the beat density of the crossing window.
func vt1Confidence(windows []DFAWindow, idx int, cfg VT1Config) float64 {
	cur := windows[idx]

	fit := clamp01(cur.RSquared)
	stability := alphaStability(windows, idx, cfg.Neighborhood)

	density := 1.0
	if cfg.FullDensitySamples > 0 {
		density = clamp01(float64(cur.SampleCount) / float64(cfg.FullDensitySamples))
	}

	conf := vt1WeightFit*fit + vt1WeightStability*stability + vt1WeightDensity*density

	lo, hi := max(0, idx-cfg.Neighborhood), min(len(windows), idx+cfg.Neighborhood+1)
	for _, w := range windows[lo:hi] {
		if w.Alpha1 < cfg.ValidAlphaMin || w.Alpha1 > cfg.ValidAlphaMax {
			conf *= vt1OutOfRangePenalty
			break
		}
	}
	return clamp01(conf)
}

// alphaStability scores how smoothly alpha1 moves around idx. The local
// linear trend is removed first since a steady decline is the expected pattern.
func alphaStability(windows []DFAWindow, idx, radius int) float64 {
	lo, hi := max(0, idx-radius), min(len(windows), idx+radius+1)
	if hi-lo < 3 {
		return 0.5
	}
	x := make([]float64, 0, hi-lo)
	y := make([]float64, 0, hi-lo)
	for i := lo; i < hi; i++ {
		x = append(x, windows[i].Mid())
		y = append(y, windows[i].Alpha1)
	}
	a, b := stat.LinearRegression(x, y, nil, false)
	var ss float64
	for i := range x {
		r := y[i] - (a + b*x[i])
		ss += r * r
	}
	residStd := math.Sqrt(ss / float64(len(x)))
	return math.Exp(-residStd / vt1StabilityScale)
}

// nearestValue returns the value of the point closest to t when it lies
// within tol seconds. pts must be sorted by timestamp.
func nearestValue(pts []Point, t, tol float64) (float64, bool) {
	if len(pts) == 0 {
		return 0, false
	}
	i := sort.Search(len(pts), func(i int) bool { return pts[i].T >= t })
	best := -1
	bestDist := math.Inf(1)
	for _, j := range []int{i - 1, i} {
		if j < 0 || j >= len(pts) {
			continue
		}
		if d := math.Abs(pts[j].T - t); d < bestDist {
			best, bestDist = j, d
		}
	}
	if best < 0 || bestDist > tol {
		return 0, false
	}
	return pts[best].V, true
}

func clamp01(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
