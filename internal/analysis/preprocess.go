package analysis

import (
	"math"
	"sort"
)

// madScale converts a median absolute deviation into a standard deviation estimate
const madScale = 1.4826

// gapFactor is how far beyond the expected spacing a step must be to count as a gap
const gapFactor = 1.5

// PreprocessRR cleans an R-R interval series
func PreprocessRR(samples []RRSample, cfg PreprocessConfig) (*CleanedSeries, error) {
	return Preprocess(KindRR, RRPoints(samples), cfg)
}

// PreprocessPower cleans a power series
func PreprocessPower(samples []PowerSample, cfg PreprocessConfig) (*CleanedSeries, error) {
	return Preprocess(KindPower, PowerPoints(samples), cfg)
}

// Preprocess validates raw, removes out-of-bound values and local outliers,
// interpolates short gaps and splits the series at long ones.
// Removed samples are dropped, never clamped.
func Preprocess(kind SignalKind, raw []Point, cfg PreprocessConfig) (*CleanedSeries, error) {
	if len(raw) < cfg.MinSamples || len(raw) == 0 {
		return nil, insufficient(ModulePreprocess, max(cfg.MinSamples, 1), len(raw))
	}
	if err := validatePoints(kind, raw); err != nil {
		return nil, err
	}

	// Physiological bounds
	inBounds := make([]Point, 0, len(raw))
	for _, p := range raw {
		if p.V < cfg.MinValue || p.V > cfg.MaxValue {
			continue
		}
		inBounds = append(inBounds, Point{T: p.T, V: p.V})
	}

	kept := rejectOutliers(inBounds, cfg)
	removed := len(raw) - len(kept)

	if len(kept) < cfg.MinSamples || len(kept) < 2 {
		return nil, insufficient(ModulePreprocess, max(cfg.MinSamples, 2), len(kept))
	}

	points, segments, interpolated := bridgeGaps(kind, kept, cfg.MaxGapSeconds)

	return &CleanedSeries{
		Kind:         kind,
		Points:       points,
		Segments:     segments,
		Removed:      removed,
		Interpolated: interpolated,
	}, nil
}

func validatePoints(kind SignalKind, raw []Point) error {
	for i, p := range raw {
		if math.IsNaN(p.T) || math.IsInf(p.T, 0) {
			return invalid(ModulePreprocess, "timestamp", i, "not a finite number")
		}
		if math.IsNaN(p.V) || math.IsInf(p.V, 0) {
			return invalid(ModulePreprocess, string(kind), i, "not a finite number")
		}
		if i > 0 && p.T < raw[i-1].T {
			return invalid(ModulePreprocess, "timestamp", i, "timestamps must be non-decreasing (%.3f after %.3f)", p.T, raw[i-1].T)
		}
		switch kind {
		case KindRR:
			if p.V <= 0 {
				return invalid(ModulePreprocess, "interval_ms", i, "interval must be positive, got %v", p.V)
			}
		case KindPower:
			if p.V < 0 {
				return invalid(ModulePreprocess, "watts", i, "power must not be negative, got %v", p.V)
			}
		}
	}
	return nil
}

// rejectOutliers drops samples further than OutlierK local spreads from the
// centred rolling median. Statistics are taken over the unfiltered input so
// one outlier cannot shift its neighbours' windows.
func rejectOutliers(pts []Point, cfg PreprocessConfig) []Point {
	if cfg.OutlierK <= 0 || len(pts) < 3 {
		return pts
	}
	half := cfg.MedianWindow / 2
	if half < 1 {
		half = 1
	}

	values := make([]float64, len(pts))
	for i, p := range pts {
		values[i] = p.V
	}

	window := make([]float64, 0, 2*half+1)
	dev := make([]float64, 0, 2*half+1)
	kept := make([]Point, 0, len(pts))
	for i, p := range pts {
		lo, hi := max(0, i-half), min(len(pts), i+half+1)
		window = append(window[:0], values[lo:hi]...)
		med := median(window)

		dev = dev[:0]
		for _, v := range window {
			dev = append(dev, math.Abs(v-med))
		}
		spread := math.Max(madScale*median(dev), cfg.MinSpreadFraction*math.Abs(med))
		spread = math.Max(spread, cfg.MinSpread)

		if math.Abs(p.V-med) > cfg.OutlierK*spread {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

// bridgeGaps fills gaps up to maxGap seconds with linearly interpolated points
// at the expected spacing and starts a new segment after longer gaps.
func bridgeGaps(kind SignalKind, pts []Point, maxGap float64) ([]Point, []Segment, int) {
	nominal := nominalSpacing(pts)

	out := make([]Point, 0, len(pts))
	var segments []Segment
	interpolated := 0
	segStart := 0

	out = append(out, pts[0])
	for i := 1; i < len(pts); i++ {
		prev, cur := pts[i-1], pts[i]
		gap := cur.T - prev.T

		if gap > maxGap {
			segments = append(segments, Segment{
				Start: segStart, End: len(out),
				StartTime: out[segStart].T, EndTime: out[len(out)-1].T,
			})
			segStart = len(out)
			out = append(out, cur)
			continue
		}

		expected := nominal
		if kind == KindRR {
			// Each beat's interval is its own spacing
			expected = (prev.V + cur.V) / 2 / 1000
		}
		if expected > 0 && gap > gapFactor*expected {
			n := int(math.Round(gap/expected)) - 1
			step := gap / float64(n+1)
			for j := 1; j <= n; j++ {
				frac := float64(j) / float64(n+1)
				out = append(out, Point{
					T:            prev.T + float64(j)*step,
					V:            prev.V + frac*(cur.V-prev.V),
					Interpolated: true,
				})
				interpolated++
			}
		}
		out = append(out, cur)
	}
	segments = append(segments, Segment{
		Start: segStart, End: len(out),
		StartTime: out[segStart].T, EndTime: out[len(out)-1].T,
	})

	return out, segments, interpolated
}

// nominalSpacing is the median positive step between timestamps
func nominalSpacing(pts []Point) float64 {
	steps := make([]float64, 0, len(pts))
	for i := 1; i < len(pts); i++ {
		if d := pts[i].T - pts[i-1].T; d > 0 {
			steps = append(steps, d)
		}
	}
	if len(steps) == 0 {
		return 0
	}
	return median(steps)
}

// median sorts a copy of xs and averages the middle pair for even lengths
func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 0 {
		return (s[mid-1] + s[mid]) / 2
	}
	return s[mid]
}
