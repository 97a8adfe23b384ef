package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// DFAWindow is one sliding-window alpha1 estimate
type DFAWindow struct {
	Start       float64 `json:"start"`
	End         float64 `json:"end"`
	Alpha1      float64 `json:"alpha1"`
	RSquared    float64 `json:"r_squared"`
	SampleCount int     `json:"sample_count"`
	MeanRRMs    float64 `json:"mean_rr_ms"`
}

// Mid returns the window midpoint in seconds
func (w DFAWindow) Mid() float64 { return (w.Start + w.End) / 2 }

// BoxSizes returns geometrically spaced integer box sizes in [lo, hi],
// truncated and de-duplicated.
func BoxSizes(lo, hi, count int) []int {
	if count < 2 {
		count = 2
	}
	logLo, logHi := math.Log(float64(lo)), math.Log(float64(hi))
	sizes := make([]int, 0, count)
	for i := 0; i < count; i++ {
		v := int(math.Exp(logLo+(logHi-logLo)*float64(i)/float64(count-1)) + 1e-9)
		if len(sizes) == 0 || sizes[len(sizes)-1] != v {
			sizes = append(sizes, v)
		}
	}
	return sizes
}

// Alpha1 computes the short-term DFA scaling exponent of an interval series
// along with the R² of the log-log fit. It needs at least three box sizes
// that fit four times into the series.
func Alpha1(rr []float64, boxes []int) (alpha, rSquared float64, err error) {
	n := len(rr)
	usable := make([]int, 0, len(boxes))
	for _, s := range boxes {
		if s >= 3 && s <= n/4 {
			usable = append(usable, s)
		}
	}
	if len(usable) < 3 {
		need := 12
		if len(boxes) >= 3 {
			need = 4 * boxes[2]
		}
		return 0, 0, insufficient(ModuleDFA, need, n)
	}

	// Integrated profile of the mean-removed series
	mean := stat.Mean(rr, nil)
	profile := make([]float64, n)
	var acc float64
	for i, v := range rr {
		acc += v - mean
		profile[i] = acc
	}

	logS := make([]float64, 0, len(usable))
	logF := make([]float64, 0, len(usable))
	for _, s := range usable {
		f := fluctuation(profile, s)
		if f <= 0 {
			continue
		}
		logS = append(logS, math.Log(float64(s)))
		logF = append(logF, math.Log(f))
	}
	if len(logS) < 3 {
		// Zero fluctuation at every scale, e.g. a perfectly constant series
		return 0, 0, insufficient(ModuleDFA, 3, len(logS))
	}

	intercept, slope := stat.LinearRegression(logS, logF, nil, false)
	return slope, stat.RSquared(logS, logF, nil, intercept, slope), nil
}

// fluctuation is the RMS of linearly detrended residuals over all
// non-overlapping boxes of size s.
func fluctuation(profile []float64, s int) float64 {
	boxes := len(profile) / s
	x := make([]float64, s)
	floats.Span(x, 0, float64(s-1))

	resid := make([]float64, s)
	var sumSq float64
	for b := 0; b < boxes; b++ {
		seg := profile[b*s : (b+1)*s]
		alpha, beta := stat.LinearRegression(x, seg, nil, false)
		for i := range seg {
			resid[i] = seg[i] - (alpha + beta*x[i])
		}
		sumSq += floats.Dot(resid, resid)
	}
	return math.Sqrt(sumSq / float64(boxes*s))
}

// DFAAlpha1 slides a window over each segment of a cleaned R-R series and
// returns one alpha1 estimate per window, ordered by start time. Only windows
// with too few beats are skipped. Every other window is reported with its
// log-log R² so the VT1 detector can down-weight poor fits, and alpha1 is
// never clamped.
func DFAAlpha1(series *CleanedSeries, cfg DFAConfig) ([]DFAWindow, error) {
	if series == nil || len(series.Points) == 0 {
		return nil, insufficient(ModuleDFA, cfg.MinSamples, 0)
	}
	if series.Kind != "" && series.Kind != KindRR {
		return nil, invalid(ModuleDFA, "series", -1, "expected an rr series, got %s", series.Kind)
	}

	boxes := BoxSizes(cfg.MinBox, cfg.MaxBox, cfg.BoxCount)
	var windows []DFAWindow

	for si := range series.Segments {
		pts := series.SegmentPoints(si)
		if len(pts) == 0 {
			continue
		}
		segStart, segEnd := pts[0].T, pts[len(pts)-1].T

		lo := 0
		for start := segStart; start+cfg.WindowSeconds <= segEnd+1e-9; start += cfg.StrideSeconds {
			end := start + cfg.WindowSeconds
			for lo < len(pts) && pts[lo].T < start {
				lo++
			}
			hi := lo
			for hi < len(pts) && pts[hi].T <= end {
				hi++
			}
			count := hi - lo
			if count < cfg.MinSamples {
				continue
			}

			rr := make([]float64, count)
			for i := range rr {
				rr[i] = pts[lo+i].V
			}
			alpha, r2, err := Alpha1(rr, boxes)
			if err != nil {
				continue
			}
			windows = append(windows, DFAWindow{
				Start:       start,
				End:         end,
				Alpha1:      alpha,
				RSquared:    r2,
				SampleCount: count,
				MeanRRMs:    stat.Mean(rr, nil),
			})
		}
	}

	if len(windows) == 0 {
		return nil, insufficient(ModuleDFA, cfg.MinSamples, longestSegment(series))
	}
	return windows, nil
}

func longestSegment(series *CleanedSeries) int {
	best := 0
	for _, seg := range series.Segments {
		best = max(best, seg.Len())
	}
	return best
}
