package analysis

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// HRVMetrics holds time-domain variability statistics of an R-R series.
// Successive-difference fields are nil when fewer than two beats are present.
type HRVMetrics struct {
	Beats    int      `json:"beats"`
	MeanRRMs float64  `json:"mean_rr_ms"`
	MeanHR   float64  `json:"mean_hr"`
	SDNN     float64  `json:"sdnn_ms"`
	CV       float64  `json:"cv"` // SDNN / mean RR
	RMSSD    *float64 `json:"rmssd_ms"`
	SDSD     *float64 `json:"sdsd_ms"`
	PNN50    *float64 `json:"pnn50"`
}

// ComputeHRV computes HRV metrics over a cleaned R-R series. Successive
// differences are taken within segments only.
func ComputeHRV(series *CleanedSeries) (HRVMetrics, error) {
	if series == nil || len(series.Points) == 0 {
		return HRVMetrics{}, insufficient(ModuleHRV, 1, 0)
	}
	var diffs []float64
	for si := range series.Segments {
		diffs = appendDiffs(diffs, series.SegmentPoints(si))
	}
	return hrvFrom(series.Values(), diffs), nil
}

// ComputeHRVIntervals computes HRV metrics over a bare interval sequence
func ComputeHRVIntervals(rr []float64) (HRVMetrics, error) {
	if len(rr) == 0 {
		return HRVMetrics{}, insufficient(ModuleHRV, 1, 0)
	}
	diffs := make([]float64, 0, len(rr))
	for i := 1; i < len(rr); i++ {
		diffs = append(diffs, rr[i]-rr[i-1])
	}
	return hrvFrom(rr, diffs), nil
}

func appendDiffs(dst []float64, pts []Point) []float64 {
	for i := 1; i < len(pts); i++ {
		dst = append(dst, pts[i].V-pts[i-1].V)
	}
	return dst
}

func hrvFrom(rr, diffs []float64) HRVMetrics {
	m := HRVMetrics{Beats: len(rr)}
	m.MeanRRMs = stat.Mean(rr, nil)
	if m.MeanRRMs > 0 {
		m.MeanHR = 60000 / m.MeanRRMs
	}

	// A constant series has exactly zero variability
	if len(rr) > 1 && floats.Min(rr) != floats.Max(rr) {
		m.SDNN = stat.StdDev(rr, nil)
		if m.MeanRRMs > 0 {
			m.CV = m.SDNN / m.MeanRRMs
		}
	}

	if len(diffs) == 0 {
		return m
	}
	var sumSq float64
	nn50 := 0
	for _, d := range diffs {
		sumSq += d * d
		if math.Abs(d) > 50 {
			nn50++
		}
	}
	rmssd := math.Sqrt(sumSq / float64(len(diffs)))
	pnn50 := float64(nn50) / float64(len(diffs))
	sdsd := 0.0
	if len(diffs) > 1 {
		sdsd = stat.StdDev(diffs, nil)
	}
	m.RMSSD, m.SDSD, m.PNN50 = &rmssd, &sdsd, &pnn50
	return m
}
