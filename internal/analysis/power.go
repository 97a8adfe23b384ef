package analysis

import "math"

// PowerSummary holds load metrics derived from a cleaned power series
type PowerSummary struct {
	AveragePower     float64 `json:"average_power"`
	NormalizedPower  float64 `json:"normalized_power"`
	DurationSeconds  float64 `json:"duration_s"`
	IntensityFactor  float64 `json:"intensity_factor,omitempty"`
	TrainingStress   float64 `json:"tss,omitempty"`
	VariabilityIndex float64 `json:"variability_index"`
}

// NormalizedPower is the fourth root of the mean fourth power of the rolling
// average over rollingSeconds. Rolling windows never span segment boundaries.
func NormalizedPower(series *CleanedSeries, rollingSeconds int) (float64, error) {
	if series == nil || len(series.Points) == 0 {
		return 0, insufficient(ModuleNP, rollingSeconds, 0)
	}
	dt := nominalSpacing(series.Points)
	n := rollingSeconds
	if dt > 0 {
		n = max(1, int(math.Round(float64(rollingSeconds)/dt)))
	}

	var sum4 float64
	count := 0
	for si := range series.Segments {
		pts := series.SegmentPoints(si)
		var sum float64
		for i, p := range pts {
			sum += p.V
			if i >= n {
				sum -= pts[i-n].V
			}
			if i >= n-1 {
				avg := sum / float64(n)
				sum4 += avg * avg * avg * avg
				count++
			}
		}
	}
	if count == 0 {
		return 0, insufficient(ModuleNP, n, longestSegment(series))
	}
	return math.Pow(sum4/float64(count), 0.25), nil
}

// IntensityFactor is NP relative to FTP
func IntensityFactor(np, ftp float64) float64 {
	if ftp <= 0 {
		return 0
	}
	return np / ftp
}

// TrainingStressScore = hours * IF^2 * 100
func TrainingStressScore(durationSeconds, np, ftp float64) float64 {
	intensity := IntensityFactor(np, ftp)
	return durationSeconds / 3600 * intensity * intensity * 100
}

// SummarizePower computes NP and the load metrics that depend on it
func SummarizePower(series *CleanedSeries, cfg NPConfig) (PowerSummary, error) {
	np, err := NormalizedPower(series, cfg.RollingSeconds)
	if err != nil {
		return PowerSummary{}, err
	}
	var sum float64
	for _, p := range series.Points {
		sum += p.V
	}
	s := PowerSummary{
		AveragePower:    sum / float64(len(series.Points)),
		NormalizedPower: np,
		DurationSeconds: activeDuration(series),
	}
	if s.AveragePower > 0 {
		s.VariabilityIndex = np / s.AveragePower
	}
	if cfg.FTP > 0 {
		s.IntensityFactor = IntensityFactor(np, cfg.FTP)
		s.TrainingStress = TrainingStressScore(s.DurationSeconds, np, cfg.FTP)
	}
	return s, nil
}

// activeDuration sums segment spans, excluding unbridged gaps
func activeDuration(series *CleanedSeries) float64 {
	var d float64
	for _, seg := range series.Segments {
		d += seg.Duration()
	}
	return d
}
