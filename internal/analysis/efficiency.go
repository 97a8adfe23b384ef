package analysis

// PowerHR is a power reading paired with the heart rate recorded alongside it
type PowerHR struct {
	T     float64 `json:"timestamp"`
	Watts float64 `json:"watts"`
	HR    float64 `json:"hr"`
}

// PairPowerHR joins power samples with the nearest heart rate sample within
// tol seconds. Both slices must be ordered by time.
func PairPowerHR(power, hr []Point, tol float64) []PowerHR {
	out := make([]PowerHR, 0, len(power))
	for _, p := range power {
		if v, ok := nearestValue(hr, p.T, tol); ok {
			out = append(out, PowerHR{T: p.T, Watts: p.V, HR: v})
		}
	}
	return out
}

// EfficiencyFactor calculates power:HR efficiency
// Returns: average watts / average HR
// Higher is better - you're producing more power for the same HR
// Typical values range from 1.2 to 2.2
func EfficiencyFactor(samples []PowerHR) float64 {
	var totalWatts, totalHR float64
	var count int

	for _, s := range samples {
		// Filter noise: must be pedalling with reasonable HR
		if s.Watts > 20 && s.HR > 80 && s.HR < 220 {
			totalWatts += s.Watts
			totalHR += s.HR
			count++
		}
	}

	if count == 0 {
		return 0
	}
	return (totalWatts / float64(count)) / (totalHR / float64(count))
}

// PowerAtHR returns the average power at a target heart rate.
// Returns 0 if there are fewer than 30 matching samples.
func PowerAtHR(samples []PowerHR, targetHR, tolerance float64) float64 {
	var total float64
	var count int

	for _, s := range samples {
		if s.HR >= targetHR-tolerance && s.HR <= targetHR+tolerance && s.Watts > 20 {
			total += s.Watts
			count++
		}
	}

	if count < 30 {
		return 0
	}
	return total / float64(count)
}

// DataQuality is the fraction of raw samples that survived cleaning
func DataQuality(series *CleanedSeries) float64 {
	kept := len(series.Points) - series.Interpolated
	raw := kept + series.Removed
	if raw == 0 {
		return 0
	}
	return float64(kept) / float64(raw)
}

// DataQualityDescription returns a human-readable data quality assessment
func DataQualityDescription(score float64) string {
	switch {
	case score >= 0.95:
		return "Excellent"
	case score >= 0.85:
		return "Good"
	case score >= 0.70:
		return "Fair"
	case score >= 0.50:
		return "Poor"
	default:
		return "Very Poor"
	}
}
