package analysis

import "math"

// AerobicDecoupling calculates the power:HR drift between first and second half.
// Returns percentage - positive means second half was less efficient.
// < 5% on long rides indicates a good aerobic base.
func AerobicDecoupling(samples []PowerHR) float64 {
	if len(samples) < 120 { // Need at least 2 minutes of data
		return 0
	}

	mid := len(samples) / 2
	firstEF := EfficiencyFactor(samples[:mid])
	secondEF := EfficiencyFactor(samples[mid:])

	if firstEF == 0 || secondEF == 0 {
		return 0
	}

	// ((first / second) - 1) * 100
	return ((firstEF / secondEF) - 1) * 100
}

// CardiacDrift measures HR increase during steady-state riding: samples
// within 10% of the average power, first quarter against last quarter.
// Returns the HR difference in bpm.
func CardiacDrift(samples []PowerHR, avgPower float64) float64 {
	if len(samples) < 240 || avgPower <= 0 { // Need at least 4 minutes
		return 0
	}

	var steady []PowerHR
	for _, s := range samples {
		ratio := s.Watts / avgPower
		if ratio > 0.9 && ratio < 1.1 {
			steady = append(steady, s)
		}
	}

	if len(steady) < 120 {
		return 0
	}

	q := len(steady) / 4
	firstHR := averageHR(steady[:q])
	lastHR := averageHR(steady[len(steady)-q:])
	if firstHR == 0 {
		return 0
	}
	return lastHR - firstHR
}

func averageHR(samples []PowerHR) float64 {
	var total float64
	var count int
	for _, s := range samples {
		if s.HR > 0 {
			total += s.HR
			count++
		}
	}
	if count == 0 {
		return 0
	}
	return total / float64(count)
}

// SteadyStatePct calculates what percentage of the ride was at steady effort
// (power within 10% of average)
func SteadyStatePct(samples []PowerHR, avgPower float64) float64 {
	if len(samples) == 0 || avgPower <= 0 {
		return 0
	}

	steady := 0
	for _, s := range samples {
		ratio := s.Watts / avgPower
		if ratio > 0.9 && ratio < 1.1 {
			steady++
		}
	}
	return float64(steady) / float64(len(samples)) * 100
}

// DecouplingAssessment returns a human-readable decoupling assessment
func DecouplingAssessment(decoupling float64) string {
	switch {
	case math.IsNaN(decoupling):
		return "Unknown"
	case decoupling < 3:
		return "Excellent aerobic base"
	case decoupling < 5:
		return "Good aerobic fitness"
	case decoupling < 8:
		return "Developing aerobic base"
	case decoupling < 12:
		return "Needs more endurance volume"
	default:
		return "Aerobic system needs work"
	}
}
