package analysis

import "math"

// WPrimeBalance tracks remaining anaerobic work capacity over an activity
type WPrimeBalance struct {
	Balance    []float64 `json:"balance"` // joules, one per input sample
	Min        float64   `json:"min"`
	MinAt      float64   `json:"min_at"` // timestamp of the minimum
	Exhausted  bool      `json:"exhausted"`
	MaxDeficit float64   `json:"max_deficit"` // W' - Min
}

// skibaTau is the recovery time constant for a given distance below CP
func skibaTau(dcp float64) float64 {
	return 546*math.Exp(-0.01*dcp) + 316
}

// ComputeWPrimeBalance integrates W' depletion above CP and exponential
// recovery below it, with a recovery time constant that shrinks the further
// power sits below CP. The balance is held within [0, W'].
func ComputeWPrimeBalance(pts []Point, cp, wPrime float64) (WPrimeBalance, error) {
	if len(pts) < 2 {
		return WPrimeBalance{}, insufficient(ModuleWPrime, 2, len(pts))
	}
	if cp <= 0 || wPrime <= 0 {
		return WPrimeBalance{}, invalid(ModuleWPrime, "model", -1, "cp and w' must be positive")
	}

	out := WPrimeBalance{Balance: make([]float64, len(pts)), Min: wPrime, MinAt: pts[0].T}
	bal := wPrime
	for i, p := range pts {
		dt := 1.0
		if i > 0 {
			dt = p.T - pts[i-1].T
		}
		if p.V > cp {
			bal -= (p.V - cp) * dt
		} else {
			tau := skibaTau(cp - p.V)
			bal += (wPrime - bal) * (1 - math.Exp(-dt/tau))
		}
		bal = math.Max(0, math.Min(wPrime, bal))
		out.Balance[i] = bal
		if bal < out.Min {
			out.Min, out.MinAt = bal, p.T
		}
	}
	out.Exhausted = out.Min <= 0
	out.MaxDeficit = wPrime - out.Min
	return out, nil
}

// TimeToExhaustion is how long the remaining balance lasts at a power above CP
func TimeToExhaustion(balance, power, cp float64) float64 {
	if power <= cp {
		return math.Inf(1)
	}
	return balance / (power - cp)
}
