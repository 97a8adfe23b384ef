package analysis

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat"
)

// Effort is a best average power held for a duration
type Effort struct {
	DurationSeconds float64 `json:"duration_s"`
	Watts           float64 `json:"watts"`
}

// CPModel holds a fitted 3-parameter critical power model.
// Parameters are nil when the fit was rejected; RSquared is always set.
type CPModel struct {
	CPWatts      *float64 `json:"cp_watts"`
	WPrimeJoules *float64 `json:"w_prime_joules"`
	PMaxWatts    *float64 `json:"p_max_watts"`
	RSquared     float64  `json:"r_squared"`
	Points       int      `json:"points"`
}

// Valid reports whether the model parameters were accepted
func (m CPModel) Valid() bool { return m.CPWatts != nil }

// Predict returns the modelled sustainable power for a duration
func (m CPModel) Predict(t float64) (float64, bool) {
	if !m.Valid() {
		return 0, false
	}
	k := 0.0
	if m.PMaxWatts != nil && *m.PMaxWatts > *m.CPWatts {
		k = *m.WPrimeJoules / (*m.PMaxWatts - *m.CPWatts)
	}
	return *m.CPWatts + *m.WPrimeJoules/(t+k), true
}

// Search range for the time offset k = W'/(Pmax-CP), seconds
const (
	cpMinK      = 1e-3
	cpMaxK      = 1e4
	cpGridSteps = 160
	cpGoldenTol = 1e-10
)

// TwoPointCP solves the linear work-time model W = CP*t + W' through two efforts
func TwoPointCP(short, long Effort) (cp, wPrime float64) {
	w1 := short.Watts * short.DurationSeconds
	w2 := long.Watts * long.DurationSeconds
	cp = (w2 - w1) / (long.DurationSeconds - short.DurationSeconds)
	wPrime = (short.Watts - cp) * short.DurationSeconds
	return cp, wPrime
}

// FitCriticalPower fits P(t) = CP + W'/(t + k) with k = W'/(Pmax - CP) by
// least squares. For a fixed k the model is linear in CP and W', so k is
// found by a log-spaced scan plus golden-section refinement, seeded by the
// two-point work-time line of the shortest and longest efforts. A
// Nelder-Mead pass over all three parameters is kept only if it lowers the
// residual. A fit below MinRSquared or with non-positive CP is returned
// with nil parameters and a *FitQualityError.
func FitCriticalPower(efforts []Effort, cfg CPConfig) (CPModel, error) {
	pts, err := normalizeEfforts(efforts)
	if err != nil {
		return CPModel{}, err
	}
	if len(pts) < 3 {
		return CPModel{Points: len(pts)}, insufficient(ModuleCP, 3, len(pts))
	}

	t := make([]float64, len(pts))
	p := make([]float64, len(pts))
	for i, e := range pts {
		t[i], p[i] = e.DurationSeconds, e.Watts
	}

	k0 := initialK(pts)
	fit := bestOnGrid(t, p, k0)
	fit = refineGolden(t, p, fit)
	if polished, ok := polishNelderMead(t, p, fit); ok && polished.sse < fit.sse {
		fit = polished
	}

	r2 := rSquared(p, fit.sse)
	model := CPModel{RSquared: r2, Points: len(pts)}

	switch {
	case fit.cp <= 0:
		return model, &FitQualityError{Module: ModuleCP, RSquared: r2, Min: cfg.MinRSquared, Reason: "critical power is not positive"}
	case fit.wPrime <= 0:
		return model, &FitQualityError{Module: ModuleCP, RSquared: r2, Min: cfg.MinRSquared, Reason: "W' is not positive"}
	case r2 < cfg.MinRSquared:
		return model, &FitQualityError{Module: ModuleCP, RSquared: r2, Min: cfg.MinRSquared}
	}

	cp, wp := fit.cp, fit.wPrime
	pmax := cp + wp/fit.k
	model.CPWatts, model.WPrimeJoules, model.PMaxWatts = &cp, &wp, &pmax
	return model, nil
}

// normalizeEfforts validates efforts, keeps the best power per duration and
// sorts by duration.
func normalizeEfforts(efforts []Effort) ([]Effort, error) {
	best := make(map[float64]float64, len(efforts))
	for i, e := range efforts {
		if !(e.DurationSeconds > 0) || math.IsInf(e.DurationSeconds, 0) {
			return nil, invalid(ModuleCP, "duration_s", i, "duration must be positive, got %v", e.DurationSeconds)
		}
		if !(e.Watts > 0) || math.IsInf(e.Watts, 0) {
			return nil, invalid(ModuleCP, "watts", i, "power must be positive, got %v", e.Watts)
		}
		if e.Watts > best[e.DurationSeconds] {
			best[e.DurationSeconds] = e.Watts
		}
	}
	out := make([]Effort, 0, len(best))
	for d, w := range best {
		out = append(out, Effort{DurationSeconds: d, Watts: w})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DurationSeconds < out[j].DurationSeconds })
	return out, nil
}

// initialK derives k from the two-point line, assuming Pmax sits 50% above
// the shortest effort.
func initialK(pts []Effort) float64 {
	short, long := pts[0], pts[len(pts)-1]
	cp, wp := TwoPointCP(short, long)
	pmax := 1.5 * short.Watts
	if cp <= 0 || wp <= 0 || pmax <= cp {
		return 10
	}
	return math.Min(math.Max(wp/(pmax-cp), cpMinK), cpMaxK)
}

type cpFit struct {
	cp, wPrime, k, sse float64
}

// solveLinear returns the least squares CP and W' for a fixed k
func solveLinear(t, p []float64, k float64) cpFit {
	x := make([]float64, len(t))
	for i := range t {
		x[i] = 1 / (t[i] + k)
	}
	cp, wp := stat.LinearRegression(x, p, nil, false)
	return cpFit{cp: cp, wPrime: wp, k: k, sse: sse(t, p, cp, wp, k)}
}

func sse(t, p []float64, cp, wp, k float64) float64 {
	var s float64
	for i := range t {
		r := p[i] - (cp + wp/(t[i]+k))
		s += r * r
	}
	return s
}

func bestOnGrid(t, p []float64, k0 float64) cpFit {
	best := solveLinear(t, p, k0)
	lo, hi := math.Log(cpMinK), math.Log(cpMaxK)
	for i := 0; i <= cpGridSteps; i++ {
		k := math.Exp(lo + (hi-lo)*float64(i)/cpGridSteps)
		if f := solveLinear(t, p, k); f.sse < best.sse {
			best = f
		}
	}
	return best
}

// refineGolden narrows k around the grid optimum in log space
func refineGolden(t, p []float64, start cpFit) cpFit {
	step := (math.Log(cpMaxK) - math.Log(cpMinK)) / cpGridSteps
	a := math.Max(math.Log(start.k)-2*step, math.Log(cpMinK))
	b := math.Min(math.Log(start.k)+2*step, math.Log(cpMaxK))

	phi := (math.Sqrt(5) - 1) / 2
	c := b - phi*(b-a)
	d := a + phi*(b-a)
	fc := solveLinear(t, p, math.Exp(c))
	fd := solveLinear(t, p, math.Exp(d))
	for b-a > cpGoldenTol {
		if fc.sse < fd.sse {
			b, d, fd = d, c, fc
			c = b - phi*(b-a)
			fc = solveLinear(t, p, math.Exp(c))
		} else {
			a, c, fc = c, d, fd
			d = a + phi*(b-a)
			fd = solveLinear(t, p, math.Exp(d))
		}
	}
	best := start
	for _, f := range []cpFit{fc, fd} {
		if f.sse < best.sse {
			best = f
		}
	}
	return best
}

// polishNelderMead runs a derivative-free pass over (CP, W', log k)
func polishNelderMead(t, p []float64, start cpFit) (cpFit, bool) {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			return sse(t, p, x[0], x[1], math.Exp(x[2]))
		},
	}
	init := []float64{start.cp, start.wPrime, math.Log(start.k)}
	result, err := optimize.Minimize(problem, init, nil, &optimize.NelderMead{})
	if result == nil || (err != nil && result.F >= start.sse) {
		return cpFit{}, false
	}
	x := result.X
	k := math.Exp(x[2])
	if math.IsNaN(result.F) || k <= 0 {
		return cpFit{}, false
	}
	return cpFit{cp: x[0], wPrime: x[1], k: k, sse: result.F}, true
}

func rSquared(p []float64, sse float64) float64 {
	mean := stat.Mean(p, nil)
	var sst float64
	for _, v := range p {
		sst += (v - mean) * (v - mean)
	}
	if sst == 0 {
		return 0
	}
	return 1 - sse/sst
}

// BestEfforts returns the highest rolling average power for each duration
// that fits inside a single segment of the cleaned power series.
func BestEfforts(series *CleanedSeries, durations []float64) []Effort {
	if series == nil || len(series.Points) < 2 {
		return nil
	}
	dt := nominalSpacing(series.Points)
	if dt <= 0 {
		return nil
	}

	var efforts []Effort
	for _, d := range durations {
		n := int(math.Round(d / dt))
		if n < 1 {
			continue
		}
		bestAvg := -1.0
		for si := range series.Segments {
			pts := series.SegmentPoints(si)
			if len(pts) < n {
				continue
			}
			var sum float64
			for i, pt := range pts {
				sum += pt.V
				if i >= n {
					sum -= pts[i-n].V
				}
				if i >= n-1 {
					bestAvg = math.Max(bestAvg, sum/float64(n))
				}
			}
		}
		if bestAvg > 0 {
			efforts = append(efforts, Effort{DurationSeconds: d, Watts: bestAvg})
		}
	}
	return efforts
}
