package analysis

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Rider phenotypes derived from the shape of the power-duration curve
const (
	PhenotypeAllRounder   = "ALL_ROUNDER"
	PhenotypeSprinter     = "SPRINTER"
	PhenotypeDiesel       = "DIESEL"
	PhenotypeTimeTrialist = "TIME_TRIALIST"
	PhenotypeClimber      = "CLIMBER"
)

// Strength levels relative to the reference population
const (
	StrengthStrong   = "STRONG"
	StrengthModerate = "MODERATE"
	StrengthWeak     = "WEAK"
)

// ProfileDurations are the curve points read by AnalyzePowerProfile, seconds
var ProfileDurations = []float64{5, 10, 30, 60, 180, 300, 600, 1200, 2400}

// PowerValues are the curve powers at the profile durations, watts
type PowerValues struct {
	Sprint5s       float64 `json:"sprint_5s"`
	Sprint10s      float64 `json:"sprint_10s"`
	Anaerobic30s   float64 `json:"anaerobic_30s"`
	Anaerobic1min  float64 `json:"anaerobic_1min"`
	VO2max3min     float64 `json:"vo2max_3min"`
	VO2max5min     float64 `json:"vo2max_5min"`
	Threshold10min float64 `json:"threshold_10min"`
	Threshold20min float64 `json:"threshold_20min"`
	Threshold40min float64 `json:"threshold_40min"`
}

// Percentiles rank each energy system against the reference population.
// Lower is better: 5 means top 5%.
type Percentiles struct {
	Sprint    int `json:"sprint"`
	Anaerobic int `json:"anaerobic"`
	VO2max    int `json:"vo2max"`
	Threshold int `json:"threshold"`
}

// Strengths labels each energy system from its percentile
type Strengths struct {
	Sprint    string `json:"sprint"`
	Anaerobic string `json:"anaerobic"`
	VO2max    string `json:"vo2max"`
	Threshold string `json:"threshold"`
}

// CurveShape locates where the curve stops being flat and where it collapses
type CurveShape struct {
	FlatUntil     float64 `json:"flat_until_s"`
	CollapseAfter float64 `json:"collapse_after_s"`
}

// ProfileParams are secondary estimates derived from the curve and CP model
type ProfileParams struct {
	FTPEstimate         float64 `json:"ftp_estimated"`
	CriticalPower       float64 `json:"critical_power"`
	VO2maxEstimate      float64 `json:"vo2max_estimated"` // ml/kg/min
	SprintWattsPerKg    float64 `json:"sprint_w_kg"`
	AnaerobicCapacityKJ float64 `json:"anaerobic_capacity_kj"`
	PMax                float64 `json:"p_max"`
	AnaerobicReserve    float64 `json:"anaerobic_power_reserve"`
	TTEVO2maxMinutes    float64 `json:"tte_vo2max_min"`
}

// PowerProfile classifies a rider from their power-duration curve
type PowerProfile struct {
	Phenotype      string        `json:"phenotype"`
	PhenotypeLabel string        `json:"phenotype_label"`
	Values         PowerValues   `json:"power_values"`
	Percentiles    Percentiles   `json:"percentiles"`
	Strengths      Strengths     `json:"strengths"`
	Params         ProfileParams `json:"advanced_params"`
	CogganCategory string        `json:"coggan_category"`
	Curve          CurveShape    `json:"curve_analysis"`
}

// percentileBand is the W/kg needed to reach a population percentile
type percentileBand struct {
	percentile int
	wattsPerKg float64
}

// Amateur reference bands, best percentile first
var percentileReference = map[string][]percentileBand{
	"sprint":    {{5, 12.0}, {10, 11.0}, {25, 9.5}, {50, 8.0}, {75, 6.5}, {90, 5.5}, {95, 4.5}},
	"anaerobic": {{5, 9.0}, {10, 8.0}, {25, 7.0}, {50, 6.0}, {75, 5.0}, {90, 4.0}, {95, 3.5}},
	"vo2max":    {{5, 6.5}, {10, 6.0}, {25, 5.5}, {50, 4.8}, {75, 4.2}, {90, 3.5}, {95, 3.0}},
	"threshold": {{5, 4.5}, {10, 4.0}, {25, 3.5}, {50, 3.0}, {75, 2.5}, {90, 2.0}, {95, 1.8}},
}

// defaultAnaerobicCapacityKJ stands in for W' when no CP model is available
const defaultAnaerobicCapacityKJ = 15.8

// AnalyzePowerProfile reads the curve at the profile durations and derives
// phenotype, population percentiles, strengths, Coggan category and curve
// shape. cp may be nil or rejected; its parameters are used when valid.
func AnalyzePowerProfile(curve []Effort, weightKg float64, cp *CPModel) (PowerProfile, error) {
	const module = ModuleProfile
	if !(weightKg > 0) {
		return PowerProfile{}, invalid(module, "weight_kg", -1, "weight must be positive, got %v", weightKg)
	}
	pts, err := normalizeEfforts(curve)
	if err != nil {
		return PowerProfile{}, relabel(err, module)
	}
	if len(pts) == 0 {
		return PowerProfile{}, insufficient(module, 1, 0)
	}

	v := PowerValues{
		Sprint5s:       PowerAt(pts, 5),
		Sprint10s:      PowerAt(pts, 10),
		Anaerobic30s:   PowerAt(pts, 30),
		Anaerobic1min:  PowerAt(pts, 60),
		VO2max3min:     PowerAt(pts, 180),
		VO2max5min:     PowerAt(pts, 300),
		Threshold10min: PowerAt(pts, 600),
		Threshold20min: PowerAt(pts, 1200),
		Threshold40min: PowerAt(pts, 2400),
	}

	pct := Percentiles{
		Sprint:    populationPercentile((v.Sprint5s+v.Sprint10s)/2/weightKg, "sprint"),
		Anaerobic: populationPercentile((v.Anaerobic30s+v.Anaerobic1min)/2/weightKg, "anaerobic"),
		VO2max:    populationPercentile((v.VO2max3min+v.VO2max5min)/2/weightKg, "vo2max"),
		Threshold: populationPercentile((v.Threshold10min+v.Threshold20min)/2/weightKg, "threshold"),
	}

	phenotype := classifyPhenotype(v, weightKg)
	return PowerProfile{
		Phenotype:      phenotype,
		PhenotypeLabel: PhenotypeLabel(phenotype),
		Values:         v,
		Percentiles:    pct,
		Strengths: Strengths{
			Sprint:    strengthLevel(pct.Sprint),
			Anaerobic: strengthLevel(pct.Anaerobic),
			VO2max:    strengthLevel(pct.VO2max),
			Threshold: strengthLevel(pct.Threshold),
		},
		Params:         profileParams(v, weightKg, cp),
		CogganCategory: CogganCategory(v.Threshold20min / weightKg),
		Curve:          analyzeCurveShape(pts),
	}, nil
}

// NormalizeCurve validates efforts and returns the best power per duration,
// sorted by duration
func NormalizeCurve(efforts []Effort) ([]Effort, error) {
	pts, err := normalizeEfforts(efforts)
	if err != nil {
		return nil, relabel(err, ModuleProfile)
	}
	return pts, nil
}

// PowerAt returns the curve power at d seconds, interpolating linearly in
// log duration between neighbouring points and holding the end values
// outside the curve. pts must be sorted by duration.
func PowerAt(pts []Effort, d float64) float64 {
	if len(pts) == 0 {
		return 0
	}
	i := sort.Search(len(pts), func(i int) bool { return pts[i].DurationSeconds >= d })
	switch {
	case i < len(pts) && pts[i].DurationSeconds == d:
		return pts[i].Watts
	case i == 0:
		return pts[0].Watts
	case i == len(pts):
		return pts[len(pts)-1].Watts
	}
	prev, next := pts[i-1], pts[i]
	ratio := (math.Log(d) - math.Log(prev.DurationSeconds)) / (math.Log(next.DurationSeconds) - math.Log(prev.DurationSeconds))
	return prev.Watts + (next.Watts-prev.Watts)*ratio
}

func populationPercentile(wattsPerKg float64, system string) int {
	for _, b := range percentileReference[system] {
		if wattsPerKg >= b.wattsPerKg {
			return b.percentile
		}
	}
	return 99
}

// median reference W/kg of a system
func referenceMedian(system string) float64 {
	for _, b := range percentileReference[system] {
		if b.percentile == 50 {
			return b.wattsPerKg
		}
	}
	return 1
}

func classifyPhenotype(v PowerValues, weightKg float64) string {
	sprint := v.Sprint5s / weightKg / referenceMedian("sprint")
	anaerobic := v.Anaerobic1min / weightKg / referenceMedian("anaerobic")
	vo2 := v.VO2max5min / weightKg / referenceMedian("vo2max")
	threshold := v.Threshold20min / weightKg / referenceMedian("threshold")

	switch {
	case sprint > 1.3 && anaerobic > 1.2 && vo2 < 0.9 && threshold < 0.9:
		return PhenotypeSprinter
	case sprint < 0.7 && anaerobic < 0.8 && vo2 > 1.1 && threshold > 1.2:
		return PhenotypeDiesel
	case threshold > 1.3 && vo2 > 1.1 && sprint < 0.8:
		return PhenotypeTimeTrialist
	case vo2 > 1.2 && threshold > 1.1 && anaerobic > 1.0:
		return PhenotypeClimber
	default:
		return PhenotypeAllRounder
	}
}

// PhenotypeLabel returns the display name of a phenotype
func PhenotypeLabel(phenotype string) string {
	switch phenotype {
	case PhenotypeSprinter:
		return "Sprinter"
	case PhenotypeDiesel:
		return "Diesel"
	case PhenotypeTimeTrialist:
		return "Time Trialist"
	case PhenotypeClimber:
		return "Climber"
	default:
		return "All-Rounder"
	}
}

func strengthLevel(percentile int) string {
	switch {
	case percentile <= 25:
		return StrengthStrong
	case percentile <= 75:
		return StrengthModerate
	default:
		return StrengthWeak
	}
}

// CogganCategory buckets 20 minute W/kg into the Coggan power profile bands
func CogganCategory(wattsPerKg float64) string {
	switch {
	case wattsPerKg >= 4.0:
		return "Elite"
	case wattsPerKg >= 3.5:
		return "Very Good"
	case wattsPerKg >= 3.0:
		return "Good"
	case wattsPerKg >= 2.5:
		return "Moderate"
	default:
		return "Fair"
	}
}

// analyzeCurveShape walks the sorted curve: steps losing under 2% extend the
// flat region, and the first step losing over 10% marks the collapse.
func analyzeCurveShape(pts []Effort) CurveShape {
	if len(pts) < 3 {
		return CurveShape{}
	}
	shape := CurveShape{
		FlatUntil:     pts[0].DurationSeconds,
		CollapseAfter: pts[len(pts)-1].DurationSeconds,
	}
	collapsed := false
	for i := 1; i < len(pts); i++ {
		prev, cur := pts[i-1], pts[i]
		if prev.Watts <= 0 {
			continue
		}
		decline := (prev.Watts - cur.Watts) / prev.Watts
		if decline > 0.10 && !collapsed {
			shape.CollapseAfter = cur.DurationSeconds
			collapsed = true
		}
		if decline < 0.02 {
			shape.FlatUntil = cur.DurationSeconds
		}
	}
	return shape
}

// Describe renders the curve shape as one sentence per region
func (c CurveShape) Describe() string {
	if c.FlatUntil == 0 && c.CollapseAfter == 0 {
		return "Not enough curve points to describe the shape."
	}
	var s string
	if c.FlatUntil >= 180 {
		s = fmt.Sprintf("The curve stays flat up to %.1f min, strong over short efforts.", c.FlatUntil/60)
	} else {
		s = fmt.Sprintf("The curve starts dropping after %.0f s.", c.FlatUntil)
	}
	if c.CollapseAfter <= 300 {
		s += fmt.Sprintf(" Power falls off sharply after %.1f min.", c.CollapseAfter/60)
	} else {
		s += fmt.Sprintf(" Power holds up to %.1f min.", c.CollapseAfter/60)
	}
	return s
}

func profileParams(v PowerValues, weightKg float64, cp *CPModel) ProfileParams {
	p := ProfileParams{
		FTPEstimate:         v.Threshold20min,
		CriticalPower:       v.Threshold20min,
		VO2maxEstimate:      v.VO2max5min / weightKg * 12,
		SprintWattsPerKg:    v.Sprint5s / weightKg,
		AnaerobicCapacityKJ: defaultAnaerobicCapacityKJ,
		PMax:                math.Max(v.Sprint5s, v.Sprint10s),
	}
	if cp != nil && cp.Valid() {
		p.CriticalPower = *cp.CPWatts
		p.AnaerobicCapacityKJ = *cp.WPrimeJoules / 1000
		if p.FTPEstimate == 0 {
			p.FTPEstimate = *cp.CPWatts
		}
	}
	p.AnaerobicReserve = p.PMax - p.CriticalPower
	// empirical: 4 min at 4 W/kg, half a minute per W/kg either side
	p.TTEVO2maxMinutes = math.Max(2, math.Min(8, 4+(v.VO2max5min/weightKg-4)*0.5))
	return p
}

// relabel moves an effort validation error to another module
func relabel(err error, module string) error {
	var ie *InvalidInputError
	if errors.As(err, &ie) {
		out := *ie
		out.Module = module
		return &out
	}
	return err
}
