package analysis

import (
	"math"
	"strings"
)

// Somatotypes shift the MLSS estimate relative to CP
const (
	SomatotypeEctomorph = "ectomorph"
	SomatotypeMesomorph = "mesomorph"
	SomatotypeEndomorph = "endomorph"
)

// MetabolicInput is the body composition and mean maximal power needed to
// estimate a metabolic profile. MMP values are watts for 3, 6 and 15 minutes.
type MetabolicInput struct {
	WeightKg       float64 `json:"weight_kg"`
	HeightCm       float64 `json:"height_cm"`
	Age            int     `json:"age"`
	Sex            string  `json:"sex"` // male or female
	BodyFatPercent float64 `json:"body_fat_pct"`
	Somatotype     string  `json:"somatotype"`
	PMax           float64 `json:"p_max"`
	MMP3           float64 `json:"mmp_3"`
	MMP6           float64 `json:"mmp_6"`
	MMP15          float64 `json:"mmp_15"`
}

// MetabolicZone is a training zone bounded in watts
type MetabolicZone struct {
	Name        string `json:"name"`
	MinWatts    int    `json:"min_watts"`
	MaxWatts    int    `json:"max_watts"`
	Description string `json:"description"`
}

// CombustionPoint is the modelled share of fat and carbohydrate oxidation at
// a power, percent of their respective maxima
type CombustionPoint struct {
	Watts         int     `json:"watts"`
	FatOxidation  float64 `json:"fat_oxidation"`
	CarbOxidation float64 `json:"carb_oxidation"`
}

// MetabolicProfile holds the estimated metabolic markers of an athlete
type MetabolicProfile struct {
	VLamax        float64           `json:"vlamax"` // mmol/l/s, clamped to [0.2, 1.2]
	MAP           float64           `json:"map"`    // aerobic power at VO2max, watts
	VO2max        float64           `json:"vo2max"` // ml/kg/min
	MLSS          float64           `json:"mlss"`
	CP            float64           `json:"cp"`
	WPrime        float64           `json:"w_prime"`
	FatMax        float64           `json:"fat_max"`
	Confidence    float64           `json:"confidence"`
	BMR           float64           `json:"bmr"`  // kcal/day
	TDEE          float64           `json:"tdee"` // kcal/day at a moderate activity factor
	CarbRateAtFTP float64           `json:"carb_rate_at_ftp"`
	Zones         []MetabolicZone   `json:"zones"`
	Combustion    []CombustionPoint `json:"combustion_curve"`
}

// Model constants
const (
	activeMuscleFraction = 0.31
	grossEfficiency      = 0.225
	oxygenEnergyKJ       = 21.1 // kJ per litre of O2
	tdeeActivityFactor   = 1.55
	combustionStepWatts  = 10
	combustionStartWatts = 50
)

// EstimateMetabolicProfile derives CP and W' from the 6 and 15 minute
// powers, then VLamax, VO2max, FatMax, training zones and a substrate
// combustion curve.
func EstimateMetabolicProfile(in MetabolicInput) (MetabolicProfile, error) {
	const module = ModuleMetabolic
	switch {
	case !(in.WeightKg > 0):
		return MetabolicProfile{}, invalid(module, "weight_kg", -1, "weight must be positive, got %v", in.WeightKg)
	case in.BodyFatPercent < 0 || in.BodyFatPercent >= 100:
		return MetabolicProfile{}, invalid(module, "body_fat_pct", -1, "body fat must be within [0, 100), got %v", in.BodyFatPercent)
	case !(in.PMax > 0) || !(in.MMP3 > 0) || !(in.MMP6 > 0) || !(in.MMP15 > 0):
		return MetabolicProfile{}, invalid(module, "mmp", -1, "p_max and the 3, 6 and 15 minute powers must be positive")
	}

	cp, wPrime := TwoPointCP(Effort{DurationSeconds: 360, Watts: in.MMP6}, Effort{DurationSeconds: 900, Watts: in.MMP15})
	if cp <= 0 || wPrime <= 0 {
		return MetabolicProfile{}, invalid(module, "mmp", -1, "6 minute power must exceed 15 minute power")
	}

	mlss := cp * mlssRatio(in.Somatotype)
	muscle := in.WeightKg * (1 - in.BodyFatPercent/100) * activeMuscleFraction

	vla := in.PMax/muscle*0.013 + 0.4*(1.1-mlss/(in.MMP3*0.94))
	aerobic := in.MMP3 - wPrime/180
	if aerobic <= 0 {
		return MetabolicProfile{}, invalid(module, "mmp_3", -1, "3 minute power %v leaves no aerobic component", in.MMP3)
	}
	vo2 := aerobic / grossEfficiency / oxygenEnergyKJ * 60 / in.WeightKg
	fatMax := mlss * (0.8 - vla*0.25)
	clamped := math.Min(math.Max(vla, 0.2), 1.2)

	bmr := basalMetabolicRate(in)
	return MetabolicProfile{
		VLamax:        clamped,
		MAP:           aerobic,
		VO2max:        vo2,
		MLSS:          mlss,
		CP:            cp,
		WPrime:        wPrime,
		FatMax:        fatMax,
		Confidence:    metabolicConfidence(in),
		BMR:           bmr,
		TDEE:          bmr * tdeeActivityFactor,
		CarbRateAtFTP: 50 + clamped*45,
		Zones:         metabolicZones(mlss, fatMax, aerobic),
		Combustion:    combustionCurve(aerobic, fatMax, clamped),
	}, nil
}

func mlssRatio(somatotype string) float64 {
	switch strings.ToLower(somatotype) {
	case SomatotypeEctomorph:
		return 0.92
	case SomatotypeEndomorph:
		return 0.85
	default:
		return 0.88
	}
}

// basalMetabolicRate uses the revised Harris-Benedict equations
func basalMetabolicRate(in MetabolicInput) float64 {
	age := float64(in.Age)
	if strings.EqualFold(in.Sex, "female") {
		return 447.593 + 9.247*in.WeightKg + 3.098*in.HeightCm - 4.330*age
	}
	return 88.362 + 13.397*in.WeightKg + 4.799*in.HeightCm - 5.677*age
}

// metabolicConfidence rises with each supplied power and with a curve that
// falls monotonically from 3 to 15 minutes
func metabolicConfidence(in MetabolicInput) float64 {
	score := 0.4
	for _, v := range []float64{in.PMax, in.MMP3, in.MMP15} {
		if v > 0 {
			score += 0.15
		}
	}
	if in.MMP3 > in.MMP6 && in.MMP6 > in.MMP15 {
		score += 0.15
	}
	return math.Min(math.Max(score, 0.1), 1)
}

func metabolicZones(ftp, fatMax, aerobic float64) []MetabolicZone {
	z1 := int(math.Round(ftp * 0.55))
	z2 := max(int(math.Round(fatMax+15)), z1+10)
	z3 := int(math.Round(ftp * 0.88))
	z4 := int(math.Round(ftp * 1.05))
	z5 := int(math.Round(aerobic))

	return []MetabolicZone{
		{Name: "Z1 - Recovery", MinWatts: 0, MaxWatts: z1, Description: "Active recovery"},
		{Name: "Z2 - Endurance", MinWatts: z1 + 1, MaxWatts: z2, Description: "Aerobic base around FatMax"},
		{Name: "Z3 - Tempo", MinWatts: z2 + 1, MaxWatts: z3, Description: "Tempo"},
		{Name: "Z4 - Threshold", MinWatts: z3 + 1, MaxWatts: z4, Description: "Lactate threshold"},
		{Name: "Z5 - VO2max", MinWatts: z4 + 1, MaxWatts: z5, Description: "Maximal aerobic power"},
	}
}

// combustionCurve models fat oxidation as a Gaussian centred on FatMax and
// carbohydrate oxidation as a logistic rise whose midpoint moves lower as
// VLamax grows
func combustionCurve(aerobic, fatMax, vlamax float64) []CombustionPoint {
	end := int(aerobic * 1.3)
	var out []CombustionPoint
	for w := combustionStartWatts; w <= end; w += combustionStepWatts {
		r := float64(w) / aerobic
		z := (float64(w) - fatMax) / (aerobic * 0.4)
		fat := math.Max(0, 100*math.Exp(-z*z)-r*12)
		carb := math.Min(100, 100/(1+math.Exp(-12*(r-(0.98-vlamax*0.4)))))
		out = append(out, CombustionPoint{Watts: w, FatOxidation: fat, CarbOxidation: carb})
	}
	return out
}
