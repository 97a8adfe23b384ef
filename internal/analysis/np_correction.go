package analysis

import "math"

// Barometric constants for the standard atmosphere
const (
	lapseRate        = 0.0065 // K/m
	seaLevelTempK    = 288.15
	barometricExp    = 5.255
	densityPerDegree = 0.005 // relative density change per °C above 15
	standardTempC    = 15.0
	minDensityRatio  = 0.5
	maxDensityRatio  = 1.0
)

// AirDensityRatio estimates air density at altitude and temperature relative
// to sea level at 15°C, clamped to [0.5, 1].
func AirDensityRatio(altitudeM, temperatureC float64) float64 {
	pressure := math.Pow(1-lapseRate*altitudeM/seaLevelTempK, barometricExp)
	temp := 1 - densityPerDegree*(temperatureC-standardTempC)
	return math.Max(minDensityRatio, math.Min(maxDensityRatio, pressure*temp))
}

// NPCorrection is the outcome of the normalized power correction
type NPCorrection struct {
	RawNP        float64 `json:"raw_np"`
	CorrectedNP  float64 `json:"corrected_np"`
	Factor       float64 `json:"factor"`
	DensityRatio float64 `json:"density_ratio"`
	Applied      bool    `json:"applied"`
}

// CorrectionFactor returns the multiplicative NP adjustment for the given
// conditions relative to the configured reference. Power scales with the
// cube of speed, so the factor is the cube root of the inverse density ratio.
// Conditions close to the reference leave the factor at 1.
func CorrectionFactor(altitudeM, temperatureC float64, cfg NPConfig) (factor, density float64, applied bool) {
	nearRefAltitude := altitudeM-cfg.ReferenceAltitude <= cfg.MinAltitude
	nearRefTemp := math.Abs(temperatureC-cfg.ReferenceTemperature) <= cfg.TemperatureSlack
	if nearRefAltitude && nearRefTemp {
		return 1, 1, false
	}
	ref := AirDensityRatio(cfg.ReferenceAltitude, cfg.ReferenceTemperature)
	density = AirDensityRatio(altitudeM, temperatureC) / ref
	return math.Cbrt(1 / density), density, true
}

// CorrectNormalizedPower adjusts NP for the altitude deficit and heat stress.
// The result feeds CP fitting and PMC load.
func CorrectNormalizedPower(np, altitudeM, temperatureC float64, cfg NPConfig) (NPCorrection, error) {
	if math.IsNaN(np) || np < 0 {
		return NPCorrection{}, invalid(ModuleNP, "normalized_power", -1, "must be a non-negative number, got %v", np)
	}
	if math.IsNaN(altitudeM) || altitudeM < -500 || altitudeM > 9000 {
		return NPCorrection{}, invalid(ModuleNP, "altitude_m", -1, "out of range: %v", altitudeM)
	}
	if math.IsNaN(temperatureC) || temperatureC < -50 || temperatureC > 60 {
		return NPCorrection{}, invalid(ModuleNP, "temperature_c", -1, "out of range: %v", temperatureC)
	}
	factor, density, applied := CorrectionFactor(altitudeM, temperatureC, cfg)
	return NPCorrection{
		RawNP:        np,
		CorrectedNP:  np * factor,
		Factor:       factor,
		DensityRatio: density,
		Applied:      applied,
	}, nil
}
