package analysis

import (
	"errors"
	"fmt"
)

// Config holds every tunable threshold and time constant of the analysis core,
// grouped per module. It is passed explicitly to each operation.
type Config struct {
	RR        PreprocessConfig `mapstructure:"rr" json:"rr"`
	Power     PreprocessConfig `mapstructure:"power" json:"power"`
	DFA       DFAConfig        `mapstructure:"dfa" json:"dfa"`
	VT1       VT1Config        `mapstructure:"vt1" json:"vt1"`
	CP        CPConfig         `mapstructure:"cp" json:"cp"`
	PMC       PMCConfig        `mapstructure:"pmc" json:"pmc"`
	NP        NPConfig         `mapstructure:"np" json:"np"`
	Readiness ReadinessConfig  `mapstructure:"readiness" json:"readiness"`
	Banister  BanisterConfig   `mapstructure:"banister" json:"banister"`
}

// PreprocessConfig controls cleaning of one signal kind
type PreprocessConfig struct {
	MinValue          float64 `mapstructure:"min_value" json:"min_value"`
	MaxValue          float64 `mapstructure:"max_value" json:"max_value"`
	MedianWindow      int     `mapstructure:"median_window" json:"median_window"` // samples, odd
	OutlierK          float64 `mapstructure:"outlier_k" json:"outlier_k"`         // 0 disables median rejection
	MinSpreadFraction float64 `mapstructure:"min_spread_fraction" json:"min_spread_fraction"`
	MinSpread         float64 `mapstructure:"min_spread" json:"min_spread"`
	MaxGapSeconds     float64 `mapstructure:"max_gap_seconds" json:"max_gap_seconds"`
	MinSamples        int     `mapstructure:"min_samples" json:"min_samples"`
}

// DFAConfig controls the windowed alpha1 computation
type DFAConfig struct {
	WindowSeconds float64 `mapstructure:"window_seconds" json:"window_seconds"`
	StrideSeconds float64 `mapstructure:"stride_seconds" json:"stride_seconds"`
	MinBox        int     `mapstructure:"min_box" json:"min_box"`
	MaxBox        int     `mapstructure:"max_box" json:"max_box"`
	BoxCount      int     `mapstructure:"box_count" json:"box_count"`
	MinSamples    int     `mapstructure:"min_samples" json:"min_samples"`
}

// VT1Config controls threshold crossing detection
type VT1Config struct {
	Threshold             float64 `mapstructure:"threshold" json:"threshold"`
	PowerToleranceSeconds float64 `mapstructure:"power_tolerance_seconds" json:"power_tolerance_seconds"`
	Neighborhood          int     `mapstructure:"neighborhood" json:"neighborhood"` // windows each side
	ValidAlphaMin         float64 `mapstructure:"valid_alpha_min" json:"valid_alpha_min"`
	ValidAlphaMax         float64 `mapstructure:"valid_alpha_max" json:"valid_alpha_max"`
	FullDensitySamples    int     `mapstructure:"full_density_samples" json:"full_density_samples"`
}

// CPConfig controls the critical power fit
type CPConfig struct {
	MinRSquared float64   `mapstructure:"min_r_squared" json:"min_r_squared"`
	Durations   []float64 `mapstructure:"durations" json:"durations"` // seconds, used when efforts are derived from power
}

// PMCConfig holds the PMC decay constants and freshness bands
type PMCConfig struct {
	ATLDays float64 `mapstructure:"atl_days" json:"atl_days"`
	CTLDays float64 `mapstructure:"ctl_days" json:"ctl_days"`

	FreshTSB           float64 `mapstructure:"fresh_tsb" json:"fresh_tsb"`
	VeryFreshTSB       float64 `mapstructure:"very_fresh_tsb" json:"very_fresh_tsb"`
	DetrainingDelta    float64 `mapstructure:"detraining_delta" json:"detraining_delta"` // 7-day TSB rise
	FatiguedTSB        float64 `mapstructure:"fatigued_tsb" json:"fatigued_tsb"`
	OverreachingTSB    float64 `mapstructure:"overreaching_tsb" json:"overreaching_tsb"`
	DetrainingLookback int     `mapstructure:"detraining_lookback" json:"detraining_lookback"` // days
}

// NPConfig holds reference conditions for the normalized power correction
type NPConfig struct {
	ReferenceAltitude    float64 `mapstructure:"reference_altitude" json:"reference_altitude"`
	ReferenceTemperature float64 `mapstructure:"reference_temperature" json:"reference_temperature"`
	MinAltitude          float64 `mapstructure:"min_altitude" json:"min_altitude"`           // below this altitude is ignored
	TemperatureSlack     float64 `mapstructure:"temperature_slack" json:"temperature_slack"` // |T-ref| below this is ignored
	RollingSeconds       int     `mapstructure:"rolling_seconds" json:"rolling_seconds"`
	FTP                  float64 `mapstructure:"ftp" json:"ftp"`
}

// ReadinessConfig holds HRV baseline and traffic light bands
type ReadinessConfig struct {
	BaselineDays    int     `mapstructure:"baseline_days" json:"baseline_days"`
	NormalRange     float64 `mapstructure:"normal_range" json:"normal_range"` // fraction of baseline
	GreenDeviation  float64 `mapstructure:"green_deviation" json:"green_deviation"`
	YellowDeviation float64 `mapstructure:"yellow_deviation" json:"yellow_deviation"`
	StableCV        float64 `mapstructure:"stable_cv" json:"stable_cv"`
	ModerateCV      float64 `mapstructure:"moderate_cv" json:"moderate_cv"`
}

// BanisterConfig holds the fitness-fatigue time constants and gains
type BanisterConfig struct {
	TauFitness float64 `mapstructure:"tau_fitness" json:"tau_fitness"` // days
	TauFatigue float64 `mapstructure:"tau_fatigue" json:"tau_fatigue"` // days
	KFitness   float64 `mapstructure:"k_fitness" json:"k_fitness"`
	KFatigue   float64 `mapstructure:"k_fatigue" json:"k_fatigue"`
}

// DefaultConfig returns literature-derived defaults
func DefaultConfig() Config {
	return Config{
		RR: PreprocessConfig{
			MinValue:          300,
			MaxValue:          2000,
			MedianWindow:      11,
			OutlierK:          4,
			MinSpreadFraction: 0.05, // k*5% = 20% of the local median
			MinSpread:         10,
			MaxGapSeconds:     5,
			MinSamples:        50,
		},
		Power: PreprocessConfig{
			MinValue:          0,
			MaxValue:          2500,
			MedianWindow:      11,
			OutlierK:          6,
			MinSpreadFraction: 0.25,
			MinSpread:         50,
			MaxGapSeconds:     10,
			MinSamples:        30,
		},
		DFA: DFAConfig{
			WindowSeconds: 120,
			StrideSeconds: 30,
			MinBox:        4,
			MaxBox:        16,
			BoxCount:      10,
			MinSamples:    50,
		},
		VT1: VT1Config{
			Threshold:             0.75,
			PowerToleranceSeconds: 5,
			Neighborhood:          2,
			ValidAlphaMin:         0.3,
			ValidAlphaMax:         1.5,
			FullDensitySamples:    150,
		},
		CP: CPConfig{
			MinRSquared: 0.85,
			Durations:   []float64{60, 180, 300, 420, 720, 1200},
		},
		PMC: PMCConfig{
			ATLDays:            7,
			CTLDays:            42,
			FreshTSB:           20,
			VeryFreshTSB:       25,
			DetrainingDelta:    15,
			FatiguedTSB:        -10,
			OverreachingTSB:    -30,
			DetrainingLookback: 7,
		},
		NP: NPConfig{
			ReferenceAltitude:    0,
			ReferenceTemperature: 15,
			MinAltitude:          200,
			TemperatureSlack:     5,
			RollingSeconds:       30,
			FTP:                  250,
		},
		Readiness: ReadinessConfig{
			BaselineDays:    7,
			NormalRange:     0.10,
			GreenDeviation:  -5,
			YellowDeviation: -15,
			StableCV:        7,
			ModerateCV:      12,
		},
		Banister: BanisterConfig{
			TauFitness: 42,
			TauFatigue: 7,
			KFitness:   1,
			KFatigue:   2,
		},
	}
}

// Validate checks that thresholds are internally consistent
func (c Config) Validate() error {
	for _, kc := range []struct {
		name string
		p    PreprocessConfig
	}{{"rr", c.RR}, {"power", c.Power}} {
		name, p := kc.name, kc.p
		if p.MaxValue <= p.MinValue {
			return fmt.Errorf("analysis.%s.max_value must exceed min_value", name)
		}
		if p.MedianWindow < 3 {
			return fmt.Errorf("analysis.%s.median_window must be at least 3, got %d", name, p.MedianWindow)
		}
		if p.MaxGapSeconds <= 0 {
			return fmt.Errorf("analysis.%s.max_gap_seconds must be positive", name)
		}
	}
	if c.DFA.WindowSeconds <= 0 || c.DFA.StrideSeconds <= 0 {
		return errors.New("analysis.dfa window and stride must be positive")
	}
	if c.DFA.MinBox < 2 || c.DFA.MaxBox <= c.DFA.MinBox {
		return fmt.Errorf("analysis.dfa box range [%d, %d] is invalid", c.DFA.MinBox, c.DFA.MaxBox)
	}
	if c.VT1.Threshold <= 0 {
		return fmt.Errorf("analysis.vt1.threshold must be positive, got %v", c.VT1.Threshold)
	}
	if c.CP.MinRSquared < 0 || c.CP.MinRSquared > 1 {
		return fmt.Errorf("analysis.cp.min_r_squared must be within [0, 1], got %v", c.CP.MinRSquared)
	}
	if c.PMC.ATLDays < 1 || c.PMC.CTLDays < 1 {
		return errors.New("analysis.pmc time constants must be at least 1 day")
	}
	if c.Banister.TauFitness < 1 || c.Banister.TauFatigue < 1 {
		return errors.New("analysis.banister time constants must be at least 1 day")
	}
	if c.Banister.KFitness < 0 || c.Banister.KFatigue < 0 {
		return errors.New("analysis.banister gains must not be negative")
	}
	if c.PMC.CTLDays <= c.PMC.ATLDays {
		return fmt.Errorf("analysis.pmc.ctl_days (%v) must exceed atl_days (%v)", c.PMC.CTLDays, c.PMC.ATLDays)
	}
	if c.NP.FTP < 0 {
		return fmt.Errorf("analysis.np.ftp must not be negative, got %v", c.NP.FTP)
	}
	return nil
}
