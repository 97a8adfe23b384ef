package analysis

import (
	"errors"
	"math"
	"testing"
)

func allRounderCurve() []Effort {
	return []Effort{
		{DurationSeconds: 2400, Watts: 250},
		{DurationSeconds: 5, Watts: 1000},
		{DurationSeconds: 10, Watts: 900},
		{DurationSeconds: 30, Watts: 600},
		{DurationSeconds: 60, Watts: 450},
		{DurationSeconds: 180, Watts: 380},
		{DurationSeconds: 300, Watts: 340},
		{DurationSeconds: 600, Watts: 300},
		{DurationSeconds: 1200, Watts: 270},
	}
}

func TestAnalyzePowerProfile(t *testing.T) {
	p, err := AnalyzePowerProfile(allRounderCurve(), 70, nil)
	if err != nil {
		t.Fatalf("AnalyzePowerProfile() error = %v", err)
	}

	if p.Phenotype != PhenotypeAllRounder || p.PhenotypeLabel != "All-Rounder" {
		t.Errorf("phenotype = %s (%s), want ALL_ROUNDER", p.Phenotype, p.PhenotypeLabel)
	}
	if p.CogganCategory != "Very Good" {
		t.Errorf("CogganCategory = %s, want Very Good for 3.86 W/kg", p.CogganCategory)
	}

	wantPct := Percentiles{Sprint: 5, Anaerobic: 25, VO2max: 50, Threshold: 10}
	if p.Percentiles != wantPct {
		t.Errorf("Percentiles = %+v, want %+v", p.Percentiles, wantPct)
	}
	wantStr := Strengths{Sprint: StrengthStrong, Anaerobic: StrengthStrong, VO2max: StrengthModerate, Threshold: StrengthStrong}
	if p.Strengths != wantStr {
		t.Errorf("Strengths = %+v, want %+v", p.Strengths, wantStr)
	}

	if p.Curve.FlatUntil != 5 || p.Curve.CollapseAfter != 30 {
		t.Errorf("Curve = %+v, want flat until 5 s and collapse after 30 s", p.Curve)
	}

	params := p.Params
	if params.FTPEstimate != 270 || params.CriticalPower != 270 {
		t.Errorf("FTP/CP = %v/%v, want the 20 minute power without a CP model", params.FTPEstimate, params.CriticalPower)
	}
	if params.PMax != 1000 || params.AnaerobicReserve != 730 {
		t.Errorf("PMax = %v, reserve = %v", params.PMax, params.AnaerobicReserve)
	}
	if params.AnaerobicCapacityKJ != defaultAnaerobicCapacityKJ {
		t.Errorf("AnaerobicCapacityKJ = %v, want default", params.AnaerobicCapacityKJ)
	}
	if math.Abs(params.VO2maxEstimate-340.0/70*12) > 1e-9 {
		t.Errorf("VO2maxEstimate = %v", params.VO2maxEstimate)
	}
	if math.Abs(params.TTEVO2maxMinutes-(4+(340.0/70-4)*0.5)) > 1e-9 {
		t.Errorf("TTEVO2maxMinutes = %v", params.TTEVO2maxMinutes)
	}
}

func TestAnalyzePowerProfile_UsesCPModel(t *testing.T) {
	cp, wp, pmax := 280.0, 18000.0, 1100.0
	model := &CPModel{CPWatts: &cp, WPrimeJoules: &wp, PMaxWatts: &pmax, RSquared: 0.99}

	p, err := AnalyzePowerProfile(allRounderCurve(), 70, model)
	if err != nil {
		t.Fatal(err)
	}
	if p.Params.CriticalPower != 280 || p.Params.AnaerobicCapacityKJ != 18 {
		t.Errorf("params = %+v, want CP 280 and 18 kJ", p.Params)
	}
	if p.Params.AnaerobicReserve != 720 {
		t.Errorf("AnaerobicReserve = %v, want 1000-280", p.Params.AnaerobicReserve)
	}
}

func TestAnalyzePowerProfile_Errors(t *testing.T) {
	var invalidErr *InvalidInputError
	if _, err := AnalyzePowerProfile(allRounderCurve(), 0, nil); !errors.As(err, &invalidErr) {
		t.Errorf("zero weight error = %v, want InvalidInputError", err)
	}
	_, err := AnalyzePowerProfile([]Effort{{DurationSeconds: 60, Watts: -5}}, 70, nil)
	if !errors.As(err, &invalidErr) || invalidErr.Module != ModuleProfile {
		t.Errorf("negative power error = %v, want InvalidInputError from %s", err, ModuleProfile)
	}
	var insufficientErr *InsufficientDataError
	if _, err := AnalyzePowerProfile(nil, 70, nil); !errors.As(err, &insufficientErr) {
		t.Errorf("empty curve error = %v, want InsufficientDataError", err)
	}
}

func TestClassifyPhenotype(t *testing.T) {
	tests := []struct {
		name                          string
		sprint, anaerobic, vo2, thr20 float64
		want                          string
	}{
		{"sprinter", 1200, 560, 300, 180, PhenotypeSprinter},
		{"diesel", 350, 300, 380, 260, PhenotypeDiesel},
		{"time trialist", 400, 420, 400, 300, PhenotypeTimeTrialist},
		{"climber", 700, 450, 420, 250, PhenotypeClimber},
		{"all rounder", 560, 360, 336, 210, PhenotypeAllRounder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := PowerValues{Sprint5s: tt.sprint, Anaerobic1min: tt.anaerobic, VO2max5min: tt.vo2, Threshold20min: tt.thr20}
			if got := classifyPhenotype(v, 70); got != tt.want {
				t.Errorf("classifyPhenotype() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestPowerAt(t *testing.T) {
	pts := []Effort{{DurationSeconds: 60, Watts: 400}, {DurationSeconds: 300, Watts: 300}}

	tests := []struct {
		d    float64
		want float64
	}{
		{60, 400},
		{5, 400},
		{600, 300},
		{math.Sqrt(60 * 300), 350},
	}
	for _, tt := range tests {
		if got := PowerAt(pts, tt.d); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("PowerAt(%v) = %v, want %v", tt.d, got, tt.want)
		}
	}
	if got := PowerAt(nil, 60); got != 0 {
		t.Errorf("PowerAt(nil) = %v, want 0", got)
	}
}

func TestCogganCategory(t *testing.T) {
	tests := []struct {
		wkg  float64
		want string
	}{
		{4.2, "Elite"},
		{3.5, "Very Good"},
		{3.2, "Good"},
		{2.6, "Moderate"},
		{1.9, "Fair"},
	}
	for _, tt := range tests {
		if got := CogganCategory(tt.wkg); got != tt.want {
			t.Errorf("CogganCategory(%v) = %s, want %s", tt.wkg, got, tt.want)
		}
	}
}
