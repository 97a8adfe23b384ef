package analysis

import (
	"errors"
	"math"
	"testing"
)

func referenceBody() MetabolicInput {
	return MetabolicInput{
		WeightKg:       70,
		HeightCm:       175,
		Age:            30,
		Sex:            "male",
		BodyFatPercent: 15,
		Somatotype:     SomatotypeMesomorph,
		PMax:           1000,
		MMP3:           380,
		MMP6:           330,
		MMP15:          290,
	}
}

func TestEstimateMetabolicProfile(t *testing.T) {
	m, err := EstimateMetabolicProfile(referenceBody())
	if err != nil {
		t.Fatalf("EstimateMetabolicProfile() error = %v", err)
	}

	checks := []struct {
		name      string
		got, want float64
		tol       float64
	}{
		{"CP", m.CP, 142200.0 / 540, 1e-9},
		{"WPrime", m.WPrime, 24000, 1e-6},
		{"MLSS", m.MLSS, 142200.0 / 540 * 0.88, 1e-9},
		{"MAP", m.MAP, 380 - 24000.0/180, 1e-6},
		{"VO2max", m.VO2max, 44.53, 0.05},
		{"VLamax", m.VLamax, 0.885, 0.005},
		{"FatMax", m.FatMax, 134.1, 0.5},
		{"BMR", m.BMR, 1695.67, 0.05},
		{"Confidence", m.Confidence, 1, 1e-9},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want) > c.tol {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}
	if math.Abs(m.TDEE-m.BMR*1.55) > 1e-9 {
		t.Errorf("TDEE = %v, want BMR x 1.55", m.TDEE)
	}

	wantMax := []int{127, 149, 204, 243, 247}
	if len(m.Zones) != len(wantMax) {
		t.Fatalf("got %d zones, want %d", len(m.Zones), len(wantMax))
	}
	for i, z := range m.Zones {
		if z.MaxWatts != wantMax[i] {
			t.Errorf("zone %s max = %d, want %d", z.Name, z.MaxWatts, wantMax[i])
		}
		if i > 0 && z.MinWatts != m.Zones[i-1].MaxWatts+1 {
			t.Errorf("zone %s starts at %d, want %d", z.Name, z.MinWatts, m.Zones[i-1].MaxWatts+1)
		}
	}
}

func TestEstimateMetabolicProfile_CombustionCurve(t *testing.T) {
	m, err := EstimateMetabolicProfile(referenceBody())
	if err != nil {
		t.Fatal(err)
	}

	// 50 W to 1.3 x MAP in 10 W steps
	if len(m.Combustion) != 28 {
		t.Fatalf("got %d combustion points, want 28", len(m.Combustion))
	}
	if m.Combustion[0].Watts != 50 || m.Combustion[27].Watts != 320 {
		t.Errorf("curve spans %d-%d W, want 50-320 W", m.Combustion[0].Watts, m.Combustion[27].Watts)
	}

	peak := m.Combustion[0]
	for i, p := range m.Combustion {
		if p.FatOxidation > peak.FatOxidation {
			peak = p
		}
		if i > 0 && p.CarbOxidation < m.Combustion[i-1].CarbOxidation {
			t.Errorf("carbohydrate oxidation falls at %d W", p.Watts)
		}
		if p.FatOxidation < 0 || p.CarbOxidation > 100 {
			t.Errorf("point %+v out of range", p)
		}
	}
	if peak.Watts < 100 || peak.Watts > 150 {
		t.Errorf("fat oxidation peaks at %d W, want near FatMax %.0f W", peak.Watts, m.FatMax)
	}
}

func TestEstimateMetabolicProfile_Somatotype(t *testing.T) {
	in := referenceBody()
	meso, err := EstimateMetabolicProfile(in)
	if err != nil {
		t.Fatal(err)
	}
	in.Somatotype = "Ectomorph"
	ecto, err := EstimateMetabolicProfile(in)
	if err != nil {
		t.Fatal(err)
	}
	in.Somatotype = SomatotypeEndomorph
	endo, err := EstimateMetabolicProfile(in)
	if err != nil {
		t.Fatal(err)
	}
	if !(ecto.MLSS > meso.MLSS && meso.MLSS > endo.MLSS) {
		t.Errorf("MLSS ecto/meso/endo = %v/%v/%v, want descending", ecto.MLSS, meso.MLSS, endo.MLSS)
	}
}

func TestEstimateMetabolicProfile_ClampsVLamax(t *testing.T) {
	in := referenceBody()
	in.PMax = 2500
	m, err := EstimateMetabolicProfile(in)
	if err != nil {
		t.Fatal(err)
	}
	if m.VLamax != 1.2 {
		t.Errorf("VLamax = %v, want clamped to 1.2", m.VLamax)
	}
	if math.Abs(m.CarbRateAtFTP-104) > 1e-9 {
		t.Errorf("CarbRateAtFTP = %v, want it from the clamped VLamax", m.CarbRateAtFTP)
	}
}

func TestEstimateMetabolicProfile_Errors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*MetabolicInput)
	}{
		{"zero weight", func(in *MetabolicInput) { in.WeightKg = 0 }},
		{"body fat out of range", func(in *MetabolicInput) { in.BodyFatPercent = 100 }},
		{"missing 15 minute power", func(in *MetabolicInput) { in.MMP15 = 0 }},
		{"flat 6 to 15 minutes", func(in *MetabolicInput) { in.MMP6 = 290 }},
		{"no aerobic component", func(in *MetabolicInput) { in.MMP3 = 120 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := referenceBody()
			tt.modify(&in)
			_, err := EstimateMetabolicProfile(in)
			var invalidErr *InvalidInputError
			if !errors.As(err, &invalidErr) {
				t.Fatalf("error = %v, want InvalidInputError", err)
			}
			if invalidErr.Module != ModuleMetabolic {
				t.Errorf("module = %s, want %s", invalidErr.Module, ModuleMetabolic)
			}
		})
	}
}
