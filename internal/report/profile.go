package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/guptarohit/asciigraph"

	"velolab/internal/analysis"
)

func profileCard(p *analysis.PowerProfile, u Units) string {
	pct := func(label string, percentile int, strength string) string {
		return Metric(label, fmt.Sprintf("top %d%%", percentile), strength)
	}
	return Card("Power Profile", 0,
		Metric("Phenotype", p.PhenotypeLabel, p.CogganCategory),
		Metric("5 s", u.Power(p.Values.Sprint5s), ""),
		Metric("1 min", u.Power(p.Values.Anaerobic1min), ""),
		Metric("5 min", u.Power(p.Values.VO2max5min), ""),
		Metric("20 min", u.Power(p.Values.Threshold20min), ""),
		"",
		pct("Sprint", p.Percentiles.Sprint, p.Strengths.Sprint),
		pct("Anaerobic", p.Percentiles.Anaerobic, p.Strengths.Anaerobic),
		pct("VO2max", p.Percentiles.VO2max, p.Strengths.VO2max),
		pct("Threshold", p.Percentiles.Threshold, p.Strengths.Threshold),
		"",
		MutedStyle.Width(40).Render(p.Curve.Describe()),
	)
}

func metabolicCard(m *analysis.MetabolicProfile, u Units) string {
	lines := []string{
		Metric("VO2max", fmt.Sprintf("%.1f ml/kg/min", m.VO2max), ""),
		Metric("VLamax", fmt.Sprintf("%.2f mmol/l/s", m.VLamax), ""),
		Metric("MLSS", u.Power(m.MLSS), ""),
		Metric("FatMax", u.Power(m.FatMax), ""),
		Metric("MAP", u.Power(m.MAP), ""),
		Metric("Confidence", ProgressBar(m.Confidence, 12), fmt.Sprintf("%.0f%%", m.Confidence*100)),
		"",
	}
	for _, z := range m.Zones {
		lines = append(lines, Metric(z.Name, fmt.Sprintf("%d-%d W", z.MinWatts, z.MaxWatts), ""))
	}
	return Card("Metabolic Profile", 0, lines...)
}

// PerformanceChart plots Banister fitness, fatigue and performance
func PerformanceChart(states []analysis.PerformanceState, width int) string {
	if len(states) < 2 {
		return ""
	}
	fit := make([]float64, len(states))
	fat := make([]float64, len(states))
	perf := make([]float64, len(states))
	for i, s := range states {
		fit[i], fat[i], perf[i] = s.Fitness, s.Fatigue, s.Performance
	}
	return asciigraph.PlotMany([][]float64{fit, fat, perf},
		asciigraph.Height(10),
		asciigraph.Width(width),
		asciigraph.Precision(0),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Red, asciigraph.Green),
		asciigraph.Caption("Fitness (blue)  Fatigue (red)  Performance (green)"),
	)
}

// Performance renders the Banister model with its peak day and recent days
func Performance(states []analysis.PerformanceState, charts bool) string {
	if len(states) == 0 {
		return MutedStyle.Render("No training load recorded yet.")
	}
	last := states[len(states)-1]
	peak, _ := analysis.PeakPerformance(states)
	sections := []string{Card("Performance Model", 44,
		Metric("Date", last.Date.Format(time.DateOnly), ""),
		Metric("Fitness", fmt.Sprintf("%.1f", last.Fitness), ""),
		Metric("Fatigue", fmt.Sprintf("%.1f", last.Fatigue), ""),
		Metric("Performance", fmt.Sprintf("%+.1f", last.Performance), ""),
		Metric("Peak", fmt.Sprintf("%+.1f", peak.Performance), peak.Date.Format(time.DateOnly)),
	)}
	if charts {
		if chart := PerformanceChart(states, 60); chart != "" {
			sections = append(sections, chart)
		}
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%-10s %6s %8s %8s %8s", "Date", "Load", "Fitness", "Fatigue", "Perf")))
	b.WriteString("\n")
	for i := len(states) - 1; i >= 0 && i >= len(states)-14; i-- {
		s := states[i]
		fmt.Fprintf(&b, " %-10s %6.0f %8.1f %8.1f %+8.1f\n", s.Date.Format(time.DateOnly), s.Load, s.Fitness, s.Fatigue, s.Performance)
	}
	sections = append(sections, b.String())
	return strings.Join(sections, "\n\n")
}
