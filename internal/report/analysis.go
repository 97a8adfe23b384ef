package report

import (
	"fmt"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"velolab/internal/analysis"
	"velolab/internal/service"
)

// Analysis renders an analysis result as terminal cards
func Analysis(res *service.Result, u Units, charts bool) string {
	var sections []string

	header := fmt.Sprintf("Analysis %s", res.RequestID)
	if res.Cached {
		header += " (cached)"
	}
	sections = append(sections, TitleStyle.Render(header))

	var row []string
	if res.Power != nil {
		row = append(row, powerCard(res, u))
	}
	if res.HRV != nil {
		row = append(row, hrvCard(res))
	}
	if len(row) > 0 {
		sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, interleave(row, "  ")...))
	}

	row = row[:0]
	if res.VT1 != nil {
		row = append(row, vt1Card(res.VT1, u))
	}
	if res.CP != nil {
		row = append(row, cpCard(res, u))
	}
	if len(row) > 0 {
		sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, interleave(row, "  ")...))
	}

	row = row[:0]
	if res.Profile != nil {
		row = append(row, profileCard(res.Profile, u))
	}
	if res.Metabolic != nil {
		row = append(row, metabolicCard(res.Metabolic, u))
	}
	if len(row) > 0 {
		sections = append(sections, lipgloss.JoinHorizontal(lipgloss.Top, interleave(row, "  ")...))
	}

	if res.Efficiency != nil {
		sections = append(sections, efficiencyCard(res.Efficiency))
	}
	if res.Readiness != nil {
		sections = append(sections, readinessCard(res.Readiness))
	}
	if res.PMC != nil {
		sections = append(sections, PMCCard(res.PMC.Current, res.PMC.Alert))
	}

	if charts && len(res.DFA) > 1 {
		sections = append(sections, Alpha1Chart(res.DFA, 60))
	}

	sections = append(sections, statusLines(res.Status))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// Alpha1Chart plots the DFA alpha1 timeline
func Alpha1Chart(windows []analysis.DFAWindow, width int) string {
	data := make([]float64, len(windows))
	for i, w := range windows {
		data[i] = w.Alpha1
	}
	caption := fmt.Sprintf("DFA alpha1, %s to %s", Clock(windows[0].Mid()), Clock(windows[len(windows)-1].Mid()))
	return asciigraph.Plot(data,
		asciigraph.Height(8),
		asciigraph.Width(width),
		asciigraph.Precision(2),
		asciigraph.Caption(caption),
	)
}

func powerCard(res *service.Result, u Units) string {
	p := res.Power
	lines := []string{
		Metric("Duration", Duration(p.DurationSeconds), ""),
		Metric("Average Power", u.Power(p.AveragePower), ""),
		Metric("Normalized Power", u.Power(p.NormalizedPower), ""),
		Metric("Variability Index", fmt.Sprintf("%.2f", p.VariabilityIndex), ""),
	}
	if p.IntensityFactor > 0 {
		lines = append(lines,
			Metric("Intensity Factor", fmt.Sprintf("%.2f", p.IntensityFactor), ""),
			Metric("TSS", fmt.Sprintf("%.0f", p.TrainingStress), ""),
		)
	}
	if res.NP != nil && res.NP.Applied {
		lines = append(lines, Metric("Corrected NP", u.Power(res.NP.CorrectedNP), fmt.Sprintf("+%.1f%%", (res.NP.Factor-1)*100)))
	}
	if res.PowerSeries != nil {
		lines = append(lines, Metric("Data Quality", ProgressBar(res.PowerSeries.Quality, 12), analysis.DataQualityDescription(res.PowerSeries.Quality)))
	}
	return Card("Power", 0, lines...)
}

func hrvCard(res *service.Result) string {
	h := res.HRV
	lines := []string{
		Metric("Beats", fmt.Sprintf("%d", h.Beats), ""),
		Metric("Mean HR", fmt.Sprintf("%.0f bpm", h.MeanHR), ""),
		Metric("SDNN", fmt.Sprintf("%.1f ms", h.SDNN), ""),
	}
	if h.RMSSD != nil {
		lines = append(lines, Metric("RMSSD", fmt.Sprintf("%.1f ms", *h.RMSSD), ""))
	}
	if len(res.DFA) > 0 {
		lines = append(lines, Metric("DFA Windows", fmt.Sprintf("%d", len(res.DFA)), ""))
	}
	if res.RRSeries != nil {
		lines = append(lines, Metric("Artifacts Removed", fmt.Sprintf("%d", res.RRSeries.Removed), ""))
	}
	return Card("Heart Rate Variability", 0, lines...)
}

func vt1Card(v *analysis.VT1Result, u Units) string {
	if !v.Detected() {
		return Card("VT1", 0, MutedStyle.Render("No alpha1 crossing found"))
	}
	lines := []string{Metric("Time", Clock(*v.Timestamp), "")}
	if v.PowerWatts != nil {
		lines = append(lines, Metric("Power", u.Power(*v.PowerWatts), ""))
	}
	if v.HeartRate != nil {
		lines = append(lines, Metric("Heart Rate", fmt.Sprintf("%.0f bpm", *v.HeartRate), ""))
	}
	lines = append(lines, Metric("Confidence", ProgressBar(v.Confidence, 12), fmt.Sprintf("%.0f%%", v.Confidence*100)))
	return Card("VT1", 0, lines...)
}

func cpCard(res *service.Result, u Units) string {
	m := res.CP
	if !m.Valid() {
		return Card("Critical Power", 0,
			WarningStyle.Render("Fit rejected"),
			Metric("R²", fmt.Sprintf("%.3f", m.RSquared), ""),
			Metric("Efforts", fmt.Sprintf("%d", m.Points), ""),
		)
	}
	lines := []string{
		Metric("CP", u.Power(*m.CPWatts), ""),
		Metric("W'", Joules(*m.WPrimeJoules), ""),
		Metric("Pmax", u.Power(*m.PMaxWatts), ""),
		Metric("R²", fmt.Sprintf("%.3f", m.RSquared), ""),
	}
	if w := res.WPrime; w != nil {
		lines = append(lines, Metric("W' Low", Joules(w.Min), "at "+Clock(w.MinAt)))
		if w.Exhausted {
			lines = append(lines, ErrorStyle.Render("W' fully depleted"))
		}
	}
	return Card("Critical Power", 0, lines...)
}

func efficiencyCard(e *service.EfficiencySummary) string {
	return Card("Efficiency", 0,
		Metric("Efficiency Factor", fmt.Sprintf("%.2f", e.EfficiencyFactor), ""),
		Metric("Decoupling", fmt.Sprintf("%.1f%%", e.Decoupling), analysis.DecouplingAssessment(e.Decoupling)),
		Metric("Cardiac Drift", fmt.Sprintf("%.1f bpm", e.CardiacDrift), ""),
		Metric("Steady State", fmt.Sprintf("%.0f%%", e.SteadyStatePct), ""),
	)
}

func readinessCard(r *analysis.Readiness) string {
	return Card("Readiness", 0,
		Metric("Status", levelStyle(r.Status).Render(r.Status), fmt.Sprintf("%+.1f%%", r.DeviationPercent)),
		Metric("RMSSD", fmt.Sprintf("%.1f ms", r.Current), fmt.Sprintf("baseline %.1f", r.Baseline.Mean)),
		Metric("Baseline CV", fmt.Sprintf("%.1f%%", r.Baseline.CVPercent), r.Baseline.Stability),
		Metric("Overreaching", levelStyle(r.Overreaching).Render(r.Overreaching), fmt.Sprintf("%d days low", r.DaysDepressed)),
	)
}

// statusLines lists module outcomes, failures first
func statusLines(status map[string]service.ModuleStatus) string {
	names := make([]string, 0, len(status))
	for name := range status {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		a, b := status[names[i]], status[names[j]]
		if a.OK != b.OK {
			return !a.OK
		}
		return names[i] < names[j]
	})

	lines := make([]string, 0, len(names))
	for _, name := range names {
		st := status[name]
		if st.OK {
			lines = append(lines, SuccessStyle.Render("✓ "+name))
			continue
		}
		lines = append(lines, ErrorStyle.Render(fmt.Sprintf("✗ %s [%s] %s", name, st.ErrorKind, st.Message)))
	}
	return StatusStyle.Render(strings.Join(lines, "\n"))
}

func interleave(items []string, sep string) []string {
	out := make([]string, 0, 2*len(items))
	for i, it := range items {
		if i > 0 {
			out = append(out, sep)
		}
		out = append(out, it)
	}
	return out
}
