package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/guptarohit/asciigraph"

	"velolab/internal/analysis"
)

// PMCCard summarises the latest day of a chart
func PMCCard(current analysis.PMCState, alert *analysis.FreshnessAlert) string {
	lines := []string{
		Metric("Date", current.Date.Format(time.DateOnly), ""),
		Metric("Load", fmt.Sprintf("%.0f", current.Load), ""),
		Metric("Fitness (CTL)", fmt.Sprintf("%.1f", current.CTL), ""),
		Metric("Fatigue (ATL)", fmt.Sprintf("%.1f", current.ATL), ""),
		Metric("Form (TSB)", fmt.Sprintf("%+.1f", current.TSB), ""),
		"",
		MutedStyle.Render(analysis.FormDescription(current.TSB)),
	}
	if alert != nil {
		lines = append(lines, levelStyle(alert.Level).Render(alert.Level+": "+alert.Message))
	}
	return Card("Training Load", 44, lines...)
}

// PMCChart plots CTL, ATL and TSB over the chart's days
func PMCChart(states []analysis.PMCState, width int) string {
	if len(states) < 2 {
		return ""
	}
	ctl := make([]float64, len(states))
	atl := make([]float64, len(states))
	tsb := make([]float64, len(states))
	for i, s := range states {
		ctl[i], atl[i], tsb[i] = s.CTL, s.ATL, s.TSB
	}
	caption := fmt.Sprintf("CTL (blue)  ATL (red)  TSB (green)  %s to %s",
		states[0].Date.Format(time.DateOnly), states[len(states)-1].Date.Format(time.DateOnly))
	return asciigraph.PlotMany([][]float64{ctl, atl, tsb},
		asciigraph.Height(10),
		asciigraph.Width(width),
		asciigraph.Precision(0),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Red, asciigraph.Green),
		asciigraph.Caption(caption),
	)
}

// PMCTable lists the last n days, newest first
func PMCTable(states []analysis.PMCState, n int) string {
	var b strings.Builder
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%-10s %6s %7s %7s %7s", "Date", "Load", "CTL", "ATL", "TSB")))
	b.WriteString("\n")
	for i := len(states) - 1; i >= 0 && i >= len(states)-n; i-- {
		s := states[i]
		fmt.Fprintf(&b, " %-10s %6.0f %7.1f %7.1f %+7.1f\n", s.Date.Format(time.DateOnly), s.Load, s.CTL, s.ATL, s.TSB)
	}
	return b.String()
}

// PMC renders the full chart report
func PMC(states []analysis.PMCState, alert *analysis.FreshnessAlert, charts bool) string {
	if len(states) == 0 {
		return MutedStyle.Render("No training load recorded yet.")
	}
	sections := []string{PMCCard(states[len(states)-1], alert)}
	if charts {
		if chart := PMCChart(states, 60); chart != "" {
			sections = append(sections, chart)
		}
	}
	sections = append(sections, PMCTable(states, 14))
	return strings.Join(sections, "\n\n")
}
