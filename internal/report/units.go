package report

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"velolab/internal/config"
)

// Units formats power in the athlete's preferred unit
type Units struct {
	cfg      config.DisplayConfig
	weightKg float64
}

// NewUnits creates a Units helper. W/kg falls back to watts without a weight.
func NewUnits(cfg config.DisplayConfig, weightKg float64) Units {
	return Units{cfg: cfg, weightKg: weightKg}
}

// PerKg reports whether power is shown relative to body weight
func (u Units) PerKg() bool {
	return u.cfg.PowerUnit == "W/kg" && u.weightKg > 0
}

// Power formats watts with the unit label
func (u Units) Power(watts float64) string {
	if u.PerKg() {
		return fmt.Sprintf("%.2f W/kg", watts/u.weightKg)
	}
	return fmt.Sprintf("%.0f W", watts)
}

// Joules formats work with thousands separators
func Joules(j float64) string {
	return humanize.Comma(int64(j+0.5)) + " J"
}

// Bytes formats a file size
func Bytes(n int) string {
	return humanize.Bytes(uint64(max(n, 0)))
}

// Duration formats seconds as hours and minutes, or minutes and seconds
// below an hour
func Duration(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm %02ds", m, s)
}

// Clock formats an activity offset in seconds as h:mm:ss
func Clock(seconds float64) string {
	t := int(seconds + 0.5)
	return fmt.Sprintf("%d:%02d:%02d", t/3600, t%3600/60, t%60)
}
