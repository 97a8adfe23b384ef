package fitfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
)

// PlaceholderMagic opens every placeholder file
const PlaceholderMagic = "VELOLAB-PLACEHOLDER-ACTIVITY v1"

// PlaceholderGenerator writes a CSV stand-in used when the native encoder
// is unavailable. It carries the same fields as the FIT records and keeps the
// .fit extension so downstream file handling is unchanged; the magic header
// and the Placeholder flag mark it as text.
type PlaceholderGenerator struct{}

func (PlaceholderGenerator) Name() string      { return "placeholder" }
func (PlaceholderGenerator) Placeholder() bool { return true }
func (PlaceholderGenerator) Extension() string { return ".fit" }

// Generate renders a as CSV below a magic header line
func (PlaceholderGenerator) Generate(ctx context.Context, a *Activity) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("# " + PlaceholderMagic + "\n")
	fmt.Fprintf(&buf, "# start_time=%s samples=%d\n", a.StartTime.UTC().Format("2006-01-02T15:04:05Z"), len(a.Samples))

	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"offset_s", "hr", "power", "cadence", "speed", "altitude", "temperature", "alpha1", "rr_ms"}); err != nil {
		return nil, err
	}
	for _, s := range a.Samples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rr := make([]string, len(s.RR))
		for i, v := range s.RR {
			rr[i] = formatFloat(v)
		}
		row := []string{
			formatFloat(s.Timestamp.Sub(a.StartTime).Seconds()),
			optional(s.HeartRate),
			optional(s.Power),
			optional(s.Cadence),
			optional(s.Speed),
			optional(s.Altitude),
			optional(s.Temperature),
			optional(s.Alpha1),
			strings.Join(rr, "|"),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IsPlaceholder reports whether data was written by PlaceholderGenerator
func IsPlaceholder(data []byte) bool {
	return bytes.HasPrefix(data, []byte("# "+PlaceholderMagic))
}

func optional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
