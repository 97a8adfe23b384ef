package fitfile

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/tormoder/fit"

	"velolab/internal/analysis"
)

// Decoded holds the signals extracted from a FIT activity
type Decoded struct {
	StartTime    time.Time
	RR           []float64 // ms, in beat order
	Power        []analysis.PowerSample
	HeartRate    []analysis.Point
	AltitudeM    *float64 // mean over valid records
	TemperatureC *float64 // mean over valid records
	Records      int
}

// Decode reads a FIT activity and extracts beat intervals from HRV messages
// plus power, heart rate and environment from record messages. Record
// timestamps become seconds since the first record.
func Decode(r io.Reader) (*Decoded, error) {
	file, err := fit.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decode FIT file: %w", err)
	}
	activity, err := file.Activity()
	if err != nil {
		return nil, fmt.Errorf("activity FIT expected: %w", err)
	}

	d := &Decoded{Records: len(activity.Records)}

	for _, hrv := range activity.Hrvs {
		for _, raw := range hrv.Time {
			if raw == math.MaxUint16 || raw == 0 {
				continue
			}
			d.RR = append(d.RR, float64(raw))
		}
	}

	var altSum, tempSum float64
	var altN, tempN int
	for _, rec := range activity.Records {
		if rec.Timestamp.IsZero() || fit.IsBaseTime(rec.Timestamp) {
			continue
		}
		if d.StartTime.IsZero() {
			d.StartTime = rec.Timestamp
		}
		t := rec.Timestamp.Sub(d.StartTime).Seconds()

		if rec.Power != math.MaxUint16 {
			d.Power = append(d.Power, analysis.PowerSample{Timestamp: t, Watts: float64(rec.Power)})
		}
		if rec.HeartRate != math.MaxUint8 {
			d.HeartRate = append(d.HeartRate, analysis.Point{T: t, V: float64(rec.HeartRate)})
		}
		if rec.Altitude != math.MaxUint16 {
			altSum += float64(rec.Altitude)/5 - 500
			altN++
		}
		if rec.Temperature != math.MaxInt8 {
			tempSum += float64(rec.Temperature)
			tempN++
		}
	}

	if altN > 0 {
		v := altSum / float64(altN)
		d.AltitudeM = &v
	}
	if tempN > 0 {
		v := tempSum / float64(tempN)
		d.TemperatureC = &v
	}
	return d, nil
}
