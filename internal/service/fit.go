package service

import (
	"time"

	"velolab/internal/fitfile"
)

// PayloadFromFIT builds a payload from a decoded activity file. Beat
// intervals become rr_intervals; the activity date becomes the load date.
func PayloadFromFIT(d *fitfile.Decoded, athleteID string) *Payload {
	p := &Payload{
		AthleteID:    athleteID,
		RRIntervals:  d.RR,
		PowerData:    d.Power,
		HeartRate:    d.HeartRate,
		AltitudeM:    d.AltitudeM,
		TemperatureC: d.TemperatureC,
	}
	if !d.StartTime.IsZero() {
		p.Date = d.StartTime.UTC().Format(time.DateOnly)
	}
	return p
}
