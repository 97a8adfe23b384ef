package fitfile

import (
	"errors"
	"fmt"
	"time"
)

// Sample is one 1 Hz activity record. Nil fields were not recorded.
type Sample struct {
	Timestamp   time.Time `json:"timestamp"`
	HeartRate   *float64  `json:"hr,omitempty"`
	Power       *float64  `json:"power,omitempty"`
	Cadence     *float64  `json:"cadence,omitempty"`
	Speed       *float64  `json:"speed,omitempty"` // m/s
	Altitude    *float64  `json:"altitude,omitempty"`
	Temperature *float64  `json:"temperature,omitempty"`
	RR          []float64 `json:"rr_ms,omitempty"` // beats ending in this second
	Alpha1      *float64  `json:"alpha1,omitempty"`
}

// Activity is the input to a Generator
type Activity struct {
	StartTime time.Time `json:"start_time"`
	Samples   []Sample  `json:"samples"`
}

// Validate checks that an activity can be written
func (a *Activity) Validate() error {
	if a.StartTime.IsZero() {
		return errors.New("start_time is required")
	}
	if len(a.Samples) == 0 {
		return errors.New("no samples provided")
	}
	for i := 1; i < len(a.Samples); i++ {
		if a.Samples[i].Timestamp.Before(a.Samples[i-1].Timestamp) {
			return fmt.Errorf("sample %d: timestamp precedes previous sample", i)
		}
	}
	return nil
}

// Summary aggregates an activity for lap and session messages
type Summary struct {
	Start        time.Time
	End          time.Time
	AvgPower     float64
	MaxPower     float64
	AvgHeartRate float64
	MaxHeartRate float64
	AvgCadence   float64
	MaxCadence   float64
	AvgSpeed     float64
	MaxSpeed     float64
	Distance     float64 // meters, 1 s integration of speed
	Beats        int
}

// Elapsed returns the span between the first and last sample
func (s Summary) Elapsed() time.Duration {
	return s.End.Sub(s.Start)
}

type agg struct {
	sum, max float64
	n        int
}

func (a *agg) add(v *float64) {
	if v == nil {
		return
	}
	a.sum += *v
	a.max = max(a.max, *v)
	a.n++
}

func (a agg) mean() float64 {
	if a.n == 0 {
		return 0
	}
	return a.sum / float64(a.n)
}

// Summarize computes averages and maxima over recorded fields only
func Summarize(a *Activity) Summary {
	var s Summary
	if len(a.Samples) == 0 {
		return s
	}
	s.Start = a.Samples[0].Timestamp
	s.End = a.Samples[len(a.Samples)-1].Timestamp

	var power, hr, cad, speed agg
	for _, smp := range a.Samples {
		power.add(smp.Power)
		hr.add(smp.HeartRate)
		cad.add(smp.Cadence)
		speed.add(smp.Speed)
		s.Beats += len(smp.RR)
	}
	s.AvgPower, s.MaxPower = power.mean(), power.max
	s.AvgHeartRate, s.MaxHeartRate = hr.mean(), hr.max
	s.AvgCadence, s.MaxCadence = cad.mean(), cad.max
	s.AvgSpeed, s.MaxSpeed = speed.mean(), speed.max
	s.Distance = speed.sum
	return s
}
