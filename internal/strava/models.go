package strava

import (
	"time"

	"velolab/internal/analysis"
)

// Activity represents a Strava activity summary
type Activity struct {
	ID               int64     `json:"id"`
	Name             string    `json:"name"`
	Type             string    `json:"type"`
	SportType        string    `json:"sport_type"`
	StartDate        time.Time `json:"start_date"`
	MovingTime       int       `json:"moving_time"`  // seconds
	ElapsedTime      int       `json:"elapsed_time"` // seconds
	AverageWatts     float64   `json:"average_watts"`
	WeightedAvgWatts float64   `json:"weighted_average_watts"`
	DeviceWatts      bool      `json:"device_watts"`
	AverageHeartrate float64   `json:"average_heartrate"`
	HasHeartrate     bool      `json:"has_heartrate"`
}

// Streams represents activity stream data from the API
// Strava returns streams keyed by type when key_by_type=true
type Streams struct {
	Time           *StreamData[int]     `json:"time"`
	Watts          *StreamData[*int]    `json:"watts"`
	Heartrate      *StreamData[int]     `json:"heartrate"`
	Altitude       *StreamData[float64] `json:"altitude"`
	Temp           *StreamData[int]     `json:"temp"`
	Cadence        *StreamData[int]     `json:"cadence"`
	VelocitySmooth *StreamData[float64] `json:"velocity_smooth"`
}

// StreamData represents a single stream type
type StreamData[T any] struct {
	Data         []T    `json:"data"`
	SeriesType   string `json:"series_type"`
	OriginalSize int    `json:"original_size"`
	Resolution   string `json:"resolution"`
}

// Len returns the length of the stream, or 0 if nil
func (s *Streams) Len() int {
	if s == nil || s.Time == nil {
		return 0
	}
	return len(s.Time.Data)
}

// HasPower returns true if power data exists
func (s *Streams) HasPower() bool {
	return s != nil && s.Watts != nil && len(s.Watts.Data) > 0
}

// HasHeartrate returns true if heartrate data exists
func (s *Streams) HasHeartrate() bool {
	return s != nil && s.Heartrate != nil && len(s.Heartrate.Data) > 0
}

// PowerSamples returns the power stream on the time stream's clock.
// Null readings (dropouts) are skipped.
func (s *Streams) PowerSamples() []analysis.PowerSample {
	if !s.HasPower() {
		return nil
	}
	n := min(len(s.Time.Data), len(s.Watts.Data))
	out := make([]analysis.PowerSample, 0, n)
	for i := 0; i < n; i++ {
		if w := s.Watts.Data[i]; w != nil {
			out = append(out, analysis.PowerSample{Timestamp: float64(s.Time.Data[i]), Watts: float64(*w)})
		}
	}
	return out
}

// HeartRate returns the heart rate stream as points
func (s *Streams) HeartRate() []analysis.Point {
	if !s.HasHeartrate() || s.Time == nil {
		return nil
	}
	n := min(len(s.Time.Data), len(s.Heartrate.Data))
	out := make([]analysis.Point, 0, n)
	for i := 0; i < n; i++ {
		if hr := s.Heartrate.Data[i]; hr > 0 {
			out = append(out, analysis.Point{T: float64(s.Time.Data[i]), V: float64(hr)})
		}
	}
	return out
}

// MeanAltitude returns the average altitude in meters, or nil without a stream
func (s *Streams) MeanAltitude() *float64 {
	if s == nil || s.Altitude == nil || len(s.Altitude.Data) == 0 {
		return nil
	}
	var sum float64
	for _, v := range s.Altitude.Data {
		sum += v
	}
	m := sum / float64(len(s.Altitude.Data))
	return &m
}

// MeanTemperature returns the average temperature in °C, or nil without a stream
func (s *Streams) MeanTemperature() *float64 {
	if s == nil || s.Temp == nil || len(s.Temp.Data) == 0 {
		return nil
	}
	var sum float64
	for _, v := range s.Temp.Data {
		sum += float64(v)
	}
	m := sum / float64(len(s.Temp.Data))
	return &m
}
