package analysis

// SignalKind identifies the physiological signal a series carries
type SignalKind string

const (
	KindRR    SignalKind = "rr"
	KindPower SignalKind = "power"
)

// RRSample is a single beat-to-beat interval
type RRSample struct {
	Timestamp  float64 `json:"timestamp"` // seconds
	IntervalMs float64 `json:"interval_ms"`
}

// PowerSample is a single power reading on the same clock as RRSample
type PowerSample struct {
	Timestamp float64 `json:"timestamp"`
	Watts     float64 `json:"watts"`
}

// Point is a generic (timestamp, value) pair
type Point struct {
	T            float64 `json:"timestamp"`
	V            float64 `json:"value"`
	Interpolated bool    `json:"interpolated,omitempty"`
}

// Segment is a contiguous run of points with no gap above the bridging bound.
// Start and End index into CleanedSeries.Points, End is exclusive.
type Segment struct {
	Start     int     `json:"start"`
	End       int     `json:"end"`
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
}

// Len returns the number of points in the segment
func (s Segment) Len() int { return s.End - s.Start }

// Duration returns the segment span in seconds
func (s Segment) Duration() float64 { return s.EndTime - s.StartTime }

// CleanedSeries is the output of the preprocessor
type CleanedSeries struct {
	Kind         SignalKind `json:"kind"`
	Points       []Point    `json:"points"`
	Segments     []Segment  `json:"segments"`
	Removed      int        `json:"removed"`
	Interpolated int        `json:"interpolated"`
}

// SegmentPoints returns the points of segment i
func (c *CleanedSeries) SegmentPoints(i int) []Point {
	seg := c.Segments[i]
	return c.Points[seg.Start:seg.End]
}

// Values returns the point values in order
func (c *CleanedSeries) Values() []float64 {
	out := make([]float64, len(c.Points))
	for i, p := range c.Points {
		out[i] = p.V
	}
	return out
}

// Duration returns the span from first to last point
func (c *CleanedSeries) Duration() float64 {
	if len(c.Points) < 2 {
		return 0
	}
	return c.Points[len(c.Points)-1].T - c.Points[0].T
}

// RRPoints converts raw RR samples into points
func RRPoints(samples []RRSample) []Point {
	pts := make([]Point, len(samples))
	for i, s := range samples {
		pts[i] = Point{T: s.Timestamp, V: s.IntervalMs}
	}
	return pts
}

// PowerPoints converts raw power samples into points
func PowerPoints(samples []PowerSample) []Point {
	pts := make([]Point, len(samples))
	for i, s := range samples {
		pts[i] = Point{T: s.Timestamp, V: s.Watts}
	}
	return pts
}

// RRFromIntervals builds RR samples from bare intervals, placing each beat at the
// cumulative sum of the intervals that precede and include it.
func RRFromIntervals(intervalsMs []float64) []RRSample {
	out := make([]RRSample, len(intervalsMs))
	var t float64
	for i, rr := range intervalsMs {
		t += rr / 1000
		out[i] = RRSample{Timestamp: t, IntervalMs: rr}
	}
	return out
}
