package fitfile

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"github.com/tormoder/fit"
)

// NativeGenerator encodes a FIT activity file with records, HRV beats, one
// lap and one session.
type NativeGenerator struct{}

func (NativeGenerator) Name() string      { return "native" }
func (NativeGenerator) Placeholder() bool { return false }
func (NativeGenerator) Extension() string { return ".fit" }

// Generate encodes a as a FIT activity
func (NativeGenerator) Generate(ctx context.Context, a *Activity) ([]byte, error) {
	header := fit.NewHeader(fit.V20, true)
	file, err := fit.NewFile(fit.FileTypeActivity, header)
	if err != nil {
		return nil, fmt.Errorf("new fit file: %w", err)
	}
	file.FileId.TimeCreated = a.StartTime

	activity, err := file.Activity()
	if err != nil {
		return nil, fmt.Errorf("activity accessor: %w", err)
	}

	var distance float64
	for i, s := range a.Samples {
		if i%600 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		record := fit.NewRecordMsg()
		record.Timestamp = s.Timestamp
		if s.HeartRate != nil {
			record.HeartRate = uint8(clampRound(*s.HeartRate, 0, math.MaxUint8-1))
		}
		if s.Power != nil {
			record.Power = uint16(clampRound(*s.Power, 0, math.MaxUint16-1))
		}
		if s.Cadence != nil {
			record.Cadence = uint8(clampRound(*s.Cadence, 0, math.MaxUint8-1))
		}
		if s.Speed != nil {
			record.Speed = uint16(clampRound(*s.Speed*1000, 0, math.MaxUint16-1))
			distance += *s.Speed
			record.Distance = uint32(clampRound(distance*100, 0, math.MaxUint32-1))
		}
		if s.Altitude != nil {
			record.Altitude = uint16(clampRound((*s.Altitude+500)*5, 0, math.MaxUint16-1))
		}
		if s.Temperature != nil {
			record.Temperature = int8(clampRound(*s.Temperature, math.MinInt8, math.MaxInt8-1))
		}
		activity.Records = append(activity.Records, record)

		// The encoder sizes array fields from the first message of a type,
		// so each HRV message carries exactly one beat.
		for _, rr := range s.RR {
			hrv := fit.NewHrvMsg()
			hrv.Time = []uint16{uint16(clampRound(rr, 1, math.MaxUint16-1))}
			activity.Hrvs = append(activity.Hrvs, hrv)
		}
	}

	sum := Summarize(a)
	elapsed := uint32(sum.Elapsed() / time.Millisecond)

	lap := fit.NewLapMsg()
	lap.Timestamp = sum.End
	lap.StartTime = sum.Start
	lap.TotalElapsedTime = elapsed
	lap.TotalTimerTime = elapsed
	lap.TotalDistance = uint32(sum.Distance * 100)
	lap.AvgPower = uint16(math.Round(sum.AvgPower))
	lap.MaxPower = uint16(math.Round(sum.MaxPower))
	lap.AvgHeartRate = uint8(math.Round(sum.AvgHeartRate))
	lap.MaxHeartRate = uint8(math.Round(sum.MaxHeartRate))
	activity.Laps = append(activity.Laps, lap)

	session := fit.NewSessionMsg()
	session.Timestamp = sum.End
	session.StartTime = sum.Start
	session.TotalElapsedTime = elapsed
	session.TotalTimerTime = elapsed
	session.TotalDistance = lap.TotalDistance
	session.AvgPower = lap.AvgPower
	session.MaxPower = lap.MaxPower
	session.AvgHeartRate = lap.AvgHeartRate
	session.MaxHeartRate = lap.MaxHeartRate
	session.Sport = fit.SportCycling
	activity.Sessions = append(activity.Sessions, session)

	var buf bytes.Buffer
	if err := fit.Encode(&buf, file, binary.LittleEndian); err != nil {
		return nil, fmt.Errorf("encode fit: %w", err)
	}
	return buf.Bytes(), nil
}

func clampRound(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, math.Round(v)))
}
