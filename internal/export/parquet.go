package export

import (
	"fmt"
	"os"
	"time"

	parquetbuffer "github.com/xitongsys/parquet-go-source/buffer"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"

	"velolab/internal/analysis"
)

type dfaRow struct {
	StartS    float64 `parquet:"name=start_s, type=DOUBLE"`
	EndS      float64 `parquet:"name=end_s, type=DOUBLE"`
	Alpha1    float64 `parquet:"name=alpha1, type=DOUBLE"`
	RSquared  float64 `parquet:"name=r_squared, type=DOUBLE"`
	Samples   int64   `parquet:"name=sample_count, type=INT64"`
	MeanRRMs  float64 `parquet:"name=mean_rr_ms, type=DOUBLE"`
	HeartRate float64 `parquet:"name=heart_rate_bpm, type=DOUBLE"`
}

type seriesRow struct {
	Kind         string  `parquet:"name=kind, type=BYTE_ARRAY, convertedtype=UTF8, encoding=PLAIN_DICTIONARY"`
	TimestampS   float64 `parquet:"name=timestamp_s, type=DOUBLE"`
	Value        float64 `parquet:"name=value, type=DOUBLE"`
	Segment      int32   `parquet:"name=segment, type=INT32"`
	Interpolated bool    `parquet:"name=interpolated, type=BOOLEAN"`
}

type pmcRow struct {
	Date string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8"`
	Load float64 `parquet:"name=load, type=DOUBLE"`
	ATL  float64 `parquet:"name=atl, type=DOUBLE"`
	CTL  float64 `parquet:"name=ctl, type=DOUBLE"`
	TSB  float64 `parquet:"name=tsb, type=DOUBLE"`
}

// DFATimeline encodes alpha1 windows as a Parquet file
func DFATimeline(windows []analysis.DFAWindow) ([]byte, error) {
	rows := make([]any, len(windows))
	for i, w := range windows {
		hr := 0.0
		if w.MeanRRMs > 0 {
			hr = 60000 / w.MeanRRMs
		}
		rows[i] = dfaRow{
			StartS:    w.Start,
			EndS:      w.End,
			Alpha1:    w.Alpha1,
			RSquared:  w.RSquared,
			Samples:   int64(w.SampleCount),
			MeanRRMs:  w.MeanRRMs,
			HeartRate: hr,
		}
	}
	return marshal(new(dfaRow), rows)
}

// CleanedSeries encodes a preprocessed series with its segment index per point
func CleanedSeries(series *analysis.CleanedSeries) ([]byte, error) {
	rows := make([]any, 0, len(series.Points))
	for seg := range series.Segments {
		for _, p := range series.SegmentPoints(seg) {
			rows = append(rows, seriesRow{
				Kind:         string(series.Kind),
				TimestampS:   p.T,
				Value:        p.V,
				Segment:      int32(seg),
				Interpolated: p.Interpolated,
			})
		}
	}
	return marshal(new(seriesRow), rows)
}

// PMCHistory encodes a day-by-day PMC timeline
func PMCHistory(states []analysis.PMCState) ([]byte, error) {
	rows := make([]any, len(states))
	for i, s := range states {
		rows[i] = pmcRow{
			Date: s.Date.Format(time.DateOnly),
			Load: s.Load,
			ATL:  s.ATL,
			CTL:  s.CTL,
			TSB:  s.TSB,
		}
	}
	return marshal(new(pmcRow), rows)
}

// WriteFile writes encoded Parquet data to path
func WriteFile(path string, data []byte) error {
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

func marshal(schema any, rows []any) ([]byte, error) {
	fw := parquetbuffer.NewBufferFile()
	pw, err := writer.NewParquetWriter(fw, schema, 4)
	if err != nil {
		return nil, fmt.Errorf("creating parquet writer: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY
	for _, row := range rows {
		if err := pw.Write(row); err != nil {
			_ = pw.WriteStop()
			return nil, fmt.Errorf("writing parquet row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return nil, fmt.Errorf("finishing parquet file: %w", err)
	}
	if err := fw.Close(); err != nil {
		return nil, err
	}
	return append([]byte(nil), fw.Bytes()...), nil
}
