package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"velolab/internal/analysis"
	"velolab/internal/config"
	"velolab/internal/fitfile"
	"velolab/internal/service"
	"velolab/internal/store"
)

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

func newTestServer(t *testing.T, withStore bool, opts ...Option) *httptest.Server {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Server.MaxBodyBytes = 1 << 20

	var aopts []service.Option
	if withStore {
		db, err := store.Open(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		aopts = append(aopts, service.WithStore(db))
	}
	logger := zaptest.NewLogger(t)
	analyzer := service.NewAnalyzer(&cfg, logger, aopts...)

	srv := New(analyzer, fitfile.NativeGenerator{}, cfg.Server, logger, opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func powerPayload(n int) service.Payload {
	p := service.Payload{}
	for i := 0; i < n; i++ {
		p.PowerData = append(p.PowerData, analysis.PowerSample{Timestamp: float64(i), Watts: 220 + float64(i%4)})
	}
	return p
}

func TestAnalyze(t *testing.T) {
	ts := newTestServer(t, false)

	resp := postJSON(t, ts.URL+"/v1/analyze", powerPayload(900))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var res service.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, resp.Header.Get("X-Request-ID"), res.RequestID)
	assert.True(t, res.Status["power"].OK)
	require.NotNil(t, res.Power)
	assert.InDelta(t, 221.5, res.Power.AveragePower, 0.1)
}

func TestAnalyze_KeepsCallerRequestID(t *testing.T) {
	ts := newTestServer(t, false)

	b, _ := json.Marshal(powerPayload(120))
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/v1/analyze", bytes.NewReader(b))
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "trace-42")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, "trace-42", resp.Header.Get("X-Request-ID"))
}

func TestAnalyze_Errors(t *testing.T) {
	ts := newTestServer(t, false)

	tests := []struct {
		name string
		body string
		want int
		kind string
	}{
		{"invalid json", `{"power_data": [`, http.StatusBadRequest, ""},
		{"empty payload", `{}`, http.StatusBadRequest, ""},
		{"bad date", `{"load": 40, "date": "yesterday"}`, http.StatusBadRequest, service.KindInvalidInput},
		{"too little data", `{"rr_intervals": [800, 810, 790]}`, http.StatusUnprocessableEntity, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Post(ts.URL+"/v1/analyze", "application/json", strings.NewReader(tt.body))
			require.NoError(t, err)
			defer resp.Body.Close()
			assert.Equal(t, tt.want, resp.StatusCode)

			if tt.kind != "" {
				var body errorResponse
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
				assert.Equal(t, tt.kind, body.Kind)
				assert.NotEmpty(t, body.Error)
			}
		})
	}
}

func TestAnalyze_BodyTooLarge(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.MaxBodyBytes = 64
	logger := zaptest.NewLogger(t)
	srv := New(service.NewAnalyzer(&cfg, logger), fitfile.PlaceholderGenerator{}, cfg.Server, logger)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/v1/analyze", powerPayload(100))
	assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
}

func testActivity(n int) fitfile.Activity {
	start := time.Date(2024, 6, 1, 7, 0, 0, 0, time.UTC)
	a := fitfile.Activity{StartTime: start}
	for i := 0; i < n; i++ {
		w, hr := 210+float64(i%5), 140.0
		a.Samples = append(a.Samples, fitfile.Sample{
			Timestamp: start.Add(time.Duration(i) * time.Second),
			Power:     &w,
			HeartRate: &hr,
			RR:        []float64{430},
		})
	}
	return a
}

func TestGenerateFIT(t *testing.T) {
	ts := newTestServer(t, false)

	resp := postJSON(t, ts.URL+"/v1/fit", testActivity(30))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "native", resp.Header.Get("X-Velolab-Generator"))
	assert.Equal(t, "false", resp.Header.Get("X-Velolab-Placeholder"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "activity_20240601T070000.fit")

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	decoded, err := fitfile.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Len(t, decoded.Power, 30)
}

func TestGenerateFIT_JSON(t *testing.T) {
	ts := newTestServer(t, false)

	resp := postJSON(t, ts.URL+"/v1/fit?format=json", testActivity(10))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Filename    string `json:"filename"`
		Generator   string `json:"generator"`
		Placeholder bool   `json:"placeholder"`
		Size        int    `json:"size"`
		Data        []byte `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "native", body.Generator)
	assert.False(t, body.Placeholder)
	assert.Equal(t, body.Size, len(body.Data))
}

func TestGenerateFIT_InvalidActivity(t *testing.T) {
	ts := newTestServer(t, false)

	resp := postJSON(t, ts.URL+"/v1/fit", fitfile.Activity{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAnalyzeFIT(t *testing.T) {
	ts := newTestServer(t, true)

	a := testActivity(300)
	data, err := fitfile.NativeGenerator{}.Generate(context.Background(), &a)
	require.NoError(t, err)

	resp, err := http.Post(ts.URL+"/v1/analyze/fit?athlete_id=rider-9", "application/octet-stream", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var res service.Result
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&res))
	assert.Equal(t, "rider-9", res.AthleteID)
	require.NotNil(t, res.Power)
	require.NotNil(t, res.PMC)
	assert.Equal(t, "2024-06-01", res.PMC.Current.Date.Format(time.DateOnly))
}

func TestAnalyzeFIT_Garbage(t *testing.T) {
	ts := newTestServer(t, false)

	resp, err := http.Post(ts.URL+"/v1/analyze/fit", "application/octet-stream", strings.NewReader("not a fit file"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPMCEndpoints(t *testing.T) {
	ts := newTestServer(t, true)

	resp := postJSON(t, ts.URL+"/v1/pmc/rider-1", loadRequest{Date: "2024-04-01", Load: 80})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postJSON(t, ts.URL+"/v1/pmc/rider-1", loadRequest{Date: "2024-04-03", Load: 60})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var update analysis.PMCUpdate
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&update))
	assert.Len(t, update.Appended, 2)

	resp = postJSON(t, ts.URL+"/v1/pmc/rider-1", loadRequest{Date: "2024-03-01", Load: 60})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode, "past dates are rejected")

	hist, err := http.Get(ts.URL + "/v1/pmc/rider-1?from=2024-04-02")
	require.NoError(t, err)
	defer hist.Body.Close()
	require.Equal(t, http.StatusOK, hist.StatusCode)
	var body struct {
		AthleteID string              `json:"athlete_id"`
		States    []analysis.PMCState `json:"states"`
	}
	require.NoError(t, json.NewDecoder(hist.Body).Decode(&body))
	assert.Equal(t, "rider-1", body.AthleteID)
	assert.Len(t, body.States, 2)

	resp = postJSON(t, ts.URL+"/v1/pmc/rider-1/replay", struct{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	bad, err := http.Get(ts.URL + "/v1/pmc/rider-1?from=April")
	require.NoError(t, err)
	defer bad.Body.Close()
	assert.Equal(t, http.StatusBadRequest, bad.StatusCode)
}

func TestPMCEndpoints_NoStore(t *testing.T) {
	ts := newTestServer(t, false)

	for _, path := range []string{"/v1/pmc/rider-1", "/v1/pmc/rider-1/performance"} {
		resp, err := http.Get(ts.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode, path)
	}
}

func TestPMCPerformance(t *testing.T) {
	ts := newTestServer(t, true)

	get := func() []analysis.PerformanceState {
		resp, err := http.Get(ts.URL + "/v1/pmc/rider-1/performance")
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var body struct {
			AthleteID string                      `json:"athlete_id"`
			States    []analysis.PerformanceState `json:"states"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "rider-1", body.AthleteID)
		require.NotNil(t, body.States, "an empty model is an empty list")
		return body.States
	}

	assert.Empty(t, get())

	resp := postJSON(t, ts.URL+"/v1/pmc/rider-1", loadRequest{Date: "2024-04-01", Load: 80})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp = postJSON(t, ts.URL+"/v1/pmc/rider-1", loadRequest{Date: "2024-04-03", Load: 60})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	states := get()
	require.Len(t, states, 3)
	assert.Equal(t, 60.0, states[2].Load)
	assert.InDelta(t, states[2].Fitness-states[2].Fatigue, states[2].Performance, 1e-9)
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, false)
	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	degraded := newTestServer(t, false, WithHealthCheck(failingPinger{}))
	resp2, err := http.Get(degraded.URL + "/healthz")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp2.StatusCode)
}

func TestMetricsEndpoint(t *testing.T) {
	ts := newTestServer(t, false)
	postJSON(t, ts.URL+"/v1/analyze", powerPayload(60))

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "velolab_http_requests_total")
	assert.Contains(t, string(body), "velolab_module_runs_total")
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrEmptyPayload, http.StatusBadRequest},
		{&analysis.InvalidInputError{Module: "pmc", Field: "load", Index: -1}, http.StatusBadRequest},
		{&analysis.InsufficientDataError{Module: "dfa"}, http.StatusUnprocessableEntity},
		{&analysis.FitQualityError{Module: "critical_power"}, http.StatusUnprocessableEntity},
		{service.ErrTimeout, http.StatusGatewayTimeout},
		{service.ErrNoStore, http.StatusServiceUnavailable},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
