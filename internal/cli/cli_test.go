package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"velolab/internal/analysis"
	"velolab/internal/config"
	"velolab/internal/fitfile"
	"velolab/internal/service"
)

// writeConfig writes a config whose store lives in a temp dir
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	c := config.DefaultConfig()
	c.Athlete.ID = "rider-1"
	c.Store.Path = filepath.Join(dir, "velolab.db")
	c.FIT.OutputDir = dir
	c.Display.Charts = false
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Save(&c, path))
	return path
}

func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, c := range cmd.Commands() {
		resetFlags(c)
	}
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Contains(t, out, "velolab dev")
}

func TestMissingConfigFile(t *testing.T) {
	_, err := execute(t, "", "--config", filepath.Join(t.TempDir(), "nope.yaml"), "pmc", "show")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading config")
}

func TestPMCCommands(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := execute(t, "", "--config", cfgPath, "pmc", "add", "2024-05-01", "100")
	require.NoError(t, err)
	assert.Contains(t, out, "Training Load")

	out, err = execute(t, "", "--config", cfgPath, "pmc", "add", "2024-05-03", "60")
	require.NoError(t, err)
	assert.Contains(t, out, "Backfilled 1 days without load")

	_, err = execute(t, "", "--config", cfgPath, "pmc", "add", "2024-04-20", "60")
	require.Error(t, err, "dates before the chart's last day are rejected")

	_, err = execute(t, "", "--config", cfgPath, "pmc", "add", "yesterday", "60")
	require.Error(t, err)

	out, err = execute(t, "", "--config", cfgPath, "pmc", "show", "--json")
	require.NoError(t, err)
	var shown struct {
		States []analysis.PMCState `json:"states"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	require.Len(t, shown.States, 3)
	assert.Equal(t, 0.0, shown.States[1].Load)
	assert.Equal(t, 60.0, shown.States[2].Load)

	out, err = execute(t, "", "--config", cfgPath, "pmc", "show", "--from", "2024-05-02")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-05-03")
	assert.NotContains(t, out, "2024-05-01")

	out, err = execute(t, "", "--config", cfgPath, "pmc", "replay")
	require.NoError(t, err)
	assert.Contains(t, out, "Replayed 3 days")

	out, err = execute(t, "", "--config", cfgPath, "pmc", "replay", "--athlete", "someone-else")
	require.NoError(t, err)
	assert.Contains(t, out, "nothing to replay")
}

func TestPMCPerformance(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := execute(t, "", "--config", cfgPath, "pmc", "performance")
	require.NoError(t, err)
	assert.Contains(t, out, "No training load recorded yet.")

	_, err = execute(t, "", "--config", cfgPath, "pmc", "add", "2024-05-01", "80")
	require.NoError(t, err)
	_, err = execute(t, "", "--config", cfgPath, "pmc", "add", "2024-05-04", "40")
	require.NoError(t, err)

	out, err = execute(t, "", "--config", cfgPath, "pmc", "performance", "--json")
	require.NoError(t, err)
	var model struct {
		States []analysis.PerformanceState `json:"states"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &model))
	require.Len(t, model.States, 4)
	assert.Equal(t, 80.0, model.States[0].Load)
	assert.Less(t, model.States[0].Performance, 0.0, "fatigue outweighs fitness right after a load")

	out, err = execute(t, "", "--config", cfgPath, "pmc", "performance")
	require.NoError(t, err)
	assert.Contains(t, out, "Performance Model")
	assert.Contains(t, out, "2024-05-04")
}

func powerPayload(n int, watts float64) string {
	samples := make([]analysis.PowerSample, n)
	for i := range samples {
		samples[i] = analysis.PowerSample{Timestamp: float64(i), Watts: watts + float64(i%5)}
	}
	data, _ := json.Marshal(service.Payload{PowerData: samples, Date: "2024-05-01"})
	return string(data)
}

func TestAnalyzeFromStdin(t *testing.T) {
	cfgPath := writeConfig(t)

	out, err := execute(t, powerPayload(1800, 200), "--config", cfgPath, "analyze", "-", "--json", "--no-store")
	require.NoError(t, err)

	var res service.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.NotNil(t, res.Power)
	assert.InDelta(t, 202, res.Power.AveragePower, 1)
	assert.Equal(t, "rider-1", res.AthleteID)
	assert.Nil(t, res.PMC, "no store, no load")
}

func TestAnalyzeRecordsLoad(t *testing.T) {
	cfgPath := writeConfig(t)
	payload := filepath.Join(t.TempDir(), "ride.json")
	require.NoError(t, os.WriteFile(payload, []byte(powerPayload(3600, 250)), 0644))

	out, err := execute(t, "", "--config", cfgPath, "analyze", payload)
	require.NoError(t, err)
	assert.Contains(t, out, "Normalized Power")
	assert.Contains(t, out, "Training Load")

	out, err = execute(t, "", "--config", cfgPath, "pmc", "show", "--json")
	require.NoError(t, err)
	var shown struct {
		States []analysis.PMCState `json:"states"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	require.Len(t, shown.States, 1)
	// An hour just above FTP
	assert.InDelta(t, 100, shown.States[0].Load, 5)
}

func TestFITCommand(t *testing.T) {
	cfgPath := writeConfig(t)
	outDir := t.TempDir()
	activity := `{"start_time":"2024-05-01T07:00:00Z","samples":[
		{"timestamp":"2024-05-01T07:00:00Z","power":200,"hr":120},
		{"timestamp":"2024-05-01T07:00:01Z","power":210,"hr":121}]}`

	out, err := execute(t, activity, "--config", cfgPath, "fit", "-", "--mode", "placeholder", "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "placeholder generator")
	assert.Contains(t, out, "Placeholder output")

	files, err := filepath.Glob(filepath.Join(outDir, "*.fit"))
	require.NoError(t, err)
	require.Len(t, files, 1)
	data, err := os.ReadFile(files[0])
	require.NoError(t, err)
	assert.True(t, fitfile.IsPlaceholder(data))
}

func TestExportCommands(t *testing.T) {
	cfgPath := writeConfig(t)
	dir := t.TempDir()

	_, err := execute(t, "", "--config", cfgPath, "export", "pmc", "-o", filepath.Join(dir, "pmc.parquet"))
	require.Error(t, err, "empty chart")

	_, err = execute(t, "", "--config", cfgPath, "pmc", "add", "2024-05-01", "80")
	require.NoError(t, err)

	out, err := execute(t, "", "--config", cfgPath, "export", "pmc", "-o", filepath.Join(dir, "pmc.parquet"))
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 1 days")
	assert.FileExists(t, filepath.Join(dir, "pmc.parquet"))

	out, err = execute(t, powerPayload(120, 180), "--config", cfgPath, "export", "series", "power", "-", "-o", filepath.Join(dir, "power.parquet"))
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote 120 samples")

	_, err = execute(t, "{}", "--config", cfgPath, "export", "series", "cadence", "-", "-o", filepath.Join(dir, "x.parquet"))
	require.ErrorContains(t, err, "unknown signal")

	_, err = execute(t, "", "--config", cfgPath, "export", "pmc")
	require.Error(t, err, "--out is required")
}

func TestStravaRequiresLink(t *testing.T) {
	dir := t.TempDir()
	c := config.DefaultConfig()
	c.Athlete.ID = "rider-1"
	c.Store.Path = filepath.Join(dir, "velolab.db")
	c.Strava.ClientID = "12345"
	c.Strava.ClientSecret = "secret"
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, config.Save(&c, cfgPath))

	_, err := execute(t, "", "--config", cfgPath, "strava", "activities")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "velolab strava login")

	out, err := execute(t, "", "--config", cfgPath, "strava", "logout")
	require.NoError(t, err, "logging out without a link is harmless")
	assert.Contains(t, out, "rider-1")
}
