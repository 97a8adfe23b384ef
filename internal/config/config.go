package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"velolab/internal/analysis"
)

// Config represents the application configuration
type Config struct {
	Athlete  AthleteConfig   `mapstructure:"athlete" json:"athlete"`
	Analysis analysis.Config `mapstructure:"analysis" json:"analysis"`
	Server   ServerConfig    `mapstructure:"server" json:"server"`
	Store    StoreConfig     `mapstructure:"store" json:"store"`
	Cache    CacheConfig     `mapstructure:"cache" json:"cache"`
	FIT      FITConfig       `mapstructure:"fit" json:"fit"`
	Strava   StravaConfig    `mapstructure:"strava" json:"strava"`
	Display  DisplayConfig   `mapstructure:"display" json:"display"`
}

// AthleteConfig holds athlete-specific settings
type AthleteConfig struct {
	ID        string  `mapstructure:"id" json:"id"`
	RestingHR float64 `mapstructure:"resting_hr" json:"resting_hr"`
	MaxHR     float64 `mapstructure:"max_hr" json:"max_hr"`
	FTP       float64 `mapstructure:"ftp" json:"ftp"`
	WeightKg  float64 `mapstructure:"weight_kg" json:"weight_kg"`

	// Body composition for the metabolic profile
	HeightCm       float64 `mapstructure:"height_cm" json:"height_cm"`
	Age            int     `mapstructure:"age" json:"age"`
	Sex            string  `mapstructure:"sex" json:"sex"`
	BodyFatPercent float64 `mapstructure:"body_fat_pct" json:"body_fat_pct"`
	Somatotype     string  `mapstructure:"somatotype" json:"somatotype"`
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Addr           string        `mapstructure:"addr" json:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" json:"request_timeout"`
	MaxBodyBytes   int64         `mapstructure:"max_body_bytes" json:"max_body_bytes"`
}

// StoreConfig holds the PMC database location. An empty path means
// ~/.velolab/velolab.db.
type StoreConfig struct {
	Path string `mapstructure:"path" json:"path"`
}

// CacheConfig holds the optional Redis result cache settings
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled" json:"enabled"`
	Addr     string        `mapstructure:"addr" json:"addr"`
	Password string        `mapstructure:"password" json:"password"`
	DB       int           `mapstructure:"db" json:"db"`
	TTL      time.Duration `mapstructure:"ttl" json:"ttl"`
}

// FIT generator modes
const (
	FITModeAuto        = "auto"
	FITModeNative      = "native"
	FITModePlaceholder = "placeholder"
)

// FITConfig controls activity file generation
type FITConfig struct {
	Mode      string `mapstructure:"mode" json:"mode"`
	OutputDir string `mapstructure:"output_dir" json:"output_dir"`
}

// StravaConfig holds Strava API credentials
type StravaConfig struct {
	ClientID     string `mapstructure:"client_id" json:"client_id"`
	ClientSecret string `mapstructure:"client_secret" json:"client_secret"`
}

// DisplayConfig holds display preferences
type DisplayConfig struct {
	PowerUnit string `mapstructure:"power_unit" json:"power_unit"`
	Charts    bool   `mapstructure:"charts" json:"charts"`
}

// ErrNoConfig is returned when the config file doesn't exist
var ErrNoConfig = errors.New("config file not found")

// EnvPrefix is prepended to environment overrides, e.g. VELOLAB_SERVER_ADDR
const EnvPrefix = "VELOLAB"

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Athlete: AthleteConfig{
			ID:        "default",
			RestingHR: 50,
			MaxHR:     185,
			FTP:       250,

			HeightCm:       175,
			Age:            30,
			Sex:            "male",
			BodyFatPercent: 15,
			Somatotype:     analysis.SomatotypeMesomorph,
		},
		Analysis: analysis.DefaultConfig(),
		Server: ServerConfig{
			Addr:           ":8080",
			RequestTimeout: 30 * time.Second,
			MaxBodyBytes:   32 << 20,
		},
		Cache: CacheConfig{
			Addr: "localhost:6379",
			TTL:  24 * time.Hour,
		},
		FIT: FITConfig{
			Mode:      FITModeAuto,
			OutputDir: ".",
		},
		Display: DisplayConfig{
			PowerUnit: "W",
			Charts:    true,
		},
	}
}

// envKeys are the settings most often overridden from the environment.
// Viper only resolves AutomaticEnv for keys it already knows about.
var envKeys = []string{
	"athlete.id", "athlete.ftp", "athlete.weight_kg",
	"server.addr", "server.request_timeout",
	"store.path",
	"cache.enabled", "cache.addr", "cache.password", "cache.db", "cache.ttl",
	"fit.mode", "fit.output_dir",
	"strava.client_id", "strava.client_secret",
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}
	return v
}

// Load reads the configuration from path, or from ~/.velolab/config.yaml when
// path is empty. Values missing from the file keep their defaults and
// VELOLAB_* environment variables take precedence over both.
func Load(path string) (*Config, error) {
	v := newViper()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		dir, err := GetConfigDir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNoConfig
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return decode(v)
}

// FromEnv builds a configuration from defaults and environment overrides only
func FromEnv() (*Config, error) {
	return decode(newViper())
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()
	// Lists replace the defaults rather than merging element-wise
	if v.IsSet("analysis.cp.durations") {
		cfg.Analysis.CP.Durations = nil
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	// The athlete's FTP drives intensity and stress scores
	if cfg.Athlete.FTP > 0 {
		cfg.Analysis.NP.FTP = cfg.Athlete.FTP
	}
	if cfg.FIT.Mode == "" {
		cfg.FIT.Mode = FITModeAuto
	}
	return &cfg, nil
}

// Save writes the configuration to path. The format follows the extension.
func Save(cfg *Config, path string) error {
	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	v := viper.New()
	v.SetConfigType("json")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return os.Chmod(path, 0600)
}

// CreateExample writes a default config to ~/.velolab/config.yaml if none exists
func CreateExample() (string, error) {
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, "config.yaml")

	if _, err := os.Stat(path); err == nil {
		return path, nil // Config exists, don't overwrite
	}

	example := DefaultConfig()
	example.Strava = StravaConfig{
		ClientID:     "YOUR_CLIENT_ID",
		ClientSecret: "YOUR_CLIENT_SECRET",
	}
	return path, Save(&example, path)
}

// Validate checks that the config is usable
func (c *Config) Validate() error {
	if c.Athlete.ID == "" {
		return errors.New("athlete.id is required")
	}
	if c.Athlete.MaxHR > 0 && c.Athlete.RestingHR >= c.Athlete.MaxHR {
		return fmt.Errorf("athlete.resting_hr (%v) must be less than athlete.max_hr (%v)", c.Athlete.RestingHR, c.Athlete.MaxHR)
	}
	if c.Athlete.FTP < 0 {
		return fmt.Errorf("athlete.ftp must not be negative, got %v", c.Athlete.FTP)
	}
	if c.Athlete.BodyFatPercent < 0 || c.Athlete.BodyFatPercent >= 100 {
		return fmt.Errorf("athlete.body_fat_pct must be within [0, 100), got %v", c.Athlete.BodyFatPercent)
	}
	switch strings.ToLower(c.Athlete.Somatotype) {
	case "", analysis.SomatotypeEctomorph, analysis.SomatotypeMesomorph, analysis.SomatotypeEndomorph:
	default:
		return fmt.Errorf("athlete.somatotype must be ectomorph, mesomorph or endomorph, got %q", c.Athlete.Somatotype)
	}

	if err := c.Analysis.Validate(); err != nil {
		return err
	}

	switch c.FIT.Mode {
	case FITModeAuto, FITModeNative, FITModePlaceholder:
	default:
		return fmt.Errorf("fit.mode must be %q, %q or %q, got %q", FITModeAuto, FITModeNative, FITModePlaceholder, c.FIT.Mode)
	}

	if c.Cache.Enabled && c.Cache.Addr == "" {
		return errors.New("cache.addr is required when cache.enabled is set")
	}
	if c.Server.RequestTimeout < 0 {
		return fmt.Errorf("server.request_timeout must not be negative, got %v", c.Server.RequestTimeout)
	}

	if c.Display.PowerUnit != "" && c.Display.PowerUnit != "W" && c.Display.PowerUnit != "W/kg" {
		return fmt.Errorf("display.power_unit must be \"W\" or \"W/kg\", got %q", c.Display.PowerUnit)
	}
	if c.Display.PowerUnit == "W/kg" && c.Athlete.WeightKg <= 0 {
		return errors.New("athlete.weight_kg is required for display.power_unit \"W/kg\"")
	}

	return nil
}

// ValidateStrava checks the Strava credentials needed for stream import
func (c *Config) ValidateStrava() error {
	if c.Strava.ClientID == "" || c.Strava.ClientID == "YOUR_CLIENT_ID" {
		return errors.New("strava.client_id is required - get it from https://www.strava.com/settings/api")
	}
	if c.Strava.ClientSecret == "" || c.Strava.ClientSecret == "YOUR_CLIENT_SECRET" {
		return errors.New("strava.client_secret is required - get it from https://www.strava.com/settings/api")
	}
	return nil
}

// StorePath returns the configured database path or the default location
func (c *Config) StorePath() (string, error) {
	if c.Store.Path != "" {
		return c.Store.Path, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "velolab.db"), nil
}

// GetConfigDir returns the path to the config directory
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".velolab"), nil
}
