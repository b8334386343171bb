package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/adrg/xdg"
)

// Config holds runtime configuration for sampling, classification, debounce
// and reporting. Loaded once at startup and read-only thereafter; fields may
// be loaded from a JSON file and overridden by environment variables.
type Config struct {
	Debug bool `json:"debug"`

	// Sampling cadence
	SampleIntervalSec float64 `json:"sample_interval_sec"`
	BurstIntervalSec  float64 `json:"burst_interval_sec"`
	CaptureTimeoutSec float64 `json:"capture_timeout_sec"`
	Downscale         float64 `json:"downscale"`

	// Classification thresholds (0-255 luminance, 0-100 fractions)
	BlackThresh uint8   `json:"black_thresh"`
	WhiteThresh uint8   `json:"white_thresh"`
	BlankPctMin float64 `json:"blank_pct_min"`
	WatchPctMin float64 `json:"watch_pct_min"`

	// Debounce policy: "streak" (default) or "window"
	Policy              string  `json:"policy"`
	DebounceClearFrames int     `json:"debounce_clear_frames"`
	WindowSec           float64 `json:"window_sec"`
	WindowConfirmCount  int     `json:"window_confirm_count"`
	WindowCapacity      int     `json:"window_capacity"`

	// Reporting
	LogFile          string  `json:"log_file"`
	Syslog           bool    `json:"syslog"`
	FramesDir        string  `json:"frames_dir"`
	FrameCooldownSec float64 `json:"frame_cooldown_sec"`

	// Startup behaviour when no displays are found
	EnumerateRetries       int     `json:"enumerate_retries"`
	EnumerateRetryDelaySec float64 `json:"enumerate_retry_delay_sec"`
}

// PolicyStreak and PolicyWindow are the accepted Policy values.
const (
	PolicyStreak = "streak"
	PolicyWindow = "window"
)

// DefaultConfig returns a Config populated with standard defaults. The
// thresholds match the historical blankwatch tuning.
func DefaultConfig() *Config {
	return &Config{
		Debug:                  false,
		SampleIntervalSec:      1.0,
		BurstIntervalSec:       0.25,
		CaptureTimeoutSec:      0.8,
		Downscale:              0.5,
		BlackThresh:            15,
		WhiteThresh:            240,
		BlankPctMin:            97.0,
		WatchPctMin:            95.0,
		Policy:                 PolicyStreak,
		DebounceClearFrames:    2,
		WindowSec:              60.0,
		WindowConfirmCount:     2,
		WindowCapacity:         256,
		LogFile:                "/var/log/blankwatch.log",
		Syslog:                 true,
		FramesDir:              "",
		FrameCooldownSec:       60.0,
		EnumerateRetries:       0,
		EnumerateRetryDelaySec: 5.0,
	}
}

// DefaultPath resolves the default config file location under the XDG config
// directory.
func DefaultPath() string {
	path, err := xdg.ConfigFile("blankwatch/config.json")
	if err != nil {
		return "blankwatch.json"
	}
	return path
}

// Validate clamps/normalizes values to safe ranges.
func (c *Config) Validate() error {
	if c.SampleIntervalSec <= 0 {
		c.SampleIntervalSec = 1.0
	}
	if c.BurstIntervalSec <= 0 || c.BurstIntervalSec > c.SampleIntervalSec {
		c.BurstIntervalSec = c.SampleIntervalSec / 4
	}
	if c.CaptureTimeoutSec <= 0 {
		c.CaptureTimeoutSec = 0.8
	}
	if c.Downscale <= 0 || c.Downscale > 1 {
		c.Downscale = 0.5
	}
	if c.BlankPctMin <= 0 || c.BlankPctMin > 100 {
		c.BlankPctMin = 97.0
	}
	if c.WatchPctMin <= 0 || c.WatchPctMin > c.BlankPctMin {
		c.WatchPctMin = c.BlankPctMin - 2
	}
	if c.Policy != PolicyStreak && c.Policy != PolicyWindow {
		c.Policy = PolicyStreak
	}
	if c.DebounceClearFrames < 1 {
		c.DebounceClearFrames = 2
	}
	if c.WindowSec <= 0 {
		c.WindowSec = 60.0
	}
	if c.WindowConfirmCount < 1 {
		c.WindowConfirmCount = 2
	}
	if c.WindowCapacity < c.WindowConfirmCount {
		c.WindowCapacity = 256
	}
	if c.FrameCooldownSec <= 0 {
		c.FrameCooldownSec = 60.0
	}
	if c.EnumerateRetries < 0 {
		c.EnumerateRetries = 0
	}
	if c.EnumerateRetryDelaySec <= 0 {
		c.EnumerateRetryDelaySec = 5.0
	}
	return nil
}

// Load attempts to read configuration from the given JSON file path. If the
// file does not exist it returns DefaultConfig(). On JSON error it returns
// defaults with the error. Environment overrides are applied either way.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.ApplyEnv()
			_ = cfg.Validate()
			return cfg, nil
		}
		return cfg, err
	}
	defer f.Close()
	dec := json.NewDecoder(f)
	if err := dec.Decode(cfg); err != nil {
		return cfg, err
	}
	cfg.ApplyEnv()
	_ = cfg.Validate()
	return cfg, nil
}

// Save writes the configuration to the given path in JSON format.
func (c *Config) Save(path string) error {
	_ = c.Validate()
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(c)
}

// ApplyEnv overrides fields from BLANKWATCH_* environment variables.
func (c *Config) ApplyEnv() {
	c.Debug = envBool("BLANKWATCH_DEBUG", c.Debug)
	c.SampleIntervalSec = envFloat("BLANKWATCH_SAMPLE_INTERVAL_SEC", c.SampleIntervalSec)
	c.BurstIntervalSec = envFloat("BLANKWATCH_BURST_INTERVAL_SEC", c.BurstIntervalSec)
	c.CaptureTimeoutSec = envFloat("BLANKWATCH_CAPTURE_TIMEOUT_SEC", c.CaptureTimeoutSec)
	c.Downscale = envFloat("BLANKWATCH_DOWNSCALE", c.Downscale)
	c.BlankPctMin = envFloat("BLANKWATCH_BLANK_PCT_MIN", c.BlankPctMin)
	c.WatchPctMin = envFloat("BLANKWATCH_WATCH_PCT_MIN", c.WatchPctMin)
	c.Policy = envString("BLANKWATCH_POLICY", c.Policy)
	c.DebounceClearFrames = envInt("BLANKWATCH_DEBOUNCE_CLEAR_FRAMES", c.DebounceClearFrames)
	c.WindowSec = envFloat("BLANKWATCH_WINDOW_SEC", c.WindowSec)
	c.WindowConfirmCount = envInt("BLANKWATCH_WINDOW_CONFIRM_COUNT", c.WindowConfirmCount)
	c.LogFile = envString("BLANKWATCH_LOG_FILE", c.LogFile)
	c.Syslog = envBool("BLANKWATCH_SYSLOG", c.Syslog)
	c.FramesDir = envString("BLANKWATCH_FRAMES_DIR", c.FramesDir)
	c.EnumerateRetries = envInt("BLANKWATCH_ENUMERATE_RETRIES", c.EnumerateRetries)
}

// Duration accessors for the float-seconds fields.

func (c *Config) SampleInterval() time.Duration { return secs(c.SampleIntervalSec) }
func (c *Config) BurstInterval() time.Duration  { return secs(c.BurstIntervalSec) }
func (c *Config) CaptureTimeout() time.Duration { return secs(c.CaptureTimeoutSec) }
func (c *Config) Window() time.Duration         { return secs(c.WindowSec) }
func (c *Config) FrameCooldown() time.Duration  { return secs(c.FrameCooldownSec) }
func (c *Config) EnumerateRetryDelay() time.Duration {
	return secs(c.EnumerateRetryDelaySec)
}

func secs(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1"
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func envFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
