// Package config handles configuration loading and validation for gazekeys.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"

	"github.com/ayusman/gazekeys/internal/blink"
	"github.com/ayusman/gazekeys/internal/dwell"
	"github.com/ayusman/gazekeys/internal/suggest"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GAZEKEYS_"

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("invalid configuration")

// Config is the full application configuration.
type Config struct {
	LogLevel string         `toml:"log_level" env:"LOG_LEVEL"`
	Camera   CameraConfig   `toml:"camera" envPrefix:"CAMERA_"`
	Detector DetectorConfig `toml:"detector" envPrefix:"DETECTOR_"`
	Tuning   Tuning         `toml:"tuning" envPrefix:"TUNING_"`
	Suggest  SuggestConfig  `toml:"suggest" envPrefix:"SUGGEST_"`
	Screen   ScreenConfig   `toml:"screen" envPrefix:"SCREEN_"`
	Store    StoreConfig    `toml:"store" envPrefix:"STORE_"`
	Server   ServerConfig   `toml:"server" envPrefix:"SERVER_"`
	Tray     TrayConfig     `toml:"tray" envPrefix:"TRAY_"`
	Output   OutputConfig   `toml:"output" envPrefix:"OUTPUT_"`

	// Source is the file the configuration was read from, or "defaults".
	Source string `toml:"-"`
}

// CameraConfig selects and sizes the capture device.
type CameraConfig struct {
	DeviceID int  `toml:"device_id" env:"DEVICE_ID"`
	Width    int  `toml:"width" env:"WIDTH"`
	Height   int  `toml:"height" env:"HEIGHT"`
	FPS      int  `toml:"fps" env:"FPS"`
	Mirror   bool `toml:"mirror" env:"MIRROR"`
}

// DetectorConfig configures the face mesh service.
type DetectorConfig struct {
	ScriptPath      string  `toml:"script_path" env:"SCRIPT_PATH"`
	MinConfidence   float64 `toml:"min_confidence" env:"MIN_CONFIDENCE"`
	MinTrackingConf float64 `toml:"min_tracking_confidence" env:"MIN_TRACKING_CONFIDENCE"`
	NumPoints       int     `toml:"num_points" env:"NUM_POINTS"`
}

// Tuning holds the gaze-to-intent thresholds. These may change at runtime.
type Tuning struct {
	// Smoothing is the gaze EMA weight of the newest sample; 1 disables it.
	Smoothing      float64       `toml:"gaze_smoothing" env:"GAZE_SMOOTHING"`
	BlinkThreshold float64       `toml:"blink_ratio_threshold" env:"BLINK_RATIO_THRESHOLD"`
	BlinkWindow    int           `toml:"blink_window" env:"BLINK_WINDOW"`
	BlinkMajority  int           `toml:"blink_majority" env:"BLINK_MAJORITY"`
	Dwell          time.Duration `toml:"dwell" env:"DWELL"`
}

// Blink converts the tuning into a blink detector configuration.
func (t Tuning) Blink() blink.Config {
	return blink.Config{
		RatioThreshold: t.BlinkThreshold,
		Window:         t.BlinkWindow,
		Majority:       t.BlinkMajority,
	}
}

// SuggestConfig locates the word list.
type SuggestConfig struct {
	WordsPath string `toml:"words_path" env:"WORDS_PATH"`
	URL       string `toml:"url" env:"URL"`
	Max       int    `toml:"max" env:"MAX"`
}

// ScreenConfig is used when the cursor sink cannot report the screen size.
type ScreenConfig struct {
	Width  int `toml:"width" env:"WIDTH"`
	Height int `toml:"height" env:"HEIGHT"`
}

// StoreConfig locates the session database.
type StoreConfig struct {
	Path string `toml:"path" env:"PATH"`
}

// ServerConfig controls the local HTTP API.
type ServerConfig struct {
	Enabled bool   `toml:"enabled" env:"ENABLED"`
	Addr    string `toml:"addr" env:"ADDR"`
}

// TrayConfig controls the system tray menu.
type TrayConfig struct {
	Enabled bool `toml:"enabled" env:"ENABLED"`
}

// OutputConfig controls where commits go besides the on-screen buffer.
type OutputConfig struct {
	// Cursor selects the cursor sink: "xdotool" or "none".
	Cursor string `toml:"cursor" env:"CURSOR"`
	// KeystrokePlugin names a plugin that types committed keys. "auto" picks
	// any keystroke plugin; empty disables output.
	KeystrokePlugin string `toml:"keystroke_plugin" env:"KEYSTROKE_PLUGIN"`
	PluginDir       string `toml:"plugin_dir" env:"PLUGIN_DIR"`
}

// DataDir returns the per-user data directory.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".gazekeys"
	}
	return filepath.Join(home, ".gazekeys")
}

// DefaultPath returns the default configuration file path.
func DefaultPath() string {
	return filepath.Join(DataDir(), "config.toml")
}

// Default returns the built-in configuration.
func Default() *Config {
	dir := DataDir()
	return &Config{
		LogLevel: "info",
		Camera: CameraConfig{
			DeviceID: 0,
			Width:    640,
			Height:   480,
			FPS:      30,
			Mirror:   true,
		},
		Detector: DetectorConfig{
			MinConfidence:   0.5,
			MinTrackingConf: 0.5,
			NumPoints:       478,
		},
		Tuning: Tuning{
			Smoothing:      1,
			BlinkThreshold: blink.DefaultRatioThreshold,
			BlinkWindow:    blink.DefaultWindow,
			BlinkMajority:  blink.DefaultMajority,
			Dwell:          dwell.DefaultDuration,
		},
		Suggest: SuggestConfig{
			WordsPath: filepath.Join(dir, "words.txt"),
			URL:       suggest.DefaultWordListURL,
			Max:       suggest.DefaultMax,
		},
		Screen: ScreenConfig{
			Width:  1920,
			Height: 1080,
		},
		Store: StoreConfig{
			Path: filepath.Join(dir, "gazekeys.db"),
		},
		Server: ServerConfig{
			Enabled: false,
			Addr:    "127.0.0.1:8080",
		},
		Output: OutputConfig{
			Cursor:    "xdotool",
			PluginDir: filepath.Join(dir, "plugins"),
		},
		Source: "defaults",
	}
}

// Load reads path over the defaults, applies environment overrides and
// validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	cfg.Source = path
	return cfg, nil
}

// ApplyEnv overrides fields from GAZEKEYS_* environment variables.
func (c *Config) ApplyEnv() error {
	if err := env.ParseWithOptions(c, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Validate checks every section and joins all problems into one error.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Camera.Width > 0 && c.Camera.Height > 0, "camera size %dx%d must be positive", c.Camera.Width, c.Camera.Height)
	check(c.Camera.FPS > 0, "camera fps %d must be positive", c.Camera.FPS)
	check(c.Detector.MinConfidence >= 0 && c.Detector.MinConfidence <= 1, "detector min_confidence %.2f out of [0,1]", c.Detector.MinConfidence)
	check(c.Detector.MinTrackingConf >= 0 && c.Detector.MinTrackingConf <= 1, "detector min_tracking_confidence %.2f out of [0,1]", c.Detector.MinTrackingConf)
	if err := c.Tuning.Validate(); err != nil {
		errs = append(errs, err)
	}
	check(c.Suggest.Max > 0, "suggest max %d must be positive", c.Suggest.Max)
	check(c.Suggest.WordsPath != "", "suggest words_path is required")
	check(c.Screen.Width > 0 && c.Screen.Height > 0, "screen size %dx%d must be positive", c.Screen.Width, c.Screen.Height)
	check(c.Store.Path != "", "store path is required")
	check(!c.Server.Enabled || c.Server.Addr != "", "server addr is required when the server is enabled")
	check(c.Output.Cursor == "xdotool" || c.Output.Cursor == "none", "output cursor %q must be xdotool or none", c.Output.Cursor)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}

// Validate checks the runtime thresholds.
func (t Tuning) Validate() error {
	var errs []error
	if t.Smoothing <= 0 || t.Smoothing > 1 {
		errs = append(errs, fmt.Errorf("gaze_smoothing %.2f out of (0,1]", t.Smoothing))
	}
	if t.BlinkThreshold <= 0 {
		errs = append(errs, fmt.Errorf("blink_ratio_threshold %.3f must be positive", t.BlinkThreshold))
	}
	if t.BlinkWindow < 1 {
		errs = append(errs, fmt.Errorf("blink_window %d must be at least 1", t.BlinkWindow))
	}
	if t.BlinkMajority < 0 || t.BlinkMajority >= t.BlinkWindow {
		errs = append(errs, fmt.Errorf("blink_majority %d must be in [0,%d)", t.BlinkMajority, t.BlinkWindow))
	}
	if t.Dwell <= 0 {
		errs = append(errs, fmt.Errorf("dwell %v must be positive", t.Dwell))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalid, errors.Join(errs...))
	}
	return nil
}
