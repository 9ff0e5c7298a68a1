// Package config loads the scheduler settings file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/kiosk-sleep/internal/logic"
)

// Defaults applied to fields the settings file leaves out.
const (
	DefaultPollInterval  = 30 * time.Second
	DefaultBrightness    = 100
	DefaultDimBrightness = 10

	DefaultGestureTaps    = 5
	DefaultGestureTimeout = 1500 * time.Millisecond
	DefaultButtonTaps     = 3
	DefaultButtonTimeout  = 2000 * time.Millisecond

	minPollInterval = time.Second
)

// File is the on-disk settings document.
type File struct {
	Enabled       *bool         `yaml:"enabled,omitempty"`
	WakeOnTouch   *bool         `yaml:"wake_on_touch,omitempty"`
	PollInterval  time.Duration `yaml:"poll_interval,omitempty"`
	Display       DisplayConfig `yaml:"display,omitempty"`
	Idle          IdleConfig    `yaml:"idle,omitempty"`
	Gesture       GestureConfig `yaml:"gesture,omitempty"`
	ButtonGesture GestureConfig `yaml:"button_gesture,omitempty"`
	Rules         []RuleConfig  `yaml:"rules"`
}

// DisplayConfig sets the awake brightness.
type DisplayConfig struct {
	Brightness int `yaml:"brightness,omitempty"` // percent, restored on wake
}

// IdleConfig configures the inactivity dim. A zero DimAfter disables it.
type IdleConfig struct {
	DimAfter      time.Duration `yaml:"dim_after,omitempty"`
	DimBrightness *int          `yaml:"dim_brightness,omitempty"`
}

// GestureConfig configures an N-tap recognizer.
type GestureConfig struct {
	Taps    int           `yaml:"taps,omitempty"`
	Timeout time.Duration `yaml:"timeout,omitempty"`
	Radius  float64       `yaml:"radius,omitempty"`
}

// RuleConfig is a schedule rule as written in the settings file.
type RuleConfig struct {
	ID      string `yaml:"id,omitempty"`
	Enabled *bool  `yaml:"enabled,omitempty"`
	Days    []Day  `yaml:"days"`
	Sleep   string `yaml:"sleep"`
	Wake    string `yaml:"wake"`
}

// Day is a weekday, 0 = Sunday. In YAML it may be a number or a name
// ("mon", "Monday").
type Day int

var dayNames = map[string]Day{
	"sun": 0, "sunday": 0,
	"mon": 1, "monday": 1,
	"tue": 2, "tuesday": 2,
	"wed": 3, "wednesday": 3,
	"thu": 4, "thursday": 4,
	"fri": 5, "friday": 5,
	"sat": 6, "saturday": 6,
}

// UnmarshalYAML accepts a weekday number or name.
func (d *Day) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: day must be a scalar", value.Line)
	}
	if n, err := strconv.Atoi(value.Value); err == nil {
		*d = Day(n)
		return nil
	}
	if v, ok := dayNames[strings.ToLower(value.Value)]; ok {
		*d = v
		return nil
	}
	return fmt.Errorf("line %d: unknown day %q", value.Line, value.Value)
}

// Config is the validated scheduler configuration.
type Config struct {
	Enabled       bool
	WakeOnTouch   bool
	PollInterval  time.Duration
	Brightness    int
	DimAfter      time.Duration
	DimBrightness int
	Gesture       logic.TapConfig
	ButtonGesture logic.TapConfig
	Rules         []logic.ScheduleRule
}

// Load reads, expands and validates the settings file at path.
// Environment variables in the file (${VAR}) are expanded before parsing.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	cfg, err := Parse([]byte(os.ExpandEnv(string(data))))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a settings document and validates it.
func Parse(data []byte) (*Config, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return f.Resolve()
}

// Resolve applies defaults and validates the document.
func (f File) Resolve() (*Config, error) {
	cfg := &Config{
		Enabled:       boolOr(f.Enabled, true),
		WakeOnTouch:   boolOr(f.WakeOnTouch, true),
		PollInterval:  f.PollInterval,
		Brightness:    f.Display.Brightness,
		DimAfter:      f.Idle.DimAfter,
		DimBrightness: DefaultDimBrightness,
		Gesture:       tapConfig(f.Gesture, DefaultGestureTaps, DefaultGestureTimeout),
		ButtonGesture: tapConfig(f.ButtonGesture, DefaultButtonTaps, DefaultButtonTimeout),
	}
	if cfg.PollInterval == 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Brightness == 0 {
		cfg.Brightness = DefaultBrightness
	}
	if f.Idle.DimBrightness != nil {
		cfg.DimBrightness = *f.Idle.DimBrightness
	}

	if cfg.PollInterval < minPollInterval {
		return nil, fmt.Errorf("poll_interval %v is below %v", cfg.PollInterval, minPollInterval)
	}
	if cfg.Brightness < 1 || cfg.Brightness > 100 {
		return nil, fmt.Errorf("display.brightness %d out of range 1..100", cfg.Brightness)
	}
	if cfg.DimBrightness < 0 || cfg.DimBrightness > 100 {
		return nil, fmt.Errorf("idle.dim_brightness %d out of range 0..100", cfg.DimBrightness)
	}
	if cfg.DimAfter < 0 {
		return nil, fmt.Errorf("idle.dim_after must not be negative")
	}
	if err := cfg.Gesture.Validate(); err != nil {
		return nil, fmt.Errorf("gesture: %w", err)
	}
	if err := cfg.ButtonGesture.Validate(); err != nil {
		return nil, fmt.Errorf("button_gesture: %w", err)
	}

	for i, rc := range f.Rules {
		id := rc.ID
		if id == "" {
			id = fmt.Sprintf("rule-%d", i+1)
		}
		days := make([]int, len(rc.Days))
		for j, d := range rc.Days {
			days[j] = int(d)
		}
		r, err := logic.NewRule(id, boolOr(rc.Enabled, true), days, rc.Sleep, rc.Wake)
		if err != nil {
			return nil, err
		}
		cfg.Rules = append(cfg.Rules, r)
	}
	if err := logic.ValidateRules(cfg.Rules); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadDotEnv loads variables from the first existing .env file. Existing
// process environment variables are not overwritten. A missing file is not
// an error.
func LoadDotEnv(paths ...string) (string, error) {
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return "", fmt.Errorf("load %s: %w", p, err)
		}
		return p, nil
	}
	return "", nil
}

func boolOr(p *bool, def bool) bool {
	if p == nil {
		return def
	}
	return *p
}

func tapConfig(g GestureConfig, taps int, timeout time.Duration) logic.TapConfig {
	tc := logic.TapConfig{Taps: g.Taps, Timeout: g.Timeout, Radius: g.Radius}
	if tc.Taps == 0 {
		tc.Taps = taps
	}
	if tc.Timeout == 0 {
		tc.Timeout = timeout
	}
	if tc.Radius == 0 {
		tc.Radius = logic.DefaultTapRadius
	}
	return tc
}
