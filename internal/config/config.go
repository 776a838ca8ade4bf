// Package config loads weather-sync settings from an optional file, a .env
// file and WEATHERSYNC_* environment variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kkyr/fig"
)

const envPrefix = "WEATHERSYNC"

// Host input modes.
const (
	InputGPIO  = "gpio"
	InputFixed = "fixed"
)

// Data source kinds.
const (
	SourceOpenMeteo = "openmeteo"
	SourceStatic    = "static"
)

// LogLevel is a slog level read from a name ("debug", "WARN+2") or a
// number ("-4").
type LogLevel slog.Level

// UnmarshalString implements fig.StringUnmarshaler.
func (l *LogLevel) UnmarshalString(s string) error {
	if n, err := strconv.Atoi(s); err == nil {
		*l = LogLevel(n)
		return nil
	}
	var lv slog.Level
	if err := lv.UnmarshalText([]byte(s)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", s, err)
	}
	*l = LogLevel(lv)
	return nil
}

// Level returns the level as a slog.Level.
func (l LogLevel) Level() slog.Level { return slog.Level(l) }

// Config is the settings tree shared by all binaries. Each binary reads
// the sections it needs.
type Config struct {
	// Allowed values: metric, imperial
	Units    string   `fig:"units" default:"metric"`
	LogLevel LogLevel `fig:"loglevel" default:"info"`

	Broker struct {
		URL      string `fig:"url" default:"tcp://localhost:1883"`
		Prefix   string `fig:"prefix" default:"sunshine"`
		ClientID string `fig:"client_id" default:"weather-sync"`
	} `fig:"broker"`

	Channel struct {
		// Empty means a fresh ULID per process.
		Node                     string        `fig:"node"`
		ConnectTimeout           time.Duration `fig:"connect_timeout" default:"500ms"`
		DeliveryTimeout          time.Duration `fig:"delivery_timeout" default:"5s"`
		SubscriberConnectTimeout time.Duration `fig:"subscriber_connect_timeout" default:"10s"`
		FetchTimeout             time.Duration `fig:"fetch_timeout" default:"5s"`
		RetainedWait             time.Duration `fig:"retained_wait" default:"250ms"`
	} `fig:"channel"`

	Sync struct {
		Interval time.Duration `fig:"interval" default:"15m"`
		// Rows older than this are treated as missing.
		MaxAge time.Duration `fig:"max_age" default:"3h"`
	} `fig:"sync"`

	Location struct {
		Name      string  `fig:"name" default:"home"`
		Latitude  float64 `fig:"latitude"`
		Longitude float64 `fig:"longitude"`
		// Allowed values: openmeteo, static
		Source string `fig:"source" default:"openmeteo"`
		Static struct {
			ConditionID int     `fig:"condition_id" default:"800"`
			High        float64 `fig:"high"`
			Low         float64 `fig:"low"`
		} `fig:"static"`
	} `fig:"location"`

	Face struct {
		Use12Hour     bool          `fig:"use_12_hour"`
		Round         bool          `fig:"round"`
		LowBitAmbient bool          `fig:"low_bit_ambient"`
		Period        time.Duration `fig:"period" default:"1s"`
		Timezone      string        `fig:"timezone"`
		// Text output of every frame on stdout.
		Text     bool `fig:"text"`
		TextCols int  `fig:"text_cols" default:"32"`
		TextRows int  `fig:"text_rows" default:"10"`
	} `fig:"face"`

	GPIO struct {
		// Allowed values: gpio, fixed
		Input       string        `fig:"input" default:"gpio"`
		Chip        string        `fig:"chip" default:"gpiochip0"`
		PinDisplay  int           `fig:"pin_display" default:"26"`
		PinLowPower int           `fig:"pin_low_power" default:"16"`
		Poll        time.Duration `fig:"poll" default:"100ms"`
		Debounce    time.Duration `fig:"debounce" default:"250ms"`
		Heartbeat   time.Duration `fig:"heartbeat" default:"15m"`
		// Signal levels used when input is fixed. The display is on unless
		// fixed_display_off is set.
		FixedDisplayOff bool `fig:"fixed_display_off"`
		FixedLowPower   bool `fig:"fixed_low_power"`
	} `fig:"gpio"`

	HTTP struct {
		Port string `fig:"port" default:":8080"`
	} `fig:"http"`
}

// Load reads .env (if present), then the config file at path (if path is
// not empty), then the environment, and validates the result.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	conf := new(Config)
	opts := []fig.Option{fig.UseEnv(envPrefix)}
	if path != "" {
		opts = append(opts, fig.Dirs(filepath.Dir(path)), fig.File(filepath.Base(path)))
	} else {
		opts = append(opts, fig.AllowNoFile())
	}
	if err := fig.Load(conf, opts...); err != nil {
		return conf, fmt.Errorf("failed to load config: %w", err)
	}
	return conf, conf.Validate()
}

// Validate checks values fig cannot check on its own.
func (c *Config) Validate() error {
	if c.Units != "metric" && c.Units != "imperial" {
		return fmt.Errorf("invalid units: %s", c.Units)
	}
	for name, d := range map[string]time.Duration{
		"channel.connect_timeout":            c.Channel.ConnectTimeout,
		"channel.delivery_timeout":           c.Channel.DeliveryTimeout,
		"channel.subscriber_connect_timeout": c.Channel.SubscriberConnectTimeout,
		"channel.fetch_timeout":              c.Channel.FetchTimeout,
		"sync.interval":                      c.Sync.Interval,
		"face.period":                        c.Face.Period,
		"gpio.poll":                          c.GPIO.Poll,
	} {
		if d <= 0 {
			return fmt.Errorf("invalid %s: %v", name, d)
		}
	}
	if c.GPIO.Debounce < 0 {
		return fmt.Errorf("invalid gpio.debounce: %v", c.GPIO.Debounce)
	}
	switch c.GPIO.Input {
	case InputGPIO, InputFixed:
	default:
		return fmt.Errorf("invalid gpio input: %s", c.GPIO.Input)
	}
	switch c.Location.Source {
	case SourceOpenMeteo, SourceStatic:
	default:
		return fmt.Errorf("invalid location source: %s", c.Location.Source)
	}
	if c.Location.Latitude < -90 || c.Location.Latitude > 90 {
		return fmt.Errorf("invalid latitude: %v", c.Location.Latitude)
	}
	if c.Location.Longitude < -180 || c.Location.Longitude > 180 {
		return fmt.Errorf("invalid longitude: %v", c.Location.Longitude)
	}
	if c.Face.Timezone != "" {
		if _, err := time.LoadLocation(c.Face.Timezone); err != nil {
			return fmt.Errorf("invalid face timezone: %w", err)
		}
	}
	return nil
}

// Zone returns the face time zone: the configured one, or local time.
func (c *Config) Zone() *time.Location {
	if c.Face.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(c.Face.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}
