package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	conf, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"units", conf.Units, "metric"},
		{"loglevel", conf.LogLevel.Level(), slog.LevelInfo},
		{"broker url", conf.Broker.URL, "tcp://localhost:1883"},
		{"broker prefix", conf.Broker.Prefix, "sunshine"},
		{"connect timeout", conf.Channel.ConnectTimeout, 500 * time.Millisecond},
		{"delivery timeout", conf.Channel.DeliveryTimeout, 5 * time.Second},
		{"subscriber connect timeout", conf.Channel.SubscriberConnectTimeout, 10 * time.Second},
		{"retained wait", conf.Channel.RetainedWait, 250 * time.Millisecond},
		{"sync interval", conf.Sync.Interval, 15 * time.Minute},
		{"location source", conf.Location.Source, SourceOpenMeteo},
		{"static condition", conf.Location.Static.ConditionID, 800},
		{"face period", conf.Face.Period, time.Second},
		{"gpio input", conf.GPIO.Input, InputGPIO},
		{"pin display", conf.GPIO.PinDisplay, 26},
		{"pin low power", conf.GPIO.PinLowPower, 16},
		{"http port", conf.HTTP.Port, ":8080"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("WEATHERSYNC_BROKER_URL", "tcp://broker:1883")
	t.Setenv("WEATHERSYNC_SYNC_INTERVAL", "5m")
	t.Setenv("WEATHERSYNC_LOCATION_SOURCE", "static")
	t.Setenv("WEATHERSYNC_LOCATION_STATIC_HIGH", "21.5")
	t.Setenv("WEATHERSYNC_FACE_USE_12_HOUR", "true")
	t.Setenv("WEATHERSYNC_LOGLEVEL", "DEBUG")

	conf, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if conf.Broker.URL != "tcp://broker:1883" {
		t.Errorf("Broker.URL: got %q", conf.Broker.URL)
	}
	if conf.Sync.Interval != 5*time.Minute {
		t.Errorf("Sync.Interval: got %v, want 5m", conf.Sync.Interval)
	}
	if conf.Location.Source != SourceStatic || conf.Location.Static.High != 21.5 {
		t.Errorf("Location: got %q high=%v", conf.Location.Source, conf.Location.Static.High)
	}
	if !conf.Face.Use12Hour {
		t.Error("expected Use12Hour=true")
	}
	if conf.LogLevel.Level() != slog.LevelDebug {
		t.Errorf("LogLevel: got %v, want DEBUG", conf.LogLevel.Level())
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weather-sync.yaml")
	data := "broker:\n  prefix: garden\nlocation:\n  latitude: 51.5\n  longitude: -0.12\ngpio:\n  input: fixed\n"
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatal(err)
	}

	conf, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if conf.Broker.Prefix != "garden" {
		t.Errorf("Broker.Prefix: got %q, want garden", conf.Broker.Prefix)
	}
	if conf.Location.Latitude != 51.5 || conf.Location.Longitude != -0.12 {
		t.Errorf("Location: got (%v,%v)", conf.Location.Latitude, conf.Location.Longitude)
	}
	if conf.GPIO.Input != InputFixed {
		t.Errorf("GPIO.Input: got %q, want fixed", conf.GPIO.Input)
	}
	if conf.Broker.URL != "tcp://localhost:1883" {
		t.Errorf("Broker.URL default: got %q", conf.Broker.URL)
	}
}

func TestLoadLogLevel(t *testing.T) {
	tests := []struct {
		value string
		want  slog.Level
	}{
		{"DEBUG", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"INFO+2", slog.LevelInfo + 2},
		{"-4", slog.LevelDebug},
		{"8", slog.LevelError},
	}
	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			t.Setenv("WEATHERSYNC_LOGLEVEL", tt.value)
			conf, err := Load("")
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got := conf.LogLevel.Level(); got != tt.want {
				t.Errorf("LogLevel: got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadLogLevelFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "weather-sync.yaml")
	if err := os.WriteFile(path, []byte("loglevel: warn\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	conf, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := conf.LogLevel.Level(); got != slog.LevelWarn {
		t.Errorf("LogLevel: got %v, want WARN", got)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name, key, value string
	}{
		{"units", "WEATHERSYNC_UNITS", "kelvin"},
		{"loglevel", "WEATHERSYNC_LOGLEVEL", "chatty"},
		{"gpio input", "WEATHERSYNC_GPIO_INPUT", "serial"},
		{"source", "WEATHERSYNC_LOCATION_SOURCE", "owm"},
		{"latitude", "WEATHERSYNC_LOCATION_LATITUDE", "91"},
		{"longitude", "WEATHERSYNC_LOCATION_LONGITUDE", "-181"},
		{"connect timeout", "WEATHERSYNC_CHANNEL_CONNECT_TIMEOUT", "-1s"},
		{"debounce", "WEATHERSYNC_GPIO_DEBOUNCE", "-5ms"},
		{"timezone", "WEATHERSYNC_FACE_TIMEZONE", "Mars/Olympus_Mons"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := Load(""); err == nil {
				t.Errorf("expected error for %s=%s", tt.key, tt.value)
			}
		})
	}
}

func TestZone(t *testing.T) {
	c := &Config{}
	if c.Zone() != time.Local {
		t.Errorf("empty timezone: got %v, want Local", c.Zone())
	}
	c.Face.Timezone = "UTC"
	if c.Zone().String() != "UTC" {
		t.Errorf("UTC: got %v", c.Zone())
	}
}
