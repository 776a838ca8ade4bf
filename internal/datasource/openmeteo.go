package datasource

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hectormalot/omgo"
	"github.com/sony/gobreaker"

	"github.com/sweeney/weather-sync/internal/weather"
)

// FetchTimeout bounds one Open-Meteo request.
const FetchTimeout = 10 * time.Second

// Daily metrics requested from Open-Meteo.
const (
	metricWeatherCode = "weather_code"
	metricTempMax     = "temperature_2m_max"
	metricTempMin     = "temperature_2m_min"
)

// ErrCircuitOpen is returned while the breaker rejects requests.
var ErrCircuitOpen = errors.New("open-meteo circuit breaker open")

// forecaster is the part of omgo.Client used here.
type forecaster interface {
	Forecast(ctx context.Context, loc omgo.Location, opts *omgo.Options) (*omgo.Forecast, error)
}

// OpenMeteo fetches today's condition and temperature range.
type OpenMeteo struct {
	client  forecaster
	circuit *gobreaker.CircuitBreaker
	units   string
	now     func() time.Time
}

// NewOpenMeteo creates a fetcher. Units are "metric" or "imperial".
func NewOpenMeteo(units string) (*OpenMeteo, error) {
	client, err := omgo.NewClient()
	if err != nil {
		return nil, fmt.Errorf("create open-meteo client: %w", err)
	}
	return newOpenMeteo(client, units), nil
}

func newOpenMeteo(client forecaster, units string) *OpenMeteo {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 1,
		Interval:    10 * time.Minute,
		Timeout:     5 * time.Minute,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
	})
	return &OpenMeteo{client: client, circuit: cb, units: units, now: time.Now}
}

// Fetch implements Fetcher.
func (o *OpenMeteo) Fetch(ctx context.Context, loc Location) (weather.Snapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	omloc, err := omgo.NewLocation(loc.Latitude, loc.Longitude)
	if err != nil {
		return weather.Snapshot{}, fmt.Errorf("open-meteo location: %w", err)
	}

	opts := &omgo.Options{
		Timezone:     "auto",
		DailyMetrics: []string{metricWeatherCode, metricTempMax, metricTempMin},
	}
	switch o.units {
	case "imperial":
		opts.TemperatureUnit = "fahrenheit"
	default:
		opts.TemperatureUnit = "celsius"
	}

	result, err := o.circuit.Execute(func() (interface{}, error) {
		return o.client.Forecast(ctx, omloc, opts)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return weather.Snapshot{}, fmt.Errorf("%w: %v", ErrCircuitOpen, err)
		}
		return weather.Snapshot{}, fmt.Errorf("open-meteo forecast: %w", err)
	}
	forecast, ok := result.(*omgo.Forecast)
	if !ok || forecast == nil {
		return weather.Snapshot{}, fmt.Errorf("open-meteo forecast: empty response")
	}
	return o.today(forecast)
}

// today picks the daily row for the current date, falling back to the first.
func (o *OpenMeteo) today(f *omgo.Forecast) (weather.Snapshot, error) {
	codes := f.DailyMetrics[metricWeatherCode]
	highs := f.DailyMetrics[metricTempMax]
	lows := f.DailyMetrics[metricTempMin]
	n := min(len(codes), len(highs), len(lows))
	if n == 0 {
		return weather.Snapshot{}, fmt.Errorf("open-meteo forecast: no daily data")
	}

	idx := 0
	y, m, d := o.now().Date()
	for i, t := range f.DailyTimes {
		if i >= n {
			break
		}
		ty, tm, td := t.Date()
		if ty == y && tm == m && td == d {
			idx = i
			break
		}
	}

	id, ok := weather.ConditionFromWMO(int(codes[idx]))
	if !ok {
		return weather.Snapshot{}, fmt.Errorf("open-meteo forecast: unknown weather code %v", codes[idx])
	}
	return weather.Snapshot{ConditionID: id, High: highs[idx], Low: lows[idx]}, nil
}
