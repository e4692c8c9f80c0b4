// Package farm defines the data-provider interfaces the workflow consumes:
// farmer profiles, field sensors, local weather and commodity market
// prices. Implementations live in subpackages or as in-package mocks; the
// workflow only ever sees these interfaces.
package farm

import (
	"context"
	"time"
)

// Profile describes a registered farmer.
type Profile struct {
	FarmerID      string    `json:"farmer_id"`
	Name          string    `json:"name"`
	Location      string    `json:"location"`
	LandSizeAcres float64   `json:"land_size_acres"`
	Crops         []string  `json:"crops"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PrimaryCrop returns the first registered crop, or fallback when the
// profile lists none.
func (profile *Profile) PrimaryCrop(fallback string) string {
	if profile == nil || len(profile.Crops) == 0 {
		return fallback
	}
	return profile.Crops[0]
}

// SensorReading is one snapshot from the field sensor array.
type SensorReading struct {
	Temperature  float64   `json:"temperature"`
	Humidity     float64   `json:"humidity"`
	SoilMoisture int       `json:"soil_moisture"`
	RainfallMM   float64   `json:"rainfall_mm"`
	GasLevel     int       `json:"gas_level"`
	Timestamp    time.Time `json:"timestamp"`
}

// CurrentConditions is the "now" block of a weather report.
type CurrentConditions struct {
	TempC    float64 `json:"temp_c"`
	Humidity int     `json:"humidity"`
	RainMM   float64 `json:"rain_mm"`
}

// WeatherReport is the current weather plus a short-term forecast for a
// location. Unknown locations yield a best-effort report, never an error.
type WeatherReport struct {
	Provider    string            `json:"provider"`
	Location    string            `json:"location"`
	Now         CurrentConditions `json:"now"`
	Forecast48h string            `json:"forecast_48h"`
}

// MarketRecord is one mandi price row. The field tags follow the upstream
// agmarket API, which uses spaced column names.
type MarketRecord struct {
	Commodity  string `json:"Commodity"`
	State      string `json:"State,omitempty"`
	Market     string `json:"Market"`
	Date       string `json:"Date"`
	MinPrice   string `json:"Min Price"`
	MaxPrice   string `json:"Max Price"`
	ModalPrice string `json:"Modal Price"`
}

// MarketQuote is the result of a market price lookup. A failed lookup is
// error-tagged rather than dropped, so the workflow can degrade gracefully.
type MarketQuote struct {
	Commodity string         `json:"commodity"`
	State     string         `json:"state"`
	Market    string         `json:"market"`
	Data      []MarketRecord `json:"data,omitempty"`
	Err       string         `json:"error,omitempty"`
}

// ProfileProvider looks up the farmer profile backing a user account.
type ProfileProvider interface {
	Profile(ctx context.Context, userID string) (*Profile, error)
}

// SensorProvider fetches the most recent field sensor snapshot.
type SensorProvider interface {
	LatestReading(ctx context.Context, userID string) (*SensorReading, error)
}

// WeatherProvider fetches current weather for a location. Implementations
// must tolerate unknown locations by returning a best-effort or
// error-tagged report instead of failing.
type WeatherProvider interface {
	LocalWeather(ctx context.Context, location string) (*WeatherReport, error)
}

// MarketProvider fetches mandi prices for a commodity. Lookup failures are
// folded into the quote's Err field; a non-nil error is reserved for
// context cancellation.
type MarketProvider interface {
	Prices(ctx context.Context, commodity, state, market string) (*MarketQuote, error)
}
