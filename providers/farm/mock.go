package farm

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// MockProfileProvider serves a single fixed profile for every user. It
// stands in for the real profile store during development and tests.
type MockProfileProvider struct{}

func (MockProfileProvider) Profile(ctx context.Context, userID string) (*Profile, error) {
	return &Profile{
		FarmerID:      "farmer123",
		Name:          "Ravi",
		Location:      "kota",
		LandSizeAcres: 3.2,
		Crops:         []string{"wheat"},
		UpdatedAt:     time.Now().UTC(),
	}, nil
}

// MockSensorProvider returns jittered readings around plausible field
// values, so repeated calls look like a live feed.
type MockSensorProvider struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewMockSensorProvider seeds the jitter source. A zero seed uses the
// current time.
func NewMockSensorProvider(seed int64) *MockSensorProvider {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &MockSensorProvider{rng: rand.New(rand.NewSource(seed))}
}

func (provider *MockSensorProvider) LatestReading(ctx context.Context, userID string) (*SensorReading, error) {
	provider.mu.Lock()
	defer provider.mu.Unlock()

	rainfall := provider.rng.Float64()*3.2 - 0.2
	if rainfall < 0 {
		rainfall = 0
	}

	return &SensorReading{
		Temperature:  round2(24 + provider.rng.Float64()*4 - 2),
		Humidity:     round1(68 + provider.rng.Float64()*10 - 5),
		SoilMoisture: 520 + provider.rng.Intn(161) - 80,
		RainfallMM:   round2(rainfall),
		GasLevel:     140,
		Timestamp:    time.Now().UTC(),
	}, nil
}

// MockWeatherProvider returns a fixed dry forecast for any location.
type MockWeatherProvider struct{}

func (MockWeatherProvider) LocalWeather(ctx context.Context, location string) (*WeatherReport, error) {
	if location == "" {
		location = "Unknown"
	}
	return &WeatherReport{
		Provider:    "mock",
		Location:    location,
		Now:         CurrentConditions{TempC: 29.0, Humidity: 72, RainMM: 0},
		Forecast48h: "No rain expected, light winds, temp 26-33°C.",
	}, nil
}

// MockMarketProvider serves one fixed wheat quote for any lookup.
type MockMarketProvider struct{}

func (MockMarketProvider) Prices(ctx context.Context, commodity, state, market string) (*MarketQuote, error) {
	if commodity == "" {
		commodity = "Wheat"
	}
	if market == "" {
		market = "Kota"
	}
	return &MarketQuote{
		Commodity: commodity,
		State:     state,
		Market:    market,
		Data: []MarketRecord{{
			Commodity:  commodity,
			Market:     market,
			Date:       "2025-01-01",
			MinPrice:   "2000",
			MaxPrice:   "2200",
			ModalPrice: "2100",
		}},
	}, nil
}

func round1(value float64) float64 {
	return float64(int(value*10+0.5)) / 10
}

func round2(value float64) float64 {
	return float64(int(value*100+0.5)) / 100
}
