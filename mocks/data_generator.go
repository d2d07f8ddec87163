package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/krx-daily/internal/types"
)

// DataGenerator generates daily bars for tests.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures how bars are generated.
type GeneratorConfig struct {
	Symbol string
	// StartDate is the first session; weekends are skipped.
	StartDate time.Time
	// Count is the number of sessions to generate
	Count int
	// InitialPrice is the first open, in whole currency units
	InitialPrice float64
	// Volatility is the typical daily move (0.02 = 2%)
	Volatility float64
	// VolumeBase is the average shares traded per session
	VolumeBase float64
}

// DefaultConfig returns a configuration resembling a KOSDAQ small cap.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:       "114190",
		StartDate:    time.Date(2020, 1, 2, 0, 0, 0, 0, time.UTC),
		Count:        250,
		InitialPrice: 5000,
		Volatility:   0.02,
		VolumeBase:   100000,
	}
}

// Generate creates chronologically ordered daily bars with whole-number prices.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.Bar {
	bars := make([]types.Bar, 0, config.Count)
	price := config.InitialPrice
	date := config.StartDate

	for len(bars) < config.Count {
		if date.Weekday() == time.Saturday || date.Weekday() == time.Sunday {
			date = date.AddDate(0, 0, 1)

			continue
		}

		open := price
		closePrice := math.Max(1, math.Round(open*(1+config.Volatility*g.rng.NormFloat64())))
		high := math.Max(open, closePrice) * (1 + g.rng.Float64()*config.Volatility/2)
		low := math.Min(open, closePrice) * (1 - g.rng.Float64()*config.Volatility/2)
		volume := config.VolumeBase * (0.5 + g.rng.Float64())

		bars = append(bars, types.Bar{
			Symbol: config.Symbol,
			Date:   date,
			Open:   decimal.NewFromFloat(math.Round(open)),
			High:   decimal.NewFromFloat(math.Round(high)),
			Low:    decimal.NewFromFloat(math.Max(1, math.Round(low))),
			Close:  decimal.NewFromFloat(closePrice),
			Volume: decimal.NewFromFloat(math.Round(volume)),
		})

		price = closePrice
		date = date.AddDate(0, 0, 1)
	}

	return bars
}
