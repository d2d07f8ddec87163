package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/rxtech-lab/krx-daily/internal/types"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderKRX     ProviderType = "krx"
	ProviderPolygon ProviderType = "polygon"
	ProviderBinance ProviderType = "binance"
)

type OnDownloadProgress = func(current float64, total float64, message string)

type Provider interface {
	// FetchDaily retrieves the daily bars for symbol between startDate and
	// endDate, both inclusive. Bars are returned oldest first.
	// An unknown symbol or an empty window yields an empty slice and no error.
	// example:
	// FetchDaily(ctx, "114190", time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2020, 1, 31, 0, 0, 0, 0, time.UTC), onProgress)
	FetchDaily(ctx context.Context, symbol string, startDate time.Time, endDate time.Time, onProgress OnDownloadProgress) ([]types.Bar, error)
}

// Options carries provider specific settings.
type Options struct {
	// PolygonApiKey is required by the polygon provider.
	PolygonApiKey string
	// Adjusted requests split/dividend adjusted prices where supported.
	Adjusted bool
	// Timeout bounds each HTTP request. Zero means no timeout.
	Timeout time.Duration
	// BaseURL overrides the provider endpoint. Empty uses the default.
	BaseURL string
}

// NewMarketDataProvider creates a new market data provider based on the provider type.
func NewMarketDataProvider(providerType ProviderType, opts Options) (Provider, error) {
	switch providerType {
	case ProviderKRX:
		return NewKRXClient(opts), nil
	case ProviderBinance:
		return NewBinanceClient(opts)
	case ProviderPolygon:
		return NewPolygonClient(opts)
	default:
		return nil, fmt.Errorf("unsupported market data provider: %s", providerType)
	}
}

func reportProgress(onProgress OnDownloadProgress, current float64, total float64, message string) {
	if onProgress != nil {
		onProgress(current, total, message)
	}
}
