package provider

import (
	"context"
	"fmt"
	"time"
	_ "time/tzdata"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/krx-daily/internal/types"
)

// PolygonAggsIterator is the subset of the polygon aggregate iterator we use.
type PolygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// PolygonAPIClient is the subset of the polygon REST client we use.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator
}

type polygonClientWrapper struct {
	client *polygon.Client
}

func (w *polygonClientWrapper) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator {
	return w.client.ListAggs(ctx, params, options...)
}

type PolygonClient struct {
	apiClient PolygonAPIClient
	adjusted  bool
	// location is where daily bars are dated; polygon stamps them at the
	// start of the New York session.
	location *time.Location
}

// NewPolygonClient creates a Polygon provider. A zero Timeout keeps the
// client library's default.
func NewPolygonClient(opts Options) (Provider, error) {
	if opts.PolygonApiKey == "" {
		return nil, fmt.Errorf("apiKey is required")
	}

	client := polygon.New(opts.PolygonApiKey)
	if opts.Timeout > 0 {
		client.HTTP.SetTimeout(opts.Timeout)
	}

	if opts.BaseURL != "" {
		client.HTTP.SetBaseURL(opts.BaseURL)
	}

	return NewPolygonClientWithAPI(&polygonClientWrapper{client: client}, opts.Adjusted), nil
}

// NewPolygonClientWithAPI creates a PolygonClient around an existing API client.
func NewPolygonClientWithAPI(apiClient PolygonAPIClient, adjusted bool) *PolygonClient {
	location, err := time.LoadLocation("America/New_York")
	if err != nil {
		location = time.UTC
	}

	return &PolygonClient{
		apiClient: apiClient,
		adjusted:  adjusted,
		location:  location,
	}
}

func (c *PolygonClient) FetchDaily(ctx context.Context, symbol string, startDate time.Time, endDate time.Time, onProgress OnDownloadProgress) ([]types.Bar, error) {
	totalDays := endDate.Sub(startDate).Hours()/24 + 1

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     symbol,
		Multiplier: 1,
		Timespan:   models.Day,
		From:       models.Millis(startDate),
		To:         models.Millis(endDate),
	}.WithAdjusted(c.adjusted).WithOrder(models.Asc).WithLimit(50000)

	iter := c.apiClient.ListAggs(ctx, params)

	bars := []types.Bar{}

	for iter.Next() {
		agg := iter.Item()
		date := time.Time(agg.Timestamp).In(c.location)

		bars = append(bars, types.Bar{
			Symbol: symbol,
			Date:   time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC),
			Open:   decimal.NewFromFloat(agg.Open),
			High:   decimal.NewFromFloat(agg.High),
			Low:    decimal.NewFromFloat(agg.Low),
			Close:  decimal.NewFromFloat(agg.Close),
			Volume: decimal.NewFromFloat(agg.Volume),
		})

		reportProgress(onProgress, date.Sub(startDate).Hours()/24, totalDays, fmt.Sprintf("Downloading %s", symbol))
	}

	if iter.Err() != nil {
		return nil, fmt.Errorf("error iterating polygon aggregates: %w", iter.Err())
	}

	reportProgress(onProgress, totalDays, totalDays, fmt.Sprintf("Downloaded %d bars for %s", len(bars), symbol))

	return bars, nil
}
