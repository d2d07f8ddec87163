package provider

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/krx-daily/internal/types"
)

// binancePageSize is the kline page size requested from the API.
const binancePageSize = 1000

// BinanceKlinesService is the subset of the klines service builder we use.
type BinanceKlinesService interface {
	Symbol(symbol string) BinanceKlinesService
	Interval(interval string) BinanceKlinesService
	StartTime(startTime int64) BinanceKlinesService
	EndTime(endTime int64) BinanceKlinesService
	Limit(limit int) BinanceKlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// BinanceAPIClient is the subset of the binance client we use.
type BinanceAPIClient interface {
	NewKlinesService() BinanceKlinesService
}

type binanceClientWrapper struct {
	client *binance.Client
}

func (w *binanceClientWrapper) NewKlinesService() BinanceKlinesService {
	return &binanceKlinesServiceWrapper{service: w.client.NewKlinesService()}
}

type binanceKlinesServiceWrapper struct {
	service *binance.KlinesService
}

func (w *binanceKlinesServiceWrapper) Symbol(symbol string) BinanceKlinesService {
	w.service.Symbol(symbol)
	return w
}

func (w *binanceKlinesServiceWrapper) Interval(interval string) BinanceKlinesService {
	w.service.Interval(interval)
	return w
}

func (w *binanceKlinesServiceWrapper) StartTime(startTime int64) BinanceKlinesService {
	w.service.StartTime(startTime)
	return w
}

func (w *binanceKlinesServiceWrapper) EndTime(endTime int64) BinanceKlinesService {
	w.service.EndTime(endTime)
	return w
}

func (w *binanceKlinesServiceWrapper) Limit(limit int) BinanceKlinesService {
	w.service.Limit(limit)
	return w
}

func (w *binanceKlinesServiceWrapper) Do(ctx context.Context) ([]*binance.Kline, error) {
	return w.service.Do(ctx)
}

type BinanceClient struct {
	apiClient BinanceAPIClient
}

// NewBinanceClient creates a Binance provider. Public market data needs no credentials.
func NewBinanceClient(opts Options) (Provider, error) {
	client := binance.NewClient("", "")
	if opts.BaseURL != "" {
		client.BaseURL = strings.TrimRight(opts.BaseURL, "/")
	}

	if opts.Timeout > 0 {
		client.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}

	return NewBinanceClientWithAPI(&binanceClientWrapper{client: client}), nil
}

// NewBinanceClientWithAPI creates a BinanceClient around an existing API client.
func NewBinanceClientWithAPI(apiClient BinanceAPIClient) *BinanceClient {
	return &BinanceClient{apiClient: apiClient}
}

// FetchDaily downloads 1d klines page by page, continuing from the close time
// of the last kline of each full page.
func (c *BinanceClient) FetchDaily(ctx context.Context, symbol string, startDate time.Time, endDate time.Time, onProgress OnDownloadProgress) ([]types.Bar, error) {
	startTimeMillis := startDate.UnixMilli()
	// include the whole end day
	endTimeMillis := endDate.Add(24*time.Hour).UnixMilli() - 1

	bars := []types.Bar{}
	currentStartTime := startTimeMillis

	for {
		klines, err := c.apiClient.NewKlinesService().
			Symbol(symbol).
			Interval("1d").
			StartTime(currentStartTime).
			EndTime(endTimeMillis).
			Limit(binancePageSize).
			Do(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch klines from Binance: %w", err)
		}

		page, err := convertKlines(symbol, klines)
		if err != nil {
			return nil, err
		}

		bars = append(bars, page...)

		reportProgress(onProgress, float64(currentStartTime-startTimeMillis), float64(endTimeMillis-startTimeMillis), fmt.Sprintf("Downloading %s klines from Binance", symbol))

		if len(klines) < binancePageSize {
			break
		}

		currentStartTime = klines[len(klines)-1].CloseTime + 1
		if currentStartTime >= endTimeMillis {
			break
		}
	}

	return bars, nil
}

// convertKlines maps Binance klines to daily bars dated by their UTC open time.
func convertKlines(symbol string, klines []*binance.Kline) ([]types.Bar, error) {
	bars := make([]types.Bar, 0, len(klines))

	for _, k := range klines {
		closePrice, err := decimal.NewFromString(k.Close)
		if err != nil {
			return nil, fmt.Errorf("invalid close price %q: %w", k.Close, err)
		}

		open, _ := decimal.NewFromString(k.Open)
		high, _ := decimal.NewFromString(k.High)
		low, _ := decimal.NewFromString(k.Low)
		volume, _ := decimal.NewFromString(k.Volume)

		openTime := time.UnixMilli(k.OpenTime).UTC()

		bars = append(bars, types.Bar{
			Symbol: symbol,
			Date:   time.Date(openTime.Year(), openTime.Month(), openTime.Day(), 0, 0, 0, 0, time.UTC),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}

	return bars, nil
}
