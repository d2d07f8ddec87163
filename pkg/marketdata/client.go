package marketdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/rxtech-lab/krx-daily/internal/logger"
	"github.com/rxtech-lab/krx-daily/internal/types"
	"github.com/rxtech-lab/krx-daily/pkg/errors"
	"github.com/rxtech-lab/krx-daily/pkg/marketdata/provider"
	"github.com/rxtech-lab/krx-daily/pkg/marketdata/writer"
)

// ProviderType defines the type of market data provider.
type ProviderType = provider.ProviderType

const (
	ProviderKRX     = provider.ProviderKRX
	ProviderPolygon = provider.ProviderPolygon
	ProviderBinance = provider.ProviderBinance
)

// WriterType defines the type of price writer.
type WriterType string

const (
	WriterCSV WriterType = "csv"
)

// ClientConfig holds the configuration for the market data client.
type ClientConfig struct {
	ProviderType  ProviderType  `validate:"required,oneof=krx polygon binance"`
	WriterType    WriterType    `validate:"required,oneof=csv"`
	DataPath      string        `validate:"required"`
	PolygonApiKey string        `validate:"required_if=ProviderType polygon"`
	Adjusted      bool
	Timeout       time.Duration `validate:"min=0"`
	BaseURL       string        `validate:"omitempty,url"`
}

// DownloadParams holds the parameters for a market data download request.
type DownloadParams struct {
	Symbol    string    `validate:"required"`
	StartDate time.Time `validate:"required"`
	EndDate   time.Time `validate:"required,gtfield=StartDate"`
}

// Client fetches daily history from a provider and persists the closing prices.
type Client struct {
	provider   provider.Provider
	config     ClientConfig
	validate   *validator.Validate
	onProgress provider.OnDownloadProgress
	logger     *zap.Logger
	newWriter  WriterFactory
}

// WriterFactory builds the writer for one output file.
type WriterFactory func(outputPath string) writer.PriceWriter

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithLogger sets the logger used for diagnostics.
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithProvider replaces the provider built from the configuration.
func WithProvider(p provider.Provider) ClientOption {
	return func(c *Client) {
		c.provider = p
	}
}

// WithWriterFactory replaces the writer built from the configured WriterType.
func WithWriterFactory(factory WriterFactory) ClientOption {
	return func(c *Client) {
		c.newWriter = factory
	}
}

// NewClient creates a new market data client with the given configuration.
func NewClient(config ClientConfig, onProgress provider.OnDownloadProgress, opts ...ClientOption) (*Client, error) {
	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid client configuration", err)
	}

	client := &Client{
		config:     config,
		validate:   validate,
		onProgress: onProgress,
		logger:     logger.NewNop().Logger,
	}

	for _, opt := range opts {
		opt(client)
	}

	if client.newWriter == nil {
		client.newWriter = writer.NewCSVWriter
	}

	if client.provider == nil {
		marketProvider, err := provider.NewMarketDataProvider(config.ProviderType, provider.Options{
			PolygonApiKey: config.PolygonApiKey,
			Adjusted:      config.Adjusted,
			Timeout:       config.Timeout,
			BaseURL:       config.BaseURL,
		})
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeInvalidProvider, err, "failed to create %s provider", config.ProviderType)
		}

		client.provider = marketProvider
	}

	return client, nil
}

// OutputPath returns where the CSV for symbol is written.
func (c *Client) OutputPath(symbol string) string {
	return filepath.Join(c.config.DataPath, fmt.Sprintf("%s.csv", symbol))
}

// Download fetches the daily bars for params and writes `date,close` rows to
// OutputPath(params.Symbol). When the provider returns nothing it returns an
// ErrCodeNoDataFound error and touches neither the directory nor the file.
func (c *Client) Download(ctx context.Context, params DownloadParams) (string, error) {
	if err := c.validate.Struct(params); err != nil {
		return "", errors.Wrap(errors.ErrCodeInvalidParameter, "invalid download parameters", err)
	}

	c.logger.Info("fetching daily bars",
		zap.String("symbol", params.Symbol),
		zap.String("provider", string(c.config.ProviderType)),
		zap.String("start", FormatProviderDate(params.StartDate)),
		zap.String("end", FormatProviderDate(params.EndDate)),
	)

	bars, err := c.provider.FetchDaily(ctx, params.Symbol, params.StartDate, params.EndDate, c.onProgress)
	if err != nil {
		return "", errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch daily bars for %s", params.Symbol)
	}

	if len(bars) == 0 {
		return "", errors.Newf(errors.ErrCodeNoDataFound, "no daily bars for %s between %s and %s",
			params.Symbol, FormatProviderDate(params.StartDate), FormatProviderDate(params.EndDate))
	}

	records := types.ProjectClose(bars)

	priceWriter, err := c.setupWriter(params.Symbol)
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to setup writer", err)
	}

	defer func() {
		if err := priceWriter.Close(); err != nil {
			// Just log the error but don't fail the download operation
			c.logger.Warn("failed to close writer", zap.Error(err))
		}
	}()

	for _, record := range records {
		if err := priceWriter.Write(record); err != nil {
			return "", errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to write record", err)
		}
	}

	outputPath, err := priceWriter.Finalize()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeMarketDataWriteFailed, "failed to finalize writer", err)
	}

	c.logger.Info("saved daily closes",
		zap.String("symbol", params.Symbol),
		zap.Int("rows", len(records)),
		zap.String("path", outputPath),
	)

	return outputPath, nil
}

// setupWriter creates the data directory if needed and initializes the writer.
func (c *Client) setupWriter(symbol string) (writer.PriceWriter, error) {
	switch c.config.WriterType {
	case WriterCSV:
		if err := os.MkdirAll(c.config.DataPath, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data directory %s: %w", c.config.DataPath, err)
		}

		priceWriter := c.newWriter(c.OutputPath(symbol))
		if err := priceWriter.Initialize(); err != nil {
			return nil, fmt.Errorf("failed to initialize CSV writer at %s: %w", priceWriter.GetOutputPath(), err)
		}

		return priceWriter, nil
	default:
		return nil, fmt.Errorf("unsupported writer type: %s", c.config.WriterType)
	}
}
