package marketdata

import (
	"context"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/rxtech-lab/krx-daily/internal/types"
	"github.com/rxtech-lab/krx-daily/mocks"
	"github.com/rxtech-lab/krx-daily/pkg/errors"
	"github.com/rxtech-lab/krx-daily/pkg/marketdata/writer"
)

// ClientTestSuite is a test suite for the Client implementation
type ClientTestSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	mockProvider *mocks.MockProvider
	tempDir      string
	dataPath     string
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

// SetupTest runs before each test
func (suite *ClientTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.mockProvider = mocks.NewMockProvider(suite.ctrl)
	suite.tempDir = suite.T().TempDir()
	suite.dataPath = filepath.Join(suite.tempDir, "server", "data", "krx_daily")
}

// TearDownTest runs after each test
func (suite *ClientTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *ClientTestSuite) newClient(opts ...ClientOption) *Client {
	config := ClientConfig{
		ProviderType: ProviderKRX,
		WriterType:   WriterCSV,
		DataPath:     suite.dataPath,
	}

	client, err := NewClient(config, nil, append([]ClientOption{WithProvider(suite.mockProvider)}, opts...)...)
	suite.Require().NoError(err)

	return client
}

func day(year int, month time.Month, d int) time.Time {
	return time.Date(year, month, d, 0, 0, 0, 0, time.UTC)
}

func sampleBars() []types.Bar {
	return []types.Bar{
		{Symbol: "114190", Date: day(2020, 1, 2), Open: decimal.NewFromInt(4900), Close: decimal.NewFromInt(5000), Volume: decimal.NewFromInt(10000)},
		{Symbol: "114190", Date: day(2020, 1, 3), Open: decimal.NewFromInt(5050), Close: decimal.NewFromInt(5100), Volume: decimal.NewFromInt(12345)},
	}
}

func sampleParams() DownloadParams {
	start, end := LookbackWindow(day(2025, 1, 1), 5)

	return DownloadParams{Symbol: "114190", StartDate: start, EndDate: end}
}

func (suite *ClientTestSuite) TestDownloadWritesDateCloseCSV() {
	params := sampleParams()

	suite.mockProvider.EXPECT().
		FetchDaily(gomock.Any(), "114190", params.StartDate, params.EndDate, gomock.Any()).
		Return(sampleBars(), nil).
		Times(1)

	outputPath, err := suite.newClient().Download(context.Background(), params)
	suite.Require().NoError(err)
	suite.Equal(filepath.Join(suite.dataPath, "114190.csv"), outputPath)

	content, err := os.ReadFile(outputPath)
	suite.Require().NoError(err)
	suite.Equal("date,close\n2020-01-02,5000\n2020-01-03,5100\n", string(content))

	// no staging files are left behind
	entries, err := os.ReadDir(suite.dataPath)
	suite.Require().NoError(err)
	suite.Len(entries, 1)
}

func (suite *ClientTestSuite) TestDownloadEmptyResultCreatesNothing() {
	suite.mockProvider.EXPECT().
		FetchDaily(gomock.Any(), "114190", gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]types.Bar{}, nil).
		Times(1)

	outputPath, err := suite.newClient().Download(context.Background(), sampleParams())
	suite.Error(err)
	suite.Empty(outputPath)
	suite.True(errors.IsNoData(err))
	suite.Equal(errors.ErrCodeNoDataFound, errors.GetCode(err))

	_, statErr := os.Stat(suite.dataPath)
	suite.True(os.IsNotExist(statErr), "data directory must not be created for an empty result")
}

func (suite *ClientTestSuite) TestDownloadEmptyResultKeepsExistingFile() {
	suite.Require().NoError(os.MkdirAll(suite.dataPath, 0o755))
	existing := filepath.Join(suite.dataPath, "114190.csv")
	suite.Require().NoError(os.WriteFile(existing, []byte("date,close\n2019-12-30,4800\n"), 0o644))

	suite.mockProvider.EXPECT().
		FetchDaily(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, nil)

	_, err := suite.newClient().Download(context.Background(), sampleParams())
	suite.True(errors.IsNoData(err))

	content, err := os.ReadFile(existing)
	suite.Require().NoError(err)
	suite.Equal("date,close\n2019-12-30,4800\n", string(content))
}

func (suite *ClientTestSuite) TestDownloadIsIdempotent() {
	suite.mockProvider.EXPECT().
		FetchDaily(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(sampleBars(), nil).
		Times(2)

	client := suite.newClient()

	first, err := client.Download(context.Background(), sampleParams())
	suite.Require().NoError(err)
	firstContent, err := os.ReadFile(first)
	suite.Require().NoError(err)

	second, err := client.Download(context.Background(), sampleParams())
	suite.Require().NoError(err)
	secondContent, err := os.ReadFile(second)
	suite.Require().NoError(err)

	suite.Equal(first, second)
	suite.Equal(string(firstContent), string(secondContent))
}

func (suite *ClientTestSuite) TestDownloadOverwritesPreviousRun() {
	suite.Require().NoError(os.MkdirAll(suite.dataPath, 0o755))
	existing := filepath.Join(suite.dataPath, "114190.csv")
	suite.Require().NoError(os.WriteFile(existing, []byte("stale\n"), 0o644))

	suite.mockProvider.EXPECT().
		FetchDaily(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(sampleBars(), nil)

	_, err := suite.newClient().Download(context.Background(), sampleParams())
	suite.Require().NoError(err)

	content, err := os.ReadFile(existing)
	suite.Require().NoError(err)
	suite.Equal("date,close\n2020-01-02,5000\n2020-01-03,5100\n", string(content))
}

func (suite *ClientTestSuite) TestDownloadGeneratedHistory() {
	config := mocks.DefaultConfig()
	config.Count = 1230
	bars := mocks.NewDataGenerator(42).Generate(config)

	suite.mockProvider.EXPECT().
		FetchDaily(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(bars, nil)

	outputPath, err := suite.newClient().Download(context.Background(), sampleParams())
	suite.Require().NoError(err)

	content, err := os.ReadFile(outputPath)
	suite.Require().NoError(err)

	lines := strings.Split(strings.TrimSuffix(string(content), "\n"), "\n")
	suite.Require().Len(lines, len(bars)+1)
	suite.Equal("date,close", lines[0])
	suite.Equal(bars[0].Date.Format(types.DateLayout)+","+bars[0].Close.String(), lines[1])
	suite.Equal(bars[len(bars)-1].Date.Format(types.DateLayout)+","+bars[len(bars)-1].Close.String(), lines[len(lines)-1])
}

func (suite *ClientTestSuite) TestDownloadFetchError() {
	suite.mockProvider.EXPECT().
		FetchDaily(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(nil, stderrors.New("connection reset"))

	_, err := suite.newClient().Download(context.Background(), sampleParams())
	suite.Error(err)
	suite.Equal(errors.ErrCodeMarketDataFetchFailed, errors.GetCode(err))
	suite.Contains(err.Error(), "connection reset")

	_, statErr := os.Stat(suite.dataPath)
	suite.True(os.IsNotExist(statErr))
}

func (suite *ClientTestSuite) TestDownloadWriteErrors() {
	writeErr := stderrors.New("disk full")

	testCases := []struct {
		name       string
		setupMock  func(w *mocks.MockPriceWriter)
		errMessage string
	}{
		{
			name: "initialize fails",
			setupMock: func(w *mocks.MockPriceWriter) {
				w.EXPECT().Initialize().Return(writeErr)
				w.EXPECT().GetOutputPath().Return("out.csv")
			},
			errMessage: "failed to setup writer",
		},
		{
			name: "write fails",
			setupMock: func(w *mocks.MockPriceWriter) {
				w.EXPECT().Initialize().Return(nil)
				w.EXPECT().Write(gomock.Any()).Return(writeErr)
				w.EXPECT().Close().Return(nil)
			},
			errMessage: "failed to write record",
		},
		{
			name: "finalize fails",
			setupMock: func(w *mocks.MockPriceWriter) {
				w.EXPECT().Initialize().Return(nil)
				w.EXPECT().Write(gomock.Any()).Return(nil).Times(2)
				w.EXPECT().Finalize().Return("", writeErr)
				w.EXPECT().Close().Return(nil)
			},
			errMessage: "failed to finalize writer",
		},
		{
			name: "close failure is only logged",
			setupMock: func(w *mocks.MockPriceWriter) {
				w.EXPECT().Initialize().Return(nil)
				w.EXPECT().Write(gomock.Any()).Return(nil).Times(2)
				w.EXPECT().Finalize().Return("out.csv", nil)
				w.EXPECT().Close().Return(writeErr)
			},
		},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			mockWriter := mocks.NewMockPriceWriter(suite.ctrl)
			tc.setupMock(mockWriter)

			suite.mockProvider.EXPECT().
				FetchDaily(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(sampleBars(), nil)

			var requestedPath string

			client := suite.newClient(WithWriterFactory(func(outputPath string) writer.PriceWriter {
				requestedPath = outputPath

				return mockWriter
			}))

			outputPath, err := client.Download(context.Background(), sampleParams())
			suite.Equal(filepath.Join(suite.dataPath, "114190.csv"), requestedPath)

			if tc.errMessage == "" {
				suite.NoError(err)
				suite.Equal("out.csv", outputPath)

				return
			}

			suite.Error(err)
			suite.Equal(errors.ErrCodeMarketDataWriteFailed, errors.GetCode(err))
			suite.Contains(err.Error(), tc.errMessage)
		})
	}
}

func (suite *ClientTestSuite) TestDownloadParamsValidation() {
	now := day(2025, 1, 1)

	testCases := []struct {
		name       string
		params     DownloadParams
		errorField string
	}{
		{
			name:       "missing symbol",
			params:     DownloadParams{StartDate: now.AddDate(0, 0, -1), EndDate: now},
			errorField: "Symbol",
		},
		{
			name:       "missing start date",
			params:     DownloadParams{Symbol: "114190", EndDate: now},
			errorField: "StartDate",
		},
		{
			name:       "missing end date",
			params:     DownloadParams{Symbol: "114190", StartDate: now},
			errorField: "EndDate",
		},
		{
			name:       "end date before start date",
			params:     DownloadParams{Symbol: "114190", StartDate: now, EndDate: now.AddDate(0, 0, -1)},
			errorField: "EndDate",
		},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			_, err := suite.newClient().Download(context.Background(), tc.params)
			suite.Error(err)
			suite.Equal(errors.ErrCodeInvalidParameter, errors.GetCode(err))
			suite.Contains(err.Error(), tc.errorField)
		})
	}
}

func (suite *ClientTestSuite) TestNewClient() {
	testCases := []struct {
		name        string
		config      ClientConfig
		expectError bool
		errorCode   errors.ErrorCode
	}{
		{
			name:   "krx with defaults",
			config: ClientConfig{ProviderType: ProviderKRX, WriterType: WriterCSV, DataPath: suite.dataPath},
		},
		{
			name:   "binance",
			config: ClientConfig{ProviderType: ProviderBinance, WriterType: WriterCSV, DataPath: suite.dataPath, Timeout: time.Second},
		},
		{
			name:   "polygon with key",
			config: ClientConfig{ProviderType: ProviderPolygon, WriterType: WriterCSV, DataPath: suite.dataPath, PolygonApiKey: "test-api-key"},
		},
		{
			name:        "missing provider type",
			config:      ClientConfig{WriterType: WriterCSV, DataPath: suite.dataPath},
			expectError: true,
			errorCode:   errors.ErrCodeInvalidConfiguration,
		},
		{
			name:        "unknown provider type",
			config:      ClientConfig{ProviderType: "unknown", WriterType: WriterCSV, DataPath: suite.dataPath},
			expectError: true,
			errorCode:   errors.ErrCodeInvalidConfiguration,
		},
		{
			name:        "polygon without key",
			config:      ClientConfig{ProviderType: ProviderPolygon, WriterType: WriterCSV, DataPath: suite.dataPath},
			expectError: true,
			errorCode:   errors.ErrCodeInvalidConfiguration,
		},
		{
			name:        "unsupported writer",
			config:      ClientConfig{ProviderType: ProviderKRX, WriterType: "duckdb", DataPath: suite.dataPath},
			expectError: true,
			errorCode:   errors.ErrCodeInvalidConfiguration,
		},
		{
			name:        "missing data path",
			config:      ClientConfig{ProviderType: ProviderKRX, WriterType: WriterCSV},
			expectError: true,
			errorCode:   errors.ErrCodeInvalidConfiguration,
		},
		{
			name:        "malformed base url",
			config:      ClientConfig{ProviderType: ProviderKRX, WriterType: WriterCSV, DataPath: suite.dataPath, BaseURL: "not a url"},
			expectError: true,
			errorCode:   errors.ErrCodeInvalidConfiguration,
		},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			client, err := NewClient(tc.config, nil)
			if tc.expectError {
				suite.Error(err)
				suite.Nil(client)
				suite.Equal(tc.errorCode, errors.GetCode(err))

				return
			}

			suite.NoError(err)
			suite.NotNil(client)
			suite.NotNil(client.logger)
			suite.Equal(filepath.Join(suite.dataPath, "AAPL.csv"), client.OutputPath("AAPL"))
		})
	}
}
