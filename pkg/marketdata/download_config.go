package marketdata

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rxtech-lab/krx-daily/internal/version"
	"github.com/rxtech-lab/krx-daily/pkg/errors"
)

const (
	DefaultSymbol   = "114190"
	DefaultYears    = 5
	DefaultDataPath = "server/data/krx_daily"
)

// DownloadConfig describes one fetch-and-persist run.
type DownloadConfig struct {
	Symbol   string `json:"symbol" yaml:"symbol" jsonschema:"title=Symbol,description=Ticker to download (six digit KRX code or ISIN for krx),required" validate:"required"`
	Years    int    `json:"years" yaml:"years" jsonschema:"title=Years,description=Lookback window in 365-day years,minimum=1,default=5" validate:"min=1,max=100"`
	DataPath string `json:"dataPath" yaml:"dataPath" jsonschema:"title=Data Path,description=Directory the <symbol>.csv file is written to,default=server/data/krx_daily" validate:"required"`
	Provider string `json:"provider" yaml:"provider" jsonschema:"title=Provider,description=Market data provider,enum=krx,enum=polygon,enum=binance,default=krx" validate:"required,oneof=krx polygon binance"`
	Adjusted bool   `json:"adjusted" yaml:"adjusted" jsonschema:"title=Adjusted,description=Request adjusted prices where the provider supports it,default=true"`
	ApiKey   string `json:"apiKey,omitempty" yaml:"apiKey,omitempty" jsonschema:"title=API Key,description=Polygon.io API key" validate:"required_if=Provider polygon"`
	// Requires is a semver constraint on the krxfetch version able to run this config.
	Requires string `json:"requires,omitempty" yaml:"requires,omitempty" jsonschema:"title=Requires,description=Semver constraint on the krxfetch version (e.g. >= 1.0)"`
}

// DefaultDownloadConfig returns the configuration used when nothing is overridden.
func DefaultDownloadConfig() DownloadConfig {
	return DownloadConfig{
		Symbol:   DefaultSymbol,
		Years:    DefaultYears,
		DataPath: DefaultDataPath,
		Provider: string(ProviderKRX),
		Adjusted: true,
		ApiKey:   "",
	}
}

// Validate validates the DownloadConfig fields.
func (c *DownloadConfig) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	if err := version.CheckRequirement(version.GetVersion(), c.Requires); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "incompatible config", err)
	}

	return nil
}

// ToClientConfig converts the config to a ClientConfig.
func (c *DownloadConfig) ToClientConfig() ClientConfig {
	return ClientConfig{
		ProviderType:  ProviderType(c.Provider),
		WriterType:    WriterCSV,
		DataPath:      c.DataPath,
		PolygonApiKey: c.ApiKey,
		Adjusted:      c.Adjusted,
	}
}

// ToDownloadParams builds the download window ending on the calendar date of now.
func (c *DownloadConfig) ToDownloadParams(now time.Time) DownloadParams {
	start, end := LookbackWindow(now, c.Years)

	return DownloadParams{
		Symbol:    c.Symbol,
		StartDate: start,
		EndDate:   end,
	}
}

// LoadDownloadConfig reads a config file on top of DefaultDownloadConfig.
// Files ending in .json are parsed as JSON, anything else as YAML.
func LoadDownloadConfig(path string) (*DownloadConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %s", path)
	}

	if strings.EqualFold(filepath.Ext(path), ".json") {
		return ParseDownloadConfig(string(data))
	}

	config := DefaultDownloadConfig()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to parse YAML config %s", path)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// ParseDownloadConfig parses JSON on top of DefaultDownloadConfig.
func ParseDownloadConfig(jsonConfig string) (*DownloadConfig, error) {
	config := DefaultDownloadConfig()
	if err := json.Unmarshal([]byte(jsonConfig), &config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse JSON config", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}
