package provider

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type ProviderFactoryTestSuite struct {
	suite.Suite
}

func TestProviderFactorySuite(t *testing.T) {
	suite.Run(t, new(ProviderFactoryTestSuite))
}

func (suite *ProviderFactoryTestSuite) TestNewMarketDataProvider() {
	tests := []struct {
		name        string
		provider    ProviderType
		opts        Options
		expectError bool
	}{
		{name: "krx", provider: ProviderKRX, opts: Options{Adjusted: true}},
		{name: "binance", provider: ProviderBinance},
		{name: "polygon with key", provider: ProviderPolygon, opts: Options{PolygonApiKey: "key"}},
		{name: "polygon without key", provider: ProviderPolygon, expectError: true},
		{name: "unknown", provider: ProviderType("yahoo"), expectError: true},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			p, err := NewMarketDataProvider(tc.provider, tc.opts)
			if tc.expectError {
				suite.Error(err)
				suite.Nil(p)

				return
			}

			suite.NoError(err)
			suite.NotNil(p)
		})
	}
}

func (suite *ProviderFactoryTestSuite) TestReportProgressNilCallback() {
	suite.NotPanics(func() {
		reportProgress(nil, 1, 2, "noop")
	})
}
