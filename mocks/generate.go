package mocks

//go:generate mockgen -destination=./mock_provider.go -package=mocks github.com/rxtech-lab/krx-daily/pkg/marketdata/provider Provider
//go:generate mockgen -destination=./mock_price_writer.go -package=mocks github.com/rxtech-lab/krx-daily/pkg/marketdata/writer PriceWriter
