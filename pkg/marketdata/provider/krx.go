package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/rxtech-lab/krx-daily/internal/types"
)

const (
	DefaultKRXBaseURL = "https://data.krx.co.kr"

	krxJSONPath  = "/comm/bldAttendant/getJsonData.cmd"
	krxFinderBld = "dbms/comm/finder/finder_stkisu"
	krxDailyBld  = "dbms/MDC/STAT/standard/MDCSTAT01701"

	krxDateLayout  = "2006/01/02"
	krxRequestDate = "20060102"
	krxUserAgent   = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0 Safari/537.36"
)

// KRXClient reads individual stock price history from the KRX market data portal.
type KRXClient struct {
	httpClient *http.Client
	baseURL    string
	adjusted   bool
}

type krxFinderResponse struct {
	Block1 []krxFinderItem `json:"block1"`
}

type krxFinderItem struct {
	FullCode  string `json:"full_code"`
	ShortCode string `json:"short_code"`
	CodeName  string `json:"codeName"`
}

type krxDailyResponse struct {
	Output []krxDailyRow `json:"output"`
}

type krxDailyRow struct {
	TradeDate string `json:"TRD_DD"`
	Open      string `json:"TDD_OPNPRC"`
	High      string `json:"TDD_HGPRC"`
	Low       string `json:"TDD_LWPRC"`
	Close     string `json:"TDD_CLSPRC"`
	Volume    string `json:"ACC_TRDVOL"`
}

// NewKRXClient creates a KRX provider. A zero Timeout leaves requests unbounded.
func NewKRXClient(opts Options) *KRXClient {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultKRXBaseURL
	}

	return &KRXClient{
		httpClient: &http.Client{Timeout: opts.Timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		adjusted:   opts.Adjusted,
	}
}

// FetchDaily downloads daily OHLCV bars for a six digit KRX ticker or a full ISIN.
func (c *KRXClient) FetchDaily(ctx context.Context, symbol string, startDate time.Time, endDate time.Time, onProgress OnDownloadProgress) ([]types.Bar, error) {
	reportProgress(onProgress, 0, 2, fmt.Sprintf("Resolving %s", symbol))

	isin, err := c.resolveISIN(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if isin == "" {
		reportProgress(onProgress, 2, 2, fmt.Sprintf("Unknown symbol %s", symbol))

		return []types.Bar{}, nil
	}

	reportProgress(onProgress, 1, 2, fmt.Sprintf("Downloading %s", symbol))

	form := url.Values{}
	form.Set("bld", krxDailyBld)
	form.Set("locale", "ko_KR")
	form.Set("isuCd", isin)
	form.Set("strtDd", startDate.Format(krxRequestDate))
	form.Set("endDd", endDate.Format(krxRequestDate))
	form.Set("adjStkPrc", c.adjustedFlag())
	form.Set("share", "1")
	form.Set("money", "1")
	form.Set("csvxls_isNo", "false")

	var resp krxDailyResponse
	if err := c.postForm(ctx, form, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch daily prices for %s: %w", symbol, err)
	}

	bars := make([]types.Bar, 0, len(resp.Output))
	for _, row := range resp.Output {
		bar, err := row.toBar(symbol)
		if err != nil {
			return nil, err
		}

		bars = append(bars, bar)
	}

	// the portal lists the most recent session first
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})

	reportProgress(onProgress, 2, 2, fmt.Sprintf("Downloaded %d bars for %s", len(bars), symbol))

	return bars, nil
}

func (c *KRXClient) adjustedFlag() string {
	if c.adjusted {
		return "2"
	}

	return "1"
}

// resolveISIN maps a short ticker to its ISIN. Returns "" when the finder has no match.
func (c *KRXClient) resolveISIN(ctx context.Context, symbol string) (string, error) {
	if isISIN(symbol) {
		return symbol, nil
	}

	form := url.Values{}
	form.Set("bld", krxFinderBld)
	form.Set("locale", "ko_KR")
	form.Set("mktsel", "ALL")
	form.Set("typeNo", "0")
	form.Set("searchText", symbol)

	var resp krxFinderResponse
	if err := c.postForm(ctx, form, &resp); err != nil {
		return "", fmt.Errorf("failed to resolve ISIN for %s: %w", symbol, err)
	}

	for _, item := range resp.Block1 {
		if item.ShortCode == symbol || strings.TrimPrefix(item.ShortCode, "A") == symbol {
			return item.FullCode, nil
		}
	}

	return "", nil
}

func (c *KRXClient) postForm(ctx context.Context, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+krxJSONPath, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("User-Agent", krxUserAgent)
	req.Header.Set("Referer", "https://data.krx.co.kr/")
	req.Header.Set("Accept", "application/json, text/javascript, */*; q=0.01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("krx returned status %d", resp.StatusCode)
	}

	if bytes.Contains(bytes.ToLower(body), []byte("<html")) {
		return fmt.Errorf("krx returned an HTML page instead of JSON (request blocked)")
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode krx response: %w", err)
	}

	return nil
}

func (r krxDailyRow) toBar(symbol string) (types.Bar, error) {
	date, err := time.Parse(krxDateLayout, strings.TrimSpace(r.TradeDate))
	if err != nil {
		return types.Bar{}, fmt.Errorf("invalid trade date %q: %w", r.TradeDate, err)
	}

	closePrice, err := parseKRXNumber(r.Close)
	if err != nil {
		return types.Bar{}, fmt.Errorf("invalid close price %q on %s: %w", r.Close, r.TradeDate, err)
	}

	// open/high/low/volume are informational only; bad values degrade to zero
	open, _ := parseKRXNumber(r.Open)
	high, _ := parseKRXNumber(r.High)
	low, _ := parseKRXNumber(r.Low)
	volume, _ := parseKRXNumber(r.Volume)

	return types.Bar{
		Symbol: symbol,
		Date:   date,
		Open:   open,
		High:   high,
		Low:    low,
		Close:  closePrice,
		Volume: volume,
	}, nil
}

// parseKRXNumber parses values like "5,000". Empty and "-" mean zero.
func parseKRXNumber(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || s == "-" {
		return decimal.Zero, nil
	}

	return decimal.NewFromString(s)
}

func isISIN(symbol string) bool {
	return len(symbol) == 12 && strings.HasPrefix(symbol, "KR")
}
