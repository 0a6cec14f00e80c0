package quotes

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultYahooBaseURL = "https://query1.finance.yahoo.com"

// YahooSource fetches quotes from the Yahoo Finance chart endpoint.
type YahooSource struct {
	baseURL string
	http    *resty.Client
}

type yahooChartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string  `json:"symbol"`
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				PreviousClose      float64 `json:"previousClose"`
				Currency           string  `json:"currency"`
				LongName           string  `json:"longName"`
			} `json:"meta"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

func NewYahooSource(config Config) *YahooSource {
	baseURL := strings.TrimRight(config.YahooBaseURL, "/")
	if baseURL == "" {
		baseURL = defaultYahooBaseURL
	}

	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(config.HTTPTimeout).
		SetRetryCount(config.RetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(4 * time.Second)

	return &YahooSource{
		baseURL: baseURL,
		http:    httpClient,
	}
}

func (y *YahooSource) fetch(ctx context.Context, symbol string) (*Quote, error) {
	var payload yahooChartResponse

	resp, err := y.http.R().
		SetContext(ctx).
		SetPathParam("symbol", symbol).
		SetQueryParams(map[string]string{
			"interval": "1m",
			"range":    "1d",
		}).
		SetResult(&payload).
		Get("/v8/finance/chart/{symbol}")

	if err != nil {
		return nil, fmt.Errorf("yahoo chart request failed: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("yahoo chart non-2xx status: %d", resp.StatusCode())
	}
	if payload.Chart.Error != nil {
		return nil, fmt.Errorf("yahoo chart error: %s", payload.Chart.Error.Description)
	}
	if len(payload.Chart.Result) == 0 {
		return nil, fmt.Errorf("yahoo chart returned no result for %s", symbol)
	}

	meta := payload.Chart.Result[0].Meta

	price := meta.RegularMarketPrice
	if price == 0 {
		price = meta.PreviousClose
	}
	if price <= 0 {
		return nil, fmt.Errorf("yahoo chart returned no usable price for %s", symbol)
	}

	currency := meta.Currency
	if currency == "" {
		currency = "USD"
	}

	return &Quote{
		Symbol:    symbol,
		Price:     price,
		Currency:  currency,
		Name:      meta.LongName,
		Source:    "yahoo",
		Timestamp: time.Now().UTC(),
	}, nil
}
