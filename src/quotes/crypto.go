package quotes

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nntaoli-project/goex"
	"github.com/nntaoli-project/goex/binance"
)

// CryptoSource resolves BASE-QUOTE pairs against the Binance public ticker.
type CryptoSource struct {
	exchange goex.API
}

func NewCryptoSource() *CryptoSource {
	apiConfig := &goex.APIConfig{
		HttpClient: http.DefaultClient,
		Endpoint:   binance.GLOBAL_API_BASE_URL,
	}
	return &CryptoSource{
		exchange: binance.NewWithConfig(apiConfig),
	}
}

func (c *CryptoSource) fetch(ctx context.Context, symbol string) (*Quote, error) {
	base, quote, found := strings.Cut(symbol, "-")
	if !found {
		return nil, fmt.Errorf("not a crypto pair: %s", symbol)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pair := goex.NewCurrencyPair(goex.Currency{Symbol: base}, goex.Currency{Symbol: quote})

	ticker, err := c.exchange.GetTicker(pair)
	if err != nil {
		return nil, fmt.Errorf("binance ticker failed for %s: %w", symbol, err)
	}
	if ticker.Last <= 0 {
		return nil, fmt.Errorf("binance returned no usable price for %s", symbol)
	}

	return &Quote{
		Symbol:    symbol,
		Price:     ticker.Last,
		Currency:  quote,
		Source:    "binance",
		Timestamp: time.Now().UTC(),
	}, nil
}
