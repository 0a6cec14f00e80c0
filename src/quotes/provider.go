package quotes

import (
	"context"
	"strings"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"
)

// Quote is one priced symbol snapshot.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Currency  string    `json:"currency"`
	Name      string    `json:"name,omitempty"`
	Source    string    `json:"source"`
	Timestamp time.Time `json:"timestamp"`
}

// Provider resolves a symbol to its current price. Any failure is a hard stop
// for the trade that asked; caching and fallback policy live behind this
// interface, never in the settlement engine.
type Provider interface {
	GetQuote(ctx context.Context, symbol string) (*Quote, error)
	GetPrice(ctx context.Context, symbol string) (float64, error)
}

type source interface {
	fetch(ctx context.Context, symbol string) (*Quote, error)
}

// Service routes symbols to their market source and caches results.
// Casablanca Bourse symbols go to the scraper, crypto pairs (BASE-QUOTE) to
// the exchange ticker, everything else to Yahoo Finance.
type Service struct {
	yahoo      source
	casablanca *CasablancaSource
	crypto     source

	cache quoteCache
	ttl   time.Duration
	ttlMa time.Duration
	now   func() time.Time
}

// NewService builds the default provider from env config.
func NewService() *Service {
	config := GetConfig()

	return &Service{
		yahoo:      NewYahooSource(config),
		casablanca: NewCasablancaSource(config),
		crypto:     NewCryptoSource(),
		ttl:        config.QuoteCacheTTL,
		ttlMa:      config.MoroccoCacheTTL,
		now:        time.Now,
	}
}

func (s *Service) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	ttl := s.ttl
	if s.casablanca.Knows(symbol) {
		ttl = s.ttlMa
	}

	if quote, ok := s.cache.get(symbol, s.now(), ttl); ok {
		return quote, nil
	}

	quote, err := s.resolve(ctx, symbol)
	if err != nil {
		logger.WithError(err).WithField("symbol", symbol).Warn("Quote fetch failed")
		return nil, err
	}

	s.cache.put(symbol, quote, s.now())
	return quote, nil
}

func (s *Service) GetPrice(ctx context.Context, symbol string) (float64, error) {
	quote, err := s.GetQuote(ctx, symbol)
	if err != nil {
		return 0, err
	}
	return quote.Price, nil
}

func (s *Service) resolve(ctx context.Context, symbol string) (*Quote, error) {
	switch {
	case s.casablanca.Knows(symbol):
		return s.casablanca.fetch(ctx, symbol)
	case isCryptoPair(symbol):
		return s.crypto.fetch(ctx, symbol)
	default:
		return s.yahoo.fetch(ctx, symbol)
	}
}

func isCryptoPair(symbol string) bool {
	base, quote, found := strings.Cut(symbol, "-")
	if !found {
		return false
	}
	switch quote {
	case "USDT", "USDC", "BTC", "ETH", "BUSD":
		return base != ""
	}
	return false
}

// quoteCache is a small TTL cache guarding the upstream sources.
type quoteCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
}

type cacheEntry struct {
	quote     *Quote
	fetchedAt time.Time
}

func (c *quoteCache) get(symbol string, now time.Time, ttl time.Duration) (*Quote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[symbol]
	if !ok || now.Sub(entry.fetchedAt) >= ttl {
		return nil, false
	}
	return entry.quote, true
}

func (c *quoteCache) put(symbol string, quote *Quote, now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.entries == nil {
		c.entries = make(map[string]cacheEntry)
	}
	c.entries[symbol] = cacheEntry{quote: quote, fetchedAt: now}
}
