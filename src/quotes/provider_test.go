package quotes

import (
	"context"
	"testing"
	"time"
)

type fakeSource struct {
	quote *Quote
	err   error
	calls int
}

func (f *fakeSource) fetch(ctx context.Context, symbol string) (*Quote, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	q := *f.quote
	q.Symbol = symbol
	return &q, nil
}

func newTestService(yahoo, crypto *fakeSource) (*Service, *time.Time) {
	clock := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	svc := &Service{
		yahoo:      yahoo,
		casablanca: NewCasablancaSource(Config{CasablancaBaseURL: "http://127.0.0.1:1", HTTPTimeout: 100 * time.Millisecond}),
		crypto:     crypto,
		ttl:        30 * time.Second,
		ttlMa:      60 * time.Second,
		now:        func() time.Time { return clock },
	}
	return svc, &clock
}

func TestServiceRoutesBySymbol(t *testing.T) {
	yahoo := &fakeSource{quote: &Quote{Price: 150, Source: "yahoo"}}
	crypto := &fakeSource{quote: &Quote{Price: 64000, Source: "binance"}}
	svc, _ := newTestService(yahoo, crypto)

	quote, err := svc.GetQuote(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error fetching equity quote: %v", err)
	}
	if quote.Source != "yahoo" || yahoo.calls != 1 {
		t.Fatalf("expected yahoo route for AAPL, got %+v (calls=%d)", quote, yahoo.calls)
	}

	quote, err = svc.GetQuote(context.Background(), "BTC-USDT")
	if err != nil {
		t.Fatalf("unexpected error fetching crypto quote: %v", err)
	}
	if quote.Source != "binance" || crypto.calls != 1 {
		t.Fatalf("expected crypto route for BTC-USDT, got %+v (calls=%d)", quote, crypto.calls)
	}

	// Dashed pairs with a non-crypto quote leg still go to Yahoo (e.g. BRK-B).
	if _, err := svc.GetQuote(context.Background(), "BRK-B"); err != nil {
		t.Fatalf("unexpected error fetching BRK-B: %v", err)
	}
	if yahoo.calls != 2 {
		t.Fatalf("expected yahoo to serve BRK-B, calls=%d", yahoo.calls)
	}
}

func TestServiceNormalizesSymbol(t *testing.T) {
	yahoo := &fakeSource{quote: &Quote{Price: 150, Source: "yahoo"}}
	svc, _ := newTestService(yahoo, &fakeSource{quote: &Quote{Price: 1}})

	quote, err := svc.GetQuote(context.Background(), "  aapl ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Symbol != "AAPL" {
		t.Fatalf("expected normalized symbol AAPL, got %q", quote.Symbol)
	}
}

func TestServiceCachesWithinTTL(t *testing.T) {
	yahoo := &fakeSource{quote: &Quote{Price: 150, Source: "yahoo"}}
	svc, clock := newTestService(yahoo, &fakeSource{quote: &Quote{Price: 1}})

	for i := 0; i < 3; i++ {
		if _, err := svc.GetQuote(context.Background(), "AAPL"); err != nil {
			t.Fatalf("unexpected error on fetch %d: %v", i, err)
		}
	}
	if yahoo.calls != 1 {
		t.Fatalf("expected a single upstream call within TTL, got %d", yahoo.calls)
	}

	*clock = clock.Add(31 * time.Second)
	if _, err := svc.GetQuote(context.Background(), "AAPL"); err != nil {
		t.Fatalf("unexpected error after TTL expiry: %v", err)
	}
	if yahoo.calls != 2 {
		t.Fatalf("expected refetch after TTL expiry, got %d calls", yahoo.calls)
	}
}

func TestServicePriceShortcut(t *testing.T) {
	yahoo := &fakeSource{quote: &Quote{Price: 150.25, Source: "yahoo"}}
	svc, _ := newTestService(yahoo, &fakeSource{quote: &Quote{Price: 1}})

	price, err := svc.GetPrice(context.Background(), "AAPL")
	if err != nil {
		t.Fatalf("unexpected error fetching price: %v", err)
	}
	if price != 150.25 {
		t.Fatalf("expected price 150.25, got %v", price)
	}
}

func TestIsCryptoPair(t *testing.T) {
	cases := []struct {
		symbol string
		want   bool
	}{
		{"BTC-USDT", true},
		{"ETH-USDC", true},
		{"SOL-BTC", true},
		{"BTC-USD", false},
		{"BRK-B", false},
		{"AAPL", false},
		{"-USDT", false},
	}

	for _, tc := range cases {
		if got := isCryptoPair(tc.symbol); got != tc.want {
			t.Fatalf("isCryptoPair(%q) = %v, want %v", tc.symbol, got, tc.want)
		}
	}
}
