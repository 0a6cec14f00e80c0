package signals

import (
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tradesense/src/model"
)

// Generator produces synthetic trading signal tickets. Randomness and clock
// are injectable so tests can pin exact tickets. One instance serves both the
// HTTP handlers and the feed hub, so draws are guarded by a lock.
type Generator struct {
	symbol    string
	basePrice float64
	now       func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

func NewGenerator(config Config) *Generator {
	return &Generator{
		symbol:    config.Symbol,
		basePrice: config.BasePrice,
		now:       time.Now,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func round2f(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Generate draws one new ticket around the configured base price.
func (g *Generator) Generate() model.SignalTicket {
	g.mu.Lock()
	price := g.basePrice + (g.rng.Float64()*20 - 10)
	isLong := g.rng.Intn(2) == 0
	confidence := 70 + g.rng.Float64()*25
	g.mu.Unlock()

	signalType := model.SignalTypeShort
	stopLoss := price + 5
	takeProfit := price - 10
	if isLong {
		signalType = model.SignalTypeLong
		stopLoss = price - 5
		takeProfit = price + 10
	}

	ts := g.now().UTC()
	return model.SignalTicket{
		Timestamp:  &ts,
		Symbol:     g.symbol,
		SignalType: signalType,
		EntryPrice: round2f(price),
		StopLoss:   round2f(stopLoss),
		TakeProfit: round2f(takeProfit),
		Confidence: round2f(confidence),
		Status:     model.SignalStatusGenerated,
	}
}

// Waiting is the placeholder ticket for a session that has not received a
// generated signal yet.
func (g *Generator) Waiting() model.SignalTicket {
	return model.SignalTicket{
		Symbol:     g.symbol,
		SignalType: model.SignalTypeWaiting,
		Status:     model.SignalStatusWaiting,
	}
}
