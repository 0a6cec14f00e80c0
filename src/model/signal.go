package model

import "time"

const (
	SignalTypeLong    = "LONG"
	SignalTypeShort   = "SHORT"
	SignalTypeWaiting = "WAITING"

	SignalStatusWaiting   = "WAITING"
	SignalStatusGenerated = "SIGNAL_GENERATED"
)

// SignalTicket is a synthetic trading signal produced by the signal generator.
// Tickets are held per session, never in process-global state.
type SignalTicket struct {
	Timestamp  *time.Time `json:"timestamp"`
	Symbol     string     `json:"symbol"`
	SignalType string     `json:"signal_type"`
	EntryPrice float64    `json:"entry_price"`
	StopLoss   float64    `json:"sl"`
	TakeProfit float64    `json:"tp"`
	Confidence float64    `json:"confidence"`
	Status     string     `json:"status"`
}
