package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type SignalKind string

const (
	KindSelection SignalKind = "selection"
	KindTiming    SignalKind = "timing"
	KindTrade     SignalKind = "trade"
	KindRisk      SignalKind = "risk"
)

// Payload is the strategy specific body of a raw signal record. The set of
// implementations is closed: SelectionPayload, TimingPayload, TradePayload and RiskPayload.
type Payload interface {
	Kind() SignalKind
	sealed()
}

type SelectionPayload struct {
	Scores []SymbolScore
}

// TimingPayload carries the desired equity exposure as a fraction of total assets.
type TimingPayload struct {
	TargetPosition decimal.Decimal
}

type TradePayload struct {
	Orders []TradeOrder
}

type RiskPayload struct {
	Symbols []string
}

func (SelectionPayload) Kind() SignalKind { return KindSelection }
func (TimingPayload) Kind() SignalKind    { return KindTiming }
func (TradePayload) Kind() SignalKind     { return KindTrade }
func (RiskPayload) Kind() SignalKind      { return KindRisk }

func (SelectionPayload) sealed() {}
func (TimingPayload) sealed()    {}
func (TradePayload) sealed()     {}
func (RiskPayload) sealed()      {}

// RawSignal is one record as produced by a single strategy for a single date.
type RawSignal struct {
	Date    time.Time
	Payload Payload
}

func NewRawSignal(date time.Time, payload Payload) RawSignal {
	return RawSignal{Date: TradeDate(date), Payload: payload}
}

// DaySignal is the normalized decision input for one trading date.
type DaySignal struct {
	Date time.Time
	// Selection is ordered most preferred first.
	Selection []SymbolScore
	// TimingTargetPosition is nil when no timing strategy reported for the day.
	TimingTargetPosition *decimal.Decimal
	TradeOrders          []TradeOrder
	RiskFlags            map[string]struct{}
}

func (s DaySignal) Flagged(symbol string) bool {
	_, ok := s.RiskFlags[symbol]
	return ok
}
