package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PositionLine is one symbol's holding. StopLoss zero and StopProfit zero both
// mean the bound is not set.
type PositionLine struct {
	Symbol        string          `json:"symbol"`
	Exchange      Exchange        `json:"exchange"`
	Quantity      decimal.Decimal `json:"quantity"`
	AvgCost       decimal.Decimal `json:"avgCost"`
	StopLoss      decimal.Decimal `json:"stopLoss"`
	StopProfit    decimal.Decimal `json:"stopProfit"`
	FirstHeldDate time.Time       `json:"firstHeldDate"`
	LastFillDate  time.Time       `json:"lastFillDate"`
	LastPrice     decimal.Decimal `json:"lastPrice"`
}

func (l PositionLine) MarketValue() decimal.Decimal {
	return l.Quantity.Mul(l.LastPrice)
}

// PositionUpdate changes a line field by field. A nil field leaves the
// current value untouched.
type PositionUpdate struct {
	StopLoss   *decimal.Decimal
	StopProfit *decimal.Decimal
	LastPrice  *decimal.Decimal
}
