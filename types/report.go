package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type Fill struct {
	Date        time.Time       `json:"date"`
	Symbol      string          `json:"symbol"`
	Side        Side            `json:"side"`
	Price       decimal.Decimal `json:"price"`
	Quantity    decimal.Decimal `json:"quantity"`
	Commission  decimal.Decimal `json:"commission"`
	StampDuty   decimal.Decimal `json:"stampDuty"`
	TransferFee decimal.Decimal `json:"transferFee"`
	Fee         decimal.Decimal `json:"fee"`
	// RealizedPnL is only set on sells.
	RealizedPnL decimal.Decimal `json:"realizedPnl"`
	Reason      FillReason      `json:"reason"`
}

// UnexecutedOrder is an order the engine generated or received for the day
// but could not (fully) execute.
type UnexecutedOrder struct {
	Order  TradeOrder `json:"order"`
	Reason string     `json:"reason"`
}

type DayReport struct {
	Date             time.Time         `json:"date"`
	CashAvailable    decimal.Decimal   `json:"cashAvailable"`
	MarketValue      decimal.Decimal   `json:"marketValue"`
	Holdings         []PositionLine    `json:"holdings"`
	Fills            []Fill            `json:"fills"`
	PendingSignal    []UnexecutedOrder `json:"pendingSignal"`
	RealizedPnL      decimal.Decimal   `json:"realizedPnl"`
	FeesPaid         decimal.Decimal   `json:"feesPaid"`
	CumulativeReturn decimal.Decimal   `json:"cumulativeReturn"`
}

func (r DayReport) TotalValue() decimal.Decimal {
	return r.CashAvailable.Add(r.MarketValue)
}
