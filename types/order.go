package types

import (
	"github.com/shopspring/decimal"
)

// TradeOrder is an explicit instruction from a trading strategy. A zero
// LimitPrice means execute at the day's close with no limit check.
type TradeOrder struct {
	Symbol     string          `json:"symbol"`
	Side       Side            `json:"side"`
	Quantity   decimal.Decimal `json:"quantity"`
	LimitPrice decimal.Decimal `json:"limitPrice"`
}

func NewTradeOrder(symbol string, side Side, quantity, limitPrice decimal.Decimal) TradeOrder {
	return TradeOrder{
		Symbol:     symbol,
		Side:       side,
		Quantity:   quantity,
		LimitPrice: limitPrice,
	}
}

// SymbolScore is one ranked entry of a selection signal.
type SymbolScore struct {
	Symbol string          `json:"symbol"`
	Score  decimal.Decimal `json:"score"`
}
