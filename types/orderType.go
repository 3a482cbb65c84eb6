package types

import "strings"

type Side string

type Exchange string

type FillReason string

const (
	SideTypeBuy  Side = "BUY"
	SideTypeSell Side = "SELL"

	ExchangeSH Exchange = "SH"
	ExchangeSZ Exchange = "SZ"

	ReasonStopLoss      FillReason = "stop_loss"
	ReasonStopProfit    FillReason = "stop_profit"
	ReasonRisk          FillReason = "risk"
	ReasonTradeSignal   FillReason = "trade_signal"
	ReasonRebalanceBuy  FillReason = "rebalance_buy"
	ReasonRebalanceSell FillReason = "rebalance_sell"
)

func (s Side) Valid() bool {
	return s == SideTypeBuy || s == SideTypeSell
}

// ExchangeForSymbol maps a six digit A-share code to its listing exchange.
// Shanghai codes start with 6 (A shares) or 9 (B shares); everything else is Shenzhen.
func ExchangeForSymbol(symbol string) Exchange {
	if strings.HasPrefix(symbol, "6") || strings.HasPrefix(symbol, "9") {
		return ExchangeSH
	}
	return ExchangeSZ
}
