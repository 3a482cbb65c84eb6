package engine

import (
	"robotbacktester/types"

	"github.com/shopspring/decimal"
)

// FormattedDay is the transport shape of one simulated day.
type FormattedDay struct {
	Date             string             `json:"date"`
	CashAvailable    float64            `json:"cash_available"`
	MarketValue      float64            `json:"market_value"`
	TotalAsset       float64            `json:"total_asset"`
	Holdings         []FormattedHolding `json:"holdings"`
	Fills            []FormattedFill    `json:"fills"`
	PendingSignal    []FormattedPending `json:"pending_signal"`
	HasPendingSignal bool               `json:"has_pending_signal"`
	RealizedPnL      float64            `json:"realized_pnl"`
	FeesPaid         float64            `json:"fees_paid"`
	CumulativeReturn float64            `json:"cumulative_return"`
}

type FormattedHolding struct {
	Symbol        string  `json:"symbol"`
	Exchange      string  `json:"exchange"`
	Quantity      int64   `json:"quantity"`
	AvgCost       float64 `json:"avg_cost"`
	Price         float64 `json:"price"`
	MarketValue   float64 `json:"market_value"`
	ProfitLoss    float64 `json:"profit_loss"`
	Return        float64 `json:"return"`
	Weight        float64 `json:"weight"`
	StopLoss      float64 `json:"stop_loss"`
	StopProfit    float64 `json:"stop_profit"`
	FirstHeldDate string  `json:"first_held_date"`
}

type FormattedFill struct {
	Symbol      string  `json:"symbol"`
	Side        string  `json:"side"`
	Price       float64 `json:"price"`
	Quantity    int64   `json:"quantity"`
	Amount      float64 `json:"amount"`
	Commission  float64 `json:"commission"`
	StampDuty   float64 `json:"stamp_duty"`
	TransferFee float64 `json:"transfer_fee"`
	Fee         float64 `json:"fee"`
	RealizedPnL float64 `json:"realized_pnl"`
	Reason      string  `json:"reason"`
}

type FormattedPending struct {
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Quantity   int64   `json:"quantity"`
	LimitPrice float64 `json:"limit_price"`
	Reason     string  `json:"reason"`
}

// FormatDay renders a report and the holdings snapshot it carries. It does
// not modify the report.
func FormatDay(report types.DayReport) FormattedDay {
	out := FormattedDay{
		Date:             types.DateKey(report.Date),
		CashAvailable:    report.CashAvailable.InexactFloat64(),
		MarketValue:      report.MarketValue.InexactFloat64(),
		TotalAsset:       report.TotalValue().InexactFloat64(),
		Holdings:         make([]FormattedHolding, 0, len(report.Holdings)),
		Fills:            make([]FormattedFill, 0, len(report.Fills)),
		PendingSignal:    make([]FormattedPending, 0, len(report.PendingSignal)),
		HasPendingSignal: len(report.PendingSignal) > 0,
		RealizedPnL:      report.RealizedPnL.InexactFloat64(),
		FeesPaid:         report.FeesPaid.InexactFloat64(),
		CumulativeReturn: report.CumulativeReturn.InexactFloat64(),
	}

	total := decimal.Zero
	for _, line := range report.Holdings {
		total = total.Add(line.MarketValue())
	}
	for _, line := range report.Holdings {
		out.Holdings = append(out.Holdings, formatHolding(line, total))
	}

	for _, f := range report.Fills {
		out.Fills = append(out.Fills, FormattedFill{
			Symbol:      f.Symbol,
			Side:        string(f.Side),
			Price:       f.Price.InexactFloat64(),
			Quantity:    f.Quantity.IntPart(),
			Amount:      f.Price.Mul(f.Quantity).InexactFloat64(),
			Commission:  f.Commission.InexactFloat64(),
			StampDuty:   f.StampDuty.InexactFloat64(),
			TransferFee: f.TransferFee.InexactFloat64(),
			Fee:         f.Fee.InexactFloat64(),
			RealizedPnL: f.RealizedPnL.InexactFloat64(),
			Reason:      string(f.Reason),
		})
	}

	for _, p := range report.PendingSignal {
		out.PendingSignal = append(out.PendingSignal, FormattedPending{
			Symbol:     p.Order.Symbol,
			Side:       string(p.Order.Side),
			Quantity:   p.Order.Quantity.IntPart(),
			LimitPrice: p.Order.LimitPrice.InexactFloat64(),
			Reason:     p.Reason,
		})
	}
	return out
}

func formatHolding(line types.PositionLine, totalMarketValue decimal.Decimal) FormattedHolding {
	mv := line.MarketValue()
	ret := decimal.Zero
	if line.AvgCost.IsPositive() {
		ret = line.LastPrice.Sub(line.AvgCost).Div(line.AvgCost)
	}
	weight := decimal.Zero
	if totalMarketValue.IsPositive() {
		weight = mv.Div(totalMarketValue)
	}
	first := ""
	if !line.FirstHeldDate.IsZero() {
		first = types.DateKey(line.FirstHeldDate)
	}
	return FormattedHolding{
		Symbol:        line.Symbol,
		Exchange:      string(line.Exchange),
		Quantity:      line.Quantity.IntPart(),
		AvgCost:       line.AvgCost.InexactFloat64(),
		Price:         line.LastPrice.InexactFloat64(),
		MarketValue:   mv.InexactFloat64(),
		ProfitLoss:    line.LastPrice.Sub(line.AvgCost).Mul(line.Quantity).InexactFloat64(),
		Return:        ret.InexactFloat64(),
		Weight:        weight.InexactFloat64(),
		StopLoss:      line.StopLoss.InexactFloat64(),
		StopProfit:    line.StopProfit.InexactFloat64(),
		FirstHeldDate: first,
	}
}
