package engine

import (
	"fmt"
	"sort"
	"time"

	"robotbacktester/types"

	"github.com/shopspring/decimal"
)

// PriceLookup resolves the closing price of a symbol on a trade date.
type PriceLookup interface {
	Close(symbol string, date time.Time) (decimal.Decimal, bool)
}

// PositionBook is the per-run holdings ledger. Lines with zero quantity are
// removed, never kept.
type PositionBook struct {
	lines map[string]*types.PositionLine
}

// NewPositionBook copies the initial holdings so runs never alias each other.
func NewPositionBook(initial []types.PositionLine) (*PositionBook, error) {
	b := &PositionBook{lines: make(map[string]*types.PositionLine, len(initial))}
	for _, line := range initial {
		if line.Symbol == "" || !line.Quantity.IsPositive() || !wholeQuantity(line.Quantity) || line.AvgCost.IsNegative() {
			return nil, fmt.Errorf("initial holding %q: %w", line.Symbol, InvalidTradeParamsErr)
		}
		if _, ok := b.lines[line.Symbol]; ok {
			return nil, fmt.Errorf("initial holding %q listed twice: %w", line.Symbol, InvalidTradeParamsErr)
		}
		l := line
		if l.Exchange == "" {
			l.Exchange = types.ExchangeForSymbol(l.Symbol)
		}
		if l.LastPrice.IsZero() {
			l.LastPrice = l.AvgCost
		}
		b.lines[l.Symbol] = &l
	}
	return b, nil
}

func (b *PositionBook) clone() *PositionBook {
	c := &PositionBook{lines: make(map[string]*types.PositionLine, len(b.lines))}
	for sym, line := range b.lines {
		l := *line
		c.lines[sym] = &l
	}
	return c
}

// ApplyFill books a buy or sell and returns the realized P&L of a sell.
func (b *PositionBook) ApplyFill(date time.Time, symbol string, side types.Side, quantity, price, fee decimal.Decimal) (decimal.Decimal, error) {
	if !quantity.IsPositive() || !wholeQuantity(quantity) || price.IsNegative() || fee.IsNegative() {
		return decimal.Zero, fmt.Errorf("%s %s qty %s @ %s: %w", side, symbol, quantity, price, InvalidTradeParamsErr)
	}

	pos := b.lines[symbol]
	switch side {
	case types.SideTypeBuy:
		if pos == nil {
			pos = &types.PositionLine{
				Symbol:        symbol,
				Exchange:      types.ExchangeForSymbol(symbol),
				FirstHeldDate: date,
			}
			b.lines[symbol] = pos
		}
		pos.AvgCost = weightedAvg(pos.AvgCost, pos.Quantity, price, quantity)
		pos.Quantity = pos.Quantity.Add(quantity)
		pos.LastPrice = price
		pos.LastFillDate = date
		return decimal.Zero, nil

	case types.SideTypeSell:
		if pos == nil || quantity.GreaterThan(pos.Quantity) {
			held := decimal.Zero
			if pos != nil {
				held = pos.Quantity
			}
			return decimal.Zero, fmt.Errorf("sell %s qty %s, holding %s: %w", symbol, quantity, held, InsufficientHoldingsErr)
		}
		realized := price.Sub(pos.AvgCost).Mul(quantity).Sub(fee)
		pos.Quantity = pos.Quantity.Sub(quantity)
		pos.LastPrice = price
		pos.LastFillDate = date
		if pos.Quantity.IsZero() {
			delete(b.lines, symbol)
		}
		return realized, nil

	default:
		return decimal.Zero, UnknownSideErr
	}
}

// MarkToMarket moves every line with a close on date to that price and
// returns the aggregate market value. Lines without a close keep their last price.
func (b *PositionBook) MarkToMarket(date time.Time, prices PriceLookup) decimal.Decimal {
	for sym, pos := range b.lines {
		if c, ok := prices.Close(sym, date); ok {
			pos.LastPrice = c
		}
	}
	return b.MarketValue()
}

// ApplyStopRules returns the symbols whose close on date breached their
// stop-loss or stop-profit bound. It does not sell anything.
func (b *PositionBook) ApplyStopRules(date time.Time, prices PriceLookup) map[string]types.FillReason {
	out := make(map[string]types.FillReason)
	for sym, pos := range b.lines {
		c, ok := prices.Close(sym, date)
		if !ok {
			continue
		}
		switch {
		case pos.StopLoss.IsPositive() && c.LessThanOrEqual(pos.StopLoss):
			out[sym] = types.ReasonStopLoss
		case pos.StopProfit.IsPositive() && c.GreaterThanOrEqual(pos.StopProfit):
			out[sym] = types.ReasonStopProfit
		}
	}
	return out
}

func (b *PositionBook) ApplyUpdate(symbol string, upd types.PositionUpdate) error {
	pos := b.lines[symbol]
	if pos == nil {
		return fmt.Errorf("update %s: %w", symbol, InsufficientHoldingsErr)
	}
	if upd.StopLoss != nil {
		if upd.StopLoss.IsNegative() {
			return fmt.Errorf("stop loss %s: %w", upd.StopLoss, InvalidTradeParamsErr)
		}
		pos.StopLoss = *upd.StopLoss
	}
	if upd.StopProfit != nil {
		if upd.StopProfit.IsNegative() {
			return fmt.Errorf("stop profit %s: %w", upd.StopProfit, InvalidTradeParamsErr)
		}
		pos.StopProfit = *upd.StopProfit
	}
	if upd.LastPrice != nil {
		pos.LastPrice = *upd.LastPrice
	}
	return nil
}

func (b *PositionBook) Line(symbol string) (types.PositionLine, bool) {
	pos, ok := b.lines[symbol]
	if !ok {
		return types.PositionLine{}, false
	}
	return *pos, true
}

func (b *PositionBook) Holds(symbol string) bool {
	_, ok := b.lines[symbol]
	return ok
}

func (b *PositionBook) Len() int {
	return len(b.lines)
}

// Symbols returns the held symbols in ascending order.
func (b *PositionBook) Symbols() []string {
	out := make([]string, 0, len(b.lines))
	for sym := range b.lines {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func (b *PositionBook) MarketValue() decimal.Decimal {
	total := decimal.Zero
	for _, pos := range b.lines {
		total = total.Add(pos.MarketValue())
	}
	return total
}

// Snapshot returns copies of all lines ordered by symbol.
func (b *PositionBook) Snapshot() []types.PositionLine {
	out := make([]types.PositionLine, 0, len(b.lines))
	for _, sym := range b.Symbols() {
		out = append(out, *b.lines[sym])
	}
	return out
}

// wholeQuantity reports whether q is a whole number of shares.
func wholeQuantity(q decimal.Decimal) bool {
	return q.Equal(q.Truncate(0))
}

func weightedAvg(existingAvgPrice, existingQty, newPrice, newQty decimal.Decimal) decimal.Decimal {
	if existingQty.IsZero() {
		return newPrice
	}
	return existingAvgPrice.Mul(existingQty).
		Add(newPrice.Mul(newQty)).
		Div(existingQty.Add(newQty))
}
