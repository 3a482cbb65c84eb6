package engine

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"robotbacktester/types"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type State string

const (
	StateReady   State = "READY"
	StateRunning State = "RUNNING"
	StateDone    State = "DONE"
	StateFailed  State = "FAILED"
)

// MatchEngine replays one robot's day signals against historical closes.
// It is not safe for concurrent use; independent runs use independent engines.
type MatchEngine struct {
	cfg    Config
	fees   FeeModel
	prices PriceLookup
	logger *zap.Logger

	cash         decimal.Decimal
	book         *PositionBook
	initialTotal decimal.Decimal
	lastDate     time.Time
	state        State
	failure      error
}

func NewMatchEngine(
	initial types.Asset,
	holdings []types.PositionLine,
	fees FeeModel,
	prices PriceLookup,
	cfg Config,
	logger *zap.Logger,
) (*MatchEngine, error) {
	if initial.Cash.IsNegative() || initial.MarketValue.IsNegative() {
		return nil, fmt.Errorf("initial asset %s/%s: %w", initial.Cash, initial.MarketValue, InvalidTradeParamsErr)
	}
	if prices == nil {
		prices = types.PriceTable{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	book, err := NewPositionBook(holdings)
	if err != nil {
		return nil, err
	}
	return &MatchEngine{
		cfg:          cfg,
		fees:         fees,
		prices:       prices,
		logger:       logger,
		cash:         initial.Cash,
		book:         book,
		initialTotal: initial.Total(),
		state:        StateReady,
	}, nil
}

func (e *MatchEngine) State() State                   { return e.state }
func (e *MatchEngine) Cash() decimal.Decimal          { return e.cash }
func (e *MatchEngine) Holdings() []types.PositionLine { return e.book.Snapshot() }
func (e *MatchEngine) LastDate() time.Time            { return e.lastDate }
func (e *MatchEngine) Err() error                     { return e.failure }

// Finish marks the sequence as exhausted. It is idempotent.
func (e *MatchEngine) Finish() error {
	switch e.state {
	case StateFailed:
		return fmt.Errorf("%w: %v", EngineFailedErr, e.failure)
	default:
		e.state = StateDone
		return nil
	}
}

// Step simulates one trading date. Either the whole day commits or the
// engine moves to StateFailed with cash and holdings left at the prior day.
func (e *MatchEngine) Step(sig types.DaySignal) (types.DayReport, error) {
	switch e.state {
	case StateFailed:
		return types.DayReport{}, fmt.Errorf("%w: %v", EngineFailedErr, e.failure)
	case StateDone:
		return types.DayReport{}, EngineDoneErr
	}

	date := types.TradeDate(sig.Date)
	if e.state == StateRunning && !date.After(e.lastDate) {
		return types.DayReport{}, e.fail(fmt.Errorf("%s after %s: %w", types.DateKey(date), types.DateKey(e.lastDate), OutOfOrderDateErr))
	}
	if err := validateDaySignal(sig); err != nil {
		return types.DayReport{}, e.fail(err)
	}

	d := &day{
		engine: e,
		date:   date,
		sig:    sig,
		cash:   e.cash,
		book:   e.book.clone(),
		vetoed: make(map[string]bool),
	}
	report, err := d.run()
	if err != nil {
		return types.DayReport{}, e.fail(fmt.Errorf("%s: %w", types.DateKey(date), err))
	}

	e.cash = d.cash
	e.book = d.book
	e.lastDate = date
	e.state = StateRunning

	e.logger.Debug("day committed",
		zap.String("date", types.DateKey(date)),
		zap.String("cash", report.CashAvailable.String()),
		zap.String("market_value", report.MarketValue.String()),
		zap.Int("fills", len(report.Fills)),
		zap.Int("pending", len(report.PendingSignal)),
	)
	return report, nil
}

func (e *MatchEngine) fail(err error) error {
	e.state = StateFailed
	e.failure = err
	e.logger.Error("match engine failed", zap.Error(err))
	return err
}

// day holds the working state of one Step. Nothing here is visible to the
// engine until run returns without error.
type day struct {
	engine *MatchEngine
	date   time.Time
	sig    types.DaySignal

	cash     decimal.Decimal
	book     *PositionBook
	vetoed   map[string]bool
	fills    []types.Fill
	pending  []types.UnexecutedOrder
	realized decimal.Decimal
	fees     decimal.Decimal
}

func (d *day) run() (types.DayReport, error) {
	e := d.engine

	d.book.MarkToMarket(d.date, e.prices)

	forced := d.book.ApplyStopRules(d.date, e.prices)
	for sym := range d.sig.RiskFlags {
		d.vetoed[sym] = true
		if _, ok := forced[sym]; !ok && d.book.Holds(sym) {
			forced[sym] = types.ReasonRisk
		}
	}
	if err := d.forcedSells(forced); err != nil {
		return types.DayReport{}, err
	}

	if len(d.sig.TradeOrders) > 0 {
		for _, o := range d.sig.TradeOrders {
			if err := d.explicitOrder(o); err != nil {
				return types.DayReport{}, err
			}
		}
	} else if err := d.rebalance(); err != nil {
		return types.DayReport{}, err
	}

	mv := d.book.MarketValue()
	ret := decimal.Zero
	if e.initialTotal.IsPositive() {
		ret = d.cash.Add(mv).Div(e.initialTotal).Sub(one)
	}
	return types.DayReport{
		Date:             d.date,
		CashAvailable:    d.cash,
		MarketValue:      mv,
		Holdings:         d.book.Snapshot(),
		Fills:            d.fills,
		PendingSignal:    d.pending,
		RealizedPnL:      d.realized,
		FeesPaid:         d.fees,
		CumulativeReturn: ret,
	}, nil
}

// forcedSells liquidates every flagged line in full. Symbols are processed
// in ascending order so replays are identical.
func (d *day) forcedSells(forced map[string]types.FillReason) error {
	symbols := make([]string, 0, len(forced))
	for sym := range forced {
		symbols = append(symbols, sym)
	}
	sort.Strings(symbols)

	for _, sym := range symbols {
		d.vetoed[sym] = true
		line, ok := d.book.Line(sym)
		if !ok {
			continue
		}
		order := types.NewTradeOrder(sym, types.SideTypeSell, line.Quantity, decimal.Zero)
		price, ok := d.engine.prices.Close(sym, d.date)
		if !ok {
			d.skip(order, NoPriceErr)
			continue
		}
		err := d.fill(order, price, forced[sym])
		switch {
		case err == nil:
		case errors.Is(err, InsufficientHoldingsErr):
			return err
		default:
			d.skip(order, err)
		}
	}
	return nil
}

// explicitOrder executes a trade signal verbatim. Violations skip the order;
// only an unaffordable buy is clipped to whole lots.
func (d *day) explicitOrder(o types.TradeOrder) error {
	price, ok := d.engine.prices.Close(o.Symbol, d.date)
	if !ok {
		d.skip(o, NoPriceErr)
		return nil
	}
	if o.LimitPrice.IsPositive() {
		if (o.Side == types.SideTypeBuy && price.GreaterThan(o.LimitPrice)) ||
			(o.Side == types.SideTypeSell && price.LessThan(o.LimitPrice)) {
			d.skip(o, LimitNotReachedErr)
			return nil
		}
	}

	switch o.Side {
	case types.SideTypeBuy:
		if d.vetoed[o.Symbol] {
			d.skip(o, RiskVetoedErr)
			return nil
		}
		return d.buy(o, price, types.ReasonTradeSignal)
	case types.SideTypeSell:
		line, held := d.book.Line(o.Symbol)
		if !held || o.Quantity.GreaterThan(line.Quantity) {
			d.skip(o, InsufficientHoldingsErr)
			return nil
		}
		if err := d.fill(o, price, types.ReasonTradeSignal); err != nil {
			d.skip(o, err)
		}
		return nil
	default:
		return UnknownSideErr
	}
}

// rebalance derives orders from the selection ranking and timing target.
func (d *day) rebalance() error {
	target := d.sig.TimingTargetPosition
	if target == nil {
		return nil
	}
	mv := d.book.MarketValue()
	total := d.cash.Add(mv)
	if !total.IsPositive() {
		return nil
	}
	current := mv.Div(total)

	switch {
	case target.GreaterThan(current):
		return d.buyTowards(target.Sub(current).Mul(total))
	case target.LessThan(current):
		return d.reduceTowards(target.Div(current))
	}
	return nil
}

// buyTowards spends budget equally across the highest ranked unheld symbols,
// filling at most MaxHoldingsCount lines.
func (d *day) buyTowards(budget decimal.Decimal) error {
	slots := d.engine.cfg.MaxHoldingsCount - d.book.Len()
	if slots <= 0 {
		return nil
	}

	type candidate struct {
		symbol string
		price  decimal.Decimal
	}
	var picks []candidate
	for _, s := range d.sig.Selection {
		if len(picks) == slots {
			break
		}
		if d.book.Holds(s.Symbol) || d.vetoed[s.Symbol] {
			continue
		}
		price, ok := d.engine.prices.Close(s.Symbol, d.date)
		if !ok || !price.IsPositive() {
			continue
		}
		picks = append(picks, candidate{symbol: s.Symbol, price: price})
	}
	if len(picks) == 0 {
		return nil
	}

	lot := d.engine.cfg.lot()
	perSymbol := budget.Div(decimal.NewFromInt(int64(len(picks))))
	for _, c := range picks {
		unit := c.price.Mul(one.Add(d.engine.cfg.CommissionRate))
		qty := perSymbol.Div(unit).Div(lot).Floor().Mul(lot)
		if !qty.IsPositive() {
			d.skip(types.NewTradeOrder(c.symbol, types.SideTypeBuy, lot, decimal.Zero), InsufficientCashErr)
			continue
		}
		if err := d.buy(types.NewTradeOrder(c.symbol, types.SideTypeBuy, qty, decimal.Zero), c.price, types.ReasonRebalanceBuy); err != nil {
			return err
		}
	}
	return nil
}

// reduceTowards scales every line by ratio, selling whole lots. A line left
// with less than one lot is sold out.
func (d *day) reduceTowards(ratio decimal.Decimal) error {
	lot := d.engine.cfg.lot()
	for _, sym := range d.book.Symbols() {
		line, _ := d.book.Line(sym)
		keep := line.Quantity.Mul(ratio).Div(lot).Floor().Mul(lot)
		sell := line.Quantity.Sub(keep)
		if !sell.IsPositive() {
			continue
		}
		order := types.NewTradeOrder(sym, types.SideTypeSell, sell, decimal.Zero)
		price, ok := d.engine.prices.Close(sym, d.date)
		if !ok {
			d.skip(order, NoPriceErr)
			continue
		}
		if err := d.fill(order, price, types.ReasonRebalanceSell); err != nil {
			if errors.Is(err, InsufficientHoldingsErr) {
				return err
			}
			d.skip(order, err)
		}
	}
	return nil
}

// buy fills o, clipping to the largest affordable whole-lot quantity. The
// unfilled remainder is reported as pending.
func (d *day) buy(o types.TradeOrder, price decimal.Decimal, reason types.FillReason) error {
	qty, err := d.affordable(o.Quantity, price)
	if err != nil {
		return err
	}
	if !qty.IsPositive() {
		d.skip(o, InsufficientCashErr)
		return nil
	}
	filled := o
	filled.Quantity = qty
	if err := d.fill(filled, price, reason); err != nil {
		d.skip(o, err)
		return nil
	}
	if rest := o.Quantity.Sub(qty); rest.IsPositive() {
		remainder := o
		remainder.Quantity = rest
		d.skip(remainder, InsufficientCashErr)
	}

	cfg := d.engine.cfg
	if cfg.StopLossRate.IsPositive() || cfg.StopProfitRate.IsPositive() {
		line, _ := d.book.Line(o.Symbol)
		var upd types.PositionUpdate
		if cfg.StopLossRate.IsPositive() {
			sl := line.AvgCost.Mul(one.Sub(cfg.StopLossRate))
			upd.StopLoss = &sl
		}
		if cfg.StopProfitRate.IsPositive() {
			sp := line.AvgCost.Mul(one.Add(cfg.StopProfitRate))
			upd.StopProfit = &sp
		}
		return d.book.ApplyUpdate(o.Symbol, upd)
	}
	return nil
}

func (d *day) affordable(want, price decimal.Decimal) (decimal.Decimal, error) {
	cost, err := d.cost(want, price)
	if err != nil {
		return decimal.Zero, err
	}
	if cost.LessThanOrEqual(d.cash) {
		return want, nil
	}

	lot := d.engine.cfg.lot()
	unit := price.Mul(one.Add(d.engine.cfg.CommissionRate))
	if !unit.IsPositive() {
		return decimal.Zero, nil
	}
	qty := decimal.Min(want, d.cash.Div(unit)).Div(lot).Floor().Mul(lot)
	for qty.IsPositive() {
		cost, err := d.cost(qty, price)
		if err != nil {
			return decimal.Zero, err
		}
		if cost.LessThanOrEqual(d.cash) {
			break
		}
		qty = qty.Sub(lot)
	}
	return qty, nil
}

func (d *day) cost(qty, price decimal.Decimal) (decimal.Decimal, error) {
	fee, err := d.engine.fees.Compute(types.SideTypeBuy, price, qty)
	if err != nil {
		return decimal.Zero, err
	}
	return price.Mul(qty).Add(fee.Total), nil
}

// fill applies one execution to the working book and cash.
func (d *day) fill(o types.TradeOrder, price decimal.Decimal, reason types.FillReason) error {
	fee, err := d.engine.fees.Compute(o.Side, price, o.Quantity)
	if err != nil {
		return err
	}

	value := price.Mul(o.Quantity)
	if o.Side == types.SideTypeSell && forcedReason(reason) {
		// forced exits charge at most what the sale and cash can pay
		fee = fee.capTo(d.cash.Add(value))
	}
	var newCash decimal.Decimal
	switch o.Side {
	case types.SideTypeBuy:
		newCash = d.cash.Sub(value).Sub(fee.Total)
	case types.SideTypeSell:
		newCash = d.cash.Add(value).Sub(fee.Total)
	default:
		return UnknownSideErr
	}
	if newCash.IsNegative() {
		return InsufficientCashErr
	}

	realized, err := d.book.ApplyFill(d.date, o.Symbol, o.Side, o.Quantity, price, fee.Total)
	if err != nil {
		return err
	}
	d.cash = newCash
	d.fees = d.fees.Add(fee.Total)
	d.realized = d.realized.Add(realized)
	d.fills = append(d.fills, types.Fill{
		Date:        d.date,
		Symbol:      o.Symbol,
		Side:        o.Side,
		Price:       price,
		Quantity:    o.Quantity,
		Commission:  fee.Commission,
		StampDuty:   fee.StampDuty,
		TransferFee: fee.TransferFee,
		Fee:         fee.Total,
		RealizedPnL: realized,
		Reason:      reason,
	})
	return nil
}

func forcedReason(r types.FillReason) bool {
	return r == types.ReasonStopLoss || r == types.ReasonStopProfit || r == types.ReasonRisk
}

func (d *day) skip(o types.TradeOrder, cause error) {
	d.pending = append(d.pending, types.UnexecutedOrder{Order: o, Reason: reasonOf(cause)})
	d.engine.logger.Debug("order not executed",
		zap.String("date", types.DateKey(d.date)),
		zap.String("symbol", o.Symbol),
		zap.String("side", string(o.Side)),
		zap.String("quantity", o.Quantity.String()),
		zap.Error(cause),
	)
}

var reasonNames = []struct {
	err  error
	name string
}{
	{InsufficientHoldingsErr, "InsufficientHoldingsError"},
	{InsufficientCashErr, "InsufficientCashError"},
	{InvalidTradeParamsErr, "InvalidTradeParamsError"},
	{NoPriceErr, "NoPriceError"},
	{RiskVetoedErr, "RiskVetoedError"},
	{LimitNotReachedErr, "LimitNotReachedError"},
}

// reasonOf names an order-level error the way downstream consumers expect it.
func reasonOf(err error) string {
	for _, r := range reasonNames {
		if errors.Is(err, r.err) {
			return r.name
		}
	}
	return err.Error()
}
