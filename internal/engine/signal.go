package engine

import (
	"fmt"
	"sort"
	"time"

	"robotbacktester/types"

	"github.com/shopspring/decimal"
)

var one = decimal.NewFromInt(1)

// NormalizeDay folds the raw records of a single date into one DaySignal.
// Any strategy type may be missing; two records of the same type are an error.
func NormalizeDay(date time.Time, records []types.RawSignal) (types.DaySignal, error) {
	date = types.TradeDate(date)
	out := emptyDaySignal(date)

	seen := make(map[types.SignalKind]bool, 4)
	for _, rec := range records {
		if rec.Payload == nil {
			return types.DaySignal{}, fmt.Errorf("record on %s has no payload: %w", types.DateKey(date), InvalidSignalErr)
		}
		if !types.TradeDate(rec.Date).Equal(date) {
			return types.DaySignal{}, fmt.Errorf("record dated %s normalized as %s: %w",
				types.DateKey(rec.Date), types.DateKey(date), InvalidSignalErr)
		}
		kind := rec.Payload.Kind()
		if seen[kind] {
			return types.DaySignal{}, fmt.Errorf("%s on %s: %w", kind, types.DateKey(date), DuplicateSignalErr)
		}
		seen[kind] = true

		switch p := rec.Payload.(type) {
		case types.SelectionPayload:
			sel, err := normalizeSelection(p.Scores)
			if err != nil {
				return types.DaySignal{}, err
			}
			out.Selection = sel
		case types.TimingPayload:
			if p.TargetPosition.IsNegative() || p.TargetPosition.GreaterThan(one) {
				return types.DaySignal{}, fmt.Errorf("timing target %s on %s: %w", p.TargetPosition, types.DateKey(date), InvalidSignalErr)
			}
			target := p.TargetPosition
			out.TimingTargetPosition = &target
		case types.TradePayload:
			for _, o := range p.Orders {
				if err := validateOrder(o); err != nil {
					return types.DaySignal{}, err
				}
			}
			out.TradeOrders = append(out.TradeOrders, p.Orders...)
		case types.RiskPayload:
			for _, sym := range p.Symbols {
				if sym == "" {
					return types.DaySignal{}, fmt.Errorf("empty risk symbol on %s: %w", types.DateKey(date), InvalidSignalErr)
				}
				out.RiskFlags[sym] = struct{}{}
			}
		default:
			return types.DaySignal{}, fmt.Errorf("payload %T: %w", rec.Payload, InvalidSignalErr)
		}
	}
	return out, nil
}

// NormalizeSeries groups records by date and returns one DaySignal per date
// in strictly increasing date order.
func NormalizeSeries(records []types.RawSignal) ([]types.DaySignal, error) {
	byDate := make(map[time.Time][]types.RawSignal)
	for _, rec := range records {
		d := types.TradeDate(rec.Date)
		byDate[d] = append(byDate[d], rec)
	}

	dates := make([]time.Time, 0, len(byDate))
	for d := range byDate {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })

	out := make([]types.DaySignal, 0, len(dates))
	for _, d := range dates {
		sig, err := NormalizeDay(d, byDate[d])
		if err != nil {
			return nil, err
		}
		out = append(out, sig)
	}
	return out, nil
}

// emptyDaySignal is the input for a trading date no strategy reported on.
// Stop rules and mark to market still run on it.
func emptyDaySignal(date time.Time) types.DaySignal {
	return types.DaySignal{
		Date:        types.TradeDate(date),
		Selection:   []types.SymbolScore{},
		TradeOrders: []types.TradeOrder{},
		RiskFlags:   make(map[string]struct{}),
	}
}

// normalizeSelection orders by score, highest first. Equal scores keep
// their input order.
func normalizeSelection(scores []types.SymbolScore) ([]types.SymbolScore, error) {
	out := make([]types.SymbolScore, 0, len(scores))
	seen := make(map[string]bool, len(scores))
	for _, s := range scores {
		if s.Symbol == "" {
			return nil, fmt.Errorf("empty selection symbol: %w", InvalidSignalErr)
		}
		if seen[s.Symbol] {
			continue
		}
		seen[s.Symbol] = true
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score.GreaterThan(out[j].Score) })
	return out, nil
}

func validateOrder(o types.TradeOrder) error {
	if o.Symbol == "" || !o.Side.Valid() {
		return fmt.Errorf("order %q side %q: %w", o.Symbol, o.Side, InvalidSignalErr)
	}
	if !o.Quantity.IsPositive() || !wholeQuantity(o.Quantity) || o.LimitPrice.IsNegative() {
		return fmt.Errorf("order %s %s qty %s limit %s: %w", o.Side, o.Symbol, o.Quantity, o.LimitPrice, InvalidTradeParamsErr)
	}
	return nil
}

// validateDaySignal re-checks a DaySignal that may not have come through NormalizeDay.
func validateDaySignal(sig types.DaySignal) error {
	if t := sig.TimingTargetPosition; t != nil && (t.IsNegative() || t.GreaterThan(one)) {
		return fmt.Errorf("timing target %s: %w", t, InvalidSignalErr)
	}
	for _, o := range sig.TradeOrders {
		if err := validateOrder(o); err != nil {
			return err
		}
	}
	return nil
}
