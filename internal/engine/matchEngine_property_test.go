package engine

import (
	"testing"

	"robotbacktester/types"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/shopspring/decimal"
)

var propertySymbols = []string{"600000", "000001", "300750"}

const propertyDays = 8

// simulate replays propertyDays days with closes taken from closes (one
// per symbol per day) and the given timing targets, checking invariants
// after every committed step.
func simulate(closes, targets []float64) bool {
	start := mustDate("2021-01-04")
	prices := types.PriceTable{}
	for d := 0; d < propertyDays; d++ {
		for i, sym := range propertySymbols {
			p := decimal.NewFromFloat(closes[d*len(propertySymbols)+i]).Round(2)
			prices.Set(sym, start.AddDate(0, 0, d), p)
		}
	}

	cfg := DefaultConfig()
	cfg.MaxHoldingsCount = 2
	cfg.StopLossRate = decimal.RequireFromString("0.05")
	cfg.StopProfitRate = decimal.RequireFromString("0.1")
	e, err := NewMatchEngine(types.NewAsset(decimal.NewFromInt(100000), decimal.Zero), nil, cfg.FeeModel(), prices, cfg, nil)
	if err != nil {
		return false
	}

	for d := 0; d < propertyDays; d++ {
		date := start.AddDate(0, 0, d)
		before := e.Cash()
		for _, line := range e.Holdings() {
			c, _ := prices.Close(line.Symbol, date)
			before = before.Add(line.Quantity.Mul(c))
		}

		tgt := decimal.NewFromFloat(targets[d]).Round(2)
		sig := types.DaySignal{
			Date: date,
			Selection: []types.SymbolScore{
				{Symbol: propertySymbols[d%3], Score: decimal.NewFromInt(3)},
				{Symbol: propertySymbols[(d+1)%3], Score: decimal.NewFromInt(2)},
				{Symbol: propertySymbols[(d+2)%3], Score: decimal.NewFromInt(1)},
			},
			TimingTargetPosition: &tgt,
			RiskFlags:            map[string]struct{}{},
		}
		report, err := e.Step(sig)
		if err != nil {
			return false
		}

		if report.CashAvailable.IsNegative() {
			return false
		}
		for _, line := range report.Holdings {
			if !line.Quantity.IsPositive() {
				return false
			}
		}
		// trades happen at the close, so only fees change total value
		after := report.CashAvailable.Add(report.MarketValue)
		if !after.Equal(before.Sub(report.FeesPaid)) {
			return false
		}
	}
	return true
}

func TestMatchEngine_Properties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	closesGen := gen.SliceOfN(propertyDays*len(propertySymbols), gen.Float64Range(1, 200))
	targetsGen := gen.SliceOfN(propertyDays, gen.Float64Range(0, 1))

	properties.Property("cash stays non-negative, no short lines, value changes only by fees", prop.ForAll(
		simulate,
		closesGen,
		targetsGen,
	))

	properties.Property("out of order dates never mutate state", prop.ForAll(
		func(back int) bool {
			e := newPropertyEngine()
			first := types.DaySignal{Date: mustDate("2021-02-01"), RiskFlags: map[string]struct{}{}}
			if _, err := e.Step(first); err != nil {
				return false
			}
			cash := e.Cash()
			_, err := e.Step(types.DaySignal{Date: first.Date.AddDate(0, 0, -back)})
			return err != nil && e.State() == StateFailed && e.Cash().Equal(cash) && e.LastDate().Equal(first.Date)
		},
		gen.IntRange(0, 365),
	))

	properties.TestingRun(t)
}

func newPropertyEngine() *MatchEngine {
	cfg := DefaultConfig()
	e, _ := NewMatchEngine(types.NewAsset(decimal.NewFromInt(1000), decimal.Zero), nil, cfg.FeeModel(), nil, cfg, nil)
	return e
}

