package types

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PriceTable holds closing prices keyed by symbol then date key.
type PriceTable map[string]map[string]decimal.Decimal

func (p PriceTable) Set(symbol string, date time.Time, close decimal.Decimal) {
	days, ok := p[symbol]
	if !ok {
		days = make(map[string]decimal.Decimal)
		p[symbol] = days
	}
	days[DateKey(date)] = close
}

// Close returns the closing price of symbol on date, if one was recorded.
func (p PriceTable) Close(symbol string, date time.Time) (decimal.Decimal, bool) {
	days, ok := p[symbol]
	if !ok {
		return decimal.Zero, false
	}
	c, ok := days[DateKey(date)]
	return c, ok
}

// Dates returns every date with at least one close, ascending.
func (p PriceTable) Dates() []time.Time {
	seen := make(map[string]struct{})
	var out []time.Time
	for _, days := range p {
		for key := range days {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			d, err := ParseDate(key)
			if err != nil {
				continue
			}
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
