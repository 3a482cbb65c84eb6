package types

import (
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// Asset is the cash side of a run plus the aggregate value of its holdings.
// MarketValue is derived from the position book and recomputed every day.
type Asset struct {
	Cash        decimal.Decimal `json:"cash"`
	MarketValue decimal.Decimal `json:"marketValue"`
}

func NewAsset(cash, marketValue decimal.Decimal) Asset {
	return Asset{Cash: cash, MarketValue: marketValue}
}

func (a Asset) Total() decimal.Decimal {
	return a.Cash.Add(a.MarketValue)
}

// TradeDate truncates t to the calendar date it falls on, in UTC.
func TradeDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey formats t as YYYY-MM-DD.
func DateKey(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseDate parses a YYYY-MM-DD string into a trade date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}
