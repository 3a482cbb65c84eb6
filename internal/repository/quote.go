package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"robotbacktester/types"

	"github.com/jackc/pgx/v5"
)

// GetClosePrices loads daily closes for symbols between start and end.
func (db *Database) GetClosePrices(ctx context.Context, symbols []string, start, end time.Time) (types.PriceTable, error) {
	s, e := dateRange(start, end)
	rows, err := db.quotes.GetClosePrices(ctx, GetClosePricesParams{
		Symbols:   symbols,
		Starttime: s,
		Endtime:   e,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoQuotes
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, ErrNoQuotes
	}
	return convertQuotes(rows), nil
}

func convertQuotes(rows []QuoteRow) types.PriceTable {
	table := types.PriceTable{}
	for _, row := range rows {
		table.Set(row.Symbol, types.TradeDate(row.TradeDate), row.Close)
	}
	return table
}
