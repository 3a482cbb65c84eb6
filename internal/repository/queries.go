package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const getRobotSignals = `
SELECT trade_date, kind, payload
FROM robot_signals
WHERE robot_id = $1
  AND ($2::date IS NULL OR trade_date >= $2)
  AND ($3::date IS NULL OR trade_date <= $3)
ORDER BY trade_date, kind, id`

const getClosePrices = `
SELECT symbol, trade_date, close
FROM daily_quotes
WHERE symbol = ANY($1::text[])
  AND ($2::date IS NULL OR trade_date >= $2)
  AND ($3::date IS NULL OR trade_date <= $3)
ORDER BY symbol, trade_date`

type GetRobotSignalsParams struct {
	RobotID   string
	Starttime *time.Time
	Endtime   *time.Time
}

type SignalRow struct {
	TradeDate time.Time `db:"trade_date"`
	Kind      string    `db:"kind"`
	Payload   []byte    `db:"payload"`
}

type GetClosePricesParams struct {
	Symbols   []string
	Starttime *time.Time
	Endtime   *time.Time
}

type QuoteRow struct {
	Symbol    string          `db:"symbol"`
	TradeDate time.Time       `db:"trade_date"`
	Close     decimal.Decimal `db:"close"`
}

type queries struct {
	pool *pgxpool.Pool
}

func newQueries(pool *pgxpool.Pool) *queries {
	return &queries{pool: pool}
}

func (q *queries) GetRobotSignals(ctx context.Context, arg GetRobotSignalsParams) ([]SignalRow, error) {
	rows, err := q.pool.Query(ctx, getRobotSignals, arg.RobotID, arg.Starttime, arg.Endtime)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[SignalRow])
}

func (q *queries) GetClosePrices(ctx context.Context, arg GetClosePricesParams) ([]QuoteRow, error) {
	rows, err := q.pool.Query(ctx, getClosePrices, arg.Symbols, arg.Starttime, arg.Endtime)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[QuoteRow])
}
