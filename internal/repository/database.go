package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Global error declarations.
var (
	ErrNoSignals      = errors.New("no signals found in datasource")
	ErrNoQuotes       = errors.New("no quotes found in datasource")
	ErrUnknownPayload = errors.New("unknown signal kind")
)

type signalsRepository interface {
	GetRobotSignals(ctx context.Context, arg GetRobotSignalsParams) ([]SignalRow, error)
}
type quotesRepository interface {
	GetClosePrices(ctx context.Context, arg GetClosePricesParams) ([]QuoteRow, error)
}

// Database struct that holds the database connection and queries.
type Database struct {
	signals signalsRepository
	quotes  quotesRepository
	conn    *pgxpool.Pool
}

// NewDatabase creates a new Database instance and verifies connectivity.
func NewDatabase(ctx context.Context, dbURL string) (Database, error) {
	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return Database{}, fmt.Errorf("parse config: %w", err)
	}
	// Register shopspring decimal
	config.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	conn, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return Database{}, err
	}
	// Ensure the connection is established.
	if err := conn.Ping(ctx); err != nil {
		conn.Close()
		return Database{}, err
	}

	q := newQueries(conn)
	return Database{
		signals: q,
		quotes:  q,
		conn:    conn}, nil
}

func (db *Database) Close() {
	if db.conn != nil {
		db.conn.Close()
	}
}

func dateRange(start, end time.Time) (*time.Time, *time.Time) {
	var s, e *time.Time
	if !start.IsZero() {
		s = &start
	}
	if !end.IsZero() {
		e = &end
	}
	return s, e
}
