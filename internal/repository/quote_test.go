package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type mockQuotesRepository struct {
	sqlError error
}

func (m mockQuotesRepository) GetClosePrices(_ context.Context, arg GetClosePricesParams) ([]QuoteRow, error) {
	if m.sqlError != nil {
		return nil, m.sqlError
	}
	var rows []QuoteRow
	for i, sym := range arg.Symbols {
		d := *arg.Starttime
		for !d.After(*arg.Endtime) {
			rows = append(rows, QuoteRow{
				Symbol:    sym,
				TradeDate: d,
				Close:     decimal.NewFromInt(int64(10*(i+1) + d.Day())),
			})
			d = d.AddDate(0, 0, 1)
		}
	}
	return rows, nil
}

func TestDatabase_GetClosePrices(t *testing.T) {
	start := time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 2)

	tests := []struct {
		name    string
		symbols []string
		sqlErr  error
		wantErr error
	}{
		{"should throw ErrNoQuotes on empty result", nil, nil, ErrNoQuotes},
		{"should throw ErrNoQuotes on sql.ErrNoRows", []string{"600519"}, sql.ErrNoRows, ErrNoQuotes},
		{"should return quotes", []string{"600519", "000001"}, nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &Database{quotes: mockQuotesRepository{sqlError: tt.sqlErr}}
			got, err := db.GetClosePrices(context.Background(), tt.symbols, start, end)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("GetClosePrices() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetClosePrices() unexpected error: %v", err)
			}
			c, ok := got.Close("000001", end)
			if !ok {
				t.Fatalf("missing close for 000001 on %v", end)
			}
			if !c.Equal(decimal.NewFromInt(26)) {
				t.Errorf("close = %s, want 26", c)
			}
			if _, ok := got.Close("600519", end.AddDate(0, 0, 1)); ok {
				t.Errorf("unexpected close outside range")
			}
		})
	}
}
