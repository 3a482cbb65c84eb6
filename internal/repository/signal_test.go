package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"robotbacktester/types"

	"github.com/shopspring/decimal"
)

var day1 = time.Date(2021, 1, 4, 0, 0, 0, 0, time.UTC)

type mockSignalsRepository struct {
	sqlError error
	rows     []SignalRow
	got      GetRobotSignalsParams
}

func (m *mockSignalsRepository) GetRobotSignals(_ context.Context, arg GetRobotSignalsParams) ([]SignalRow, error) {
	m.got = arg
	if m.sqlError != nil {
		return nil, m.sqlError
	}
	return m.rows, nil
}

func TestDatabase_GetSignals(t *testing.T) {
	tests := []struct {
		name    string
		rows    []SignalRow
		sqlErr  error
		wantErr error
		wantLen int
	}{
		{"should throw ErrNoSignals on empty result", nil, nil, ErrNoSignals, 0},
		{"should throw ErrNoSignals on sql.ErrNoRows", nil, sql.ErrNoRows, ErrNoSignals, 0},
		{"should throw ErrUnknownPayload", []SignalRow{{TradeDate: day1, Kind: "mood", Payload: []byte(`{}`)}}, nil, ErrUnknownPayload, 0},
		{"should return all kinds", []SignalRow{
			{TradeDate: day1, Kind: "selection", Payload: []byte(`{"scores":[{"symbol":"600519","score":"0.9"},{"symbol":"000001","score":0.5}]}`)},
			{TradeDate: day1, Kind: "timing", Payload: []byte(`{"target_position":0.5}`)},
			{TradeDate: day1, Kind: "trade", Payload: []byte(`{"orders":[{"symbol":"000001","side":"SELL","quantity":100,"limit_price":"0"}]}`)},
			{TradeDate: day1, Kind: "risk", Payload: []byte(`{"symbols":["600000"]}`)},
		}, nil, nil, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := &Database{signals: &mockSignalsRepository{rows: tt.rows, sqlError: tt.sqlErr}}
			got, err := db.GetSignals(context.Background(), "robot-1", day1, day1)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("GetSignals() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetSignals() unexpected error: %v", err)
			}
			if len(got) != tt.wantLen {
				t.Fatalf("GetSignals() len = %d, want %d", len(got), tt.wantLen)
			}
		})
	}
}

func TestDatabase_GetSignals_UnboundedRange(t *testing.T) {
	mock := &mockSignalsRepository{rows: []SignalRow{{TradeDate: day1, Kind: "risk", Payload: []byte(`{"symbols":[]}`)}}}
	db := &Database{signals: mock}
	if _, err := db.GetSignals(context.Background(), "robot-1", time.Time{}, time.Time{}); err != nil {
		t.Fatalf("GetSignals() unexpected error: %v", err)
	}
	if mock.got.Starttime != nil || mock.got.Endtime != nil {
		t.Errorf("zero range should pass nil bounds, got %v %v", mock.got.Starttime, mock.got.Endtime)
	}
	if mock.got.RobotID != "robot-1" {
		t.Errorf("robot id = %q", mock.got.RobotID)
	}
}

func TestDecodeSignal(t *testing.T) {
	sig, err := decodeSignal(SignalRow{
		TradeDate: day1.Add(9 * time.Hour),
		Kind:      "trade",
		Payload:   []byte(`{"orders":[{"symbol":"600519","side":"BUY","quantity":"200","limit_price":1800.5}]}`),
	})
	if err != nil {
		t.Fatalf("decodeSignal() error: %v", err)
	}
	if !sig.Date.Equal(day1) {
		t.Errorf("date = %v, want %v", sig.Date, day1)
	}
	p, ok := sig.Payload.(types.TradePayload)
	if !ok {
		t.Fatalf("payload type = %T", sig.Payload)
	}
	if len(p.Orders) != 1 {
		t.Fatalf("orders = %d", len(p.Orders))
	}
	o := p.Orders[0]
	if o.Side != types.SideTypeBuy || !o.Quantity.Equal(decimal.NewFromInt(200)) || !o.LimitPrice.Equal(decimal.RequireFromString("1800.5")) {
		t.Errorf("order = %+v", o)
	}

	timing, err := decodeSignal(SignalRow{TradeDate: day1, Kind: "timing", Payload: []byte(`{"target_position":"0.3"}`)})
	if err != nil {
		t.Fatalf("decodeSignal() error: %v", err)
	}
	tp := timing.Payload.(types.TimingPayload)
	if !tp.TargetPosition.Equal(decimal.RequireFromString("0.3")) {
		t.Errorf("target = %s", tp.TargetPosition)
	}

	if _, err := decodeSignal(SignalRow{TradeDate: day1, Kind: "selection", Payload: []byte(`{"scores":`)}); err == nil {
		t.Errorf("expected error on truncated payload")
	}
}
