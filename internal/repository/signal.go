package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"robotbacktester/types"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type selectionJSON struct {
	Scores []struct {
		Symbol string          `json:"symbol"`
		Score  decimal.Decimal `json:"score"`
	} `json:"scores"`
}

type timingJSON struct {
	TargetPosition decimal.Decimal `json:"target_position"`
}

type tradeJSON struct {
	Orders []struct {
		Symbol     string          `json:"symbol"`
		Side       string          `json:"side"`
		Quantity   decimal.Decimal `json:"quantity"`
		LimitPrice decimal.Decimal `json:"limit_price"`
	} `json:"orders"`
}

type riskJSON struct {
	Symbols []string `json:"symbols"`
}

// GetSignals loads every raw strategy record of a robot between start and end
// (inclusive, zero means unbounded).
func (db *Database) GetSignals(ctx context.Context, robotID string, start, end time.Time) ([]types.RawSignal, error) {
	s, e := dateRange(start, end)
	rows, err := db.signals.GetRobotSignals(ctx, GetRobotSignalsParams{
		RobotID:   robotID,
		Starttime: s,
		Endtime:   e,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) || errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("robot %s %w", robotID, ErrNoSignals)
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("robot %s %w", robotID, ErrNoSignals)
	}

	out := make([]types.RawSignal, 0, len(rows))
	for _, row := range rows {
		sig, err := decodeSignal(row)
		if err != nil {
			return nil, fmt.Errorf("robot %s %s %s: %w", robotID, types.DateKey(row.TradeDate), row.Kind, err)
		}
		out = append(out, sig)
	}
	return out, nil
}

func decodeSignal(row SignalRow) (types.RawSignal, error) {
	var payload types.Payload
	switch types.SignalKind(row.Kind) {
	case types.KindSelection:
		var v selectionJSON
		if err := json.Unmarshal(row.Payload, &v); err != nil {
			return types.RawSignal{}, err
		}
		p := types.SelectionPayload{Scores: make([]types.SymbolScore, 0, len(v.Scores))}
		for _, s := range v.Scores {
			p.Scores = append(p.Scores, types.SymbolScore{Symbol: s.Symbol, Score: s.Score})
		}
		payload = p
	case types.KindTiming:
		var v timingJSON
		if err := json.Unmarshal(row.Payload, &v); err != nil {
			return types.RawSignal{}, err
		}
		payload = types.TimingPayload{TargetPosition: v.TargetPosition}
	case types.KindTrade:
		var v tradeJSON
		if err := json.Unmarshal(row.Payload, &v); err != nil {
			return types.RawSignal{}, err
		}
		p := types.TradePayload{Orders: make([]types.TradeOrder, 0, len(v.Orders))}
		for _, o := range v.Orders {
			p.Orders = append(p.Orders, types.NewTradeOrder(o.Symbol, types.Side(o.Side), o.Quantity, o.LimitPrice))
		}
		payload = p
	case types.KindRisk:
		var v riskJSON
		if err := json.Unmarshal(row.Payload, &v); err != nil {
			return types.RawSignal{}, err
		}
		payload = types.RiskPayload{Symbols: v.Symbols}
	default:
		return types.RawSignal{}, ErrUnknownPayload
	}
	return types.NewRawSignal(row.TradeDate, payload), nil
}
