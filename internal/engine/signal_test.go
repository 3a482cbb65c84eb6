package engine

import (
	"errors"
	"testing"

	"robotbacktester/types"

	"github.com/shopspring/decimal"
)

func TestNormalizeDay(t *testing.T) {
	date := mustDate("2021-01-04")

	t.Run("all kinds merged", func(t *testing.T) {
		records := []types.RawSignal{
			types.NewRawSignal(date, types.SelectionPayload{Scores: []types.SymbolScore{
				{Symbol: "000001", Score: dec("0.5")},
				{Symbol: "600519", Score: dec("0.9")},
			}}),
			types.NewRawSignal(date, types.TimingPayload{TargetPosition: dec("0.6")}),
			types.NewRawSignal(date, types.TradePayload{Orders: []types.TradeOrder{
				types.NewTradeOrder("600000", types.SideTypeBuy, dec("100"), decimal.Zero),
			}}),
			types.NewRawSignal(date, types.RiskPayload{Symbols: []string{"300750"}}),
		}

		sig, err := NormalizeDay(date, records)
		if err != nil {
			t.Fatalf("NormalizeDay() error: %v", err)
		}
		if len(sig.Selection) != 2 || sig.Selection[0].Symbol != "600519" {
			t.Errorf("selection = %+v, want 600519 first", sig.Selection)
		}
		if sig.TimingTargetPosition == nil || !sig.TimingTargetPosition.Equal(dec("0.6")) {
			t.Errorf("timing = %v, want 0.6", sig.TimingTargetPosition)
		}
		if len(sig.TradeOrders) != 1 {
			t.Errorf("trade orders = %d, want 1", len(sig.TradeOrders))
		}
		if !sig.Flagged("300750") {
			t.Errorf("expected 300750 to be flagged")
		}
	})

	t.Run("missing kinds are empty not nil", func(t *testing.T) {
		sig, err := NormalizeDay(date, nil)
		if err != nil {
			t.Fatalf("NormalizeDay() error: %v", err)
		}
		if sig.Selection == nil || sig.TradeOrders == nil || sig.RiskFlags == nil {
			t.Errorf("expected empty collections, got %+v", sig)
		}
		if sig.TimingTargetPosition != nil {
			t.Errorf("timing should be absent")
		}
	})

	t.Run("equal scores keep input order", func(t *testing.T) {
		sig, err := NormalizeDay(date, []types.RawSignal{
			types.NewRawSignal(date, types.SelectionPayload{Scores: []types.SymbolScore{
				{Symbol: "B", Score: dec("1")},
				{Symbol: "A", Score: dec("1")},
				{Symbol: "C", Score: dec("2")},
				{Symbol: "B", Score: dec("3")},
			}}),
		})
		if err != nil {
			t.Fatalf("NormalizeDay() error: %v", err)
		}
		got := []string{}
		for _, s := range sig.Selection {
			got = append(got, s.Symbol)
		}
		want := []string{"C", "B", "A"}
		if len(got) != len(want) {
			t.Fatalf("selection = %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("selection = %v, want %v", got, want)
			}
		}
	})

	errTests := []struct {
		name    string
		records []types.RawSignal
		wantErr error
	}{
		{
			name: "duplicate timing",
			records: []types.RawSignal{
				types.NewRawSignal(date, types.TimingPayload{TargetPosition: dec("0.5")}),
				types.NewRawSignal(date, types.TimingPayload{TargetPosition: dec("0.7")}),
			},
			wantErr: DuplicateSignalErr,
		},
		{
			name: "timing above one",
			records: []types.RawSignal{
				types.NewRawSignal(date, types.TimingPayload{TargetPosition: dec("1.2")}),
			},
			wantErr: InvalidSignalErr,
		},
		{
			name: "order with zero quantity",
			records: []types.RawSignal{
				types.NewRawSignal(date, types.TradePayload{Orders: []types.TradeOrder{
					types.NewTradeOrder("600000", types.SideTypeSell, decimal.Zero, decimal.Zero),
				}}),
			},
			wantErr: InvalidTradeParamsErr,
		},
		{
			name: "order with fractional quantity",
			records: []types.RawSignal{
				types.NewRawSignal(date, types.TradePayload{Orders: []types.TradeOrder{
					types.NewTradeOrder("600000", types.SideTypeBuy, dec("50.5"), decimal.Zero),
				}}),
			},
			wantErr: InvalidTradeParamsErr,
		},
		{
			name: "order with unknown side",
			records: []types.RawSignal{
				types.NewRawSignal(date, types.TradePayload{Orders: []types.TradeOrder{
					types.NewTradeOrder("600000", types.Side("HOLD"), dec("100"), decimal.Zero),
				}}),
			},
			wantErr: InvalidSignalErr,
		},
		{
			name: "record from another date",
			records: []types.RawSignal{
				types.NewRawSignal(mustDate("2021-01-05"), types.RiskPayload{Symbols: []string{"600000"}}),
			},
			wantErr: InvalidSignalErr,
		},
		{
			name:    "record without payload",
			records: []types.RawSignal{{Date: date}},
			wantErr: InvalidSignalErr,
		},
	}
	for _, tc := range errTests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := NormalizeDay(date, tc.records)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("NormalizeDay() error = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestNormalizeSeries(t *testing.T) {
	records := []types.RawSignal{
		types.NewRawSignal(mustDate("2021-01-06"), types.TimingPayload{TargetPosition: dec("0.2")}),
		types.NewRawSignal(mustDate("2021-01-04"), types.TimingPayload{TargetPosition: dec("0.5")}),
		types.NewRawSignal(mustDate("2021-01-04"), types.RiskPayload{Symbols: []string{"600000"}}),
		types.NewRawSignal(mustDate("2021-01-05"), types.SelectionPayload{}),
	}

	days, err := NormalizeSeries(records)
	if err != nil {
		t.Fatalf("NormalizeSeries() error: %v", err)
	}
	if len(days) != 3 {
		t.Fatalf("days = %d, want 3", len(days))
	}
	for i := 1; i < len(days); i++ {
		if !days[i].Date.After(days[i-1].Date) {
			t.Errorf("days not strictly increasing at %d", i)
		}
	}
	if !days[0].Flagged("600000") || days[0].TimingTargetPosition == nil {
		t.Errorf("first day lost records: %+v", days[0])
	}

	_, err = NormalizeSeries(append(records, types.NewRawSignal(mustDate("2021-01-06"), types.TimingPayload{})))
	if !errors.Is(err, DuplicateSignalErr) {
		t.Errorf("expected DuplicateSignalErr, got %v", err)
	}
}
