package engine

import (
	"math"
	"testing"

	"robotbacktester/types"

	"github.com/shopspring/decimal"
)

func TestFormatDay(t *testing.T) {
	date := mustDate("2021-01-05")
	a := holding("600000", "100", "10")
	a.LastPrice = dec("12")
	a.FirstHeldDate = mustDate("2021-01-04")
	a.Exchange = types.ExchangeSH
	b := holding("000001", "200", "4")
	b.LastPrice = dec("4")
	b.Exchange = types.ExchangeSZ

	report := types.DayReport{
		Date:          date,
		CashAvailable: dec("1000"),
		MarketValue:   dec("2000"),
		Holdings:      []types.PositionLine{b, a},
		Fills: []types.Fill{{
			Date: date, Symbol: "000001", Side: types.SideTypeBuy,
			Price: dec("4"), Quantity: dec("200"), Commission: dec("0.2"), Fee: dec("0.2"),
			Reason: types.ReasonTradeSignal,
		}},
		PendingSignal: []types.UnexecutedOrder{{
			Order:  types.NewTradeOrder("300750", types.SideTypeBuy, dec("100"), decimal.Zero),
			Reason: "NoPriceError",
		}},
		FeesPaid:         dec("0.2"),
		CumulativeReturn: dec("0.5"),
	}

	got := FormatDay(report)
	if got.Date != "2021-01-05" || got.TotalAsset != 3000 || !got.HasPendingSignal {
		t.Errorf("day = %+v", got)
	}
	if len(got.Holdings) != 2 {
		t.Fatalf("holdings = %d", len(got.Holdings))
	}

	h := got.Holdings[1]
	if h.Symbol != "600000" || h.Exchange != "SH" || h.Quantity != 100 {
		t.Errorf("holding = %+v", h)
	}
	if math.Abs(h.Return-0.2) > 1e-9 {
		t.Errorf("return = %v, want 0.2", h.Return)
	}
	if math.Abs(h.Weight-0.6) > 1e-9 {
		t.Errorf("weight = %v, want 0.6", h.Weight)
	}
	if h.ProfitLoss != 200 || h.FirstHeldDate != "2021-01-04" {
		t.Errorf("holding = %+v", h)
	}
	if got.Holdings[0].FirstHeldDate != "" {
		t.Errorf("zero first held date rendered as %q", got.Holdings[0].FirstHeldDate)
	}

	if got.Fills[0].Amount != 800 || got.Fills[0].Reason != "trade_signal" {
		t.Errorf("fill = %+v", got.Fills[0])
	}
	if got.PendingSignal[0].Symbol != "300750" || got.PendingSignal[0].Reason != "NoPriceError" {
		t.Errorf("pending = %+v", got.PendingSignal[0])
	}

	// input untouched
	if report.Holdings[0].Symbol != "000001" || !report.Holdings[1].LastPrice.Equal(dec("12")) {
		t.Errorf("FormatDay mutated its input")
	}
}

func TestFormatDay_Empty(t *testing.T) {
	got := FormatDay(types.DayReport{Date: mustDate("2021-01-04")})
	if got.HasPendingSignal {
		t.Errorf("empty day flagged as pending")
	}
	if got.Holdings == nil || got.Fills == nil || got.PendingSignal == nil {
		t.Errorf("expected empty slices for json, got %+v", got)
	}
}
