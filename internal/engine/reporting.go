package engine

import (
	"fmt"
	"io"
	"math"
	"sync"
	"time"

	"robotbacktester/types"

	"github.com/shopspring/decimal"
)

type Summary struct {
	// Meta / period info
	RunID       string    `json:"run_id"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	TradingDays int       `json:"trading_days"`
	TotalFills  int       `json:"total_fills"`

	// Absolute performance
	InitialValue decimal.Decimal `json:"initial_value"`
	FinalValue   decimal.Decimal `json:"final_value"`
	NetProfit    decimal.Decimal `json:"net_profit"`
	RealizedPnL  decimal.Decimal `json:"realized_pnl"`
	TotalReturn  decimal.Decimal `json:"total_return"`
	CAGR         decimal.Decimal `json:"cagr"`

	// Closed sells
	WinningSells int             `json:"winning_sells"`
	LosingSells  int             `json:"losing_sells"`
	WinRate      decimal.Decimal `json:"win_rate"`

	// Drawdown
	MaxDrawdown        decimal.Decimal `json:"max_drawdown"`
	MaxDrawdownPercent decimal.Decimal `json:"max_drawdown_percent"`
	MaxDrawdownDays    time.Duration   `json:"max_drawdown_days"`

	SharpeRatio decimal.Decimal `json:"sharpe_ratio"`

	// Costs
	TotalFees decimal.Decimal `json:"total_fees"`
}

func generateSummary(runID string, reports []types.DayReport, initialValue decimal.Decimal, cfg ReportingConfig) *Summary {
	s := &Summary{
		RunID:        runID,
		TradingDays:  len(reports),
		InitialValue: initialValue,
		FinalValue:   initialValue,
	}
	if len(reports) == 0 {
		return s
	}
	s.StartDate = reports[0].Date
	s.EndDate = reports[len(reports)-1].Date
	s.FinalValue = reports[len(reports)-1].TotalValue()
	s.NetProfit = s.FinalValue.Sub(initialValue)
	s.TotalReturn = reports[len(reports)-1].CumulativeReturn

	var wg sync.WaitGroup
	wg.Add(5)
	go func() {
		s.TotalFills, s.TotalFees, s.RealizedPnL = calcFillTotals(reports, &wg)
	}()
	go func() {
		s.WinningSells, s.LosingSells, s.WinRate = calcWinRate(reports, &wg)
	}()
	go func() {
		s.CAGR = calcCAGR(reports, initialValue, &wg)
	}()
	go func() {
		s.MaxDrawdown, s.MaxDrawdownPercent, s.MaxDrawdownDays = calcDrawdownMetrics(reports, initialValue, &wg)
	}()
	go func() {
		s.SharpeRatio = calcSharpeRatio(reports, cfg.sharpeRiskFreeRate, &wg)
	}()
	wg.Wait()

	return s
}

func PrintSummary(w io.Writer, s *Summary) {
	fmt.Fprintln(w, "===== Backtest Summary =====")
	fmt.Fprintf(w, "Run:                   %s\n", s.RunID)
	if s.TradingDays > 0 {
		fmt.Fprintf(w, "Period:                %s .. %s\n", types.DateKey(s.StartDate), types.DateKey(s.EndDate))
	}
	fmt.Fprintf(w, "Trading Days:          %d\n", s.TradingDays)
	fmt.Fprintf(w, "Total Fills:           %d\n", s.TotalFills)

	fmt.Fprintln(w, "\n-- Absolute Performance --")
	fmt.Fprintf(w, "Initial Value:         %s\n", s.InitialValue.StringFixed(2))
	fmt.Fprintf(w, "Final Value:           %s\n", s.FinalValue.StringFixed(2))
	fmt.Fprintf(w, "Net Profit:            %s\n", s.NetProfit.StringFixed(2))
	fmt.Fprintf(w, "Realized PnL:          %s\n", s.RealizedPnL.StringFixed(2))
	fmt.Fprintf(w, "Total Return:          %s\n", s.TotalReturn.StringFixed(4))
	fmt.Fprintf(w, "CAGR:                  %s\n", s.CAGR.StringFixed(4))

	fmt.Fprintln(w, "\n-- Sells --")
	fmt.Fprintf(w, "Winning / Losing:      %d / %d\n", s.WinningSells, s.LosingSells)
	fmt.Fprintf(w, "Win Rate:              %s\n", s.WinRate.StringFixed(4))

	fmt.Fprintln(w, "\n-- Drawdown Metrics --")
	fmt.Fprintf(w, "Max Drawdown:          %s\n", s.MaxDrawdown.StringFixed(2))
	fmt.Fprintf(w, "Max Drawdown %%:        %s\n", s.MaxDrawdownPercent.StringFixed(4))
	fmt.Fprintf(w, "Max Drawdown Days:     %d\n", s.MaxDrawdownDays/(24*time.Hour))

	fmt.Fprintln(w, "\n-- Risk-Adjusted Metrics --")
	fmt.Fprintf(w, "Sharpe Ratio:          %s\n", s.SharpeRatio.StringFixed(4))

	fmt.Fprintln(w, "\n-- Costs --")
	fmt.Fprintf(w, "Total Fees:            %s\n", s.TotalFees.StringFixed(2))

	fmt.Fprintln(w, "============================")
}

func calcFillTotals(reports []types.DayReport, wg *sync.WaitGroup) (int, decimal.Decimal, decimal.Decimal) {
	defer wg.Done()

	fills := 0
	fees := decimal.Zero
	realized := decimal.Zero
	for _, r := range reports {
		fills += len(r.Fills)
		fees = fees.Add(r.FeesPaid)
		realized = realized.Add(r.RealizedPnL)
	}
	return fills, fees, realized
}

func calcWinRate(reports []types.DayReport, wg *sync.WaitGroup) (int, int, decimal.Decimal) {
	defer wg.Done()

	wins, losses := 0, 0
	for _, r := range reports {
		for _, f := range r.Fills {
			if f.Side != types.SideTypeSell {
				continue
			}
			switch {
			case f.RealizedPnL.IsPositive():
				wins++
			case f.RealizedPnL.IsNegative():
				losses++
			}
		}
	}
	if wins+losses == 0 {
		return 0, 0, decimal.Zero
	}
	return wins, losses, decimal.NewFromInt(int64(wins)).Div(decimal.NewFromInt(int64(wins + losses)))
}

func calcCAGR(reports []types.DayReport, initialValue decimal.Decimal, wg *sync.WaitGroup) decimal.Decimal {
	defer wg.Done()
	if len(reports) < 2 || !initialValue.IsPositive() {
		return decimal.Zero
	}

	first := reports[0]
	last := reports[len(reports)-1]

	// time difference in years (using 365.25 days to account for leap years)
	duration := last.Date.Sub(first.Date)
	if duration <= 0 {
		return decimal.Zero
	}
	years := duration.Hours() / (24.0 * 365.25)

	ratio := last.TotalValue().Div(initialValue)
	if !ratio.IsPositive() {
		return decimal.Zero
	}

	cagrFloat := math.Pow(ratio.InexactFloat64(), 1.0/years) - 1.0
	return decimal.NewFromFloat(cagrFloat)
}

// calcDrawdownMetrics walks the equity curve starting from the initial value,
// so a loss on the very first day counts as drawdown.
func calcDrawdownMetrics(
	reports []types.DayReport,
	initialValue decimal.Decimal,
	wg *sync.WaitGroup,
) (decimal.Decimal, decimal.Decimal, time.Duration) {
	defer wg.Done()

	if len(reports) == 0 {
		return decimal.Zero, decimal.Zero, 0
	}

	peak := initialValue
	peakTime := reports[0].Date

	maxDD := decimal.Zero
	maxDDPct := decimal.Zero
	var maxDDDuration time.Duration

	for _, r := range reports {
		equity := r.TotalValue()
		if equity.GreaterThan(peak) {
			peak = equity
			peakTime = r.Date
		}

		if peak.IsPositive() {
			dd := peak.Sub(equity)
			if dd.GreaterThan(maxDD) {
				maxDD = dd
				maxDDPct = dd.Div(peak)
				maxDDDuration = r.Date.Sub(peakTime)
			}
		}
	}

	return maxDD, maxDDPct, maxDDDuration
}

func calcSharpeRatio(
	reports []types.DayReport,
	annualRiskFree decimal.Decimal,
	wg *sync.WaitGroup,
) decimal.Decimal {
	defer wg.Done()
	monthlyReturns := getMonthlyReturns(reports)
	if len(monthlyReturns) < 2 {
		// Need at least 2 months to compute stddev
		return decimal.Zero
	}

	// rf_monthly = (1 + rf_annual)^(1/12) - 1
	rfMonthly := math.Pow(1.0+annualRiskFree.InexactFloat64(), 1.0/12.0) - 1.0

	excess := make([]float64, 0, len(monthlyReturns))
	for _, r := range monthlyReturns {
		excess = append(excess, r.InexactFloat64()-rfMonthly)
	}

	var sum float64
	for _, x := range excess {
		sum += x
	}
	mean := sum / float64(len(excess))

	var varianceSum float64
	for _, x := range excess {
		diff := x - mean
		varianceSum += diff * diff
	}
	std := math.Sqrt(varianceSum / float64(len(excess)-1))
	if std == 0 {
		return decimal.Zero
	}

	return decimal.NewFromFloat(mean / std * math.Sqrt(12.0))
}

// getMonthlyReturns returns the returns between consecutive month-end values.
// Reports are already in date order.
func getMonthlyReturns(reports []types.DayReport) []decimal.Decimal {
	var monthEnds []decimal.Decimal
	var lastYear int
	var lastMonth time.Month
	for i, r := range reports {
		y, m, _ := r.Date.Date()
		if i > 0 && y == lastYear && m == lastMonth {
			monthEnds[len(monthEnds)-1] = r.TotalValue()
			continue
		}
		monthEnds = append(monthEnds, r.TotalValue())
		lastYear, lastMonth = y, m
	}

	if len(monthEnds) < 2 {
		return nil
	}

	returns := make([]decimal.Decimal, 0, len(monthEnds)-1)
	prev := monthEnds[0]
	for _, curr := range monthEnds[1:] {
		if !prev.IsPositive() {
			prev = curr
			continue
		}
		returns = append(returns, curr.Div(prev).Sub(one))
		prev = curr
	}
	return returns
}
