package engine

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"robotbacktester/types"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SignalSource yields the raw strategy records of one robot.
type SignalSource interface {
	GetSignals(ctx context.Context, robotID string, start, end time.Time) ([]types.RawSignal, error)
}

// PriceSource yields closing prices for a set of symbols.
type PriceSource interface {
	GetClosePrices(ctx context.Context, symbols []string, start, end time.Time) (types.PriceTable, error)
}

type RunRequest struct {
	RobotID     string
	Start       time.Time
	End         time.Time
	InitialCash decimal.Decimal
	Holdings    []types.PositionLine
	// Automatic runs the whole range. Otherwise the run stops after the
	// first day that leaves a pending signal.
	Automatic bool
}

type Result struct {
	RunID        string            `json:"run_id"`
	RobotID      string            `json:"robot_id"`
	State        State             `json:"state"`
	StoppedEarly bool              `json:"stopped_early"`
	Days         []FormattedDay    `json:"days"`
	Summary      *Summary          `json:"summary"`
	Reports      []types.DayReport `json:"-"`
}

type Engine struct {
	signals         SignalSource
	prices          PriceSource
	config          Config
	reportingConfig ReportingConfig
	logger          *zap.Logger
	progress        io.Writer
}

func NewEngine(signals SignalSource, prices PriceSource, config Config, reportingConfig ReportingConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		signals:         signals,
		prices:          prices,
		config:          config,
		reportingConfig: reportingConfig,
		logger:          logger,
	}
}

// SetProgressWriter enables the progress bar on w. It is off by default.
func (e *Engine) SetProgressWriter(w io.Writer) {
	e.progress = w
}

// Run loads the robot's signals and prices, replays them day by day and
// passes every formatted day to sink as soon as it commits. On a failed
// or cancelled run the returned Result still holds every committed day.
func (e *Engine) Run(ctx context.Context, req RunRequest, sink func(FormattedDay) error) (*Result, error) {
	res := &Result{RunID: uuid.NewString(), RobotID: req.RobotID, State: StateReady}
	logger := e.logger.With(zap.String("run_id", res.RunID), zap.String("robot_id", req.RobotID))

	records, err := e.signals.GetSignals(ctx, req.RobotID, req.Start, req.End)
	if err != nil {
		return res, fmt.Errorf("load signals: %w", err)
	}
	days, err := NormalizeSeries(records)
	if err != nil {
		return res, fmt.Errorf("normalize signals: %w", err)
	}

	symbols := collectSymbols(days, req.Holdings)
	prices := types.PriceTable{}
	if len(symbols) > 0 {
		prices, err = e.prices.GetClosePrices(ctx, symbols, req.Start, req.End)
		if err != nil {
			return res, fmt.Errorf("load prices: %w", err)
		}
	}

	days = tradingCalendar(days, prices, req.Start, req.End)

	initial := types.NewAsset(req.InitialCash, holdingsValue(req.Holdings))
	match, err := NewMatchEngine(initial, req.Holdings, e.config.FeeModel(), prices, e.config, logger)
	if err != nil {
		return res, err
	}

	logger.Info("backtest started",
		zap.Int("days", len(days)),
		zap.Int("symbols", len(symbols)),
		zap.String("initial_total", initial.Total().String()),
	)

	bt := &backtester{
		match:     match,
		days:      days,
		automatic: req.Automatic,
		logger:    logger,
		progress:  e.progress,
	}
	runErr := bt.run(ctx, sink)

	res.Reports = bt.reports
	res.Days = bt.formatted
	res.StoppedEarly = bt.stoppedEarly
	res.State = match.State()
	res.Summary = generateSummary(res.RunID, bt.reports, initial.Total(), e.reportingConfig)

	if runErr != nil {
		logger.Error("backtest aborted", zap.Int("committed_days", len(bt.reports)), zap.Error(runErr))
		return res, runErr
	}
	logger.Info("backtest finished",
		zap.Int("committed_days", len(bt.reports)),
		zap.Bool("stopped_early", bt.stoppedEarly),
		zap.String("net_profit", res.Summary.NetProfit.String()),
	)
	return res, nil
}

// tradingCalendar merges the signal days with every quoted date inside
// [start, end]. Quoted dates without records get an empty DaySignal so stop
// rules and mark to market run on every trading day.
func tradingCalendar(days []types.DaySignal, prices types.PriceTable, start, end time.Time) []types.DaySignal {
	byDate := make(map[time.Time]types.DaySignal, len(days))
	for _, d := range days {
		byDate[d.Date] = d
	}
	for _, date := range prices.Dates() {
		if !start.IsZero() && date.Before(types.TradeDate(start)) {
			continue
		}
		if !end.IsZero() && date.After(types.TradeDate(end)) {
			continue
		}
		if _, ok := byDate[date]; !ok {
			byDate[date] = emptyDaySignal(date)
		}
	}

	out := make([]types.DaySignal, 0, len(byDate))
	for _, d := range byDate {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// collectSymbols lists every symbol a run may need a price for, sorted.
func collectSymbols(days []types.DaySignal, holdings []types.PositionLine) []string {
	set := make(map[string]struct{})
	for _, h := range holdings {
		set[h.Symbol] = struct{}{}
	}
	for _, d := range days {
		for _, s := range d.Selection {
			set[s.Symbol] = struct{}{}
		}
		for _, o := range d.TradeOrders {
			set[o.Symbol] = struct{}{}
		}
		for sym := range d.RiskFlags {
			set[sym] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for sym := range set {
		out = append(out, sym)
	}
	sort.Strings(out)
	return out
}

func holdingsValue(holdings []types.PositionLine) decimal.Decimal {
	total := decimal.Zero
	for _, h := range holdings {
		price := h.LastPrice
		if price.IsZero() {
			price = h.AvgCost
		}
		total = total.Add(h.Quantity.Mul(price))
	}
	return total
}
