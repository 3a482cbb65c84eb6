// Package config loads and validates the YAML file that drives a backtest run.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"robotbacktester/internal/engine"
	"robotbacktester/types"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	Robot    RobotConfig    `yaml:"robot"`
	Trading  TradingConfig  `yaml:"trading"`
	Output   OutputConfig   `yaml:"output"`
}

type AppConfig struct {
	Name string `yaml:"name"`
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RobotConfig struct {
	ID string `yaml:"id"`
	// Start and End are YYYY-MM-DD; empty means unbounded.
	Start       string          `yaml:"start"`
	End         string          `yaml:"end"`
	InitialCash float64         `yaml:"initial_cash"`
	Automatic   bool            `yaml:"automatic"`
	Holdings    []HoldingConfig `yaml:"holdings"`
}

// HoldingConfig is a position the robot already holds when the run starts.
// Zero stop bounds are unset.
type HoldingConfig struct {
	Symbol     string  `yaml:"symbol"`
	Quantity   int64   `yaml:"quantity"`
	AvgCost    float64 `yaml:"avg_cost"`
	StopLoss   float64 `yaml:"stop_loss"`
	StopProfit float64 `yaml:"stop_profit"`
}

type TradingConfig struct {
	MaxHoldingsCount int     `yaml:"max_holdings_count"`
	LotSize          int64   `yaml:"lot_size"`
	CommissionRate   float64 `yaml:"commission_rate"`
	StampDutyRate    float64 `yaml:"stamp_duty_rate"`
	MinCommission    float64 `yaml:"min_commission"`
	StopLossRate     float64 `yaml:"stop_loss_rate"`
	StopProfitRate   float64 `yaml:"stop_profit_rate"`
	RiskFreeRate     float64 `yaml:"risk_free_rate"`
}

type OutputConfig struct {
	Dir      string `yaml:"dir"`
	CSV      bool   `yaml:"csv"`
	JSON     bool   `yaml:"json"`
	Progress bool   `yaml:"progress"`
}

// Load reads path, applies defaults and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes data over Default, so keys missing from the file keep their
// default while an explicit zero is kept as zero.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &cfg, nil
}

// Default is the configuration a file with no keys decodes to.
func Default() Config {
	return Config{
		App: AppConfig{
			Name:     "robot-backtester",
			LogLevel: "info",
		},
		Trading: TradingConfig{
			MaxHoldingsCount: 5,
			LotSize:          100,
			CommissionRate:   0.00025,
			StampDutyRate:    0.001,
		},
		Output: OutputConfig{
			Dir: "./output",
		},
	}
}

// setDefaults fills the fields where an empty value has no meaning.
func (c *Config) setDefaults() {
	if c.App.Name == "" {
		c.App.Name = "robot-backtester"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Trading.LotSize == 0 {
		c.Trading.LotSize = 100
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "./output"
	}
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []string

	switch strings.ToLower(c.App.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		errs = append(errs, fmt.Sprintf("app.log_level: unknown level %q", c.App.LogLevel))
	}

	if c.Database.URL == "" {
		errs = append(errs, "database.url: required")
	}

	if c.Robot.ID == "" {
		errs = append(errs, "robot.id: required")
	}
	if c.Robot.InitialCash <= 0 {
		errs = append(errs, "robot.initial_cash: must be > 0")
	}
	start, errStart := parseOptionalDate(c.Robot.Start)
	if errStart != nil {
		errs = append(errs, fmt.Sprintf("robot.start: %v", errStart))
	}
	end, errEnd := parseOptionalDate(c.Robot.End)
	if errEnd != nil {
		errs = append(errs, fmt.Sprintf("robot.end: %v", errEnd))
	}
	if errStart == nil && errEnd == nil && !start.IsZero() && !end.IsZero() && end.Before(start) {
		errs = append(errs, "robot.end: before robot.start")
	}

	seen := make(map[string]bool, len(c.Robot.Holdings))
	for i, h := range c.Robot.Holdings {
		field := fmt.Sprintf("robot.holdings[%d]", i)
		if h.Symbol == "" {
			errs = append(errs, field+".symbol: required")
		} else if seen[h.Symbol] {
			errs = append(errs, fmt.Sprintf("%s.symbol: %s listed twice", field, h.Symbol))
		}
		seen[h.Symbol] = true
		if h.Quantity <= 0 {
			errs = append(errs, field+".quantity: must be > 0")
		}
		if h.AvgCost < 0 || h.StopLoss < 0 || h.StopProfit < 0 {
			errs = append(errs, field+": prices must be >= 0")
		}
	}

	if c.Trading.MaxHoldingsCount < 0 {
		errs = append(errs, "trading.max_holdings_count: must be >= 0")
	}
	if c.Trading.LotSize < 0 {
		errs = append(errs, "trading.lot_size: must be > 0")
	}
	for name, rate := range map[string]float64{
		"trading.commission_rate":  c.Trading.CommissionRate,
		"trading.stamp_duty_rate":  c.Trading.StampDutyRate,
		"trading.stop_loss_rate":   c.Trading.StopLossRate,
		"trading.stop_profit_rate": c.Trading.StopProfitRate,
	} {
		if rate < 0 || rate > 1 {
			errs = append(errs, fmt.Sprintf("%s: must be within [0, 1]", name))
		}
	}
	if c.Trading.MinCommission < 0 {
		errs = append(errs, "trading.min_commission: must be >= 0")
	}

	if len(errs) > 0 {
		sort.Strings(errs)
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) EngineConfig() engine.Config {
	cfg := engine.NewConfig(
		c.Trading.MaxHoldingsCount,
		decimal.NewFromFloat(c.Trading.CommissionRate),
		decimal.NewFromFloat(c.Trading.StampDutyRate),
	)
	cfg.LotSize = c.Trading.LotSize
	cfg.MinCommission = decimal.NewFromFloat(c.Trading.MinCommission)
	cfg.StopLossRate = decimal.NewFromFloat(c.Trading.StopLossRate)
	cfg.StopProfitRate = decimal.NewFromFloat(c.Trading.StopProfitRate)
	return cfg
}

func (c *Config) ReportingConfig() engine.ReportingConfig {
	return engine.NewReportingConfig(decimal.NewFromFloat(c.Trading.RiskFreeRate))
}

// RunRequest builds the engine request for the configured robot. Dates have
// already been checked by Validate.
func (c *Config) RunRequest() engine.RunRequest {
	start, _ := parseOptionalDate(c.Robot.Start)
	end, _ := parseOptionalDate(c.Robot.End)
	return engine.RunRequest{
		RobotID:     c.Robot.ID,
		Start:       start,
		End:         end,
		InitialCash: decimal.NewFromFloat(c.Robot.InitialCash),
		Holdings:    c.holdings(),
		Automatic:   c.Robot.Automatic,
	}
}

func (c *Config) holdings() []types.PositionLine {
	out := make([]types.PositionLine, 0, len(c.Robot.Holdings))
	for _, h := range c.Robot.Holdings {
		out = append(out, types.PositionLine{
			Symbol:     h.Symbol,
			Exchange:   types.ExchangeForSymbol(h.Symbol),
			Quantity:   decimal.NewFromInt(h.Quantity),
			AvgCost:    decimal.NewFromFloat(h.AvgCost),
			StopLoss:   decimal.NewFromFloat(h.StopLoss),
			StopProfit: decimal.NewFromFloat(h.StopProfit),
		})
	}
	return out
}

func parseOptionalDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return types.ParseDate(s)
}
