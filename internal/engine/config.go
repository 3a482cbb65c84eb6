package engine

import (
	"github.com/shopspring/decimal"
)

const defaultLotSize = 100

type Config struct {
	MaxHoldingsCount int
	LotSize          int64
	CommissionRate   decimal.Decimal
	StampDutyRate    decimal.Decimal
	MinCommission    decimal.Decimal
	// StopLossRate and StopProfitRate set bounds relative to avg cost on every
	// buy fill. Zero disables them.
	StopLossRate   decimal.Decimal
	StopProfitRate decimal.Decimal
}

func NewConfig(maxHoldingsCount int, commissionRate, stampDutyRate decimal.Decimal) Config {
	return Config{
		MaxHoldingsCount: maxHoldingsCount,
		LotSize:          defaultLotSize,
		CommissionRate:   commissionRate,
		StampDutyRate:    stampDutyRate,
	}
}

func DefaultConfig() Config {
	return NewConfig(5, decimal.RequireFromString("0.00025"), decimal.RequireFromString("0.001"))
}

func (c Config) lot() decimal.Decimal {
	if c.LotSize <= 0 {
		return decimal.NewFromInt(defaultLotSize)
	}
	return decimal.NewFromInt(c.LotSize)
}

func (c Config) FeeModel() FeeModel {
	return NewFeeModel(c.CommissionRate, c.StampDutyRate).WithMinCommission(c.MinCommission)
}

type ReportingConfig struct {
	sharpeRiskFreeRate decimal.Decimal
}

func NewReportingConfig(sharpeRiskFreeRate decimal.Decimal) ReportingConfig {
	return ReportingConfig{sharpeRiskFreeRate: sharpeRiskFreeRate}
}
