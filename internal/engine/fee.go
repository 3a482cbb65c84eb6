package engine

import (
	"fmt"

	"robotbacktester/types"

	"github.com/shopspring/decimal"
)

// Fee is the cost breakdown of one fill.
type Fee struct {
	Commission  decimal.Decimal
	StampDuty   decimal.Decimal
	TransferFee decimal.Decimal
	Total       decimal.Decimal
}

// FeeModel computes A-share style trading costs: commission on both sides,
// stamp duty on sells only.
type FeeModel struct {
	commissionRate decimal.Decimal
	stampDutyRate  decimal.Decimal
	minCommission  decimal.Decimal
}

func NewFeeModel(commissionRate, stampDutyRate decimal.Decimal) FeeModel {
	return FeeModel{
		commissionRate: commissionRate,
		stampDutyRate:  stampDutyRate,
	}
}

// WithMinCommission returns a copy that charges at least minCommission on
// any fill whose commission is not zero.
func (f FeeModel) WithMinCommission(minCommission decimal.Decimal) FeeModel {
	f.minCommission = minCommission
	return f
}

func (f FeeModel) Compute(side types.Side, price, quantity decimal.Decimal) (Fee, error) {
	if price.IsNegative() || quantity.IsNegative() {
		return Fee{}, fmt.Errorf("fee for price %s quantity %s: %w", price, quantity, InvalidTradeParamsErr)
	}
	value := price.Mul(quantity)

	fee := Fee{
		Commission:  value.Mul(f.commissionRate),
		StampDuty:   decimal.Zero,
		TransferFee: decimal.Zero,
	}
	if fee.Commission.IsPositive() && fee.Commission.LessThan(f.minCommission) {
		fee.Commission = f.minCommission
	}

	switch side {
	case types.SideTypeBuy:
	case types.SideTypeSell:
		fee.StampDuty = value.Mul(f.stampDutyRate)
	default:
		return Fee{}, UnknownSideErr
	}

	fee.Total = fee.Commission.Add(fee.StampDuty).Add(fee.TransferFee)
	return fee, nil
}

// capTo lowers commission, then stamp duty, then transfer fee until Total
// is at most limit.
func (f Fee) capTo(limit decimal.Decimal) Fee {
	if f.Total.LessThanOrEqual(limit) {
		return f
	}
	if limit.IsNegative() {
		limit = decimal.Zero
	}
	over := f.Total.Sub(limit)
	for _, part := range []*decimal.Decimal{&f.Commission, &f.StampDuty, &f.TransferFee} {
		cut := decimal.Min(over, *part)
		*part = part.Sub(cut)
		over = over.Sub(cut)
	}
	f.Total = f.Commission.Add(f.StampDuty).Add(f.TransferFee)
	return f
}
