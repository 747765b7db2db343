// Package pricing computes the amount charged for a consultation.
package pricing

import (
	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/apperr"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Input carries the base rate and the percentages to apply. Nil percentages mean
// "not selected".
type Input struct {
	BaseRate                decimal.Decimal
	PlatformFeePercent      decimal.Decimal
	ServiceSurchargePercent *decimal.Decimal
	OnlineDiscountPercent   *decimal.Decimal
}

// Quote breaks the final amount into its parts. FinalAmount is whole currency units.
type Quote struct {
	BaseRate         decimal.Decimal
	ServiceSurcharge decimal.Decimal
	PlatformFee      decimal.Decimal
	Discount         decimal.Decimal
	FinalAmount      decimal.Decimal
}

// Calculator is the pricing seam used by the query layer.
type Calculator interface {
	Compute(in Input) (Quote, error)
}

// DefaultCalculator applies surcharge, then platform fee, rounds half-up to a whole
// unit, then takes the online discount off the rounded amount. Without a positive
// platform fee no percentage applies and the total is the base rate rounded half-up.
type DefaultCalculator struct{}

func (DefaultCalculator) Compute(in Input) (Quote, error) {
	if in.BaseRate.IsNegative() {
		return Quote{}, &apperr.InvalidRateError{Field: "base rate", Value: in.BaseRate.String()}
	}
	if p := in.ServiceSurchargePercent; p != nil && p.IsNegative() {
		return Quote{}, &apperr.InvalidRateError{Field: "service surcharge percent", Value: p.String()}
	}
	if p := in.OnlineDiscountPercent; p != nil && (p.IsNegative() || p.GreaterThan(hundred)) {
		return Quote{}, &apperr.InvalidRateError{Field: "online discount percent", Value: p.String()}
	}

	zero := decimal.Zero
	if !in.PlatformFeePercent.IsPositive() {
		return Quote{
			BaseRate:         in.BaseRate,
			ServiceSurcharge: zero,
			PlatformFee:      zero,
			Discount:         zero,
			FinalAmount:      roundHalfUp(in.BaseRate),
		}, nil
	}

	q := Quote{BaseRate: in.BaseRate, ServiceSurcharge: zero, Discount: zero}
	rate := in.BaseRate
	if p := in.ServiceSurchargePercent; p != nil {
		q.ServiceSurcharge = percentOf(rate, *p)
		rate = rate.Add(q.ServiceSurcharge)
	}
	q.PlatformFee = percentOf(rate, in.PlatformFeePercent)
	rate = rate.Add(q.PlatformFee)

	rounded := roundHalfUp(rate)
	q.FinalAmount = rounded
	if p := in.OnlineDiscountPercent; p != nil && p.IsPositive() {
		q.FinalAmount = roundHalfUp(rounded.Sub(percentOf(rounded, *p)))
		q.Discount = rounded.Sub(q.FinalAmount)
	}
	return q, nil
}

// Compute runs the default calculator.
func Compute(in Input) (Quote, error) {
	return DefaultCalculator{}.Compute(in)
}

func percentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(hundred)
}

// roundHalfUp rounds to a whole unit; amounts here are never negative, so
// decimal's half-away-from-zero is half-up.
func roundHalfUp(d decimal.Decimal) decimal.Decimal {
	return d.Round(0)
}
