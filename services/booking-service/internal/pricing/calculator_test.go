package pricing

import (
	"errors"
	"testing"

	"github.com/md-rashed-zaman/consultbook/services/booking-service/internal/apperr"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func pct(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.Truef(t, d(want).Equal(got), "expected %s, got %s", want, got)
}

func TestCompute_FeeOnly(t *testing.T) {
	q, err := Compute(Input{BaseRate: d("100"), PlatformFeePercent: d("10")})
	require.NoError(t, err)
	assertAmount(t, "110", q.FinalAmount)
	assertAmount(t, "10", q.PlatformFee)
	assertAmount(t, "0", q.Discount)
}

func TestCompute_OnlineDiscount(t *testing.T) {
	q, err := Compute(Input{BaseRate: d("100"), PlatformFeePercent: d("10"), OnlineDiscountPercent: pct("20")})
	require.NoError(t, err)
	assertAmount(t, "88", q.FinalAmount)
	assertAmount(t, "22", q.Discount)
}

func TestCompute_SurchargeThenFee(t *testing.T) {
	q, err := Compute(Input{BaseRate: d("80"), PlatformFeePercent: d("10"), ServiceSurchargePercent: pct("25")})
	require.NoError(t, err)
	assertAmount(t, "20", q.ServiceSurcharge)
	assertAmount(t, "10", q.PlatformFee)
	assertAmount(t, "110", q.FinalAmount)
}

func TestCompute_RoundsHalfUp(t *testing.T) {
	// 45 * 1.1 = 49.5 -> 50
	q, err := Compute(Input{BaseRate: d("45"), PlatformFeePercent: d("10")})
	require.NoError(t, err)
	assertAmount(t, "50", q.FinalAmount)

	// 41 * 1.1 = 45.1 -> 45
	q, err = Compute(Input{BaseRate: d("41"), PlatformFeePercent: d("10")})
	require.NoError(t, err)
	assertAmount(t, "45", q.FinalAmount)

	// 50 rounded, 15% off = 42.5 -> 43
	q, err = Compute(Input{BaseRate: d("45"), PlatformFeePercent: d("10"), OnlineDiscountPercent: pct("15")})
	require.NoError(t, err)
	assertAmount(t, "43", q.FinalAmount)
	assertAmount(t, "7", q.Discount)
}

func TestCompute_NoFeeReturnsBaseRate(t *testing.T) {
	for _, fee := range []string{"0", "-5"} {
		q, err := Compute(Input{
			BaseRate:                d("99.90"),
			PlatformFeePercent:      d(fee),
			ServiceSurchargePercent: pct("10"),
			OnlineDiscountPercent:   pct("20"),
		})
		require.NoError(t, err)
		assertAmount(t, "99.90", q.BaseRate)
		assertAmount(t, "100", q.FinalAmount)
		assertAmount(t, "0", q.ServiceSurcharge)
		assertAmount(t, "0", q.Discount)
	}

	q, err := Compute(Input{BaseRate: d("100.5")})
	require.NoError(t, err)
	assertAmount(t, "101", q.FinalAmount)

	q, err = Compute(Input{BaseRate: d("100.49")})
	require.NoError(t, err)
	assertAmount(t, "100", q.FinalAmount)
}

func TestCompute_RejectsInvalid(t *testing.T) {
	cases := []Input{
		{BaseRate: d("-1"), PlatformFeePercent: d("10")},
		{BaseRate: d("10"), PlatformFeePercent: d("10"), ServiceSurchargePercent: pct("-3")},
		{BaseRate: d("10"), PlatformFeePercent: d("10"), OnlineDiscountPercent: pct("101")},
	}
	for _, in := range cases {
		_, err := Compute(in)
		var re *apperr.InvalidRateError
		assert.True(t, errors.As(err, &re), "expected InvalidRateError for %+v", in)
	}
}
