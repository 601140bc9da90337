package pricing

import (
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnmchuo/pricing-service/internal/catalog"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func setup(t *testing.T, tierName string) (*Calculator, catalog.Tier) {
	t.Helper()
	c := catalog.Default()
	tier, err := c.Lookup(tierName)
	require.NoError(t, err)
	return NewCalculator(c), tier
}

func TestPrice_StarterWithOverage(t *testing.T) {
	calc, tier := setup(t, catalog.Starter)

	q, err := calc.Price(tier, 15, Monthly)
	require.NoError(t, err)

	assert.Equal(t, int64(5), q.OverageUnits)
	assert.True(t, q.OverageCost.Equal(dec(75)), q.OverageCost.String())
	assert.True(t, q.TotalMonthly.Equal(dec(174)), q.TotalMonthly.String())
	assert.True(t, q.TotalAnnual.Equal(dec(1890)), q.TotalAnnual.String())
	assert.True(t, q.AnnualSavingsVsMonthly.Equal(dec(-198)), q.AnnualSavingsVsMonthly.String())
	assert.False(t, q.Cached)
}

func TestPrice_EnterpriseIsUnbounded(t *testing.T) {
	calc, tier := setup(t, catalog.Enterprise)

	q, err := calc.Price(tier, 1_000_000, Monthly)
	require.NoError(t, err)

	assert.Equal(t, int64(0), q.OverageUnits)
	assert.True(t, q.OverageCost.IsZero())
	assert.True(t, q.TotalMonthly.Equal(dec(2499)))
	assert.True(t, q.TotalAnnual.Equal(dec(24990)))
}

func TestPrice_TotalsHoldForEveryTier(t *testing.T) {
	c := catalog.Default()
	calc := NewCalculator(c)

	for _, tier := range c.Tiers() {
		for _, assets := range []int64{0, 1, 9, 10, 11, 99, 100, 101, 250, 10_000} {
			q, err := calc.Price(tier, assets, Monthly)
			require.NoError(t, err)

			wantUnits := int64(0)
			if !tier.Unlimited && assets > tier.IncludedLimit {
				wantUnits = assets - tier.IncludedLimit
			}
			require.Equal(t, wantUnits, q.OverageUnits, "%s/%d", tier.Name, assets)

			cost := tier.OveragePrice.Mul(dec(wantUnits))
			assert.True(t, q.TotalMonthly.Equal(q.BasePriceMonthly.Add(cost)), "%s/%d monthly", tier.Name, assets)
			assert.True(t, q.TotalAnnual.Equal(q.BasePriceAnnual.Add(cost.Mul(dec(12)))), "%s/%d annual", tier.Name, assets)
		}
	}
}

func TestPrice_BillingCycleDoesNotChangeTotals(t *testing.T) {
	calc, tier := setup(t, catalog.Professional)

	monthly, err := calc.Price(tier, 150, Monthly)
	require.NoError(t, err)
	annual, err := calc.Price(tier, 150, Annual)
	require.NoError(t, err)

	assert.Equal(t, Monthly, monthly.BillingCycle)
	assert.Equal(t, Annual, annual.BillingCycle)
	assert.True(t, monthly.TotalMonthly.Equal(annual.TotalMonthly))
	assert.True(t, monthly.TotalAnnual.Equal(annual.TotalAnnual))
}

func TestPrice_NegativeAssets(t *testing.T) {
	calc, tier := setup(t, catalog.Starter)

	_, err := calc.Price(tier, -1, Monthly)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidArgument))
}

func TestParseBillingCycle(t *testing.T) {
	tests := []struct {
		in      string
		want    BillingCycle
		wantErr bool
	}{
		{"", Monthly, false},
		{"monthly", Monthly, false},
		{"Annual", Annual, false},
		{" annual ", Annual, false},
		{"weekly", "", true},
	}

	for _, tt := range tests {
		got, err := ParseBillingCycle(tt.in)
		if tt.wantErr {
			assert.True(t, errors.Is(err, ErrInvalidArgument), tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestROI_ProfessionalWithinLimit(t *testing.T) {
	calc, tier := setup(t, catalog.Professional)

	r, err := calc.ROI(tier, Portfolio{Patents: 2, Trademarks: 1})
	require.NoError(t, err)

	assert.True(t, r.TraditionalCost.Equal(dec(43000)))
	assert.True(t, r.ServiceCost.Equal(dec(4990)))
	assert.True(t, r.Savings.Equal(dec(38010)))
	assert.Equal(t, "88.4", r.SavingsPercent.String())
	assert.InDelta(t, 88.3953488372093, r.ROI.InexactFloat64(), 1e-9)
}

func TestROI_OverageIsAnnualized(t *testing.T) {
	calc, tier := setup(t, catalog.Starter)

	r, err := calc.ROI(tier, Portfolio{Copyrights: 12})
	require.NoError(t, err)

	// 2 assets over the limit at 15 each, billed for 12 months.
	assert.True(t, r.ServiceCost.Equal(dec(990+2*15*12)), r.ServiceCost.String())
	assert.True(t, r.TraditionalCost.Equal(dec(6000)))
}

func TestROI_EmptyPortfolioHasZeroPercent(t *testing.T) {
	c := catalog.Default()
	calc := NewCalculator(c)

	for _, tier := range c.Tiers() {
		r, err := calc.ROI(tier, Portfolio{})
		require.NoError(t, err)
		assert.True(t, r.SavingsPercent.IsZero(), tier.Name)
		assert.True(t, r.Savings.Equal(tier.AnnualPrice.Neg()), tier.Name)
	}
}

func TestROI_TotalOverflowRejected(t *testing.T) {
	calc, tier := setup(t, catalog.Starter)

	for _, p := range []Portfolio{
		{Patents: math.MaxInt64, Trademarks: 1},
		{Trademarks: math.MaxInt64 - 1, Copyrights: 2},
		{Patents: math.MaxInt64 / 2, Trademarks: math.MaxInt64 / 2, Copyrights: 2},
	} {
		_, err := calc.ROI(tier, p)
		assert.True(t, errors.Is(err, ErrInvalidArgument), "%+v", p)
	}

	r, err := calc.ROI(tier, Portfolio{Patents: math.MaxInt64 - 10})
	require.NoError(t, err)
	assert.True(t, r.ServiceCost.GreaterThan(tier.AnnualPrice), "overage must be charged")
}

func TestROI_NegativeCounts(t *testing.T) {
	calc, tier := setup(t, catalog.Professional)

	for _, p := range []Portfolio{{Patents: -1}, {Trademarks: -2}, {Copyrights: -3}} {
		_, err := calc.ROI(tier, p)
		assert.True(t, errors.Is(err, ErrInvalidArgument), "%+v", p)
	}
}

func TestQuote_BinaryRoundTripKeepsDecimals(t *testing.T) {
	calc, tier := setup(t, catalog.Starter)
	q, err := calc.Price(tier, 15, Annual)
	require.NoError(t, err)

	data, err := q.MarshalBinary()
	require.NoError(t, err)

	var got Quote
	require.NoError(t, got.UnmarshalBinary(data))
	assert.True(t, got.TotalAnnual.Equal(q.TotalAnnual))
	assert.Equal(t, q.BillingCycle, got.BillingCycle)
	assert.Equal(t, q.OverageUnits, got.OverageUnits)
}
