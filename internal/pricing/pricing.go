// Package pricing computes subscription quotes and ROI comparisons from the
// catalog. Everything here is pure; callers own caching and I/O.
package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/vnmchuo/pricing-service/internal/catalog"
)

var ErrInvalidArgument = errors.New("invalid argument")

var (
	twelve  = decimal.NewFromInt(12)
	hundred = decimal.NewFromInt(100)
)

type BillingCycle string

const (
	Monthly BillingCycle = "monthly"
	Annual  BillingCycle = "annual"
)

// ParseBillingCycle normalizes s. An empty value means monthly.
func ParseBillingCycle(s string) (BillingCycle, error) {
	switch c := BillingCycle(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return Monthly, nil
	case Monthly, Annual:
		return c, nil
	default:
		return "", fmt.Errorf("%w: unsupported billing_cycle %q", ErrInvalidArgument, s)
	}
}

// Quote is a priced subscription. Both totals are always filled in; the
// billing cycle is carried through for the caller and does not change them.
type Quote struct {
	Tier                   string          `json:"tier"`
	BillingCycle           BillingCycle    `json:"billing_cycle"`
	BasePriceMonthly       decimal.Decimal `json:"base_price_monthly"`
	BasePriceAnnual        decimal.Decimal `json:"base_price_annual"`
	Assets                 int64           `json:"assets"`
	OverageUnits           int64           `json:"overage_units"`
	OverageCost            decimal.Decimal `json:"overage_cost"`
	TotalMonthly           decimal.Decimal `json:"total_monthly"`
	TotalAnnual            decimal.Decimal `json:"total_annual"`
	AnnualSavingsVsMonthly decimal.Decimal `json:"annual_savings_vs_monthly"`
	Cached                 bool            `json:"cached"`
}

// MarshalBinary implements encoding.BinaryMarshaler for Redis
func (q *Quote) MarshalBinary() ([]byte, error) {
	return json.Marshal(q)
}

// UnmarshalBinary implements encoding.BinaryUnmarshaler for Redis
func (q *Quote) UnmarshalBinary(data []byte) error {
	return json.Unmarshal(data, q)
}

// Portfolio counts the assets a customer would otherwise file traditionally.
type Portfolio struct {
	Patents    int64
	Trademarks int64
	Copyrights int64
}

func (p Portfolio) Total() int64 {
	return p.Patents + p.Trademarks + p.Copyrights
}

func (p Portfolio) validate() error {
	switch {
	case p.Patents < 0:
		return fmt.Errorf("%w: patents must not be negative, got %d", ErrInvalidArgument, p.Patents)
	case p.Trademarks < 0:
		return fmt.Errorf("%w: trademarks must not be negative, got %d", ErrInvalidArgument, p.Trademarks)
	case p.Copyrights < 0:
		return fmt.Errorf("%w: copyrights must not be negative, got %d", ErrInvalidArgument, p.Copyrights)
	case p.Patents > math.MaxInt64-p.Trademarks || p.Patents+p.Trademarks > math.MaxInt64-p.Copyrights:
		return fmt.Errorf("%w: portfolio has too many assets", ErrInvalidArgument)
	}
	return nil
}

type ROI struct {
	Tier            string
	TraditionalCost decimal.Decimal
	ServiceCost     decimal.Decimal
	Savings         decimal.Decimal
	SavingsPercent  decimal.Decimal // rounded to one decimal place
	ROI             decimal.Decimal // unrounded savings percentage
}

type Calculator struct {
	catalog *catalog.Catalog
}

func NewCalculator(c *catalog.Catalog) *Calculator {
	return &Calculator{catalog: c}
}

// ValidateAssets rejects negative asset counts.
func ValidateAssets(assets int64) error {
	if assets < 0 {
		return fmt.Errorf("%w: assets must not be negative, got %d", ErrInvalidArgument, assets)
	}
	return nil
}

// Price quotes a tier for the given number of assets.
func (c *Calculator) Price(tier catalog.Tier, assets int64, cycle BillingCycle) (*Quote, error) {
	if err := ValidateAssets(assets); err != nil {
		return nil, err
	}

	overageUnits, overageCost := overage(tier, assets)

	return &Quote{
		Tier:                   tier.Name,
		BillingCycle:           cycle,
		BasePriceMonthly:       tier.MonthlyPrice,
		BasePriceAnnual:        tier.AnnualPrice,
		Assets:                 assets,
		OverageUnits:           overageUnits,
		OverageCost:            overageCost,
		TotalMonthly:           tier.MonthlyPrice.Add(overageCost),
		TotalAnnual:            tier.AnnualPrice.Add(overageCost.Mul(twelve)),
		AnnualSavingsVsMonthly: tier.AnnualPrice.Sub(tier.MonthlyPrice.Mul(twelve)),
	}, nil
}

// ROI compares a year of the tier against filing the portfolio traditionally.
func (c *Calculator) ROI(tier catalog.Tier, p Portfolio) (*ROI, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	traditional := c.catalog.TraditionalCost(catalog.Patent).Mul(decimal.NewFromInt(p.Patents)).
		Add(c.catalog.TraditionalCost(catalog.Trademark).Mul(decimal.NewFromInt(p.Trademarks))).
		Add(c.catalog.TraditionalCost(catalog.Copyright).Mul(decimal.NewFromInt(p.Copyrights)))

	_, overageCost := overage(tier, p.Total())
	service := tier.AnnualPrice.Add(overageCost.Mul(twelve))
	savings := traditional.Sub(service)

	percent := decimal.Zero
	if traditional.IsPositive() {
		percent = savings.Div(traditional).Mul(hundred)
	}

	return &ROI{
		Tier:            tier.Name,
		TraditionalCost: traditional,
		ServiceCost:     service,
		Savings:         savings,
		SavingsPercent:  percent.Round(1),
		ROI:             percent,
	}, nil
}

func overage(tier catalog.Tier, assets int64) (int64, decimal.Decimal) {
	units := tier.OverageUnits(assets)
	return units, tier.OveragePrice.Mul(decimal.NewFromInt(units))
}
