// Package catalog holds the read-only pricing tables: the subscription tiers
// and the flat traditional filing costs used for ROI comparisons.
package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrUnknownTier = errors.New("unknown tier")

const (
	Starter      = "starter"
	Professional = "professional"
	Enterprise   = "enterprise"
)

type AssetKind string

const (
	Patent    AssetKind = "patent"
	Trademark AssetKind = "trademark"
	Copyright AssetKind = "copyright"
)

// AssetKinds lists the kinds in display order.
var AssetKinds = []AssetKind{Patent, Trademark, Copyright}

type Tier struct {
	Name          string
	MonthlyPrice  decimal.Decimal
	AnnualPrice   decimal.Decimal
	IncludedLimit int64
	Unlimited     bool // IncludedLimit is ignored when set
	OveragePrice  decimal.Decimal
}

// OverageUnits returns how many assets exceed the included allowance.
func (t Tier) OverageUnits(assets int64) int64 {
	if t.Unlimited || assets <= t.IncludedLimit {
		return 0
	}
	return assets - t.IncludedLimit
}

// Catalog is immutable once built and safe to share between goroutines.
type Catalog struct {
	tiers       map[string]Tier
	order       []string
	traditional map[AssetKind]decimal.Decimal
}

// New builds a catalog from the given tables. Tier names are normalized.
func New(tiers []Tier, traditional map[AssetKind]decimal.Decimal) (*Catalog, error) {
	c := &Catalog{
		tiers:       make(map[string]Tier, len(tiers)),
		traditional: make(map[AssetKind]decimal.Decimal, len(traditional)),
	}

	for _, t := range tiers {
		t.Name = Normalize(t.Name)
		if t.Name == "" {
			return nil, fmt.Errorf("tier name is required")
		}
		if _, dup := c.tiers[t.Name]; dup {
			return nil, fmt.Errorf("duplicate tier %q", t.Name)
		}
		if !t.Unlimited && t.IncludedLimit < 0 {
			return nil, fmt.Errorf("tier %q: included limit must not be negative", t.Name)
		}
		c.tiers[t.Name] = t
		c.order = append(c.order, t.Name)
	}

	for _, kind := range AssetKinds {
		cost, ok := traditional[kind]
		if !ok {
			return nil, fmt.Errorf("missing traditional cost for %s", kind)
		}
		c.traditional[kind] = cost
	}

	return c, nil
}

// Default returns the production price list.
func Default() *Catalog {
	c, err := New(
		[]Tier{
			{
				Name:          Starter,
				MonthlyPrice:  decimal.NewFromInt(99),
				AnnualPrice:   decimal.NewFromInt(990),
				IncludedLimit: 10,
				OveragePrice:  decimal.NewFromInt(15),
			},
			{
				Name:          Professional,
				MonthlyPrice:  decimal.NewFromInt(499),
				AnnualPrice:   decimal.NewFromInt(4990),
				IncludedLimit: 100,
				OveragePrice:  decimal.NewFromInt(10),
			},
			{
				Name:         Enterprise,
				MonthlyPrice: decimal.NewFromInt(2499),
				AnnualPrice:  decimal.NewFromInt(24990),
				Unlimited:    true,
				OveragePrice: decimal.Zero,
			},
		},
		map[AssetKind]decimal.Decimal{
			Patent:    decimal.NewFromInt(20000),
			Trademark: decimal.NewFromInt(3000),
			Copyright: decimal.NewFromInt(500),
		},
	)
	if err != nil {
		panic(fmt.Sprintf("catalog: invalid default price list: %v", err))
	}
	return c
}

// Normalize trims and lowercases a tier name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Lookup resolves a tier by name, case-insensitively.
func (c *Catalog) Lookup(name string) (Tier, error) {
	t, ok := c.tiers[Normalize(name)]
	if !ok {
		return Tier{}, fmt.Errorf("%w: %s", ErrUnknownTier, name)
	}
	return t, nil
}

// Tiers returns the tiers in their declared order.
func (c *Catalog) Tiers() []Tier {
	out := make([]Tier, 0, len(c.order))
	for _, name := range c.order {
		out = append(out, c.tiers[name])
	}
	return out
}

func (c *Catalog) TraditionalCost(kind AssetKind) decimal.Decimal {
	return c.traditional[kind]
}
