package cmd

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vnmchuo/pricing-service/internal/catalog"
	"github.com/vnmchuo/pricing-service/internal/pricing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestQuote_Table(t *testing.T) {
	out, err := run(t, "quote", "Starter", "15")
	require.NoError(t, err)

	assert.Contains(t, out, "starter")
	assert.Contains(t, out, "174.00")
	assert.Contains(t, out, "1890.00")
	assert.Contains(t, out, "-198.00")
}

func TestQuote_JSON(t *testing.T) {
	out, err := run(t, "quote", "professional", "150", "--cycle", "annual", "-o", "json")
	require.NoError(t, err)

	var q pricing.Quote
	require.NoError(t, json.Unmarshal([]byte(out), &q))
	assert.Equal(t, "professional", q.Tier)
	assert.Equal(t, pricing.Annual, q.BillingCycle)
	assert.Equal(t, int64(50), q.OverageUnits)
	assert.Equal(t, "999", q.TotalMonthly.String())
}

func TestQuote_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"unknown tier", []string{"quote", "gold", "1"}},
		{"negative assets", []string{"quote", "starter", "-1"}},
		{"non-numeric assets", []string{"quote", "starter", "many"}},
		{"bad cycle", []string{"quote", "starter", "1", "--cycle", "weekly"}},
		{"missing args", []string{"quote", "starter"}},
		{"bad format", []string{"quote", "starter", "1", "-o", "yaml"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			assert.Error(t, err)
		})
	}
}

func TestQuote_UnknownTierError(t *testing.T) {
	_, err := run(t, "quote", "gold", "1")
	assert.ErrorIs(t, err, catalog.ErrUnknownTier)
}

func TestROI(t *testing.T) {
	out, err := run(t, "roi", "--patents", "2", "--trademarks", "1", "-o", "json")
	require.NoError(t, err)

	var r roiOutput
	require.NoError(t, json.Unmarshal([]byte(out), &r))
	assert.Equal(t, "professional", r.Tier)
	assert.Equal(t, "43000.00", r.TraditionalCost)
	assert.Equal(t, "4990.00", r.VaultheirCost)
	assert.Equal(t, "38010.00", r.Savings)
	assert.Equal(t, "88.4", r.SavingsPercent)
	assert.True(t, strings.HasPrefix(r.ROI, "88.395"), r.ROI)
}

func TestROI_NegativeCount(t *testing.T) {
	_, err := run(t, "roi", "--patents", "-1")
	assert.ErrorIs(t, err, pricing.ErrInvalidArgument)
}

func TestTiers(t *testing.T) {
	out, err := run(t, "tiers")
	require.NoError(t, err)

	for _, want := range []string{"starter", "professional", "enterprise", "unlimited", "patent", "20000.00"} {
		assert.Contains(t, out, want)
	}
}

func TestTiers_JSON(t *testing.T) {
	out, err := run(t, "tiers", "-o", "json")
	require.NoError(t, err)

	var resp struct {
		Tiers            []tierOutput      `json:"tiers"`
		TraditionalCosts map[string]string `json:"traditional_costs"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Tiers, 3)
	assert.Equal(t, "starter", resp.Tiers[0].Name)
	assert.Nil(t, resp.Tiers[2].Limit)
	assert.Equal(t, "500.00", resp.TraditionalCosts["copyright"])
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "1.0.0")
}
