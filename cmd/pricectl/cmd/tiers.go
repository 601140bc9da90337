package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vnmchuo/pricing-service/internal/catalog"
)

type tierOutput struct {
	Name           string `json:"name"`
	Monthly        string `json:"monthly"`
	Annual         string `json:"annual"`
	Limit          *int64 `json:"limit"`
	OverLimitPrice string `json:"over_limit_price"`
}

func newTiersCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "tiers",
		Short: "List subscription tiers and traditional filing costs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tiers := opts.catalog.Tiers()
			out := cmd.OutOrStdout()

			if opts.format == formatJSON {
				rows := make([]tierOutput, 0, len(tiers))
				for _, t := range tiers {
					row := tierOutput{
						Name:           t.Name,
						Monthly:        t.MonthlyPrice.StringFixed(2),
						Annual:         t.AnnualPrice.StringFixed(2),
						OverLimitPrice: t.OveragePrice.StringFixed(2),
					}
					if !t.Unlimited {
						limit := t.IncludedLimit
						row.Limit = &limit
					}
					rows = append(rows, row)
				}
				traditional := make(map[string]string)
				for _, kind := range catalog.AssetKinds {
					traditional[string(kind)] = opts.catalog.TraditionalCost(kind).StringFixed(2)
				}
				return writeJSON(out, map[string]interface{}{
					"tiers":             rows,
					"traditional_costs": traditional,
				})
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "TIER\tMONTHLY\tANNUAL\tLIMIT\tOVER LIMIT")
			for _, t := range tiers {
				limit := "unlimited"
				if !t.Unlimited {
					limit = strconv.FormatInt(t.IncludedLimit, 10)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
					t.Name,
					t.MonthlyPrice.StringFixed(2),
					t.AnnualPrice.StringFixed(2),
					limit,
					t.OveragePrice.StringFixed(2),
				)
			}
			fmt.Fprintln(tw)
			fmt.Fprintln(tw, "ASSET\tTRADITIONAL COST")
			for _, kind := range catalog.AssetKinds {
				fmt.Fprintf(tw, "%s\t%s\n", kind, opts.catalog.TraditionalCost(kind).StringFixed(2))
			}
			return tw.Flush()
		},
	}
}
