package cmd

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vnmchuo/pricing-service/internal/pricing"
)

func newQuoteCmd(opts *options) *cobra.Command {
	var cycle string

	cmd := &cobra.Command{
		Use:   "quote <tier> <assets>",
		Short: "Price a tier for a number of assets",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			assets, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("assets must be a whole number: %q", args[1])
			}

			tier, err := opts.catalog.Lookup(args[0])
			if err != nil {
				return err
			}
			bc, err := pricing.ParseBillingCycle(cycle)
			if err != nil {
				return err
			}

			q, err := opts.calc.Price(tier, assets, bc)
			if err != nil {
				return err
			}
			opts.logger.Debug("quote computed",
				zap.String("tier", q.Tier),
				zap.Int64("assets", q.Assets),
				zap.Int64("overage_units", q.OverageUnits),
			)

			out := cmd.OutOrStdout()
			if opts.format == formatJSON {
				return writeJSON(out, q)
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Tier\t%s\n", q.Tier)
			fmt.Fprintf(tw, "Billing cycle\t%s\n", q.BillingCycle)
			fmt.Fprintf(tw, "Assets\t%d\n", q.Assets)
			fmt.Fprintf(tw, "Base price (monthly)\t%s\n", q.BasePriceMonthly.StringFixed(2))
			fmt.Fprintf(tw, "Base price (annual)\t%s\n", q.BasePriceAnnual.StringFixed(2))
			fmt.Fprintf(tw, "Over limit\t%d\n", q.OverageUnits)
			fmt.Fprintf(tw, "Over limit cost\t%s\n", q.OverageCost.StringFixed(2))
			fmt.Fprintf(tw, "Total (monthly)\t%s\n", q.TotalMonthly.StringFixed(2))
			fmt.Fprintf(tw, "Total (annual)\t%s\n", q.TotalAnnual.StringFixed(2))
			fmt.Fprintf(tw, "Annual vs monthly\t%s\n", q.AnnualSavingsVsMonthly.StringFixed(2))
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&cycle, "cycle", "c", string(pricing.Monthly), "billing cycle (monthly, annual)")
	return cmd
}
