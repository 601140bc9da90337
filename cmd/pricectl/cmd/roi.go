package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vnmchuo/pricing-service/internal/catalog"
	"github.com/vnmchuo/pricing-service/internal/pricing"
)

type roiOutput struct {
	Tier            string `json:"tier"`
	TraditionalCost string `json:"traditional_cost"`
	VaultheirCost   string `json:"vaultheir_cost"`
	Savings         string `json:"savings"`
	SavingsPercent  string `json:"savings_percent"`
	ROI             string `json:"roi"`
}

func newROICmd(opts *options) *cobra.Command {
	var (
		tierName  string
		portfolio pricing.Portfolio
	)

	cmd := &cobra.Command{
		Use:   "roi",
		Short: "Compare a tier against traditional filing costs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tier, err := opts.catalog.Lookup(tierName)
			if err != nil {
				return err
			}
			r, err := opts.calc.ROI(tier, portfolio)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.format == formatJSON {
				return writeJSON(out, roiOutput{
					Tier:            r.Tier,
					TraditionalCost: r.TraditionalCost.StringFixed(2),
					VaultheirCost:   r.ServiceCost.StringFixed(2),
					Savings:         r.Savings.StringFixed(2),
					SavingsPercent:  r.SavingsPercent.String(),
					ROI:             r.ROI.String(),
				})
			}

			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(tw, "Tier\t%s\n", r.Tier)
			fmt.Fprintf(tw, "Traditional cost\t%s\n", r.TraditionalCost.StringFixed(2))
			fmt.Fprintf(tw, "Vaultheir cost\t%s\n", r.ServiceCost.StringFixed(2))
			fmt.Fprintf(tw, "Savings\t%s\n", r.Savings.StringFixed(2))
			fmt.Fprintf(tw, "Savings percent\t%s%%\n", r.SavingsPercent.StringFixed(1))
			return tw.Flush()
		},
	}

	cmd.Flags().StringVarP(&tierName, "tier", "t", catalog.Professional, "subscription tier")
	cmd.Flags().Int64Var(&portfolio.Patents, "patents", 0, "number of patents")
	cmd.Flags().Int64Var(&portfolio.Trademarks, "trademarks", 0, "number of trademarks")
	cmd.Flags().Int64Var(&portfolio.Copyrights, "copyrights", 0, "number of copyrights")
	return cmd
}
