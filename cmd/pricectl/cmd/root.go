// Package cmd provides the pricectl commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vnmchuo/pricing-service/internal/catalog"
	"github.com/vnmchuo/pricing-service/internal/logging"
	"github.com/vnmchuo/pricing-service/internal/pricing"
)

const (
	formatTable = "table"
	formatJSON  = "json"
)

type options struct {
	format  string
	verbose bool

	catalog *catalog.Catalog
	calc    *pricing.Calculator
	logger  *zap.Logger
}

// NewRootCmd builds the command tree around the built-in price list.
func NewRootCmd() *cobra.Command {
	opts := &options{catalog: catalog.Default()}
	opts.calc = pricing.NewCalculator(opts.catalog)

	root := &cobra.Command{
		Use:   "pricectl",
		Short: "Quote subscription tiers offline",
		Long: `pricectl runs the pricing service calculators locally, without
Redis or a running server.

Examples:
  pricectl quote starter 15
  pricectl quote professional 250 --cycle annual -o json
  pricectl roi --patents 2 --trademarks 5 --copyrights 10
  pricectl tiers`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.format != formatTable && opts.format != formatJSON {
				return fmt.Errorf("unknown output format %q (use %s or %s)", opts.format, formatTable, formatJSON)
			}
			level := "warn"
			if opts.verbose {
				level = "debug"
			}
			opts.logger = logging.New(logging.Config{Level: level, Format: "console"})
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&opts.format, "output", "o", formatTable, "output format (table, json)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")

	root.AddCommand(newQuoteCmd(opts))
	root.AddCommand(newROICmd(opts))
	root.AddCommand(newTiersCmd(opts))
	root.AddCommand(newVersionCmd())

	return root
}

// Execute runs the CLI
func Execute() error {
	return NewRootCmd().Execute()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "pricectl version 1.0.0")
		},
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
