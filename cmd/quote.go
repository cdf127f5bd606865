package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"coin-swap/pkg/parser"
	"coin-swap/pkg/swap"
)

const quoteTimeout = 30 * time.Second

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> [BTC]",
	Short: "Show how much LBC an amount of bitcoin buys",
	Long: `Quote a swap at the current exchange rate without opening a charge.

Examples:
  coin-swap quote 0.001
  coin-swap quote 0.5 BTC
  coin-swap quote 150000 sats`,
	Args: cobra.MinimumNArgs(1),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)
}

func runQuote(cmd *cobra.Command, args []string) {
	amount, err := parser.ParseAmount(strings.Join(args, " "))
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	btc := amount.InexactFloat64()
	if err := swap.ValidateAmount(btc); err != nil {
		printError(err)
		os.Exit(1)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")

	s, err := newSession(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer s.Close()

	lbc, err := fetchQuote(s, btc, jsonOutput)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(map[string]interface{}{
			"btc": amount.String(),
			"lbc": lbc,
		})
		return
	}

	fmt.Printf("\n  %s BTC  ->  %s LBC\n\n", amount.String(), color.GreenString(swap.FormatLBC(lbc)))
}

// fetchQuote runs a quote through the controller and waits for the result
func fetchQuote(s *session, btc float64, quiet bool) (float64, error) {
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !quiet {
		sp.Suffix = " Fetching exchange rate..."
		sp.Start()
	}

	ctx, cancel := context.WithTimeout(context.Background(), quoteTimeout)
	defer cancel()

	s.controller.Quote(btc)
	lbc, err := s.controller.AwaitQuote(ctx)
	if !quiet {
		sp.Stop()
	}
	return lbc, err
}
