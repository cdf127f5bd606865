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

	"coin-swap/pkg/swap"
	"coin-swap/pkg/types"
)

var (
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status <charge-code>",
	Short: "Check the status of a swap",
	Long: `Check the status of a swap by its charge code.

Examples:
  coin-swap status ABCD1234
  coin-swap status ABCD1234 --watch
  coin-swap status ABCD1234 --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates continuously")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds when no push channel is configured")
}

func runStatus(cmd *cobra.Command, args []string) {
	chargeCode := strings.TrimSpace(args[0])
	jsonOutput, _ := cmd.Flags().GetBool("json")

	s, err := newSession(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer s.Close()

	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		sp.Suffix = " Checking swap status..."
		sp.Start()
	}
	record, err := s.controller.QueryStatus(context.Background(), chargeCode)
	if !jsonOutput {
		sp.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(record)
		return
	}
	displayStatus(record)

	if watchStatus {
		if err := s.controller.Select(chargeCode); err != nil {
			printError(err)
			os.Exit(1)
		}
		if err := followSwap(s, watchInterval); err != nil {
			printError(err)
			os.Exit(1)
		}
	}
}

func displayStatus(record types.SwapRecord) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                        SWAP STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Charge Code:     %s\n", color.CyanString(record.ChargeCode))
	fmt.Printf("  Status:          %s\n", getColoredStatus(record.Status))
	fmt.Printf("  LBC:             %s\n", swap.FormatLBC(record.LBCAmount))

	if record.Status != nil && record.Status.ReceiptTxID != "" {
		fmt.Printf("  Deposit Tx:      %s\n", color.HiBlackString(record.Status.ReceiptTxID))
	}
	if link := swap.ExplorerURL(record.Status); link != "" {
		fmt.Printf("  LBC Tx:          %s\n", color.HiBlackString(link))
	}

	for _, coin := range record.Coins {
		fmt.Printf("  %-16s %s", swap.CoinLabel(coin)+":", record.SendAddresses[coin])
		if price, ok := record.SendAmounts[coin]; ok {
			fmt.Printf(" (%s)", price.String())
		}
		fmt.Println()
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func getColoredStatus(st *types.SwapStatus) string {
	label := swap.ShortStatus(st)
	if st == nil {
		return label
	}

	switch st.Status {
	case types.StatusCompleted:
		return color.GreenString(label)
	case types.StatusNew, types.StatusPending:
		return color.YellowString(label)
	case types.StatusError, types.StatusServiceDown, types.StatusExpired:
		return color.RedString(label)
	default:
		return color.MagentaString(label)
	}
}
