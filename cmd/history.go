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

	"coin-swap/pkg/store"
	"coin-swap/pkg/swap"
)

var removeConfirmed bool

var historyCmd = &cobra.Command{
	Use:     "history",
	Aliases: []string{"past", "ls"},
	Short:   "List your past swaps",
	Long: `List every swap started from this machine with its latest status.

Statuses are re-queried at most once per history_refresh_interval (60 seconds
by default) to stay within the provider's request quota.

Examples:
  coin-swap history
  coin-swap history remove ABCD1234`,
	Run: runHistory,
}

var historyRemoveCmd = &cobra.Command{
	Use:     "remove <charge-code>",
	Aliases: []string{"rm"},
	Short:   "Remove a swap from the history",
	Args:    cobra.ExactArgs(1),
	Run:     runHistoryRemove,
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historyRemoveCmd)

	historyRemoveCmd.Flags().BoolVarP(&removeConfirmed, "yes", "y", false, "Skip confirmation prompt")
}

func runHistory(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	s, err := newSession(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer s.Close()

	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		sp.Suffix = " Refreshing swap statuses..."
		sp.Start()
	}
	_, err = s.controller.RefreshHistory(context.Background())
	if !jsonOutput {
		sp.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	records := s.controller.Snapshot().Records
	if jsonOutput {
		printJSON(records)
		return
	}
	displayHistory(records)
}

func runHistoryRemove(cmd *cobra.Command, args []string) {
	chargeCode := strings.TrimSpace(args[0])

	s, err := newSession(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer s.Close()

	removed, err := s.controller.RemoveRecord(chargeCode, func(code string) bool {
		if removeConfirmed {
			return true
		}
		return confirm(fmt.Sprintf("Remove swap %s from history?", code))
	})
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if !removed {
		fmt.Println("\nNothing removed.")
		return
	}
	printSuccess(fmt.Sprintf("Removed swap %s.", chargeCode))
}

func displayHistory(records store.Collection) {
	if len(records) == 0 {
		fmt.Println("\nNo past swaps.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                                PAST SWAPS")
	fmt.Println(strings.Repeat("=", 90))

	fmt.Printf("\n  %-24s  %-18s  %-16s  %s\n", "CHARGE CODE", "LBC", "STATUS", "COINS")
	fmt.Println(strings.Repeat("-", 90))

	// Newest first
	for i := len(records) - 1; i >= 0; i-- {
		rec := records[i]

		coins := make([]string, len(rec.Coins))
		for j, coin := range rec.Coins {
			coins[j] = swap.CoinLabel(coin)
		}

		fmt.Printf("  %-24s  %-18s  %-16s  %s\n",
			color.CyanString(rec.ChargeCode),
			swap.FormatLBC(rec.LBCAmount),
			getColoredStatus(rec.Status),
			color.HiBlackString(strings.Join(coins, ", ")))

		if link := swap.ExplorerURL(rec.Status); link != "" {
			fmt.Printf("  %s\n", color.HiBlackString(link))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d swaps\n\n", len(records))
}
