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

	"coin-swap/pkg/deposit"
	"coin-swap/pkg/parser"
	"coin-swap/pkg/swap"
	"coin-swap/pkg/types"
)

var (
	payoutAddr  string
	noConfirm   bool
	watchSwap   bool
	depositCoin string
	autoDeposit bool
)

var swapCmd = &cobra.Command{
	Use:   "swap <amount> [BTC]",
	Short: "Swap crypto for LBRY Credits",
	Long: `Open a charge for the given bitcoin amount and receive LBC at your payout address.

The charge accepts bitcoin and every other coin the provider lists; the deposit
instructions show each address and the exact amount to send.

Examples:
  coin-swap swap 0.001 --payout bXXXXXXXX
  coin-swap swap 0.001 BTC --payout bXXXXXXXX --watch

  # Pay the charge in USDC from the configured EVM wallet
  coin-swap swap 0.001 --payout bXXXXXXXX --coin usdc --auto-deposit

  # Skip all confirmations
  coin-swap swap 0.001 --payout bXXXXXXXX --yes`,
	Args: cobra.MinimumNArgs(1),
	Run:  runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().StringVar(&payoutAddr, "payout", "", "LBC address that receives the credits (defaults to payout_address from config)")
	swapCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompts")
	swapCmd.Flags().BoolVarP(&watchSwap, "watch", "w", false, "Follow the swap until the credits are sent")
	swapCmd.Flags().StringVar(&depositCoin, "coin", "ethereum", "Coin to pay the charge with when auto-depositing (ethereum, dai, usdc)")
	swapCmd.Flags().BoolVar(&autoDeposit, "auto-deposit", false, "Automatically send the deposit (requires configuration)")
}

func runSwap(cmd *cobra.Command, args []string) {
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

	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	s, err := newSession(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer s.Close()

	payout := payoutAddr
	if payout == "" {
		payout = s.cfg.PayoutAddress
	}
	if payout == "" {
		printError(fmt.Errorf("%w: use --payout or set payout_address", swap.ErrMissingPayout))
		os.Exit(1)
	}

	lbc, err := fetchQuote(s, btc, jsonOutput)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if !jsonOutput {
		displayQuote(amount.String(), lbc, payout)
	}

	if !noConfirm && !jsonOutput {
		if !confirm("Proceed with swap?") {
			fmt.Println("\nSwap cancelled.")
			os.Exit(0)
		}
	}

	ctx := context.Background()
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		sp.Suffix = " Opening charge..."
		sp.Start()
	}
	record, err := s.controller.StartSwap(ctx, btc, lbc, payout)
	if !jsonOutput {
		sp.Stop()
	}
	if err != nil {
		if snap := s.controller.Snapshot(); snap.Notice != nil && !verbose {
			err = fmt.Errorf("%s", snap.Notice.Message)
		}
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		printJSON(record)
	} else {
		displayDepositInstructions(*record)
	}

	if autoDeposit || s.cfg.AutoDeposit.Enabled {
		if err := handleAutoDeposit(ctx, s, *record, verbose); err != nil {
			color.Red("\nAuto-deposit failed: %v", err)
			color.Yellow("Please send the deposit manually using the instructions above.\n")
		}
	}

	if watchSwap && !jsonOutput {
		if err := followSwap(s, watchInterval); err != nil {
			printError(err)
			os.Exit(1)
		}
		return
	}

	if !jsonOutput {
		fmt.Println("\nYou can monitor the swap status using:")
		color.Cyan("  coin-swap status %s --watch\n", record.ChargeCode)
	}
}

func handleAutoDeposit(ctx context.Context, s *session, record types.SwapRecord, verbose bool) error {
	depositMgr := deposit.NewManager(s.cfg.AutoDeposit, s.entry)
	coin := parser.NormalizeCoin(depositCoin)

	if !depositMgr.IsEnabledForCoin(coin) {
		return fmt.Errorf("auto-deposit not enabled for %s (supported: %s)", coin, strings.Join(depositMgr.SupportedCoins(), ", "))
	}

	price := record.SendAmounts[coin]
	color.Yellow("\nInitiating auto-deposit...\n")
	fmt.Printf("  Coin:    %s\n", swap.CoinLabel(coin))
	fmt.Printf("  Amount:  %s\n", price.String())
	fmt.Printf("  To:      %s\n", record.SendAddresses[coin])

	if !noConfirm && !s.cfg.AutoConfirm {
		if !confirm("Proceed with auto-deposit?") {
			return fmt.Errorf("auto-deposit cancelled by user")
		}
	}

	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	sp.Suffix = " Sending deposit..."
	sp.Start()
	txid, err := depositMgr.PayRecord(ctx, record, coin)
	sp.Stop()
	if err != nil {
		return err
	}

	color.Green("\nDeposit sent successfully!")
	fmt.Printf("  Transaction ID: %s\n", color.CyanString(txid))

	if verbose {
		fmt.Printf("\nDeposit transaction details:\n")
		fmt.Printf("  Charge:     %s\n", record.ChargeCode)
		fmt.Printf("  Coin:       %s\n", coin)
		fmt.Printf("  Amount:     %s\n", price.String())
		fmt.Printf("  Tx Hash:    %s\n", txid)
	}

	return nil
}

func displayQuote(btc string, lbc float64, payout string) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                     SWAP QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  You send:          %s %s\n", btc, color.YellowString("BTC"))
	fmt.Printf("  You receive:       ~%s %s\n", swap.FormatLBC(lbc), color.YellowString("LBC"))
	fmt.Printf("  Payout Address:    %s\n", color.CyanString(payout))

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}

func displayDepositInstructions(record types.SwapRecord) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Yellow("                 DEPOSIT INSTRUCTIONS")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("\n  Charge Code:  %s\n", color.CyanString(record.ChargeCode))
	fmt.Printf("  You receive:  %s LBC\n", swap.FormatLBC(record.LBCAmount))
	fmt.Println("\nSend exactly one of the following:")

	for _, coin := range record.Coins {
		fmt.Printf("\n  %s\n", color.YellowString(swap.CoinLabel(coin)))
		if price, ok := record.SendAmounts[coin]; ok {
			fmt.Printf("    Amount:   %s\n", price.String())
		}
		fmt.Printf("    Address:  %s\n", color.CyanString(record.SendAddresses[coin]))
	}

	fmt.Println("\n" + strings.Repeat("=", 60) + "\n")
}
