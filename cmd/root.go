package cmd

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"coin-swap/config"
	"coin-swap/pkg/client"
	"coin-swap/pkg/logging"
	"coin-swap/pkg/store"
	"coin-swap/pkg/swap"
)

var rootCmd = &cobra.Command{
	Use:   "coin-swap",
	Short: "A CLI for swapping crypto into LBRY Credits",
	Long: `coin-swap is a command-line tool that swaps bitcoin (or any coin the
payment provider accepts) for LBRY Credits. It quotes the swap, opens a charge,
shows where to send your coins and follows the charge until your LBC is sent.

Examples:
  coin-swap quote 0.001
  coin-swap swap 0.001 BTC --payout bXXXXXXXX
  coin-swap status <charge-code> --watch
  coin-swap history
  coin-swap history remove <charge-code>`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

// session is everything a command needs to talk to the swap service
type session struct {
	cfg        *config.Config
	logger     *logrus.Logger
	entry      *logrus.Entry
	api        *client.SwapAPIClient
	store      *store.Store
	controller *swap.Controller
	closers    []func() error
}

func newSession(cmd *cobra.Command) (*session, error) {
	verbose, _ := cmd.Flags().GetBool("verbose")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	level := cfg.LogLevel
	if verbose {
		level = "debug"
	}
	logger := logging.NewLogger(level, jsonOutput)
	entry := logrus.NewEntry(logger)

	s := &session{cfg: cfg, logger: logger, entry: entry}

	var persister store.CodePersister
	switch cfg.Storage.Backend {
	case "bolt":
		bs, err := store.NewBoltStorage(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, bs.Close)
		persister = bs
	default:
		fs, err := store.NewFileStorage(cfg.Storage.Path)
		if err != nil {
			return nil, err
		}
		persister = fs
	}

	s.store = store.NewStore(persister, entry)
	if err := s.store.Restore(); err != nil {
		// History is best effort; the session can still swap.
		logger.WithError(err).Warn("Could not restore swap history")
	}

	s.api = client.NewSwapAPIClient(cfg.BaseURL, cfg.AuthToken,
		client.WithRequestsPerMinute(cfg.RequestsPerMinute),
		client.WithLogger(entry),
	)

	s.controller = swap.NewController(s.api, s.store, swap.Options{
		QuoteDebounce:   cfg.QuoteDebounce,
		RefreshInterval: cfg.HistoryRefreshInterval,
		Logger:          entry,
	})

	return s, nil
}

func (s *session) Close() {
	s.controller.Close()
	for _, closer := range s.closers {
		if err := closer(); err != nil {
			s.logger.WithError(err).Warn("Failed to close storage")
		}
	}
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}

func printSuccess(message string) {
	fmt.Printf("\n%s\n\n", message)
}

func printJSON(v interface{}) {
	jsonData, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(jsonData))
}

func confirm(prompt string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("\n%s (y/N): ", prompt)

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
