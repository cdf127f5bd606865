package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"coin-swap/pkg/client"
	"coin-swap/pkg/swap"
)

var watchCmd = &cobra.Command{
	Use:   "watch [charge-code]",
	Short: "Follow swap status updates as they happen",
	Long: `Listen for status updates on every swap in your history, or follow a single swap
until its credits are sent.

Updates arrive over the push channel when ws_url is configured. Otherwise the
history is re-queried every history_refresh_interval.

Examples:
  coin-swap watch
  coin-swap watch ABCD1234`,
	Args: cobra.MaximumNArgs(1),
	Run:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	s, err := newSession(cmd)
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer s.Close()

	if len(args) == 1 {
		if err := s.controller.Select(args[0]); err != nil {
			printError(err)
			os.Exit(1)
		}
		if err := followSwap(s, watchInterval); err != nil {
			printError(err)
			os.Exit(1)
		}
		return
	}

	if err := watchHistory(s); err != nil {
		printError(err)
		os.Exit(1)
	}
}

// followSwap prints the tracked swap's transitions until it settles
func followSwap(s *session, intervalSec int) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	printer := &transitionPrinter{}
	s.controller.SetListener(func(snap swap.Snapshot) {
		printer.print(snap)
		if swapSettled(snap) {
			cancel()
		}
	})
	defer s.controller.SetListener(nil)

	snap := s.controller.Snapshot()
	printer.print(snap)
	if swapSettled(snap) {
		return nil
	}

	fmt.Printf("\nWatching swap %s. Press Ctrl+C to stop.\n\n", color.CyanString(snap.Tracked.ChargeCode))

	g, gctx := errgroup.WithContext(ctx)
	if s.cfg.WSURL != "" {
		listener := client.NewPushListener(client.DefaultPushConfig(s.cfg.WSURL, s.cfg.AuthToken), s.controller.HandlePush, s.entry)
		g.Go(func() error { return listener.Run(gctx) })
	} else {
		if intervalSec <= 0 {
			intervalSec = 5
		}
		g.Go(func() error {
			return everyTick(gctx, time.Duration(intervalSec)*time.Second, func() {
				if err := s.controller.PollTracked(gctx); err != nil && gctx.Err() == nil {
					color.Red("Error: %v", err)
				}
			})
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// watchHistory prints every status change across the swap history
func watchHistory(s *session) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var mu sync.Mutex
	seen := make(map[string]string)
	for _, rec := range s.store.Records() {
		seen[rec.ChargeCode] = swap.ShortStatus(rec.Status)
	}

	s.controller.SetListener(func(snap swap.Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		for _, rec := range snap.Records {
			label := swap.ShortStatus(rec.Status)
			if seen[rec.ChargeCode] == label {
				continue
			}
			seen[rec.ChargeCode] = label
			fmt.Printf("[%s] %s  %s\n", time.Now().Format("15:04:05"), color.CyanString(rec.ChargeCode), getColoredStatus(rec.Status))
		}
	})
	defer s.controller.SetListener(nil)

	fmt.Printf("\nWatching %d swap(s). Press Ctrl+C to stop.\n\n", s.store.Count())

	if s.cfg.WSURL != "" {
		listener := client.NewPushListener(client.DefaultPushConfig(s.cfg.WSURL, s.cfg.AuthToken), s.controller.HandlePush, s.entry)
		return listener.Run(ctx)
	}

	refresh := func() {
		if _, err := s.controller.RefreshHistory(ctx); err != nil && ctx.Err() == nil {
			color.Red("Error: %v", err)
		}
	}
	refresh()
	// One second of slack so every tick lands past the refresh guard.
	return everyTick(ctx, s.cfg.HistoryRefreshInterval+time.Second, refresh)
}

// everyTick runs fn on each tick until ctx is done
func everyTick(ctx context.Context, interval time.Duration, fn func()) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			fn()
		}
	}
}

func swapSettled(snap swap.Snapshot) bool {
	if snap.Tracked == nil || snap.State == swap.StateSuccess {
		return true
	}
	return snap.Notice != nil && errors.Is(snap.Notice.Err, swap.ErrSwapExpired)
}

// transitionPrinter prints a line whenever the display state or notice changes
type transitionPrinter struct {
	mu   sync.Mutex
	last string
}

func (p *transitionPrinter) print(snap swap.Snapshot) {
	p.mu.Lock()
	defer p.mu.Unlock()

	msg := ""
	if snap.Notice != nil {
		msg = snap.Notice.Message
	}
	key := snap.State.String() + "|" + msg
	if key == p.last || msg == "" {
		return
	}
	p.last = key

	line := fmt.Sprintf("[%s] %-20s %s", time.Now().Format("15:04:05"), snap.State, msg)
	switch {
	case snap.Notice.Kind == swap.NoticeError:
		color.Red("%s", line)
	case snap.State == swap.StateSuccess:
		color.Green("%s", line)
		if snap.Tracked != nil {
			if link := swap.ExplorerURL(snap.Tracked.Status); link != "" {
				fmt.Printf("  %s\n", link)
			}
		}
	default:
		fmt.Println(line)
	}
}
