package swap

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"coin-swap/pkg/client"
	"coin-swap/pkg/store"
	"coin-swap/pkg/types"
)

const (
	DefaultQuoteDebounce   = 400 * time.Millisecond
	DefaultRefreshInterval = 60 * time.Second // the commerce API allows 200 requests a minute
	MaxConcurrentQueries   = 4

	MinBTC = 1.0 / client.SatoshisPerBTC
	MaxBTC = 21000000
)

// Service is the swap provider as seen by the controller
type Service interface {
	Rate(ctx context.Context) (float64, error)
	InitiateSwap(ctx context.Context, req types.SwapRequest) (*types.StatusPayload, error)
	QueryStatus(ctx context.Context, chargeCode string) (*types.StatusPayload, error)
}

// Confirmer asks the user to approve removing a swap from the history
type Confirmer func(chargeCode string) bool

// Options configures a Controller
type Options struct {
	Clock           clockwork.Clock
	QuoteDebounce   time.Duration
	RefreshInterval time.Duration
	Logger          *logrus.Entry
}

// Snapshot is a read-only view of the controller for rendering
type Snapshot struct {
	State        DisplayState
	SourceAmount float64
	Quote        float64
	FetchingRate bool
	Swapping     bool
	Notice       *Notice
	Tracked      *types.SwapRecord
	Records      store.Collection
}

// Controller drives one swap session: quoting, starting a swap and following
// its status until the credits are sent.
type Controller struct {
	svc             Service
	store           *store.Store
	clock           clockwork.Clock
	logger          *logrus.Entry
	debounce        time.Duration
	refreshInterval time.Duration

	mu           sync.Mutex
	state        DisplayState
	amount       float64
	quote        float64
	quoteErr     error
	quoteGen     uint64
	quoteTimer   clockwork.Timer
	cancelRate   context.CancelFunc
	quoteDone    chan struct{}
	quotePending bool
	swapping     bool
	notice       *Notice
	tracked      string
	lastRefresh  time.Time
	listener     func(Snapshot)
}

// NewController creates a controller in the Main state
func NewController(svc Service, st *store.Store, opts Options) *Controller {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	if opts.QuoteDebounce <= 0 {
		opts.QuoteDebounce = DefaultQuoteDebounce
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = DefaultRefreshInterval
	}
	if opts.Logger == nil {
		opts.Logger = logrus.NewEntry(logrus.StandardLogger())
	}

	done := make(chan struct{})
	close(done)

	return &Controller{
		svc:             svc,
		store:           st,
		clock:           opts.Clock,
		logger:          opts.Logger.WithField("component", "swap"),
		debounce:        opts.QuoteDebounce,
		refreshInterval: opts.RefreshInterval,
		state:           StateMain,
		quoteDone:       done,
	}
}

// SetListener registers fn to be called with a fresh snapshot after every change
func (c *Controller) SetListener(fn func(Snapshot)) {
	c.mu.Lock()
	c.listener = fn
	c.mu.Unlock()
}

// ValidateAmount checks a source amount against the protocol bounds
func ValidateAmount(amount float64) error {
	if math.IsNaN(amount) || amount < MinBTC {
		return fmt.Errorf("%w: the BTC amount needs to be higher", ErrAmountOutOfRange)
	}
	if amount > MaxBTC {
		return fmt.Errorf("%w: the BTC amount is too high", ErrAmountOutOfRange)
	}
	return nil
}

// Quote schedules a rate lookup for amount. Each call restarts the debounce
// timer and supersedes any lookup still in flight.
func (c *Controller) Quote(amount float64) {
	c.mu.Lock()
	c.quoteGen++
	gen := c.quoteGen
	c.amount = amount
	c.stopQuoteLocked()

	if !c.quotePending {
		c.quoteDone = make(chan struct{})
		c.quotePending = true
	}

	if math.IsNaN(amount) || amount <= 0 {
		c.quote = 0
		c.quoteErr = nil
		c.resolveQuoteLocked()
		c.mu.Unlock()
		c.notify()
		return
	}

	c.quoteTimer = c.clock.AfterFunc(c.debounce, func() {
		c.fetchRate(gen, amount)
	})
	c.mu.Unlock()
	c.notify()
}

// AwaitQuote blocks until the latest scheduled quote has been resolved
func (c *Controller) AwaitQuote(ctx context.Context) (float64, error) {
	c.mu.Lock()
	done := c.quoteDone
	c.mu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.quoteErr != nil {
		return 0, c.quoteErr
	}
	return c.quote, nil
}

func (c *Controller) fetchRate(gen uint64, amount float64) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c.mu.Lock()
	if gen != c.quoteGen {
		c.mu.Unlock()
		return
	}
	c.cancelRate = cancel
	c.mu.Unlock()

	rate, err := c.svc.Rate(ctx)

	c.mu.Lock()
	if gen != c.quoteGen {
		c.mu.Unlock()
		c.logger.WithField("generation", gen).Debug("Discarding superseded rate response")
		return
	}
	c.cancelRate = nil
	if err != nil {
		c.logger.WithError(err).Warn("Rate lookup failed")
		c.quote = 0
		c.quoteErr = fmt.Errorf("%w: %w", ErrRateUnavailable, err)
		c.notice = failure(ErrRateUnavailable, msgRateFailed)
	} else {
		c.quote = amount / rate
		c.quoteErr = nil
	}
	c.resolveQuoteLocked()
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) stopQuoteLocked() {
	if c.quoteTimer != nil {
		c.quoteTimer.Stop()
		c.quoteTimer = nil
	}
	if c.cancelRate != nil {
		c.cancelRate()
		c.cancelRate = nil
	}
}

func (c *Controller) resolveQuoteLocked() {
	if c.quotePending {
		close(c.quoteDone)
		c.quotePending = false
	}
}

// StartSwap opens a charge for amount BTC, paying quoted LBC to payout
func (c *Controller) StartSwap(ctx context.Context, amount, quoted float64, payout string) (*types.SwapRecord, error) {
	if err := ValidateAmount(amount); err != nil {
		return nil, err
	}
	if math.IsNaN(quoted) || quoted <= 0 {
		return nil, ErrNoQuote
	}
	if payout == "" {
		return nil, ErrMissingPayout
	}

	c.mu.Lock()
	c.state = StateMain
	c.swapping = true
	c.tracked = ""
	c.notice = nil
	c.mu.Unlock()
	c.notify()

	req := types.SwapRequest{
		LBCSatoshiRequested: toSatoshi(quoted),
		BTCSatoshiProvided:  toSatoshi(amount),
		PayToWalletAddress:  payout,
	}

	payload, err := c.svc.InitiateSwap(ctx, req)
	if err != nil {
		msg := err.Error()
		if errors.Is(err, ErrServiceDown) {
			msg = msgSwapCallFailed
		}
		c.logger.WithError(err).Warn("Swap initiation failed")

		c.mu.Lock()
		c.returnToMainLocked()
		c.notice = failure(ErrSwapInitiationFailed, msg)
		c.mu.Unlock()
		c.notify()
		return nil, fmt.Errorf("%w: %w", ErrSwapInitiationFailed, err)
	}

	charge := payload.Charge.Data
	record := types.SwapRecord{
		ChargeCode:    payload.Exchange.ChargeCode,
		Coins:         charge.Coins(),
		SendAddresses: charge.Addresses,
		SendAmounts:   charge.Pricing,
		LBCAmount:     quoted,
	}
	c.store.Dispatch(store.SwapAdded{Record: record})

	c.logger.WithFields(logrus.Fields{
		"charge_code": record.ChargeCode,
		"btc":         amount,
		"lbc":         quoted,
	}).Info("Swap started")

	c.mu.Lock()
	c.tracked = record.ChargeCode
	c.resyncLocked()
	c.mu.Unlock()
	c.notify()

	return &record, nil
}

// QueryStatus fetches the status of one charge and stores it
func (c *Controller) QueryStatus(ctx context.Context, chargeCode string) (types.SwapRecord, error) {
	payload, err := c.svc.QueryStatus(ctx, chargeCode)
	if err != nil {
		return types.SwapRecord{}, err
	}
	c.store.Dispatch(store.StatusReceived{Payload: *payload})
	c.resync()

	rec, _ := c.store.Get(chargeCode)
	return rec, nil
}

// PollTracked refreshes the status of the swap in flight, if any
func (c *Controller) PollTracked(ctx context.Context) error {
	c.mu.Lock()
	code := c.tracked
	c.mu.Unlock()

	if code == "" {
		return nil
	}
	_, err := c.QueryStatus(ctx, code)
	return err
}

// HandlePush applies an update delivered by the push channel
func (c *Controller) HandlePush(payload types.StatusPayload) {
	payload.Exchange = nil
	c.store.Dispatch(store.StatusReceived{Payload: payload})
	c.resync()
}

// RefreshHistory shows the swap history and re-queries every known charge,
// at most once per refresh interval. It reports whether queries were issued.
func (c *Controller) RefreshHistory(ctx context.Context) (bool, error) {
	c.mu.Lock()
	c.state = StatePastSwaps
	c.notice = nil
	c.tracked = ""
	now := c.clock.Now()
	due := c.lastRefresh.IsZero() || now.Sub(c.lastRefresh) > c.refreshInterval
	if due {
		c.lastRefresh = now
	}
	c.mu.Unlock()
	c.notify()

	if !due {
		c.logger.Debug("History refreshed recently, reusing statuses")
		return false, nil
	}

	codes := c.store.Codes()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(MaxConcurrentQueries)
	for _, code := range codes {
		code := code
		g.Go(func() error {
			payload, err := c.svc.QueryStatus(gctx, code)
			if err != nil {
				c.logger.WithError(err).WithField("charge_code", code).Warn("Status query failed")
				return nil
			}
			c.store.Dispatch(store.StatusReceived{Payload: *payload})
			return nil
		})
	}
	_ = g.Wait()
	c.notify()

	return true, ctx.Err()
}

// Select tracks a swap from the history
func (c *Controller) Select(chargeCode string) error {
	if _, ok := c.store.Get(chargeCode); !ok {
		return fmt.Errorf("swap '%s' not found", chargeCode)
	}

	c.mu.Lock()
	c.tracked = chargeCode
	c.resyncLocked()
	c.mu.Unlock()
	c.notify()
	return nil
}

// RemoveRecord drops a swap from the history once confirm approves it.
// It reports whether the record was removed.
func (c *Controller) RemoveRecord(chargeCode string, confirm Confirmer) (bool, error) {
	if _, ok := c.store.Get(chargeCode); !ok {
		return false, fmt.Errorf("swap '%s' not found", chargeCode)
	}
	if confirm == nil || !confirm(chargeCode) {
		return false, nil
	}

	c.store.Dispatch(store.SwapRemoved{ChargeCode: chargeCode})

	c.mu.Lock()
	if c.tracked == chargeCode {
		c.tracked = ""
		c.swapping = false
	}
	c.mu.Unlock()
	c.notify()
	return true, nil
}

// Back returns to the main screen and clears the notice
func (c *Controller) Back() {
	c.mu.Lock()
	c.returnToMainLocked()
	c.notice = nil
	c.mu.Unlock()
	c.notify()
}

// Close stops any pending quote
func (c *Controller) Close() {
	c.mu.Lock()
	c.quoteGen++
	c.stopQuoteLocked()
	c.resolveQuoteLocked()
	c.mu.Unlock()
}

// Snapshot returns the current view of the controller
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		State:        c.state,
		SourceAmount: c.amount,
		Quote:        c.quote,
		FetchingRate: c.quotePending,
		Swapping:     c.swapping,
		Records:      c.store.Records(),
	}
	if c.notice != nil {
		n := *c.notice
		snap.Notice = &n
	}
	if c.tracked != "" {
		if rec, ok := c.store.Get(c.tracked); ok {
			snap.Tracked = &rec
		}
	}
	return snap
}

func (c *Controller) resync() {
	c.mu.Lock()
	c.resyncLocked()
	c.mu.Unlock()
	c.notify()
}

// resyncLocked re-derives the display from the tracked record's status
func (c *Controller) resyncLocked() {
	if c.tracked == "" {
		return
	}
	rec, ok := c.store.Get(c.tracked)
	if !ok || rec.Status == nil {
		return
	}

	tr := Derive(c.state, *rec.Status)
	if tr.Notice != nil && errors.Is(tr.Notice.Err, ErrUnrecognizedStatus) {
		c.logger.WithFields(logrus.Fields{
			"charge_code": rec.ChargeCode,
			"status":      rec.Status.Raw,
		}).Error("Unhandled swap status")
	}

	c.state = tr.Next
	c.notice = tr.Notice
	if tr.StopSwapping {
		c.swapping = false
	}
	if tr.ReturnToMain {
		c.returnToMainLocked()
	}
}

func (c *Controller) returnToMainLocked() {
	c.swapping = false
	c.state = StateMain
	c.tracked = ""
}

func (c *Controller) notify() {
	c.mu.Lock()
	fn := c.listener
	var snap Snapshot
	if fn != nil {
		snap = c.snapshotLocked()
	}
	c.mu.Unlock()

	if fn != nil {
		fn(snap)
	}
}

// toSatoshi converts a coin amount to its smallest unit, truncating
func toSatoshi(amount float64) int64 {
	return decimal.NewFromFloat(amount).Shift(8).IntPart()
}
