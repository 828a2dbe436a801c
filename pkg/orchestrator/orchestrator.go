package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"

	"vaultroute/pkg/catalog"
	"vaultroute/pkg/commitment"
	"vaultroute/pkg/intent"
	"vaultroute/pkg/routing"
)

const (
	// DefaultPollInterval is the delay between order status checks.
	DefaultPollInterval = 5 * time.Second
	// DefaultMaxPollTries caps the poll loop at 120 ticks (a 10-minute
	// ceiling at the default interval). The cap counts ticks, not elapsed
	// time: a system suspend stretches the wall-clock duration without
	// consuming tries.
	DefaultMaxPollTries = 120
)

// State names the orchestrator's position in the swap lifecycle.
type State string

const (
	StateIdle     State = "idle"
	StateQuoted   State = "quoted"
	StatePlaced   State = "placed"
	StateExecuted State = "executed"
	StateTimedOut State = "timed_out"
	StateFailed   State = "failed"
)

// TimeoutError reports that an order was not executed within the poll cap.
// It is a distinct type so callers can advise the user the order may still
// complete server-side.
type TimeoutError struct {
	OrderHash string
	Tries     int
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("order %s not executed after %d poll attempts", e.OrderHash, e.Tries)
}

// ErrSwapInProgress rejects a second ExecuteSwap while one is active.
var ErrSwapInProgress = errors.New("swap already in progress")

// SwapRequest describes the swap to drive, in generic chain-ID space.
type SwapRequest struct {
	SrcChainID    uint64
	DstChainID    uint64
	SrcToken      string
	DstToken      string
	Amount        string
	WalletAddress string
}

// Callbacks deliver progress to the caller. All protocol errors after the
// initial synchronous validation arrive through OnError only. Nil callbacks
// are allowed.
type Callbacks struct {
	OnQuoteReceived func(*intent.Quote)
	OnOrderPlaced   func(orderHash string)
	OnOrderComplete func(orderHash string)
	OnError         func(error)
}

// Orchestrator drives a single swap through quote, commitment, placement and
// the fill-polling loop. At most one swap is active per instance; the secret
// set it holds is owned exclusively by that swap and discarded on any
// terminal state.
type Orchestrator struct {
	api          intent.API
	log          logrus.FieldLogger
	pollInterval time.Duration
	maxTries     int

	mu        sync.Mutex
	state     State
	orderHash string
	secrets   *commitment.SecretSet
	stopChan  chan struct{}
	running   bool
}

// Option adjusts orchestrator timing, mainly for tests.
type Option func(*Orchestrator)

// WithPollInterval overrides the poll ticker interval.
func WithPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) { o.pollInterval = d }
}

// WithMaxPollTries overrides the tick cap.
func WithMaxPollTries(n int) Option {
	return func(o *Orchestrator) { o.maxTries = n }
}

// New creates an orchestrator bound to a swap-intent API client.
func New(api intent.API, log logrus.FieldLogger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		api:          api,
		log:          log,
		pollInterval: DefaultPollInterval,
		maxTries:     DefaultMaxPollTries,
		state:        StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// OrderHash returns the placed order's hash, empty before placement.
func (o *Orchestrator) OrderHash() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.orderHash
}

// ExecuteSwap validates the request and drives it to a terminal state in the
// background, reporting progress through cb. Validation and concurrency
// errors are returned synchronously; everything after that flows through
// cb.OnError.
func (o *Orchestrator) ExecuteSwap(ctx context.Context, req SwapRequest, cb Callbacks) error {
	srcNet, ok := catalog.NetworkID(req.SrcChainID)
	if !ok {
		return fmt.Errorf("unsupported source chain %s (%d): no swap network mapping", catalog.ChainName(req.SrcChainID), req.SrcChainID)
	}
	dstNet, ok := catalog.NetworkID(req.DstChainID)
	if !ok {
		return fmt.Errorf("unsupported destination chain %s (%d): no swap network mapping", catalog.ChainName(req.DstChainID), req.DstChainID)
	}
	if !common.IsHexAddress(req.SrcToken) || !common.IsHexAddress(req.DstToken) {
		return fmt.Errorf("invalid token address")
	}
	if !common.IsHexAddress(req.WalletAddress) {
		return fmt.Errorf("invalid wallet address: %s", req.WalletAddress)
	}
	if err := routing.ValidateAmount(req.Amount); err != nil {
		return err
	}

	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrSwapInProgress
	}
	o.running = true
	o.state = StateIdle
	o.orderHash = ""
	o.secrets = nil
	o.stopChan = make(chan struct{})
	stop := o.stopChan
	o.mu.Unlock()

	go o.run(ctx, req, srcNet, dstNet, cb, stop)
	return nil
}

// Reset stops any active poll loop and returns the orchestrator to IDLE,
// discarding the pending order's secrets. Safe to call repeatedly.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.running {
		close(o.stopChan)
		o.running = false
	}
	o.state = StateIdle
	o.orderHash = ""
	o.secrets = nil
}

func (o *Orchestrator) run(ctx context.Context, req SwapRequest, srcNet, dstNet uint64, cb Callbacks, stop <-chan struct{}) {
	quote, err := o.api.GetQuote(ctx, intent.QuoteRequest{
		SrcChainID:      srcNet,
		DstChainID:      dstNet,
		SrcTokenAddress: req.SrcToken,
		DstTokenAddress: req.DstToken,
		Amount:          req.Amount,
		WalletAddress:   req.WalletAddress,
	})
	if err != nil {
		o.fail(cb, fmt.Errorf("quote failed: %w", err))
		return
	}
	if !o.transition(StateQuoted) {
		return
	}
	emitQuote(cb, quote)

	secrets, err := commitment.GenerateSecrets(quote.Preset.SecretsCount)
	if err != nil {
		o.fail(cb, err)
		return
	}
	lock, err := commitment.BuildHashLock(secrets.Secrets, secrets.Hashes)
	if err != nil {
		o.fail(cb, err)
		return
	}

	placement, err := o.api.PlaceOrder(ctx, intent.OrderRequest{
		QuoteID:       quote.QuoteID,
		WalletAddress: req.WalletAddress,
		HashLock:      commitment.Hex(lock.Root),
		SecretHashes:  commitment.HexHashes(secrets.Hashes),
	})
	if err != nil {
		o.fail(cb, fmt.Errorf("order placement failed: %w", err))
		return
	}

	o.mu.Lock()
	if !o.running {
		o.mu.Unlock()
		return
	}
	o.state = StatePlaced
	o.orderHash = placement.OrderHash
	o.secrets = secrets
	o.mu.Unlock()

	emitOrderPlaced(cb, placement.OrderHash)
	o.poll(ctx, placement.OrderHash, secrets, cb, stop)
}

// poll runs the fill-observation loop. Each tick fully completes before the
// next timer fires; fills within a tick are submitted sequentially in the
// order the service returned them.
func (o *Orchestrator) poll(ctx context.Context, orderHash string, secrets *commitment.SecretSet, cb Callbacks, stop <-chan struct{}) {
	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()

	// The submitted set belongs to this run, like stop and secrets do. A
	// Reset racing an in-flight submission must not be able to touch it, and
	// a stale loop must not see a later swap's set.
	submitted := make(map[int]bool)
	tries := 0
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			o.fail(cb, ctx.Err())
			return
		case <-ticker.C:
			status, err := o.api.GetOrderStatus(ctx, orderHash)
			if err != nil {
				// Transient; the order may simply not be indexed yet.
				o.log.WithError(err).WithField("order", orderHash).Debug("order status check failed")
			} else if status.Status == intent.StatusExecuted {
				if o.transition(StateExecuted) {
					emitOrderComplete(cb, orderHash)
					o.finish()
				}
				return
			}

			o.submitReadyFills(ctx, orderHash, secrets, submitted, cb)

			tries++
			if tries >= o.maxTries {
				if o.transition(StateTimedOut) {
					emitError(cb, &TimeoutError{OrderHash: orderHash, Tries: tries})
					o.finish()
				}
				return
			}
		}
	}
}

// submitReadyFills reveals the secret for every fill index not yet confirmed
// submitted. A fill is only marked submitted on success, so a slow or failing
// submission is retried on later ticks; individual failures never abort the
// loop. submitted is owned by the poll goroutine and needs no locking.
func (o *Orchestrator) submitReadyFills(ctx context.Context, orderHash string, secrets *commitment.SecretSet, submitted map[int]bool, cb Callbacks) {
	fills, err := o.api.GetReadyToAcceptSecretFills(ctx, orderHash)
	if err != nil {
		if errors.Is(err, intent.ErrNotFound) {
			// No fills ready yet.
			return
		}
		emitError(cb, fmt.Errorf("fills query failed: %w", err))
		return
	}

	for _, fill := range fills {
		if fill.Idx < 0 || fill.Idx >= len(secrets.Secrets) {
			o.log.WithFields(logrus.Fields{"order": orderHash, "idx": fill.Idx}).Warn("fill index out of range")
			continue
		}

		if submitted[fill.Idx] {
			continue
		}

		if err := o.api.SubmitSecret(ctx, orderHash, commitment.Hex(secrets.Secrets[fill.Idx])); err != nil {
			o.log.WithError(err).WithFields(logrus.Fields{"order": orderHash, "idx": fill.Idx}).Warn("secret submission failed")
			continue
		}

		submitted[fill.Idx] = true
		o.log.WithFields(logrus.Fields{"order": orderHash, "idx": fill.Idx}).Info("secret submitted")
	}
}

// transition moves to next unless the swap was reset underneath us.
func (o *Orchestrator) transition(next State) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.running {
		return false
	}
	o.state = next
	return true
}

// finish marks the active swap done and drops its secret material.
func (o *Orchestrator) finish() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.running = false
	o.secrets = nil
}

func (o *Orchestrator) fail(cb Callbacks, err error) {
	if o.transition(StateFailed) {
		emitError(cb, err)
		o.finish()
	}
}

func emitQuote(cb Callbacks, q *intent.Quote) {
	if cb.OnQuoteReceived != nil {
		cb.OnQuoteReceived(q)
	}
}

func emitOrderPlaced(cb Callbacks, orderHash string) {
	if cb.OnOrderPlaced != nil {
		cb.OnOrderPlaced(orderHash)
	}
}

func emitOrderComplete(cb Callbacks, orderHash string) {
	if cb.OnOrderComplete != nil {
		cb.OnOrderComplete(orderHash)
	}
}

func emitError(cb Callbacks, err error) {
	if cb.OnError != nil {
		cb.OnError(err)
	}
}
