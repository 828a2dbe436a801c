package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vaultroute/pkg/intent"
)

const testInterval = 5 * time.Millisecond

// fakeAPI scripts the swap-intent service per poll tick.
type fakeAPI struct {
	mu sync.Mutex

	secretsCount int
	quoteErr     error
	quoteDelay   time.Duration
	placeErr     error

	statusFn func(call int) (*intent.OrderStatus, error)
	fillsFn  func(call int) ([]intent.Fill, error)
	submitFn func(attempt int, secret string) error

	placed         intent.OrderRequest
	quoteCalls     int
	statusCalls    int
	fillsCalls     int
	submitAttempts int
	submissions    []string
}

func newFakeAPI(secretsCount int) *fakeAPI {
	return &fakeAPI{
		secretsCount: secretsCount,
		statusFn: func(int) (*intent.OrderStatus, error) {
			return &intent.OrderStatus{Status: "pending"}, nil
		},
		fillsFn: func(int) ([]intent.Fill, error) {
			return nil, intent.ErrNotFound
		},
	}
}

func (f *fakeAPI) GetQuote(ctx context.Context, req intent.QuoteRequest) (*intent.Quote, error) {
	f.mu.Lock()
	f.quoteCalls++
	f.mu.Unlock()
	if f.quoteDelay > 0 {
		time.Sleep(f.quoteDelay)
	}
	if f.quoteErr != nil {
		return nil, f.quoteErr
	}
	return &intent.Quote{
		QuoteID:        "q-1",
		SrcTokenAmount: req.Amount,
		DstTokenAmount: req.Amount,
		Preset:         intent.Preset{SecretsCount: f.secretsCount},
	}, nil
}

func (f *fakeAPI) PlaceOrder(ctx context.Context, req intent.OrderRequest) (*intent.OrderPlacement, error) {
	if f.placeErr != nil {
		return nil, f.placeErr
	}
	f.mu.Lock()
	f.placed = req
	f.mu.Unlock()
	return &intent.OrderPlacement{OrderHash: "0xorder"}, nil
}

func (f *fakeAPI) GetOrderStatus(ctx context.Context, orderHash string) (*intent.OrderStatus, error) {
	f.mu.Lock()
	f.statusCalls++
	call := f.statusCalls
	f.mu.Unlock()
	return f.statusFn(call)
}

func (f *fakeAPI) GetReadyToAcceptSecretFills(ctx context.Context, orderHash string) ([]intent.Fill, error) {
	f.mu.Lock()
	f.fillsCalls++
	call := f.fillsCalls
	f.mu.Unlock()
	return f.fillsFn(call)
}

func (f *fakeAPI) SubmitSecret(ctx context.Context, orderHash, secret string) error {
	f.mu.Lock()
	f.submitAttempts++
	attempt := f.submitAttempts
	fn := f.submitFn
	f.mu.Unlock()

	if fn != nil {
		if err := fn(attempt, secret); err != nil {
			return err
		}
	}
	f.mu.Lock()
	f.submissions = append(f.submissions, secret)
	f.mu.Unlock()
	return nil
}

func (f *fakeAPI) countStatusCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.statusCalls
}

// submittedIndices maps each submitted secret back to its index in the
// committed secret hashes by rehashing it.
func (f *fakeAPI) submittedIndices(t *testing.T) []int {
	f.mu.Lock()
	defer f.mu.Unlock()

	var indices []int
	for _, secretHex := range f.submissions {
		secret, err := hexutil.Decode(secretHex)
		require.NoError(t, err)
		hash := hexutil.Encode(crypto.Keccak256(secret))

		found := -1
		for i, h := range f.placed.SecretHashes {
			if h == hash {
				found = i
				break
			}
		}
		require.NotEqual(t, -1, found, "submitted secret does not match any committed hash")
		indices = append(indices, found)
	}
	return indices
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return log
}

func validRequest() SwapRequest {
	return SwapRequest{
		SrcChainID:    1,
		DstChainID:    8453,
		SrcToken:      "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		DstToken:      "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		Amount:        "500000",
		WalletAddress: "0x70997970C51812dc3A010C7d01b50e0d17dc79C8",
	}
}

func execute(t *testing.T, api *fakeAPI, maxTries int, cb Callbacks) *Orchestrator {
	orch := New(api, testLogger(), WithPollInterval(testInterval), WithMaxPollTries(maxTries))
	require.NoError(t, orch.ExecuteSwap(context.Background(), validRequest(), cb))
	return orch
}

func TestSwapExecutesAndStopsPolling(t *testing.T) {
	api := newFakeAPI(1)
	api.statusFn = func(call int) (*intent.OrderStatus, error) {
		if call >= 4 {
			return &intent.OrderStatus{Status: intent.StatusExecuted}, nil
		}
		return &intent.OrderStatus{Status: "pending"}, nil
	}

	var completions int
	done := make(chan struct{})
	orch := execute(t, api, DefaultMaxPollTries, Callbacks{
		OnOrderComplete: func(orderHash string) {
			completions++
			assert.Equal(t, "0xorder", orderHash)
			close(done)
		},
		OnError: func(err error) { t.Errorf("unexpected error: %v", err) },
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("swap did not complete")
	}

	// Give the loop room to (wrongly) keep ticking.
	time.Sleep(5 * testInterval)
	assert.Equal(t, 4, api.countStatusCalls(), "polling must stop on the executed tick")
	assert.Equal(t, 1, completions)
	assert.Equal(t, StateExecuted, orch.State())
	assert.Equal(t, "0xorder", orch.OrderHash())
}

func TestPartialFillsRevealSecretsByIndex(t *testing.T) {
	api := newFakeAPI(3)
	api.fillsFn = func(call int) ([]intent.Fill, error) {
		switch call {
		case 1:
			return []intent.Fill{{Idx: 1}}, nil
		case 2:
			// idx 1 repeats; its secret must not be submitted again.
			return []intent.Fill{{Idx: 1}, {Idx: 0}}, nil
		default:
			return nil, nil
		}
	}
	api.statusFn = func(call int) (*intent.OrderStatus, error) {
		if call >= 4 {
			return &intent.OrderStatus{Status: intent.StatusExecuted}, nil
		}
		return &intent.OrderStatus{Status: "pending"}, nil
	}

	done := make(chan struct{})
	execute(t, api, DefaultMaxPollTries, Callbacks{
		OnOrderComplete: func(string) { close(done) },
		OnError:         func(err error) { t.Errorf("unexpected error: %v", err) },
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("swap did not complete")
	}

	require.Len(t, api.placed.SecretHashes, 3)
	assert.Equal(t, []int{1, 0}, api.submittedIndices(t),
		"secrets must be revealed in fill order and secret 2 never revealed")
}

func TestPollLoopTimesOutAtTickCap(t *testing.T) {
	const maxTries = 6
	api := newFakeAPI(1)

	errCh := make(chan error, 1)
	orch := execute(t, api, maxTries, Callbacks{
		OnOrderComplete: func(string) { t.Error("order must not complete") },
		OnError:         func(err error) { errCh <- err },
	})

	var err error
	select {
	case err = <-errCh:
	case <-time.After(time.Second):
		t.Fatal("timeout never surfaced")
	}

	var timeoutErr *TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, maxTries, timeoutErr.Tries)
	assert.Equal(t, StateTimedOut, orch.State())

	time.Sleep(5 * testInterval)
	assert.Equal(t, maxTries, api.countStatusCalls(), "no tick beyond the cap")
}

func TestResetIsIdempotent(t *testing.T) {
	orch := New(newFakeAPI(1), testLogger())
	orch.Reset()
	assert.Equal(t, StateIdle, orch.State())
	orch.Reset()
	assert.Equal(t, StateIdle, orch.State())
}

func TestResetStopsActivePoll(t *testing.T) {
	api := newFakeAPI(1)
	orch := execute(t, api, DefaultMaxPollTries, Callbacks{})

	// Let the loop take a few ticks, then cancel it.
	time.Sleep(5 * testInterval)
	orch.Reset()
	assert.Equal(t, StateIdle, orch.State())

	calls := api.countStatusCalls()
	time.Sleep(5 * testInterval)
	assert.Equal(t, calls, api.countStatusCalls(), "polling must stop after reset")

	orch.Reset()
	assert.Equal(t, StateIdle, orch.State())
}

func TestResetDuringInFlightSubmissionDoesNotPanic(t *testing.T) {
	api := newFakeAPI(1)
	api.fillsFn = func(call int) ([]intent.Fill, error) {
		return []intent.Fill{{Idx: 0}}, nil
	}

	// Hold the first submission open so Reset lands while it is in flight.
	inFlight := make(chan struct{})
	release := make(chan struct{})
	var hold sync.Once
	api.submitFn = func(attempt int, secret string) error {
		hold.Do(func() {
			close(inFlight)
			<-release
		})
		return nil
	}

	orch := execute(t, api, DefaultMaxPollTries, Callbacks{})

	select {
	case <-inFlight:
	case <-time.After(time.Second):
		t.Fatal("submission never started")
	}
	orch.Reset()
	close(release)

	// A crashing poll goroutine would take the test binary down here.
	time.Sleep(5 * testInterval)
	assert.Equal(t, StateIdle, orch.State())

	calls := api.countStatusCalls()
	time.Sleep(5 * testInterval)
	assert.Equal(t, calls, api.countStatusCalls(), "polling must stop after reset")
}

func TestNonNumericAmountFailsFast(t *testing.T) {
	api := newFakeAPI(1)
	orch := New(api, testLogger())

	for _, amount := range []string{"", "1.5", "100abc", "-3"} {
		req := validRequest()
		req.Amount = amount
		err := orch.ExecuteSwap(context.Background(), req, Callbacks{})
		require.Error(t, err, "amount %q must be rejected", amount)
	}
	assert.Equal(t, StateIdle, orch.State())
	assert.Equal(t, 0, api.quoteCalls, "invalid amounts must never reach the quote API")
}

func TestSecondSwapRejectedWhileInFlight(t *testing.T) {
	api := newFakeAPI(1)
	api.quoteDelay = 100 * time.Millisecond

	orch := New(api, testLogger(), WithPollInterval(testInterval))
	require.NoError(t, orch.ExecuteSwap(context.Background(), validRequest(), Callbacks{}))

	err := orch.ExecuteSwap(context.Background(), validRequest(), Callbacks{})
	assert.ErrorIs(t, err, ErrSwapInProgress)
	orch.Reset()
}

func TestUnmappedChainFailsFast(t *testing.T) {
	orch := New(newFakeAPI(1), testLogger())

	req := validRequest()
	req.SrcChainID = 999
	err := orch.ExecuteSwap(context.Background(), req, Callbacks{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no swap network mapping")
	assert.Contains(t, err.Error(), "999")
	assert.Equal(t, StateIdle, orch.State())
}

func TestQuoteFailureSurfacesThroughOnError(t *testing.T) {
	api := newFakeAPI(1)
	api.quoteErr = errors.New("liquidity window closed")

	errCh := make(chan error, 1)
	orch := execute(t, api, DefaultMaxPollTries, Callbacks{
		OnError: func(err error) { errCh <- err },
	})

	select {
	case err := <-errCh:
		assert.Contains(t, err.Error(), "quote failed")
	case <-time.After(time.Second):
		t.Fatal("error never surfaced")
	}
	assert.Equal(t, StateFailed, orch.State())
}

func TestPlacementFailureIsTerminal(t *testing.T) {
	api := newFakeAPI(1)
	api.placeErr = errors.New("rejected")

	errCh := make(chan error, 1)
	quoted := make(chan struct{}, 1)
	orch := execute(t, api, DefaultMaxPollTries, Callbacks{
		OnQuoteReceived: func(*intent.Quote) { quoted <- struct{}{} },
		OnError:         func(err error) { errCh <- err },
	})

	select {
	case err := <-errCh:
		assert.Contains(t, err.Error(), "order placement failed")
	case <-time.After(time.Second):
		t.Fatal("error never surfaced")
	}
	assert.Equal(t, StateFailed, orch.State())
	assert.Equal(t, 0, api.countStatusCalls(), "no polling after failed placement")
	select {
	case <-quoted:
	default:
		t.Error("quote callback should have fired before placement")
	}
}

func TestFillsTransportErrorDoesNotStopLoop(t *testing.T) {
	api := newFakeAPI(1)
	api.fillsFn = func(call int) ([]intent.Fill, error) {
		if call == 1 {
			return nil, errors.New("connection reset")
		}
		return nil, intent.ErrNotFound
	}
	api.statusFn = func(call int) (*intent.OrderStatus, error) {
		if call >= 3 {
			return &intent.OrderStatus{Status: intent.StatusExecuted}, nil
		}
		return &intent.OrderStatus{Status: "pending"}, nil
	}

	var transportErrs int
	done := make(chan struct{})
	execute(t, api, DefaultMaxPollTries, Callbacks{
		OnOrderComplete: func(string) { close(done) },
		OnError: func(err error) {
			transportErrs++
			assert.Contains(t, err.Error(), "fills query failed")
		},
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop aborted on a transient fills error")
	}
	assert.Equal(t, 1, transportErrs)
}

func TestFailedSecretSubmissionRetriesNextTick(t *testing.T) {
	api := newFakeAPI(1)
	api.fillsFn = func(call int) ([]intent.Fill, error) {
		return []intent.Fill{{Idx: 0}}, nil
	}
	api.submitFn = func(attempt int, secret string) error {
		if attempt == 1 {
			return fmt.Errorf("relayer busy")
		}
		return nil
	}
	api.statusFn = func(call int) (*intent.OrderStatus, error) {
		if call >= 4 {
			return &intent.OrderStatus{Status: intent.StatusExecuted}, nil
		}
		return &intent.OrderStatus{Status: "pending"}, nil
	}

	done := make(chan struct{})
	execute(t, api, DefaultMaxPollTries, Callbacks{
		OnOrderComplete: func(string) { close(done) },
	})

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("swap did not complete")
	}

	// First attempt failed, second succeeded, later ticks skip the index.
	assert.Equal(t, 2, api.submitAttempts)
	assert.Equal(t, []int{0}, api.submittedIndices(t))
}
