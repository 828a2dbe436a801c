package approval

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// well-known hardhat test key, never used on a live chain
const testKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

var (
	testToken   = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
	testSpender = common.HexToAddress("0x111111125421cA6dc452d289314280a0f8842A65")
)

// fakeBackend plays a chain with a scripted allowance.
type fakeBackend struct {
	allowance *big.Int
	sentTxs   []*types.Transaction
	revert    bool
}

func (f *fakeBackend) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return common.LeftPadBytes(f.allowance.Bytes(), 32), nil
}

func (f *fakeBackend) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 7, nil
}

func (f *fakeBackend) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeBackend) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	f.sentTxs = append(f.sentTxs, tx)
	return nil
}

func (f *fakeBackend) TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	status := types.ReceiptStatusSuccessful
	if f.revert {
		status = types.ReceiptStatusFailed
	}
	return &types.Receipt{Status: status}, nil
}

func testGateway(t *testing.T, backend Backend) *Gateway {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)

	g, err := NewGateway(map[uint64]Backend{8453: backend}, testKey, log)
	require.NoError(t, err)
	g.settleDelay = time.Millisecond
	g.receiptPoll = time.Millisecond
	return g
}

func TestEnsureAllowanceSufficientSendsNothing(t *testing.T) {
	backend := &fakeBackend{allowance: big.NewInt(2_000_000)}
	g := testGateway(t, backend)

	err := g.EnsureAllowance(context.Background(), 8453, testToken, testSpender, big.NewInt(1_000_000))
	require.NoError(t, err)
	assert.Empty(t, backend.sentTxs)
}

func TestEnsureAllowanceApprovesWhenShort(t *testing.T) {
	backend := &fakeBackend{allowance: big.NewInt(0)}
	g := testGateway(t, backend)

	err := g.EnsureAllowance(context.Background(), 8453, testToken, testSpender, big.NewInt(1_000_000))
	require.NoError(t, err)

	require.Len(t, backend.sentTxs, 1)
	tx := backend.sentTxs[0]
	assert.Equal(t, testToken, *tx.To())
	assert.Equal(t, uint64(7), tx.Nonce())
	// approve(spender, MaxAllowance) selector + 2 words
	assert.Len(t, tx.Data(), 4+32+32)
}

func TestEnsureAllowanceRevertedApprovalFails(t *testing.T) {
	backend := &fakeBackend{allowance: big.NewInt(0), revert: true}
	g := testGateway(t, backend)

	err := g.EnsureAllowance(context.Background(), 8453, testToken, testSpender, big.NewInt(1_000_000))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reverted")
}

func TestEnsureAllowanceUnknownChain(t *testing.T) {
	g := testGateway(t, &fakeBackend{allowance: big.NewInt(0)})

	err := g.EnsureAllowance(context.Background(), 42, testToken, testSpender, big.NewInt(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not configured")
}
