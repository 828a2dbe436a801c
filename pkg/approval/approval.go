package approval

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// ERC-20 allowance and approve ABI
const erc20ApprovalABI = `[{"constant":true,"inputs":[{"name":"_owner","type":"address"},{"name":"_spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},{"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"}]`

const (
	// DefaultSettleDelay is the pause after a chain switch before any state
	// read. Reading immediately after switching is a known source of
	// stale-chain data.
	DefaultSettleDelay = 1 * time.Second

	receiptPollInterval = 2 * time.Second
)

// MaxAllowance is the effectively unlimited approval amount used to avoid
// repeated approvals.
var MaxAllowance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Backend is the slice of ethclient the gateway needs, split out so tests can
// substitute a fake chain.
type Backend interface {
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Gateway checks and raises ERC-20 allowances toward the settlement contract
// before a swap or deposit proceeds. One gateway serves every configured
// chain; the active chain is switched explicitly, with a settle delay, before
// allowance reads.
type Gateway struct {
	backends    map[uint64]Backend
	privateKey  *ecdsa.PrivateKey
	from        common.Address
	settleDelay time.Duration
	receiptPoll time.Duration
	abi         abi.ABI
	log         logrus.FieldLogger

	activeChain uint64
}

// NewGateway builds a gateway over pre-dialed chain backends. The private key
// signs approval transactions.
func NewGateway(backends map[uint64]Backend, privateKeyHex string, log logrus.FieldLogger) (*Gateway, error) {
	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(privateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, fmt.Errorf("failed to get public key")
	}

	parsedABI, err := abi.JSON(strings.NewReader(erc20ApprovalABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}

	return &Gateway{
		backends:    backends,
		privateKey:  privateKey,
		from:        crypto.PubkeyToAddress(*publicKey),
		settleDelay: DefaultSettleDelay,
		receiptPoll: receiptPollInterval,
		abi:         parsedABI,
		log:         log,
	}, nil
}

// Dial connects an ethclient for every configured chain RPC endpoint.
func Dial(rpcURLs map[uint64]string) (map[uint64]Backend, error) {
	backends := make(map[uint64]Backend, len(rpcURLs))
	for chainID, url := range rpcURLs {
		client, err := ethclient.Dial(url)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to chain %d RPC: %w", chainID, err)
		}
		backends[chainID] = client
	}
	return backends, nil
}

// SwitchChain makes chainID the active chain, pausing for the settle delay
// when the chain actually changes.
func (g *Gateway) SwitchChain(chainID uint64) error {
	if _, ok := g.backends[chainID]; !ok {
		return fmt.Errorf("chain %d not configured", chainID)
	}
	if g.activeChain == chainID {
		return nil
	}
	g.activeChain = chainID
	time.Sleep(g.settleDelay)
	return nil
}

// EnsureAllowance guarantees that spender may move at least amount of token on
// chainID, submitting an unlimited approval and waiting one confirmation when
// the current allowance falls short. The chain is switched (and settled)
// before the allowance read.
func (g *Gateway) EnsureAllowance(ctx context.Context, chainID uint64, token, spender common.Address, amount *big.Int) error {
	if err := g.SwitchChain(chainID); err != nil {
		return err
	}
	backend := g.backends[chainID]

	current, err := g.allowance(ctx, backend, token, spender)
	if err != nil {
		return fmt.Errorf("failed to read allowance: %w", err)
	}
	if current.Cmp(amount) >= 0 {
		return nil
	}

	g.log.WithFields(logrus.Fields{
		"chain":   chainID,
		"token":   token.Hex(),
		"spender": spender.Hex(),
	}).Info("allowance insufficient, submitting approval")

	txHash, err := g.approve(ctx, chainID, backend, token, spender)
	if err != nil {
		return fmt.Errorf("approval failed: %w", err)
	}
	if err := g.waitConfirmed(ctx, backend, txHash); err != nil {
		return fmt.Errorf("approval not confirmed: %w", err)
	}
	return nil
}

func (g *Gateway) allowance(ctx context.Context, backend Backend, token, spender common.Address) (*big.Int, error) {
	data, err := g.abi.Pack("allowance", g.from, spender)
	if err != nil {
		return nil, err
	}
	result, err := backend.CallContract(ctx, ethereum.CallMsg{To: &token, Data: data}, nil)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(result), nil
}

func (g *Gateway) approve(ctx context.Context, chainID uint64, backend Backend, token, spender common.Address) (common.Hash, error) {
	data, err := g.abi.Pack("approve", spender, MaxAllowance)
	if err != nil {
		return common.Hash{}, err
	}

	nonce, err := backend.PendingNonceAt(ctx, g.from)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get nonce: %w", err)
	}
	gasPrice, err := backend.SuggestGasPrice(ctx)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to get gas price: %w", err)
	}

	tx := types.NewTransaction(nonce, token, big.NewInt(0), 80000, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(new(big.Int).SetUint64(chainID)), g.privateKey)
	if err != nil {
		return common.Hash{}, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := backend.SendTransaction(ctx, signedTx); err != nil {
		return common.Hash{}, fmt.Errorf("failed to send transaction: %w", err)
	}
	return signedTx.Hash(), nil
}

// waitConfirmed blocks until the transaction has one confirmation or ctx
// expires. A reverted approval surfaces as an error immediately.
func (g *Gateway) waitConfirmed(ctx context.Context, backend Backend, txHash common.Hash) error {
	ticker := time.NewTicker(g.receiptPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			receipt, err := backend.TransactionReceipt(ctx, txHash)
			if err != nil {
				continue
			}
			if receipt.Status != types.ReceiptStatusSuccessful {
				return fmt.Errorf("approval transaction %s reverted", txHash.Hex())
			}
			return nil
		}
	}
}
