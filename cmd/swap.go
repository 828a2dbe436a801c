package cmd

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"time"

	"github.com/briandowns/spinner"
	"github.com/ethereum/go-ethereum/common"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vaultroute/config"
	"vaultroute/pkg/approval"
	"vaultroute/pkg/catalog"
	"vaultroute/pkg/intent"
	"vaultroute/pkg/orchestrator"
)

var (
	swapFromChain uint64
	swapToChain   uint64
	swapFromToken string
	swapToToken   string
	swapAmount    string
	swapDecimals  int32
	swapWallet    string
	skipApproval  bool
)

var swapCmd = &cobra.Command{
	Use:   "swap",
	Short: "Execute a cross-chain swap toward a vault deposit",
	Long: `Drive a cross-chain swap through the swap-intent protocol: fetch a quote,
commit to a hash-locked secret set, place the order, and poll for counterparty
fills, revealing secrets as fills become ready.

Examples:
  vaultroute swap --from-chain 1 --to-chain 8453 \
    --from-token 0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48 \
    --to-token 0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913 \
    --amount 500 --wallet 0xYourWallet`,
	Run: runSwap,
}

func init() {
	rootCmd.AddCommand(swapCmd)

	swapCmd.Flags().Uint64Var(&swapFromChain, "from-chain", 0, "Source chain ID (REQUIRED)")
	swapCmd.Flags().Uint64Var(&swapToChain, "to-chain", 0, "Destination chain ID (REQUIRED)")
	swapCmd.Flags().StringVar(&swapFromToken, "from-token", "", "Source token address (REQUIRED)")
	swapCmd.Flags().StringVar(&swapToToken, "to-token", "", "Destination token address (REQUIRED)")
	swapCmd.Flags().StringVar(&swapAmount, "amount", "", "Amount in source token units (REQUIRED)")
	swapCmd.Flags().Int32Var(&swapDecimals, "decimals", 6, "Source token decimals")
	swapCmd.Flags().StringVar(&swapWallet, "wallet", "", "Wallet address receiving the swap output (REQUIRED)")
	swapCmd.Flags().BoolVar(&skipApproval, "skip-approval", false, "Skip the settlement router allowance check")
}

func runSwap(cmd *cobra.Command, args []string) {
	verbose, _ := cmd.Flags().GetBool("verbose")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	rawAmount, err := toRawUnits(swapAmount, swapDecimals)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}

	ctx := context.Background()

	if !skipApproval {
		if err := ensureRouterAllowance(ctx, cfg, rawAmount, log); err != nil {
			printError(err)
			os.Exit(1)
		}
	}

	apiClient := intent.NewClient(cfg.IntentBaseURL, cfg.IntentToken)
	orch := orchestrator.New(apiClient, log)

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Fetching quote..."
	s.Start()

	done := make(chan error, 1)
	err = orch.ExecuteSwap(ctx, orchestrator.SwapRequest{
		SrcChainID:    swapFromChain,
		DstChainID:    swapToChain,
		SrcToken:      swapFromToken,
		DstToken:      swapToToken,
		Amount:        rawAmount,
		WalletAddress: swapWallet,
	}, orchestrator.Callbacks{
		OnQuoteReceived: func(q *intent.Quote) {
			s.Stop()
			fmt.Printf("\nQuote received: %s in -> ~%s out (%d secrets)\n",
				q.SrcTokenAmount, q.DstTokenAmount, q.Preset.SecretsCount)
			s.Suffix = " Placing order..."
			s.Restart()
		},
		OnOrderPlaced: func(orderHash string) {
			s.Stop()
			fmt.Printf("\nOrder placed: %s\n", color.CyanString(orderHash))
			s.Suffix = " Waiting for fills..."
			s.Restart()
		},
		OnOrderComplete: func(orderHash string) {
			s.Stop()
			color.Green("\n✓ Swap executed: %s\n", orderHash)
			done <- nil
		},
		OnError: func(err error) {
			s.Stop()
			done <- err
		},
	})
	if err != nil {
		s.Stop()
		printError(err)
		os.Exit(1)
	}

	if err := <-done; err != nil {
		if _, ok := err.(*orchestrator.TimeoutError); ok {
			color.Yellow("\nSwap not executed in time: %v", err)
			color.Yellow("The order may still complete server-side. Check it with:")
			color.Cyan("  vaultroute status %s\n", orch.OrderHash())
			os.Exit(1)
		}
		printError(err)
		os.Exit(1)
	}
}

// ensureRouterAllowance raises the settlement router allowance for the source
// token when signing material and an RPC endpoint are configured; otherwise
// the user approves through their own wallet.
func ensureRouterAllowance(ctx context.Context, cfg *config.Config, rawAmount string, log logrus.FieldLogger) error {
	if cfg.PrivateKey == "" || len(cfg.RPCURLs) == 0 {
		return nil
	}
	if _, ok := cfg.RPCURLs[swapFromChain]; !ok {
		return nil
	}

	backends, err := approval.Dial(cfg.RPCURLs)
	if err != nil {
		return err
	}
	gateway, err := approval.NewGateway(backends, cfg.PrivateKey, log)
	if err != nil {
		return err
	}

	amount, ok := new(big.Int).SetString(rawAmount, 10)
	if !ok {
		return fmt.Errorf("invalid amount: %s", rawAmount)
	}
	return gateway.EnsureAllowance(ctx, swapFromChain,
		common.HexToAddress(swapFromToken),
		common.HexToAddress(catalog.SettlementRouter),
		amount)
}
