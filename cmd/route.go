package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"vaultroute/pkg/catalog"
	"vaultroute/pkg/routing"
)

var (
	routeChainID  uint64
	routeToken    string
	routeSymbol   string
	routeAmount   string
	routeDecimals int32
	routeProtocol string
)

var routeCmd = &cobra.Command{
	Use:   "route",
	Short: "Analyze deposit routes for a token",
	Long: `Decide whether a token is directly depositable into a supported vault,
and otherwise enumerate and rank cross-chain swap routes.

Examples:
  vaultroute route --chain 8453 --token 0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913 --amount 1
  vaultroute route --chain 1 --token 0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48 --symbol USDC --amount 500
  vaultroute route --chain 1 --token 0xA0b8... --symbol USDC --amount 500 --protocol morpho`,
	Run: runRoute,
}

func init() {
	rootCmd.AddCommand(routeCmd)

	routeCmd.Flags().Uint64Var(&routeChainID, "chain", 0, "Source chain ID (REQUIRED)")
	routeCmd.Flags().StringVar(&routeToken, "token", "", "Source token address (REQUIRED)")
	routeCmd.Flags().StringVar(&routeSymbol, "symbol", "", "Source token symbol (enables cross-chain search)")
	routeCmd.Flags().StringVar(&routeAmount, "amount", "", "Amount in token units (REQUIRED)")
	routeCmd.Flags().Int32Var(&routeDecimals, "decimals", 6, "Source token decimals")
	routeCmd.Flags().StringVar(&routeProtocol, "protocol", "", "Preferred protocol (morpho|euler)")
}

func runRoute(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	rawAmount, err := toRawUnits(routeAmount, routeDecimals)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	analysis, err := routing.AnalyzeRoute(routing.Input{
		ChainID:           routeChainID,
		TokenAddress:      routeToken,
		TokenSymbol:       routeSymbol,
		Amount:            rawAmount,
		PreferredProtocol: catalog.Protocol(routeProtocol),
	})
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(analysis, "", "  ")
		fmt.Println(string(jsonData))
		return
	}
	displayAnalysis(analysis)
}

// toRawUnits converts a human token amount into an integer string in the
// token's smallest unit.
func toRawUnits(amount string, decimals int32) (string, error) {
	if amount == "" {
		return "", fmt.Errorf("amount is required")
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return "", fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("amount must not be negative")
	}
	raw := d.Shift(decimals)
	if !raw.Equal(raw.Truncate(0)) {
		return "", fmt.Errorf("amount %s has more than %d decimal places", amount, decimals)
	}
	return raw.Truncate(0).String(), nil
}

func displayAnalysis(analysis *routing.Analysis) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                       ROUTE ANALYSIS")
	fmt.Println(strings.Repeat("=", 70))

	if analysis.DirectlySupported {
		color.Green("\n  Token is directly depositable. No swap required.")
	} else if len(analysis.Routes) == 0 {
		color.Yellow("\n  No deposit path exists for this token.")
		fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
		return
	}

	for i, r := range analysis.Routes {
		marker := "  "
		if i == 0 {
			marker = color.GreenString("> ")
		}
		v := r.TargetVault
		swap := "direct"
		if r.NeedsSwap {
			swap = fmt.Sprintf("swap %s -> %s", catalog.ChainName(r.SourceChain), catalog.ChainName(r.TargetChain))
		}
		fmt.Printf("\n%s%s %s on %s (%s)\n", marker,
			color.YellowString(v.Token.Symbol),
			string(v.Protocol),
			v.ChainName,
			swap)
		fmt.Printf("    Vault: %s\n", color.HiBlackString(v.VaultAddress))
	}

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}
