package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"vaultroute/config"
	"vaultroute/pkg/catalog"
	"vaultroute/pkg/vaults"
)

var (
	filterChain    string
	filterSymbol   string
	withLiveStatus bool
)

var vaultsCmd = &cobra.Command{
	Use:     "vaults",
	Aliases: []string{"list-vaults", "ls"},
	Short:   "List all supported vaults",
	Long: `List the static catalogue of supported yield vaults, optionally enriched
with live APY data from the status feed.

Examples:
  vaultroute vaults
  vaultroute vaults --chain Base
  vaultroute vaults --symbol USDC --live`,
	Run: runListVaults,
}

func init() {
	rootCmd.AddCommand(vaultsCmd)

	vaultsCmd.Flags().StringVar(&filterChain, "chain", "", "Filter by chain name")
	vaultsCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
	vaultsCmd.Flags().BoolVar(&withLiveStatus, "live", false, "Fetch live APY data")
}

func runListVaults(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Apply filters
	filtered := catalog.Vaults()
	if filterChain != "" {
		var temp []catalog.Vault
		for _, v := range filtered {
			if strings.EqualFold(v.ChainName, filterChain) {
				temp = append(temp, v)
			}
		}
		filtered = temp
	}

	if filterSymbol != "" {
		var temp []catalog.Vault
		for _, v := range filtered {
			if strings.EqualFold(v.Token.Symbol, filterSymbol) {
				temp = append(temp, v)
			}
		}
		filtered = temp
	}

	var live *vaults.StatusResult
	if withLiveStatus {
		result := fetchLiveStatus(jsonOutput)
		live = &result
	}

	// Output
	if jsonOutput {
		out := map[string]interface{}{"vaults": filtered}
		if live != nil {
			out["status"] = live.Vaults
			out["degraded"] = live.Degraded
		}
		jsonData, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayVaults(filtered, live)
	}
}

func fetchLiveStatus(jsonOutput bool) vaults.StatusResult {
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching vault status..."
		s.Start()
	}

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	reader := vaults.NewStatusReader(cfg.StatusFeedURL, log)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	result := reader.Read(ctx)

	if !jsonOutput {
		s.Stop()
	}
	return result
}

func displayVaults(entries []catalog.Vault, live *vaults.StatusResult) {
	if len(entries) == 0 {
		fmt.Println("\nNo vaults found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                             SUPPORTED VAULTS")
	fmt.Println(strings.Repeat("=", 90))

	// Group vaults by chain
	byChain := make(map[string][]catalog.Vault)
	for _, v := range entries {
		byChain[v.ChainName] = append(byChain[v.ChainName], v)
	}

	chains := make([]string, 0, len(byChain))
	for chain := range byChain {
		chains = append(chains, chain)
	}
	sort.Strings(chains)

	apy := make(map[string]float64)
	if live != nil {
		for _, s := range live.Vaults {
			apy[strings.ToLower(s.Vault)] = s.SupplyAPY
		}
	}

	for _, chain := range chains {
		color.Cyan("\n%s", strings.ToUpper(chain))
		fmt.Println(strings.Repeat("-", 90))

		for _, v := range byChain[chain] {
			line := fmt.Sprintf("  %-8s  %-8s  %s",
				color.YellowString(v.Token.Symbol),
				string(v.Protocol),
				color.HiBlackString(v.VaultAddress))
			if rate, ok := apy[strings.ToLower(v.VaultAddress)]; ok {
				line += fmt.Sprintf("  %.2f%% APY", rate*100)
			}
			fmt.Println(line)
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d vaults across %d chains\n", len(entries), len(chains))
	if live != nil && live.Degraded {
		color.Yellow("Live APY data unavailable (status feed degraded).")
	}
	fmt.Println()
}
