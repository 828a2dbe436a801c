package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vaultroute",
	Short: "A CLI and service for routing stablecoin deposits into yield vaults",
	Long: `vaultroute routes stablecoin deposits into Morpho and Euler yield vaults
across chains. When the deposit token or chain is not directly supported, it
drives a cross-chain swap through the swap-intent protocol before depositing.

Examples:
  vaultroute route --chain 8453 --token 0x8335... --amount 1000000
  vaultroute swap --from-chain 1 --to-chain 8453 --from-token 0xA0b8... --to-token 0x8335... --amount 1000000 --wallet 0x...
  vaultroute vaults
  vaultroute status <order-hash>
  vaultroute serve`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}
