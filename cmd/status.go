package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"vaultroute/config"
	"vaultroute/pkg/intent"
)

var (
	watchStatus   bool
	watchInterval int
)

var statusCmd = &cobra.Command{
	Use:   "status <order-hash>",
	Short: "Check the status of a swap order",
	Long: `Check the execution status of a placed swap order by its order hash.

Examples:
  vaultroute status 0x1234...abcd
  vaultroute status 0x1234...abcd --watch
  vaultroute status 0x1234...abcd --watch --interval 10`,
	Args: cobra.ExactArgs(1),
	Run:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&watchStatus, "watch", "w", false, "Watch status updates continuously")
	statusCmd.Flags().IntVar(&watchInterval, "interval", 5, "Polling interval in seconds (when watching)")
}

func runStatus(cmd *cobra.Command, args []string) {
	orderHash := args[0]
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	apiClient := intent.NewClient(cfg.IntentBaseURL, cfg.IntentToken)

	if watchStatus {
		watchOrderStatus(apiClient, orderHash, jsonOutput)
	} else {
		checkOrderStatus(apiClient, orderHash, jsonOutput)
	}
}

func checkOrderStatus(apiClient *intent.Client, orderHash string, jsonOutput bool) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Checking order status..."
		s.Start()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	status, err := apiClient.GetOrderStatus(ctx, orderHash)
	if !jsonOutput {
		s.Stop()
	}

	if err != nil {
		if errors.Is(err, intent.ErrNotFound) {
			err = fmt.Errorf("order %s not found", orderHash)
		}
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(status, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayOrderStatus(status, orderHash)
	}
}

func watchOrderStatus(apiClient *intent.Client, orderHash string, jsonOutput bool) {
	if jsonOutput {
		fmt.Println(`{"error": "watch mode not supported with JSON output"}`)
		os.Exit(1)
	}

	fmt.Printf("\nWatching order status (Order: %s)\n", color.CyanString(orderHash))
	fmt.Printf("Checking every %d seconds. Press Ctrl+C to stop.\n\n", watchInterval)

	ticker := time.NewTicker(time.Duration(watchInterval) * time.Second)
	defer ticker.Stop()

	// Check immediately first
	checkAndDisplayStatus(apiClient, orderHash)

	// Then check periodically
	for range ticker.C {
		checkAndDisplayStatus(apiClient, orderHash)
	}
}

func checkAndDisplayStatus(apiClient *intent.Client, orderHash string) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	status, err := apiClient.GetOrderStatus(ctx, orderHash)
	if err != nil {
		color.Red("Error: %v", err)
		return
	}

	displayOrderStatus(status, orderHash)
}

func displayOrderStatus(status *intent.OrderStatus, orderHash string) {
	fmt.Println("\n" + strings.Repeat("=", 70))
	color.Green("                       ORDER STATUS")
	fmt.Println(strings.Repeat("=", 70))

	fmt.Printf("\n  Order Hash: %s\n", color.CyanString(orderHash))
	fmt.Printf("  Status:     %s\n", getColoredStatus(status.Status))

	fmt.Println("\n" + strings.Repeat("=", 70) + "\n")
}

func getColoredStatus(status string) string {
	switch strings.ToLower(status) {
	case intent.StatusExecuted:
		return color.GreenString(status)
	case "pending", "partially-filled":
		return color.YellowString(status)
	case "cancelled", "expired", "refunded":
		return color.RedString(status)
	default:
		return status
	}
}
