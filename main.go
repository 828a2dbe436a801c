package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"vaultroute/cmd"
)

func main() {
	// Optional: local development keeps secrets in .env
	_ = godotenv.Load()

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
