// Package main provides the entry point for the Landing Agent HTTP API server.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "landing_agent",
	Short: "Landing Agent HTTP API Server",
	Long:  "Landing Agent generates, deploys, and catalogs AI-built landing pages for marketing campaigns via REST API.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
