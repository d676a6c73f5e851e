package main

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var envFile string

var rootCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Rule-based index backtest engine",
	Long: `Backtest simulates regime-routed rule strategies over historical index
data with layered exits and portfolio risk gates, then reports aggregate
and per-strategy performance.

Example:
  backtest run --config configs/backtest.yaml --output results/trades.csv`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "optional .env file with API credentials")
	cobra.OnInitialize(loadEnv)
}

// loadEnv loads the optional .env file. Missing files are not an error; the
// simulation itself needs no credentials.
func loadEnv() {
	if envFile != "" {
		_ = godotenv.Load(envFile)
		return
	}
	_ = godotenv.Load()
}
