package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "vinstock-server",
	Short: "Stock market data and AI research API",
	Long: `vinstock-server serves quotes, charts, market movers and LLM-backed
research endpoints on top of Finnhub, with a SQLite store kept current
by a periodic updater.`,
	SilenceUsage: true,
	RunE:         runServe,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to vinstock.toml (default: $VINSTOCK_CONFIG)")
	rootCmd.AddCommand(serveCmd, updateCmd, versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
