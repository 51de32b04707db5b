package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	timeout    time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "tasksmith",
	Short: "Break tasks into ordered, time-boxed steps",
	Long: `tasksmith turns a task title, description and timeframe into a short
ordered list of steps using a generative model, falling back to a standard
plan when the model cannot produce one. Steps can then be edited and saved
from a chat front end.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.json", "Path to the configuration file")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Timeout for a single decomposition")

	rootCmd.AddCommand(serveCmd, decomposeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
