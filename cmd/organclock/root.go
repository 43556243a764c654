package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bioforge/organclock/internal/config"
	"github.com/bioforge/organclock/pkg/log"
)

var (
	settingsFile string
	debug        bool
	flagSeed     int64

	settings *config.Settings
)

var rootCmd = &cobra.Command{
	Use:   "organclock",
	Short: "Organ-specific biological age clocks from survey biomarkers",
	Long: `organclock trains per-organ age prediction models from raw survey
tables, derives each individual's organ age gaps (biological minus
chronological age), and produces population-level analyses: gap
correlations, advanced-organ co-occurrence, clusters, and age trends.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if debug {
			log.SetLevel("debug")
		}
		s, err := config.LoadSettings(settingsFile)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("seed") {
			s.Seed = flagSeed
		}
		settings = s
		return nil
	},
}

// Execute is the entry point called by main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&settingsFile, "settings", "", "settings file (YAML; defaults apply without one)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().Int64Var(&flagSeed, "seed", 42, "random seed for splits, boosting and clustering")
}
