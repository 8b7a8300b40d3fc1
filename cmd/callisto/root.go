package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "callisto",
	Short: "Callisto - hierarchical policy attachment engine",
	Long: `Callisto manages policy programs attached to a tree of workload scopes.

Programs attach per hook point (ingress, egress, socket creation) with
override and multi-attach semantics; every scope node carries an effective
ordered chain of programs folded from its ancestors, recomputed and
propagated on every attach or detach. The filtering hot path reads
published chains lock-free while the control plane mutates the tree.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
