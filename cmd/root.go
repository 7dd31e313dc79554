// Package cmd wires the compiler's stages into a cobra command tree.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var debugMode bool

var rootCmd = &cobra.Command{
	Use:   "stsc",
	Short: "Compiles declarative project documents into ffmpeg filtergraphs",
	Long: `stsc compiles a declarative project document — assets, sequences,
fragments, and CSS-positioned overlays — into an ffmpeg filter_complex graph
and drives the encoder to produce one or more named outputs.`,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the command tree, translating a returned error into one of
// the exit codes spec.md §6 documents: 0 success, 1 compiler/user error,
// 2 external-tool failure, 3 cancellation.
func Execute() {
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "print the full error chain instead of a short message")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	rootCmd.AddCommand(compileCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(reapCmd)
	rootCmd.AddCommand(uploadConfigCmd)
}
