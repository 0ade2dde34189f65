// Command tagremedy validates and repairs the tag tree of PDF documents.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tagremedy",
	Short: "Validate and repair the tag tree of PDF documents",
	Long: `tagremedy detects structural accessibility defects in tagged PDF files
(malformed lists, missing wrappers, decorative content exposed to assistive
technology, untagged links, broken text mappings) and applies deterministic,
idempotent fixes.

Exit status: 0 when no error remains, 1 when errors remain, 2 when a
document could not be processed.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitCode is the worst document status seen by the command that ran.
var exitCode int

func main() {
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(batchCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(historyCmd)

	rootCmd.PersistentFlags().String("config", "", "configuration file (.yaml, .yml or .toml)")
	rootCmd.PersistentFlags().String("format", "text", "output format (text|json|markdown|html)")
	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log progress to stderr")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "tagremedy: %v\n", err)
		os.Exit(2)
	}
	os.Exit(exitCode)
}
