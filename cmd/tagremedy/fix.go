package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wudi/tagremedy/report"
)

var fixCmd = &cobra.Command{
	Use:   "fix [flags] <file.pdf>",
	Short: "Repair the tag tree of a document",
	Long: `Repair the tag tree of a document and write the result to --output
(default: <name>.remediated.pdf next to the input). Nothing is written when
no fix applied or when a fatal defect stops remediation.`,
	Args: cobra.ExactArgs(1),
	RunE: runFix,
}

func init() {
	fixCmd.Flags().StringP("output", "o", "", "output file (default <name>.remediated.pdf)")
	fixCmd.Flags().Bool("in-place", false, "overwrite the input file")
	fixCmd.Flags().Bool("dry-run", false, "apply fixes in memory and report, without writing")
}

func runFix(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	out, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	inPlace, err := cmd.Flags().GetBool("in-place")
	if err != nil {
		return fmt.Errorf("failed to get in-place flag: %w", err)
	}
	dryRun, err := cmd.Flags().GetBool("dry-run")
	if err != nil {
		return fmt.Errorf("failed to get dry-run flag: %w", err)
	}
	if inPlace && out != "" {
		return fmt.Errorf("--output and --in-place cannot be used together")
	}

	path := args[0]
	switch {
	case dryRun:
		out = ""
	case inPlace:
		out = path
	case out == "":
		out = remediatedPath(path)
	}
	sum := s.process(cmd.Context(), job{path: path, fix: true, out: out})
	return s.render(cmd.OutOrStdout(), []*report.Summary{sum})
}
