package main

import (
	"github.com/spf13/cobra"

	"github.com/wudi/tagremedy/report"
)

var checkCmd = &cobra.Command{
	Use:   "check <file.pdf>...",
	Short: "Report tag tree defects without changing the files",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	var summaries []*report.Summary
	for _, path := range args {
		summaries = append(summaries, s.process(cmd.Context(), job{path: path}))
	}
	return s.render(cmd.OutOrStdout(), summaries)
}
