package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"

	"github.com/wudi/tagremedy/ledger"
)

var historyCmd = &cobra.Command{
	Use:   "history [flags] [file.pdf]",
	Short: "List recorded batch runs",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().Int("limit", 20, "number of runs to list (0 = all)")
	historyCmd.Flags().Int64("id", 0, "show the findings of one run")
	historyCmd.Flags().String("ledger", "", "ledger database (default from config)")
}

const historyFileWidth = 40

func runHistory(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return fmt.Errorf("failed to get limit flag: %w", err)
	}
	id, err := cmd.Flags().GetInt64("id")
	if err != nil {
		return fmt.Errorf("failed to get id flag: %w", err)
	}
	path, err := cmd.Flags().GetString("ledger")
	if err != nil {
		return fmt.Errorf("failed to get ledger flag: %w", err)
	}
	if path == "" {
		path = s.cfg.Ledger.Path
	}
	led, err := ledger.Open(path, ledger.WithLogger(s.log))
	if err != nil {
		return err
	}
	defer led.Close()

	w := cmd.OutOrStdout()
	if id != 0 {
		run, err := led.Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		if s.format == "json" {
			return writeJSON(w, run)
		}
		return writeRun(w, run)
	}

	file := ""
	if len(args) == 1 {
		file = args[0]
	}
	runs, err := led.History(cmd.Context(), file, limit)
	if err != nil {
		return err
	}
	if s.format == "json" {
		if runs == nil {
			runs = []ledger.Run{}
		}
		return writeJSON(w, runs)
	}
	for _, r := range runs {
		name := runewidth.FillRight(runewidth.Truncate(r.File, historyFileWidth, "…"), historyFileWidth)
		status := "ok"
		switch {
		case r.Fatal != "":
			status = "fatal"
		case r.Failed > 0 || r.Remaining > 0:
			status = "open"
		}
		if _, err := fmt.Fprintf(w, "%6d  %s  %-5s  %s  detected %d, resolved %d, failed %d, remaining %d  %s\n",
			r.ID, r.Started.Format("2006-01-02 15:04"), r.Mode, name,
			r.Detected, r.Resolved, r.Failed, r.Remaining, status); err != nil {
			return err
		}
	}
	return nil
}

func writeRun(w io.Writer, r *ledger.Run) error {
	if _, err := fmt.Fprintf(w, "run %d: %s (%s, %s)\n", r.ID, r.File, r.Mode, r.Started.Format("2006-01-02 15:04:05")); err != nil {
		return err
	}
	if r.Fatal != "" {
		if _, err := fmt.Fprintf(w, "  fatal: %s\n", r.Fatal); err != nil {
			return err
		}
	}
	for _, f := range r.Findings {
		if _, err := fmt.Fprintf(w, "  %-7s %-10s %-22s %s\n", f.Severity, f.Status, f.Location, f.Message); err != nil {
			return err
		}
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
