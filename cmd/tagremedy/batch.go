package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/wudi/tagremedy/ledger"
	"github.com/wudi/tagremedy/observability"
	"github.com/wudi/tagremedy/report"
)

var batchCmd = &cobra.Command{
	Use:   "batch [flags] <file.pdf|directory>...",
	Short: "Check or repair many documents concurrently",
	Long: `Check or repair every PDF named on the command line or found below the
given directories. Each document is processed independently; results are
recorded in the ledger database unless --no-ledger is set.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().Int("jobs", 0, "max parallel documents (0 = config value)")
	batchCmd.Flags().Bool("fix", false, "apply fixes and write remediated files")
	batchCmd.Flags().String("out-dir", "", "directory for remediated files (default next to each input)")
	batchCmd.Flags().String("ledger", "", "ledger database (default from config)")
	batchCmd.Flags().Bool("no-ledger", false, "do not record results")
}

func runBatch(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	jobs, err := cmd.Flags().GetInt("jobs")
	if err != nil {
		return fmt.Errorf("failed to get jobs flag: %w", err)
	}
	fix, err := cmd.Flags().GetBool("fix")
	if err != nil {
		return fmt.Errorf("failed to get fix flag: %w", err)
	}
	outDir, err := cmd.Flags().GetString("out-dir")
	if err != nil {
		return fmt.Errorf("failed to get out-dir flag: %w", err)
	}
	ledgerPath, err := cmd.Flags().GetString("ledger")
	if err != nil {
		return fmt.Errorf("failed to get ledger flag: %w", err)
	}
	noLedger, err := cmd.Flags().GetBool("no-ledger")
	if err != nil {
		return fmt.Errorf("failed to get no-ledger flag: %w", err)
	}
	if jobs <= 0 {
		jobs = s.cfg.Jobs
	}
	if ledgerPath == "" {
		ledgerPath = s.cfg.Ledger.Path
	}

	files, err := collectPDFs(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no PDF files found")
	}
	if outDir != "" {
		if err := os.MkdirAll(outDir, 0o755); err != nil {
			return err
		}
	}

	var led *ledger.Ledger
	if !noLedger {
		if led, err = ledger.Open(ledgerPath, ledger.WithLogger(s.log)); err != nil {
			return err
		}
		defer led.Close()
	}

	mode := "check"
	if fix {
		mode = "fix"
	}
	summaries := make([]*report.Summary, len(files))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(jobs)
	for i, path := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			j := job{path: path, fix: fix}
			if fix {
				j.out = remediatedPath(path)
				if outDir != "" {
					j.out = filepath.Join(outDir, filepath.Base(path))
				}
			}
			started := time.Now()
			summaries[i] = s.process(ctx, j)
			if led == nil {
				return nil
			}
			if _, err := led.Record(ctx, mode, summaries[i], started); err != nil {
				s.log.Error("ledger record failed", observability.String("file", path), observability.Error("error", err))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return s.render(cmd.OutOrStdout(), summaries)
}

// collectPDFs expands directories into the PDF files below them, in lexical
// order. Named files are kept whatever their extension.
func collectPDFs(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(path), ".pdf") && !strings.Contains(filepath.Base(path), ".remediated.") {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}
