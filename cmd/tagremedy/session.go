package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wudi/tagremedy/config"
	"github.com/wudi/tagremedy/docctx"
	"github.com/wudi/tagremedy/engine"
	"github.com/wudi/tagremedy/issue"
	"github.com/wudi/tagremedy/observability"
	"github.com/wudi/tagremedy/pdfio"
	"github.com/wudi/tagremedy/report"
	"github.com/wudi/tagremedy/rules"
)

// session carries the settings shared by every subcommand.
type session struct {
	cfg    *config.Config
	log    observability.Logger
	format string
	color  report.ColorMode
}

func newSession(cmd *cobra.Command) (*session, error) {
	flags := cmd.Root().PersistentFlags()
	path, err := flags.GetString("config")
	if err != nil {
		return nil, fmt.Errorf("failed to get config flag: %w", err)
	}
	format, err := flags.GetString("format")
	if err != nil {
		return nil, fmt.Errorf("failed to get format flag: %w", err)
	}
	switch format {
	case "text", "json", "markdown", "html":
	default:
		return nil, fmt.Errorf("unknown format %q (text|json|markdown|html)", format)
	}
	colorFlag, err := flags.GetString("color")
	if err != nil {
		return nil, fmt.Errorf("failed to get color flag: %w", err)
	}
	mode, err := report.ParseColorMode(colorFlag)
	if err != nil {
		return nil, err
	}
	verbose, err := flags.GetBool("verbose")
	if err != nil {
		return nil, fmt.Errorf("failed to get verbose flag: %w", err)
	}

	cfg := config.Default()
	if path != "" {
		if cfg, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return &session{
		cfg:    cfg,
		log:    observability.NewSlogLogger(slog.New(handler)),
		format: format,
		color:  mode,
	}, nil
}

// engine builds a fresh engine. Script checks own a JavaScript runtime, so
// concurrent documents never share one.
func (s *session) engine(log observability.Logger) (*engine.Engine, error) {
	checks, factories, err := rules.Default(s.cfg)
	if err != nil {
		return nil, err
	}
	return engine.New(checks, factories,
		engine.WithLogger(log),
		engine.WithTracer(observability.LogTracer{Log: log}),
		engine.WithMaxPasses(s.cfg.MaxPasses))
}

// job describes one document to process.
type job struct {
	path string
	fix  bool
	// out is where a remediated file is written; empty means no output.
	out string
}

// process runs a single document end to end. Problems with the document are
// reported in the summary, never returned.
func (s *session) process(ctx context.Context, j job) *report.Summary {
	log := s.log.With(observability.String("file", j.path))
	f, err := pdfio.Open(j.path, pdfio.WithLogger(log))
	if err != nil {
		return report.Summarize(j.path, nil, err)
	}
	e, err := s.engine(log)
	if err != nil {
		return report.Summarize(j.path, nil, err)
	}
	dc := docctx.New(f.Document(), f, docctx.WithLogger(log))

	var res *engine.Result
	if j.fix {
		res, err = e.Run(ctx, dc)
	} else {
		res, err = detect(ctx, e, dc)
	}
	if err != nil && !errors.Is(err, engine.ErrFatal) {
		return report.Summarize(j.path, nil, err)
	}
	sum := report.Summarize(j.path, res, err)
	if err != nil || !j.fix || j.out == "" || len(res.Resolved) == 0 {
		return sum
	}
	if err := f.Save(j.out); err != nil {
		log.Error("save failed", observability.Error("error", err))
		sum.Fatal = fmt.Sprintf("save %s: %v", j.out, err)
		return sum
	}
	log.Info("saved", observability.String("output", j.out))
	return sum
}

// detect runs a detection pass only and shapes it as a Result.
func detect(ctx context.Context, e *engine.Engine, dc *docctx.Context) (*engine.Result, error) {
	issues, err := e.DetectIssues(ctx, dc)
	if err != nil {
		return nil, err
	}
	res := &engine.Result{Detected: issues, Remaining: issues}
	if t := dc.Tree(); t != nil {
		res.Before = t.Fingerprint()
		res.After = res.Before
	}
	if issue.HasFatal(issues) {
		return res, fmt.Errorf("%w: %s", engine.ErrFatal, fatalMessages(issues))
	}
	return res, nil
}

func fatalMessages(issues []*issue.Issue) string {
	var msgs []string
	for _, is := range issues {
		if is.Severity == issue.Fatal {
			msgs = append(msgs, is.Message)
		}
	}
	return strings.Join(msgs, "; ")
}

// remediatedPath is the default output next to the input.
func remediatedPath(path string) string {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext) + ".remediated" + ext
}

// render writes summaries in the session format and records the exit code.
func (s *session) render(w io.Writer, summaries []*report.Summary) error {
	for _, sum := range summaries {
		exitCode = max(exitCode, sum.ExitCode())
	}
	switch s.format {
	case "json":
		return report.WriteJSON(w, summaries...)
	case "markdown":
		_, err := io.WriteString(w, report.Markdown(summaries...))
		return err
	case "html":
		return report.WriteHTML(w, summaries...)
	}
	colored := s.color.Enabled(w)
	for i, sum := range summaries {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := report.WriteText(w, sum, colored); err != nil {
			return err
		}
	}
	return nil
}
