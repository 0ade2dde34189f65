package report

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// ColorMode selects whether text output is colorized.
type ColorMode string

const (
	ColorAuto ColorMode = "auto"
	ColorOn   ColorMode = "on"
	ColorOff  ColorMode = "off"
)

// ParseColorMode accepts auto, on and off.
func ParseColorMode(s string) (ColorMode, error) {
	switch m := ColorMode(s); m {
	case ColorAuto, ColorOn, ColorOff:
		return m, nil
	}
	return ColorAuto, fmt.Errorf("report: unknown color mode %q (auto|on|off)", s)
}

// Enabled resolves the mode for w. Auto colors terminals only.
func (m ColorMode) Enabled(w io.Writer) bool {
	switch m {
	case ColorOn:
		return true
	case ColorOff:
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

type palette struct {
	fatal, err, warn, ok, dim, bold *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		fatal: color.New(color.FgRed, color.Bold, color.ReverseVideo),
		err:   color.New(color.FgRed, color.Bold),
		warn:  color.New(color.FgYellow),
		ok:    color.New(color.FgGreen),
		dim:   color.New(color.Faint),
		bold:  color.New(color.Bold),
	}
	for _, c := range []*color.Color{p.fatal, p.err, p.warn, p.ok, p.dim, p.bold} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) severity(sev string) *color.Color {
	switch sev {
	case "FATAL":
		return p.fatal
	case "ERROR":
		return p.err
	default:
		return p.warn
	}
}

const (
	labelWidth    = 32
	severityWidth = 8
	typeWidth     = 20
	locationWidth = 24
)

// WriteText prints s as aligned, optionally colored text.
func WriteText(w io.Writer, s *Summary, colored bool) error {
	p := newPalette(colored)
	ew := &errWriter{w: w}

	state := p.dim.Sprint("unchanged")
	if s.Changed {
		state = p.ok.Sprint("changed")
	}
	ew.printf("%s  %s", p.bold.Sprint(s.File), state)
	if s.Fingerprint != "" {
		ew.printf("  %s", p.dim.Sprint(s.Fingerprint))
	}
	ew.printf("\n  detected %d  resolved %d  failed %d  remaining %d  passes %d\n",
		s.Detected, s.Resolved, s.Failed, s.Remaining, s.Passes)
	if s.Fatal != "" {
		ew.printf("  %s %s\n", p.fatal.Sprint("FATAL"), s.Fatal)
	}

	if len(s.Groups) > 0 {
		ew.printf("\n%s\n", p.bold.Sprint("Fixed"))
		for _, g := range s.Groups {
			ew.printf("  %s %s\n", runewidth.FillRight(runewidth.Truncate(g.Label, labelWidth, "..."), labelWidth), p.ok.Sprint(g.Items))
		}
		if s.Superseded > 0 {
			ew.printf("  %s %d\n", runewidth.FillRight("Superseded by other fixes", labelWidth), s.Superseded)
		}
	}
	writeFindings(ew, p, "Failed", s.Failures, true)
	writeFindings(ew, p, "Remaining", s.Open, false)

	if c := s.Conformance; c != nil {
		verdict := p.ok.Sprint("conforms")
		if !c.Compliant {
			verdict = p.err.Sprintf("%d violation(s)", len(c.Violations))
		}
		ew.printf("\n%s %s", p.bold.Sprint(c.Standard), verdict)
		if codes := c.Codes(); len(codes) > 0 {
			ew.printf("  %s", p.dim.Sprint(codes))
		}
		ew.printf("\n")
	}
	return ew.err
}

func writeFindings(ew *errWriter, p palette, title string, list []Finding, withNote bool) {
	if len(list) == 0 {
		return
	}
	ew.printf("\n%s\n", p.bold.Sprint(title))
	for _, f := range list {
		sev := p.severity(f.Severity).Sprint(runewidth.FillRight(f.Severity, severityWidth))
		ew.printf("  %s %s %s %s\n", sev,
			runewidth.FillRight(string(f.Type), typeWidth),
			runewidth.FillRight(runewidth.Truncate(f.Location, locationWidth, "..."), locationWidth),
			f.Message)
		if withNote && f.Note != "" {
			ew.printf("  %s %s\n", runewidth.FillRight("", severityWidth), p.dim.Sprint(f.Note))
		}
	}
}

// errWriter keeps the first write error so printing code stays linear.
type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
