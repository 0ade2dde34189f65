// Package engine runs checks and visitors over a document and applies the
// fixes they propose.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/wudi/tagremedy/docctx"
	"github.com/wudi/tagremedy/issue"
	"github.com/wudi/tagremedy/observability"
	"github.com/wudi/tagremedy/tagtree"
	"github.com/wudi/tagremedy/walker"
)

// ErrFatal is returned by Run when detection reports a FATAL issue.
var ErrFatal = errors.New("engine: fatal issue, remediation stopped")

// Check is a stateless document-level rule.
type Check interface {
	Name() string
	Check(ctx *docctx.Context) []*issue.Issue
}

// CheckFunc adapts a function to Check.
type CheckFunc struct {
	ID string
	Fn func(ctx *docctx.Context) []*issue.Issue
}

func (c CheckFunc) Name() string                             { return c.ID }
func (c CheckFunc) Check(ctx *docctx.Context) []*issue.Issue { return c.Fn(ctx) }

// VisitorFactory builds a fresh visitor for each traversal.
type VisitorFactory func() walker.Visitor

const DefaultMaxPasses = 2

// SupersededNote prefixes the note of an issue whose fix was skipped because
// an applied fix invalidated it.
const SupersededNote = "skipped: superseded by "

type Engine struct {
	checks    []Check
	factories []VisitorFactory
	log       observability.Logger
	tracer    observability.Tracer
	maxPasses int
}

type Option func(*Engine)

func WithLogger(l observability.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithTracer(t observability.Tracer) Option {
	return func(e *Engine) {
		if t != nil {
			e.tracer = t
		}
	}
}

// WithMaxPasses bounds the apply/re-detect cycles of Run.
func WithMaxPasses(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxPasses = n
		}
	}
}

// New validates the visitor prerequisite order before anything runs.
func New(checks []Check, factories []VisitorFactory, opts ...Option) (*Engine, error) {
	e := &Engine{
		checks:    checks,
		factories: factories,
		log:       observability.NopLogger{},
		tracer:    observability.NopTracer(),
		maxPasses: DefaultMaxPasses,
	}
	for _, opt := range opts {
		opt(e)
	}
	if err := walker.ValidateOrder(e.visitors()); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Engine) visitors() []walker.Visitor {
	out := make([]walker.Visitor, len(e.factories))
	for i, f := range e.factories {
		out[i] = f()
	}
	return out
}

// Rules lists the names of registered checks and visitors in run order.
func (e *Engine) Rules() []string {
	var names []string
	for _, c := range e.checks {
		names = append(names, c.Name())
	}
	for _, v := range e.visitors() {
		names = append(names, v.Name())
	}
	return names
}

// DetectIssues runs every check and one traversal with fresh visitors. A
// panicking rule is reported as an ERROR issue instead of aborting detection.
func (e *Engine) DetectIssues(ctx context.Context, dc *docctx.Context) ([]*issue.Issue, error) {
	_, span := e.tracer.StartSpan(ctx, observability.SpanDetect)
	defer span.Finish()

	if t := dc.Tree(); t != nil {
		t.ClearMarkers()
	}
	var out []*issue.Issue
	for _, c := range e.checks {
		out = append(out, e.runCheck(c, dc)...)
	}
	w, err := walker.New(e.visitors()...)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	out = append(out, e.walk(w, dc)...)
	span.SetTag(observability.TagIssueCount, len(out))
	e.log.Debug("detection finished", observability.Int("issues", len(out)))
	return out, nil
}

func (e *Engine) runCheck(c Check, dc *docctx.Context) (found []*issue.Issue) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("check panicked", observability.String("check", c.Name()), observability.String("panic", fmt.Sprint(r)))
			found = []*issue.Issue{ruleFailure(c.Name(), r)}
		}
	}()
	found = c.Check(dc)
	for _, is := range found {
		if is.Rule == "" {
			is.Rule = c.Name()
		}
	}
	return found
}

// walk runs w. The walker isolates panicking visitors itself; the recover
// here only covers the traversal machinery.
func (e *Engine) walk(w *walker.Walker, dc *docctx.Context) (found []*issue.Issue) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("walker panicked", observability.String("panic", fmt.Sprint(r)))
			found = []*issue.Issue{ruleFailure("walker", r)}
		}
	}()
	found = w.Walk(dc)
	for _, is := range found {
		if is.Type == issue.TypeRuleFailure {
			e.log.Error("visitor panicked", observability.String("rule", is.Rule), observability.String("message", is.Message))
		}
	}
	return found
}

func ruleFailure(rule string, r any) *issue.Issue {
	is := issue.New(issue.TypeRuleFailure, issue.Error, issue.Nowhere, "rule %s failed: %v", rule, r)
	is.Rule = rule
	return is
}

// ApplyFixes applies the fixes of open issues in ascending priority, keeping
// discovery order for equal priorities. A fix invalidated by an already
// applied one is skipped and its issue resolved with a note. A failing fix
// marks its issue failed and does not stop the others. It returns the
// resolved issues.
func (e *Engine) ApplyFixes(ctx context.Context, dc *docctx.Context, issues []*issue.Issue) []*issue.Issue {
	_, span := e.tracer.StartSpan(ctx, observability.SpanApply)
	defer span.Finish()

	var candidates []*issue.Issue
	for _, is := range issues {
		if is.Fix != nil && is.Status() == issue.Open {
			candidates = append(candidates, is)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Fix.Priority() < candidates[j].Fix.Priority()
	})

	var applied []issue.Fix
	var resolved []*issue.Issue
	for _, is := range candidates {
		if by := supersededBy(applied, is.Fix); by != nil {
			is.MarkResolved(SupersededNote + by.Describe())
			resolved = append(resolved, is)
			continue
		}
		if err := apply(is.Fix, dc); err != nil {
			is.MarkFailed(err.Error())
			e.log.Warn("fix failed",
				observability.String("type", string(is.Type)),
				observability.String("location", is.Location.String()),
				observability.Error("error", err))
			continue
		}
		applied = append(applied, is.Fix)
		is.MarkResolved(is.Fix.Describe())
		resolved = append(resolved, is)
	}
	span.SetTag(observability.TagFixCount, len(applied))
	e.log.Debug("fixes applied", observability.Int("applied", len(applied)), observability.Int("candidates", len(candidates)))
	return resolved
}

func supersededBy(applied []issue.Fix, f issue.Fix) issue.Fix {
	for _, a := range applied {
		if a.Invalidates(f) {
			return a
		}
	}
	return nil
}

func apply(f issue.Fix, dc *docctx.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("fix panicked: %v", r)
		}
	}()
	return f.Apply(dc)
}

// Pass summarizes one apply cycle of Run.
type Pass struct {
	Number   int
	Detected int
	Resolved int
	Failed   int
}

// Result is the outcome of Run.
type Result struct {
	// Detected are the issues of the first detection.
	Detected []*issue.Issue
	Resolved []*issue.Issue
	Failed   []*issue.Issue
	// Remaining are open issues after the last pass.
	Remaining []*issue.Issue
	Passes    []Pass
	Before    tagtree.Fingerprint
	After     tagtree.Fingerprint
}

// Changed reports whether the tree differs from its initial state.
func (r *Result) Changed() bool { return r.Before != r.After }

// Run detects, stops on FATAL, then alternates fix application and
// re-detection until a pass resolves nothing or the pass limit is reached.
func (e *Engine) Run(ctx context.Context, dc *docctx.Context) (*Result, error) {
	ctx, span := e.tracer.StartSpan(ctx, observability.SpanRun)
	defer span.Finish()

	res := &Result{}
	if t := dc.Tree(); t != nil {
		res.Before = t.Fingerprint()
		res.After = res.Before
	}
	current, err := e.DetectIssues(ctx, dc)
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	res.Detected = current
	if issue.HasFatal(current) {
		err := fatalError(current)
		span.SetError(err)
		res.Remaining = open(current)
		return res, err
	}

	for pass := 1; ; pass++ {
		resolved := e.ApplyFixes(ctx, dc, current)
		p := Pass{Number: pass, Detected: len(current), Resolved: len(resolved)}
		for _, is := range current {
			if is.Status() == issue.Failed {
				res.Failed = append(res.Failed, is)
				p.Failed++
			}
		}
		res.Resolved = append(res.Resolved, resolved...)
		res.Passes = append(res.Passes, p)
		e.log.Info("pass finished",
			observability.Int("pass", pass),
			observability.Int("detected", p.Detected),
			observability.Int("resolved", p.Resolved),
			observability.Int("failed", p.Failed))

		if len(resolved) == 0 {
			break
		}
		current, err = e.DetectIssues(ctx, dc)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		if issue.HasFatal(current) {
			err := fatalError(current)
			span.SetError(err)
			res.Remaining = open(current)
			if t := dc.Tree(); t != nil {
				res.After = t.Fingerprint()
			}
			return res, err
		}
		if pass >= e.maxPasses || !fixable(current) {
			break
		}
	}
	res.Remaining = open(current)
	if t := dc.Tree(); t != nil {
		res.After = t.Fingerprint()
	}
	span.SetTag(observability.TagPass, len(res.Passes))
	return res, nil
}

func fatalError(issues []*issue.Issue) error {
	var msgs []string
	for _, is := range issues {
		if is.Severity == issue.Fatal {
			msgs = append(msgs, is.Message)
		}
	}
	return fmt.Errorf("%w: %s", ErrFatal, strings.Join(msgs, "; "))
}

func open(issues []*issue.Issue) []*issue.Issue {
	var out []*issue.Issue
	for _, is := range issues {
		if is.Status() == issue.Open {
			out = append(out, is)
		}
	}
	return out
}

func fixable(issues []*issue.Issue) bool {
	for _, is := range issues {
		if is.Fix != nil && is.Status() == issue.Open {
			return true
		}
	}
	return false
}
