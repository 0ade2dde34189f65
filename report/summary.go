// Package report turns the outcome of a remediation run into summaries for
// people and machines.
package report

import (
	"sort"
	"strings"

	"github.com/wudi/tagremedy/compliance"
	"github.com/wudi/tagremedy/compliance/pdfua"
	"github.com/wudi/tagremedy/engine"
	"github.com/wudi/tagremedy/issue"
)

// Group aggregates the fixes sharing a group label.
type Group struct {
	Label    string `json:"label"`
	Items    int    `json:"items"`
	priority int
}

// Finding is the serializable view of an issue.
type Finding struct {
	Type     issue.Type `json:"type"`
	Severity string     `json:"severity"`
	Rule     string     `json:"rule,omitempty"`
	Location string     `json:"location"`
	Page     int        `json:"page,omitempty"`
	Message  string     `json:"message"`
	Status   string     `json:"status"`
	Note     string     `json:"note,omitempty"`
}

// NewFinding converts is.
func NewFinding(is *issue.Issue) Finding {
	return Finding{
		Type:     is.Type,
		Severity: is.Severity.String(),
		Rule:     is.Rule,
		Location: is.Location.String(),
		Page:     is.Location.Page,
		Message:  is.Message,
		Status:   is.Status().String(),
		Note:     is.Note(),
	}
}

// Summary is the report of one document.
type Summary struct {
	File        string `json:"file"`
	Changed     bool   `json:"changed"`
	Fingerprint string `json:"fingerprint,omitempty"`
	Passes      int    `json:"passes"`
	Detected    int    `json:"detected"`
	// Resolved counts repaired items; a batch fix counts each item it
	// repaired.
	Resolved   int            `json:"resolved"`
	Superseded int            `json:"superseded"`
	Failed     int            `json:"failed"`
	Remaining  int            `json:"remaining"`
	Severities map[string]int `json:"severities"`
	Groups     []Group        `json:"groups"`
	Open       []Finding      `json:"open"`
	Failures   []Finding      `json:"failures"`
	Fatal      string         `json:"fatal,omitempty"`

	Conformance *compliance.Report `json:"conformance"`
}

// Summarize aggregates res for file. fatal is the error returned by Run, if
// any.
func Summarize(file string, res *engine.Result, fatal error) *Summary {
	s := &Summary{File: file, Severities: make(map[string]int)}
	if fatal != nil {
		s.Fatal = fatal.Error()
	}
	if res == nil {
		s.Conformance = pdfua.Assess(nil)
		return s
	}
	s.Changed = res.Changed()
	s.Fingerprint = res.After.String()
	s.Passes = len(res.Passes)
	s.Detected = len(res.Detected)

	groups := make(map[string]*Group)
	for _, is := range res.Resolved {
		if strings.HasPrefix(is.Note(), engine.SupersededNote) {
			s.Superseded++
			continue
		}
		n := issue.ResolvedCount(is.Fix)
		s.Resolved += n
		label := is.Fix.Group()
		g, ok := groups[label]
		if !ok {
			g = &Group{Label: label, priority: is.Fix.Priority()}
			groups[label] = g
		}
		g.Items += n
	}
	for _, g := range groups {
		s.Groups = append(s.Groups, *g)
	}
	sort.Slice(s.Groups, func(i, j int) bool {
		if s.Groups[i].priority != s.Groups[j].priority {
			return s.Groups[i].priority < s.Groups[j].priority
		}
		return s.Groups[i].Label < s.Groups[j].Label
	})

	open := append([]*issue.Issue(nil), res.Remaining...)
	sortIssues(open)
	for _, is := range open {
		s.Open = append(s.Open, NewFinding(is))
		s.Severities[is.Severity.String()]++
	}
	s.Remaining = len(open)
	for _, is := range res.Failed {
		s.Failures = append(s.Failures, NewFinding(is))
	}
	s.Failed = len(res.Failed)
	s.Conformance = pdfua.Assess(res.Remaining)
	return s
}

// sortIssues orders by descending severity, then page, then node.
func sortIssues(list []*issue.Issue) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i], list[j]
		if a.Severity != b.Severity {
			return a.Severity > b.Severity
		}
		if a.Location.Page != b.Location.Page {
			return a.Location.Page < b.Location.Page
		}
		return a.Location.Node < b.Location.Node
	})
}

// ExitCode maps a summary to a process exit status: 0 when nothing at ERROR
// or above remains, 1 when errors remain, 2 on a fatal stop.
func (s *Summary) ExitCode() int {
	switch {
	case s.Fatal != "":
		return 2
	case s.Severities[issue.Error.String()] > 0 || s.Severities[issue.Fatal.String()] > 0 || s.Failed > 0:
		return 1
	}
	return 0
}
