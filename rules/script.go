package rules

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/wudi/tagremedy/config"
	"github.com/wudi/tagremedy/docctx"
	"github.com/wudi/tagremedy/engine"
	"github.com/wudi/tagremedy/issue"
	"github.com/wudi/tagremedy/scripting"
)

const defaultScriptTimeout = time.Second

// ScriptCheck runs a user-supplied JavaScript rule against a read-only view
// of the document. A falsy completion value, or any string, fails the rule.
type ScriptCheck struct {
	rule     config.ScriptRule
	severity issue.Severity
	timeout  time.Duration
}

// Scripts builds one check per configured script rule.
func Scripts(rules []config.ScriptRule) ([]engine.Check, error) {
	out := make([]engine.Check, 0, len(rules))
	for _, r := range rules {
		sev := issue.Error
		if r.Severity != "" {
			var err error
			if sev, err = issue.ParseSeverity(r.Severity); err != nil {
				return nil, fmt.Errorf("script %s: %w", r.Name, err)
			}
		}
		timeout := defaultScriptTimeout
		if r.TimeoutMS > 0 {
			timeout = time.Duration(r.TimeoutMS) * time.Millisecond
		}
		out = append(out, &ScriptCheck{rule: r, severity: sev, timeout: timeout})
	}
	return out, nil
}

func (s *ScriptCheck) Name() string { return "script:" + s.rule.Name }

func (s *ScriptCheck) Check(ctx *docctx.Context) []*issue.Issue {
	js := scripting.NewEngine()
	if err := js.RegisterDOM(scripting.NewDocumentView(ctx, s.Name())); err != nil {
		return []*issue.Issue{s.failure(err)}
	}
	runCtx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	val, err := js.Execute(runCtx, s.rule.Source)
	if err != nil {
		return []*issue.Issue{s.failure(err)}
	}
	msg, failed := verdict(val)
	if !failed {
		return nil
	}
	if msg == "" {
		msg = s.rule.Message
	}
	if msg == "" {
		msg = fmt.Sprintf("script rule %s failed", s.rule.Name)
	}
	return []*issue.Issue{issue.New(issue.TypeScript, s.severity, issue.Nowhere, "%s", msg)}
}

func (s *ScriptCheck) failure(err error) *issue.Issue {
	return issue.New(issue.TypeScript, issue.Error, issue.Nowhere, "script rule %s could not run: %v", s.rule.Name, err)
}

// verdict interprets the completion value of a rule script.
func verdict(val interface{}) (msg string, failed bool) {
	switch v := val.(type) {
	case nil:
		return "", true
	case bool:
		return "", !v
	case string:
		return v, true
	case int64:
		return "", v == 0
	case float64:
		return "", v == 0 || math.IsNaN(v)
	}
	return "", false
}
