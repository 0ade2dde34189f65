// Package rules holds the checks and visitors the engine runs, and the
// explicit default registration list.
package rules

import (
	"github.com/wudi/tagremedy/config"
	"github.com/wudi/tagremedy/engine"
	"github.com/wudi/tagremedy/issue"
	"github.com/wudi/tagremedy/tagtree"
	"github.com/wudi/tagremedy/walker"
)

// Rule names, as used in configuration and reports.
const (
	NameTagTree            = "tag-tree"
	NameMarked             = "marked"
	NameLanguage           = "language"
	NameTitle              = "title"
	NameTabOrder           = "tab-order"
	NameDocumentWrapper    = "document-wrapper"
	NamePagePartition      = "page-partition"
	NameNeedlessNesting    = "needless-nesting"
	NameListItems          = "list-items"
	NameBulletLists        = "bullet-lists"
	NameEmptyElements      = "empty-elements"
	NameMistaggedArtifacts = "mistagged-artifacts"
	NameDecorativeImages   = "decorative-images"
	NameMissingAlt         = "missing-alt"
	NameUnmarkedLinks      = "unmarked-links"
	NameBrokenLigatures    = "broken-ligatures"
)

// Default returns the checks and visitor factories enabled by cfg, in run
// order. Visitors appear after their prerequisites.
func Default(cfg *config.Config) ([]engine.Check, []engine.VisitorFactory, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	var checks []engine.Check
	for _, c := range []engine.Check{
		TagTree(),
		Marked(),
		Language(cfg.DefaultLang),
		Title(),
		TabOrder(),
	} {
		if cfg.Enabled(c.Name()) {
			checks = append(checks, c)
		}
	}
	scripts, err := Scripts(cfg.Scripts)
	if err != nil {
		return nil, nil, err
	}
	for _, c := range scripts {
		if cfg.Enabled(c.Name()) {
			checks = append(checks, c)
		}
	}

	artifacts, err := NewArtifactMatcher(cfg.Artifacts.Patterns)
	if err != nil {
		return nil, nil, err
	}
	decor := DecorativeLimits{MaxWidth: cfg.Decorative.MaxWidth, MaxHeight: cfg.Decorative.MaxHeight}
	lists := cfg.Lists
	all := []struct {
		name string
		make engine.VisitorFactory
	}{
		{NameDocumentWrapper, func() walker.Visitor { return NewDocumentWrapper() }},
		{NamePagePartition, func() walker.Visitor { return NewPagePartition() }},
		{NameNeedlessNesting, func() walker.Visitor { return NewNeedlessNesting() }},
		{NameListItems, func() walker.Visitor { return NewListItems() }},
		{NameBulletLists, func() walker.Visitor { return NewBulletLists(lists) }},
		{NameEmptyElements, func() walker.Visitor { return NewEmptyElements() }},
		{NameMistaggedArtifacts, func() walker.Visitor { return NewMistaggedArtifacts(artifacts) }},
		{NameDecorativeImages, func() walker.Visitor { return NewDecorativeImages(decor) }},
		{NameMissingAlt, func() walker.Visitor { return NewMissingAlt(decor) }},
		{NameUnmarkedLinks, func() walker.Visitor { return NewUnmarkedLinks() }},
		{NameBrokenLigatures, func() walker.Visitor { return NewBrokenLigatures() }},
	}
	var factories []engine.VisitorFactory
	for _, v := range all {
		if cfg.Enabled(v.name) {
			factories = append(factories, v.make)
		}
	}
	return checks, factories, nil
}

var (
	_ walker.BeforeTraversal = (*UnmarkedLinks)(nil)
	_ walker.AfterTraversal  = (*UnmarkedLinks)(nil)
	_ walker.AfterTraversal  = (*NeedlessNesting)(nil)
)

// base carries the bookkeeping shared by every visitor.
type base struct {
	name    string
	desc    string
	prereqs []string
	issues  []*issue.Issue
}

func (b *base) Name() string               { return b.name }
func (b *base) Description() string        { return b.desc }
func (b *base) Prerequisites() []string    { return b.prereqs }
func (b *base) LeaveElement(*walker.Visit) {}
func (b *base) Issues() []*issue.Issue     { return b.issues }
func (b *base) report(is *issue.Issue)     { b.issues = append(b.issues, is) }

// flag reports is and escalates a marker from its node to the nearest
// container.
func (b *base) flag(t *tagtree.Tree, is *issue.Issue) {
	b.report(is)
	if is.Location.Node == tagtree.NoNode {
		return
	}
	m := tagtree.MarkerWarning
	if is.Severity >= issue.Error {
		m = tagtree.MarkerError
	}
	t.Escalate(is.Location.Node, m)
}

func hasAltText(n *tagtree.Node) bool { return n.Alt != "" || n.ActualText != "" }
