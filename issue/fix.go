package issue

import "github.com/wudi/tagremedy/docctx"

// Priority bands. Lower values are applied first.
const (
	PriorityDocument  = 10
	PriorityWrapper   = 20
	PriorityPartition = 30
	PriorityFlatten   = 40
	PriorityStructure = 50
	PriorityArtifact  = 60
	PriorityLink      = 70
	PriorityText      = 80
)

// Fix is an executable remediation. Apply must be idempotent: applying a fix
// whose target is already in the desired state succeeds without change.
type Fix interface {
	Priority() int
	Apply(ctx *docctx.Context) error
	// Describe is the completion message recorded on the resolved issue.
	Describe() string
	// Group is the label reports aggregate completed fixes under.
	Group() string
	// Invalidates reports whether applying this fix makes other stale.
	Invalidates(other Fix) bool
}

// Counter is implemented by batch fixes that resolve several items at once.
type Counter interface {
	ResolvedCount() int
}

// ResolvedCount returns how many items f resolves.
func ResolvedCount(f Fix) int {
	if c, ok := f.(Counter); ok {
		return c.ResolvedCount()
	}
	return 1
}

// BaseFix carries priority and group label, and invalidates nothing.
type BaseFix struct {
	Prio  int
	Label string
}

func (b BaseFix) Priority() int        { return b.Prio }
func (b BaseFix) Group() string        { return b.Label }
func (b BaseFix) Invalidates(Fix) bool { return false }
