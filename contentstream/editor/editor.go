// Package editor rewrites marked-content sequences inside page content
// streams.
package editor

import (
	"github.com/wudi/tagremedy/contentstream"
)

// MarkArtifacts rewrites every BDC sequence whose MCID is in mcids into an
// /Artifact BMC sequence. The painted operators are untouched. It returns
// the rewritten operations and the number of sequences changed.
func MarkArtifacts(ops []contentstream.Operation, mcids map[int]bool) ([]contentstream.Operation, int) {
	if len(mcids) == 0 {
		return ops, 0
	}
	out := make([]contentstream.Operation, len(ops))
	copy(out, ops)
	changed := 0
	for i, op := range out {
		mcid, ok := contentstream.MCIDOf(op)
		if !ok || !mcids[mcid] {
			continue
		}
		out[i] = contentstream.Operation{
			Operator: "BMC",
			Operands: []contentstream.Operand{contentstream.NameOperand{Value: "Artifact"}},
		}
		changed++
	}
	return out, changed
}

// UsedMCIDs collects the MCIDs still present in ops.
func UsedMCIDs(ops []contentstream.Operation) map[int]bool {
	used := make(map[int]bool)
	for _, op := range ops {
		if mcid, ok := contentstream.MCIDOf(op); ok {
			used[mcid] = true
		}
	}
	return used
}
