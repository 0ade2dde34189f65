package report

import (
	"encoding/json"
	"io"
)

// Output is the root of JSON output.
type Output struct {
	Documents []*Summary `json:"documents"`
	ExitCode  int        `json:"exit_code"`
}

// WriteJSON encodes summaries as indented JSON. The exit code is the worst
// of the documents.
func WriteJSON(w io.Writer, summaries ...*Summary) error {
	out := Output{Documents: summaries}
	if out.Documents == nil {
		out.Documents = []*Summary{}
	}
	for _, s := range summaries {
		out.ExitCode = max(out.ExitCode, s.ExitCode())
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
