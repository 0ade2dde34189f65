package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wudi/tagremedy/docctx"
	"github.com/wudi/tagremedy/engine"
	"github.com/wudi/tagremedy/pdfio"
	"github.com/wudi/tagremedy/report"
	"github.com/wudi/tagremedy/tagtree"
)

var treeCmd = &cobra.Command{
	Use:   "tree [flags] <file.pdf>",
	Short: "Render the tag tree as an HTML outline",
	Long: `Render the tag tree as nested HTML lists with page numbers, attributes and
text snippets. Elements holding defects are marked with the class "warning"
or "error" on their nearest container.`,
	Args: cobra.ExactArgs(1),
	RunE: runTree,
}

func init() {
	treeCmd.Flags().StringP("output", "o", "", "output file (default stdout)")
	treeCmd.Flags().Bool("fixed", false, "render the tree after remediation")
}

func runTree(cmd *cobra.Command, args []string) error {
	s, err := newSession(cmd)
	if err != nil {
		return err
	}
	out, err := cmd.Flags().GetString("output")
	if err != nil {
		return fmt.Errorf("failed to get output flag: %w", err)
	}
	fixed, err := cmd.Flags().GetBool("fixed")
	if err != nil {
		return fmt.Errorf("failed to get fixed flag: %w", err)
	}

	f, err := pdfio.Open(args[0], pdfio.WithLogger(s.log))
	if err != nil {
		return err
	}
	doc := f.Document()
	if doc.Tree == nil {
		return fmt.Errorf("%s has no tag tree", args[0])
	}
	e, err := s.engine(s.log)
	if err != nil {
		return err
	}
	dc := docctx.New(doc, f, docctx.WithLogger(s.log))
	// Detection escalates markers; a fixed run leaves the markers of the
	// re-detection pass.
	if fixed {
		if _, err := e.Run(cmd.Context(), dc); err != nil && !errors.Is(err, engine.ErrFatal) {
			return err
		}
	} else if _, err := e.DetectIssues(cmd.Context(), dc); err != nil {
		return err
	}

	var w io.Writer = cmd.OutOrStdout()
	if out != "" {
		fh, err := os.Create(out)
		if err != nil {
			return err
		}
		defer fh.Close()
		w = fh
	}
	return report.Outline(w, doc.Tree, func(id tagtree.NodeID) string {
		return dc.Text(id, tagtree.NoPage)
	})
}
