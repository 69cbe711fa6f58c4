package reconcile

import (
	"fmt"
	"io"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Summarize prints the plan the way the operator confirms it. Row numbers
// are 1-based like the sheet's.
func Summarize(w io.Writer, plan Plan) {
	for _, d := range plan.Deletes {
		fmt.Fprintf(w, "  → Delete %d row(s) at %d\n", len(d.Rows), d.Index+1)
		for _, r := range d.Rows {
			fmt.Fprintf(w, "      - %s\n", strings.Join(r.Cells, " | "))
		}
	}
	for _, ins := range plan.Inserts {
		fmt.Fprintf(w, "  → Insert %d row(s) at %d\n", len(ins.Rows), ins.Index+1)
		for _, r := range ins.Rows {
			fmt.Fprintf(w, "      + %s\n", strings.Join(r.Cells, " | "))
		}
	}
	for _, op := range plan.Replaces {
		fmt.Fprintf(w, "  → Replace status in row %d: %s → %s\n", op.NewIndex+1, op.Old.Status(), op.New.Status())
	}
	for _, op := range plan.Skipped {
		fmt.Fprintf(w, "  · Row %d differs but is not a status change (left as is): %s\n",
			op.Index+1, inlineDiff(strings.Join(op.Old.Cells, " | "), strings.Join(op.New.Cells, " | ")))
	}
	for _, op := range plan.Misaligned {
		fmt.Fprintf(w, "  ! Row %d: %q was paired with %q while rows were added or removed around it; a site may end up duplicated or missing\n",
			op.Index+1, op.Old.ItemName(), op.New.ItemName())
	}
}

// inlineDiff marks removed text as [-x-] and added text as {+x+}.
func inlineDiff(a, b string) string {
	dmp := diffmatchpatch.New()
	diffs := dmp.DiffCleanupSemantic(dmp.DiffMain(a, b, false))

	var sb strings.Builder
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			sb.WriteString("[-" + d.Text + "-]")
		case diffmatchpatch.DiffInsert:
			sb.WriteString("{+" + d.Text + "+}")
		default:
			sb.WriteString(d.Text)
		}
	}
	return sb.String()
}
