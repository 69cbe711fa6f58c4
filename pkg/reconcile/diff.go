// Package reconcile computes and applies the row edits that turn the sheet's
// previous snapshot into a freshly formatted table.
package reconcile

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"maintsync/pkg/table"
)

type OpKind int

const (
	Insert OpKind = iota
	Delete
	Replace
)

func (k OpKind) String() string {
	switch k {
	case Insert:
		return "insert"
	case Delete:
		return "delete"
	case Replace:
		return "replace"
	}
	return "unknown"
}

// Op is one edit. Index is a position in the previous table; NewIndex is
// the aligned position in the new table.
//
// For Insert, Rows are the rows to add. For Delete, Rows are the previous
// rows removed. For Replace, Old or New is nil when the replaced block is
// longer on the other side: a nil Old behaves as an insert and a nil New
// as a delete.
type Op struct {
	Kind     OpKind
	Index    int
	NewIndex int
	Rows     []table.Row
	Old      *table.Row
	New      *table.Row
}

// Applicable reports whether a replace is a real status change on the same
// item, as opposed to a shift or rename artifact.
func (o Op) Applicable() bool {
	if o.Kind != Replace || o.Old == nil || o.New == nil {
		return false
	}
	return o.Old.ItemName() == o.New.ItemName() && o.Old.Status() != o.New.Status()
}

func (o Op) String() string {
	switch o.Kind {
	case Replace:
		return fmt.Sprintf("replace(%d, %v, %v)", o.Index, o.Old, o.New)
	default:
		return fmt.Sprintf("%s(%d, %d rows)", o.Kind, o.Index, len(o.Rows))
	}
}

// Diff aligns the two tables row by row and returns the edits in opcode
// order. Both tables are padded to the new header width first.
func Diff(old, new table.Table) []Op {
	width := new.Width()
	if width == 0 {
		width = old.Width()
	}
	old = old.Pad(width)
	new = new.Pad(width)

	m := difflib.NewMatcherWithJunk(keys(old), keys(new), false, nil)

	var ops []Op
	for _, c := range m.GetOpCodes() {
		switch c.Tag {
		case 'i':
			ops = append(ops, Op{Kind: Insert, Index: c.I1, NewIndex: c.J1, Rows: new[c.J1:c.J2]})
		case 'd':
			ops = append(ops, Op{Kind: Delete, Index: c.I1, NewIndex: c.J1, Rows: old[c.I1:c.I2]})
		case 'r':
			n := max(c.I2-c.I1, c.J2-c.J1)
			for k := 0; k < n; k++ {
				op := Op{Kind: Replace, Index: c.I1 + k, NewIndex: c.J1 + k}
				if c.I1+k < c.I2 {
					r := old[c.I1+k]
					op.Old = &r
				}
				if c.J1+k < c.J2 {
					r := new[c.J1+k]
					op.New = &r
				}
				ops = append(ops, op)
			}
		}
	}
	return ops
}

func keys(t table.Table) []string {
	out := make([]string, len(t))
	for i, r := range t {
		out[i] = r.Key()
	}
	return out
}
