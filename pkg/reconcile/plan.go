package reconcile

import (
	"context"
	"sort"

	log "github.com/sirupsen/logrus"
	"gitlab.com/tozd/go/errors"

	"maintsync/pkg/sheets"
	"maintsync/pkg/table"
)

// insertColumns is how many leading cells an inserted row gets written with.
// Attribute columns stay blank until a full rewrite or a per-cell update.
const insertColumns = 4

type Writer interface {
	DeleteRows(ctx context.Context, sheetID int64, start, count int) error
	InsertRow(ctx context.Context, sheetID int64, index int, cells []string) error
	UpdateValues(ctx context.Context, a1 string, values [][]string) error
}

type Target struct {
	SheetID int64
	Title   string
}

// Step is a contiguous block of rows deleted or inserted at Index. Delete
// steps are addressed in the previous table, insert steps in the new one.
type Step struct {
	Index int
	Rows  []table.Row
}

type Plan struct {
	Deletes  []Step
	Inserts  []Step
	Replaces []Op
	Skipped  []Op
	// Misaligned are skipped replaces from a block that also adds or removes
	// rows. Rows there are paired by position, so applying can leave a site
	// twice in the sheet while another goes missing.
	Misaligned []Op
}

func (p Plan) Empty() bool {
	return len(p.Deletes) == 0 && len(p.Inserts) == 0 && len(p.Replaces) == 0 && len(p.Skipped) == 0
}

// NewPlan orders the edits for application: deletes by descending position so
// earlier deletes don't shift later ones, inserts by ascending position, then
// replaces, which by then address a table of stable length.
func NewPlan(ops []Op) Plan {
	var p Plan
	for _, op := range ops {
		switch {
		case op.Kind == Delete:
			p.Deletes = append(p.Deletes, Step{Index: op.Index, Rows: op.Rows})
		case op.Kind == Insert:
			p.Inserts = append(p.Inserts, Step{Index: op.NewIndex, Rows: op.Rows})
		case op.New == nil:
			p.Deletes = append(p.Deletes, Step{Index: op.Index, Rows: []table.Row{*op.Old}})
		case op.Old == nil:
			p.Inserts = append(p.Inserts, Step{Index: op.NewIndex, Rows: []table.Row{*op.New}})
		case op.Applicable():
			p.Replaces = append(p.Replaces, op)
		default:
			p.Skipped = append(p.Skipped, op)
		}
	}
	p.Misaligned = misaligned(ops)
	sort.SliceStable(p.Deletes, func(i, j int) bool { return p.Deletes[i].Index > p.Deletes[j].Index })
	sort.SliceStable(p.Inserts, func(i, j int) bool { return p.Inserts[i].Index < p.Inserts[j].Index })
	return p
}

// misaligned walks the replace blocks of ops. Replaces of one block are
// consecutive and advance both indexes by one.
func misaligned(ops []Op) []Op {
	var out []Op
	for start := 0; start < len(ops); {
		end := start + 1
		if ops[start].Kind == Replace {
			for end < len(ops) && ops[end].Kind == Replace &&
				ops[end].Index == ops[end-1].Index+1 && ops[end].NewIndex == ops[end-1].NewIndex+1 {
				end++
			}
			block := ops[start:end]
			oneSided := false
			for _, op := range block {
				oneSided = oneSided || op.Old == nil || op.New == nil
			}
			for _, op := range block {
				if oneSided && op.Old != nil && op.New != nil && !op.Applicable() {
					out = append(out, op)
				}
			}
		}
		start = end
	}
	return out
}

type Result struct {
	Deleted  int
	Inserted int
	Replaced int
}

// Apply writes the plan to the sheet. Every step is its own remote write; a
// failure leaves the earlier steps committed and is returned with the counts
// reached so far.
func Apply(ctx context.Context, w Writer, target Target, plan Plan) (Result, error) {
	var res Result

	for _, d := range plan.Deletes {
		if err := w.DeleteRows(ctx, target.SheetID, d.Index, len(d.Rows)); err != nil {
			return res, errors.Errorf("deleting %d row(s) at %d: %w", len(d.Rows), d.Index+1, err)
		}
		res.Deleted += len(d.Rows)
		log.Infof("Deleted %d row(s) at %d", len(d.Rows), d.Index+1)
	}

	for _, ins := range plan.Inserts {
		for i, r := range ins.Rows {
			cells := r.Cells
			if len(cells) > insertColumns {
				cells = cells[:insertColumns]
			}
			if err := w.InsertRow(ctx, target.SheetID, ins.Index+i, cells); err != nil {
				return res, errors.Errorf("inserting row at %d: %w", ins.Index+i+1, err)
			}
			res.Inserted++
		}
		log.Infof("Inserted %d row(s) at %d", len(ins.Rows), ins.Index+1)
	}

	for _, op := range plan.Replaces {
		cell := sheets.CellA1(target.Title, op.NewIndex, table.ColStatus)
		if err := w.UpdateValues(ctx, cell, [][]string{{op.New.Status()}}); err != nil {
			return res, errors.Errorf("updating status in row %d: %w", op.NewIndex+1, err)
		}
		res.Replaced++
		log.Infof("Updated status for %q in row %d", op.New.ItemName(), op.NewIndex+1)
	}

	return res, nil
}

// Preview applies every op to a copy of old in the same order Apply uses,
// with replaces overwriting the whole row.
func Preview(old table.Table, ops []Op) table.Table {
	plan := NewPlan(ops)
	out := append(table.Table(nil), old...)

	for _, d := range plan.Deletes {
		out = append(out[:d.Index], out[d.Index+len(d.Rows):]...)
	}
	for _, ins := range plan.Inserts {
		tail := append(table.Table(nil), out[ins.Index:]...)
		out = append(append(out[:ins.Index], ins.Rows...), tail...)
	}
	for _, op := range append(plan.Replaces, plan.Skipped...) {
		out[op.NewIndex] = *op.New
	}
	return out
}
