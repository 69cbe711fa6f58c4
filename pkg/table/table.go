package table

import (
	"strconv"
	"strings"
)

// Kind tells what a row groups in the sheet.
type Kind int

const (
	KindHeader Kind = iota
	KindFolder
	KindList
	KindItem
)

func (k Kind) String() string {
	switch k {
	case KindHeader:
		return "header"
	case KindFolder:
		return "folder"
	case KindList:
		return "list"
	case KindItem:
		return "item"
	}
	return "unknown"
}

const (
	ColFolder = 0
	ColList   = 1
	ColItem   = 2
	ColStatus = 3
)

// BaseHeader is the column set every maintenance sheet starts with.
var BaseHeader = []string{"Folder", "List", "Task Name", "Status"}

type Row struct {
	Kind  Kind
	Cells []string
}

func HeaderRow(columns ...string) Row {
	return Row{Kind: KindHeader, Cells: append([]string(nil), columns...)}
}

func FolderRow(folder string) Row {
	return Row{Kind: KindFolder, Cells: []string{folder}}
}

func ListRow(folder, list string) Row {
	return Row{Kind: KindList, Cells: []string{folder, list}}
}

func ItemRow(folder, list, item, status string, attrs ...string) Row {
	cells := make([]string, 0, 4+len(attrs))
	cells = append(cells, folder, list, item, status)
	cells = append(cells, attrs...)
	return Row{Kind: KindItem, Cells: cells}
}

// Cell returns the i-th cell, or "" when the row is shorter.
func (r Row) Cell(i int) string {
	if i < 0 || i >= len(r.Cells) {
		return ""
	}
	return r.Cells[i]
}

func (r Row) ItemName() string { return r.Cell(ColItem) }

func (r Row) Status() string { return r.Cell(ColStatus) }

// Key encodes the cells into a single comparable string.
func (r Row) Key() string {
	var b strings.Builder
	for i, c := range r.Cells {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.Quote(c))
	}
	return b.String()
}

// Pad returns a copy of the row with at least width cells.
func (r Row) Pad(width int) Row {
	cells := make([]string, max(width, len(r.Cells)))
	copy(cells, r.Cells)
	return Row{Kind: r.Kind, Cells: cells}
}

func (r Row) String() string {
	return r.Kind.String() + "[" + strings.Join(r.Cells, " | ") + "]"
}

type Table []Row

// Width is the header width, or the widest row when there is no header.
func (t Table) Width() int {
	if len(t) > 0 && t[0].Kind == KindHeader {
		return len(t[0].Cells)
	}
	w := 0
	for _, r := range t {
		w = max(w, len(r.Cells))
	}
	return w
}

func (t Table) Pad(width int) Table {
	out := make(Table, len(t))
	for i, r := range t {
		out[i] = r.Pad(width)
	}
	return out
}

func (t Table) Values() [][]string {
	out := make([][]string, len(t))
	for i, r := range t {
		out[i] = append([]string(nil), r.Cells...)
	}
	return out
}

// Items counts item rows.
func (t Table) Items() int {
	n := 0
	for _, r := range t {
		if r.Kind == KindItem {
			n++
		}
	}
	return n
}

// FromValues parses a sheet snapshot. The first row is the header; the kind
// of every other row is resolved here once from its grouping cells.
func FromValues(values [][]string) Table {
	t := make(Table, 0, len(values))
	for i, cells := range values {
		r := Row{Cells: append([]string(nil), cells...)}
		switch {
		case i == 0:
			r.Kind = KindHeader
		case strings.TrimSpace(r.Cell(ColItem)) != "":
			r.Kind = KindItem
		case strings.TrimSpace(r.Cell(ColList)) != "":
			r.Kind = KindList
		default:
			r.Kind = KindFolder
		}
		t = append(t, r)
	}
	return t
}
