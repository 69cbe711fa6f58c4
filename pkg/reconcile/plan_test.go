package reconcile

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maintsync/pkg/table"
)

type mockWriter struct {
	Calls      []string
	FailOnCall int
}

func (m *mockWriter) record(call string) error {
	m.Calls = append(m.Calls, call)
	if m.FailOnCall > 0 && len(m.Calls) == m.FailOnCall {
		return fmt.Errorf("write failed")
	}
	return nil
}

func (m *mockWriter) DeleteRows(ctx context.Context, sheetID int64, start, count int) error {
	return m.record(fmt.Sprintf("delete %d %d+%d", sheetID, start, count))
}

func (m *mockWriter) InsertRow(ctx context.Context, sheetID int64, index int, cells []string) error {
	return m.record(fmt.Sprintf("insert %d %d %s", sheetID, index, strings.Join(cells, "|")))
}

func (m *mockWriter) UpdateValues(ctx context.Context, a1 string, values [][]string) error {
	return m.record(fmt.Sprintf("update %s %v", a1, values))
}

func header() table.Row { return table.HeaderRow(table.BaseHeader...) }

func TestNewPlanOrdering(t *testing.T) {
	ops := []Op{
		{Kind: Delete, Index: 2, Rows: []table.Row{table.FolderRow("a")}},
		{Kind: Insert, Index: 9, NewIndex: 7, Rows: []table.Row{table.FolderRow("b")}},
		{Kind: Delete, Index: 8, Rows: []table.Row{table.FolderRow("c")}},
		{Kind: Insert, Index: 1, NewIndex: 1, Rows: []table.Row{table.FolderRow("d")}},
	}

	plan := NewPlan(ops)
	require.Len(t, plan.Deletes, 2)
	require.Len(t, plan.Inserts, 2)
	assert.Equal(t, 8, plan.Deletes[0].Index)
	assert.Equal(t, 2, plan.Deletes[1].Index)
	assert.Equal(t, 1, plan.Inserts[0].Index)
	assert.Equal(t, 7, plan.Inserts[1].Index)
}

func TestNewPlanFoldsOneSidedReplaces(t *testing.T) {
	a := table.ItemRow("F", "L", "A", "x")
	b := table.ItemRow("F", "L", "B", "x")
	ops := []Op{
		{Kind: Replace, Index: 4, NewIndex: 4, Old: &a},
		{Kind: Replace, Index: 5, NewIndex: 6, New: &b},
	}

	plan := NewPlan(ops)
	assert.Equal(t, []Step{{Index: 4, Rows: []table.Row{a}}}, plan.Deletes)
	assert.Equal(t, []Step{{Index: 6, Rows: []table.Row{b}}}, plan.Inserts)
	assert.Empty(t, plan.Replaces)
	assert.Empty(t, plan.Skipped)
}

func TestApply(t *testing.T) {
	old := table.Table{
		header(),
		table.FolderRow("F1"),
		table.ListRow("F1", "L1"),
		table.ItemRow("F1", "L1", "A", "Active"),
		table.ItemRow("F1", "L1", "B", "Active"),
		table.ListRow("F1", "L2"),
		table.ItemRow("F1", "L2", "X", "Active"),
		table.ItemRow("F1", "L2", "Y", "Active"),
	}
	new := table.Table{
		header(),
		table.FolderRow("F1"),
		table.ListRow("F1", "L1"),
		table.ItemRow("F1", "L1", "B", "Active"),
		table.ItemRow("F1", "L1", "C", "Active"),
		table.ListRow("F1", "L2"),
		table.ItemRow("F1", "L2", "X", "Done"),
		table.ItemRow("F1", "L2", "Y", "Active"),
	}

	w := &mockWriter{}
	plan := NewPlan(Diff(old, new))
	res, err := Apply(context.Background(), w, Target{SheetID: 7, Title: "May 2025"}, plan)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"delete 7 3+1",
		"insert 7 4 F1|L1|C|Active",
		"update 'May 2025'!D7 [[Done]]",
	}, w.Calls)
	assert.Equal(t, Result{Deleted: 1, Inserted: 1, Replaced: 1}, res)
}

func TestApplySkipsRenames(t *testing.T) {
	old := table.Table{header(), table.ItemRow("F", "L", "Site A", "Active")}
	new := table.Table{header(), table.ItemRow("F", "L", "Site B", "Active")}

	w := &mockWriter{}
	plan := NewPlan(Diff(old, new))
	res, err := Apply(context.Background(), w, Target{Title: "x"}, plan)
	require.NoError(t, err)

	assert.Empty(t, w.Calls)
	assert.Len(t, plan.Skipped, 1)
	assert.Equal(t, Result{}, res)
	assert.False(t, plan.Empty())
}

func TestApplyInsertWritesLeadingColumnsOnly(t *testing.T) {
	old := table.Table{table.HeaderRow("Folder", "List", "Task Name", "Status", "Notes")}
	new := table.Table{
		table.HeaderRow("Folder", "List", "Task Name", "Status", "Notes"),
		table.ItemRow("F", "L", "Site", "open", "a note"),
	}

	w := &mockWriter{}
	_, err := Apply(context.Background(), w, Target{SheetID: 1}, NewPlan(Diff(old, new)))
	require.NoError(t, err)
	assert.Equal(t, []string{"insert 1 1 F|L|Site|open"}, w.Calls)
}

func TestApplyStopsAtFirstFailure(t *testing.T) {
	old := table.Table{
		header(),
		table.ItemRow("F", "L", "A", "open"),
		table.ItemRow("F", "L", "X", "open"),
		table.ItemRow("F", "L", "B", "open"),
	}
	new := table.Table{
		header(),
		table.ItemRow("F", "L", "X", "open"),
		table.ItemRow("F", "L", "B", "done"),
	}

	w := &mockWriter{FailOnCall: 2}
	plan := NewPlan(Diff(old, new))
	res, err := Apply(context.Background(), w, Target{SheetID: 1, Title: "x"}, plan)
	require.Error(t, err)
	assert.Len(t, w.Calls, 2)
	assert.Equal(t, Result{Deleted: 1}, res)
}

func TestSummarize(t *testing.T) {
	old := table.Table{
		header(),
		table.ItemRow("F", "L", "Site A", "Active"),
		table.ItemRow("F", "L", "Site B", "Active"),
		table.ItemRow("F", "L", "Site Q", "Active"),
	}
	new := table.Table{
		header(),
		table.ItemRow("F", "L", "Site A", "Done"),
		table.ItemRow("F", "L", "Site C", "Active"),
		table.ItemRow("F", "L", "Site Q", "Active"),
		table.ItemRow("F", "L", "Site Z", "Active"),
	}

	var buf bytes.Buffer
	Summarize(&buf, NewPlan(Diff(old, new)))
	out := buf.String()

	assert.Contains(t, out, "Insert 1 row(s) at 5")
	assert.Contains(t, out, "Replace status in row 2: Active → Done")
	assert.Contains(t, out, "Row 3 differs")
	assert.Contains(t, out, "[-B-]{+C+}")
}

func TestSummarizeWarnsOnPositionalPairing(t *testing.T) {
	old := table.Table{
		header(),
		table.ItemRow("F", "L", "Site A", "todo"),
		table.ItemRow("F", "L", "Site B", "todo"),
	}
	new := table.Table{
		header(),
		table.ItemRow("F", "L", "Site A", "done"),
		table.ItemRow("F", "L", "Site X", "todo"),
		table.ItemRow("F", "L", "Site B", "done"),
	}

	plan := NewPlan(Diff(old, new))
	require.Len(t, plan.Misaligned, 1)
	assert.Equal(t, "Site B", plan.Misaligned[0].Old.ItemName())
	assert.Equal(t, "Site X", plan.Misaligned[0].New.ItemName())

	var buf bytes.Buffer
	Summarize(&buf, plan)
	assert.Contains(t, buf.String(), `! Row 3: "Site B" was paired with "Site X"`)
	assert.Contains(t, buf.String(), "duplicated or missing")
}

func TestPlanStatusOnlyBlockIsNotMisaligned(t *testing.T) {
	old := table.Table{
		header(),
		table.ItemRow("F", "L", "Site A", "todo"),
		table.ItemRow("F", "L", "Site B", "todo"),
	}
	new := table.Table{
		header(),
		table.ItemRow("F", "L", "Site A", "done"),
		table.ItemRow("F", "L", "Site C", "todo"),
	}
	plan := NewPlan(Diff(old, new))
	assert.Len(t, plan.Skipped, 1)
	assert.Empty(t, plan.Misaligned)
}
