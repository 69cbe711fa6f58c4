package maintenance

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"maintsync/pkg/clickup"
	"maintsync/pkg/sheets"
)

type mockTaskStore struct {
	SharedFoldersFunc func(ctx context.Context, teamID string) ([]clickup.Folder, error)
	SpaceFoldersFunc  func(ctx context.Context, spaceID string) ([]clickup.Folder, error)
	ListsFunc         func(ctx context.Context, folderID string) ([]clickup.List, error)
	TasksFunc         func(ctx context.Context, listID string, q clickup.TaskQuery) ([]clickup.Task, error)

	mu         sync.Mutex
	TasksCalls []string
}

func (m *mockTaskStore) SharedFolders(ctx context.Context, teamID string) ([]clickup.Folder, error) {
	return m.SharedFoldersFunc(ctx, teamID)
}
func (m *mockTaskStore) SpaceFolders(ctx context.Context, spaceID string) ([]clickup.Folder, error) {
	return m.SpaceFoldersFunc(ctx, spaceID)
}
func (m *mockTaskStore) Lists(ctx context.Context, folderID string) ([]clickup.List, error) {
	return m.ListsFunc(ctx, folderID)
}
func (m *mockTaskStore) Tasks(ctx context.Context, listID string, q clickup.TaskQuery) ([]clickup.Task, error) {
	m.mu.Lock()
	m.TasksCalls = append(m.TasksCalls, listID)
	m.mu.Unlock()
	return m.TasksFunc(ctx, listID, q)
}

// mockSheet serves one spreadsheet and records every write as a short string.
type mockSheet struct {
	IDs       map[string]int64
	Values    [][]string
	GetErr    error
	UpdateErr error
	Calls     []string
}

func (m *mockSheet) SheetID(ctx context.Context, title string) (int64, bool, error) {
	id, ok := m.IDs[title]
	return id, ok, nil
}
func (m *mockSheet) DuplicateSheet(ctx context.Context, source, title string) (int64, error) {
	if _, ok := m.IDs[source]; !ok {
		return 0, fmt.Errorf("%w: %q", sheets.ErrSheetNotFound, source)
	}
	m.Calls = append(m.Calls, fmt.Sprintf("duplicate %s -> %s", source, title))
	m.IDs[title] = 99
	return 99, nil
}
func (m *mockSheet) GetValues(ctx context.Context, a1 string) ([][]string, error) {
	m.Calls = append(m.Calls, "get "+a1)
	return m.Values, m.GetErr
}
func (m *mockSheet) UpdateValues(ctx context.Context, a1 string, values [][]string) error {
	if m.UpdateErr != nil {
		return m.UpdateErr
	}
	rows := make([]string, len(values))
	for i, r := range values {
		rows[i] = strings.Join(r, "|")
	}
	m.Calls = append(m.Calls, fmt.Sprintf("update %s %s", a1, strings.Join(rows, ";")))
	return nil
}
func (m *mockSheet) InsertRow(ctx context.Context, sheetID int64, index int, cells []string) error {
	m.Calls = append(m.Calls, fmt.Sprintf("insert %d %d %s", sheetID, index, strings.Join(cells, "|")))
	return nil
}
func (m *mockSheet) DeleteRows(ctx context.Context, sheetID int64, start, count int) error {
	m.Calls = append(m.Calls, fmt.Sprintf("delete %d %d+%d", sheetID, start, count))
	return nil
}
func (m *mockSheet) AddStatusRules(ctx context.Context, sheetID int64, column int, rules []sheets.StatusColor) error {
	m.Calls = append(m.Calls, fmt.Sprintf("rules %d col %d x%d", sheetID, column, len(rules)))
	return nil
}
func (m *mockSheet) SetBackground(ctx context.Context, sheetID int64, row, column int, color sheets.Color) error {
	m.Calls = append(m.Calls, fmt.Sprintf("color %d %s%d %v", sheetID, sheets.ColumnLetter(column), row+1, color))
	return nil
}
