// Package maintenance keeps the monthly maintenance sheet in step with the
// sites tracked in ClickUp.
package maintenance

import (
	"context"
	"time"

	"gitlab.com/tozd/go/errors"

	"maintsync/pkg/clickup"
	"maintsync/pkg/reconcile"
	"maintsync/pkg/sheets"
)

var (
	ErrNoMonthSheet   = errors.Base("no sheet for the current month")
	ErrEmptySheet     = errors.Base("sheet is empty")
	ErrColumnNotFound = errors.Base("column not found")
	ErrSiteNotFound   = errors.Base("site not found in sheet")
	ErrNoScope        = errors.Base("neither a team nor a space is configured")
)

// Written in place of an empty field value.
const incomplete = "Incomplete"

// Overridden in tests.
var nowFunc = time.Now

type TaskStore interface {
	SharedFolders(ctx context.Context, teamID string) ([]clickup.Folder, error)
	SpaceFolders(ctx context.Context, spaceID string) ([]clickup.Folder, error)
	Lists(ctx context.Context, folderID string) ([]clickup.List, error)
	Tasks(ctx context.Context, listID string, q clickup.TaskQuery) ([]clickup.Task, error)
}

type Sheet interface {
	reconcile.Writer
	SheetID(ctx context.Context, title string) (int64, bool, error)
	DuplicateSheet(ctx context.Context, source, title string) (int64, error)
	GetValues(ctx context.Context, a1 string) ([][]string, error)
	AddStatusRules(ctx context.Context, sheetID int64, column int, rules []sheets.StatusColor) error
	SetBackground(ctx context.Context, sheetID int64, row, column int, color sheets.Color) error
}

// Scope selects where folders come from: the folders shared with the user in
// a team, or every folder of a space. TeamID wins when both are set.
type Scope struct {
	TeamID  string
	SpaceID string
}

type FetchOptions struct {
	Scope Scope
	Query clickup.TaskQuery
	// Custom fields copied into attribute columns, in column order.
	Columns []string
	// Lists fetched at once; below 1 means one at a time.
	Limit int
}

// Outcome describes what a sync run did.
type Outcome struct {
	Title   string
	Created bool
	Plan    reconcile.Plan
	Applied bool
	Result  reconcile.Result
}
