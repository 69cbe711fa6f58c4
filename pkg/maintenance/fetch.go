package maintenance

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/sync/errgroup"

	"maintsync/pkg/clickup"
	"maintsync/pkg/table"
)

// FetchFolders loads the folder → list → task tree the sheet is built from.
// Task lists are fetched concurrently, at most opts.Limit at a time, and the
// result keeps the order ClickUp returned folders and lists in. Any failure
// fails the whole fetch.
func FetchFolders(ctx context.Context, store TaskStore, opts FetchOptions) ([]table.Folder, error) {
	folders, err := Folders(ctx, store, opts.Scope)
	if err != nil {
		return nil, err
	}

	for i := range folders {
		if len(folders[i].Lists) > 0 {
			continue
		}
		lists, err := store.Lists(ctx, folders[i].ID)
		if err != nil {
			return nil, errors.Errorf("fetching lists of folder %q: %w", folders[i].Name, err)
		}
		folders[i].Lists = lists
	}

	out := make([]table.Folder, len(folders))
	for i, f := range folders {
		out[i] = table.Folder{Name: f.Name, Lists: make([]table.List, len(f.Lists))}
		for j, l := range f.Lists {
			out[i].Lists[j].Name = l.Name
		}
	}

	limit := opts.Limit
	if limit < 1 {
		limit = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, f := range folders {
		for j, l := range f.Lists {
			i, j, f, l := i, j, f, l
			g.Go(func() error {
				tasks, err := store.Tasks(gctx, l.ID, opts.Query)
				if err != nil {
					return errors.Errorf("fetching tasks of %s / %s: %w", f.Name, l.Name, err)
				}
				log.Debugf("fetched %d task(s) from %s / %s", len(tasks), f.Name, l.Name)
				out[i].Lists[j].Tasks = rowTasks(tasks, opts.Columns)
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Folders lists the folders of scope.
func Folders(ctx context.Context, store TaskStore, scope Scope) ([]clickup.Folder, error) {
	switch {
	case scope.TeamID != "":
		folders, err := store.SharedFolders(ctx, scope.TeamID)
		if err != nil {
			return nil, errors.Errorf("fetching shared folders of team %s: %w", scope.TeamID, err)
		}
		return folders, nil
	case scope.SpaceID != "":
		folders, err := store.SpaceFolders(ctx, scope.SpaceID)
		if err != nil {
			return nil, errors.Errorf("fetching folders of space %s: %w", scope.SpaceID, err)
		}
		return folders, nil
	default:
		return nil, errors.WithStack(ErrNoScope)
	}
}

func rowTasks(tasks []clickup.Task, columns []string) []table.Task {
	out := make([]table.Task, 0, len(tasks))
	for _, t := range tasks {
		rt := table.Task{Name: strings.TrimSpace(t.Name), Status: t.Status.Status}
		if len(columns) > 0 {
			rt.Attributes = make(map[string]string, len(columns))
			for _, col := range columns {
				if f, ok := t.Field(col); ok {
					rt.Attributes[col] = f.Text()
				}
			}
		}
		out = append(out, rt)
	}
	return out
}
