package maintenance

import (
	"context"
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	"gitlab.com/tozd/go/errors"

	"maintsync/pkg/reconcile"
	"maintsync/pkg/sheets"
	"maintsync/pkg/table"
)

// Confirm asks the operator a yes/no question.
type Confirm func(question string) (bool, error)

type Syncer struct {
	Sheet    Sheet
	Store    TaskStore
	Fetch    FetchOptions
	Template string
	Statuses []sheets.StatusColor
	Confirm  Confirm
	Out      io.Writer
}

// Run rebuilds the table from ClickUp and reconciles the current month's sheet
// with it. A missing month sheet is cloned from the template and written in
// full. Otherwise the edits are summarized and only applied once confirmed.
func (s *Syncer) Run(ctx context.Context) (Outcome, error) {
	out := Outcome{Title: sheets.MonthTitle(nowFunc())}

	folders, err := FetchFolders(ctx, s.Store, s.Fetch)
	if err != nil {
		return out, err
	}
	next := table.Format(folders, s.Fetch.Columns)
	log.Debugf("built %d row(s), %d site(s)", len(next), next.Items())

	id, ok, err := s.Sheet.SheetID(ctx, out.Title)
	if err != nil {
		return out, errors.Errorf("looking up sheet %q: %w", out.Title, err)
	}
	if !ok {
		return s.create(ctx, out, next)
	}

	values, err := s.Sheet.GetValues(ctx, sheets.RangeA1(out.Title, next.Width(), sheets.MaxRows))
	if err != nil {
		return out, errors.Errorf("reading sheet %q: %w", out.Title, err)
	}
	prev := table.FromValues(values)

	ops := reconcile.Diff(prev, next)
	if len(ops) == 0 {
		s.printf("Sheet %q is up to date.\n", out.Title)
		return out, nil
	}
	out.Plan = reconcile.NewPlan(ops)

	s.printf("Sheet %q has changed:\n", out.Title)
	reconcile.Summarize(s.out(), out.Plan)
	if len(out.Plan.Deletes) == 0 && len(out.Plan.Inserts) == 0 && len(out.Plan.Replaces) == 0 {
		s.printf("Nothing to apply.\n")
		return out, nil
	}

	question := "Apply these changes?"
	if next.Items() == 0 {
		s.printf("WARNING: ClickUp returned no sites. Applying removes every site row from %q.\n", out.Title)
		question = "Apply anyway and empty the sheet?"
	}
	confirmed, err := s.confirm(question)
	if err != nil {
		return out, err
	}
	if !confirmed {
		s.printf("No changes applied.\n")
		return out, nil
	}

	out.Result, err = reconcile.Apply(ctx, s.Sheet, reconcile.Target{SheetID: id, Title: out.Title}, out.Plan)
	if err != nil {
		return out, err
	}
	out.Applied = true
	s.printf("Applied: %d deleted, %d inserted, %d status update(s).\n",
		out.Result.Deleted, out.Result.Inserted, out.Result.Replaced)

	if err := s.colorStatuses(ctx, id); err != nil {
		return out, err
	}
	return out, nil
}

func (s *Syncer) create(ctx context.Context, out Outcome, next table.Table) (Outcome, error) {
	log.Infof("Sheet %q does not exist, cloning %q", out.Title, s.Template)
	id, err := s.Sheet.DuplicateSheet(ctx, s.Template, out.Title)
	if err != nil {
		return out, errors.Errorf("creating sheet %q: %w", out.Title, err)
	}
	out.Created = true

	if err := s.Sheet.UpdateValues(ctx, sheets.RangeA1(out.Title, next.Width(), len(next)), next.Values()); err != nil {
		return out, errors.Errorf("populating sheet %q: %w", out.Title, err)
	}
	out.Applied = true
	out.Result.Inserted = next.Items()
	s.printf("Created sheet %q with %d site(s).\n", out.Title, next.Items())

	if err := s.colorStatuses(ctx, id); err != nil {
		return out, err
	}
	return out, nil
}

// CreateMonthSheet clones the template for the current month unless the
// sheet already exists.
func (s *Syncer) CreateMonthSheet(ctx context.Context) (string, bool, error) {
	title := sheets.MonthTitle(nowFunc())
	_, ok, err := s.Sheet.SheetID(ctx, title)
	if err != nil {
		return title, false, errors.Errorf("looking up sheet %q: %w", title, err)
	}
	if ok {
		s.printf("Sheet already exists: %s\n", title)
		return title, false, nil
	}
	if _, err := s.Sheet.DuplicateSheet(ctx, s.Template, title); err != nil {
		return title, false, errors.Errorf("creating sheet %q: %w", title, err)
	}
	s.printf("Cloned sheet with title: %s\n", title)
	return title, true, nil
}

func (s *Syncer) colorStatuses(ctx context.Context, id int64) error {
	if len(s.Statuses) == 0 {
		return nil
	}
	if err := s.Sheet.AddStatusRules(ctx, id, table.ColStatus, s.Statuses); err != nil {
		return errors.Errorf("applying status colors: %w", err)
	}
	return nil
}

func (s *Syncer) confirm(question string) (bool, error) {
	if s.Confirm == nil {
		return false, nil
	}
	return s.Confirm(question)
}

func (s *Syncer) out() io.Writer {
	if s.Out == nil {
		return io.Discard
	}
	return s.Out
}

func (s *Syncer) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.out(), format, args...)
}
