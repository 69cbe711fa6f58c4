package menu

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gitlab.com/tozd/go/errors"

	"maintsync/pkg/clickup"
	"maintsync/pkg/evaluate"
	"maintsync/pkg/maintenance"
	"maintsync/pkg/plugins"
)

const pluginsField = "number of plugins updated"

// Tracker is the part of ClickUp the shell reads and edits.
type Tracker interface {
	maintenance.TaskStore
	User(ctx context.Context) (clickup.User, error)
	Task(ctx context.Context, taskID string) (clickup.Task, error)
	SetCustomField(ctx context.Context, taskID, fieldID string, value interface{}) error
	SetStatus(ctx context.Context, taskID, status string) error
}

type Shell struct {
	Tracker  Tracker
	Syncer   *maintenance.Syncer
	Eval     *evaluate.Evaluator
	Scope    maintenance.Scope
	Query    clickup.TaskQuery
	Statuses []string

	p    *Prompter
	out  io.Writer
	sync maintenance.Syncer
}

// Run shows the main menu until the operator quits or input ends.
func (s *Shell) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	s.p = NewPrompter(in, out)
	s.out = out
	s.sync = *s.Syncer
	s.sync.Confirm = s.p.Confirm
	s.sync.Out = out

	actions := []struct {
		name string
		run  func(context.Context) error
	}{
		{"Sync sheet with ClickUp", s.syncSheet},
		{"Browse sites", s.browse},
		{"Create this month's sheet", s.createSheet},
		{"Plugin update report", func(ctx context.Context) error { _, err := s.pluginReport(); return err }},
		{"Check connections", s.checkConnections},
	}
	names := make([]string, len(actions))
	for i, a := range actions {
		names[i] = a.name
	}

	for {
		i, err := s.p.Choose("MAIN MENU", names)
		if err == nil {
			err = actions[i].run(ctx)
		}
		switch {
		case err == nil, errors.Is(err, ErrBack):
		case errors.Is(err, ErrQuit), errors.Is(err, io.EOF):
			fmt.Fprintln(out, "Exiting.")
			return nil
		case ctx.Err() != nil:
			return ctx.Err()
		default:
			s.failed(err)
		}
	}
}

func (s *Shell) failed(err error) {
	log.Debugf("menu action failed: %+v", err)
	var apiErr *clickup.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		bad.Fprintln(s.out, "Not found.")
		return
	}
	bad.Fprintf(s.out, "Failed: %v\n", err)
}

func (s *Shell) syncSheet(ctx context.Context) error {
	_, err := s.sync.Run(ctx)
	return err
}

func (s *Shell) createSheet(ctx context.Context) error {
	_, _, err := s.sync.CreateMonthSheet(ctx)
	return err
}

func (s *Shell) checkConnections(ctx context.Context) error {
	u, err := s.Tracker.User(ctx)
	if err != nil {
		bad.Fprintf(s.out, "ClickUp: %v\n", err)
	} else {
		good.Fprintf(s.out, "ClickUp: connected as %s\n", u.Username)
	}

	_, ok, err := s.sync.Sheet.SheetID(ctx, s.sync.Template)
	switch {
	case err != nil:
		bad.Fprintf(s.out, "Google Sheets: %v\n", err)
	case !ok:
		warn.Fprintf(s.out, "Google Sheets: connected, template %q not found\n", s.sync.Template)
	default:
		good.Fprintf(s.out, "Google Sheets: connected, template %q found\n", s.sync.Template)
	}
	return nil
}

func (s *Shell) browse(ctx context.Context) error {
	folders, err := maintenance.Folders(ctx, s.Tracker, s.Scope)
	if err != nil {
		return err
	}
	names := make([]string, len(folders))
	for i, f := range folders {
		names[i] = f.Name
	}
	for {
		i, err := s.p.Choose("FOLDERS", names)
		if err != nil {
			return err
		}
		if err := s.browseFolder(ctx, folders[i]); err != nil && !errors.Is(err, ErrBack) {
			return err
		}
	}
}

func (s *Shell) browseFolder(ctx context.Context, f clickup.Folder) error {
	lists := f.Lists
	if len(lists) == 0 {
		var err error
		if lists, err = s.Tracker.Lists(ctx, f.ID); err != nil {
			return err
		}
	}
	names := make([]string, len(lists))
	for i, l := range lists {
		names[i] = l.Name
	}
	for {
		i, err := s.p.Choose("LISTS in "+f.Name, names)
		if err != nil {
			return err
		}
		if err := s.browseList(ctx, lists[i]); err != nil && !errors.Is(err, ErrBack) {
			return err
		}
	}
}

func (s *Shell) browseList(ctx context.Context, l clickup.List) error {
	tasks, err := s.Tracker.Tasks(ctx, l.ID, s.Query)
	if err != nil {
		return err
	}
	sort.SliceStable(tasks, func(i, j int) bool {
		return strings.ToLower(tasks[i].Name) < strings.ToLower(tasks[j].Name)
	})
	names := make([]string, len(tasks))
	for i, t := range tasks {
		names[i] = t.Name + " (" + t.Status.Status + ")"
	}
	for {
		i, err := s.p.Choose("SITES in "+l.Name, names)
		if err != nil {
			return err
		}
		if err := s.taskMenu(ctx, tasks[i].ID); err != nil && !errors.Is(err, ErrBack) {
			return err
		}
	}
}

func (s *Shell) taskMenu(ctx context.Context, id string) error {
	for {
		t, err := s.Tracker.Task(ctx, id)
		if err != nil {
			return err
		}
		task := evaluate.Bind(t)
		statuses := s.Eval.EvaluateAll(ctx, task)

		heading.Fprintf(s.out, "\n%s (%s)\n", task.Name, task.Status.Status)
		for i, b := range task.Bindings {
			fmt.Fprintf(s.out, "%d. %s: %s\n", i+1, b.Field.Name, render(statuses[i]))
		}
		faint.Fprintln(s.out, "Number to edit a field, 's' status, 'p' push a field to the sheet, 'u' plugin report, 'r' refresh, '.' back, 'exit' quit.")

		in, err := s.p.Line("Choice: ")
		if err != nil {
			return err
		}
		switch {
		case in == ".":
			return ErrBack
		case isQuit(in):
			return ErrQuit
		case in == "r" || in == "":
			continue
		case in == "s":
			err = s.changeStatus(ctx, task)
		case in == "p":
			err = s.pushField(ctx, task, statuses)
		case in == "u":
			err = s.updatePlugins(ctx, task)
		default:
			n, convErr := strconv.Atoi(in)
			if convErr != nil || n < 1 || n > len(task.Bindings) {
				bad.Fprintln(s.out, "Invalid option, please try again.")
				continue
			}
			err = s.editField(ctx, task, task.Bindings[n-1])
		}
		switch {
		case err == nil, errors.Is(err, ErrBack):
		case errors.Is(err, ErrQuit), errors.Is(err, io.EOF), ctx.Err() != nil:
			return err
		default:
			s.failed(err)
		}
	}
}

func render(st evaluate.Status) string {
	switch st.State {
	case evaluate.Updated:
		return good.Sprint(st)
	case evaluate.Outdated:
		return warn.Sprint(st)
	case evaluate.Failed:
		return bad.Sprint(st)
	case evaluate.Empty, evaluate.Unknown:
		return faint.Sprint(st)
	default:
		return st.String()
	}
}

func (s *Shell) editField(ctx context.Context, task evaluate.Task, b evaluate.Binding) error {
	name := b.Field.Name
	var input string
	switch {
	case b.Kind == evaluate.BrokenLinks || b.Field.Type == "attachment":
		warn.Fprintf(s.out, "%s holds uploaded files; upload them in ClickUp.\n", name)
		return nil
	case b.Kind == evaluate.DomainExpiration:
		website := task.Website
		if website == "" {
			website = "no website URL set"
		}
		in, err := s.p.Line(fmt.Sprintf("New expiration date (YYYY-MM-DD), or Enter to look it up (%s): ", website))
		if err != nil {
			return err
		}
		input = in
		if input == "" {
			expiry, err := s.Eval.WhoisExpiry(ctx, task.Website)
			if err != nil {
				bad.Fprintf(s.out, "WHOIS lookup failed: %v\n", err)
				return nil
			}
			input = expiry.UTC().Format(time.DateOnly)
			fmt.Fprintf(s.out, "WHOIS expiration for %s: %s\n", task.Website, input)
		}
	default:
		in, err := s.p.Line(fmt.Sprintf("New value for %s: ", name))
		if err != nil {
			return err
		}
		input = in
	}

	if input == "" {
		faint.Fprintf(s.out, "Skipping update for %s.\n", name)
		return nil
	}
	value, err := clickup.FieldValue(b.Field.Type, input, s.Eval.Location)
	if err != nil {
		bad.Fprintln(s.out, err.Error())
		return nil
	}
	if err := s.Tracker.SetCustomField(ctx, task.ID, b.Field.ID, value); err != nil {
		return errors.Errorf("updating %s: %w", name, err)
	}
	good.Fprintf(s.out, "%s updated.\n", name)
	return nil
}

func (s *Shell) changeStatus(ctx context.Context, task evaluate.Task) error {
	i, err := s.p.Choose("New status for "+task.Name, s.Statuses)
	if err != nil {
		return err
	}
	if err := s.Tracker.SetStatus(ctx, task.ID, s.Statuses[i]); err != nil {
		return errors.Errorf("changing status: %w", err)
	}
	good.Fprintf(s.out, "Status of %s set to %s.\n", task.Name, s.Statuses[i])
	return nil
}

// sheetValue is what a field contributes to its sheet column.
func sheetValue(st evaluate.Status) string {
	switch st.State {
	case evaluate.Value:
		return st.Detail
	case evaluate.Updated:
		return "Done"
	case evaluate.Empty:
		return ""
	default:
		return st.String()
	}
}

func (s *Shell) pushField(ctx context.Context, task evaluate.Task, statuses []evaluate.Status) error {
	names := make([]string, len(task.Bindings))
	for i, b := range task.Bindings {
		names[i] = b.Field.Name
	}
	i, err := s.p.Choose("Push which field to the sheet?", names)
	if err != nil {
		return err
	}
	if err := s.sync.UpdateSiteField(ctx, task.Name, names[i], sheetValue(statuses[i])); err != nil {
		return err
	}
	good.Fprintf(s.out, "Sheet updated: %s / %s.\n", task.Name, names[i])
	return nil
}

func (s *Shell) pluginReport() (*plugins.Report, error) {
	text, err := s.p.Paste("Paste the plugin list, then a line with a single '.':")
	if err != nil {
		return nil, err
	}
	names := plugins.Parse(text)
	if len(names) == 0 {
		warn.Fprintln(s.out, "No plugins found. Lines must look like 'Select Plugin Name'.")
		return nil, nil
	}

	r := plugins.NewReport(names)
	heading.Fprintln(s.out, "\nPlugins found:")
	for i, n := range names {
		fmt.Fprintf(s.out, "%d. %s\n", i+1, n)
	}
	for {
		prompt := "\nNumbers to toggle as FAILED (empty line to finish): "
		if failed := r.FailedNumbers(); len(failed) > 0 {
			prompt = fmt.Sprintf("\nNumbers to toggle as FAILED, now %s (empty line to finish): ", joinInts(failed))
		}
		nums, err := s.p.Numbers(prompt)
		if errors.Is(err, io.EOF) || (err == nil && len(nums) == 0) {
			break
		}
		if err != nil {
			return nil, err
		}
		r.Toggle(nums...)
		r.RenderNumbered(s.out)
	}
	fmt.Fprintln(s.out)
	r.Render(s.out)
	return r, nil
}

// updatePlugins runs the report and stores the updated count on the task.
func (s *Shell) updatePlugins(ctx context.Context, task evaluate.Task) error {
	r, err := s.pluginReport()
	if err != nil || r == nil {
		return err
	}
	f, ok := task.Field(pluginsField)
	if !ok {
		return nil
	}
	count := strconv.Itoa(r.UpdatedCount())
	yes, err := s.p.Confirm(fmt.Sprintf("Set %s to %s?", f.Name, count))
	if err != nil || !yes {
		return err
	}
	value, err := clickup.FieldValue(f.Type, count, s.Eval.Location)
	if err != nil {
		return err
	}
	if err := s.Tracker.SetCustomField(ctx, task.ID, f.ID, value); err != nil {
		return errors.Errorf("updating %s: %w", f.Name, err)
	}
	good.Fprintf(s.out, "%s updated.\n", f.Name)
	return nil
}

func joinInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
