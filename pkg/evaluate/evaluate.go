// Package evaluate turns ClickUp custom field values into a maintenance status
// an operator can act on.
package evaluate

import (
	"context"
	"strings"
	"time"

	"maintsync/pkg/clickup"
)

type FieldKind int

const (
	Text FieldKind = iota
	Date
	BrokenLinks
	Version
	DomainExpiration
)

func (k FieldKind) String() string {
	switch k {
	case Date:
		return "date"
	case BrokenLinks:
		return "broken links"
	case Version:
		return "version"
	case DomainExpiration:
		return "domain expiration"
	default:
		return "text"
	}
}

// Field names that get a dedicated evaluator. Matched case-insensitively.
var namedKinds = map[string]FieldKind{
	"broken links report": BrokenLinks,
	"wordpress version":   Version,
	"domain expiration":   DomainExpiration,
}

const WebsiteField = "website url"

func KindOf(f clickup.CustomField) FieldKind {
	if k, ok := namedKinds[strings.ToLower(strings.TrimSpace(f.Name))]; ok {
		return k
	}
	if f.Type == "date" {
		return Date
	}
	return Text
}

type Binding struct {
	Field clickup.CustomField
	Kind  FieldKind
}

// Task is a ClickUp task with every custom field bound to its kind.
type Task struct {
	clickup.Task
	Website  string
	Bindings []Binding
}

func Bind(t clickup.Task) Task {
	b := Task{Task: t, Bindings: make([]Binding, 0, len(t.CustomFields))}
	for _, f := range t.CustomFields {
		b.Bindings = append(b.Bindings, Binding{Field: f, Kind: KindOf(f)})
	}
	if f, ok := t.Field(WebsiteField); ok {
		b.Website = strings.TrimSpace(f.Text())
	}
	return b
}

type State int

const (
	Value State = iota
	Updated
	Outdated
	Empty
	Unknown
	Failed
)

func (s State) String() string {
	switch s {
	case Updated:
		return "updated"
	case Outdated:
		return "outdated"
	case Empty:
		return "empty"
	case Unknown:
		return "unknown"
	case Failed:
		return "failed"
	default:
		return "value"
	}
}

type Status struct {
	State  State
	Detail string
}

func (s Status) String() string {
	switch {
	case s.State == Value:
		return s.Detail
	case s.Detail == "":
		return s.State.String()
	default:
		return s.State.String() + " (" + s.Detail + ")"
	}
}

type VersionSource interface {
	Latest(ctx context.Context) (string, error)
}

type WhoisLookup interface {
	Expiration(ctx context.Context, domain string) (time.Time, error)
}

type evalFunc func(e *Evaluator, ctx context.Context, b Binding, website string) Status

var evaluators = map[FieldKind]evalFunc{
	Text:             (*Evaluator).text,
	Date:             (*Evaluator).date,
	BrokenLinks:      (*Evaluator).brokenLinks,
	Version:          (*Evaluator).version,
	DomainExpiration: (*Evaluator).domainExpiration,
}

type Evaluator struct {
	versions VersionSource
	whois    WhoisLookup
	// Location dates are entered and displayed in.
	Location *time.Location
	now      func() time.Time
}

func New(versions VersionSource, whois WhoisLookup) *Evaluator {
	return &Evaluator{
		versions: versions,
		whois:    whois,
		Location: time.Local,
		now:      time.Now,
	}
}

// Evaluate never fails; problems are reported through the Status.
func (e *Evaluator) Evaluate(ctx context.Context, b Binding, website string) Status {
	fn, ok := evaluators[b.Kind]
	if !ok {
		fn = (*Evaluator).text
	}
	return fn(e, ctx, b, website)
}

// EvaluateAll evaluates every binding of t in field order.
func (e *Evaluator) EvaluateAll(ctx context.Context, t Task) []Status {
	out := make([]Status, len(t.Bindings))
	for i, b := range t.Bindings {
		out[i] = e.Evaluate(ctx, b, t.Website)
	}
	return out
}

func (e *Evaluator) text(_ context.Context, b Binding, _ string) Status {
	if !b.Field.IsSet() {
		return Status{State: Empty}
	}
	return Status{State: Value, Detail: b.Field.Text()}
}

func (e *Evaluator) date(_ context.Context, b Binding, _ string) Status {
	d, ok := b.Field.Time()
	if !ok {
		return Status{State: Empty}
	}
	return Status{State: Value, Detail: d.In(e.Location).Format(time.DateOnly)}
}
