// Package plugins turns a pasted plugin-update listing into the Updated /
// Failed report sent to clients.
package plugins

import (
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
)

var selectLine = regexp.MustCompile(`Select\s+([^\t\n]+?)(?:\s{2,}|\t|$)`)

// Parse extracts plugin names from "Select <Plugin>" entries.
func Parse(text string) []string {
	var names []string
	for _, line := range strings.Split(text, "\n") {
		for _, m := range selectLine.FindAllStringSubmatch(strings.TrimRight(line, "\r"), -1) {
			if name := strings.TrimSpace(m[1]); name != "" {
				names = append(names, name)
			}
		}
	}
	return names
}

type Report struct {
	Names  []string
	failed map[int]bool
}

func NewReport(names []string) *Report {
	return &Report{Names: names, failed: map[int]bool{}}
}

// Toggle flips the 1-based entries between updated and failed. Numbers out
// of range are ignored.
func (r *Report) Toggle(numbers ...int) {
	for _, n := range numbers {
		if n < 1 || n > len(r.Names) {
			continue
		}
		if r.failed[n] {
			delete(r.failed, n)
		} else {
			r.failed[n] = true
		}
	}
}

// Entry is a plugin with its 1-based number in the pasted list.
type Entry struct {
	Number int
	Name   string
}

func (r *Report) Updated() []Entry { return r.entries(false) }

func (r *Report) Failed() []Entry { return r.entries(true) }

func (r *Report) entries(failed bool) []Entry {
	var out []Entry
	for i, name := range r.Names {
		if r.failed[i+1] == failed {
			out = append(out, Entry{Number: i + 1, Name: name})
		}
	}
	return out
}

func (r *Report) UpdatedCount() int { return len(r.Names) - len(r.failed) }

// FailedNumbers lists the failed entries in ascending order.
func (r *Report) FailedNumbers() []int {
	out := make([]int, 0, len(r.failed))
	for n := range r.failed {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

// RenderNumbered prints both groups with their original numbers, for the
// operator to pick toggles from.
func (r *Report) RenderNumbered(w io.Writer) {
	fmt.Fprintln(w, "Updated plugins:")
	for _, e := range r.Updated() {
		fmt.Fprintf(w, "%d. %s\n", e.Number, e.Name)
	}
	fmt.Fprintln(w, "\nFailed updates:")
	for _, e := range r.Failed() {
		fmt.Fprintf(w, "%d. %s\n", e.Number, e.Name)
	}
}

// Render prints the final bullet lists. Failed is left out when empty.
func (r *Report) Render(w io.Writer) {
	fmt.Fprintln(w, "Updated:")
	for _, e := range r.Updated() {
		fmt.Fprintf(w, "- %s\n", e.Name)
	}
	failed := r.Failed()
	if len(failed) == 0 {
		return
	}
	fmt.Fprintln(w, "\nFailed:")
	for _, e := range failed {
		fmt.Fprintf(w, "- %s\n", e.Name)
	}
}
