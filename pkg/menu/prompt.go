// Package menu is the operator's text interface: numbered menus read from a
// terminal, with "." to go back and "exit" or "q" to quit.
package menu

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"gitlab.com/tozd/go/errors"
)

var (
	ErrBack = errors.Base("back")
	ErrQuit = errors.Base("quit")
)

var (
	heading = color.New(color.FgCyan, color.Bold)
	good    = color.New(color.FgGreen)
	warn    = color.New(color.FgYellow)
	bad     = color.New(color.FgRed)
	faint   = color.New(color.Faint)
)

type Prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{in: bufio.NewScanner(in), out: out}
}

// Line prompts and returns one trimmed line. End of input is io.EOF.
func (p *Prompter) Line(prompt string) (string, error) {
	fmt.Fprint(p.out, prompt)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", errors.Errorf("reading input: %w", err)
		}
		fmt.Fprintln(p.out)
		return "", io.EOF
	}
	return strings.TrimSpace(p.in.Text()), nil
}

func isQuit(s string) bool {
	s = strings.ToLower(s)
	return s == "exit" || s == "q"
}

// Choose lists items and returns the zero-based index picked. Invalid input
// is reported and asked again.
func (p *Prompter) Choose(title string, items []string) (int, error) {
	if len(items) == 0 {
		warn.Fprintln(p.out, "Nothing here to display.")
		return 0, ErrBack
	}
	heading.Fprintf(p.out, "\n%s\n", title)
	for i, item := range items {
		fmt.Fprintf(p.out, "%d. %s\n", i+1, item)
	}
	faint.Fprintln(p.out, "Type '.' to go back, 'exit' to quit.")

	for {
		in, err := p.Line("Choose a number: ")
		if err != nil {
			return 0, err
		}
		switch {
		case in == ".":
			return 0, ErrBack
		case isQuit(in):
			return 0, ErrQuit
		}
		n, err := strconv.Atoi(in)
		if err == nil && n >= 1 && n <= len(items) {
			return n - 1, nil
		}
		bad.Fprintln(p.out, "Invalid selection, please try again.")
	}
}

func (p *Prompter) Confirm(question string) (bool, error) {
	in, err := p.Line(question + " (y/n): ")
	if err != nil {
		return false, err
	}
	in = strings.ToLower(in)
	return in == "y" || in == "yes", nil
}

// Paste reads lines until a line holding only "." or the end of input.
func (p *Prompter) Paste(prompt string) (string, error) {
	fmt.Fprintln(p.out, prompt)
	var lines []string
	for p.in.Scan() {
		line := p.in.Text()
		if strings.TrimSpace(line) == "." {
			return strings.Join(lines, "\n"), nil
		}
		lines = append(lines, line)
	}
	if err := p.in.Err(); err != nil {
		return "", errors.Errorf("reading input: %w", err)
	}
	return strings.Join(lines, "\n"), nil
}

// Numbers reads whitespace separated numbers. Anything else on the line is
// ignored. An empty line returns nil.
func (p *Prompter) Numbers(prompt string) ([]int, error) {
	in, err := p.Line(prompt)
	if err != nil {
		return nil, err
	}
	var out []int
	for _, f := range strings.Fields(in) {
		if n, err := strconv.Atoi(f); err == nil {
			out = append(out, n)
		}
	}
	return out, nil
}
