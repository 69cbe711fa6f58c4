package sheets

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"
)

// ErrSheetNotFound is returned when a tab with the requested title is absent.
var ErrSheetNotFound = errors.Base("sheet not found")

// Rows beyond this are never read or colored.
const MaxRows = 1000

// Color is an RGB triple with components in [0, 1].
type Color struct {
	Red   float64
	Green float64
	Blue  float64
}

// ParseHex parses "#rrggbb" or "rrggbb".
func ParseHex(hex string) (Color, error) {
	h := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if len(h) != 6 {
		return Color{}, errors.Errorf("invalid color %q", hex)
	}
	var c [3]float64
	for i := range c {
		v, err := strconv.ParseUint(h[i*2:i*2+2], 16, 8)
		if err != nil {
			return Color{}, errors.Errorf("invalid color %q: %w", hex, err)
		}
		c[i] = float64(v) / 255.0
	}
	return Color{Red: c[0], Green: c[1], Blue: c[2]}, nil
}

func mustHex(hex string) Color {
	c, err := ParseHex(hex)
	if err != nil {
		panic(err)
	}
	return c
}

// ColumnLetter converts a zero-based column index to its A1 letters.
func ColumnLetter(index int) string {
	var letters []byte
	for n := index + 1; n > 0; n = (n - 1) / 26 {
		letters = append([]byte{byte('A' + (n-1)%26)}, letters...)
	}
	return string(letters)
}

// ColumnIndex converts A1 column letters to a zero-based index.
func ColumnIndex(letters string) (int, error) {
	if letters == "" {
		return 0, errors.New("empty column")
	}
	n := 0
	for _, r := range strings.ToUpper(letters) {
		if r < 'A' || r > 'Z' {
			return 0, errors.Errorf("invalid column %q", letters)
		}
		n = n*26 + int(r-'A'+1)
	}
	return n - 1, nil
}

func quoteTitle(title string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'"
}

// CellA1 addresses a single cell by zero-based row and column.
func CellA1(title string, row, col int) string {
	return fmt.Sprintf("%s!%s%d", quoteTitle(title), ColumnLetter(col), row+1)
}

// RangeA1 covers rows [1, rows] of the first width columns.
func RangeA1(title string, width, rows int) string {
	return fmt.Sprintf("%s!A1:%s%d", quoteTitle(title), ColumnLetter(max(width, 1)-1), rows)
}

// MonthTitle names the tab a month's maintenance is tracked in.
func MonthTitle(t time.Time) string {
	return t.Format("January 2006")
}
