package sheets

import (
	"strings"
	"unicode"

	"gitlab.com/tozd/go/errors"
)

// CompleteStatus always gets a rule, whatever the configured statuses are.
const CompleteStatus = "complete"

var (
	Green    = mustHex("#00ff00")
	Red      = mustHex("#ea4335")
	Cyan     = mustHex("#00ffff")
	Purple   = mustHex("#cb8ccb")
	Yellow   = mustHex("#ffff00")
	CornBlue = mustHex("#4285f4")

	LightRed  = Color{Red: 1.0, Green: 0.6, Blue: 0.6}
	LightBlue = Color{Red: 0.7, Green: 0.85, Blue: 1.0}

	// DefaultPalette colors statuses by position when no explicit color is
	// configured. The last configured status is always Red.
	DefaultPalette = []Color{Cyan, Purple, Yellow, Cyan, CornBlue}
)

type StatusColor struct {
	Status string
	Color  Color
}

// StatusColors builds the ordered status → color rules. overrides maps a
// status to a hex color and wins over the positional palette.
func StatusColors(statuses []string, overrides map[string]string) ([]StatusColor, error) {
	rules := make([]StatusColor, 0, len(statuses)+1)

	present := false
	for _, s := range statuses {
		if s == CompleteStatus {
			present = true
		}
	}
	if !present {
		c := Green
		if hex := overrides[CompleteStatus]; hex != "" {
			var err error
			if c, err = ParseHex(hex); err != nil {
				return nil, errors.Errorf("color for status %q: %w", CompleteStatus, err)
			}
		}
		rules = append(rules, StatusColor{Status: CompleteStatus, Color: c})
	}

	for i, s := range statuses {
		var c Color
		switch {
		case overrides[s] != "":
			var err error
			if c, err = ParseHex(overrides[s]); err != nil {
				return nil, errors.Errorf("color for status %q: %w", s, err)
			}
		case s == CompleteStatus:
			c = Green
		case i == len(statuses)-1 && len(statuses) > 1:
			c = Red
		default:
			c = DefaultPalette[i%len(DefaultPalette)]
		}
		rules = append(rules, StatusColor{Status: s, Color: c})
	}

	for s := range overrides {
		found := false
		for _, r := range rules {
			if r.Status == s {
				found = true
				break
			}
		}
		if !found {
			return nil, errors.Errorf("color configured for unknown status %q", s)
		}
	}
	return rules, nil
}

// CellColor picks the background for a single updated attribute cell.
func CellColor(value string) Color {
	v := strings.ToLower(strings.TrimSpace(value))
	switch {
	case v == "incomplete":
		return LightRed
	case v == "n/a" || v == "0":
		return LightBlue
	case strings.Contains(v, "done"):
		return Green
	case v != "" && strings.IndexFunc(v, func(r rune) bool { return !unicode.IsDigit(r) }) < 0:
		return Green
	default:
		return Yellow
	}
}
