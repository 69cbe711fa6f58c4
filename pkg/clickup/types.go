package clickup

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"gitlab.com/tozd/go/errors"
)

type User struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type Team struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Folder struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Lists []List `json:"lists,omitempty"`
}

type List struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Status struct {
	Status string `json:"status"`
	Color  string `json:"color,omitempty"`
	Type   string `json:"type,omitempty"`
}

type Task struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Status       Status        `json:"status"`
	URL          string        `json:"url,omitempty"`
	CustomFields []CustomField `json:"custom_fields,omitempty"`
}

// Field finds a custom field by case-insensitive name.
func (t Task) Field(name string) (CustomField, bool) {
	for _, f := range t.CustomFields {
		if strings.EqualFold(strings.TrimSpace(f.Name), name) {
			return f, true
		}
	}
	return CustomField{}, false
}

type Attachment struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Date  string `json:"date"`
}

// Time is the upload time; ClickUp sends it as a millisecond string.
func (a Attachment) Time() (time.Time, bool) {
	return parseMillis(a.Date)
}

type CustomField struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value,omitempty"`
}

func (f CustomField) IsSet() bool {
	v := strings.TrimSpace(string(f.Value))
	return v != "" && v != "null" && v != `""` && v != "[]"
}

// Text renders the value the way it is shown to an operator.
func (f CustomField) Text() string {
	if !f.IsSet() {
		return ""
	}
	var s string
	if err := json.Unmarshal(f.Value, &s); err == nil {
		return s
	}
	var n json.Number
	if err := json.Unmarshal(f.Value, &n); err == nil {
		return n.String()
	}
	return string(f.Value)
}

// Time parses date fields, stored as unix milliseconds.
func (f CustomField) Time() (time.Time, bool) {
	return parseMillis(f.Text())
}

// Attachments returns the field's files, newest first.
func (f CustomField) Attachments() []Attachment {
	if !f.IsSet() {
		return nil
	}
	var out []Attachment
	if err := json.Unmarshal(f.Value, &out); err != nil {
		return nil
	}
	sort.SliceStable(out, func(i, j int) bool {
		ti, _ := out[i].Time()
		tj, _ := out[j].Time()
		return ti.After(tj)
	})
	return out
}

func parseMillis(s string) (time.Time, bool) {
	ms, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// FieldValue converts operator input into the JSON value ClickUp expects for
// a field type. Dates are entered as YYYY-MM-DD in loc.
func FieldValue(fieldType, input string, loc *time.Location) (interface{}, error) {
	switch fieldType {
	case "date":
		d, err := time.ParseInLocation("2006-01-02", strings.TrimSpace(input), loc)
		if err != nil {
			return nil, errors.Errorf("invalid date %q, use YYYY-MM-DD: %w", input, err)
		}
		return d.UnixMilli(), nil
	case "number", "currency":
		n, err := strconv.ParseFloat(strings.TrimSpace(input), 64)
		if err != nil {
			return nil, errors.Errorf("invalid number %q: %w", input, err)
		}
		return n, nil
	default:
		return input, nil
	}
}
