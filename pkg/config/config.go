// Package config loads maintsync settings from the environment and an
// optional .env or TOML file.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"gitlab.com/tozd/go/errors"

	"maintsync/pkg/clickup"
	"maintsync/pkg/sheets"
)

const (
	KeyClickUpToken     = "CLICKUP_TOKEN"
	KeyClickUpBaseURL   = "CLICKUP_BASE_URL"
	KeyTeamID           = "CLICKUP_TEAM_ID"
	KeySpaceID          = "CLICKUP_SPACE_ID"
	KeyUserID           = "CLICKUP_USER_ID"
	KeyGoogleKeyPath    = "GOOGLE_KEY_PATH"
	KeySheetID          = "NLS_GOOGLE_SHEET_ID"
	KeyTemplate         = "GOOGLE_SHEET_TEMPLATE"
	KeyStatuses         = "NLS_GOOGLE_STATUS_FILTER"
	KeyStatusColors     = "NLS_GOOGLE_STATUS_COLORS"
	KeyAttributeColumns = "SHEET_ATTRIBUTE_COLUMNS"
	KeyFetchConcurrency = "FETCH_CONCURRENCY"
	KeyHTTPTimeout      = "HTTP_TIMEOUT"
)

var keys = []string{
	KeyClickUpToken, KeyClickUpBaseURL, KeyTeamID, KeySpaceID, KeyUserID,
	KeyGoogleKeyPath, KeySheetID, KeyTemplate, KeyStatuses, KeyStatusColors,
	KeyAttributeColumns, KeyFetchConcurrency, KeyHTTPTimeout,
}

// DefaultFile is read when no file is named and it exists.
const DefaultFile = ".env"

var (
	ErrMissing   = errors.Base("missing configuration")
	ErrMalformed = errors.Base("malformed configuration")
)

type Config struct {
	ClickUpToken   string
	ClickUpBaseURL string
	TeamID         string
	SpaceID        string
	UserID         string

	GoogleKeyPath string
	SheetID       string
	Template      string

	// Statuses filter the task query and color the status column, in order.
	Statuses     []string
	StatusColors map[string]string
	// Custom fields written to the columns after Status.
	AttributeColumns []string

	FetchConcurrency int
	HTTPTimeout      time.Duration
}

func Default() *Config {
	return &Config{
		ClickUpBaseURL:   clickup.DefaultBaseURL,
		FetchConcurrency: 4,
		HTTPTimeout:      30 * time.Second,
	}
}

// Load reads the configuration. Environment variables win over the file.
// path may name a .env or .toml file; when empty, DefaultFile is used if it
// exists.
func Load(path string) (*Config, error) {
	v := viper.New()
	d := Default()
	v.SetDefault(KeyClickUpBaseURL, d.ClickUpBaseURL)
	v.SetDefault(KeyFetchConcurrency, d.FetchConcurrency)
	v.SetDefault(KeyHTTPTimeout, d.HTTPTimeout)
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, errors.Errorf("binding %s: %w", k, err)
		}
	}

	if path == "" {
		if _, err := os.Stat(DefaultFile); err == nil {
			path = DefaultFile
		}
	}
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType(fileType(path))
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Errorf("reading %s: %w", path, err)
		}
		log.Debugf("loaded configuration from %s", path)
	}

	c := &Config{
		ClickUpToken:     v.GetString(KeyClickUpToken),
		ClickUpBaseURL:   v.GetString(KeyClickUpBaseURL),
		TeamID:           v.GetString(KeyTeamID),
		SpaceID:          v.GetString(KeySpaceID),
		UserID:           v.GetString(KeyUserID),
		GoogleKeyPath:    v.GetString(KeyGoogleKeyPath),
		SheetID:          v.GetString(KeySheetID),
		Template:         v.GetString(KeyTemplate),
		FetchConcurrency: v.GetInt(KeyFetchConcurrency),
		HTTPTimeout:      v.GetDuration(KeyHTTPTimeout),
	}

	var err error
	if c.Statuses, err = stringList(KeyStatuses, v.Get(KeyStatuses)); err != nil {
		return nil, err
	}
	if c.AttributeColumns, err = stringList(KeyAttributeColumns, v.Get(KeyAttributeColumns)); err != nil {
		return nil, err
	}
	colors, err := stringMap(KeyStatusColors, v.Get(KeyStatusColors))
	if err != nil {
		return nil, err
	}
	c.StatusColors = matchStatuses(c.Statuses, colors)
	return c, nil
}

func fileType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".toml":
		return "toml"
	case ".json":
		return "json"
	default:
		return "env"
	}
}

// stringList accepts a JSON array in a string (environment, .env) or a
// native array (TOML). Anything else is an error, never an empty list.
func stringList(key string, raw interface{}) ([]string, error) {
	switch val := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		var out []string
		if err := json.Unmarshal([]byte(val), &out); err != nil {
			return nil, errors.Errorf("%w: %s must be a JSON array of strings: %v", ErrMalformed, key, err)
		}
		return out, nil
	case []string:
		return val, nil
	case []interface{}:
		out := make([]string, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, errors.Errorf("%w: %s[%d] is %T, not a string", ErrMalformed, key, i, item)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, errors.Errorf("%w: %s has unsupported type %T", ErrMalformed, key, raw)
	}
}

func stringMap(key string, raw interface{}) (map[string]string, error) {
	switch val := raw.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(val) == "" {
			return nil, nil
		}
		var out map[string]string
		if err := json.Unmarshal([]byte(val), &out); err != nil {
			return nil, errors.Errorf("%w: %s must be a JSON object of strings: %v", ErrMalformed, key, err)
		}
		return out, nil
	case map[string]interface{}:
		out := make(map[string]string, len(val))
		for k, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, errors.Errorf("%w: %s.%s is %T, not a string", ErrMalformed, key, k, item)
			}
			out[k] = s
		}
		return out, nil
	default:
		return nil, errors.Errorf("%w: %s has unsupported type %T", ErrMalformed, key, raw)
	}
}

// matchStatuses restores the configured spelling of color keys; viper lower
// cases keys read from files.
func matchStatuses(statuses []string, colors map[string]string) map[string]string {
	if colors == nil {
		return nil
	}
	out := make(map[string]string, len(colors))
	for k, c := range colors {
		name := k
		for _, s := range statuses {
			if strings.EqualFold(s, k) {
				name = s
				break
			}
		}
		out[name] = c
	}
	return out
}

// Validate reports every missing required setting at once.
func (c *Config) Validate() error {
	var missing []string
	check := func(key, val string) {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, key)
		}
	}
	check(KeyClickUpToken, c.ClickUpToken)
	check(KeyGoogleKeyPath, c.GoogleKeyPath)
	check(KeySheetID, c.SheetID)
	check(KeyTemplate, c.Template)
	if c.TeamID == "" && c.SpaceID == "" {
		missing = append(missing, KeyTeamID+" or "+KeySpaceID)
	}
	if len(c.Statuses) == 0 {
		missing = append(missing, KeyStatuses)
	}
	if len(missing) > 0 {
		return errors.Errorf("%w: %s", ErrMissing, strings.Join(missing, ", "))
	}
	if c.FetchConcurrency < 1 {
		return errors.Errorf("%w: %s must be at least 1", ErrMalformed, KeyFetchConcurrency)
	}
	return nil
}

// StatusRules builds the conditional format rules for the status column.
func (c *Config) StatusRules() ([]sheets.StatusColor, error) {
	return sheets.StatusColors(c.Statuses, c.StatusColors)
}

// TaskQuery filters tasks to the configured statuses and, when set, the
// configured assignee.
func (c *Config) TaskQuery() clickup.TaskQuery {
	q := clickup.TaskQuery{Statuses: c.Statuses}
	if c.UserID != "" {
		q.Assignees = []string{c.UserID}
	}
	return q
}
