package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"gitlab.com/tozd/go/errors"
)

type fileStore struct {
	ClickUpToken     string            `toml:"CLICKUP_TOKEN"`
	ClickUpBaseURL   string            `toml:"CLICKUP_BASE_URL"`
	TeamID           string            `toml:"CLICKUP_TEAM_ID"`
	SpaceID          string            `toml:"CLICKUP_SPACE_ID"`
	UserID           string            `toml:"CLICKUP_USER_ID"`
	GoogleKeyPath    string            `toml:"GOOGLE_KEY_PATH"`
	SheetID          string            `toml:"NLS_GOOGLE_SHEET_ID"`
	Template         string            `toml:"GOOGLE_SHEET_TEMPLATE"`
	Statuses         []string          `toml:"NLS_GOOGLE_STATUS_FILTER"`
	AttributeColumns []string          `toml:"SHEET_ATTRIBUTE_COLUMNS"`
	FetchConcurrency int               `toml:"FETCH_CONCURRENCY"`
	HTTPTimeout      string            `toml:"HTTP_TIMEOUT"`
	StatusColors     map[string]string `toml:"NLS_GOOGLE_STATUS_COLORS,omitempty"`
}

// Save writes the configuration as a TOML file Load can read back. The file
// holds the ClickUp token, so it is only readable by the owner.
func (c *Config) Save(path string) error {
	s := fileStore{
		ClickUpToken:     c.ClickUpToken,
		ClickUpBaseURL:   c.ClickUpBaseURL,
		TeamID:           c.TeamID,
		SpaceID:          c.SpaceID,
		UserID:           c.UserID,
		GoogleKeyPath:    c.GoogleKeyPath,
		SheetID:          c.SheetID,
		Template:         c.Template,
		Statuses:         nonNil(c.Statuses),
		AttributeColumns: nonNil(c.AttributeColumns),
		FetchConcurrency: c.FetchConcurrency,
		HTTPTimeout:      c.HTTPTimeout.String(),
		StatusColors:     c.StatusColors,
	}
	b, err := toml.Marshal(s)
	if err != nil {
		return errors.Errorf("encoding configuration: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return errors.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Init writes a starter file at path unless one is already there.
func Init(path string, c *Config) error {
	if _, err := os.Stat(path); err == nil {
		return errors.Errorf("%s already exists", path)
	} else if !os.IsNotExist(err) {
		return errors.Errorf("checking %s: %w", path, err)
	}
	if c == nil {
		c = Default()
	}
	return c.Save(path)
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
