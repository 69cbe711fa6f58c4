package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maintsync/pkg/sheets"
)

// clearEnv blanks every key so the developer's environment can't leak in.
// viper treats empty variables as unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(KeyClickUpToken, "pk_1")
	t.Setenv(KeyTeamID, "t1")
	t.Setenv(KeyStatuses, `["to do", "in progress", "blocked"]`)
	t.Setenv(KeyStatusColors, `{"blocked": "#000000"}`)
	t.Setenv(KeyFetchConcurrency, "8")
	t.Setenv(KeyHTTPTimeout, "5s")

	c, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "pk_1", c.ClickUpToken)
	assert.Equal(t, "https://api.clickup.com/api/v2", c.ClickUpBaseURL)
	assert.Equal(t, []string{"to do", "in progress", "blocked"}, c.Statuses)
	assert.Equal(t, map[string]string{"blocked": "#000000"}, c.StatusColors)
	assert.Equal(t, 8, c.FetchConcurrency)
	assert.Equal(t, 5*time.Second, c.HTTPTimeout)
}

func TestLoadMalformedStatuses(t *testing.T) {
	tests := []string{
		`['to do', 'done']`,
		`to do, done`,
		`{"a": 1}`,
		`[1, 2]`,
	}
	for _, raw := range tests {
		clearEnv(t)
		t.Setenv(KeyStatuses, raw)
		_, err := Load("")
		assert.ErrorIs(t, err, ErrMalformed, raw)
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "maint.env", `
CLICKUP_TOKEN=pk_file
CLICKUP_SPACE_ID=s1
NLS_GOOGLE_STATUS_FILTER='["active","done"]'
SHEET_ATTRIBUTE_COLUMNS='["Plugins Updated"]'
`)
	t.Setenv(KeyClickUpToken, "pk_env")

	c, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "pk_env", c.ClickUpToken, "environment wins over the file")
	assert.Equal(t, "s1", c.SpaceID)
	assert.Equal(t, []string{"active", "done"}, c.Statuses)
	assert.Equal(t, []string{"Plugins Updated"}, c.AttributeColumns)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	clearEnv(t)
	want := &Config{
		ClickUpToken:     "pk_1",
		ClickUpBaseURL:   "https://example.test/api/v2",
		TeamID:           "t1",
		UserID:           "42",
		GoogleKeyPath:    "/keys/sa.json",
		SheetID:          "sheet123",
		Template:         "Template",
		Statuses:         []string{"Active", "On Hold", "Canceled"},
		StatusColors:     map[string]string{"On Hold": "#ff9900"},
		AttributeColumns: []string{"Plugins Updated", "DNS Check"},
		FetchConcurrency: 6,
		HTTPTimeout:      45 * time.Second,
	}
	path := filepath.Join(t.TempDir(), "maintsync.toml")
	require.NoError(t, want.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := Load(path)
	require.NoError(t, err)
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Load(Save()) mismatch (-want +got):\n%s", diff)
	}
}

func TestInitRefusesToOverwrite(t *testing.T) {
	path := writeFile(t, "maintsync.toml", "CLICKUP_TOKEN = 'keep'\n")
	assert.Error(t, Init(path, nil))

	fresh := filepath.Join(t.TempDir(), "new.toml")
	require.NoError(t, Init(fresh, nil))
	clearEnv(t)
	c, err := Load(fresh)
	require.NoError(t, err)
	assert.Equal(t, 4, c.FetchConcurrency)
	assert.Equal(t, 30*time.Second, c.HTTPTimeout)
}

func TestValidate(t *testing.T) {
	c := Default()
	err := c.Validate()
	require.ErrorIs(t, err, ErrMissing)
	for _, k := range []string{KeyClickUpToken, KeyGoogleKeyPath, KeySheetID, KeyTemplate, KeyStatuses, KeyTeamID} {
		assert.Contains(t, err.Error(), k)
	}

	c.ClickUpToken = "pk"
	c.GoogleKeyPath = "key.json"
	c.SheetID = "s"
	c.Template = "Template"
	c.SpaceID = "space"
	c.Statuses = []string{"active"}
	assert.NoError(t, c.Validate())

	c.FetchConcurrency = 0
	assert.ErrorIs(t, c.Validate(), ErrMalformed)
}

func TestStatusRulesAndQuery(t *testing.T) {
	c := &Config{Statuses: []string{"active", "blocked"}, UserID: "42"}
	rules, err := c.StatusRules()
	require.NoError(t, err)
	assert.Equal(t, []sheets.StatusColor{
		{Status: sheets.CompleteStatus, Color: sheets.Green},
		{Status: "active", Color: sheets.Cyan},
		{Status: "blocked", Color: sheets.Red},
	}, rules)

	q := c.TaskQuery()
	assert.Equal(t, []string{"42"}, q.Assignees)
	assert.Equal(t, c.Statuses, q.Statuses)
}
