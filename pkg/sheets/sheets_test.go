package sheets

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type fakeSheetsAPI struct {
	mu          sync.Mutex
	batches     []*sheets.BatchUpdateSpreadsheetRequest
	requests    int
	rateLimited int
	// meta overrides the spreadsheet metadata answer.
	meta string
	// Status and body of the rate-limited answers; 429 when unset.
	limitStatus int
	limitBody   string
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests++
	w.Header().Set("Content-Type", "application/json")
	if f.rateLimited > 0 {
		f.rateLimited--
		if f.limitStatus != 0 {
			w.WriteHeader(f.limitStatus)
			_, _ = w.Write([]byte(f.limitBody))
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"code":429,"message":"quota"}}`))
		return
	}

	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":batchUpdate"):
		var req sheets.BatchUpdateSpreadsheetRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.batches = append(f.batches, &req)
		_, _ = w.Write([]byte(`{"replies":[{"duplicateSheet":{"properties":{"sheetId":9,"title":"June 2025"}}}]}`))
	case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/values/"):
		_, _ = w.Write([]byte(`{"values":[["Folder","List"],["F1"],["F1","L1","Site",3]]}`))
	case r.Method == http.MethodGet && f.meta != "":
		_, _ = w.Write([]byte(f.meta))
	case r.Method == http.MethodGet:
		_, _ = w.Write([]byte(`{"sheets":[{"properties":{"sheetId":0,"title":"Template"}},{"properties":{"sheetId":5,"title":"May 2025"}}]}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, api *fakeSheetsAPI) *SheetClient {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c := NewSheetClient("", "sheet123", option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	c.MaxBackoff = time.Millisecond
	require.NoError(t, c.Connect(context.Background()))
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestSheetClientNotConnected(t *testing.T) {
	c := NewSheetClient("", "sheet123")
	_, _, err := c.SheetID(context.Background(), "x")
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSheetClientConnectMissingKey(t *testing.T) {
	c := NewSheetClient("/does/not/exist.json", "sheet123")
	assert.Error(t, c.Connect(context.Background()))
}

func TestSheetID(t *testing.T) {
	c := newTestClient(t, &fakeSheetsAPI{})

	id, ok, err := c.SheetID(context.Background(), "May 2025")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(5), id)

	_, ok, err = c.SheetID(context.Background(), "June 2025")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGetValues(t *testing.T) {
	c := newTestClient(t, &fakeSheetsAPI{})

	values, err := c.GetValues(context.Background(), RangeA1("May 2025", 4, MaxRows))
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"Folder", "List"}, {"F1"}, {"F1", "L1", "Site", "3"}}, values)
}

func TestDuplicateSheet(t *testing.T) {
	api := &fakeSheetsAPI{}
	c := newTestClient(t, api)

	id, err := c.DuplicateSheet(context.Background(), "Template", "June 2025")
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)

	require.Len(t, api.batches, 1)
	dup := api.batches[0].Requests[0].DuplicateSheet
	require.NotNil(t, dup)
	assert.Equal(t, "June 2025", dup.NewSheetName)

	_, err = c.DuplicateSheet(context.Background(), "Missing", "June 2025")
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestInsertRow(t *testing.T) {
	api := &fakeSheetsAPI{}
	c := newTestClient(t, api)

	require.NoError(t, c.InsertRow(context.Background(), 5, 3, []string{"F", "L", "Site", "open"}))

	require.Len(t, api.batches, 1)
	reqs := api.batches[0].Requests
	require.Len(t, reqs, 2)
	assert.Equal(t, int64(3), reqs[0].InsertDimension.Range.StartIndex)
	assert.Equal(t, int64(4), reqs[0].InsertDimension.Range.EndIndex)
	assert.Equal(t, "ROWS", reqs[0].InsertDimension.Range.Dimension)
	cells := reqs[1].UpdateCells.Rows[0].Values
	require.Len(t, cells, 4)
	assert.Equal(t, "Site", *cells[2].UserEnteredValue.StringValue)
}

func TestAddStatusRules(t *testing.T) {
	api := &fakeSheetsAPI{}
	c := newTestClient(t, api)

	rules, err := StatusColors([]string{"open", "closed"}, nil)
	require.NoError(t, err)
	require.NoError(t, c.AddStatusRules(context.Background(), 5, 3, rules))

	require.Len(t, api.batches, 1)
	reqs := api.batches[0].Requests
	require.Len(t, reqs, 3)
	rule := reqs[2].AddConditionalFormatRule.Rule
	assert.Equal(t, "TEXT_EQ", rule.BooleanRule.Condition.Type)
	assert.Equal(t, "closed", rule.BooleanRule.Condition.Values[0].UserEnteredValue)
	assert.Equal(t, int64(3), rule.Ranges[0].StartColumnIndex)
	assert.Equal(t, int64(MaxRows), rule.Ranges[0].EndRowIndex)
}

func TestAddStatusRulesReplacesStaleRules(t *testing.T) {
	api := &fakeSheetsAPI{meta: `{"sheets":[
		{"properties":{"sheetId":0},"conditionalFormats":[
			{"ranges":[{"sheetId":0,"startColumnIndex":3,"endColumnIndex":4}],"booleanRule":{"condition":{"type":"TEXT_EQ"}}}]},
		{"properties":{"sheetId":5},"conditionalFormats":[
			{"ranges":[{"sheetId":5,"startColumnIndex":3,"endColumnIndex":4}],"booleanRule":{"condition":{"type":"TEXT_EQ"}}},
			{"ranges":[{"sheetId":5,"startColumnIndex":4,"endColumnIndex":5}],"booleanRule":{"condition":{"type":"TEXT_EQ"}}},
			{"ranges":[{"sheetId":5,"startColumnIndex":3,"endColumnIndex":4}],"booleanRule":{"condition":{"type":"NUMBER_GREATER"}}},
			{"ranges":[{"sheetId":5,"startColumnIndex":3,"endColumnIndex":4}],"booleanRule":{"condition":{"type":"TEXT_EQ"}}}]}]}`}
	c := newTestClient(t, api)

	rules, err := StatusColors([]string{"open"}, nil)
	require.NoError(t, err)
	require.NoError(t, c.AddStatusRules(context.Background(), 5, 3, rules))

	require.Len(t, api.batches, 1)
	reqs := api.batches[0].Requests
	require.Len(t, reqs, 4)
	assert.Equal(t, int64(3), reqs[0].DeleteConditionalFormatRule.Index)
	assert.Equal(t, int64(0), reqs[1].DeleteConditionalFormatRule.Index)
	assert.Equal(t, int64(5), reqs[1].DeleteConditionalFormatRule.SheetId)
	assert.NotNil(t, reqs[2].AddConditionalFormatRule)
	assert.NotNil(t, reqs[3].AddConditionalFormatRule)
}

func TestRateLimitBackoff(t *testing.T) {
	api := &fakeSheetsAPI{rateLimited: 2}
	c := newTestClient(t, api)

	require.NoError(t, c.DeleteRows(context.Background(), 5, 2, 1))
	assert.Len(t, api.batches, 1)

	api.rateLimited = 10
	c.MaxRetries = 1
	err := c.DeleteRows(context.Background(), 5, 2, 1)
	assert.ErrorContains(t, err, "after 1 retries")
}

func TestForbiddenBackoff(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantErr  bool
		requests int
	}{
		{
			name:     "quota reason is retried",
			body:     `{"error":{"code":403,"message":"Quota exceeded for quota metric 'Write requests'","errors":[{"reason":"rateLimitExceeded","message":"Rate Limit Exceeded"}]}}`,
			requests: 3,
		},
		{
			name:     "permission denied fails at once",
			body:     `{"error":{"code":403,"message":"The caller does not have permission","errors":[{"reason":"forbidden"}]}}`,
			wantErr:  true,
			requests: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeSheetsAPI{rateLimited: 2, limitStatus: http.StatusForbidden, limitBody: tt.body}
			c := newTestClient(t, api)

			err := c.DeleteRows(context.Background(), 5, 2, 1)
			if tt.wantErr {
				assert.ErrorContains(t, err, "does not have permission")
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.requests, api.requests)
		})
	}
}
