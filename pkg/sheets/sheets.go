package sheets

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"os"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var ErrNotConnected = errors.Base("sheet client not connected")

type SheetClient struct {
	service       *sheets.Service
	httpClient    *http.Client
	keyPath       string
	spreadsheetID string
	options       []option.ClientOption

	MaxRetries int
	MaxBackoff time.Duration
}

// NewSheetClient prepares a client for one spreadsheet. When keyPath is set,
// Connect authenticates with that service account key; otherwise opts must
// carry the transport.
func NewSheetClient(keyPath, spreadsheetID string, opts ...option.ClientOption) *SheetClient {
	return &SheetClient{
		keyPath:       keyPath,
		spreadsheetID: spreadsheetID,
		options:       opts,
		MaxRetries:    5,
		MaxBackoff:    60 * time.Second,
	}
}

func (s *SheetClient) Connect(ctx context.Context) error {
	opts := append([]option.ClientOption(nil), s.options...)
	if s.keyPath != "" {
		b, err := os.ReadFile(s.keyPath)
		if err != nil {
			return errors.Errorf("reading service account key: %w", err)
		}
		cfg, err := google.JWTConfigFromJSON(b, sheets.SpreadsheetsScope)
		if err != nil {
			return errors.Errorf("parsing service account key: %w", err)
		}
		s.httpClient = cfg.Client(ctx)
		opts = append(opts, option.WithHTTPClient(s.httpClient))
	}
	srv, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return errors.Errorf("creating sheets service: %w", err)
	}
	s.service = srv
	return nil
}

func (s *SheetClient) Close() error {
	if s.httpClient != nil {
		s.httpClient.CloseIdleConnections()
	}
	s.service = nil
	s.httpClient = nil
	return nil
}

// call runs fn, backing off while the API reports rate limiting.
func (s *SheetClient) call(ctx context.Context, what string, fn func() error) error {
	if s.service == nil {
		return ErrNotConnected
	}
	var err error
	for attempt := 0; attempt <= s.MaxRetries; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}
		if !rateLimited(err) {
			return errors.Errorf("%s: %w", what, err)
		}
		backoff := time.Duration(math.Pow(2, float64(attempt))) * time.Second
		if backoff > s.MaxBackoff {
			backoff = s.MaxBackoff
		}
		log.Warnf("Rate limited by Google Sheets API, retrying %s in %v...", what, backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	return errors.Errorf("%s after %d retries: %w", what, s.MaxRetries, err)
}

// rateLimited reports a 429, or a 403 carrying a quota or rate-limit reason,
// which is how Sheets reports per-user quota exhaustion.
func rateLimited(err error) bool {
	var gErr *googleapi.Error
	if !errors.As(err, &gErr) {
		return false
	}
	switch gErr.Code {
	case http.StatusTooManyRequests:
		return true
	case http.StatusForbidden:
		if isQuota(gErr.Message) {
			return true
		}
		for _, item := range gErr.Errors {
			if isQuota(item.Reason) || isQuota(item.Message) {
				return true
			}
		}
	}
	return false
}

func isQuota(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "ratelimit") || strings.Contains(s, "rate limit") || strings.Contains(s, "quota")
}

func (s *SheetClient) batch(ctx context.Context, what string, reqs ...*sheets.Request) (*sheets.BatchUpdateSpreadsheetResponse, error) {
	var resp *sheets.BatchUpdateSpreadsheetResponse
	err := s.call(ctx, what, func() error {
		var err error
		resp, err = s.service.Spreadsheets.BatchUpdate(s.spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: reqs,
		}).Context(ctx).Do()
		return err
	})
	return resp, err
}

// SheetID looks a tab up by title.
func (s *SheetClient) SheetID(ctx context.Context, title string) (int64, bool, error) {
	var ss *sheets.Spreadsheet
	err := s.call(ctx, "reading spreadsheet metadata", func() error {
		var err error
		ss, err = s.service.Spreadsheets.Get(s.spreadsheetID).Context(ctx).Do()
		return err
	})
	if err != nil {
		return 0, false, err
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return sh.Properties.SheetId, true, nil
		}
	}
	return 0, false, nil
}

// DuplicateSheet clones the tab named source into a new tab named title.
func (s *SheetClient) DuplicateSheet(ctx context.Context, source, title string) (int64, error) {
	sourceID, ok, err := s.SheetID(ctx, source)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, errors.Errorf("%w: %q", ErrSheetNotFound, source)
	}
	resp, err := s.batch(ctx, "duplicating sheet", &sheets.Request{
		DuplicateSheet: &sheets.DuplicateSheetRequest{
			SourceSheetId: sourceID,
			NewSheetName:  title,
		},
	})
	if err != nil {
		return 0, err
	}
	if len(resp.Replies) == 0 || resp.Replies[0].DuplicateSheet == nil || resp.Replies[0].DuplicateSheet.Properties == nil {
		return 0, errors.New("duplicate sheet reply missing properties")
	}
	id := resp.Replies[0].DuplicateSheet.Properties.SheetId
	log.Infof("Cloned sheet %q from %q (sheet id %d)", title, source, id)
	return id, nil
}

// GetValues reads a range; every cell is rendered as a string.
func (s *SheetClient) GetValues(ctx context.Context, a1 string) ([][]string, error) {
	var resp *sheets.ValueRange
	err := s.call(ctx, "reading "+a1, func() error {
		var err error
		resp, err = s.service.Spreadsheets.Values.Get(s.spreadsheetID, a1).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([][]string, len(resp.Values))
	for i, row := range resp.Values {
		out[i] = make([]string, len(row))
		for j, v := range row {
			out[i][j] = fmt.Sprint(v)
		}
	}
	return out, nil
}

func (s *SheetClient) UpdateValues(ctx context.Context, a1 string, values [][]string) error {
	rows := make([][]interface{}, len(values))
	for i, row := range values {
		rows[i] = make([]interface{}, len(row))
		for j, v := range row {
			rows[i][j] = v
		}
	}
	return s.call(ctx, "writing "+a1, func() error {
		_, err := s.service.Spreadsheets.Values.Update(
			s.spreadsheetID,
			a1,
			&sheets.ValueRange{Values: rows},
		).ValueInputOption("USER_ENTERED").Context(ctx).Do()
		return err
	})
}

// InsertRow inserts a blank row at index and writes cells into it from
// column A, in one batch.
func (s *SheetClient) InsertRow(ctx context.Context, sheetID int64, index int, cells []string) error {
	values := make([]*sheets.CellData, len(cells))
	for i, c := range cells {
		values[i] = &sheets.CellData{UserEnteredValue: &sheets.ExtendedValue{StringValue: googleapi.String(c)}}
	}
	_, err := s.batch(ctx, "inserting row",
		&sheets.Request{
			InsertDimension: &sheets.InsertDimensionRequest{
				Range: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(index),
					EndIndex:   int64(index + 1),
				},
				InheritFromBefore: false,
			},
		},
		&sheets.Request{
			UpdateCells: &sheets.UpdateCellsRequest{
				Start: &sheets.GridCoordinate{
					SheetId:     sheetID,
					RowIndex:    int64(index),
					ColumnIndex: 0,
				},
				Rows:   []*sheets.RowData{{Values: values}},
				Fields: "userEnteredValue",
			},
		},
	)
	return err
}

func (s *SheetClient) DeleteRows(ctx context.Context, sheetID int64, start, count int) error {
	_, err := s.batch(ctx, "deleting rows", &sheets.Request{
		DeleteDimension: &sheets.DeleteDimensionRequest{
			Range: &sheets.DimensionRange{
				SheetId:    sheetID,
				Dimension:  "ROWS",
				StartIndex: int64(start),
				EndIndex:   int64(start + count),
			},
		},
	})
	return err
}

// AddStatusRules replaces the exact-text conditional format rules on the
// given column with one rule per status, below the header row. Later rules
// take priority. Rules on other columns are left alone.
func (s *SheetClient) AddStatusRules(ctx context.Context, sheetID int64, column int, rules []StatusColor) error {
	if len(rules) == 0 {
		return nil
	}
	stale, err := s.statusRuleIndexes(ctx, sheetID, column)
	if err != nil {
		return err
	}
	reqs := make([]*sheets.Request, 0, len(stale)+len(rules))
	for _, i := range stale {
		reqs = append(reqs, &sheets.Request{
			DeleteConditionalFormatRule: &sheets.DeleteConditionalFormatRuleRequest{
				SheetId:         sheetID,
				Index:           i,
				ForceSendFields: []string{"Index", "SheetId"},
			},
		})
	}
	for _, r := range rules {
		reqs = append(reqs, &sheets.Request{
			AddConditionalFormatRule: &sheets.AddConditionalFormatRuleRequest{
				Rule: &sheets.ConditionalFormatRule{
					Ranges: []*sheets.GridRange{{
						SheetId:          sheetID,
						StartRowIndex:    1,
						EndRowIndex:      MaxRows,
						StartColumnIndex: int64(column),
						EndColumnIndex:   int64(column + 1),
					}},
					BooleanRule: &sheets.BooleanRule{
						Condition: &sheets.BooleanCondition{
							Type:   "TEXT_EQ",
							Values: []*sheets.ConditionValue{{UserEnteredValue: r.Status}},
						},
						Format: &sheets.CellFormat{BackgroundColor: apiColor(r.Color)},
					},
				},
				Index: 0,
			},
		})
	}
	_, err = s.batch(ctx, "applying conditional formatting", reqs...)
	return err
}

// statusRuleIndexes lists, highest first, the TEXT_EQ rules of the sheet that
// cover only the given column.
func (s *SheetClient) statusRuleIndexes(ctx context.Context, sheetID int64, column int) ([]int64, error) {
	var ss *sheets.Spreadsheet
	err := s.call(ctx, "reading conditional formatting", func() error {
		var err error
		ss, err = s.service.Spreadsheets.Get(s.spreadsheetID).
			Fields("sheets(properties.sheetId,conditionalFormats)").Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	var out []int64
	for _, sh := range ss.Sheets {
		if sh.Properties == nil || sh.Properties.SheetId != sheetID {
			continue
		}
		for i, rule := range sh.ConditionalFormats {
			if rule.BooleanRule == nil || rule.BooleanRule.Condition == nil || rule.BooleanRule.Condition.Type != "TEXT_EQ" {
				continue
			}
			if len(rule.Ranges) != 1 || rule.Ranges[0].StartColumnIndex != int64(column) || rule.Ranges[0].EndColumnIndex != int64(column+1) {
				continue
			}
			out = append([]int64{int64(i)}, out...)
		}
	}
	return out, nil
}

func (s *SheetClient) SetBackground(ctx context.Context, sheetID int64, row, column int, color Color) error {
	_, err := s.batch(ctx, "coloring cell", &sheets.Request{
		RepeatCell: &sheets.RepeatCellRequest{
			Range: &sheets.GridRange{
				SheetId:          sheetID,
				StartRowIndex:    int64(row),
				EndRowIndex:      int64(row + 1),
				StartColumnIndex: int64(column),
				EndColumnIndex:   int64(column + 1),
			},
			Cell:   &sheets.CellData{UserEnteredFormat: &sheets.CellFormat{BackgroundColor: apiColor(color)}},
			Fields: "userEnteredFormat.backgroundColor",
		},
	})
	return err
}

func apiColor(c Color) *sheets.Color {
	return &sheets.Color{
		Red:             c.Red,
		Green:           c.Green,
		Blue:            c.Blue,
		ForceSendFields: []string{"Red", "Green", "Blue"},
	}
}
