package maintenance

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"
	"gitlab.com/tozd/go/errors"

	"maintsync/pkg/sheets"
	"maintsync/pkg/table"
)

// Columns searched by UpdateSiteField, A through Z.
const siteColumns = 26

// UpdateSiteField writes value into the current month's sheet, in the row of
// site and the column headed column (or with those letters), and colors the
// cell by its value. An empty value is written as "Incomplete".
func (s *Syncer) UpdateSiteField(ctx context.Context, site, column, value string) error {
	title := sheets.MonthTitle(nowFunc())
	id, ok, err := s.Sheet.SheetID(ctx, title)
	if err != nil {
		return errors.Errorf("looking up sheet %q: %w", title, err)
	}
	if !ok {
		return errors.Errorf("%w: %q", ErrNoMonthSheet, title)
	}

	values, err := s.Sheet.GetValues(ctx, sheets.RangeA1(title, siteColumns, sheets.MaxRows))
	if err != nil {
		return errors.Errorf("reading sheet %q: %w", title, err)
	}
	if len(values) == 0 {
		return errors.Errorf("%w: %q", ErrEmptySheet, title)
	}
	if len(values[0]) <= table.ColItem {
		return errors.Errorf("header of %q has only %d column(s)", title, len(values[0]))
	}

	col := columnIndex(values[0], column)
	if col < 0 {
		return errors.Errorf("%w: %q", ErrColumnNotFound, column)
	}
	row := siteRow(table.FromValues(values), site)
	if row < 0 {
		return errors.Errorf("%w: %q", ErrSiteNotFound, site)
	}

	if strings.TrimSpace(value) == "" {
		value = incomplete
	}
	cell := sheets.CellA1(title, row, col)
	if err := s.Sheet.UpdateValues(ctx, cell, [][]string{{value}}); err != nil {
		return errors.Errorf("writing %s: %w", cell, err)
	}
	if err := s.Sheet.SetBackground(ctx, id, row, col, sheets.CellColor(value)); err != nil {
		return errors.Errorf("coloring %s: %w", cell, err)
	}
	log.Infof("Set %s of %q to %q", column, site, value)
	return nil
}

// columnIndex finds column by header text, or else by its letters ("E"),
// as long as the letters name a column the header has.
func columnIndex(header []string, column string) int {
	if i := headerIndex(header, column); i >= 0 {
		return i
	}
	if i, err := sheets.ColumnIndex(strings.TrimSpace(column)); err == nil && i < len(header) {
		return i
	}
	return -1
}

func headerIndex(header []string, column string) int {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(column)) {
			return i
		}
	}
	return -1
}

func siteRow(t table.Table, site string) int {
	for i, r := range t {
		if r.Kind == table.KindItem && strings.EqualFold(strings.TrimSpace(r.ItemName()), strings.TrimSpace(site)) {
			return i
		}
	}
	return -1
}
