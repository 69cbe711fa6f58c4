package main

import (
	"context"
	"net/http"

	"gitlab.com/tozd/go/errors"

	"maintsync/pkg/clickup"
	"maintsync/pkg/config"
	"maintsync/pkg/evaluate"
	"maintsync/pkg/maintenance"
	"maintsync/pkg/sheets"
)

// app holds the connected clients every command works with.
type app struct {
	cfg     *config.Config
	sheet   *sheets.SheetClient
	clickup *clickup.Client
	syncer  *maintenance.Syncer
	eval    *evaluate.Evaluator
}

func connect(ctx context.Context) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rules, err := cfg.StatusRules()
	if err != nil {
		return nil, err
	}

	sheet := sheets.NewSheetClient(cfg.GoogleKeyPath, cfg.SheetID)
	if err := sheet.Connect(ctx); err != nil {
		return nil, errors.Errorf("connecting to Google Sheets: %w", err)
	}
	cu := clickup.New(cfg.ClickUpBaseURL, cfg.ClickUpToken, clickup.WithTimeout(cfg.HTTPTimeout))

	return &app{
		cfg:     cfg,
		sheet:   sheet,
		clickup: cu,
		syncer: &maintenance.Syncer{
			Sheet: sheet,
			Store: cu,
			Fetch: maintenance.FetchOptions{
				Scope:   scope(cfg),
				Query:   cfg.TaskQuery(),
				Columns: cfg.AttributeColumns,
				Limit:   cfg.FetchConcurrency,
			},
			Template: cfg.Template,
			Statuses: rules,
		},
		eval: evaluate.New(
			evaluate.NewWordPressVersions(&http.Client{Timeout: cfg.HTTPTimeout}),
			evaluate.NewWhois(cfg.HTTPTimeout),
		),
	}, nil
}

func scope(cfg *config.Config) maintenance.Scope {
	return maintenance.Scope{TeamID: cfg.TeamID, SpaceID: cfg.SpaceID}
}

func (a *app) Close() {
	_ = a.sheet.Close()
}
