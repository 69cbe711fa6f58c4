package main

import (
	"fmt"
	"io"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"maintsync/pkg/config"
	"maintsync/pkg/menu"
	"maintsync/pkg/plugins"
)

func runMenu(cmd *cobra.Command, args []string) error {
	a, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	shell := &menu.Shell{
		Tracker:  a.clickup,
		Syncer:   a.syncer,
		Eval:     a.eval,
		Scope:    scope(a.cfg),
		Query:    a.cfg.TaskQuery(),
		Statuses: a.cfg.Statuses,
	}
	return shell.Run(cmd.Context(), os.Stdin, cmd.OutOrStdout())
}

func menuCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "Browse sites and run maintenance tasks interactively",
		Args:  cobra.NoArgs,
		RunE:  runMenu,
	}
}

func syncCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile this month's sheet with ClickUp",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			p := menu.NewPrompter(os.Stdin, cmd.OutOrStdout())
			a.syncer.Out = cmd.OutOrStdout()
			a.syncer.Confirm = func(question string) (bool, error) {
				if yes {
					return true, nil
				}
				return p.Confirm(question)
			}
			out, err := a.syncer.Run(cmd.Context())
			if err != nil {
				return err
			}
			log.Debugf("sync of %q: created=%t applied=%t %+v", out.Title, out.Created, out.Applied, out.Result)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Apply changes without asking")
	return cmd
}

func sheetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheet",
		Short: "Work with the monthly sheet",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Clone the template for the current month",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			a.syncer.Out = cmd.OutOrStdout()
			_, _, err = a.syncer.CreateMonthSheet(cmd.Context())
			return err
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <site> <column> <value>",
		Short: "Write one cell of a site's row in this month's sheet (column by header or letters)",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()
			return a.syncer.UpdateSiteField(cmd.Context(), args[0], args[1], args[2])
		},
	})
	return cmd
}

func pluginsCmd() *cobra.Command {
	var failed []int
	cmd := &cobra.Command{
		Use:   "plugins",
		Short: "Turn a plugin update listing read from stdin into a report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return err
			}
			names := plugins.Parse(string(text))
			if len(names) == 0 {
				return errors.New("no plugins found in input")
			}
			r := plugins.NewReport(names)
			r.Toggle(failed...)
			r.Render(cmd.OutOrStdout())
			return nil
		},
	}
	cmd.Flags().IntSliceVar(&failed, "failed", nil, "Numbers of the plugins whose update failed")
	return cmd
}

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Check the ClickUp and Google Sheets connections",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := connect(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			u, err := a.clickup.User(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "ClickUp: connected as %s\n", u.Username)

			_, ok, err := a.sheet.SheetID(cmd.Context(), a.cfg.Template)
			if err != nil {
				return err
			}
			if !ok {
				return errors.Errorf("template sheet %q not found", a.cfg.Template)
			}
			fmt.Fprintf(out, "Google Sheets: template %q found\n", a.cfg.Template)
			return nil
		},
	}
}

func configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write a starter TOML configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "maintsync.toml"
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.Init(path, nil); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	})
	return cmd
}
