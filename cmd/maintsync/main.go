package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	verbose    bool
	configPath string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:           "maintsync",
		Short:         "Keep the monthly maintenance sheet in step with ClickUp",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				log.SetLevel(log.DebugLevel)
			}
			log.SetFormatter(&log.TextFormatter{
				FullTimestamp: true,
			})
		},
		RunE: runMenu,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")
	root.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Configuration file (.env or .toml)")

	root.AddCommand(menuCmd())
	root.AddCommand(syncCmd())
	root.AddCommand(sheetCmd())
	root.AddCommand(pluginsCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(configCmd())

	if err := root.ExecuteContext(ctx); err != nil {
		log.Fatalf("%v", err)
	}
}
