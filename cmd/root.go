/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func RootApp() *cli.App {
	return &cli.App{
		Name:  "snatchbot",
		Usage: "An org bot that watches for unclaimed tower sites",
		Description: `An org bot that keeps watch over the land control tower feed.

		Snatchbot polls the tower feed for unclaimed sites, resolves them
		against a local site catalog and announces newly unclaimed sites in
		org chat. Org members can query the current listing on demand with
		the snatch command or browse the catalog with the sites command.

		Flags can generally be set via environment variables, e.g.:

		--database => SNATCHBOT_DATABASE=catalog.db
		--port => SNATCHBOT_PORT=3000
		`,
		Commands: []*cli.Command{
			serveCmd(),
			migrateCmd(),
			rollbackCmd(),
			seedCmd(),
			snatchCmd(),
			watchCmd(),
		},
		Action: func(ctx *cli.Context) error {
			// Show help if no command is specified
			return ctx.App.Run([]string{"", "help"})
		},
	}
}

// Execute runs the root app and exits on error.
func Execute() {
	if err := RootApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
