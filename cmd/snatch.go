/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"snatchbot/chat"
	"snatchbot/db"
	"snatchbot/feed"
	"snatchbot/towers"

	"github.com/urfave/cli/v2"
)

func snatchCmd() *cli.Command {
	return &cli.Command{
		Name:  "snatch",
		Usage: "Query the tower feed once from the command line",
		Description: `Fetches the tower feed once, resolves it against the site catalog
and prints the unclaimed site listing to the terminal.

Uses the same resolution path as the in-game snatch command, so the catalog
must be migrated and seeded first.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Value:   "catalog.db",
				Usage:   "SQLite database file location",
				EnvVars: []string{"SNATCHBOT_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "feed",
				Value:   "https://towers.aodevs.org/feed",
				Usage:   "URL of the land control tower feed",
				EnvVars: []string{"SNATCHBOT_FEED"},
			},
			&cli.StringFlag{
				Name:    "user-agent",
				Value:   "snatchbot v1.0.0",
				Usage:   "User agent for feed requests",
				EnvVars: []string{"SNATCHBOT_USER_AGENT"},
			},
		},
		Action: func(ctx *cli.Context) error {
			reader, err := db.NewReader(ctx.String("database"))
			if err != nil {
				return err
			}
			defer reader.Close()

			engine := towers.NewEngine(reader)
			fetcher := feed.NewClient(ctx.String("feed"), ctx.String("user-agent"))
			module := towers.NewModule(fetcher, reader, engine)

			fmt.Println(chat.RenderTerminal(module.HandleSnatch(ctx.Context)))
			return nil
		},
	}
}
