/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"snatchbot/bot"
	"snatchbot/db"
	"snatchbot/feed"
	"snatchbot/models"
	"snatchbot/towers"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Log newly unclaimed tower sites to the command line",
		Description: `Polls the tower feed on an interval and prints each newly unclaimed
site to stdout.

Returns each site as a JSON object on a single line. Use a tool like jq to
process the output.

Prints all other log messages to stderr.`,
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
			&cli.DurationFlag{
				Name:    "poll-interval",
				Value:   30 * time.Minute,
				Usage:   "How often to poll the tower feed",
				EnvVars: []string{"SNATCHBOT_POLL_INTERVAL"},
			},
		},
		Action: func(ctx *cli.Context) error {
			// Keep stdout clean for the JSON site lines
			log.SetOutput(os.Stderr)

			runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			reader, err := db.NewReader(ctx.String("database"))
			if err != nil {
				return err
			}
			defer reader.Close()

			engine := towers.NewEngine(reader)
			fetcher := feed.NewClient(ctx.String("feed"), ctx.String("user-agent"))
			module := towers.NewModule(fetcher, reader, engine)

			scheduler := bot.NewScheduler()
			scheduler.Every(ctx.Duration("poll-interval"), "tower-poll", func(pollCtx context.Context) {
				_, fresh := module.Poll(pollCtx)
				for _, site := range fresh {
					printStdout(&site)
				}
			})

			fmt.Fprintln(os.Stderr, "Watching the tower feed...")
			scheduler.Run(runCtx)
			return nil
		},
	}
}

func printStdout(site *models.TowerSite) {
	// Print as single JSON string on a single line
	siteJson, err := json.Marshal(site)
	if err == nil {
		fmt.Println(string(siteJson))
	}
}
