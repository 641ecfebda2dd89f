/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"snatchbot/bot"
	"snatchbot/chat"
	"snatchbot/db"
	"snatchbot/feed"
	"snatchbot/server"
	"snatchbot/towers"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func serveCmd() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the bot and its HTTP server",
		Description: `Starts the full bot: the chat gateway connection, the command
dispatcher, the scheduled tower poll and the HTTP ops server.

The scheduled poll fetches the tower feed, resolves it against the site
catalog and broadcasts newly unclaimed sites to the org channel. Org members
can query the current listing with the snatch command at any time.

Migrations run automatically on startup, but the catalog must be seeded
with the seed command before the bot has anything to resolve against.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Value:   "catalog.db",
				Usage:   "SQLite database file location",
				EnvVars: []string{"SNATCHBOT_DATABASE"},
			},
			&cli.IntFlag{
				Name:    "port",
				Aliases: []string{"p"},
				Value:   3000,
				Usage:   "Port for the HTTP ops server",
				EnvVars: []string{"SNATCHBOT_PORT"},
			},
			&cli.StringFlag{
				Name:    "feed",
				Value:   "https://towers.aodevs.org/feed",
				Usage:   "URL of the land control tower feed",
				EnvVars: []string{"SNATCHBOT_FEED"},
			},
			&cli.StringFlag{
				Name:    "gateway",
				Value:   "ws://localhost:7777/ws",
				Usage:   "Websocket endpoint of the chat gateway",
				EnvVars: []string{"SNATCHBOT_GATEWAY"},
			},
			&cli.StringFlag{
				Name:    "character",
				Usage:   "Bot character to log in as",
				EnvVars: []string{"SNATCHBOT_CHARACTER"},
			},
			&cli.StringFlag{
				Name:    "password",
				Usage:   "Password for the bot character",
				EnvVars: []string{"SNATCHBOT_PASSWORD"},
			},
			&cli.StringFlag{
				Name:    "channel",
				Value:   "org",
				Usage:   "Org channel announcements are broadcast to",
				EnvVars: []string{"SNATCHBOT_CHANNEL"},
			},
			&cli.StringFlag{
				Name:    "prefix",
				Value:   "!",
				Usage:   "Command prefix in channel messages",
				EnvVars: []string{"SNATCHBOT_PREFIX"},
			},
			&cli.DurationFlag{
				Name:    "poll-interval",
				Value:   30 * time.Minute,
				Usage:   "How often to poll the tower feed",
				EnvVars: []string{"SNATCHBOT_POLL_INTERVAL"},
			},
			&cli.StringFlag{
				Name:    "user-agent",
				Value:   "snatchbot v1.0.0",
				Usage:   "User agent for feed and gateway requests",
				EnvVars: []string{"SNATCHBOT_USER_AGENT"},
			},
		},
		Action: func(ctx *cli.Context) error {

			fmt.Println("Starting snatchbot...")

			// Stop on SIGINT or SIGTERM
			runCtx, stop := signal.NotifyContext(ctx.Context, os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := db.Migrate(ctx.String("database")); err != nil {
				return fmt.Errorf("failed to run migrations: %w", err)
			}

			reader, err := db.NewReader(ctx.String("database"))
			if err != nil {
				return err
			}
			defer reader.Close()

			engine := towers.NewEngine(reader)
			fetcher := feed.NewClient(ctx.String("feed"), ctx.String("user-agent"))
			module := towers.NewModule(fetcher, reader, engine)

			chatClient := chat.NewClient(chat.Config{
				Gateway:   ctx.String("gateway"),
				Character: ctx.String("character"),
				Password:  ctx.String("password"),
				Channel:   ctx.String("channel"),
				UserAgent: ctx.String("user-agent"),
			})

			dispatcher := bot.New(chatClient, bot.Config{
				Prefix: ctx.String("prefix"),
			})
			dispatcher.Register("snatch", func(cmdCtx context.Context, cmd *bot.Command) string {
				return module.HandleSnatch(cmdCtx)
			})
			dispatcher.Register("sites", func(cmdCtx context.Context, cmd *bot.Command) string {
				return module.HandleSites(cmdCtx, cmd.Args)
			})

			scheduler := bot.NewScheduler()
			scheduler.Every(ctx.Duration("poll-interval"), "tower-poll", func(pollCtx context.Context) {
				if message, _ := module.Poll(pollCtx); message != "" {
					chatClient.Broadcast(message)
				}
			})

			app := server.Server(&server.ServerConfig{
				Reader: reader,
				Engine: engine,
			})

			// Chat events flow from the gateway client to the dispatcher
			events := make(chan chat.Event, 1024)

			var wg sync.WaitGroup

			wg.Add(1)
			go func() {
				defer wg.Done()
				chatClient.Run(runCtx, events)
			}()

			wg.Add(1)
			go func() {
				defer wg.Done()
				dispatcher.Run(runCtx, events)
			}()

			wg.Add(1)
			go func() {
				defer wg.Done()
				scheduler.Run(runCtx)
			}()

			go func() {
				fmt.Println("Starting server...")
				if err := app.Listen(fmt.Sprintf(":%d", ctx.Int("port"))); err != nil {
					log.Panic(err)
				}
			}()

			<-runCtx.Done()

			fmt.Println("Gracefully shutting down...")
			if err := app.ShutdownWithTimeout(60 * time.Second); err != nil {
				log.Errorf("Error shutting down server: %s", err)
			}
			wg.Wait()

			fmt.Println("Done!")
			return nil
		},
	}
}
