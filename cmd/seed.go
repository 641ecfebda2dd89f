/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"

	"snatchbot/config"
	"snatchbot/db"

	"github.com/cqroot/prompt"
	"github.com/urfave/cli/v2"
)

func seedCmd() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Seed the tower site catalog",
		Description: `Seeds the tower site catalog from a TOML dataset file.

Replaces the whole catalog: all playfields and sites in the database are
dropped and reloaded from the dataset. The dataset order decides the order
sites are listed in, so keep it stable between seeds.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "database",
				Aliases: []string{"d"},
				Value:   "catalog.db",
				Usage:   "SQLite database file location",
				EnvVars: []string{"SNATCHBOT_DATABASE"},
			},
			&cli.StringFlag{
				Name:    "dataset",
				Aliases: []string{"f"},
				Value:   "config/towers.toml",
				Usage:   "Path to the tower site dataset",
				EnvVars: []string{"SNATCHBOT_DATASET"},
			},
			&cli.BoolFlag{
				Name:    "yes",
				Aliases: []string{"y"},
				Usage:   "Replace an existing catalog without asking",
			},
		},
		Action: func(ctx *cli.Context) error {
			dataset, err := config.LoadDataset(ctx.String("dataset"))
			if err != nil {
				return fmt.Errorf("failed to load dataset: %w", err)
			}

			seeder, err := db.NewSeeder(ctx.String("database"))
			if err != nil {
				return err
			}
			defer seeder.Close()

			count, err := seeder.CountPlayfields(ctx.Context)
			if err != nil {
				return err
			}

			if count > 0 && !ctx.Bool("yes") {
				answer, err := prompt.New().Ask("Catalog already seeded. Replace it?").Choose([]string{"yes", "no"})
				if err != nil {
					return err
				}
				if answer != "yes" {
					fmt.Println("Keeping existing catalog")
					return nil
				}
			}

			if err := seeder.Import(ctx.Context, dataset); err != nil {
				return fmt.Errorf("failed to seed catalog: %w", err)
			}

			fmt.Println("Seeded catalog from", ctx.String("dataset"))
			return nil
		},
	}
}
