package db

import (
	"context"
	"database/sql"
	"fmt"

	"snatchbot/config"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	log "github.com/sirupsen/logrus"
)

// Seeder imports the tower dataset into the catalog over the single write
// connection.
type Seeder struct {
	db *sql.DB
}

func NewSeeder(database string) (*Seeder, error) {
	db, err := connection(database)
	if err != nil {
		return nil, err
	}

	return &Seeder{db: db}, nil
}

func (seeder *Seeder) Close() error {
	return seeder.db.Close()
}

// CountPlayfields reports how many playfields the catalog currently holds
func (seeder *Seeder) CountPlayfields(ctx context.Context) (int64, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("COUNT(*)").From("playfields")

	query, args := sb.BuildWithFlavor(sqlbuilder.Flavor(sqlbuilder.SQLite))

	var count int64
	if err := seeder.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count query error: %w", err)
	}

	return count, nil
}

// Import replaces the whole catalog with the dataset in one transaction.
// Insertion order follows the dataset file, which is what defines the
// catalog order the reader serves sites in.
func (seeder *Seeder) Import(ctx context.Context, dataset *config.TomlDataset) error {
	tx, err := seeder.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Reseeding replaces the previous catalog entirely
	for _, table := range []string{"tower_sites", "playfields"} {
		del := sqlbuilder.NewDeleteBuilder()
		del.DeleteFrom(table)
		query, args := del.BuildWithFlavor(sqlbuilder.Flavor(sqlbuilder.SQLite))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}

	siteCount := 0
	for _, playfield := range dataset.Playfields {
		ib := sqlbuilder.NewInsertBuilder()
		ib.InsertInto("playfields")
		ib.Cols("id", "long_name", "short_name")
		ib.Values(playfield.ID, playfield.LongName, playfield.ShortName)

		query, args := ib.BuildWithFlavor(sqlbuilder.Flavor(sqlbuilder.SQLite))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert playfield %s: %w", playfield.ShortName, err)
		}

		if len(playfield.Sites) == 0 {
			continue
		}

		ib = sqlbuilder.NewInsertBuilder()
		ib.InsertInto("tower_sites")
		ib.Cols("playfield_id", "site_number", "site_name", "min_ql", "max_ql", "x_coord", "y_coord")
		for _, site := range playfield.Sites {
			ib.Values(playfield.ID, site.Number, site.Name, site.MinQL, site.MaxQL, site.X, site.Y)
			siteCount++
		}

		query, args = ib.BuildWithFlavor(sqlbuilder.Flavor(sqlbuilder.SQLite))
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("failed to insert sites for %s: %w", playfield.ShortName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit dataset: %w", err)
	}

	log.WithFields(log.Fields{
		"playfields": len(dataset.Playfields),
		"sites":      siteCount,
	}).Info("Seeded tower catalog")

	return nil
}
