package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"snatchbot/models"
	"strings"
	"time"

	sqlbuilder "github.com/huandu/go-sqlbuilder"
	_ "modernc.org/sqlite"
)

// Reader serves catalog lookups from a read-only connection pool
type Reader struct {
	db *sql.DB
}

func NewReader(database string) (*Reader, error) {
	// Open in read-only mode with optimized settings
	db, err := sql.Open("sqlite", fmt.Sprintf("%s?mode=ro&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", database))
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	// Set connection pool settings for reader
	db.SetMaxOpenConns(4)            // Allow multiple concurrent readers
	db.SetMaxIdleConns(2)            // Keep some connections ready
	db.SetConnMaxLifetime(time.Hour) // Recreate connections after an hour
	db.SetConnMaxIdleTime(time.Hour) // Close idle connections after an hour

	// Configure additional pragmas for better read performance
	if _, err := db.Exec(`
		PRAGMA busy_timeout = 5000;
		PRAGMA synchronous = NORMAL;
		PRAGMA cache_size = -32000; -- 32MB cache
		PRAGMA temp_store = MEMORY;
		PRAGMA mmap_size = 268435456; -- 256MB memory mapped I/O
	`); err != nil {
		return nil, fmt.Errorf("failed to set pragmas: %w", err)
	}

	return &Reader{
		db: db,
	}, nil
}

func (reader *Reader) Close() error {
	return reader.db.Close()
}

// PlayfieldByName looks a playfield up by its long name or short code,
// case-insensitively. Returns nil without error when the name is unknown.
func (reader *Reader) PlayfieldByName(ctx context.Context, name string) (*models.Playfield, error) {
	lowered := strings.ToLower(name)

	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "long_name", "short_name").From("playfields")
	sb.Where(sb.Or(
		sb.Equal("LOWER(long_name)", lowered),
		sb.Equal("LOWER(short_name)", lowered),
	))

	query, args := sb.BuildWithFlavor(sqlbuilder.Flavor(sqlbuilder.SQLite))

	var playfield models.Playfield
	err := reader.db.QueryRowContext(ctx, query, args...).Scan(&playfield.ID, &playfield.LongName, &playfield.ShortName)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("playfield query error: %w", err)
	}

	return &playfield, nil
}

// SitesInPlayfield returns every tower site of a playfield in catalog order,
// i.e. the order the dataset was loaded in, not sorted by site number.
func (reader *Reader) SitesInPlayfield(ctx context.Context, playfieldID int64) ([]models.TowerSite, error) {
	sb := siteSelect()
	sb.Where(sb.Equal("tower_sites.playfield_id", playfieldID))
	sb.OrderBy("tower_sites.rowid").Asc()

	query, args := sb.BuildWithFlavor(sqlbuilder.Flavor(sqlbuilder.SQLite))

	rows, err := reader.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("site query error: %w", err)
	}
	defer rows.Close()

	var sites []models.TowerSite
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, fmt.Errorf("site scan error: %w", err)
		}
		sites = append(sites, site)
	}

	return sites, rows.Err()
}

// SiteByNumber returns a single site, or nil when the playfield has no site
// with that number.
func (reader *Reader) SiteByNumber(ctx context.Context, playfieldID int64, siteNumber int) (*models.TowerSite, error) {
	sb := siteSelect()
	sb.Where(
		sb.Equal("tower_sites.playfield_id", playfieldID),
		sb.Equal("tower_sites.site_number", siteNumber),
	)

	query, args := sb.BuildWithFlavor(sqlbuilder.Flavor(sqlbuilder.SQLite))

	rows, err := reader.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("site query error: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}

	site, err := scanSite(rows)
	if err != nil {
		return nil, fmt.Errorf("site scan error: %w", err)
	}

	return &site, nil
}

// AllPlayfields lists the known playfields alphabetically
func (reader *Reader) AllPlayfields(ctx context.Context) ([]models.Playfield, error) {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select("id", "long_name", "short_name").From("playfields")
	sb.OrderBy("long_name").Asc()

	query, args := sb.BuildWithFlavor(sqlbuilder.Flavor(sqlbuilder.SQLite))

	rows, err := reader.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("playfield query error: %w", err)
	}
	defer rows.Close()

	var playfields []models.Playfield
	for rows.Next() {
		var playfield models.Playfield
		if err := rows.Scan(&playfield.ID, &playfield.LongName, &playfield.ShortName); err != nil {
			return nil, fmt.Errorf("playfield scan error: %w", err)
		}
		playfields = append(playfields, playfield)
	}

	return playfields, rows.Err()
}

func siteSelect() *sqlbuilder.SelectBuilder {
	sb := sqlbuilder.NewSelectBuilder()
	sb.Select(
		"tower_sites.playfield_id",
		"playfields.short_name",
		"playfields.long_name",
		"tower_sites.site_number",
		"tower_sites.site_name",
		"tower_sites.min_ql",
		"tower_sites.max_ql",
		"tower_sites.x_coord",
		"tower_sites.y_coord",
	).From("tower_sites")
	sb.Join("playfields", "playfields.id = tower_sites.playfield_id")
	return sb
}

func scanSite(rows *sql.Rows) (models.TowerSite, error) {
	var site models.TowerSite
	err := rows.Scan(
		&site.PlayfieldID,
		&site.ShortName,
		&site.LongName,
		&site.SiteNumber,
		&site.SiteName,
		&site.MinQL,
		&site.MaxQL,
		&site.CenterX,
		&site.CenterY,
	)
	return site, err
}
