package db_test

import (
	"context"
	"path/filepath"
	"snatchbot/config"
	"snatchbot/db"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDataset() *config.TomlDataset {
	return &config.TomlDataset{
		Playfields: []config.TomlPlayfield{
			{
				ID:        550,
				LongName:  "Wailing Wastes",
				ShortName: "WW",
				Sites: []config.TomlTowerSite{
					// Out of numeric order on purpose: the catalog serves
					// sites in dataset order
					{Number: 2, Name: "Teary Basin", MinQL: 25, MaxQL: 70, X: 2260, Y: 1220},
					{Number: 1, Name: "Tryngard Plateau", MinQL: 20, MaxQL: 60, X: 1492, Y: 2020},
					{Number: 3, Name: "Sinking Sands", MinQL: 30, MaxQL: 85, X: 940, Y: 640},
				},
			},
			{
				ID:        560,
				LongName:  "Mort",
				ShortName: "MORT",
				Sites: []config.TomlTowerSite{
					{Number: 7, Name: "Blister Ridge", MinQL: 90, MaxQL: 170, X: 3020, Y: 960},
				},
			},
		},
	}
}

func seededReader(t *testing.T) *db.Reader {
	t.Helper()

	path := filepath.Join(t.TempDir(), "catalog.db")
	require.NoError(t, db.Migrate(path))

	seeder, err := db.NewSeeder(path)
	require.NoError(t, err)
	require.NoError(t, seeder.Import(context.Background(), testDataset()))
	require.NoError(t, seeder.Close())

	reader, err := db.NewReader(path)
	require.NoError(t, err)
	t.Cleanup(func() { reader.Close() })

	return reader
}

func TestPlayfieldByName(t *testing.T) {
	reader := seededReader(t)

	tests := []struct {
		name     string
		lookup   string
		expected string
	}{
		{
			name:     "long name",
			lookup:   "Wailing Wastes",
			expected: "WW",
		},
		{
			name:     "short name",
			lookup:   "MORT",
			expected: "MORT",
		},
		{
			name:     "lowercase short name",
			lookup:   "ww",
			expected: "WW",
		},
		{
			name:     "mixed case long name",
			lookup:   "wailing WASTES",
			expected: "WW",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			playfield, err := reader.PlayfieldByName(context.Background(), tt.lookup)
			require.NoError(t, err)
			require.NotNil(t, playfield)
			assert.Equal(t, tt.expected, playfield.ShortName)
		})
	}
}

func TestPlayfieldByNameUnknown(t *testing.T) {
	reader := seededReader(t)

	playfield, err := reader.PlayfieldByName(context.Background(), "ZZ")

	require.NoError(t, err)
	assert.Nil(t, playfield)
}

func TestSitesInPlayfieldKeepsDatasetOrder(t *testing.T) {
	reader := seededReader(t)

	sites, err := reader.SitesInPlayfield(context.Background(), 550)
	require.NoError(t, err)
	require.Len(t, sites, 3)

	// Dataset order, not numeric order
	assert.Equal(t, 2, sites[0].SiteNumber)
	assert.Equal(t, 1, sites[1].SiteNumber)
	assert.Equal(t, 3, sites[2].SiteNumber)

	assert.Equal(t, "WW", sites[0].ShortName)
	assert.Equal(t, "Wailing Wastes", sites[0].LongName)
	assert.Equal(t, "Teary Basin", sites[0].SiteName)
	assert.Equal(t, 25, sites[0].MinQL)
	assert.Equal(t, 70, sites[0].MaxQL)
	assert.Equal(t, 2260, sites[0].CenterX)
	assert.Equal(t, 1220, sites[0].CenterY)
}

func TestSiteByNumber(t *testing.T) {
	reader := seededReader(t)

	site, err := reader.SiteByNumber(context.Background(), 560, 7)
	require.NoError(t, err)
	require.NotNil(t, site)
	assert.Equal(t, "Blister Ridge", site.SiteName)

	missing, err := reader.SiteByNumber(context.Background(), 560, 9)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestAllPlayfields(t *testing.T) {
	reader := seededReader(t)

	playfields, err := reader.AllPlayfields(context.Background())
	require.NoError(t, err)
	require.Len(t, playfields, 2)

	// Alphabetical by long name
	assert.Equal(t, "Mort", playfields[0].LongName)
	assert.Equal(t, "Wailing Wastes", playfields[1].LongName)
}

func TestImportReplacesCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	require.NoError(t, db.Migrate(path))

	seeder, err := db.NewSeeder(path)
	require.NoError(t, err)
	defer seeder.Close()

	require.NoError(t, seeder.Import(context.Background(), testDataset()))

	count, err := seeder.CountPlayfields(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	// A second import fully replaces the previous catalog
	require.NoError(t, seeder.Import(context.Background(), &config.TomlDataset{
		Playfields: []config.TomlPlayfield{
			{ID: 505, LongName: "Avalon", ShortName: "AV"},
		},
	}))

	count, err = seeder.CountPlayfields(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestRollbackDropsLastMigration(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.db")
	require.NoError(t, db.Migrate(path))
	require.NoError(t, db.Rollback(path))

	seeder, err := db.NewSeeder(path)
	require.NoError(t, err)
	defer seeder.Close()

	// The tower_sites table is gone, so importing sites must fail
	err = seeder.Import(context.Background(), testDataset())
	assert.Error(t, err)

	// Migrating again restores the schema
	require.NoError(t, db.Migrate(path))
	assert.NoError(t, seeder.Import(context.Background(), testDataset()))
}
