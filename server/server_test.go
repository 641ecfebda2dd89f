package server_test

import (
	"context"
	"io"
	"net/http/httptest"
	"snatchbot/models"
	"snatchbot/server"
	"snatchbot/towers"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCatalog resolves a single playfield so a baseline can be committed
// without a database behind the server.
type stubCatalog struct {
	playfield models.Playfield
	sites     []models.TowerSite
}

var _ towers.Catalog = (*stubCatalog)(nil)

func (c *stubCatalog) PlayfieldByName(ctx context.Context, name string) (*models.Playfield, error) {
	if strings.EqualFold(name, c.playfield.LongName) || strings.EqualFold(name, c.playfield.ShortName) {
		match := c.playfield
		return &match, nil
	}
	return nil, nil
}

func (c *stubCatalog) SitesInPlayfield(ctx context.Context, playfieldID int64) ([]models.TowerSite, error) {
	return c.sites, nil
}

func getUnclaimed(t *testing.T, engine *towers.Engine) string {
	t.Helper()

	app := server.Server(&server.ServerConfig{Engine: engine})

	res, err := app.Test(httptest.NewRequest("GET", "/api/unclaimed", nil))
	require.NoError(t, err)
	defer res.Body.Close()

	require.Equal(t, 200, res.StatusCode)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	return string(body)
}

func TestUnclaimedDistinguishesUnknownFromEmpty(t *testing.T) {
	engine := towers.NewEngine(&stubCatalog{})

	// Before any poll completes the baseline is unknown and sites are null
	body := getUnclaimed(t, engine)
	assert.Contains(t, body, `"state":"unknown"`)
	assert.Contains(t, body, `"sites":null`)

	// A completed empty poll commits a known empty baseline, which must be
	// readable from the sites field alone
	_, err := engine.HandleOnDemand(context.Background(), &models.FeedSnapshot{})
	require.NoError(t, err)

	body = getUnclaimed(t, engine)
	assert.Contains(t, body, `"state":"empty"`)
	assert.Contains(t, body, `"sites":[]`)
}

func TestUnclaimedServesCommittedSites(t *testing.T) {
	engine := towers.NewEngine(&stubCatalog{
		playfield: models.Playfield{ID: 550, LongName: "Wailing Wastes", ShortName: "WW"},
		sites: []models.TowerSite{
			{PlayfieldID: 550, ShortName: "WW", LongName: "Wailing Wastes", SiteNumber: 1, SiteName: "Tryngard Plateau"},
		},
	})

	_, err := engine.HandleOnDemand(context.Background(), &models.FeedSnapshot{
		Regions: []models.FeedRegion{{Playfield: "WW", Tokens: []string{"A1"}}},
	})
	require.NoError(t, err)

	body := getUnclaimed(t, engine)
	assert.Contains(t, body, `"state":"populated"`)
	assert.Contains(t, body, `"playfield":"WW"`)
	assert.Contains(t, body, `"site":1`)
}
