package towers_test

import (
	"context"
	"snatchbot/feed"
	"snatchbot/towers"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	payload []byte
	err     error
}

var _ towers.Fetcher = (*fakeFetcher)(nil)

func (f *fakeFetcher) Fetch(ctx context.Context) ([]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.payload, nil
}

func testModule(fetcher *fakeFetcher) (*towers.Module, *towers.Engine) {
	catalog := testCatalog()
	engine := towers.NewEngine(catalog)
	return towers.NewModule(fetcher, catalog, engine), engine
}

func TestHandleSnatchListsUnclaimedSites(t *testing.T) {
	module, _ := testModule(&fakeFetcher{
		payload: []byte(`{"Wailing Wastes": {"A1": {}, "A3": {}}}`),
	})

	reply := module.HandleSnatch(context.Background())

	assert.Contains(t, reply, ">2 sites</a> are ready to be snatched by your org.")
	assert.Contains(t, reply, "##highlight##WW 1##end##")
	assert.Contains(t, reply, "##highlight##WW 3##end##")
}

func TestHandleSnatchEmptyFeed(t *testing.T) {
	module, engine := testModule(&fakeFetcher{payload: []byte(`{}`)})

	reply := module.HandleSnatch(context.Background())

	assert.Equal(t, "There is nothing to snatch right now.", reply)
	// Even an empty listing counts as a completed poll
	assert.Equal(t, "empty", engine.Baseline().Label())
}

func TestHandleSnatchUnknownPlayfield(t *testing.T) {
	module, engine := testModule(&fakeFetcher{
		payload: []byte(`{"ZZ": {"A1": {}}}`),
	})

	reply := module.HandleSnatch(context.Background())

	assert.Equal(t, "Playfield 'ZZ' could not be found", reply)
	assert.False(t, engine.Baseline().Known())
}

func TestHandleSnatchTransportError(t *testing.T) {
	module, engine := testModule(&fakeFetcher{
		err: &feed.TransportError{Err: assert.AnError},
	})

	reply := module.HandleSnatch(context.Background())

	assert.Contains(t, reply, "The tower feed could not be reached")
	assert.Contains(t, reply, assert.AnError.Error())
	assert.Contains(t, reply, "Please try again later.")
	assert.False(t, engine.Baseline().Known())
}

func TestHandleSnatchUpstreamError(t *testing.T) {
	module, _ := testModule(&fakeFetcher{
		payload: []byte(`{"error": "database offline"}`),
	})

	reply := module.HandleSnatch(context.Background())

	assert.Contains(t, reply, "The tower feed reported an error")
	assert.Contains(t, reply, "database offline")
}

func TestHandleSnatchMalformedPayload(t *testing.T) {
	module, _ := testModule(&fakeFetcher{
		payload: []byte(`<html>Bad Gateway</html>`),
	})

	reply := module.HandleSnatch(context.Background())

	assert.Equal(t, "The tower feed sent a reply this bot could not understand. Please try again later.", reply)
}

func TestPollAnnouncesNewSites(t *testing.T) {
	fetcher := &fakeFetcher{payload: []byte(`{}`)}
	module, _ := testModule(fetcher)

	// First poll primes the baseline and stays quiet
	message, fresh := module.Poll(context.Background())
	assert.Empty(t, message)
	assert.Empty(t, fresh)

	fetcher.payload = []byte(`{"Wailing Wastes": {"A1": {}}}`)

	message, fresh = module.Poll(context.Background())

	assert.Contains(t, message, "##highlight##ATTENTION##end##")
	assert.Contains(t, message, ">1 new site</a> is ready to be snatched by your org.")
	require.Len(t, fresh, 1)
	assert.Equal(t, 1, fresh[0].SiteNumber)
}

func TestPollIdenticalStaysQuiet(t *testing.T) {
	fetcher := &fakeFetcher{payload: []byte(`{"Wailing Wastes": {"A1": {}}}`)}
	module, _ := testModule(fetcher)

	module.Poll(context.Background())
	message, fresh := module.Poll(context.Background())

	assert.Empty(t, message)
	assert.Empty(t, fresh)
}

func TestPollStaysQuietOnErrors(t *testing.T) {
	module, engine := testModule(&fakeFetcher{
		err: &feed.TransportError{Err: assert.AnError},
	})

	message, fresh := module.Poll(context.Background())

	assert.Empty(t, message)
	assert.Empty(t, fresh)
	assert.False(t, engine.Baseline().Known())
}

func TestHandleSitesListsPlayfields(t *testing.T) {
	module, _ := testModule(&fakeFetcher{})

	reply := module.HandleSites(context.Background(), nil)

	assert.Contains(t, reply, "Tower playfields:")
	assert.Contains(t, reply, "Wailing Wastes")
	assert.Contains(t, reply, "Mort")
}

func TestHandleSitesListsPlayfieldSites(t *testing.T) {
	module, _ := testModule(&fakeFetcher{})

	reply := module.HandleSites(context.Background(), []string{"ww"})

	assert.Contains(t, reply, "Tower sites in Wailing Wastes")
	assert.Contains(t, reply, ">3 sites</a>")
	assert.Contains(t, reply, "Tryngard Plateau")
}

func TestHandleSitesUnknownPlayfield(t *testing.T) {
	module, _ := testModule(&fakeFetcher{})

	reply := module.HandleSites(context.Background(), []string{"ZZ"})

	assert.Equal(t, "Playfield 'ZZ' could not be found", reply)
}

func TestHandleSitesSingleSite(t *testing.T) {
	module, _ := testModule(&fakeFetcher{})

	reply := module.HandleSites(context.Background(), []string{"WW", "3"})

	assert.Contains(t, reply, "##highlight##WW 3##end##")
	assert.Contains(t, reply, "Sinking Sands")
}

func TestHandleSitesMissingSite(t *testing.T) {
	module, _ := testModule(&fakeFetcher{})

	reply := module.HandleSites(context.Background(), []string{"WW", "9"})

	assert.Equal(t, "WW has no site 9.", reply)
}

func TestHandleSitesBadNumber(t *testing.T) {
	module, _ := testModule(&fakeFetcher{})

	reply := module.HandleSites(context.Background(), []string{"WW", "three"})

	assert.Equal(t, "Usage: sites <playfield> [site number]", reply)
}
