package towers

import (
	"context"
	"fmt"
	"snatchbot/feed"
	"snatchbot/models"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

var unclaimedSites = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "snatchbot_unclaimed_sites",
	Help: "Unclaimed tower sites in the last committed baseline",
})

// Catalog is the slice of the site database the engine resolves feed regions
// against.
type Catalog interface {
	PlayfieldByName(ctx context.Context, name string) (*models.Playfield, error)
	SitesInPlayfield(ctx context.Context, playfieldID int64) ([]models.TowerSite, error)
}

// ResolveError reports a feed playfield name the catalog does not know. Its
// message doubles as the chat reply for on-demand queries.
type ResolveError struct {
	Playfield string
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("Playfield '%s' could not be found", e.Playfield)
}

// PollOutcome is the result of one scheduled poll.
type PollOutcome struct {
	// Resolved is the full current listing in resolution order
	Resolved []models.TowerSite
	// Fresh holds the sites that were not in the previous baseline
	Fresh []models.TowerSite
	// Announce is false on the baseline-priming poll and when Fresh is empty
	Announce bool
}

// Engine turns feed snapshots into resolved site listings and tracks the
// baseline between polls. A mutex serializes triggers so a scheduled poll and
// an on-demand query cannot interleave their read and commit of the baseline.
type Engine struct {
	mu       sync.Mutex
	catalog  Catalog
	baseline Baseline
}

func NewEngine(catalog Catalog) *Engine {
	return &Engine{
		catalog:  catalog,
		baseline: UnknownBaseline(),
	}
}

// HandleOnDemand resolves a snapshot for a direct query. Resolution is
// strict: a playfield the catalog does not know aborts with a ResolveError
// and leaves the baseline untouched. On success the baseline is overwritten,
// so a manual query also resets the reference point the next scheduled poll
// diffs against.
func (engine *Engine) HandleOnDemand(ctx context.Context, snapshot *models.FeedSnapshot) ([]models.TowerSite, error) {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	resolved, err := engine.resolve(ctx, snapshot, false)
	if err != nil {
		return nil, err
	}

	engine.commit(resolved)
	return resolved, nil
}

// HandlePeriodic resolves a snapshot for a scheduled poll and diffs it
// against the previous baseline. Resolution is lenient: unknown playfields
// are skipped with a warning. The baseline is always overwritten, even when
// the listing is empty, so a site that disappears and later returns is
// announced again.
func (engine *Engine) HandlePeriodic(ctx context.Context, snapshot *models.FeedSnapshot) (*PollOutcome, error) {
	engine.mu.Lock()
	defer engine.mu.Unlock()

	resolved, err := engine.resolve(ctx, snapshot, true)
	if err != nil {
		return nil, err
	}

	previous := engine.baseline
	engine.commit(resolved)

	// The first completed poll only primes the baseline. Announcing here
	// would replay every site that was already unclaimed before startup.
	if !previous.Known() {
		log.WithFields(log.Fields{
			"sites": len(resolved),
		}).Info("Primed tower baseline")
		return &PollOutcome{Resolved: resolved}, nil
	}

	fresh := lo.Filter(resolved, func(site models.TowerSite, _ int) bool {
		return !previous.Contains(site.Key())
	})

	return &PollOutcome{
		Resolved: resolved,
		Fresh:    fresh,
		Announce: len(fresh) > 0,
	}, nil
}

// Baseline returns the current baseline for the ops surface.
func (engine *Engine) Baseline() Baseline {
	engine.mu.Lock()
	defer engine.mu.Unlock()
	return engine.baseline
}

// resolve maps a snapshot to catalog rows. Regions are visited in feed
// order and each region's sites come back in catalog order. Tokens that name
// no catalog row are ignored.
func (engine *Engine) resolve(ctx context.Context, snapshot *models.FeedSnapshot, lenient bool) ([]models.TowerSite, error) {
	var resolved []models.TowerSite

	for _, region := range snapshot.Regions {
		playfield, err := engine.catalog.PlayfieldByName(ctx, region.Playfield)
		if err != nil {
			return nil, fmt.Errorf("error looking up playfield %q: %w", region.Playfield, err)
		}

		if playfield == nil {
			if !lenient {
				return nil, &ResolveError{Playfield: region.Playfield}
			}
			log.WithFields(log.Fields{
				"playfield": region.Playfield,
			}).Warn("Tower feed names a playfield missing from the catalog, skipping")
			continue
		}

		wanted := wantedNumbers(region.Tokens)
		if len(wanted) == 0 {
			continue
		}

		sites, err := engine.catalog.SitesInPlayfield(ctx, playfield.ID)
		if err != nil {
			return nil, fmt.Errorf("error loading sites for playfield %q: %w", region.Playfield, err)
		}

		resolved = append(resolved, lo.Filter(sites, func(site models.TowerSite, _ int) bool {
			return lo.Contains(wanted, site.SiteNumber)
		})...)
	}

	return resolved, nil
}

// commit overwrites the baseline with the keys of the resolved listing.
func (engine *Engine) commit(resolved []models.TowerSite) {
	keys := lo.Map(resolved, func(site models.TowerSite, _ int) models.SiteKey {
		return site.Key()
	})
	engine.baseline = KnownBaseline(keys)
	unclaimedSites.Set(float64(len(keys)))
}

func wantedNumbers(tokens []string) []int {
	var numbers []int
	for _, token := range tokens {
		if number, ok := feed.SiteNumber(token); ok {
			numbers = append(numbers, number)
		}
	}
	return numbers
}
