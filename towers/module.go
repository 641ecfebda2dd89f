package towers

import (
	"context"
	"errors"
	"fmt"
	"snatchbot/chat"
	"snatchbot/feed"
	"snatchbot/models"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// Fetch deadlines per trigger. A player waiting on a command gets a short
// one; the scheduled path can afford to wait out a slow feed.
const (
	onDemandTimeout  = 5 * time.Second
	scheduledTimeout = 20 * time.Second
)

var (
	pollsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snatchbot_polls_total",
		Help: "The total number of completed tower feed polls",
	}, []string{"trigger"})
	pollErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "snatchbot_poll_errors_total",
		Help: "The total number of failed tower feed polls",
	}, []string{"trigger"})
	announcements = promauto.NewCounter(prometheus.CounterOpts{
		Name: "snatchbot_announcements_total",
		Help: "The total number of new-site announcements broadcast to org chat",
	})
)

// Fetcher is the one-shot feed fetch the module rides on.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Browser extends the engine's catalog view with the lookups the sites
// command needs.
type Browser interface {
	Catalog
	AllPlayfields(ctx context.Context) ([]models.Playfield, error)
	SiteByNumber(ctx context.Context, playfieldID int64, siteNumber int) (*models.TowerSite, error)
}

// Module ties the feed client, catalog and engine together behind the chat
// commands and the scheduled poll.
type Module struct {
	fetcher Fetcher
	catalog Browser
	engine  *Engine
}

func NewModule(fetcher Fetcher, catalog Browser, engine *Engine) *Module {
	return &Module{
		fetcher: fetcher,
		catalog: catalog,
		engine:  engine,
	}
}

// Engine exposes the baseline tracker for the ops surface.
func (module *Module) Engine() *Engine {
	return module.engine
}

// HandleSnatch answers the snatch command with the full current listing.
// Failures map to chat-friendly replies here so the dispatcher can stay
// ignorant of the error taxonomy.
func (module *Module) HandleSnatch(ctx context.Context) string {
	snapshot, err := module.fetchSnapshot(ctx, onDemandTimeout)
	if err != nil {
		pollErrors.WithLabelValues("command").Inc()
		return snatchErrorReply(err)
	}

	resolved, err := module.engine.HandleOnDemand(ctx, snapshot)
	if err != nil {
		pollErrors.WithLabelValues("command").Inc()
		return snatchErrorReply(err)
	}

	pollsTotal.WithLabelValues("command").Inc()

	if len(resolved) == 0 {
		return ReplyNothingToSnatch
	}

	return RenderListing(resolved, false)
}

// Poll runs one scheduled poll. The returned message is empty when nothing
// should be broadcast; transport, parse and catalog failures abort silently
// with the baseline untouched. Fresh carries the newly unclaimed sites for
// callers that want the raw listing.
func (module *Module) Poll(ctx context.Context) (message string, fresh []models.TowerSite) {
	snapshot, err := module.fetchSnapshot(ctx, scheduledTimeout)
	if err != nil {
		pollErrors.WithLabelValues("scheduled").Inc()
		log.WithFields(log.Fields{
			"error": err,
		}).Warn("Scheduled tower poll aborted")
		return "", nil
	}

	outcome, err := module.engine.HandlePeriodic(ctx, snapshot)
	if err != nil {
		pollErrors.WithLabelValues("scheduled").Inc()
		log.WithFields(log.Fields{
			"error": err,
		}).Warn("Scheduled tower poll aborted")
		return "", nil
	}

	pollsTotal.WithLabelValues("scheduled").Inc()

	if !outcome.Announce {
		return "", nil
	}

	announcements.Inc()
	return RenderListing(outcome.Fresh, true), outcome.Fresh
}

// HandleSites answers the sites browse command: no arguments lists the known
// playfields, one argument lists a playfield's sites, two look up a single
// site.
func (module *Module) HandleSites(ctx context.Context, args []string) string {
	ctx, cancel := context.WithTimeout(ctx, onDemandTimeout)
	defer cancel()

	if len(args) == 0 {
		return module.renderPlayfields(ctx)
	}

	playfield, err := module.catalog.PlayfieldByName(ctx, args[0])
	if err != nil {
		log.Errorf("Error looking up playfield %q: %s", args[0], err)
		return "Something went wrong while reading the tower catalog. Please try again later."
	}
	if playfield == nil {
		return (&ResolveError{Playfield: args[0]}).Error()
	}

	if len(args) == 1 {
		return module.renderPlayfieldSites(ctx, playfield)
	}

	number, err := strconv.Atoi(args[1])
	if err != nil {
		return "Usage: sites <playfield> [site number]"
	}

	site, err := module.catalog.SiteByNumber(ctx, playfield.ID, number)
	if err != nil {
		log.Errorf("Error looking up site %s %d: %s", playfield.ShortName, number, err)
		return "Something went wrong while reading the tower catalog. Please try again later."
	}
	if site == nil {
		return fmt.Sprintf("%s has no site %d.", playfield.ShortName, number)
	}

	return RenderSite(*site)
}

func (module *Module) renderPlayfields(ctx context.Context) string {
	playfields, err := module.catalog.AllPlayfields(ctx)
	if err != nil {
		log.Errorf("Error listing playfields: %s", err)
		return "Something went wrong while reading the tower catalog. Please try again later."
	}
	if len(playfields) == 0 {
		return "The tower catalog is empty. Seed it first."
	}

	lines := lo.Map(playfields, func(playfield models.Playfield, _ int) string {
		return fmt.Sprintf("%s %s", chat.Highlight(playfield.ShortName), playfield.LongName)
	})

	return fmt.Sprintf("Tower playfields: %s", chat.Blob(
		fmt.Sprintf("%d playfields", len(playfields)),
		"Tower playfields",
		strings.Join(lines, "\n"),
	))
}

func (module *Module) renderPlayfieldSites(ctx context.Context, playfield *models.Playfield) string {
	sites, err := module.catalog.SitesInPlayfield(ctx, playfield.ID)
	if err != nil {
		log.Errorf("Error listing sites for %q: %s", playfield.ShortName, err)
		return "Something went wrong while reading the tower catalog. Please try again later."
	}
	if len(sites) == 0 {
		return fmt.Sprintf("No tower sites are recorded for %s.", playfield.LongName)
	}

	blocks := lo.Map(sites, func(site models.TowerSite, _ int) string {
		return RenderSite(site)
	})

	return fmt.Sprintf("Tower sites in %s: %s", playfield.LongName, chat.Blob(
		fmt.Sprintf("%d sites", len(sites)),
		fmt.Sprintf("Tower sites in %s", playfield.LongName),
		strings.Join(blocks, "\n\n"+chat.PageBreak),
	))
}

// fetchSnapshot performs fetch and parse under the trigger's deadline.
func (module *Module) fetchSnapshot(ctx context.Context, timeout time.Duration) (*models.FeedSnapshot, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := module.fetcher.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	return feed.Parse(raw)
}

// snatchErrorReply maps a failed on-demand poll to its chat reply. Catalog
// misses get the exact lookup message, transport failures name the cause,
// everything else turns into a generic try-again.
func snatchErrorReply(err error) string {
	var resolveErr *ResolveError
	if errors.As(err, &resolveErr) {
		return resolveErr.Error()
	}

	var upstreamErr *feed.UpstreamError
	if errors.As(err, &upstreamErr) {
		log.Errorf("On-demand tower poll failed: %s", err)
		return fmt.Sprintf("The tower feed reported an error (%s). Please try again later.", upstreamErr.Message)
	}

	var transportErr *feed.TransportError
	if errors.As(err, &transportErr) {
		log.Errorf("On-demand tower poll failed: %s", err)
		return fmt.Sprintf("The tower feed could not be reached (%s). Please try again later.", transportErr.Err)
	}

	var parseErr *feed.ParseError
	if errors.As(err, &parseErr) {
		log.Errorf("On-demand tower poll failed: %s", err)
		return "The tower feed sent a reply this bot could not understand. Please try again later."
	}

	log.Errorf("On-demand tower poll failed: %s", err)
	return "Something went wrong while checking the tower feed. Please try again later."
}
