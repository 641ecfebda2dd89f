package towers

import (
	"snatchbot/models"

	"github.com/samber/lo"
)

// Baseline is the remembered outcome of the previous completed poll. It is
// three-valued: before the first poll completes the baseline is unknown,
// afterwards it is an explicit, possibly empty, site list. The distinction
// matters because an unknown baseline suppresses announcements while a known
// empty one does not.
type Baseline struct {
	known bool
	sites []models.SiteKey
}

// UnknownBaseline is the state before any poll has completed.
func UnknownBaseline() Baseline {
	return Baseline{}
}

// KnownBaseline records the sites seen by a completed poll. An empty list is
// a valid, known state.
func KnownBaseline(sites []models.SiteKey) Baseline {
	return Baseline{known: true, sites: sites}
}

func (baseline Baseline) Known() bool {
	return baseline.known
}

// Sites returns the remembered keys. Only meaningful when Known reports true.
func (baseline Baseline) Sites() []models.SiteKey {
	return baseline.sites
}

func (baseline Baseline) Contains(key models.SiteKey) bool {
	return lo.Contains(baseline.sites, key)
}

// Label names the baseline state for logs and the ops API.
func (baseline Baseline) Label() string {
	switch {
	case !baseline.known:
		return "unknown"
	case len(baseline.sites) == 0:
		return "empty"
	default:
		return "populated"
	}
}
