package towers

import (
	"fmt"
	"snatchbot/chat"
	"snatchbot/models"
	"strings"

	"github.com/samber/lo"
)

// ReplyNothingToSnatch is the on-demand reply when the feed resolves to an
// empty listing.
const ReplyNothingToSnatch = "There is nothing to snatch right now."

const blobTitle = "Unplanted tower sites"

// RenderSite produces the detail block for one site in org chat markup.
func RenderSite(site models.TowerSite) string {
	var b strings.Builder

	b.WriteString(chat.Highlight(fmt.Sprintf("%s %d", site.ShortName, site.SiteNumber)))
	b.WriteString(fmt.Sprintf(" %s\n", site.SiteName))
	b.WriteString(fmt.Sprintf("Level range: %d-%d\n", site.MinQL, site.MaxQL))
	b.WriteString(fmt.Sprintf("Center: %s\n", chat.WaypointLink(
		fmt.Sprintf("%dx%d %s", site.CenterX, site.CenterY, site.ShortName),
		site.CenterX, site.CenterY, site.PlayfieldID,
	)))
	b.WriteString(fmt.Sprintf("%s %s",
		chat.CmdLink("Attacks", fmt.Sprintf("attacks %s %d", site.ShortName, site.SiteNumber)),
		chat.CmdLink("Victories", fmt.Sprintf("victory %s %d", site.ShortName, site.SiteNumber)),
	))

	return b.String()
}

// RenderListing wraps the site blocks in an expandable blob and the summary
// sentence around it. With fresh set the announcement template is used: the
// blob label counts "new" sites and the sentence carries the attention
// marker so it stands out in org chat.
func RenderListing(sites []models.TowerSite, fresh bool) string {
	blocks := lo.Map(sites, func(site models.TowerSite, _ int) string {
		return RenderSite(site)
	})
	content := strings.Join(blocks, "\n\n"+chat.PageBreak)

	noun := "sites"
	verb := "are"
	if len(sites) == 1 {
		noun = "site"
		verb = "is"
	}

	label := fmt.Sprintf("%d %s", len(sites), noun)
	if fresh {
		label = fmt.Sprintf("%d new %s", len(sites), noun)
	}

	sentence := fmt.Sprintf("The following %s %s ready to be snatched by your org.",
		chat.Blob(label, blobTitle, content), verb)

	if fresh {
		return fmt.Sprintf("%s %s", chat.Highlight("ATTENTION"), sentence)
	}
	return sentence
}
