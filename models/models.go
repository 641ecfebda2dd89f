package models

import "fmt"

// Playfield is one game zone that can hold tower sites
type Playfield struct {
	ID        int64  `json:"id"`
	LongName  string `json:"longName"`
	ShortName string `json:"shortName"`
}

// TowerSite is one plantable tower location. The playfield short and long
// names are carried on the row so a site can be rendered without a second
// lookup.
type TowerSite struct {
	PlayfieldID int64  `json:"playfieldId"`
	ShortName   string `json:"shortName"`
	LongName    string `json:"longName"`
	SiteNumber  int    `json:"siteNumber"`
	SiteName    string `json:"siteName"`
	MinQL       int    `json:"minQl"`
	MaxQL       int    `json:"maxQl"`
	CenterX     int    `json:"centerX"`
	CenterY     int    `json:"centerY"`
}

// Key returns the identity tuple used to compare sites across polls
func (site TowerSite) Key() SiteKey {
	return SiteKey{Playfield: site.ShortName, Site: site.SiteNumber}
}

// SiteKey identifies a tower site: playfield short code plus site number
type SiteKey struct {
	Playfield string `json:"playfield"`
	Site      int    `json:"site"`
}

func (key SiteKey) String() string {
	return fmt.Sprintf("%s %d", key.Playfield, key.Site)
}

// FeedRegion is one playfield entry from the unclaimed-sites feed, with the
// raw site tokens as they appeared in the payload
type FeedRegion struct {
	Playfield string
	Tokens    []string
}

// FeedSnapshot holds the decoded feed. Regions keep the order the playfields
// appeared in the payload, which is also the order they are rendered in.
type FeedSnapshot struct {
	Regions []FeedRegion
}

// Empty reports whether the feed listed no playfields at all
func (snapshot *FeedSnapshot) Empty() bool {
	return len(snapshot.Regions) == 0
}
