package rssfeeds

// FeedPresets maps friendly keys to the sports RSS feeds we ingest by
// default. Some of these sites block requests without a browser-ish
// User-Agent, which the fetcher sets.
var FeedPresets = map[string]string{
	"espn":     "https://www.espn.com/espn/rss/news",
	"espn_nfl": "https://www.espn.com/espn/rss/nfl/news",
	"espn_nba": "https://www.espn.com/espn/rss/nba/news",
	"cbs":      "https://www.cbssports.com/rss/headlines/",
	"cbs_nba":  "https://www.cbssports.com/rss/headlines/nba/",
	"cbs_nfl":  "https://www.cbssports.com/rss/headlines/nfl/",
	"bbc":      "https://feeds.bbci.co.uk/sport/rss.xml",
	"yahoo":    "https://sports.yahoo.com/rss/",
}

// DefaultFeeds are the presets used when FEEDS is not configured.
var DefaultFeeds = []string{"espn", "cbs", "bbc", "yahoo"}

// ResolveFeedURL resolves a feed identifier to a URL. Preset names map to
// their configured URL; anything else is treated as a direct URL.
func ResolveFeedURL(feedInput string) string {
	if url, exists := FeedPresets[feedInput]; exists {
		return url
	}
	return feedInput
}
