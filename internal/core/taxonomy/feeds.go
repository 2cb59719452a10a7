package taxonomy

// Feed is one RSS source with the category its entries default to.
type Feed struct {
	URL      string
	Category string
}

// DefaultFeeds is the curated source catalog. The ingestor polls every
// feed each cycle; the category is a hint only, the judge assigns the
// final subcategory per article.
var DefaultFeeds = []Feed{
	{URL: "https://feeds.bbci.co.uk/news/world/rss.xml", Category: WorldNews},
	{URL: "https://www.aljazeera.com/xml/rss/all.xml", Category: WorldNews},
	{URL: "https://feeds.reuters.com/Reuters/worldNews", Category: WorldNews},

	{URL: "https://feeds.bbci.co.uk/news/politics/rss.xml", Category: "Politics & Government"},
	{URL: "https://thehill.com/feed", Category: "Politics & Government"},

	{URL: "https://feeds.bbci.co.uk/news/business/rss.xml", Category: "Business"},
	{URL: "https://www.cnbc.com/id/10001147/device/rss/rss.html", Category: "Business"},

	{URL: "https://feeds.arstechnica.com/arstechnica/index", Category: "Technology"},
	{URL: "https://www.theverge.com/rss/index.xml", Category: "Technology"},
	{URL: "https://techcrunch.com/feed/", Category: "Technology"},

	{URL: "https://www.sciencedaily.com/rss/all.xml", Category: "Science & Environment"},
	{URL: "https://feeds.bbci.co.uk/news/science_and_environment/rss.xml", Category: "Science & Environment"},

	{URL: "https://feeds.bbci.co.uk/sport/rss.xml", Category: "Sports"},
	{URL: "https://www.espn.com/espn/rss/news", Category: "Sports"},

	{URL: "https://feeds.bbci.co.uk/news/entertainment_and_arts/rss.xml", Category: "Arts & Culture"},
	{URL: "https://variety.com/feed/", Category: "Arts & Culture"},

	{URL: "https://feeds.bbci.co.uk/news/health/rss.xml", Category: "Health"},
	{URL: "https://www.statnews.com/feed/", Category: "Health"},

	{URL: "https://www.atlasobscura.com/feeds/latest", Category: "Lifestyle"},
	{URL: "https://www.seriouseats.com/feed/all", Category: "Lifestyle"},
}
