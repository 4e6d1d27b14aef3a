package models

// Category classifies a sitemap URL by the section of the site it belongs to.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryEntry
	CategorySeries
)

func (c Category) String() string {
	switch c {
	case CategoryEntry:
		return "entry"
	case CategorySeries:
		return "series"
	default:
		return "unknown"
	}
}

// CrawlTarget is a sitemap URL together with its category.
type CrawlTarget struct {
	URL      string
	Category Category
}
