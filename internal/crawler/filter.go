package crawler

import (
	"strings"

	"vulnhub-crawler/pkg/models"
)

type URLFilter interface {
	Filter(category models.Category, link string) bool
}

// PrefixFilter recognises a category by the URL prefix of its pages.
type PrefixFilter struct {
	prefixes map[models.Category]string
}

func NewPrefixFilter(entryPrefix, seriesPrefix string) *PrefixFilter {
	return &PrefixFilter{prefixes: map[models.Category]string{
		models.CategoryEntry:  entryPrefix,
		models.CategorySeries: seriesPrefix,
	}}
}

func (filter PrefixFilter) Filter(category models.Category, link string) bool {
	prefix, ok := filter.prefixes[category]
	if !ok || prefix == "" {
		return false
	}
	return strings.HasPrefix(link, prefix)
}

// classifyOrder is the order categories are tried in; the first match wins.
var classifyOrder = []models.Category{models.CategoryEntry, models.CategorySeries}

// Classify tags every URL with the first category whose filter accepts it.
// URLs no category accepts are dropped.
func Classify(urls []string, filter URLFilter) []models.CrawlTarget {
	targets := make([]models.CrawlTarget, 0, len(urls))
	for _, link := range urls {
		for _, category := range classifyOrder {
			if filter.Filter(category, link) {
				targets = append(targets, models.CrawlTarget{URL: link, Category: category})
				break
			}
		}
	}
	return targets
}

// Select returns the URLs of targets in category, preserving order.
func Select(targets []models.CrawlTarget, category models.Category) []string {
	urls := make([]string, 0)
	for _, target := range targets {
		if target.Category == category {
			urls = append(urls, target.URL)
		}
	}
	return urls
}
