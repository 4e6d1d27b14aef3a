package crawler

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"golang.org/x/net/html/charset"

	"vulnhub-crawler/pkg/models"
)

// SitemapResolver downloads a sitemap and lists the URLs it contains.
type SitemapResolver struct {
	client    *http.Client
	userAgent string
}

func NewSitemapResolver(client *http.Client, userAgent string) *SitemapResolver {
	return &SitemapResolver{client: client, userAgent: userAgent}
}

// Resolve returns the text of every <loc> element in document order.
// Transport failures and non-2xx responses wrap models.ErrFetch; malformed
// XML wraps models.ErrParse.
func (r *SitemapResolver) Resolve(ctx context.Context, sitemapURL string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sitemapURL, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("sitemap request: %w: %w", models.ErrFetch, err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap: %w: %w", models.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("fetch sitemap: %w: unexpected status %s", models.ErrFetch, resp.Status)
	}

	return ParseLocs(resp.Body)
}

// ParseLocs streams an XML document and collects <loc> values. It accepts
// both <urlset> sitemaps and <sitemapindex> files.
func ParseLocs(r io.Reader) ([]string, error) {
	decoder := xml.NewDecoder(r)
	decoder.CharsetReader = charset.NewReaderLabel

	locs := make([]string, 0)
	sawRoot := false
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse sitemap: %w: %w", models.ErrParse, err)
		}

		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		sawRoot = true
		if start.Name.Local != "loc" {
			continue
		}

		var loc string
		if err := decoder.DecodeElement(&loc, &start); err != nil {
			return nil, fmt.Errorf("parse sitemap: %w: %w", models.ErrParse, err)
		}
		locs = append(locs, strings.TrimSpace(loc))
	}

	if !sawRoot {
		return nil, fmt.Errorf("parse sitemap: %w: document has no root element", models.ErrParse)
	}
	return locs, nil
}
