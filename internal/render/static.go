package render

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"vulnhub-crawler/pkg/models"
)

// StaticBrowser serves sessions that fetch raw HTML over HTTP and query it
// with goquery. Pages that build their content with JavaScript will look
// empty; the entry pages this crawler targets are server rendered.
type StaticBrowser struct {
	client    *http.Client
	userAgent string
}

func NewStaticBrowser(client *http.Client, userAgent string) *StaticBrowser {
	return &StaticBrowser{client: client, userAgent: userAgent}
}

func (b *StaticBrowser) NewSession(_ context.Context) (Session, error) {
	return &staticSession{browser: b, doc: &StaticDocument{}}, nil
}

func (b *StaticBrowser) Close() error {
	return nil
}

func (b *StaticBrowser) get(ctx context.Context, targetURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, http.NoBody)
	if err != nil {
		return nil, err
	}
	if b.userAgent != "" {
		req.Header.Set("User-Agent", b.userAgent)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		resp.Body.Close()
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return resp, nil
}

type staticSession struct {
	browser *StaticBrowser
	doc     *StaticDocument
}

func (s *staticSession) Navigate(ctx context.Context, targetURL string) error {
	resp, err := s.browser.get(ctx, targetURL)
	if err != nil {
		return fmt.Errorf("navigate %s: %w: %w", targetURL, models.ErrRender, err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return fmt.Errorf("parse %s: %w: %w", targetURL, models.ErrRender, err)
	}

	s.doc = &StaticDocument{doc: doc, base: resp.Request.URL}
	return nil
}

func (s *staticSession) Document() Document {
	return s.doc
}

func (s *staticSession) FetchAsset(ctx context.Context, assetURL string) (Asset, error) {
	resp, err := s.browser.get(ctx, assetURL)
	if err != nil {
		return Asset{}, fmt.Errorf("fetch asset %s: %w: %w", assetURL, models.ErrAssetFetch, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Asset{}, fmt.Errorf("read asset %s: %w: %w", assetURL, models.ErrAssetFetch, err)
	}

	return Asset{Data: data, ContentType: resp.Header.Get("Content-Type")}, nil
}

func (s *staticSession) Close() error {
	s.doc = &StaticDocument{}
	return nil
}

// StaticDocument answers Document queries from a parsed HTML tree.
type StaticDocument struct {
	doc  *goquery.Document
	base *url.URL
}

// NewStaticDocument parses html as if it had been served from baseURL.
func NewStaticDocument(html, baseURL string) (*StaticDocument, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}

	return &StaticDocument{doc: doc, base: base}, nil
}

func (d *StaticDocument) find(selector string) *goquery.Selection {
	if d.doc == nil {
		return &goquery.Selection{}
	}
	return d.doc.Find(selector)
}

func (d *StaticDocument) SelectText(_ context.Context, selector string) (string, error) {
	sel := d.find(selector).First()
	if sel.Length() == 0 {
		return "", nil
	}
	return strings.TrimSpace(sel.Text()), nil
}

func (d *StaticDocument) SelectHref(_ context.Context, selector string) (string, error) {
	return d.href(d.find(selector).First()), nil
}

func (d *StaticDocument) Count(_ context.Context, selector string) (int, error) {
	return d.find(selector).Length(), nil
}

func (d *StaticDocument) SelectHrefs(_ context.Context, container, child string) ([]string, error) {
	containers := d.find(container)
	hrefs := make([]string, 0, containers.Length())
	containers.Each(func(_ int, c *goquery.Selection) {
		hrefs = append(hrefs, d.href(c.Find(child).First()))
	})
	return hrefs, nil
}

// href mirrors the DOM href property: the attribute resolved against the
// document URL, or "" when absent.
func (d *StaticDocument) href(sel *goquery.Selection) string {
	raw, ok := sel.Attr("href")
	if !ok {
		return ""
	}
	return resolveURL(d.base, strings.TrimSpace(raw))
}

// resolveURL turns relative links (e.g. "/about") into absolute ones.
func resolveURL(base *url.URL, href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if base == nil {
		return u.String()
	}
	return base.ResolveReference(u).String()
}
