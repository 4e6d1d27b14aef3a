package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vulnhub-crawler/pkg/models"
)

const urlsetXML = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>https://www.vulnhub.com/entry/a,1/</loc><lastmod>2024-06-15</lastmod></url>
  <url><loc>
    https://www.vulnhub.com/series/s,2/
  </loc></url>
  <url><loc>https://www.vulnhub.com/entry/b,3/</loc></url>
</urlset>`

func TestParseLocs_DocumentOrder(t *testing.T) {
	locs, err := ParseLocs(strings.NewReader(urlsetXML))
	require.NoError(t, err)

	assert.Equal(t, []string{
		"https://www.vulnhub.com/entry/a,1/",
		"https://www.vulnhub.com/series/s,2/",
		"https://www.vulnhub.com/entry/b,3/",
	}, locs)
}

func TestParseLocs_SitemapIndex(t *testing.T) {
	index := `<sitemapindex><sitemap><loc>https://example.com/s1.xml</loc></sitemap></sitemapindex>`

	locs, err := ParseLocs(strings.NewReader(index))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/s1.xml"}, locs)
}

func TestParseLocs_Latin1(t *testing.T) {
	doc := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?><urlset><url><loc>https://example.com/caf\xe9</loc></url></urlset>"

	locs, err := ParseLocs(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/café"}, locs)
}

func TestParseLocs_EmptyUrlset(t *testing.T) {
	locs, err := ParseLocs(strings.NewReader(`<urlset></urlset>`))
	require.NoError(t, err)
	assert.NotNil(t, locs)
	assert.Empty(t, locs)
}

func TestParseLocs_Malformed(t *testing.T) {
	for name, body := range map[string]string{
		"garbage":   `<not valid xml<<<`,
		"truncated": `<urlset><url><loc>https://example.com/</loc>`,
		"empty":     ``,
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseLocs(strings.NewReader(body))
			assert.ErrorIs(t, err, models.ErrParse)
		})
	}
}

func TestSitemapResolver_Resolve(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "crawler-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/xml")
		_, _ = w.Write([]byte(urlsetXML))
	}))
	defer srv.Close()

	locs, err := NewSitemapResolver(srv.Client(), "crawler-test").Resolve(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, locs, 3)
}

func TestSitemapResolver_FetchErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	resolver := NewSitemapResolver(srv.Client(), "")

	_, err := resolver.Resolve(context.Background(), srv.URL)
	assert.ErrorIs(t, err, models.ErrFetch)

	srv.Close()
	_, err = resolver.Resolve(context.Background(), srv.URL)
	assert.ErrorIs(t, err, models.ErrFetch)
}

func TestSitemapResolver_ParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<urlset><loc>`))
	}))
	defer srv.Close()

	_, err := NewSitemapResolver(srv.Client(), "").Resolve(context.Background(), srv.URL)
	assert.ErrorIs(t, err, models.ErrParse)
}
