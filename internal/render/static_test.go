package render_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vulnhub-crawler/internal/render"
	"vulnhub-crawler/pkg/models"
)

const galleryHTML = `<html><body>
	<h2>  Kioptrix: Level 1  </h2>
	<div id="download"><ul><li><a href="/mirror/kioptrix.rar">Mirror</a></li></ul></div>
	<div id="screenshot">
		<div class="thumbnail"><a href="/media/img/1.png"><img src="t1.png"></a></div>
		<div class="thumbnail"><span>no link</span></div>
		<div class="thumbnail"><a href="https://cdn.example.com/2.png">2</a></div>
	</div>
</body></html>`

func TestStaticDocument_Queries(t *testing.T) {
	ctx := context.Background()
	doc, err := render.NewStaticDocument(galleryHTML, "https://www.vulnhub.com/entry/kioptrix-level-1-1,22/")
	require.NoError(t, err)

	text, err := doc.SelectText(ctx, "h2")
	require.NoError(t, err)
	assert.Equal(t, "Kioptrix: Level 1", text)

	missing, err := doc.SelectText(ctx, "#description p")
	require.NoError(t, err)
	assert.Empty(t, missing)

	href, err := doc.SelectHref(ctx, "#download li a")
	require.NoError(t, err)
	assert.Equal(t, "https://www.vulnhub.com/mirror/kioptrix.rar", href)

	n, err := doc.Count(ctx, "#screenshot .thumbnail")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	hrefs, err := doc.SelectHrefs(ctx, "#screenshot .thumbnail", "a")
	require.NoError(t, err)
	assert.Equal(t, []string{
		"https://www.vulnhub.com/media/img/1.png",
		"",
		"https://cdn.example.com/2.png",
	}, hrefs)
}

func TestStaticDocument_NoMatchesIsEmptyNotNil(t *testing.T) {
	doc, err := render.NewStaticDocument("<html></html>", "https://example.com/")
	require.NoError(t, err)

	hrefs, err := doc.SelectHrefs(context.Background(), "#screenshot .thumbnail", "a")
	require.NoError(t, err)
	assert.NotNil(t, hrefs)
	assert.Empty(t, hrefs)
}

func TestStaticBrowser_NavigateAndFetchAsset(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/entry/a", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		_, _ = w.Write([]byte(`<h2>Alpha</h2>`))
	})
	mux.HandleFunc("/img.png", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	browser := render.NewStaticBrowser(srv.Client(), "test-agent")
	session, err := browser.NewSession(context.Background())
	require.NoError(t, err)
	defer session.Close()

	require.NoError(t, session.Navigate(context.Background(), srv.URL+"/entry/a"))
	name, err := session.Document().SelectText(context.Background(), "h2")
	require.NoError(t, err)
	assert.Equal(t, "Alpha", name)

	asset, err := session.FetchAsset(context.Background(), srv.URL+"/img.png")
	require.NoError(t, err)
	assert.Equal(t, "image/png", asset.ContentType)
	assert.Equal(t, []byte("png-bytes"), asset.Data)
}

func TestStaticBrowser_Errors(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	session, err := render.NewStaticBrowser(srv.Client(), "").NewSession(context.Background())
	require.NoError(t, err)

	err = session.Navigate(context.Background(), srv.URL+"/entry/missing")
	assert.ErrorIs(t, err, models.ErrRender)

	_, err = session.FetchAsset(context.Background(), srv.URL+"/missing.png")
	assert.ErrorIs(t, err, models.ErrAssetFetch)
}
