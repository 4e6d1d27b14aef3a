package crawler

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vulnhub-crawler/internal/render"
	"vulnhub-crawler/pkg/models"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

type assetSession struct {
	render.Session
	assets  map[string]render.Asset
	fetched []string
}

func (s *assetSession) FetchAsset(_ context.Context, url string) (render.Asset, error) {
	s.fetched = append(s.fetched, url)
	asset, ok := s.assets[url]
	if !ok {
		return render.Asset{}, fmt.Errorf("fetch asset %s: %w: HTTP 404", url, models.ErrAssetFetch)
	}
	return asset, nil
}

func TestEncodeDataURL(t *testing.T) {
	declared := EncodeDataURL(render.Asset{Data: []byte("hi"), ContentType: "image/JPEG; charset=binary"})
	assert.Equal(t, "data:image/jpeg;base64,aGk=", declared)

	sniffed := EncodeDataURL(render.Asset{Data: pngHeader, ContentType: "application/octet-stream"})
	assert.Regexp(t, `^data:image/png;base64,`, sniffed)
}

func TestAssetFetcher_FetchAllInOrder(t *testing.T) {
	session := &assetSession{assets: map[string]render.Asset{
		"https://x/1.png": {Data: []byte("one"), ContentType: "image/png"},
		"https://x/2.png": {Data: []byte("two"), ContentType: "image/png"},
	}}

	images, failures, err := NewAssetFetcher().FetchAll(context.Background(), session,
		[]string{"https://x/2.png", "https://x/1.png"}, PolicyAbort)
	require.NoError(t, err)

	assert.Empty(t, failures)
	assert.Equal(t, []string{"https://x/2.png", "https://x/1.png"}, session.fetched)
	assert.Equal(t, []string{"data:image/png;base64,dHdv", "data:image/png;base64,b25l"}, images)
}

func TestAssetFetcher_AbortPolicy(t *testing.T) {
	session := &assetSession{assets: map[string]render.Asset{
		"https://x/1.png": {Data: []byte("one"), ContentType: "image/png"},
	}}

	images, _, err := NewAssetFetcher().FetchAll(context.Background(), session,
		[]string{"https://x/missing.png", "https://x/1.png"}, PolicyAbort)

	assert.ErrorIs(t, err, models.ErrAssetFetch)
	assert.Nil(t, images)
	assert.Equal(t, []string{"https://x/missing.png"}, session.fetched)
}

func TestAssetFetcher_InlinePolicy(t *testing.T) {
	session := &assetSession{assets: map[string]render.Asset{
		"https://x/1.png": {Data: []byte("one"), ContentType: "image/png"},
		"https://x/empty": {ContentType: "image/png"},
	}}

	images, failures, err := NewAssetFetcher().FetchAll(context.Background(), session,
		[]string{"https://x/missing.png", "https://x/1.png", "https://x/empty", ""}, PolicyInline)
	require.NoError(t, err)

	assert.Equal(t, []string{"", "data:image/png;base64,b25l", "", ""}, images)
	require.Len(t, failures, 3)
	assert.Equal(t, "https://x/missing.png", failures[0].Link)
	assert.Equal(t, "https://x/empty", failures[1].Link)
	assert.Equal(t, "", failures[2].Link)
	assert.Contains(t, failures[1].Error, "empty body")
}

func TestAssetFetcher_StopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	session := &assetSession{}

	_, _, err := NewAssetFetcher().FetchAll(ctx, session, []string{"https://x/1.png"}, PolicyInline)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, session.fetched)
}

func TestParseAssetPolicy(t *testing.T) {
	p, err := ParseAssetPolicy("inline")
	require.NoError(t, err)
	assert.Equal(t, PolicyInline, p)

	p, err = ParseAssetPolicy("")
	require.NoError(t, err)
	assert.Equal(t, PolicyAbort, p)

	_, err = ParseAssetPolicy("retry")
	assert.Error(t, err)
}
