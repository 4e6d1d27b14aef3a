package crawler

import (
	"context"
	"encoding/base64"
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"vulnhub-crawler/internal/render"
	"vulnhub-crawler/pkg/models"
)

// AssetPolicy decides what a failed screenshot fetch does to its item.
type AssetPolicy int

const (
	// PolicyAbort fails the whole item; it stays out of the ledger and is
	// retried on the next run.
	PolicyAbort AssetPolicy = iota
	// PolicyInline keeps the item, leaves an empty image slot and records
	// the failure in the screenshots section.
	PolicyInline
)

func ParseAssetPolicy(s string) (AssetPolicy, error) {
	switch s {
	case "", "abort":
		return PolicyAbort, nil
	case "inline":
		return PolicyInline, nil
	default:
		return PolicyAbort, fmt.Errorf("unknown asset policy %q", s)
	}
}

// AssetFetcher downloads screenshots through a page session and encodes
// them as data URLs so they can be embedded in the item's JSON.
type AssetFetcher struct{}

func NewAssetFetcher() *AssetFetcher {
	return &AssetFetcher{}
}

// Fetch returns assetURL as "data:<mime>;base64,<payload>".
func (f *AssetFetcher) Fetch(ctx context.Context, session render.Session, assetURL string) (string, error) {
	if assetURL == "" {
		return "", fmt.Errorf("fetch asset: %w: empty link", models.ErrAssetFetch)
	}

	asset, err := session.FetchAsset(ctx, assetURL)
	if err != nil {
		return "", err
	}
	if len(asset.Data) == 0 {
		return "", fmt.Errorf("fetch asset %s: %w: empty body", assetURL, models.ErrAssetFetch)
	}

	return EncodeDataURL(asset), nil
}

// FetchAll fetches urls one after another, in order. Under PolicyAbort the
// first failure is returned and no images are kept.
func (f *AssetFetcher) FetchAll(
	ctx context.Context,
	session render.Session,
	urls []string,
	policy AssetPolicy,
) ([]string, []models.AssetFailure, error) {
	images := make([]string, 0, len(urls))
	var failures []models.AssetFailure

	for _, link := range urls {
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}

		image, err := f.Fetch(ctx, session, link)
		if err != nil {
			if policy == PolicyAbort {
				return nil, nil, err
			}
			failures = append(failures, models.AssetFailure{Link: link, Error: err.Error()})
		}
		images = append(images, image)
	}

	return images, failures, nil
}

// EncodeDataURL tags the payload with its media type, sniffing the bytes
// when the declared type is missing or generic.
func EncodeDataURL(asset render.Asset) string {
	return "data:" + mediaType(asset) + ";base64," + base64.StdEncoding.EncodeToString(asset.Data)
}

func mediaType(asset render.Asset) string {
	declared, _, err := mime.ParseMediaType(asset.ContentType)
	if err == nil && declared != "" && declared != "application/octet-stream" {
		return strings.ToLower(declared)
	}
	detected, _, _ := mime.ParseMediaType(mimetype.Detect(asset.Data).String())
	if detected == "" {
		return "application/octet-stream"
	}
	return detected
}
