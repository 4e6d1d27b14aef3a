package crawler

import (
	"context"
	"fmt"
	"strings"

	"vulnhub-crawler/internal/render"
	"vulnhub-crawler/pkg/models"
)

// Selectors for the entry page template.
const (
	selReleaseSection = "#release"
	selReleaseName    = "h2"
	selReleaseDate    = "#release li:nth-child(2)"
	selReleaseAuthor  = "#release li:nth-child(3) a"
	selReleaseSeries  = "#release li:nth-child(4) a"

	selDownloadFilename = "#download li:first-child b"
	selDownloadSize     = "#download li:first-child small"
	selDownloadMirror   = "#download li:nth-child(2) a"

	selDescriptionDifficulty = "#description p:first-child"
	selDescriptionSecret     = "#description p:nth-child(2)"
	selDescriptionContact    = "#description p:nth-child(2) a"
	selDescriptionNote       = "#description div.pt-2"

	selFileName = "#fileinfo li:nth-child(1)"
	selFileSize = "#fileinfo li:nth-child(2)"
	selFileMD5  = "#fileinfo li:nth-child(3)"
	selFileSHA1 = "#fileinfo li:nth-child(4)"

	selVMFormat = "#vm li:nth-child(1)"
	selVMOS     = "#vm li:nth-child(2)"

	selNetworkDHCP = "#networking li:nth-child(1)"
	selNetworkIP   = "#networking li:nth-child(2)"

	selScreenshotThumbnail = "#screenshot .thumbnail"
	selScreenshotLink      = "a"
)

// Extractor turns a loaded entry page into an ItemRecord. It only reads the
// document; navigation belongs to the caller.
type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract reads every field of the entry template. Missing markup yields
// empty strings. The returned asset URLs are the screenshot links in
// document order; the record's Images are left empty for the asset fetcher.
func (e *Extractor) Extract(ctx context.Context, doc render.Document) (*models.ItemRecord, []string, error) {
	r := &fieldReader{ctx: ctx, doc: doc}

	record := &models.ItemRecord{
		Release: models.Release{
			Name:   r.text(selReleaseName),
			Date:   r.label(selReleaseDate),
			Author: r.text(selReleaseAuthor),
			Series: r.text(selReleaseSeries),
		},
		Download: models.Download{
			Filename:   r.text(selDownloadFilename),
			Size:       stripParens(r.text(selDownloadSize)),
			MirrorLink: r.href(selDownloadMirror),
		},
		Description: models.Description{
			Difficulty: r.label(selDescriptionDifficulty),
			Secret:     r.text(selDescriptionSecret),
			Contact:    r.text(selDescriptionContact),
			Note:       r.text(selDescriptionNote),
		},
		FileInformation: models.FileInformation{
			Filename: r.label(selFileName),
			Size:     r.label(selFileSize),
			MD5:      r.label(selFileMD5),
			SHA1:     r.label(selFileSHA1),
		},
		VirtualMachine: models.VirtualMachine{
			Format:          r.label(selVMFormat),
			OperatingSystem: r.label(selVMOS),
		},
		Networking: models.Networking{
			DHCPService: r.label(selNetworkDHCP),
			IPAddress:   r.label(selNetworkIP),
		},
	}

	count := r.count(selScreenshotThumbnail)
	links := r.hrefs(selScreenshotThumbnail, selScreenshotLink)
	releaseSections := r.count(selReleaseSection)
	if r.err != nil {
		return nil, nil, r.err
	}

	if releaseSections == 0 && record.Release.Name == "" {
		return nil, nil, fmt.Errorf("extract: %w: %w", models.ErrRender, models.ErrUnexpectedTemplate)
	}
	if count != len(links) {
		return nil, nil, fmt.Errorf("extract: %w: %d thumbnails but %d links", models.ErrRender, count, len(links))
	}

	record.Screenshots = models.Screenshots{
		Available: count > 0,
		Count:     count,
		Links:     links,
		Images:    make([]string, 0, count),
	}

	assets := make([]string, len(links))
	copy(assets, links)
	return record, assets, nil
}

// LabelValue returns the part of "Label: value" after the first colon.
// Text without a colon, or with nothing after it, is returned unchanged.
func LabelValue(text string) string {
	_, value, found := strings.Cut(text, ":")
	value = strings.TrimSpace(value)
	if !found || value == "" {
		return text
	}
	return value
}

func stripParens(s string) string {
	return strings.NewReplacer("(", "", ")", "").Replace(s)
}

// fieldReader runs queries until the first evaluation error and then
// short-circuits; Extract reports that error once at the end.
type fieldReader struct {
	ctx context.Context
	doc render.Document
	err error
}

func (r *fieldReader) fail(selector string, err error) {
	r.err = fmt.Errorf("query %q: %w", selector, err)
}

func (r *fieldReader) text(selector string) string {
	if r.err != nil {
		return ""
	}
	v, err := r.doc.SelectText(r.ctx, selector)
	if err != nil {
		r.fail(selector, err)
		return ""
	}
	return v
}

func (r *fieldReader) label(selector string) string {
	return LabelValue(r.text(selector))
}

func (r *fieldReader) href(selector string) string {
	if r.err != nil {
		return ""
	}
	v, err := r.doc.SelectHref(r.ctx, selector)
	if err != nil {
		r.fail(selector, err)
		return ""
	}
	return v
}

func (r *fieldReader) count(selector string) int {
	if r.err != nil {
		return 0
	}
	n, err := r.doc.Count(r.ctx, selector)
	if err != nil {
		r.fail(selector, err)
		return 0
	}
	return n
}

func (r *fieldReader) hrefs(container, child string) []string {
	if r.err != nil {
		return nil
	}
	v, err := r.doc.SelectHrefs(r.ctx, container, child)
	if err != nil {
		r.fail(container+" "+child, err)
		return nil
	}
	return v
}
