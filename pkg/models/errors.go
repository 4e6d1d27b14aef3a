package models

import "errors"

// Error kinds shared by every stage of the pipeline. Stages wrap the
// underlying cause together with one of these so callers can classify
// failures with errors.Is.
var (
	// ErrFetch is a network or transport failure retrieving the sitemap.
	ErrFetch = errors.New("fetch failed")
	// ErrParse is a malformed sitemap or ledger document.
	ErrParse = errors.New("parse failed")
	// ErrRender is a navigation or DOM evaluation failure.
	ErrRender = errors.New("render failed")
	// ErrAssetFetch is a screenshot retrieval or decode failure.
	ErrAssetFetch = errors.New("asset fetch failed")
	// ErrPersist is an I/O failure writing the ledger, an item or the summary.
	ErrPersist = errors.New("persist failed")

	ErrUnexpectedTemplate = errors.New("page does not match the entry template")
	ErrLedgerCorrupt      = errors.New("ledger is corrupt")
)
