// Package catalogue defines the narrow contract the downloader uses to
// search and fetch subtitles from an external catalogue service, plus
// one concrete HTTP-backed implementation and an in-memory fake for
// tests.
package catalogue

import (
	"context"
	"errors"
)

// Sentinel errors classifying catalogue failures, mapped by the
// downloader onto the error taxonomy of job.failed payloads.
var (
	ErrRateLimited         = errors.New("catalogue: rate limited")
	ErrAuthentication      = errors.New("catalogue: authentication failed")
	ErrAPI                 = errors.New("catalogue: api error")
	ErrNotFound            = errors.New("catalogue: no matching subtitle")
)

// Result is a single catalogue hit: enough to download the subtitle
// and to record what language it's actually in (catalogue codes are
// often 3-letter ISO 639-2, normalised by callers).
type Result struct {
	ID           string
	Language     string
	DownloadURL  string
	ReleaseTitle string
}

// Client is the duck-typed shim the downloader depends on. Fingerprint
// search is tried first when available; metadata search is the
// fallback (or the only option for remote / non-fingerprintable
// sources).
type Client interface {
	// SearchByFingerprint looks up a subtitle by the content
	// fingerprint and size of a local video file, scoped to language.
	SearchByFingerprint(ctx context.Context, fingerprint string, size int64, language string) (*Result, error)

	// SearchByMetadata looks up a subtitle by catalogue id and/or
	// title, scoped to language. Either identifier may be empty but
	// not both.
	SearchByMetadata(ctx context.Context, catalogueID, title, language string) (*Result, error)

	// Download fetches the subtitle body for a previously returned
	// Result.
	Download(ctx context.Context, result *Result) ([]byte, error)
}
