// Package objectstore implements the ObjectFetcher external collaborator:
// given a tenant's source URL, resolve it to raw bytes and a MIME type.
package objectstore

import (
	"context"
	"errors"
)

// ErrNotFound is returned when the source URL names a missing object.
var ErrNotFound = errors.New("objectstore: object not found")

// ErrAccessDenied is returned when credentials are rejected.
var ErrAccessDenied = errors.New("objectstore: access denied")

// Fetcher resolves a source URL to its bytes and MIME type. Implementations
// parse the URL scheme themselves (s3://, https://, ...) and perform
// authenticated download; this package does not dictate the scheme.
type Fetcher interface {
	Fetch(ctx context.Context, sourceURL string) (data []byte, mimeType string, err error)
}
