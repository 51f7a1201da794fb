package storage

import (
	"context"
	"io"
)

// Uploader archives raw resume uploads. Archiving is best effort and
// optional; the interview flow works without a configured bucket.
type Uploader interface {
	Upload(ctx context.Context, objectName string, contentType string, r io.Reader) (storedPath string, err error)
}
