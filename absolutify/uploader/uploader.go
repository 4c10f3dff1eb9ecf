// Package uploader provides the backends that turn a local image into a
// publicly reachable URL.
package uploader

import (
	"context"
	"errors"
	"fmt"
)

// Uploader is the single capability a backend provides: upload the file at
// localPath and return its public URL. When override is false a backend may
// skip the transfer if the remote copy is already up to date. Backends are
// constructed once per batch and must be safe for concurrent use.
type Uploader interface {
	Upload(ctx context.Context, localPath string, override bool) (string, error)
}

// DocumentScoper is implemented by backends whose settings depend on the
// markdown document being processed (the S3 key prefix template).
// ForDocument returns a derived uploader bound to that document; the
// receiver is not modified.
type DocumentScoper interface {
	ForDocument(docPath string) (Uploader, error)
}

// ErrInvalidConfiguration is wrapped by every constructor validation error.
var ErrInvalidConfiguration = errors.New("invalid uploader configuration")

// TransportError is a remote failure: an existence check that errored with
// something other than not-found, or a failed upload call. Transfers are
// never retried, the error propagates as-is.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
