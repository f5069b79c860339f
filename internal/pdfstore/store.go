// Package pdfstore opens the course PDFs for download.
//
// Stores open the named file directly and classify the failure; there is no
// separate existence check, so a file removed between lookup and stream is
// just a missing file. A missing file is always reported as ErrFileMissing.
package pdfstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrFileMissing means the store has no file with the requested name.
var ErrFileMissing = errors.New("file not found")

// File is an open download. The caller must Close it.
type File struct {
	Name    string
	Size    int64 // -1 when unknown
	ModTime time.Time
	Body    io.ReadCloser
}

// Seeker returns the body as an io.ReadSeeker when the backend supports
// random access (disk), enabling range requests.
func (f *File) Seeker() (io.ReadSeeker, bool) {
	rs, ok := f.Body.(io.ReadSeeker)
	return rs, ok
}

func (f *File) Close() error {
	if f == nil || f.Body == nil {
		return nil
	}
	return f.Body.Close()
}

// Store opens files by their catalog filename.
type Store interface {
	Open(ctx context.Context, name string) (*File, error)
	// Kind names the backend for logs and metrics ("disk", "s3").
	Kind() string
}

// existenceChecker is implemented by stores with a cheaper check than Open.
type existenceChecker interface {
	Exists(ctx context.Context, name string) (bool, error)
}

// Missing returns the names that the store reports as ErrFileMissing.
// Any other error aborts the check.
func Missing(ctx context.Context, s Store, names []string) ([]string, error) {
	var missing []string
	ec, canCheck := s.(existenceChecker)
	for _, n := range names {
		if canCheck {
			ok, err := ec.Exists(ctx, n)
			if err != nil {
				return missing, err
			}
			if !ok {
				missing = append(missing, n)
			}
			continue
		}
		f, err := s.Open(ctx, n)
		if errors.Is(err, ErrFileMissing) {
			missing = append(missing, n)
			continue
		}
		if err != nil {
			return missing, err
		}
		_ = f.Close()
	}
	return missing, nil
}
