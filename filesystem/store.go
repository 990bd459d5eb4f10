// Package filesystem provides the local filesystem backend of the file
// sender: stat lookups and read streams bounded to a byte window. Reads
// respect context cancellation so an aborted request stops consuming the
// file as soon as the next chunk is requested.
package filesystem

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/sagarc03/servekit"
)

// Store reads files by absolute path. Path safety is the caller's job.
type Store struct{}

// NewStore creates a Store.
func NewStore() *Store {
	return &Store{}
}

// Stat returns the metadata of the file at path. Errors wrap the
// underlying *fs.PathError so callers can inspect the errno.
func (s *Store) Stat(ctx context.Context, path string) (servekit.FileMetadata, error) {
	if err := ctx.Err(); err != nil {
		return servekit.FileMetadata{}, err
	}

	info, err := os.Stat(path)
	if err != nil {
		return servekit.FileMetadata{}, fmt.Errorf("stat file: %w", err)
	}

	return servekit.FileMetadata{
		ModTime: info.ModTime(),
		Size:    info.Size(),
		IsDir:   info.IsDir(),
	}, nil
}

// Open returns a reader over bytes [start, end] of the file at path. The
// caller must close it.
func (s *Store) Open(ctx context.Context, path string, start, end int64) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if start < 0 || end < start {
		return nil, fmt.Errorf("open file: invalid window %d-%d", start, end)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	if start > 0 {
		if _, err := f.Seek(start, io.SeekStart); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("seek file: %w", err)
		}
	}

	return &windowReader{
		r: &ctxReader{ctx: ctx, r: io.LimitReader(f, end-start+1)},
		f: f,
	}, nil
}

type windowReader struct {
	r io.Reader
	f *os.File
}

func (w *windowReader) Read(p []byte) (int, error) {
	return w.r.Read(p)
}

func (w *windowReader) Close() error {
	return w.f.Close()
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (r *ctxReader) Read(p []byte) (n int, err error) {
	if err := r.ctx.Err(); err != nil {
		return 0, err
	}
	return r.r.Read(p)
}
