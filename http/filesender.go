package http

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/sagarc03/servekit"
	"github.com/sagarc03/servekit/byterange"
)

// Filesystem is the storage boundary of the file sender.
type Filesystem interface {
	Stat(ctx context.Context, path string) (servekit.FileMetadata, error)
	// Open returns a reader over the inclusive byte window [start, end].
	Open(ctx context.Context, path string, start, end int64) (io.ReadCloser, error)
}

// FileSender serves one file per call: it resolves the path, applies the
// dotfile policy, sets validators, answers conditional and range requests
// and streams the selected bytes. It never writes error responses; every
// failure is returned as a *servekit.Error.
type FileSender struct {
	fs     Filesystem
	logger *slog.Logger
	opts   servekit.FileServeOptions
}

// NewFileSender validates opts and creates a FileSender. A relative Root is
// made absolute.
func NewFileSender(fsys Filesystem, logger *slog.Logger, opts servekit.FileServeOptions) (*FileSender, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if opts.Root != "" {
		root, err := filepath.Abs(opts.Root)
		if err != nil {
			return nil, servekit.New(servekit.KindGeneral, "resolve root", servekit.WithCause(err),
				servekit.WithParams(servekit.Params{"root": opts.Root}))
		}
		opts.Root = root
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &FileSender{fs: fsys, logger: logger, opts: opts}, nil
}

// Send serves the file through s.
func (f *FileSender) Send(s *Sender) error {
	if err := f.send(s); err != nil {
		return servekit.AsError(err)
	}
	return nil
}

func (f *FileSender) send(s *Sender) error {
	r := s.Request()
	ctx := r.Context()

	path, parts, err := servekit.ResolvePath(f.opts.Path, f.opts.Root)
	if err != nil {
		return err
	}

	if err := servekit.CheckDotfiles(parts, f.opts.Dotfiles, f.opts.Path); err != nil {
		return err
	}

	meta, err := f.fs.Stat(ctx, path)
	if err != nil {
		return mapStatError(err, path)
	}
	if meta.IsDir {
		return servekit.New(servekit.KindNotFound, "file doesn't exist",
			servekit.WithParams(servekit.Params{"path": path}))
	}

	f.logger.DebugContext(ctx, "file found", "path", path, "size", meta.Size)

	if s.HeadersSent() {
		return servekit.New(servekit.KindGeneral, "can't set headers after they are sent",
			servekit.WithParams(servekit.Params{"path": path}))
	}

	if err := f.setHeaders(ctx, s, path, meta); err != nil {
		return err
	}

	cache := NewCacheManager(s, f.opts.CacheOptions)
	if err := cache.Prepare(meta); err != nil {
		return err
	}

	switch cache.Evaluate(r.Header) {
	case PreconditionFailed:
		return servekit.New(servekit.KindPreconditionFailed, "precondition failed",
			servekit.WithParams(servekit.Params{"path": path}))
	case NotModified:
		if err := s.RemoveContentHeaders(); err != nil {
			return err
		}
		_, err := s.Send(nil, SendOptions{Status: http.StatusNotModified})
		return err
	}

	offset, length := f.window(meta.Size)

	offset, length, err = f.applyRange(s, cache, offset, length)
	if err != nil {
		return err
	}

	if err := s.SetHeader("Content-Length", strconv.FormatInt(length, 10)); err != nil {
		return err
	}

	if r.Method == http.MethodHead || length == 0 {
		_, err := s.Send(nil, SendOptions{})
		return err
	}

	rc, err := f.fs.Open(ctx, path, offset, offset+length-1)
	if err != nil {
		return mapStatError(err, path)
	}
	defer func() {
		if err := rc.Close(); err != nil {
			f.logger.WarnContext(ctx, "close file", "path", path, "error", err)
		}
	}()

	return s.Stream(rc, StreamOptions{
		MapError: func(err error) error { return mapStatError(err, path) },
	})
}

// setHeaders sets Accept-Ranges and Content-Type unless already present.
func (f *FileSender) setHeaders(ctx context.Context, s *Sender, path string, meta servekit.FileMetadata) error {
	if f.opts.AcceptRanges && !s.HasHeader("Accept-Ranges") {
		if err := s.SetHeader("Accept-Ranges", byterange.UnitBytes); err != nil {
			return err
		}
	}

	if !s.HasHeader("Content-Type") {
		if err := s.SetHeader("Content-Type", f.contentType(ctx, path, meta)); err != nil {
			return err
		}
	}

	return nil
}

func (f *FileSender) contentType(ctx context.Context, path string, meta servekit.FileMetadata) string {
	if ct, ok := lookupExtension(path); ok {
		return withCharset(ct)
	}
	if !f.opts.Sniff || meta.Size == 0 {
		return DefaultContentType
	}

	rc, err := f.fs.Open(ctx, path, 0, min(meta.Size, sniffLen)-1)
	if err != nil {
		f.logger.DebugContext(ctx, "sniff content type", "path", path, "error", err)
		return DefaultContentType
	}
	defer func() { _ = rc.Close() }()

	head, err := io.ReadAll(rc)
	if err != nil {
		f.logger.DebugContext(ctx, "sniff content type", "path", path, "error", err)
		return DefaultContentType
	}

	return SniffContentType(head)
}

// window applies the Start and End options to a file of size bytes.
func (f *FileSender) window(size int64) (offset, length int64) {
	if f.opts.Start != nil {
		offset = *f.opts.Start
	}

	length = max(0, size-offset)
	if f.opts.End != nil {
		if n := *f.opts.End - offset + 1; length > n {
			length = n
		}
	}

	return offset, length
}

// applyRange narrows the window to the requested range when exactly one
// range remains and If-Range allows it. Anything else serves the window.
func (f *FileSender) applyRange(s *Sender, cache *CacheManager, offset, length int64) (int64, int64, error) {
	header := s.Request().Header.Get("Range")
	if !f.opts.AcceptRanges || !byterange.IsBytesHeader(header) {
		return offset, length, nil
	}

	set, err := byterange.Parse(header, length, true)
	if err != nil {
		return 0, 0, err
	}

	if !cache.IsRangeRequestFresh(s.Request().Header) || len(set.Ranges) != 1 {
		return offset, length, nil
	}

	if err := s.SetStatus(http.StatusPartialContent); err != nil {
		return 0, 0, err
	}
	if err := s.SetHeader("Content-Range", set.ContentRange(length)); err != nil {
		return 0, 0, err
	}

	rng := set.Ranges[0]
	return offset + rng.Start, rng.Len(), nil
}

// mapStatError converts filesystem failures into taxonomy errors. Errors
// that already belong to the taxonomy pass through.
func mapStatError(err error, path string) error {
	var serr *servekit.Error
	if errors.As(err, &serr) {
		return serr
	}

	params := servekit.WithParams(servekit.Params{"path": path})

	if errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR) || errors.Is(err, syscall.ENAMETOOLONG) {
		return servekit.New(servekit.KindNotFound, "file doesn't exist", servekit.WithCause(err), params)
	}

	return servekit.New(servekit.KindGeneral, "not able to serve file", servekit.WithCause(err), params)
}
