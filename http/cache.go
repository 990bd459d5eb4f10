package http

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sagarc03/servekit"
	"github.com/sagarc03/servekit/etag"
)

// Decision is the outcome of evaluating conditional request headers.
type Decision int

const (
	// Proceed means the full or partial representation should be sent.
	Proceed Decision = iota
	// NotModified means the client copy is fresh; answer 304.
	NotModified
	// PreconditionFailed means If-Match or If-Unmodified-Since failed; answer 412.
	PreconditionFailed
)

func (d Decision) String() string {
	switch d {
	case Proceed:
		return "proceed"
	case NotModified:
		return "not-modified"
	case PreconditionFailed:
		return "precondition-failed"
	default:
		return "unknown"
	}
}

// freshnessHeaders are owned by the cache manager for the whole response.
var freshnessHeaders = []string{"ETag", "Last-Modified", "Cache-Control"}

// CacheManager sets the validators of one response and evaluates the
// request's conditional headers against them.
type CacheManager struct {
	sender *Sender
	opts   servekit.CacheOptions
}

// NewCacheManager binds a cache manager to the sender of one response.
func NewCacheManager(sender *Sender, opts servekit.CacheOptions) *CacheManager {
	return &CacheManager{sender: sender, opts: opts}
}

// Prepare sets ETag, Last-Modified and Cache-Control from meta, each when
// enabled. It fails if any of them was already set by someone else.
func (c *CacheManager) Prepare(meta servekit.FileMetadata) error {
	for _, name := range freshnessHeaders {
		if c.sender.HasHeader(name) {
			return servekit.New(servekit.KindGeneral, "cache headers already initialized",
				servekit.WithParams(servekit.Params{"header": name}))
		}
	}

	headers := map[string]string{}
	if c.opts.CacheControl {
		headers["Cache-Control"] = cacheControlValue(c.opts.MaxAge, c.opts.Immutable)
	}
	if c.opts.LastModified {
		headers["Last-Modified"] = meta.ModTime.UTC().Format(http.TimeFormat)
	}
	if c.opts.ETag {
		headers["ETag"] = etag.Weak(meta.Size, meta.ModTime)
	}

	return c.sender.SetHeaders(headers)
}

// Evaluate decides how to answer the request given the validators set by
// Prepare. Requests without conditional headers always proceed.
func (c *CacheManager) Evaluate(h http.Header) Decision {
	if !etag.IsConditional(h) {
		return Proceed
	}

	tag := c.sender.Header("ETag")
	lastModified := lastModifiedOf(c.sender)

	if etag.IsPreconditionFailed(h, tag, lastModified) {
		return PreconditionFailed
	}

	if etag.IsCacheableStatus(c.sender.Status()) && etag.IsFresh(h, tag, lastModified) {
		return NotModified
	}

	return Proceed
}

// IsRangeRequestFresh reports whether the request's If-Range still matches
// the validators of the response.
func (c *CacheManager) IsRangeRequestFresh(h http.Header) bool {
	return etag.IsRangeFresh(h, c.sender.Header("ETag"), lastModifiedOf(c.sender))
}

func cacheControlValue(maxAge time.Duration, immutable bool) string {
	maxAge = min(max(maxAge, 0), servekit.MaxMaxAge)

	parts := []string{"public", "max-age=" + strconv.FormatInt(int64(maxAge/time.Second), 10)}
	if immutable {
		parts = append(parts, "immutable")
	}
	return strings.Join(parts, ", ")
}

// lastModifiedOf reads back the pending Last-Modified header. A missing or
// malformed value yields the zero time.
func lastModifiedOf(s *Sender) time.Time {
	v := s.Header("Last-Modified")
	if v == "" {
		return time.Time{}
	}
	t, err := http.ParseTime(v)
	if err != nil {
		return time.Time{}
	}
	return t
}
