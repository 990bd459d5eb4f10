package etag

import (
	"net/http"
	"regexp"
	"strings"
	"time"
)

var noCacheRegexp = regexp.MustCompile(`(?:^|,)\s*?no-cache\s*?(?:,|$)`)

// conditionalHeaders are the request headers that make a request conditional.
var conditionalHeaders = []string{"If-Match", "If-None-Match", "If-Unmodified-Since", "If-Modified-Since"}

// IsConditional reports whether the request carries at least one of
// If-Match, If-None-Match, If-Unmodified-Since or If-Modified-Since.
func IsConditional(h http.Header) bool {
	for _, name := range conditionalHeaders {
		if h.Get(name) != "" {
			return true
		}
	}
	return false
}

// IsPreconditionFailed evaluates If-Match, falling back to
// If-Unmodified-Since only when If-Match is absent. A zero lastModified
// means the representation has no known modification date.
func IsPreconditionFailed(h http.Header, tag string, lastModified time.Time) bool {
	if match := h.Get("If-Match"); match != "" {
		if tag == "" {
			return true
		}
		if strings.TrimSpace(match) == "*" {
			return false
		}
		return !Match(match, tag)
	}

	since, ok := parseDate(h.Get("If-Unmodified-Since"))
	if !ok {
		return false
	}
	if lastModified.IsZero() {
		return true
	}

	return truncate(lastModified).After(since)
}

// IsFresh reports whether the client's cached copy is still valid.
// "Cache-Control: no-cache" always forces revalidation. If-None-Match wins
// over If-Modified-Since when both are present.
func IsFresh(h http.Header, tag string, lastModified time.Time) bool {
	if cc := h.Get("Cache-Control"); cc != "" && noCacheRegexp.MatchString(cc) {
		return false
	}

	if noneMatch := h.Get("If-None-Match"); noneMatch != "" {
		return Match(noneMatch, tag)
	}

	since, ok := parseDate(h.Get("If-Modified-Since"))
	if !ok || lastModified.IsZero() {
		return false
	}

	return !truncate(lastModified).After(since)
}

// IsRangeFresh reports whether a Range header may be honored. Without
// If-Range it always may. A quoted If-Range is compared with tag, anything
// else is read as an HTTP date compared with lastModified.
func IsRangeFresh(h http.Header, tag string, lastModified time.Time) bool {
	ifRange := strings.TrimSpace(h.Get("If-Range"))
	if ifRange == "" {
		return true
	}

	if strings.Contains(ifRange, `"`) {
		return tag != "" && ifRange == tag
	}

	date, ok := parseDate(ifRange)
	if !ok || lastModified.IsZero() {
		return false
	}

	return !truncate(lastModified).After(date)
}

// IsCacheableStatus reports whether status is 2xx or 304.
func IsCacheableStatus(status int) bool {
	return (status >= 200 && status < 300) || status == http.StatusNotModified
}

// parseDate parses an HTTP date. Malformed or missing values carry no
// information and report false.
func parseDate(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	t, err := http.ParseTime(v)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// truncate drops sub second precision because HTTP dates have none.
func truncate(t time.Time) time.Time {
	return t.Truncate(time.Second)
}
