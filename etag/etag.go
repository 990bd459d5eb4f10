// Package etag computes entity tags and evaluates conditional request
// headers (If-Match, If-None-Match, If-Modified-Since, If-Unmodified-Since,
// If-Range) against the current validators of a representation.
package etag

import (
	"crypto/sha1"
	"encoding/base64"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"
)

const weakPrefix = "W/"

// emptyTag is the strong tag of an empty entity.
const emptyTag = `"0-2jmj7l5rSw0yVb/vlWAYkK/YBwk"`

// Weak returns the stat based tag W/"<size hex>-<mtime ms hex>".
func Weak(size int64, modTime time.Time) string {
	return weakPrefix + `"` + strconv.FormatInt(size, 16) + "-" + strconv.FormatInt(modTime.UnixMilli(), 16) + `"`
}

// Strong returns the content based tag "<len hex>-<sha1 base64[:27]>",
// prefixed with W/ when weak is set.
func Strong(entity []byte, weak bool) string {
	prefix := ""
	if weak {
		prefix = weakPrefix
	}

	if len(entity) == 0 {
		return prefix + emptyTag
	}

	sum := sha1.Sum(entity)
	hash := base64.StdEncoding.EncodeToString(sum[:])[:27]

	return prefix + `"` + strconv.FormatInt(int64(len(entity)), 16) + "-" + hash + `"`
}

// Match reports whether the comma separated candidates of a conditional
// header match tag. "*" matches any existing tag. A strong candidate matches
// its weak counterpart and the other way round.
func Match(candidates, tag string) bool {
	if tag == "" {
		return false
	}
	if strings.TrimSpace(candidates) == "*" {
		return true
	}

	return lo.SomeBy(strings.Split(candidates, ","), func(c string) bool {
		c = strings.TrimSpace(c)
		return c == tag || c == weakPrefix+tag || weakPrefix+c == tag
	})
}
