// Package byterange parses Range request headers into normalized byte
// ranges and builds Content-Range values.
package byterange

import (
	"cmp"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/sagarc03/servekit"
)

// UnitBytes is the only range unit served.
const UnitBytes = "bytes"

var (
	bytesRangeRegexp = regexp.MustCompile(`^\s*bytes=`)
	rangeSpecRegexp  = regexp.MustCompile(`^(\d*)-(\d*)$`)
)

// Range is an inclusive byte window, 0 <= Start <= End < size.
type Range struct {
	Start int64
	End   int64
}

// Len returns the number of bytes in the range.
func (r Range) Len() int64 {
	return r.End - r.Start + 1
}

// Set is the parsed form of a Range header.
type Set struct {
	Unit   string
	Ranges []Range
}

// ContentRange builds the Content-Range value for the first range.
func (s Set) ContentRange(size int64) string {
	if len(s.Ranges) == 0 {
		return ContentRange(s.Unit, size, nil)
	}
	return ContentRange(s.Unit, size, &s.Ranges[0])
}

// IsBytesHeader reports whether a Range header value uses the bytes unit.
func IsBytesHeader(v string) bool {
	return bytesRangeRegexp.MatchString(v)
}

// ContentRange formats "<unit> <start>-<end>/<size>", or "<unit> */<size>"
// when r is nil.
func ContentRange(unit string, size int64, r *Range) string {
	sizeStr := strconv.FormatInt(size, 10)
	if r == nil {
		return unit + " */" + sizeStr
	}
	return unit + " " + strconv.FormatInt(r.Start, 10) + "-" + strconv.FormatInt(r.End, 10) + "/" + sizeStr
}

// Parse parses header against a representation of size bytes. Range specs
// that are malformed or select nothing are dropped; when none remains the
// error is a range-not-satisfiable error carrying the Content-Range hint.
// With combine, overlapping and adjacent ranges are merged.
func Parse(header string, size int64, combine bool) (Set, error) {
	index := strings.Index(header, "=")
	if index == -1 {
		return Set{}, notSatisfiable(header, size, "no `=` sign")
	}

	unit := strings.TrimSpace(header[:index])
	specs := strings.Split(header[index+1:], ",")

	ranges := lo.FilterMap(specs, func(spec string, _ int) (Range, bool) {
		return parseSpec(strings.TrimSpace(spec), size)
	})

	if len(ranges) == 0 {
		return Set{}, notSatisfiable(header, size, "no ranges")
	}

	set := Set{Unit: unit, Ranges: ranges}
	if combine {
		set.Ranges = combineRanges(set.Ranges)
	}

	return set, nil
}

func parseSpec(spec string, size int64) (Range, bool) {
	m := rangeSpecRegexp.FindStringSubmatch(spec)
	if m == nil || (m[1] == "" && m[2] == "") {
		return Range{}, false
	}

	var r Range
	switch {
	case m[1] == "":
		suffix, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return Range{}, false
		}
		r = Range{Start: size - suffix, End: size - 1}
	case m[2] == "":
		start, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return Range{}, false
		}
		r = Range{Start: start, End: size - 1}
	default:
		start, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return Range{}, false
		}
		end, err := strconv.ParseInt(m[2], 10, 64)
		if err != nil {
			return Range{}, false
		}
		r = Range{Start: start, End: end}
	}

	// limit last-byte-pos to current length
	if r.End > size-1 {
		r.End = size - 1
	}

	if r.Start < 0 || r.Start > r.End {
		return Range{}, false
	}

	return r, true
}

type indexedRange struct {
	Range
	index int
}

// combineRanges merges overlapping and adjacent ranges. The result keeps
// the order in which the client first asked for each merged range.
func combineRanges(ranges []Range) []Range {
	ordered := lo.Map(ranges, func(r Range, i int) indexedRange {
		return indexedRange{Range: r, index: i}
	})
	slices.SortStableFunc(ordered, func(a, b indexedRange) int {
		return cmp.Compare(a.Start, b.Start)
	})

	j := 0
	for i := 1; i < len(ordered); i++ {
		current := &ordered[j]
		next := ordered[i]

		if next.Start > current.End+1 {
			j++
			ordered[j] = next
			continue
		}

		current.End = max(current.End, next.End)
		current.index = min(current.index, next.index)
	}
	ordered = ordered[:j+1]

	slices.SortStableFunc(ordered, func(a, b indexedRange) int {
		return cmp.Compare(a.index, b.index)
	})

	return lo.Map(ordered, func(r indexedRange, _ int) Range {
		return r.Range
	})
}

func notSatisfiable(header string, size int64, reason string) error {
	return servekit.New(servekit.KindRangeNotSatisfiable, "requested range not satisfiable: "+reason,
		servekit.WithParams(servekit.Params{
			"headers": map[string]string{"Content-Range": ContentRange(UnitBytes, size, nil)},
			"range":   header,
		}),
	)
}
