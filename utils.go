package servekit

import (
	"path/filepath"
	"regexp"
	"strings"
)

var upPathRegexp = regexp.MustCompile(`(?:^|[\\/])\.\.(?:[\\/]|$)`)

// HasUpSegment reports whether p contains a ".." segment.
func HasUpSegment(p string) bool {
	return upPathRegexp.MatchString(p)
}

// ResolvePath turns a requested path into the absolute filesystem path to
// serve, together with its segments for the dotfile check.
//
// With a root, the path is normalized relative to "." before joining so
// that an absolute request path stays inside root; any ".." left after
// normalization is a traversal attempt. Without a root, a path containing
// ".." is rejected outright.
func ResolvePath(p, root string) (string, []string, error) {
	if root != "" {
		rel := p
		if rel != "" {
			rel = filepath.Clean("." + string(filepath.Separator) + p)
		}

		if HasUpSegment(rel) {
			return "", nil, New(KindNotAuthorized, "path not secure", WithParams(Params{"path": p}))
		}

		return filepath.Join(root, rel), strings.Split(rel, string(filepath.Separator)), nil
	}

	if HasUpSegment(p) {
		return "", nil, New(KindNotAuthorized, "'..' path is malicious without 'root'", WithParams(Params{"path": p}))
	}

	abs, err := filepath.Abs(p)
	if err != nil {
		return "", nil, New(KindGeneral, "resolve path", WithCause(err), WithParams(Params{"path": p}))
	}

	return abs, strings.Split(filepath.Clean(p), string(filepath.Separator)), nil
}

// HasDotfile reports whether any segment other than "." and ".." starts
// with a dot.
func HasDotfile(parts []string) bool {
	for _, part := range parts {
		if part == "." || part == ".." {
			continue
		}
		if strings.HasPrefix(part, ".") {
			return true
		}
	}
	return false
}

// CheckDotfiles applies the dotfile policy to the segments of a path.
func CheckDotfiles(parts []string, policy DotfilesPolicy, p string) error {
	if !HasDotfile(parts) {
		return nil
	}

	switch policy {
	case DotfilesIgnore:
		return New(KindNotFound, "not found", WithParams(Params{"path": p}))
	case DotfilesDeny:
		return New(KindNotAuthorized, "path access is denied", WithParams(Params{"path": p}))
	default:
		return nil
	}
}
