package servekit

import (
	"fmt"
	"time"
)

// DotfilesPolicy decides how paths with a segment starting with "." are served.
type DotfilesPolicy string

const (
	DotfilesIgnore DotfilesPolicy = "ignore"
	DotfilesAllow  DotfilesPolicy = "allow"
	DotfilesDeny   DotfilesPolicy = "deny"
)

func (p DotfilesPolicy) IsValid() bool {
	switch p {
	case DotfilesIgnore, DotfilesAllow, DotfilesDeny:
		return true
	default:
		return false
	}
}

func ParseDotfilesPolicy(s string) (DotfilesPolicy, error) {
	p := DotfilesPolicy(s)
	if !p.IsValid() {
		return "", fmt.Errorf("invalid dotfiles policy: %s (valid policies: ignore, allow, deny)", s)
	}
	return p, nil
}

// FileMetadata is the part of a file's stat result the file sender needs.
// It is read once per request and never cached.
type FileMetadata struct {
	ModTime time.Time
	Size    int64
	IsDir   bool
}

// MaxMaxAge is the largest max-age accepted for Cache-Control.
const MaxMaxAge = 365 * 24 * time.Hour

// CacheOptions controls the freshness headers owned by the cache manager.
type CacheOptions struct {
	// CacheControl enables "Cache-Control: public, max-age=<n>[, immutable]".
	CacheControl bool          `mapstructure:"cacheControl"`
	MaxAge       time.Duration `mapstructure:"maxage" validate:"min=0s,max=8760h"`
	Immutable    bool          `mapstructure:"immutable"`
	// ETag enables the weak stat based entity tag.
	ETag bool `mapstructure:"etag"`
	// LastModified enables the Last-Modified header.
	LastModified bool `mapstructure:"lastModified"`
}

// FileServeOptions describes one file serving call.
type FileServeOptions struct {
	// Root contains the served path when set; traversal outside it is rejected.
	Root     string         `mapstructure:"root"`
	Path     string         `mapstructure:"path" validate:"required"`
	Dotfiles DotfilesPolicy `mapstructure:"dotfiles" validate:"required,oneof=ignore allow deny"`

	CacheOptions `mapstructure:",squash"`

	AcceptRanges bool `mapstructure:"acceptRanges"`
	// Sniff detects the media type from content when the extension is unknown.
	Sniff bool `mapstructure:"sniff"`

	// Start and End bound the served window of the file, both inclusive.
	Start *int64 `mapstructure:"start" validate:"omitempty,min=0"`
	End   *int64 `mapstructure:"end" validate:"omitempty,min=0"`
}

// DefaultFileServeOptions returns the options used when a caller leaves a
// field unset.
func DefaultFileServeOptions() FileServeOptions {
	return FileServeOptions{
		Dotfiles: DotfilesIgnore,
		CacheOptions: CacheOptions{
			CacheControl: true,
			MaxAge:       MaxMaxAge,
			ETag:         true,
			LastModified: true,
		},
		AcceptRanges: true,
	}
}
