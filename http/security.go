package http

import (
	"net/http"

	"github.com/samber/lo"

	"github.com/sagarc03/servekit"
)

// X-Frame-Options directives. ALLOW-FROM is obsolete and not supported.
const (
	FrameSameOrigin = "SAMEORIGIN"
	FrameDeny       = "DENY"
)

// DefaultReferrerFallback is appended to the referrer policy when no
// fallback is configured.
const DefaultReferrerFallback = "no-referrer"

var frameDirectives = []string{FrameSameOrigin, FrameDeny}

var referrerPolicies = []string{
	"no-referrer",
	"no-referrer-when-downgrade",
	"same-origin",
	"origin",
	"strict-origin",
	"origin-when-cross-origin",
	"strict-origin-when-cross-origin",
	"unsafe-url",
}

// SecurityConfig selects the security headers added to every response.
// Empty fields disable the corresponding header.
type SecurityConfig struct {
	FrameOptions     string
	ReferrerPolicy   string
	ReferrerFallback string
}

// SetXFrameOptions sets X-Frame-Options to SAMEORIGIN or DENY.
func SetXFrameOptions(h http.Header, directive string) error {
	if !lo.Contains(frameDirectives, directive) {
		return servekit.New(servekit.KindValidation, "x-frame-options has unacceptable value",
			servekit.WithParams(servekit.Params{"directive": directive}))
	}
	h.Set("X-Frame-Options", directive)
	return nil
}

// SetReferrerPolicy sets "Referrer-Policy: <policy>, <fallback>". An empty
// fallback means no-referrer.
func SetReferrerPolicy(h http.Header, policy, fallback string) error {
	if fallback == "" {
		fallback = DefaultReferrerFallback
	}

	for _, p := range []string{policy, fallback} {
		if !lo.Contains(referrerPolicies, p) {
			return servekit.New(servekit.KindValidation, "referrer-policy has unacceptable value",
				servekit.WithParams(servekit.Params{"policy": p}))
		}
	}

	h.Set("Referrer-Policy", policy+", "+fallback)
	return nil
}

// Validate checks every configured value.
func (c SecurityConfig) Validate() error {
	_, err := c.headers()
	return err
}

// headers builds the configured security headers.
func (c SecurityConfig) headers() (http.Header, error) {
	h := http.Header{}
	if c.FrameOptions != "" {
		if err := SetXFrameOptions(h, c.FrameOptions); err != nil {
			return nil, err
		}
	}
	if c.ReferrerPolicy != "" {
		if err := SetReferrerPolicy(h, c.ReferrerPolicy, c.ReferrerFallback); err != nil {
			return nil, err
		}
	}
	return h, nil
}

// SecurityHeaders creates middleware adding the configured security
// headers. The values are validated and built once, here.
func SecurityHeaders(cfg SecurityConfig) (func(http.Handler) http.Handler, error) {
	headers, err := cfg.headers()
	if err != nil {
		return nil, err
	}

	if len(headers) == 0 {
		return func(next http.Handler) http.Handler {
			return next
		}, nil
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for name := range headers {
				w.Header().Set(name, headers.Get(name))
			}
			next.ServeHTTP(w, r)
		})
	}, nil
}
