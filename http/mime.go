package http

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultContentType is served when the media type cannot be determined.
const DefaultContentType = "application/octet-stream"

// sniffLen is the number of leading bytes inspected when sniffing.
const sniffLen = 512

// extraTypes covers extensions missing from minimal system mime tables.
var extraTypes = map[string]string{
	".txt":  "text/plain",
	".md":   "text/markdown",
	".csv":  "text/csv",
	".json": "application/json",
	".js":   "text/javascript",
	".mjs":  "text/javascript",
	".css":  "text/css",
	".html": "text/html",
	".svg":  "image/svg+xml",
	".wasm": "application/wasm",
}

// ContentTypeFromPath returns the media type for the extension of p, with a
// UTF-8 charset for textual types. Unknown extensions give
// application/octet-stream.
func ContentTypeFromPath(p string) string {
	ct, ok := lookupExtension(p)
	if !ok {
		return DefaultContentType
	}
	return withCharset(ct)
}

// SniffContentType detects the media type of head, the leading bytes of a file.
func SniffContentType(head []byte) string {
	return withCharset(mimetype.Detect(head).String())
}

func lookupExtension(p string) (string, bool) {
	ext := strings.ToLower(filepath.Ext(p))
	if ext == "" {
		return "", false
	}
	if ct, ok := extraTypes[ext]; ok {
		return ct, true
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct, true
	}
	return "", false
}

func withCharset(ct string) string {
	mediaType, params, err := mime.ParseMediaType(ct)
	if err != nil {
		return ct
	}
	if _, ok := params["charset"]; ok || !isTextual(mediaType) {
		return ct
	}
	params["charset"] = "utf-8"
	return mime.FormatMediaType(mediaType, params)
}

func isTextual(mediaType string) bool {
	if strings.HasPrefix(mediaType, "text/") {
		return true
	}
	switch mediaType {
	case "application/json", "application/javascript", "application/xml":
		return true
	default:
		return strings.HasSuffix(mediaType, "+json") || strings.HasSuffix(mediaType, "+xml")
	}
}
