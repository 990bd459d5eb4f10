// Package servekit provides the shared pieces of a small HTTP serving
// toolkit: a closed error taxonomy, the file serving data model and path
// safety helpers.
//
// The protocol logic lives in sub packages:
//
//   - etag: entity tags and conditional request evaluation (RFC 7232)
//   - byterange: Range header parsing and Content-Range building (RFC 7233)
//   - http: response sender, cache manager, file sender, error sender and router
//   - filesystem: stat and range bounded reads on the local filesystem
//   - config: configuration loading and validation
//
// # Errors
//
// Every failure leaving the toolkit is a *Error with a Kind. Kinds compare
// with errors.Is against the package sentinels:
//
//	if errors.Is(err, servekit.ErrNotFound) {
//	    // 404
//	}
//
// ValueOf flattens an error into the ErrorValue shape error senders
// serialize: message, stack, code, params and HTTP status.
//
// # Options
//
// FileServeOptions describes one file serving call. DecodeFileServeOptions
// accepts a loosely typed map for callers that receive options as JSON:
//
//	opts, err := servekit.DecodeFileServeOptions(map[string]any{
//	    "root":     "./public",
//	    "path":     "/index.html",
//	    "dotfiles": "deny",
//	    "maxage":   "1h",
//	})
package servekit
