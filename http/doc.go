// Package http serves static files with HTTP caching and range semantics.
//
// The package is built from four pieces that work on one response at a time:
//
//   - Sender owns the header state of a response. Headers may change only
//     while it is idle; Send and Stream commit them exactly once.
//   - CacheManager sets ETag, Last-Modified and Cache-Control and evaluates
//     If-Match, If-None-Match, If-Modified-Since and If-Unmodified-Since.
//   - FileSender resolves a path safely, applies the dotfile policy, answers
//     304, 412, 206 and 416 and streams the selected bytes from a Filesystem.
//   - ErrorSender turns any error into a JSON or HTML error response.
//
// # Usage
//
// FileSender never writes an error body. The caller hands failures to an
// ErrorSender:
//
//	s := http.NewSender(w, r)
//	fsend, err := http.NewFileSender(filesystem.NewStore(), logger, opts)
//	if err != nil {
//	    errs.Send(s, err)
//	    return
//	}
//	if err := fsend.Send(s); err != nil {
//	    errs.Send(s, err)
//	}
//
// Handler wires everything behind a chi router:
//
//	handlerCfg := http.HandlerConfig{
//	    Static: http.StaticConfig{
//	        Root:         "./public",
//	        Dotfiles:     servekit.DotfilesIgnore,
//	        Cache:        servekit.CacheOptions{CacheControl: true, MaxAge: time.Hour, ETag: true, LastModified: true},
//	        AcceptRanges: true,
//	    },
//	}
//	handler, err := http.NewHandler(&handlerCfg, filesystem.NewStore(), logger)
//	http.ListenAndServe(":8080", handler.Router())
//
// # Ranges
//
// Only single part responses are produced. When the combined range set of a
// request holds exactly one range the response is 206; otherwise the whole
// representation is sent with 200.
//
// # Middleware
//
// RequestLogger attaches a logger carrying trace_id and span_id to the
// request context. SecurityHeaders adds X-Frame-Options and Referrer-Policy.
package http
