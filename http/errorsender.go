package http

import (
	"cmp"
	"encoding/json"
	"html"
	"log/slog"
	"mime"
	"net/http"
	"slices"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/sagarc03/servekit"
)

const (
	mediaJSON = "application/json"
	mediaHTML = "text/html"
)

// errorMediaTypes are the representations an error can be sent in, in
// order of preference.
var errorMediaTypes = []string{mediaJSON, mediaHTML}

// ErrorResponse is the JSON body of an error response.
type ErrorResponse struct {
	Error   string          `json:"error"`
	Message string          `json:"message"`
	Params  servekit.Params `json:"params,omitempty"`
}

// ErrorSender writes error values returned by the file sender and the router.
type ErrorSender struct {
	logger *slog.Logger
}

// NewErrorSender creates an ErrorSender logging to logger.
func NewErrorSender(logger *slog.Logger) *ErrorSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorSender{logger: logger}
}

// Send logs err and, unless headers are already committed, replaces the
// pending response with an error document negotiated from Accept. Headers
// hinted by the error are merged into the response.
func (e *ErrorSender) Send(s *Sender, err error) {
	ctx := s.Request().Context()
	value := servekit.ValueOf(err)
	e.log(s, value)

	if s.HeadersSent() {
		LoggerFromContext(ctx, e.logger).DebugContext(ctx, "cannot send error, headers are sent",
			"code", value.Code, "path", s.Request().URL.Path)
		return
	}

	mediaType, ok := negotiate(s.Request().Header.Get("Accept"), errorMediaTypes)
	if !ok {
		mediaType = mediaJSON
		value = servekit.ValueOf(servekit.New(servekit.KindNotAcceptable, "not acceptable",
			servekit.WithParams(servekit.Params{"accept": s.Request().Header.Get("Accept")})))
	}

	headers := map[string]string{}
	if h, ok := value.Params["headers"].(map[string]string); ok {
		for name, v := range h {
			headers[name] = v
		}
	}
	headers["X-Content-Type-Options"] = "nosniff"

	var body []byte
	switch mediaType {
	case mediaHTML:
		headers["Content-Type"] = "text/html; charset=utf-8"
		headers["Content-Security-Policy"] = "default-src 'none'"
		body = []byte(htmlDocument("Error", html.EscapeString(value.Code)))
	default:
		headers["Content-Type"] = "application/json; charset=utf-8"
		b, merr := json.Marshal(errorResponse(value))
		if merr != nil {
			e.logger.ErrorContext(ctx, "failed to encode error response", "error", merr)
			b = []byte(`{"error":"` + value.Code + `"}`)
		}
		body = b
	}

	if _, serr := s.Send(body, SendOptions{
		Status:          value.HTTPStatus,
		CleanOldHeaders: true,
		Headers:         headers,
	}); serr != nil {
		e.logger.ErrorContext(ctx, "failed to send error response", "error", serr)
	}
}

func (e *ErrorSender) log(s *Sender, value servekit.ErrorValue) {
	ctx := s.Request().Context()
	logger := LoggerFromContext(ctx, e.logger)

	attrs := []any{
		"code", value.Code,
		"status", value.HTTPStatus,
		"params", value.Params,
		"method", s.Request().Method,
		"path", s.Request().URL.Path,
	}

	if value.HTTPStatus >= http.StatusInternalServerError {
		logger.ErrorContext(ctx, value.Message, append(attrs, "stack", value.Stack)...)
		return
	}
	logger.WarnContext(ctx, value.Message, attrs...)
}

// errorResponse exposes the message of client errors only. Server errors
// answer with the status text.
func errorResponse(value servekit.ErrorValue) ErrorResponse {
	if value.HTTPStatus >= http.StatusInternalServerError {
		return ErrorResponse{Error: value.Code, Message: http.StatusText(value.HTTPStatus)}
	}

	params := lo.OmitByKeys(value.Params, []string{"headers"})
	if len(params) == 0 {
		params = nil
	}

	return ErrorResponse{Error: value.Code, Message: value.Message, Params: params}
}

func htmlDocument(title, body string) string {
	return "<!DOCTYPE html>\n" +
		"<html lang=\"en\">\n" +
		"<head>\n" +
		"<meta charset=\"utf-8\">\n" +
		"<title>" + title + "</title>\n" +
		"</head>\n" +
		"<body>\n" +
		"<pre>" + body + "</pre>\n" +
		"</body>\n" +
		"</html>\n"
}

type acceptRange struct {
	mediaType string
	q         float64
	index     int
}

// negotiate picks the offer preferred by an Accept header. Higher quality
// wins, then the earlier Accept entry, then the earlier offer. An empty
// header accepts the first offer.
func negotiate(accept string, offers []string) (string, bool) {
	if strings.TrimSpace(accept) == "" {
		return offers[0], true
	}

	ranges := parseAccept(accept)

	type candidate struct {
		offer string
		q     float64
		index int
		order int
	}

	var candidates []candidate
	for order, offer := range offers {
		r, ok := bestMatch(ranges, offer)
		if !ok || r.q <= 0 {
			continue
		}
		candidates = append(candidates, candidate{offer: offer, q: r.q, index: r.index, order: order})
	}

	if len(candidates) == 0 {
		return "", false
	}

	best := slices.MinFunc(candidates, func(a, b candidate) int {
		return cmp.Or(
			cmp.Compare(b.q, a.q),
			cmp.Compare(a.index, b.index),
			cmp.Compare(a.order, b.order),
		)
	})

	return best.offer, true
}

func parseAccept(accept string) []acceptRange {
	return lo.FilterMap(strings.Split(accept, ","), func(part string, i int) (acceptRange, bool) {
		mediaType, params, err := mime.ParseMediaType(strings.TrimSpace(part))
		if err != nil {
			return acceptRange{}, false
		}

		q := 1.0
		if v, ok := params["q"]; ok {
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return acceptRange{}, false
			}
			q = parsed
		}

		return acceptRange{mediaType: mediaType, q: q, index: i}, true
	})
}

// bestMatch returns the most specific range matching offer.
func bestMatch(ranges []acceptRange, offer string) (acceptRange, bool) {
	offerType, _, _ := strings.Cut(offer, "/")

	best, specificity := acceptRange{}, -1
	for _, r := range ranges {
		rangeType, rangeSub, _ := strings.Cut(r.mediaType, "/")

		s := -1
		switch {
		case r.mediaType == offer:
			s = 2
		case rangeType == offerType && rangeSub == "*":
			s = 1
		case r.mediaType == "*/*":
			s = 0
		}

		if s > specificity {
			best, specificity = r, s
		}
	}

	return best, specificity >= 0
}
