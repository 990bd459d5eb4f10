package http

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/sagarc03/servekit"
	"github.com/sagarc03/servekit/etag"
)

type senderState int

const (
	stateIdle senderState = iota
	stateCommitted
	stateSent
)

func (s senderState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateCommitted:
		return "committed"
	case stateSent:
		return "sent"
	default:
		return "unknown"
	}
}

// contentHeaders describe the body of a response and are dropped for 304.
var contentHeaders = []string{"Content-Encoding", "Content-Language", "Content-Length", "Content-Range", "Content-Type"}

// SendOptions controls a buffered send.
type SendOptions struct {
	Status int
	// CleanOldHeaders drops every header set so far, except CORS and
	// security headers, before Headers are applied.
	CleanOldHeaders bool
	Headers         map[string]string
}

// StreamOptions controls a streamed send.
type StreamOptions struct {
	Status          int
	CleanOldHeaders bool
	Headers         map[string]string
	// MapError converts copy failures into taxonomy errors.
	MapError func(error) error
}

// Sender owns the header state of one response. Headers may change only
// while the sender is idle; they are committed exactly once.
type Sender struct {
	w      http.ResponseWriter
	r      *http.Request
	status int
	state  senderState
}

// NewSender creates a Sender for one request/response pair.
func NewSender(w http.ResponseWriter, r *http.Request) *Sender {
	return &Sender{w: w, r: r, status: http.StatusOK}
}

// Request returns the request being answered.
func (s *Sender) Request() *http.Request {
	return s.r
}

// HeadersSent reports whether headers have been committed.
func (s *Sender) HeadersSent() bool {
	return s.state != stateIdle
}

// Status returns the pending or committed status code.
func (s *Sender) Status() int {
	return s.status
}

// Header returns the pending value of a header.
func (s *Sender) Header(name string) string {
	return s.w.Header().Get(name)
}

// HasHeader reports whether a header is set.
func (s *Sender) HasHeader(name string) bool {
	return len(s.w.Header().Values(name)) > 0
}

// SetStatus changes the pending status code.
func (s *Sender) SetStatus(status int) error {
	if err := s.assertIdle("set status"); err != nil {
		return err
	}
	s.status = status
	return nil
}

// SetHeader sets one pending header.
func (s *Sender) SetHeader(name, value string) error {
	if err := s.assertIdle("set header " + name); err != nil {
		return err
	}
	s.w.Header().Set(name, value)
	return nil
}

// SetHeaders merges headers into the pending state.
func (s *Sender) SetHeaders(headers map[string]string) error {
	if err := s.assertIdle("set headers"); err != nil {
		return err
	}
	for name, value := range headers {
		s.w.Header().Set(name, value)
	}
	return nil
}

// RemoveHeaders deletes pending headers.
func (s *Sender) RemoveHeaders(names ...string) error {
	if err := s.assertIdle("remove headers"); err != nil {
		return err
	}
	for _, name := range names {
		s.w.Header().Del(name)
	}
	return nil
}

// RemoveContentHeaders deletes the headers describing a body.
func (s *Sender) RemoveContentHeaders() error {
	return s.RemoveHeaders(contentHeaders...)
}

// Send commits headers and writes body. HEAD requests get headers only.
// It returns once the body has been handed to the connection.
func (s *Sender) Send(body []byte, opts SendOptions) (bool, error) {
	if s.HeadersSent() {
		return false, s.alreadySent("send")
	}

	s.prepare(opts.Status, opts.CleanOldHeaders, opts.Headers)
	if bodyAllowed(s.status) && !s.HasHeader("Content-Length") {
		s.w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	}

	if err := s.commit(); err != nil {
		return false, err
	}
	defer func() { s.state = stateSent }()

	if s.r.Method == http.MethodHead || len(body) == 0 || !bodyAllowed(s.status) {
		return true, nil
	}

	if _, err := s.w.Write(body); err != nil {
		return false, servekit.New(servekit.KindGeneral, "write response body", servekit.WithCause(err))
	}
	if err := http.NewResponseController(s.w).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return false, servekit.New(servekit.KindGeneral, "flush response body", servekit.WithCause(err))
	}

	return true, nil
}

// Stream commits headers and copies src into the response. Copy failures
// are passed through opts.MapError; they are never returned raw.
func (s *Sender) Stream(src io.Reader, opts StreamOptions) error {
	if s.HeadersSent() {
		return s.alreadySent("stream")
	}

	s.prepare(opts.Status, opts.CleanOldHeaders, opts.Headers)
	if err := s.commit(); err != nil {
		return err
	}
	defer func() { s.state = stateSent }()

	if s.r.Method == http.MethodHead || !bodyAllowed(s.status) {
		return nil
	}

	mapError := opts.MapError
	if mapError == nil {
		mapError = func(err error) error {
			return servekit.New(servekit.KindGeneral, "stream response body", servekit.WithCause(err))
		}
	}

	if _, err := io.Copy(s.w, src); err != nil {
		return servekit.AsError(mapError(err))
	}
	if err := http.NewResponseController(s.w).Flush(); err != nil && !errors.Is(err, http.ErrNotSupported) {
		return servekit.AsError(mapError(err))
	}

	return nil
}

// SendEntity sends an in-memory entity with a strong ETag, answering 304
// when the request already holds a fresh copy.
func (s *Sender) SendEntity(body []byte, contentType string, status int) (bool, error) {
	if err := s.SetHeader("Content-Type", contentType); err != nil {
		return false, err
	}

	tag := s.Header("ETag")
	if tag == "" {
		tag = etag.Strong(body, false)
		if err := s.SetHeader("ETag", tag); err != nil {
			return false, err
		}
	}

	if etag.IsCacheableStatus(status) && etag.IsFresh(s.r.Header, tag, lastModifiedOf(s)) {
		if err := s.RemoveContentHeaders(); err != nil {
			return false, err
		}
		return s.Send(nil, SendOptions{Status: http.StatusNotModified})
	}

	return s.Send(body, SendOptions{Status: status})
}

func (s *Sender) prepare(status int, clean bool, headers map[string]string) {
	if clean {
		for name := range s.w.Header() {
			if preservedHeader(name) {
				continue
			}
			s.w.Header().Del(name)
		}
	}
	for name, value := range headers {
		s.w.Header().Set(name, value)
	}
	if status != 0 {
		s.status = status
	}
}

// preservedHeader reports whether a header survives CleanOldHeaders.
func preservedHeader(name string) bool {
	switch name {
	case "Vary", "X-Frame-Options", "Referrer-Policy", "X-Trace-Id":
		return true
	default:
		return strings.HasPrefix(name, "Access-Control-")
	}
}

func (s *Sender) commit() error {
	if s.state != stateIdle {
		return s.alreadySent("commit headers")
	}

	if s.r.Method != http.MethodHead && bodyAllowed(s.status) && s.Header("Content-Type") == "" {
		return servekit.New(servekit.KindHTTP, "Content-Type must be set before sending a body",
			servekit.WithStatus(http.StatusInternalServerError),
			servekit.WithParams(servekit.Params{"status": s.status, "method": s.r.Method}),
		)
	}

	s.state = stateCommitted
	s.w.WriteHeader(s.status)

	return nil
}

func (s *Sender) assertIdle(op string) error {
	if s.state != stateIdle {
		return s.alreadySent(op)
	}
	return nil
}

func (s *Sender) alreadySent(op string) error {
	return servekit.New(servekit.KindGeneral, "cannot "+op+", headers are sent",
		servekit.WithParams(servekit.Params{"state": s.state.String()}))
}

// bodyAllowed reports whether a response with status may carry a body.
func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status < 200:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	default:
		return true
	}
}
