package servekit

import (
	"errors"
	"fmt"
	"net/http"
	"runtime"
	"strings"
)

// Kind is the closed set of error categories produced by the toolkit.
type Kind int

const (
	KindGeneral Kind = iota
	KindHTTP
	KindValidation
	KindNotFound
	KindNotAuthenticated
	KindNotAuthorized
	KindConflict
	KindPreconditionFailed
	KindRangeNotSatisfiable
	KindNotAcceptable
)

var kindInfo = map[Kind]struct {
	code   string
	status int
	name   string
}{
	KindGeneral:             {"EGENERAL", http.StatusInternalServerError, "general error"},
	KindHTTP:                {"EHTTPERROR", http.StatusBadRequest, "bad request"},
	KindValidation:          {"EVALIDATION", http.StatusBadRequest, "validation failed"},
	KindNotFound:            {"ENOTFOUND", http.StatusNotFound, "not found"},
	KindNotAuthenticated:    {"ENOTAUTHENTICATED", http.StatusUnauthorized, "not authenticated"},
	KindNotAuthorized:       {"ENOTAUTHORIZED", http.StatusForbidden, "not authorized"},
	KindConflict:            {"ECONFLICT", http.StatusConflict, "conflict"},
	KindPreconditionFailed:  {"EPRECONDITION", http.StatusPreconditionFailed, "precondition failed"},
	KindRangeNotSatisfiable: {"ERANGENOTSATISFIABLE", http.StatusRequestedRangeNotSatisfiable, "range not satisfiable"},
	KindNotAcceptable:       {"ENOTACCEPTABLE", http.StatusNotAcceptable, "not acceptable"},
}

// Code returns the machine readable tag of the kind.
func (k Kind) Code() string {
	if info, ok := kindInfo[k]; ok {
		return info.code
	}
	return codeUnknown
}

// HTTPStatus returns the default HTTP status of the kind.
func (k Kind) HTTPStatus() int {
	if info, ok := kindInfo[k]; ok {
		return info.status
	}
	return http.StatusInternalServerError
}

func (k Kind) String() string {
	if info, ok := kindInfo[k]; ok {
		return info.name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

const codeUnknown = "EUNKNOWN"

// Params carries structured details of an error. The "headers" entry, when
// it holds a map[string]string, is merged into the error response.
type Params map[string]any

// Error is the single error type of the toolkit. Kind selects the category;
// Code and HTTPStatus default to the kind's values.
type Error struct {
	Kind       Kind
	Code       string
	Message    string
	Params     Params
	HTTPStatus int
	Err        error

	stack []uintptr
}

var (
	// ErrGeneral matches internal failures and caller defects.
	ErrGeneral = &Error{Kind: KindGeneral}
	// ErrHTTP matches generic protocol level failures.
	ErrHTTP = &Error{Kind: KindHTTP}
	// ErrValidation matches invalid input.
	ErrValidation = &Error{Kind: KindValidation}
	// ErrNotFound matches missing resources.
	ErrNotFound = &Error{Kind: KindNotFound}
	// ErrNotAuthenticated matches missing credentials.
	ErrNotAuthenticated = &Error{Kind: KindNotAuthenticated}
	// ErrNotAuthorized matches forbidden access.
	ErrNotAuthorized = &Error{Kind: KindNotAuthorized}
	// ErrConflict matches state conflicts.
	ErrConflict = &Error{Kind: KindConflict}
	// ErrPreconditionFailed matches failed If-Match / If-Unmodified-Since.
	ErrPreconditionFailed = &Error{Kind: KindPreconditionFailed}
	// ErrRangeNotSatisfiable matches byte ranges that select nothing.
	ErrRangeNotSatisfiable = &Error{Kind: KindRangeNotSatisfiable}
	// ErrNotAcceptable matches failed media type negotiation.
	ErrNotAcceptable = &Error{Kind: KindNotAcceptable}
)

// Option customizes an Error built by New.
type Option func(*Error)

// WithParams attaches structured details.
func WithParams(p Params) Option {
	return func(e *Error) {
		for k, v := range p {
			e.Params[k] = v
		}
	}
}

// WithCause wraps the underlying error.
func WithCause(err error) Option {
	return func(e *Error) { e.Err = err }
}

// WithStatus overrides the kind's default HTTP status.
func WithStatus(status int) Option {
	return func(e *Error) { e.HTTPStatus = status }
}

// WithCode overrides the kind's default code.
func WithCode(code string) Option {
	return func(e *Error) { e.Code = code }
}

// New creates an Error of the given kind.
func New(kind Kind, msg string, opts ...Option) *Error {
	e := &Error{
		Kind:       kind,
		Code:       kind.Code(),
		Message:    msg,
		Params:     Params{},
		HTTPStatus: kind.HTTPStatus(),
	}
	for _, opt := range opts {
		opt(e)
	}

	pcs := make([]uintptr, 16)
	n := runtime.Callers(2, pcs)
	e.stack = pcs[:n]

	return e
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel of the same kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Kind == e.Kind
}

// Retriable reports whether the failure is on the server side.
func (e *Error) Retriable() bool {
	return e.HTTPStatus >= http.StatusInternalServerError
}

// Headers returns the response headers hinted by the error, if any.
func (e *Error) Headers() map[string]string {
	if e.Params == nil {
		return nil
	}
	h, _ := e.Params["headers"].(map[string]string)
	return h
}

// Stack renders the frames captured when the error was created.
func (e *Error) Stack() string {
	if len(e.stack) == 0 {
		return ""
	}

	var b strings.Builder
	frames := runtime.CallersFrames(e.stack)
	for {
		frame, more := frames.Next()
		_, _ = fmt.Fprintf(&b, "%s\n\t%s:%d\n", frame.Function, frame.File, frame.Line)
		if !more {
			break
		}
	}
	return b.String()
}

// ErrorValue is the serializable shape of an error handed to error senders.
type ErrorValue struct {
	Message    string `json:"message"`
	Stack      string `json:"stack,omitempty"`
	Code       string `json:"code"`
	Params     Params `json:"params"`
	HTTPStatus int    `json:"http_status"`
}

// AsError returns err as an *Error, wrapping foreign errors into a general
// error so nothing untyped escapes the toolkit.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	return New(KindGeneral, "unexpected error", WithCause(err), WithCode(codeUnknown))
}

// ValueOf flattens any error into an ErrorValue. The message carries the
// whole cause chain.
func ValueOf(err error) ErrorValue {
	var e *Error
	if !errors.As(err, &e) {
		return ErrorValue{
			Message:    fmt.Sprint(err),
			Code:       codeUnknown,
			Params:     Params{},
			HTTPStatus: http.StatusInternalServerError,
		}
	}

	params := make(Params, len(e.Params))
	for k, v := range e.Params {
		params[k] = v
	}

	status := e.HTTPStatus
	if status == 0 {
		status = e.Kind.HTTPStatus()
	}
	code := e.Code
	if code == "" {
		code = e.Kind.Code()
	}

	return ErrorValue{
		Message:    err.Error(),
		Stack:      e.Stack(),
		Code:       code,
		Params:     params,
		HTTPStatus: status,
	}
}
