package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagarc03/servekit"
	"github.com/sagarc03/servekit/etag"
	"github.com/sagarc03/servekit/filesystem"
	servehttp "github.com/sagarc03/servekit/http"
)

func newTestHandler(t *testing.T, root string, mutate ...func(*servehttp.HandlerConfig)) http.Handler {
	t.Helper()

	config := &servehttp.HandlerConfig{
		Static: servehttp.StaticConfig{
			Root:         root,
			Prefix:       "/static",
			Dotfiles:     servekit.DotfilesIgnore,
			Cache:        servekit.CacheOptions{CacheControl: true, MaxAge: time.Hour, ETag: true, LastModified: true},
			AcceptRanges: true,
		},
	}
	for _, m := range mutate {
		m(config)
	}

	handler, err := servehttp.NewHandler(config, filesystem.NewStore(), nil)
	require.NoError(t, err)
	return handler.Router()
}

func TestHandler_HandleFile_Success(t *testing.T) {
	root := fixture(t, map[string]string{"docs/readme.txt": "Hello, World!"})
	router := newTestHandler(t, root)

	req := httptest.NewRequest(http.MethodGet, "/static/docs/readme.txt", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/plain; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "13", rec.Header().Get("Content-Length"))
	assert.Equal(t, "public, max-age=3600", rec.Header().Get("Cache-Control"))
	assert.Equal(t, etag.Weak(13, testModTime), rec.Header().Get("ETag"))
	assert.NotEmpty(t, rec.Header().Get(servehttp.TraceHeader))
	assert.Equal(t, "Hello, World!", rec.Body.String())
}

func TestHandler_HandleFile_EscapedPath(t *testing.T) {
	root := fixture(t, map[string]string{"with space.txt": "spaced"})
	router := newTestHandler(t, root)

	req := httptest.NewRequest(http.MethodGet, "/static/with%20space.txt", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "spaced", rec.Body.String())
}

func TestHandler_HandleFile_PercentInName(t *testing.T) {
	root := fixture(t, map[string]string{
		"100%.txt": "percent",
		"a%41.txt": "literal",
		"aA.txt":   "upper",
	})
	router := newTestHandler(t, root)

	tests := []struct {
		target string
		body   string
	}{
		{"/static/100%25.txt", "percent"},
		{"/static/a%2541.txt", "literal"},
		{"/static/a%41.txt", "upper"},
	}

	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.target, nil))

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tt.body, rec.Body.String())
		})
	}
}

func TestHandler_HandleFile_Head(t *testing.T) {
	root := fixture(t, map[string]string{"a.txt": "0123456789"})
	router := newTestHandler(t, root)

	req := httptest.NewRequest(http.MethodHead, "/static/a.txt", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "10", rec.Header().Get("Content-Length"))
	assert.Empty(t, rec.Body.String())
}

func TestHandler_HandleFile_NotFound(t *testing.T) {
	router := newTestHandler(t, fixture(t, nil))

	req := httptest.NewRequest(http.MethodGet, "/static/missing.txt", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var body servehttp.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, "ENOTFOUND", body.Error)
}

func TestHandler_HandleFile_Directory(t *testing.T) {
	root := fixture(t, map[string]string{"docs/readme.txt": "x"})
	router := newTestHandler(t, root)

	for _, target := range []string{"/static/", "/static/docs"} {
		t.Run(target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

			assert.Equal(t, http.StatusNotFound, rec.Code)
		})
	}
}

func TestHandler_HandleFile_Traversal(t *testing.T) {
	root := fixture(t, map[string]string{"a.txt": "x"})
	router := newTestHandler(t, root)

	req := httptest.NewRequest(http.MethodGet, "/static/..%2f..%2fetc%2fpasswd", nil)
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "ENOTAUTHORIZED")
}

func TestHandler_HandleFile_Dotfiles(t *testing.T) {
	root := fixture(t, map[string]string{".env": "SECRET=1"})

	tests := []struct {
		policy servekit.DotfilesPolicy
		status int
	}{
		{servekit.DotfilesDeny, http.StatusForbidden},
		{servekit.DotfilesIgnore, http.StatusNotFound},
		{servekit.DotfilesAllow, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy), func(t *testing.T) {
			router := newTestHandler(t, root, func(c *servehttp.HandlerConfig) {
				c.Static.Dotfiles = tt.policy
			})

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/.env", nil))

			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestHandler_HandleFile_RangeNotSatisfiable(t *testing.T) {
	root := fixture(t, map[string]string{"a.txt": "0123456789"})
	router := newTestHandler(t, root)

	req := httptest.NewRequest(http.MethodGet, "/static/a.txt", nil)
	req.Header.Set("Range", "bytes=100-200")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestedRangeNotSatisfiable, rec.Code)
	assert.Equal(t, "bytes */10", rec.Header().Get("Content-Range"))
	assert.Empty(t, rec.Header().Get("ETag"))
}

func TestHandler_HandleFile_PreconditionFailed(t *testing.T) {
	root := fixture(t, map[string]string{"a.txt": "0123456789"})
	router := newTestHandler(t, root)

	req := httptest.NewRequest(http.MethodGet, "/static/a.txt", nil)
	req.Header.Set("If-Match", `"xyz"`)
	req.Header.Set("Accept", "text/html")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Contains(t, rec.Body.String(), "<pre>EPRECONDITION</pre>")
}

func TestHandler_Healthz(t *testing.T) {
	router := newTestHandler(t, fixture(t, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	tag := rec.Header().Get("ETag")
	require.NotEmpty(t, tag)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("If-None-Match", tag)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestHandler_UnknownRoute(t *testing.T) {
	router := newTestHandler(t, fixture(t, nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/elsewhere", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "ENOTFOUND")
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	root := fixture(t, map[string]string{"a.txt": "x"})
	router := newTestHandler(t, root)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/static/a.txt", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))
	assert.Contains(t, rec.Body.String(), "EHTTPERROR")
}

func TestHandler_SecurityHeaders(t *testing.T) {
	root := fixture(t, map[string]string{"a.txt": "x"})
	router := newTestHandler(t, root, func(c *servehttp.HandlerConfig) {
		c.Security = servehttp.SecurityConfig{FrameOptions: servehttp.FrameDeny, ReferrerPolicy: "same-origin"}
	})

	for _, target := range []string{"/static/a.txt", "/static/missing"} {
		t.Run(target, func(t *testing.T) {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

			assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
			assert.Equal(t, "same-origin, no-referrer", rec.Header().Get("Referrer-Policy"))
		})
	}
}

func TestHandler_CORS(t *testing.T) {
	root := fixture(t, map[string]string{"a.txt": "x"})
	router := newTestHandler(t, root, func(c *servehttp.HandlerConfig) {
		c.CORS = servehttp.CORSConfig{
			Enabled:        true,
			AllowedOrigins: []string{"https://example.com"},
			AllowedMethods: []string{"GET", "HEAD"},
		}
	})

	req := httptest.NewRequest(http.MethodGet, "/static/missing", nil)
	req.Header.Set("Origin", "https://example.com")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "https://example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestNewHandler_InvalidSecurity(t *testing.T) {
	config := &servehttp.HandlerConfig{Security: servehttp.SecurityConfig{ReferrerPolicy: "bogus"}}

	_, err := servehttp.NewHandler(config, filesystem.NewStore(), nil)

	assert.Error(t, err)
}
