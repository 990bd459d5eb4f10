package http

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/sagarc03/servekit"
)

// CORSConfig configures the optional CORS middleware.
type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled" yaml:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins" yaml:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods" yaml:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers" yaml:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers" yaml:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials" yaml:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age" yaml:"max_age" validate:"min=0"`
}

// StaticConfig describes the served directory and the caching policy
// applied to every file under it.
type StaticConfig struct {
	Root         string
	Prefix       string
	Dotfiles     servekit.DotfilesPolicy
	Cache        servekit.CacheOptions
	AcceptRanges bool
	Sniff        bool
}

type HandlerConfig struct {
	Static   StaticConfig
	Security SecurityConfig
	CORS     CORSConfig
}

// Handler serves static files from a Filesystem.
type Handler struct {
	config   HandlerConfig
	fs       Filesystem
	logger   *slog.Logger
	errors   *ErrorSender
	security func(http.Handler) http.Handler
}

// NewHandler creates a Handler. The security configuration is validated here.
func NewHandler(config *HandlerConfig, fsys Filesystem, logger *slog.Logger) (*Handler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	security, err := SecurityHeaders(config.Security)
	if err != nil {
		return nil, err
	}

	return &Handler{
		config:   *config,
		fs:       fsys,
		logger:   logger,
		errors:   NewErrorSender(logger),
		security: security,
	}, nil
}

// Router returns an http.Handler serving GET and HEAD for files under the
// configured prefix, and /healthz.
func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(h.logger))
	r.Use(h.security)

	if h.config.CORS.Enabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.config.CORS.AllowedOrigins,
			AllowedMethods:   h.config.CORS.AllowedMethods,
			AllowedHeaders:   h.config.CORS.AllowedHeaders,
			ExposedHeaders:   h.config.CORS.ExposedHeaders,
			AllowCredentials: h.config.CORS.AllowCredentials,
			MaxAge:           h.config.CORS.MaxAge,
		}))
	}

	r.NotFound(h.handleNotFound)
	r.MethodNotAllowed(h.handleMethodNotAllowed)

	r.Get("/healthz", h.handleHealth)
	r.Head("/healthz", h.handleHealth)

	pattern := strings.TrimRight(h.config.Static.Prefix, "/") + "/*"
	r.Get(pattern, h.handleFile)
	r.Head(pattern, h.handleFile)

	return r
}

// FileServeOptions builds the options for serving path.
func (h *Handler) FileServeOptions(path string) servekit.FileServeOptions {
	return servekit.FileServeOptions{
		Root:         h.config.Static.Root,
		Path:         path,
		Dotfiles:     h.config.Static.Dotfiles,
		CacheOptions: h.config.Static.Cache,
		AcceptRanges: h.config.Static.AcceptRanges,
		Sniff:        h.config.Static.Sniff,
	}
}

func (h *Handler) handleFile(w http.ResponseWriter, r *http.Request) {
	s := NewSender(w, r)
	logger := LoggerFromContext(r.Context(), h.logger)

	path, err := wildcardPath(r)
	if err != nil {
		h.errors.Send(s, servekit.New(servekit.KindValidation, "invalid path", servekit.WithCause(err),
			servekit.WithParams(servekit.Params{"path": chi.URLParam(r, "*")})))
		return
	}

	fsend, err := NewFileSender(h.fs, logger, h.FileServeOptions("/"+path))
	if err != nil {
		h.errors.Send(s, err)
		return
	}

	if err := fsend.Send(s); err != nil {
		h.errors.Send(s, err)
	}
}

// wildcardPath returns the decoded wildcard segment. chi routes on RawPath
// when it is set, so only then is the parameter still escaped.
func wildcardPath(r *http.Request) (string, error) {
	param := chi.URLParam(r, "*")
	if r.URL.RawPath == "" {
		return param, nil
	}
	return url.PathUnescape(param)
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	s := NewSender(w, r)
	if err := s.SetHeader("Cache-Control", "no-cache"); err != nil {
		h.errors.Send(s, err)
		return
	}
	if _, err := s.SendEntity([]byte(`{"status":"ok"}`), "application/json", http.StatusOK); err != nil {
		h.errors.Send(s, err)
	}
}

func (h *Handler) handleNotFound(w http.ResponseWriter, r *http.Request) {
	h.errors.Send(NewSender(w, r), servekit.New(servekit.KindNotFound, "route not found",
		servekit.WithParams(servekit.Params{"path": r.URL.Path})))
}

func (h *Handler) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	h.errors.Send(NewSender(w, r), servekit.New(servekit.KindHTTP, "method not allowed",
		servekit.WithStatus(http.StatusMethodNotAllowed),
		servekit.WithParams(servekit.Params{
			"method":  r.Method,
			"headers": map[string]string{"Allow": "GET, HEAD"},
		})))
}
