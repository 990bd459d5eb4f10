package e2e_test

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sagarc03/servekit/config"
	"github.com/sagarc03/servekit/filesystem"
	servehttp "github.com/sagarc03/servekit/http"
)

// fixedModTime is stamped on every fixture file so validators are stable.
var fixedModTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// ServerConfig holds the parts of the configuration a test varies.
type ServerConfig struct {
	Root           string
	Prefix         string
	Dotfiles       string // ignore, allow, deny
	MaxAge         string
	Immutable      bool
	Sniff          bool
	FrameOptions   string
	ReferrerPolicy string
	CORSOrigins    []string
}

// writeTree creates files under a new temp directory and returns it.
func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()

	root := t.TempDir()
	for name, content := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		require.NoError(t, os.Chtimes(path, fixedModTime, fixedModTime))
	}
	return root
}

// createConfigFile creates a temporary config file for the server.
// Returns the path to the config file.
func createConfigFile(t *testing.T, cfg ServerConfig) string {
	t.Helper()

	if cfg.Prefix == "" {
		cfg.Prefix = "/"
	}
	if cfg.Dotfiles == "" {
		cfg.Dotfiles = "ignore"
	}
	if cfg.MaxAge == "" {
		cfg.MaxAge = "1h"
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, `static:
  root: "%s"
  prefix: "%s"
  dotfiles: %s
  max_age: %s
  immutable: %t
  sniff: %t
`,
		filepath.ToSlash(cfg.Root),
		cfg.Prefix,
		cfg.Dotfiles,
		cfg.MaxAge,
		cfg.Immutable,
		cfg.Sniff,
	)

	if cfg.FrameOptions != "" || cfg.ReferrerPolicy != "" {
		fmt.Fprintf(&sb, "\nsecurity:\n  frame_options: %q\n  referrer_policy: %q\n", cfg.FrameOptions, cfg.ReferrerPolicy)
	}

	if len(cfg.CORSOrigins) > 0 {
		sb.WriteString("\ncors:\n  enabled: true\n  allowed_origins:\n")
		for _, origin := range cfg.CORSOrigins {
			fmt.Fprintf(&sb, "    - %s\n", origin)
		}
	}

	sb.WriteString("\nlog:\n  level: error\n")

	configPath := filepath.Join(t.TempDir(), "config.yaml")
	err := os.WriteFile(configPath, []byte(sb.String()), 0o600)
	require.NoError(t, err, "write config file")

	return configPath
}

// startServer loads the configuration the way the serve command does and
// serves the router on a local listener. The server is closed when the
// test ends.
func startServer(t *testing.T, cfg ServerConfig) string {
	t.Helper()

	loaded, err := config.Load([]string{createConfigFile(t, cfg)}, nil)
	require.NoError(t, err, "load config")

	hc, err := loaded.Handler()
	require.NoError(t, err, "build handler config")

	handler, err := servehttp.NewHandler(hc, filesystem.NewStore(), slog.New(slog.DiscardHandler))
	require.NoError(t, err, "create handler")

	server := httptest.NewServer(handler.Router())
	t.Cleanup(server.Close)

	return server.URL
}

// do sends a request with the given headers and returns the response. The
// body is closed when the test ends.
func do(t *testing.T, method, url string, headers map[string]string) *http.Response {
	t.Helper()

	req, err := http.NewRequest(method, url, nil)
	require.NoError(t, err)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })

	return resp
}
