package server

import (
	"context"
	"io/ioutil"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Reeceeboii/calligraphy-site/pkg/config"
	"github.com/Reeceeboii/calligraphy-site/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testTemplate     = `<!DOCTYPE html><html><head><title>{{.Title}}</title></head><body><canvas id="calligraphyCanvas"></canvas></body></html>`
	testVerification = "google-site-verification: googlebfe4833e952a6934.html"
	testSitemap      = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"><url><loc>https://example.com/</loc></url></urlset>
`
	testScript = `const canvas = document.getElementById("calligraphyCanvas");`
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))
}

// lays out a complete site in a temporary directory and returns a config pointing at it
func newTestSite(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()

	writeFile(t, filepath.Join(root, "templates", "index.html"), testTemplate)
	writeFile(t, filepath.Join(root, "static", "script.js"), testScript)
	writeFile(t, filepath.Join(root, config.DefaultVerificationFile), testVerification)
	writeFile(t, filepath.Join(root, config.SitemapFile), testSitemap)
	writeFile(t, filepath.Join(root, "site.json"), `{"title": "Brushwork", "author": "R"}`)

	return &config.Config{
		Host:             "127.0.0.1",
		Port:             config.DefaultPort,
		SiteRoot:         root,
		TemplatePath:     filepath.Join(root, "templates", "index.html"),
		StaticDir:        filepath.Join(root, "static"),
		SiteInfoPath:     filepath.Join(root, "site.json"),
		VerificationFile: config.DefaultVerificationFile,
		StaticMaxAge:     3600,
	}
}

func newTestServer(t *testing.T, cfg *config.Config) *Server {
	t.Helper()
	srv, err := NewServer(cfg, logging.NewLoggerTo(ioutil.Discard))
	require.NoError(t, err)
	return srv
}

func do(srv *Server, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(method, target, nil))
	return rec
}

func TestHomepage(t *testing.T) {
	srv := newTestServer(t, newTestSite(t))

	first := do(srv, http.MethodGet, "/")
	require.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "text/html; charset=utf-8", first.Header().Get("Content-Type"))
	assert.Contains(t, first.Body.String(), "<title>Brushwork</title>")
	assert.Contains(t, first.Body.String(), `id="calligraphyCanvas"`)
	assert.Empty(t, first.Header().Get("Cache-Control"))

	// query parameters change nothing and repeats are byte-identical
	for _, target := range []string{"/", "/?title=injected", "/?x=1&y=2"} {
		rec := do(srv, http.MethodGet, target)
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, first.Body.Bytes(), rec.Body.Bytes(), target)
	}
}

func TestStaticFilesAreServedByteForByte(t *testing.T) {
	cfg := newTestSite(t)
	srv := newTestServer(t, cfg)

	testCases := []struct {
		name        string
		target      string
		body        string
		contentType string
	}{
		{"verification file", "/googlebfe4833e952a6934.html", testVerification, "text/html; charset=utf-8"},
		{"sitemap", "/sitemap.xml", testSitemap, "application/xml"},
		{"static script", "/static/script.js", testScript, "javascript"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				rec := do(srv, http.MethodGet, tc.target)
				require.Equal(t, http.StatusOK, rec.Code)
				assert.Equal(t, tc.body, rec.Body.String())
				assert.Contains(t, rec.Header().Get("Content-Type"), tc.contentType)
				assert.Equal(t, "max-age=3600", rec.Header().Get("Cache-Control"))
				assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
			}
		})
	}
}

func TestMissingFilesAreNotFound(t *testing.T) {
	cfg := newTestSite(t)
	srv := newTestServer(t, cfg)

	unknown := do(srv, http.MethodGet, "/nonexistent")
	require.Equal(t, http.StatusNotFound, unknown.Code)

	require.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/sitemap.xml").Code)
	require.NoError(t, os.Remove(filepath.Join(cfg.SiteRoot, config.SitemapFile)))
	require.NoError(t, os.Remove(filepath.Join(cfg.SiteRoot, config.DefaultVerificationFile)))

	for _, target := range []string{"/sitemap.xml", "/googlebfe4833e952a6934.html", "/static/missing.js"} {
		rec := do(srv, http.MethodGet, target)
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
		// indistinguishable from a path that was never registered
		assert.Equal(t, unknown.Body.String(), rec.Body.String(), target)
		assert.Empty(t, rec.Header().Get("Cache-Control"), target)
	}
}

func TestUnknownPathsAreNotFound(t *testing.T) {
	srv := newTestServer(t, newTestSite(t))

	for _, target := range []string{
		"/nonexistent",
		"/index.html",
		"/sitemap.xml/",
		"/googleffffffffffffffff.html",
		"/static/",
		"/site.json",
		"/templates/index.html",
	} {
		assert.Equal(t, http.StatusNotFound, do(srv, http.MethodGet, target).Code, target)
	}
}

func TestStaticCannotEscapeItsDirectory(t *testing.T) {
	srv := newTestServer(t, newTestSite(t))

	rec := do(srv, http.MethodGet, "/static/../site.json")

	assert.NotEqual(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "Brushwork")
}

func TestOtherMethodsAreRejected(t *testing.T) {
	srv := newTestServer(t, newTestSite(t))

	for _, method := range []string{http.MethodPost, http.MethodPut, http.MethodDelete} {
		for _, target := range []string{"/", "/sitemap.xml", "/googlebfe4833e952a6934.html"} {
			rec := do(srv, method, target)
			assert.Equal(t, http.StatusMethodNotAllowed, rec.Code, method+" "+target)
			assert.Equal(t, "GET, HEAD", rec.Header().Get("Allow"))
		}
	}
}

func TestHeadRequests(t *testing.T) {
	srv := newTestServer(t, newTestSite(t))

	rec := do(srv, http.MethodHead, "/sitemap.xml")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/xml", rec.Header().Get("Content-Type"))
}

func TestConditionalRequest(t *testing.T) {
	srv := newTestServer(t, newTestSite(t))

	req := httptest.NewRequest(http.MethodGet, "/sitemap.xml", nil)
	req.Header.Set("If-Modified-Since", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotModified, rec.Code)
}

func TestNewServerFailsFast(t *testing.T) {
	t.Run("missing template", func(t *testing.T) {
		cfg := newTestSite(t)
		require.NoError(t, os.Remove(cfg.TemplatePath))

		_, err := NewServer(cfg, logging.NewLoggerTo(ioutil.Discard))
		assert.Error(t, err)
	})

	t.Run("malformed template", func(t *testing.T) {
		cfg := newTestSite(t)
		writeFile(t, cfg.TemplatePath, `<title>{{.Title</title>`)

		_, err := NewServer(cfg, logging.NewLoggerTo(ioutil.Discard))
		assert.Error(t, err)
	})

	t.Run("template referencing unknown data", func(t *testing.T) {
		cfg := newTestSite(t)
		writeFile(t, cfg.TemplatePath, `<title>{{.Subtitle}}</title>`)

		_, err := NewServer(cfg, logging.NewLoggerTo(ioutil.Discard))
		assert.Error(t, err)
	})

	t.Run("malformed site info", func(t *testing.T) {
		cfg := newTestSite(t)
		writeFile(t, cfg.SiteInfoPath, `title: not json`)

		_, err := NewServer(cfg, logging.NewLoggerTo(ioutil.Discard))
		assert.Error(t, err)
	})
}

func TestShippedHomepageRenders(t *testing.T) {
	cfg := newTestSite(t)
	cfg.TemplatePath = filepath.Join("..", "..", "templates", "index.html")
	cfg.SiteInfoPath = filepath.Join("..", "..", "site.json")

	srv := newTestServer(t, cfg)
	rec := do(srv, http.MethodGet, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	for _, id := range []string{"calligraphyCanvas", "brushSize", "colorPicker"} {
		assert.Contains(t, body, `id="`+id+`"`)
	}
	assert.Contains(t, body, `src="/static/script.js"`)
	assert.True(t, strings.HasPrefix(body, "<!DOCTYPE html>"))
}

func TestServerStartAndShutdown(t *testing.T) {
	cfg := newTestSite(t)
	cfg.Port = 0
	srv := newTestServer(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start(ctx)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("server did not shut down")
	}
}
