package web

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAssets() fstest.MapFS {
	return fstest.MapFS{
		"index.html":      {Data: []byte("<html>root console</html>")},
		"js/console.js":   {Data: []byte("// client")},
		"css/console.css": {Data: []byte("body {}")},
		"docs/index.html": {Data: []byte("<html>docs</html>")},
	}
}

func get(t *testing.T, h http.Handler, path string) *http.Response {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec.Result()
}

func TestStaticServesFile(t *testing.T) {
	h := NewStaticHandler(testAssets())

	resp := get(t, h, "/js/console.js")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/javascript", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "// client", string(body))
}

func TestStaticRootDefaultsToIndex(t *testing.T) {
	h := NewStaticHandler(testAssets())

	resp := get(t, h, "/")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "<html>root console</html>", string(body))
}

func TestStaticDirectoryDefaultsToIndex(t *testing.T) {
	h := NewStaticHandler(testAssets())

	for _, path := range []string{"/docs", "/docs/"} {
		resp := get(t, h, path)
		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		require.NoError(t, err)

		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, "<html>docs</html>", string(body), path)
	}
}

func TestStaticNotFound(t *testing.T) {
	h := NewStaticHandler(testAssets())

	resp := get(t, h, "/missing.html")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, notFoundBody, string(body), "404 replies carry the fixed HTML body")
}

func TestStaticTraversalIsContained(t *testing.T) {
	h := NewStaticHandler(testAssets())

	resp := get(t, h, "/../../etc/passwd")
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestStaticCSSContentType(t *testing.T) {
	h := NewStaticHandler(testAssets())

	resp := get(t, h, "/css/console.css")
	defer resp.Body.Close()

	assert.Contains(t, resp.Header.Get("Content-Type"), "text/css")
}

func TestResolvePath(t *testing.T) {
	tests := []struct {
		urlPath  string
		expected string
	}{
		{"/", "index.html"},
		{"", "index.html"},
		{"/index.html", "index.html"},
		{"/js/console.js", "js/console.js"},
		{"/docs/", "docs"},
		{"//js//console.js", "js/console.js"},
		{"/../secret", "secret"},
	}

	for _, tt := range tests {
		t.Run(tt.urlPath, func(t *testing.T) {
			assert.Equal(t, tt.expected, resolvePath(tt.urlPath))
		})
	}
}
