package web

import (
	"errors"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"syscall"

	"v8console/internal/logger"
)

// notFoundBody is the fixed HTML reply for paths that resolve to no file.
const notFoundBody = `<!DOCTYPE html>
<html>
<head><title>404 Not Found</title></head>
<body><h1>404 Not Found</h1><p>No such file under the console root.</p></body>
</html>
`

// StaticHandler resolves URL paths to files under a fixed asset root and
// answers plain requests. Bare directory paths default to their
// index.html member.
type StaticHandler struct {
	root fs.FS
}

// NewStaticHandler creates a handler rooted at root.
func NewStaticHandler(root fs.FS) *StaticHandler {
	return &StaticHandler{root: root}
}

func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := resolvePath(r.URL.Path)

	data, err := h.readFile(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			h.notFound(w, r)
			return
		}
		// Unexpected I/O or permission fault: answer and keep serving.
		logger.Error("Static read %s: %v", name, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", contentType(name, data))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	if _, err := w.Write(data); err != nil {
		h.writeFault(r, err)
	}
}

// readFile reads name under the root, retrying directories with their
// index.html member.
func (h *StaticHandler) readFile(name string) ([]byte, error) {
	info, err := fs.Stat(h.root, name)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		name = path.Join(name, "index.html")
	}
	return fs.ReadFile(h.root, name)
}

func (h *StaticHandler) notFound(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusNotFound)
	if _, err := w.Write([]byte(notFoundBody)); err != nil {
		h.writeFault(r, err)
	}
}

// writeFault classifies a response-write failure: an aborted client is
// absorbed silently, anything else is logged. Neither crashes the
// listening loop.
func (h *StaticHandler) writeFault(r *http.Request, err error) {
	if isClientAbort(err) {
		logger.Debug("Client aborted while writing %s", r.URL.Path)
		return
	}
	logger.Error("Static write %s: %v", r.URL.Path, err)
}

// resolvePath maps a URL path to a name inside the asset root. The
// cleaned path cannot escape the root.
func resolvePath(urlPath string) string {
	p := path.Clean("/" + urlPath)
	p = strings.TrimPrefix(p, "/")
	if p == "" {
		return "index.html"
	}
	return p
}

func contentType(name string, data []byte) string {
	ext := path.Ext(name)
	// Serve .js with an explicit type regardless of the host's mime table
	if ext == ".js" {
		return "application/javascript"
	}
	if ctype := mime.TypeByExtension(ext); ctype != "" {
		return ctype
	}
	return http.DetectContentType(data)
}

func isClientAbort(err error) bool {
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "broken pipe") || strings.Contains(msg, "connection reset by peer")
}
