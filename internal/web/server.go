// Package web serves the console's front-end assets over plain HTTP and
// upgrades session requests to the interactive script protocol.
package web

import (
	"context"
	"crypto/rand"
	"embed"
	"encoding/hex"
	"fmt"
	"io/fs"
	"mime"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"v8console/internal/config"
	"v8console/internal/console"
	"v8console/internal/engine"
	"v8console/internal/logger"
)

// embedded fallback assets; cfg.AssetDir overrides with an on-disk root.
//
//go:embed static
var staticFiles embed.FS

const sessionIDLength = 8

// Server owns the listener, the request classifier and the set of live
// sessions.
type Server struct {
	cfg        *config.Config
	hub        *Hub
	static     *StaticHandler
	router     *httprouter.Router
	httpServer *http.Server
	listener   net.Listener
	upgrader   websocket.Upgrader
}

// NewServer creates a server serving assets from the configured root and
// routing upgrade requests to fresh console sessions.
func NewServer(cfg *config.Config) (*Server, error) {
	// Ensure .js files are served with correct MIME type
	if err := mime.AddExtensionType(".js", "application/javascript"); err != nil {
		logger.Warn("Failed to register .js MIME type: %v", err)
	}

	assets, err := assetRoot(cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:    cfg,
		hub:    NewHub(),
		static: NewStaticHandler(assets),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}

	router := httprouter.New()
	router.GET("/*filepath", s.handleRequest)
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		if v == http.ErrAbortHandler {
			logger.Debug("Client aborted %s", r.URL.Path)
			return
		}
		logger.Error("Panic serving %s: %v", r.URL.Path, v)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
	s.router = router

	return s, nil
}

func assetRoot(cfg *config.Config) (fs.FS, error) {
	if cfg.AssetDir != "" {
		info, err := os.Stat(cfg.AssetDir)
		if err != nil {
			return nil, fmt.Errorf("asset root %s: %w", cfg.AssetDir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("asset root %s is not a directory", cfg.AssetDir)
		}
		return os.DirFS(cfg.AssetDir), nil
	}
	return fs.Sub(staticFiles, "static")
}

// Start binds the listener and begins serving in the background.
func (s *Server) Start() error {
	listener, err := net.Listen("tcp", s.cfg.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.cfg.Addr(), err)
	}
	s.listener = listener

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go s.hub.Run()

	go func() {
		logger.Info("Console server listening on %s", listener.Addr())
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			// The accept loop is the only unconditionally fatal boundary.
			logger.Error("HTTP server error: %v", err)
		}
	}()

	return nil
}

// Addr returns the bound listen address. Valid after Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.cfg.Addr()
	}
	return s.listener.Addr().String()
}

// URL returns the browsable server URL. Valid after Start.
func (s *Server) URL() string {
	return "http://" + s.Addr() + "/"
}

// Stop closes all live sessions and shuts the HTTP server down.
func (s *Server) Stop() error {
	logger.Info("Stopping console server...")

	s.hub.Stop()

	if s.httpServer == nil {
		// Never started
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown HTTP server: %w", err)
	}

	return nil
}

// SessionCount returns the number of live sessions.
func (s *Server) SessionCount() int {
	return s.hub.SessionCount()
}

// handleRequest classifies each inbound request: an upgrade to the
// bidirectional transport becomes a console session, everything else
// goes to the static responder.
func (s *Server) handleRequest(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if websocket.IsWebSocketUpgrade(r) {
		s.handleSession(w, r)
		return
	}
	s.static.ServeHTTP(w, r)
}

// handleSession upgrades the connection and runs a session over it. Each
// session owns a freshly constructed engine; engines are never shared
// across sessions and never reused after a session ends.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client.
		logger.Error("Failed to upgrade connection: %v", err)
		return
	}

	id, _ := generateSessionID()
	sess := console.NewSession(id, conn, logger.Global())
	bridge := console.NewBridge(sess, logger.Global())

	if limit := s.cfg.MaxMessageSize; limit > 0 {
		conn.SetReadLimit(limit)
		sess.SetMaxInputSize(limit)
	}

	eng, err := engine.New(bridge)
	if err != nil {
		logger.Error("Failed to construct engine for session %s: %v", id, err)
		conn.Close()
		return
	}

	if !s.hub.Register(sess) {
		logger.Debug("Server stopping, rejecting session %s", id)
		conn.Close()
		return
	}
	logger.Debug("Session started: %s (%s)", id, r.RemoteAddr)

	go func() {
		defer func() {
			s.hub.Unregister(sess)
			conn.Close()
			logger.Debug("Session ended: %s", id)
		}()
		// Session faults end this session only, never the listener.
		_ = sess.Run(eng)
	}()
}

// generateSessionID generates a random session ID
func generateSessionID() (string, error) {
	bytes := make([]byte, sessionIDLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
