package web

import (
	"sync"

	"v8console/internal/console"
	"v8console/internal/logger"
)

// Hub maintains the set of live console sessions so shutdown can close
// them. Sessions never share state with each other; the hub only tracks
// lifecycles.
type Hub struct {
	sessions   map[*console.Session]bool
	register   chan *console.Session
	unregister chan *console.Session
	mu         sync.RWMutex
	quit       chan struct{}
	stopOnce   sync.Once
}

// NewHub creates a new hub
func NewHub() *Hub {
	return &Hub{
		sessions:   make(map[*console.Session]bool),
		register:   make(chan *console.Session),
		unregister: make(chan *console.Session),
		quit:       make(chan struct{}),
	}
}

// Run starts the hub
func (h *Hub) Run() {
	logger.Debug("Session hub started")
	defer logger.Debug("Session hub stopped")

	for {
		select {
		case sess := <-h.register:
			h.mu.Lock()
			h.sessions[sess] = true
			h.mu.Unlock()
			logger.Debug("Session registered: %s", sess.ID())

		case sess := <-h.unregister:
			h.mu.Lock()
			delete(h.sessions, sess)
			h.mu.Unlock()
			logger.Debug("Session unregistered: %s", sess.ID())

		case <-h.quit:
			h.mu.Lock()
			for sess := range h.sessions {
				if err := sess.Close(); err != nil {
					logger.Debug("Session close: %v", err)
				}
				delete(h.sessions, sess)
			}
			h.mu.Unlock()
			return
		}
	}
}

// Stop stops the hub and closes every live session's transport.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() {
		close(h.quit)
	})
}

// Register registers a new session. It reports false once the hub has
// stopped; the caller still owns the transport then and must tear it
// down itself.
func (h *Hub) Register(sess *console.Session) bool {
	select {
	case h.register <- sess:
		return true
	case <-h.quit:
		return false
	}
}

// Unregister unregisters a session
func (h *Hub) Unregister(sess *console.Session) {
	select {
	case h.unregister <- sess:
	case <-h.quit:
	}
}

// SessionCount returns the number of live sessions
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}
