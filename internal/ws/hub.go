// Package ws streams progressive network exploration over WebSocket.
package ws

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/cbdb-network/cbdbnet/internal/metrics"
)

// Default connection limits.
const (
	DefaultMaxSessions  = 200
	DefaultMaxPerClient = 4
	registerBuffer      = 64
	drainTimeout        = 3 * time.Second
)

type registration struct {
	session *Session
	ok      chan bool
}

// Hub tracks active sessions and enforces connection limits.
// All session map mutations happen exclusively in the Run goroutine.
type Hub struct {
	sessions     map[*Session]bool
	clientCount  map[string]int
	register     chan registration
	unregister   chan *Session
	shutdown     chan struct{}
	done         chan struct{}
	count        atomic.Int64
	maxSessions  int
	maxPerClient int
	log          *logrus.Logger
}

// NewHub creates a Hub. Non-positive limits fall back to the defaults.
func NewHub(log *logrus.Logger, maxSessions, maxPerClient int) *Hub {
	if maxSessions <= 0 {
		maxSessions = DefaultMaxSessions
	}

	if maxPerClient <= 0 {
		maxPerClient = DefaultMaxPerClient
	}

	return &Hub{
		sessions:     make(map[*Session]bool),
		clientCount:  make(map[string]int),
		register:     make(chan registration, registerBuffer),
		unregister:   make(chan *Session),
		shutdown:     make(chan struct{}),
		done:         make(chan struct{}),
		maxSessions:  maxSessions,
		maxPerClient: maxPerClient,
		log:          log,
	}
}

// Run starts the hub event loop. It should be run as a goroutine and exits
// when Shutdown is called or ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.drainSessions()
			return
		case <-h.shutdown:
			h.drainSessions()
			return
		case r := <-h.register:
			r.ok <- h.admit(r.session)
		case s := <-h.unregister:
			h.remove(s)
		}
	}
}

func (h *Hub) admit(s *Session) bool {
	if len(h.sessions) >= h.maxSessions {
		h.log.Warn("global websocket limit reached, rejecting session")
		return false
	}

	if h.clientCount[s.Client] >= h.maxPerClient {
		h.log.WithField("client", s.Client).Warn("per-client websocket limit reached, rejecting session")
		return false
	}

	h.sessions[s] = true
	h.clientCount[s.Client]++
	h.setCount()
	h.log.WithField("total", len(h.sessions)).Debug("session registered")

	return true
}

func (h *Hub) remove(s *Session) {
	if _, ok := h.sessions[s]; !ok {
		return
	}

	delete(h.sessions, s)

	h.clientCount[s.Client]--
	if h.clientCount[s.Client] <= 0 {
		delete(h.clientCount, s.Client)
	}

	h.setCount()
	h.log.WithField("total", len(h.sessions)).Debug("session unregistered")
}

func (h *Hub) setCount() {
	h.count.Store(int64(len(h.sessions)))
	metrics.WSConnections.Set(float64(len(h.sessions)))
}

// Register asks the hub to admit s. It returns false when a limit is reached
// or the hub has stopped; the caller must then close the connection itself.
func (h *Hub) Register(s *Session) bool {
	r := registration{session: s, ok: make(chan bool, 1)}

	select {
	case h.register <- r:
	case <-h.done:
		return false
	}

	select {
	case ok := <-r.ok:
		return ok
	case <-h.done:
		return false
	}
}

// Unregister removes a session from the hub. It returns once the hub has
// processed the removal.
func (h *Hub) Unregister(s *Session) {
	select {
	case h.unregister <- s:
	case <-h.done:
	}
}

// SessionCount returns the number of active sessions.
func (h *Hub) SessionCount() int {
	return int(h.count.Load())
}

// Shutdown stops every session and blocks until they have unregistered or
// the drain timeout expires.
func (h *Hub) Shutdown() {
	close(h.shutdown)
	<-h.done
}

// drainSessions stops all sessions and waits for them to unregister.
func (h *Hub) drainSessions() {
	if len(h.sessions) == 0 {
		return
	}

	h.log.WithField("sessions", len(h.sessions)).Info("draining websocket sessions")

	for s := range h.sessions {
		s.Stop()
	}

	deadline := time.After(drainTimeout)

	for len(h.sessions) > 0 {
		select {
		case s := <-h.unregister:
			h.remove(s)
		case r := <-h.register:
			r.ok <- false
		case <-deadline:
			h.log.WithField("sessions", len(h.sessions)).Warn("websocket drain timeout")
			h.sessions = make(map[*Session]bool)
			h.clientCount = make(map[string]int)
		}
	}

	h.setCount()
}
