package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"

	"github.com/cbdb-network/cbdbnet/internal/httputil"
	"github.com/cbdb-network/cbdbnet/internal/models"
)

const (
	writeTimeout       = 10 * time.Second
	requestReadTimeout = 30 * time.Second
	wsReadLimit        = 4096
	sessionSendBuffer  = 64
	pingInterval       = 30 * time.Second
	pingTimeout        = 10 * time.Second
	maxMissedPongs     = int32(2)
)

var errInvalidMessage = errors.New("invalid message")

// Explorer runs an exploration that reports per-depth progress.
type Explorer interface {
	ExploreWithProgress(ctx context.Context, req models.ExploreRequest, progress models.ProgressFunc) (*models.NetworkResult, error)
}

// Session serves one exploration over a single WebSocket connection: it reads
// one explore message, streams progress events, then sends a result or error
// event and closes.
type Session struct {
	hub      *Hub
	conn     *websocket.Conn
	explorer Explorer
	log      *logrus.Logger

	// Client identifies the remote peer for per-client limits.
	Client string

	send       chan Event
	seq        uint64
	writerDone chan struct{}
	cancel     context.CancelFunc
	stop       chan struct{}
	stopOnce   sync.Once
	stopped    atomic.Bool
}

// NewSession creates a Session for conn. Register it with the hub before Run.
func NewSession(hub *Hub, conn *websocket.Conn, explorer Explorer, client string, log *logrus.Logger) *Session {
	return &Session{
		hub:        hub,
		conn:       conn,
		explorer:   explorer,
		log:        log,
		Client:     client,
		send:       make(chan Event, sessionSendBuffer),
		writerDone: make(chan struct{}),
		stop:       make(chan struct{}),
	}
}

// Stop asks a running session to cancel its exploration and close.
func (s *Session) Stop() {
	s.stopOnce.Do(func() {
		s.stopped.Store(true)
		close(s.stop)
	})
}

// Run serves the session until the exploration finishes, the peer goes away,
// ctx is cancelled or Stop is called. It always unregisters from the hub.
func (s *Session) Run(ctx context.Context) {
	defer s.hub.Unregister(s)
	defer s.conn.CloseNow() //nolint:errcheck // best-effort close on teardown

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.cancel = cancel

	go func() {
		select {
		case <-s.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	s.conn.SetReadLimit(wsReadLimit)

	go s.writePump(ctx)

	req, err := s.readRequest(ctx)

	switch {
	case errors.Is(err, errInvalidMessage):
		s.emit(EventError, ErrorData{Code: httputil.CodeInvalidRequest, Message: err.Error()})
	case err != nil:
		s.log.WithError(err).Debug("websocket closed before explore request")
	default:
		s.explore(s.exploreContext(ctx), req)
	}

	close(s.send)
	<-s.writerDone

	if s.stopped.Load() {
		s.conn.Close(websocket.StatusGoingAway, "server shutting down") //nolint:errcheck // best-effort
		return
	}

	s.conn.Close(websocket.StatusNormalClosure, "done") //nolint:errcheck // best-effort
}

// exploreContext derives a context that is also cancelled when the peer goes
// away. CloseRead gets a background context because a cancelled read context
// tears the connection down before the final event and close frame are sent.
func (s *Session) exploreContext(ctx context.Context) context.Context {
	peer := s.conn.CloseRead(context.Background())

	ctx, cancel := context.WithCancel(ctx)
	context.AfterFunc(peer, cancel)

	return ctx
}

// readRequest reads and decodes the single explore message.
func (s *Session) readRequest(ctx context.Context) (models.ExploreRequest, error) {
	readCtx, cancel := context.WithTimeout(ctx, requestReadTimeout)
	defer cancel()

	_, data, err := s.conn.Read(readCtx)
	if err != nil {
		return models.ExploreRequest{}, fmt.Errorf("reading request: %w", err)
	}

	var msg ExploreMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return models.ExploreRequest{}, fmt.Errorf("%w: %v", errInvalidMessage, err)
	}

	if msg.Type != MsgExplore {
		return models.ExploreRequest{}, fmt.Errorf("%w: expected type %q, got %q", errInvalidMessage, MsgExplore, msg.Type)
	}

	return msg.ExploreRequest, nil
}

func (s *Session) explore(ctx context.Context, req models.ExploreRequest) {
	s.log.WithFields(logrus.Fields{
		"client":     s.Client,
		"person_ids": req.PersonIDs,
	}).Debug("network.explore_stream")

	res, err := s.explorer.ExploreWithProgress(ctx, req, func(p models.DiscoveryProgress) {
		s.emit(EventProgress, p)
	})
	if err != nil {
		if ctx.Err() != nil {
			s.emit(EventError, ErrorData{Code: httputil.CodeInternalError, Message: "exploration cancelled"})
			return
		}

		_, code, msg := httputil.Classify(err)
		if code == httputil.CodeInternalError {
			s.log.WithError(err).Error("websocket exploration failed")
		}

		s.emit(EventError, ErrorData{Code: code, Message: msg})

		return
	}

	s.emit(EventResult, res)
}

// emit queues an event. It returns false if the writer has already stopped.
func (s *Session) emit(typ string, data any) bool {
	raw, err := json.Marshal(data)
	if err != nil {
		s.log.WithError(err).Error("failed to marshal event")
		return false
	}

	s.seq++
	evt := Event{Type: typ, ID: s.seq, Data: raw, Time: time.Now()}

	select {
	case s.send <- evt:
		return true
	case <-s.writerDone:
		return false
	}
}

// writePump writes queued events until the send channel closes or a write fails.
func (s *Session) writePump(ctx context.Context) {
	defer close(s.writerDone)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	var missedPongs atomic.Int32

	for {
		select {
		case <-ticker.C:
			if s.sendPing(ctx, &missedPongs) {
				s.cancel()
				return
			}
		case evt, ok := <-s.send:
			if !ok {
				return
			}

			msg, err := json.Marshal(evt)
			if err != nil {
				continue
			}

			// Not bound to ctx so the final event still flushes after cancellation.
			writeCtx, cancel := context.WithTimeout(context.Background(), writeTimeout)
			err = s.conn.Write(writeCtx, websocket.MessageText, msg)
			cancel()

			if err != nil {
				s.log.WithError(err).Debug("write failed")
				s.cancel()

				return
			}
		}
	}
}

// sendPing sends a WebSocket ping and reports whether the connection should close.
func (s *Session) sendPing(ctx context.Context, missedPongs *atomic.Int32) bool {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	err := s.conn.Ping(pingCtx)
	cancel()

	if err != nil {
		if missedPongs.Add(1) >= maxMissedPongs {
			s.log.Debug("closing: 2 consecutive missed pongs")
			return true
		}

		return false
	}

	missedPongs.Store(0)

	return false
}
