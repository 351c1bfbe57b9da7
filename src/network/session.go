package network

import (
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sourcegraph/conc"

	"flashbook-monitor/src/helpers"
	"flashbook-monitor/src/interfaces"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 1024 * 1024 // 1MB, book snapshots can be large
	sendBuffer     = 64
)

var errSendBufferFull = errors.New("outbound buffer full")

// -----------------------------------------------------------------------------
// session is one live exchange connection and its read/write pumps.
// -----------------------------------------------------------------------------

type session struct {
	id      string
	conn    interfaces.IConn
	send    chan []byte
	done    chan struct{}
	once    sync.Once
	wg      conc.WaitGroup
	onFrame func([]byte)
	onEnd   func(*session, error)
}

// -----------------------------------------------------------------------------

func newSession(id string, conn interfaces.IConn, onFrame func([]byte), onEnd func(*session, error)) *session {
	return &session{
		id:      id,
		conn:    conn,
		send:    make(chan []byte, sendBuffer),
		done:    make(chan struct{}),
		onFrame: onFrame,
		onEnd:   onEnd,
	}
}

// -----------------------------------------------------------------------------

func (s *session) start() {
	s.wg.Go(s.readPump)
	s.wg.Go(s.writePump)
}

// -----------------------------------------------------------------------------

// enqueue hands a frame to the write pump without blocking.
func (s *session) enqueue(frame []byte) error {
	select {
	case <-s.done:
		return helpers.ErrNotConnected
	default:
	}

	select {
	case s.send <- frame:
		return nil
	case <-s.done:
		return helpers.ErrNotConnected
	default:
		return helpers.NewTransportError("send "+s.id, errSendBufferFull)
	}
}

// -----------------------------------------------------------------------------

// stop ends the session. onEnd runs at most once, with the first error.
func (s *session) stop(err error) {
	s.once.Do(func() {
		close(s.done)
		s.conn.Close()
		if s.onEnd != nil {
			s.onEnd(s, err)
		}
	})
}

// -----------------------------------------------------------------------------

// close sends a normal close frame before tearing the session down.
func (s *session) close() {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
	s.stop(helpers.ErrClosed)
}

// -----------------------------------------------------------------------------
// readPump - delivers inbound frames in arrival order
// Act as a Watchdog for the connection
// -----------------------------------------------------------------------------

func (s *session) readPump() {
	s.conn.SetReadLimit(maxMessageSize)
	s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := s.conn.ReadMessage()
		if err != nil {
			s.stop(helpers.NewTransportError("read", err))
			return
		}
		// extend the watchdog on any traffic
		s.conn.SetReadDeadline(time.Now().Add(pongWait))
		if msgType != websocket.TextMessage {
			continue
		}
		s.onFrame(message)
	}
}

// -----------------------------------------------------------------------------
// writePump - serializes outbound frames and keep-alive pings
// -----------------------------------------------------------------------------

func (s *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-s.send:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				s.stop(helpers.NewTransportError("write", err))
				return
			}

		case <-ticker.C:
			s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.stop(helpers.NewTransportError("ping", err))
				return
			}

		case <-s.done:
			return
		}
	}
}
