package server

import (
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"flashbook-monitor/src/models"
)

// -----------------------------------------------------------------------------
// Constants
// -----------------------------------------------------------------------------

const (
	writeWait      = 2 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	clientBuffer   = 256
)

// -----------------------------------------------------------------------------
// Client is one render client attached to the hub. Only the hub loop writes
// to send or closes it.
// -----------------------------------------------------------------------------

type Client struct {
	hub    *OperatorServer
	conn   *websocket.Conn
	send   chan []byte
	remote string

	mu     sync.RWMutex
	events map[string]bool // nil means every event
}

func newClient(hub *OperatorServer, conn *websocket.Conn) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, clientBuffer),
		remote: conn.RemoteAddr().String(),
	}
}

// -----------------------------------------------------------------------------
// Subscriptions
// -----------------------------------------------------------------------------

func (c *Client) subscribe(events []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(events) == 0 {
		c.events = nil
		return
	}
	c.events = make(map[string]bool, len(events))
	for _, e := range events {
		c.events[e] = true
	}
}

func (c *Client) wants(event string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.events == nil || c.events[event]
}

// offer queues payload unless the buffer is full.
func (c *Client) offer(payload []byte) bool {
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

// handleCommand understands {"command":"subscribe","events":[...]} and
// {"command":"snapshot"}. Anything unparsable ends the connection.
func (c *Client) handleCommand(message []byte) bool {
	var cmd models.MSubscribeCommand
	if err := json.Unmarshal(message, &cmd); err != nil {
		c.hub.Logger.Info("Bad command from %s: %v", c.remote, err)
		return false
	}
	switch cmd.Command {
	case "subscribe":
		c.subscribe(cmd.Events)
		c.hub.Logger.Debug("%s subscribed to %v", c.remote, cmd.Events)
	case "snapshot":
		c.hub.requestSnapshot(c)
	default:
		c.hub.Logger.Debug("Ignoring command %q from %s", cmd.Command, c.remote)
	}
	return true
}

// -----------------------------------------------------------------------------
// Pumps
// -----------------------------------------------------------------------------

// readPump applies client commands and doubles as the liveness watchdog.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		c.conn.Close()
		c.hub.Logger.Debug("Client %s disconnected", c.remote)
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.Logger.Info("Client %s read error: %v", c.remote, err)
			}
			return
		}
		if !c.handleCommand(message) {
			return
		}
	}
}

// writePump drains send and pings; a closed send channel means the hub let
// go of this client.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.write(websocket.TextMessage, message); err != nil {
				c.hub.Logger.Info("Client %s write error: %v", c.remote, err)
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) write(messageType int, data []byte) error {
	c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(messageType, data)
}
