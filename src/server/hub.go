package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"flashbook-monitor/src/metrics"
	"flashbook-monitor/src/models"
)

// -----------------------------------------------------------------------------
// Hub Pattern Implementation
// -----------------------------------------------------------------------------

// handleWebsockets is the main Hub loop
func (s *OperatorServer) handleWebsockets() {
	for {
		select {
		case client := <-s.register:
			s.clients[client] = struct{}{}
			s.sendSnapshot(client)
			metrics.HubClients.Set(float64(len(s.clients)))

		case client := <-s.snapshot:
			// a client may ask after the hub already let it go
			if _, ok := s.clients[client]; ok {
				s.sendSnapshot(client)
				metrics.HubClients.Set(float64(len(s.clients)))
			}

		case client := <-s.unregister:
			if _, ok := s.clients[client]; ok {
				delete(s.clients, client)
				close(client.send)
				metrics.HubClients.Set(float64(len(s.clients)))
			}

		case event := <-s.broadcast:
			payload, err := json.Marshal(event)
			if err != nil {
				s.Logger.Error("Failed to encode %s event: %v", event.Event, err)
				continue
			}

			for client := range s.clients {
				if !client.wants(event.Event) {
					continue
				}
				if !client.offer(payload) {
					s.drop(client)
				}
			}
			metrics.HubClients.Set(float64(len(s.clients)))

		case <-s.done:
			for client := range s.clients {
				delete(s.clients, client)
				close(client.send)
			}
			metrics.HubClients.Set(0)
			return
		}
	}
}

// sendSnapshot and drop run on the hub loop only; it alone writes to or
// closes a client's send channel.
func (s *OperatorServer) sendSnapshot(client *Client) {
	if !client.offer(s.initialView()) {
		s.drop(client)
	}
}

func (s *OperatorServer) drop(client *Client) {
	s.Logger.Info("Dropping slow client %s", client.remote)
	delete(s.clients, client)
	close(client.send)
}

// requestSnapshot asks the hub loop to resend the full view to client.
func (s *OperatorServer) requestSnapshot(client *Client) {
	select {
	case s.snapshot <- client:
	case <-s.done:
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

// Broadcast queues a view event for every subscribed client. Never blocks;
// events are dropped while the queue is full.
func (s *OperatorServer) Broadcast(event models.MViewEvent) {
	select {
	case s.broadcast <- event:
	default:
		s.Logger.Debug("Hub queue full, dropping %s event", event.Event)
	}
}

// -----------------------------------------------------------------------------
// WebSocket Handlers
// -----------------------------------------------------------------------------

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------

func (s *OperatorServer) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}

	client := newClient(s, conn)

	select {
	case s.register <- client:
	case <-s.done:
		conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}

// -----------------------------------------------------------------------------

func (s *OperatorServer) initialView() []byte {
	payload, err := json.Marshal(s.Backend.View(models.ViewInitial))
	if err != nil {
		s.Logger.Error("Failed to encode initial view: %v", err)
		return []byte(`{"type":"INITIAL"}`)
	}
	return payload
}
