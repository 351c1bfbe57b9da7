package models

// -----------------------------------------------------------------------------
// Dashboard view pushed to local render clients
// -----------------------------------------------------------------------------

const (
	ViewInitial = "INITIAL"
	ViewUpdate  = "UPDATE"
)

type MDashboardView struct {
	Type       string            `json:"type"` // "INITIAL" or "UPDATE"
	Connection MConnectionStatus `json:"connection"`
	Paused     bool              `json:"paused"`
	Agents     []MAgentRecord    `json:"agents"`
	Trades     []MTradeEvent     `json:"trades"`
	Stats      *MExchangeStats   `json:"stats,omitempty"`
	Timestamp  int64             `json:"timestamp"`
}

// MViewEvent relays one change to render clients.
type MViewEvent struct {
	Type      string `json:"type"`
	Event     string `json:"event"`
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// -----------------------------------------------------------------------------
// Operator requests accepted by the local API
// -----------------------------------------------------------------------------

type MControlRequest struct {
	Parameter string `json:"parameter"`
	Value     any    `json:"value"`
}

type MGlobalRequest struct {
	Command string  `json:"command"`
	Symbol  string  `json:"symbol,omitempty"`
	Percent *float64 `json:"percent,omitempty"` // required for market_event
}

// MSubscribeCommand is sent by render clients over the hub websocket.
type MSubscribeCommand struct {
	Command string   `json:"command"` // "subscribe" or "snapshot"
	Events  []string `json:"events,omitempty"`
}
