package models

// ConnState is the lifecycle state of the exchange socket.
type ConnState int

const (
	ConnIdle ConnState = iota
	ConnConnecting
	ConnOpen
	ConnClosed
)

func (s ConnState) String() string {
	switch s {
	case ConnIdle:
		return "idle"
	case ConnConnecting:
		return "connecting"
	case ConnOpen:
		return "open"
	case ConnClosed:
		return "closed"
	}
	return "unknown"
}

// MConnectionStatus is the read-only view of the connection manager.
type MConnectionStatus struct {
	State             string `json:"state"`
	ReconnectAttempts int    `json:"reconnect_attempts"`
	Terminal          bool   `json:"terminal"`
	RetryPending      bool   `json:"retry_pending"`
	SessionID         string `json:"session_id,omitempty"`
	LastError         string `json:"last_error,omitempty"`
}
