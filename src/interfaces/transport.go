package interfaces

import (
	"context"
	"time"

	"flashbook-monitor/src/models"
)

// -----------------------------------------------------------------------------
// IConn is the subset of a websocket connection used by a session.
// *websocket.Conn from gorilla satisfies it.
// -----------------------------------------------------------------------------

type IConn interface {
	ReadMessage() (messageType int, data []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadLimit(limit int64)
	SetReadDeadline(t time.Time) error
	SetWriteDeadline(t time.Time) error
	SetPongHandler(h func(appData string) error)
	Close() error
}

// -----------------------------------------------------------------------------
// IDialer opens exchange connections.
// -----------------------------------------------------------------------------

type IDialer interface {
	Dial(ctx context.Context, url string) (IConn, error)
}

// -----------------------------------------------------------------------------
// IConnectionHandler receives connection lifecycle callbacks.
// -----------------------------------------------------------------------------

type IConnectionHandler interface {

	// OnOpen runs once per successful connect, before any frame of that session.
	OnOpen(sessionID string)

	// -----------------------------------------------------------------------------

	// OnMessage delivers one text frame, in arrival order.
	OnMessage(frame []byte)

	// -----------------------------------------------------------------------------

	// OnClosed reports a lost or failed connection. retryIn is zero when no
	// retry was scheduled; terminal is true once the attempt budget is spent.
	OnClosed(err error, retryIn time.Duration, terminal bool)
}

// -----------------------------------------------------------------------------
// ICommandSender is the outbound side of the exchange connection.
// -----------------------------------------------------------------------------

type ICommandSender interface {
	State() models.ConnState
	Send(frame []byte) error
}

// -----------------------------------------------------------------------------
// ICommandRecorder keeps a record of commands that were sent.
// -----------------------------------------------------------------------------

type ICommandRecorder interface {
	RecordCommand(name string, body []byte)
}

// -----------------------------------------------------------------------------
// IConnection is the connection manager as seen by the event loop.
// -----------------------------------------------------------------------------

type IConnection interface {
	ICommandSender
	Status() models.MConnectionStatus
	RetryNow() error
}
