package interfaces

import "flashbook-monitor/src/models"

// -----------------------------------------------------------------------------
// IDataExchanger pushes state changes to local render clients.
// -----------------------------------------------------------------------------

type IDataExchanger interface {
	// -----------------------------------------------------------------------------
	// Broadcast relays one change to every connected render client.
	Broadcast(event models.MViewEvent)

	// -----------------------------------------------------------------------------
	// Start the server
	Start() error

	// -----------------------------------------------------------------------------
	// Stop the server gracefully
	Stop() error
}

// -----------------------------------------------------------------------------
// IViewSource supplies full dashboard snapshots to render clients.
// -----------------------------------------------------------------------------

type IViewSource interface {
	View(kind string) models.MDashboardView
}
