package interfaces

import "flashbook-monitor/src/models"

// -----------------------------------------------------------------------------
// IOperatorBackend is what the local operator API reads and drives.
// -----------------------------------------------------------------------------

type IOperatorBackend interface {
	IViewSource
	ConnectionStatus() models.MConnectionStatus

	Agents() []models.MAgentRecord
	Agent(id string) (models.MAgentRecord, bool)
	Trades(limit int) []models.MTradeEvent
	History(symbol string) []models.MPricePoint
	Summary(symbol string) models.MSeriesSummary
	Market(symbol string) (models.MMarketView, bool)
	Stats() (models.MExchangeStats, bool)

	SubmitControl(agentID, parameter string, value any) error
	SubmitGlobal(req models.MGlobalRequest) error
	RetryNow() error
}
