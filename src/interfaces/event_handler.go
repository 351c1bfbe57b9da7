package interfaces

import "flashbook-monitor/src/models"

// -----------------------------------------------------------------------------
// IEventHandler receives decoded inbound events, one method per event kind.
// -----------------------------------------------------------------------------

type IEventHandler interface {
	OnBBO(event models.MBBOUpdate)
	OnTrade(event models.MTrade)
	OnBook(event models.MBookSnapshot)
	OnAgentStatus(event models.MAgentStatus)
	OnStats(event models.MExchangeStats)
	OnOrderUpdate(event models.MOrderUpdate)
	OnAgentAction(event models.MAgentAction)
}
