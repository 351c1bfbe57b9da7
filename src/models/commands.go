package models

// -----------------------------------------------------------------------------
// Outbound parameters and global commands
// -----------------------------------------------------------------------------

const (
	ParamSetActive      = "set_active"
	ParamChangeStrategy = "change_strategy"
	ParamSetRisk        = "set_risk"
	ParamSetBankroll    = "set_bankroll"
)

const (
	CommandSetPause    = "set_pause"
	CommandSetResume   = "set_resume"
	CommandReset       = "reset"
	CommandMarketEvent = "market_event"
)

// Risk and market shock bounds enforced before sending.
const (
	MinRiskFactor   = 0.1
	MaxRiskFactor   = 2.0
	MinShiftPercent = -100.0
	MaxShiftPercent = 100.0
)

// -----------------------------------------------------------------------------
// OutboundCommand is either an agent control or a global command.
// -----------------------------------------------------------------------------

type OutboundCommand interface {
	CommandName() string
	outboundCommand()
}

// MAgentControl serializes as {"agent_id","parameter","value"}.
type MAgentControl struct {
	AgentID   string `json:"agent_id"`
	Parameter string `json:"parameter"`
	Value     any    `json:"value"`
}

// MGlobalCommand serializes as {"command","payload"?}.
type MGlobalCommand struct {
	Command string               `json:"command"`
	Payload *MMarketEventPayload `json:"payload,omitempty"`
}

type MMarketEventPayload struct {
	Symbol       string  `json:"symbol"`
	PercentShift float64 `json:"percent_shift"`
}

func (c MAgentControl) CommandName() string  { return c.Parameter }
func (c MGlobalCommand) CommandName() string { return c.Command }

func (MAgentControl) outboundCommand()  {}
func (MGlobalCommand) outboundCommand() {}
