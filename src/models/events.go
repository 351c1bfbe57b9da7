package models

import "github.com/goccy/go-json"

// -----------------------------------------------------------------------------
// Inbound discriminants
// -----------------------------------------------------------------------------

const (
	EventBBOUpdate     = "bbo_update"
	EventTrade         = "trade"
	EventBookSnapshot  = "book_snapshot"
	EventAgentStatus   = "agent_status"
	EventExchangeStats = "exchange_stats"
	EventOrderUpdate   = "order_update"
	EventAgentAction   = "agent_action"
)

// MEnvelope is the outer frame of every inbound message.
type MEnvelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// -----------------------------------------------------------------------------
// InboundEvent is the closed set of decoded inbound payloads.
// Only types in this package can implement it.
// -----------------------------------------------------------------------------

type InboundEvent interface {
	EventType() string
	inboundEvent()
}

// -----------------------------------------------------------------------------

type MBBOUpdate struct {
	Symbol    string    `json:"symbol"`
	BidPrice  *Number   `json:"bid_price"`
	BidQty    *int64    `json:"bid_qty"`
	AskPrice  *Number   `json:"ask_price"`
	AskQty    *int64    `json:"ask_qty"`
	Timestamp Timestamp `json:"timestamp"`
}

type MTrade struct {
	Symbol    string    `json:"symbol"`
	Price     Number    `json:"price"`
	Quantity  int64     `json:"quantity"`
	TradeID   string    `json:"trade_id"`
	Timestamp Timestamp `json:"timestamp"`
}

type MBookLevel struct {
	Price    Number `json:"price"`
	Quantity int64  `json:"quantity"`
}

type MBookSnapshot struct {
	Symbol string       `json:"symbol"`
	Bids   []MBookLevel `json:"bids"`
	Asks   []MBookLevel `json:"asks"`
}

type MAgentStatus struct {
	MAgentDelta
}

type MExchangeStats struct {
	TotalTrades      int64     `json:"total_trades"`
	TotalVolumeValue float64   `json:"total_volume_value"`
	Timestamp        Timestamp `json:"timestamp"`
}

type MOrderUpdate struct {
	ID                string  `json:"id"`
	Symbol            string  `json:"symbol"`
	Side              string  `json:"side"`
	Status            string  `json:"status"`
	Price             *Number `json:"price"`
	RemainingQuantity *int64  `json:"remaining_quantity"`
}

type MAgentAction struct {
	AgentID  string  `json:"agent_id"`
	Action   string  `json:"action"`
	Symbol   string  `json:"symbol"`
	Side     string  `json:"side"`
	Price    *Number `json:"price"`
	Quantity *int64  `json:"quantity"`
}

// -----------------------------------------------------------------------------

func (MBBOUpdate) EventType() string     { return EventBBOUpdate }
func (MTrade) EventType() string         { return EventTrade }
func (MBookSnapshot) EventType() string  { return EventBookSnapshot }
func (MAgentStatus) EventType() string   { return EventAgentStatus }
func (MExchangeStats) EventType() string { return EventExchangeStats }
func (MOrderUpdate) EventType() string   { return EventOrderUpdate }
func (MAgentAction) EventType() string   { return EventAgentAction }

func (MBBOUpdate) inboundEvent()     {}
func (MTrade) inboundEvent()         {}
func (MBookSnapshot) inboundEvent()  {}
func (MAgentStatus) inboundEvent()   {}
func (MExchangeStats) inboundEvent() {}
func (MOrderUpdate) inboundEvent()   {}
func (MAgentAction) inboundEvent()   {}
