package models

import (
	"slices"
	"strconv"
	"strings"
)

// -----------------------------------------------------------------------------
// Strategy identifiers known to the simulator
// -----------------------------------------------------------------------------

const (
	StrategyNoise       = "noise"
	StrategyMarketMaker = "market_maker"
	StrategyMomentum    = "momentum"
)

var KnownStrategies = []string{StrategyNoise, StrategyMarketMaker, StrategyMomentum}

func IsKnownStrategy(name string) bool {
	return slices.Contains(KnownStrategies, name)
}

// -----------------------------------------------------------------------------

const (
	SideBuy  = "buy"
	SideSell = "sell"
)

// AgentIDPrefix is used to build roster ids (Agent_1, Agent_2, ...).
const AgentIDPrefix = "Agent_"

// AgentID builds the roster id for a 1-based position.
func AgentID(n int) string {
	return AgentIDPrefix + strconv.Itoa(n)
}

// AgentOrdinal extracts the numeric suffix of a roster id, or -1.
func AgentOrdinal(id string) int {
	n, err := strconv.Atoi(strings.TrimPrefix(id, AgentIDPrefix))
	if err != nil || !strings.HasPrefix(id, AgentIDPrefix) {
		return -1
	}
	return n
}

// -----------------------------------------------------------------------------
// MOpenOrder is a resting order reported by agent_status
// -----------------------------------------------------------------------------

type MOpenOrder struct {
	ID       string  `json:"id"`
	Side     string  `json:"side"`
	Quantity int64   `json:"quantity"`
	Price    *Number `json:"price,omitempty"`
}

// -----------------------------------------------------------------------------
// MAgentRecord is the local replica of one trading agent
// -----------------------------------------------------------------------------

type MAgentRecord struct {
	ID            string       `json:"agent_id"`
	Symbol        string       `json:"symbol"`
	Strategy      string       `json:"strategy"`
	RiskFactor    float64      `json:"risk_factor"`
	Bankroll      float64      `json:"bankroll"`
	Position      int64        `json:"position"`
	RealizedPnL   float64      `json:"realized_pnl"`
	UnrealizedPnL float64      `json:"unrealized_pnl"`
	TradeCount    int64        `json:"trade_count"`
	OpenOrders    []MOpenOrder `json:"open_orders"`
	IsActive      bool         `json:"is_active"`
}

// Clone returns a deep copy safe to hand to readers.
func (r MAgentRecord) Clone() MAgentRecord {
	out := r
	out.OpenOrders = cloneOrders(r.OpenOrders)
	return out
}

func cloneOrders(orders []MOpenOrder) []MOpenOrder {
	if orders == nil {
		return nil
	}
	out := make([]MOpenOrder, len(orders))
	for i, o := range orders {
		out[i] = o
		if o.Price != nil {
			p := *o.Price
			out[i].Price = &p
		}
	}
	return out
}

// -----------------------------------------------------------------------------
// MAgentDelta carries only the fields present in an agent_status payload.
// A nil field means "unchanged".
// -----------------------------------------------------------------------------

type MAgentDelta struct {
	AgentID       string        `json:"agent_id"`
	Symbol        *string       `json:"symbol,omitempty"`
	IsActive      *bool         `json:"is_active,omitempty"`
	Strategy      *string       `json:"strategy,omitempty"`
	RiskFactor    *float64      `json:"risk_factor,omitempty"`
	Bankroll      *Number       `json:"bankroll,omitempty"`
	Position      *int64        `json:"position,omitempty"`
	RealizedPnL   *Number       `json:"realized_pnl,omitempty"`
	UnrealizedPnL *Number       `json:"unrealized_pnl,omitempty"`
	TradeCount    *int64        `json:"trade_count,omitempty"`
	OpenOrders    *[]MOpenOrder `json:"open_orders,omitempty"`
}

// ApplyTo overwrites the fields present in the delta.
func (d MAgentDelta) ApplyTo(r *MAgentRecord) {
	if d.Symbol != nil {
		r.Symbol = *d.Symbol
	}
	if d.IsActive != nil {
		r.IsActive = *d.IsActive
	}
	if d.Strategy != nil {
		r.Strategy = *d.Strategy
	}
	if d.RiskFactor != nil {
		r.RiskFactor = *d.RiskFactor
	}
	if d.Bankroll != nil {
		r.Bankroll = d.Bankroll.Float()
	}
	if d.Position != nil {
		r.Position = *d.Position
	}
	if d.RealizedPnL != nil {
		r.RealizedPnL = d.RealizedPnL.Float()
	}
	if d.UnrealizedPnL != nil {
		r.UnrealizedPnL = d.UnrealizedPnL.Float()
	}
	if d.TradeCount != nil {
		r.TradeCount = *d.TradeCount
	}
	if d.OpenOrders != nil {
		r.OpenOrders = cloneOrders(*d.OpenOrders)
		if r.OpenOrders == nil {
			r.OpenOrders = []MOpenOrder{}
		}
	}
}
