package simulator

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"flashbook-monitor/src/helpers"
	"flashbook-monitor/src/models"
)

const (
	startPrice    = 100.0
	tickSize      = 0.01
	statsEvery    = 5
	bookEvery     = 3
	minPrice      = 0.01
	bookDepth     = 5
	walkVolatility = 0.002
)

// agentState is the simulator's own copy of an agent. The monitor only ever
// sees it through agent_status deltas.
type agentState struct {
	models.MAgentRecord
	dirty bool
}

// -----------------------------------------------------------------------------
// Market generates a plausible stream of exchange events for a roster.
// Safe for concurrent Step and Apply.
// -----------------------------------------------------------------------------

type Market struct {
	mu      sync.Mutex
	rng     *rand.Rand
	symbols []string
	prices  map[string]float64
	agents  []*agentState
	byID    map[string]*agentState
	paused  bool
	tick    int64
	trades  int64
	volume  float64
}

// -----------------------------------------------------------------------------

func NewMarket(roster []models.MRosterEntry, seed uint64) *Market {
	m := &Market{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		prices: make(map[string]float64),
		byID:   make(map[string]*agentState),
	}
	n := 0
	for _, entry := range roster {
		m.symbols = append(m.symbols, entry.Symbol)
		m.prices[entry.Symbol] = startPrice
		for _, tpl := range entry.Agents {
			n++
			a := &agentState{MAgentRecord: models.MAgentRecord{
				ID:         models.AgentID(n),
				Symbol:     entry.Symbol,
				Strategy:   tpl.Strategy,
				RiskFactor: tpl.RiskFactor,
				Bankroll:   tpl.Bankroll,
				IsActive:   true,
				OpenOrders: []models.MOpenOrder{},
			}, dirty: true}
			m.agents = append(m.agents, a)
			m.byID[a.ID] = a
		}
	}
	return m
}

// -----------------------------------------------------------------------------

func (m *Market) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

func (m *Market) Price(symbol string) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prices[symbol]
}

func (m *Market) Agent(id string) (models.MAgentRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byID[id]
	if !ok {
		return models.MAgentRecord{}, false
	}
	return a.Clone(), true
}

// -----------------------------------------------------------------------------
// Event generation
// -----------------------------------------------------------------------------

// Step advances the market by one tick and returns the encoded frames to
// broadcast. A paused market only reports pending agent changes.
func (m *Market) Step(now time.Time) ([][]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var frames [][]byte
	add := func(eventType string, payload any) error {
		f, err := encodeFrame(eventType, payload)
		if err != nil {
			return err
		}
		frames = append(frames, f)
		return nil
	}
	ts := now.UTC().Format(time.RFC3339Nano)

	if !m.paused {
		m.tick++
		for _, symbol := range m.symbols {
			price := m.walk(symbol)
			bid, ask := roundTick(price-tickSize), roundTick(price+tickSize)
			if err := add(models.EventBBOUpdate, bboPayload(symbol, bid, ask, m.rng.Int64N(50)+1, m.rng.Int64N(50)+1, ts)); err != nil {
				return nil, err
			}

			qty := m.rng.Int64N(20) + 1
			m.trades++
			m.volume += price * float64(qty)
			if err := add(models.EventTrade, map[string]any{
				"symbol":    symbol,
				"price":     strconv.FormatFloat(roundTick(price), 'f', 2, 64),
				"quantity":  qty,
				"trade_id":  uuid.NewString(),
				"timestamp": ts,
			}); err != nil {
				return nil, err
			}
			m.fill(symbol, price, qty)

			if m.tick%bookEvery == 0 {
				if err := add(models.EventBookSnapshot, m.book(symbol, bid, ask)); err != nil {
					return nil, err
				}
			}
		}
		if m.tick%statsEvery == 0 {
			if err := add(models.EventExchangeStats, map[string]any{
				"total_trades":       m.trades,
				"total_volume_value": math.Round(m.volume*100) / 100,
				"timestamp":          ts,
			}); err != nil {
				return nil, err
			}
		}
	}

	for _, a := range m.agents {
		if !a.dirty {
			continue
		}
		a.dirty = false
		if err := add(models.EventAgentStatus, a.MAgentRecord); err != nil {
			return nil, err
		}
	}
	return frames, nil
}

// -----------------------------------------------------------------------------

func (m *Market) walk(symbol string) float64 {
	p := m.prices[symbol] * (1 + m.rng.NormFloat64()*walkVolatility)
	if p < minPrice {
		p = minPrice
	}
	m.prices[symbol] = p
	return p
}

// fill books the trade against one random active agent of the symbol.
func (m *Market) fill(symbol string, price float64, qty int64) {
	var candidates []*agentState
	for _, a := range m.agents {
		if a.Symbol == symbol && a.IsActive {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return
	}
	a := candidates[m.rng.IntN(len(candidates))]
	side := int64(1)
	if m.rng.IntN(2) == 0 {
		side = -1
	}
	cost := price * float64(qty) * a.RiskFactor
	if side > 0 && cost > a.Bankroll {
		return
	}
	a.Position += side * qty
	a.Bankroll -= float64(side) * price * float64(qty)
	a.TradeCount++
	a.UnrealizedPnL = float64(a.Position) * (price - startPrice)
	a.dirty = true
}

func (m *Market) book(symbol string, bid, ask float64) map[string]any {
	bids := make([]map[string]any, 0, bookDepth)
	asks := make([]map[string]any, 0, bookDepth)
	for i := 0; i < bookDepth; i++ {
		step := float64(i) * tickSize
		bids = append(bids, map[string]any{"price": roundTick(bid - step), "quantity": m.rng.Int64N(100) + 1})
		asks = append(asks, map[string]any{"price": roundTick(ask + step), "quantity": m.rng.Int64N(100) + 1})
	}
	return map[string]any{"symbol": symbol, "bids": bids, "asks": asks}
}

// -----------------------------------------------------------------------------
// Commands
// -----------------------------------------------------------------------------

// Apply handles one frame sent by a monitor: an agent control
// {"agent_id","parameter","value"} or a global {"command","payload"?}.
// Returns the command name for logging.
func (m *Market) Apply(frame []byte) (string, error) {
	var envelope struct {
		AgentID string `json:"agent_id"`
		Command string `json:"command"`
	}
	if err := json.Unmarshal(frame, &envelope); err != nil {
		return "", helpers.NewProtocolError("malformed command", err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if envelope.AgentID != "" {
		var ctl models.MAgentControl
		if err := json.Unmarshal(frame, &ctl); err != nil {
			return "", helpers.NewProtocolError("malformed agent control", err)
		}
		return ctl.Parameter, m.control(ctl)
	}

	var cmd models.MGlobalCommand
	if err := json.Unmarshal(frame, &cmd); err != nil {
		return "", helpers.NewProtocolError("malformed global command", err)
	}
	switch cmd.Command {
	case models.CommandSetPause:
		m.paused = true
	case models.CommandSetResume:
		m.paused = false
	case models.CommandReset:
		m.reset()
	case models.CommandMarketEvent:
		if cmd.Payload == nil {
			return cmd.Command, helpers.NewProtocolError("market_event without payload", nil)
		}
		price, ok := m.prices[cmd.Payload.Symbol]
		if !ok {
			return cmd.Command, helpers.NewProtocolError(fmt.Sprintf("unknown symbol %q", cmd.Payload.Symbol), nil)
		}
		m.prices[cmd.Payload.Symbol] = math.Max(minPrice, price*(1+cmd.Payload.PercentShift))
	default:
		return cmd.Command, helpers.NewProtocolError(fmt.Sprintf("unknown command %q", cmd.Command), nil)
	}
	return cmd.Command, nil
}

// -----------------------------------------------------------------------------

func (m *Market) control(ctl models.MAgentControl) error {
	a, ok := m.byID[ctl.AgentID]
	if !ok {
		return helpers.NewProtocolError(fmt.Sprintf("unknown agent %q", ctl.AgentID), nil)
	}
	bad := func() error {
		return helpers.NewProtocolError(fmt.Sprintf("bad value for %s", ctl.Parameter), nil)
	}

	switch ctl.Parameter {
	case models.ParamSetActive:
		v, ok := ctl.Value.(bool)
		if !ok {
			return bad()
		}
		a.IsActive = v
	case models.ParamChangeStrategy:
		v, ok := ctl.Value.(string)
		if !ok || !models.IsKnownStrategy(v) {
			return bad()
		}
		a.Strategy = v
	case models.ParamSetRisk:
		v, ok := ctl.Value.(float64)
		if !ok {
			return bad()
		}
		a.RiskFactor = math.Min(models.MaxRiskFactor, math.Max(models.MinRiskFactor, v))
	case models.ParamSetBankroll:
		v, ok := ctl.Value.(float64)
		if !ok || v < 0 {
			return bad()
		}
		a.Bankroll = v
	default:
		return helpers.NewProtocolError(fmt.Sprintf("unknown parameter %q", ctl.Parameter), nil)
	}
	a.dirty = true
	return nil
}

// reset restores starting prices and flat agents, and leaves the market paused.
func (m *Market) reset() {
	for symbol := range m.prices {
		m.prices[symbol] = startPrice
	}
	for _, a := range m.agents {
		a.Position = 0
		a.RealizedPnL = 0
		a.UnrealizedPnL = 0
		a.TradeCount = 0
		a.OpenOrders = []models.MOpenOrder{}
		a.dirty = true
	}
	m.trades = 0
	m.volume = 0
	m.paused = true
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

func encodeFrame(eventType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(models.MEnvelope{Type: eventType, Payload: raw})
}

func bboPayload(symbol string, bid, ask float64, bidQty, askQty int64, ts string) map[string]any {
	return map[string]any{
		"symbol":    symbol,
		"bid_price": strconv.FormatFloat(bid, 'f', 2, 64),
		"bid_qty":   bidQty,
		"ask_price": strconv.FormatFloat(ask, 'f', 2, 64),
		"ask_qty":   askQty,
		"timestamp": ts,
	}
}

func roundTick(p float64) float64 {
	return math.Round(p/tickSize) * tickSize
}
