package simulator_test

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashbook-monitor/src/config"
	"flashbook-monitor/src/helpers"
	"flashbook-monitor/src/logger"
	"flashbook-monitor/src/models"
	"flashbook-monitor/src/router"
	"flashbook-monitor/src/simulator"
)

var now = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func decodeAll(t *testing.T, frames [][]byte) []models.InboundEvent {
	t.Helper()
	var events []models.InboundEvent
	for _, f := range frames {
		ev, err := router.Decode(f)
		require.NoError(t, err, string(f))
		require.NotNil(t, ev)
		events = append(events, ev)
	}
	return events
}

func countType(events []models.InboundEvent, eventType string) int {
	n := 0
	for _, ev := range events {
		if ev.EventType() == eventType {
			n++
		}
	}
	return n
}

func TestFirstStepAnnouncesRosterAndQuotes(t *testing.T) {
	m := simulator.NewMarket(config.DefaultRoster(), 1)

	frames, err := m.Step(now)
	require.NoError(t, err)
	events := decodeAll(t, frames)

	assert.Equal(t, 2, countType(events, models.EventBBOUpdate))
	assert.Equal(t, 2, countType(events, models.EventTrade))
	assert.Equal(t, 7, countType(events, models.EventAgentStatus))
}

func TestStatsAndBookCadence(t *testing.T) {
	m := simulator.NewMarket(config.DefaultRoster(), 2)

	var events []models.InboundEvent
	for i := 0; i < 5; i++ {
		frames, err := m.Step(now)
		require.NoError(t, err)
		events = append(events, decodeAll(t, frames)...)
	}
	assert.Equal(t, 1, countType(events, models.EventExchangeStats))
	assert.Equal(t, 2, countType(events, models.EventBookSnapshot), "one book per symbol on tick 3")
}

func TestPauseStopsMarketData(t *testing.T) {
	m := simulator.NewMarket(config.DefaultRoster(), 3)
	_, err := m.Step(now)
	require.NoError(t, err)

	name, err := m.Apply([]byte(`{"command":"set_pause"}`))
	require.NoError(t, err)
	assert.Equal(t, models.CommandSetPause, name)
	assert.True(t, m.Paused())

	frames, err := m.Step(now)
	require.NoError(t, err)
	assert.Empty(t, frames)

	_, err = m.Apply([]byte(`{"command":"set_resume"}`))
	require.NoError(t, err)
	frames, err = m.Step(now)
	require.NoError(t, err)
	assert.NotEmpty(t, frames)
}

func TestMarketEventShiftsPriceByFraction(t *testing.T) {
	m := simulator.NewMarket(config.DefaultRoster(), 4)
	before := m.Price("ABC")

	_, err := m.Apply([]byte(`{"command":"market_event","payload":{"symbol":"ABC","percent_shift":-0.25}}`))
	require.NoError(t, err)
	assert.InDelta(t, before*0.75, m.Price("ABC"), 1e-9)

	_, err = m.Apply([]byte(`{"command":"market_event","payload":{"symbol":"NOPE","percent_shift":0.1}}`))
	var pErr *helpers.ProtocolError
	assert.ErrorAs(t, err, &pErr)
}

func TestResetPausesAndFlattens(t *testing.T) {
	m := simulator.NewMarket(config.DefaultRoster(), 5)
	for i := 0; i < 10; i++ {
		_, err := m.Step(now)
		require.NoError(t, err)
	}
	_, err := m.Apply([]byte(`{"command":"reset"}`))
	require.NoError(t, err)
	assert.True(t, m.Paused())

	a, ok := m.Agent("Agent_1")
	require.True(t, ok)
	assert.Zero(t, a.Position)
	assert.Zero(t, a.TradeCount)
}

func TestAgentControlsReported(t *testing.T) {
	m := simulator.NewMarket(config.DefaultRoster(), 6)
	_, err := m.Step(now)
	require.NoError(t, err)
	_, err = m.Apply([]byte(`{"command":"set_pause"}`))
	require.NoError(t, err)

	_, err = m.Apply([]byte(`{"agent_id":"Agent_3","parameter":"set_risk","value":1.7}`))
	require.NoError(t, err)
	_, err = m.Apply([]byte(`{"agent_id":"Agent_3","parameter":"change_strategy","value":"noise"}`))
	require.NoError(t, err)
	_, err = m.Apply([]byte(`{"agent_id":"Agent_3","parameter":"set_active","value":"yes"}`))
	assert.Error(t, err)

	frames, err := m.Step(now)
	require.NoError(t, err)
	events := decodeAll(t, frames)
	require.Len(t, events, 1)
	status := events[0].(models.MAgentStatus)
	assert.Equal(t, "Agent_3", status.AgentID)
	assert.InDelta(t, 1.7, *status.RiskFactor, 1e-9)
	assert.Equal(t, models.StrategyNoise, *status.Strategy)
}

func TestExchangeStreamsFramesOverWebsocket(t *testing.T) {
	m := simulator.NewMarket(config.DefaultRoster(), 7)
	x := simulator.NewExchange(m, 50, logger.NewNopLogger("Exchange"))

	ts := httptest.NewServer(x.Handler())
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/v1/ws/dashboard"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.Eventually(t, func() bool { return x.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	go x.Run(ctx)

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, frame, err := ws.ReadMessage()
	require.NoError(t, err)
	ev, err := router.Decode(frame)
	require.NoError(t, err)
	assert.NotNil(t, ev)

	require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(`{"command":"set_pause"}`)))
	assert.Eventually(t, m.Paused, time.Second, 10*time.Millisecond)
}
