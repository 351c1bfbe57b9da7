package monitor_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flashbook-monitor/src/helpers"
	"flashbook-monitor/src/logger"
	"flashbook-monitor/src/models"
	"flashbook-monitor/src/monitor"
)

type fakeConnection struct {
	mu    sync.Mutex
	state models.ConnState
	sent  []string
}

func (f *fakeConnection) State() models.ConnState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *fakeConnection) Send(frame []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != models.ConnOpen {
		return helpers.ErrNotConnected
	}
	f.sent = append(f.sent, string(frame))
	return nil
}

func (f *fakeConnection) Status() models.MConnectionStatus {
	return models.MConnectionStatus{State: f.State().String()}
}

func (f *fakeConnection) RetryNow() error { return nil }

func (f *fakeConnection) setState(s models.ConnState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = s
}

type fakeJournal struct {
	mu       sync.Mutex
	session  string
	trades   int
	stats    int
	commands []string
}

func (j *fakeJournal) SetSession(id string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.session = id
}
func (j *fakeJournal) RecordTrade(models.MTradeEvent) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.trades++
}
func (j *fakeJournal) RecordStats(models.MExchangeStats) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.stats++
}
func (j *fakeJournal) RecordCommand(name string, _ []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.commands = append(j.commands, name)
}

type fakeExchanger struct {
	mu     sync.Mutex
	events []string
}

func (x *fakeExchanger) Broadcast(ev models.MViewEvent) {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.events = append(x.events, ev.Event)
}
func (x *fakeExchanger) Start() error { return nil }
func (x *fakeExchanger) Stop() error  { return nil }

func (x *fakeExchanger) seen() []string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return append([]string(nil), x.events...)
}

func testConfig() *models.MConfig {
	return &models.MConfig{
		Buffers: models.MBufferConfig{TradeCapacity: 30, HistoryCapacity: 100},
		Exchange: models.MExchangeConfig{Roster: []models.MRosterEntry{
			{Symbol: "ABC", Agents: []models.MAgentTemplate{
				{Strategy: models.StrategyNoise, RiskFactor: 1, Bankroll: 10000},
				{Strategy: models.StrategyMarketMaker, RiskFactor: 1, Bankroll: 10000},
			}},
			{Symbol: "XYZ", Agents: []models.MAgentTemplate{
				{Strategy: models.StrategyMomentum, RiskFactor: 1, Bankroll: 10000},
			}},
		}},
	}
}

func startMonitor(t *testing.T) (*monitor.Monitor, *fakeConnection, *fakeJournal, *fakeExchanger) {
	t.Helper()
	m := monitor.NewMonitor(testConfig(), logger.NewNopLogger("Monitor"))
	conn := &fakeConnection{}
	journal := &fakeJournal{}
	exch := &fakeExchanger{}
	m.SetJournal(journal)
	m.Attach(conn)
	m.AddExchanger(exch)
	m.Start(context.Background())
	t.Cleanup(m.Stop)
	return m, conn, journal, exch
}

func tradeFrame(symbol string, n int) []byte {
	return []byte(fmt.Sprintf(
		`{"type":"trade","payload":{"symbol":%q,"price":"%d.5","quantity":1,"trade_id":"t%d","timestamp":"ts%d"}}`,
		symbol, 100+n, n, n))
}

func TestStartSeedsRoster(t *testing.T) {
	m, _, _, _ := startMonitor(t)
	m.Flush()

	agents := m.Store.Snapshot()
	require.Len(t, agents, 3)
	assert.Equal(t, "Agent_1", agents[0].ID)
	assert.Equal(t, "XYZ", agents[2].Symbol)
}

func TestFramesFlowIntoStoreAndSeries(t *testing.T) {
	m, conn, journal, _ := startMonitor(t)
	conn.setState(models.ConnOpen)
	m.OnOpen("s1")

	m.OnMessage([]byte(`{"type":"agent_status","payload":{"agent_id":"Agent_1","bankroll":9000}}`))
	m.OnMessage([]byte(`{"type":"agent_status","payload":{"agent_id":"Agent_1","position":5}}`))
	m.OnMessage(tradeFrame("ABC", 1))
	m.OnMessage([]byte(`{"type":"exchange_stats","payload":{"total_trades":1,"total_volume_value":101.5,"timestamp":"now"}}`))
	m.OnMessage([]byte(`{"type":"bbo_update","payload":{"symbol":"ABC","bid_price":"100","bid_qty":1,"ask_price":"101","ask_qty":2,"timestamp":"now"}}`))
	m.OnMessage([]byte(`not json`))
	m.OnMessage([]byte(`{"type":"mystery","payload":{}}`))
	m.Flush()

	rec, ok := m.Store.Get("Agent_1")
	require.True(t, ok)
	assert.Equal(t, 9000.0, rec.Bankroll)
	assert.Equal(t, int64(5), rec.Position)
	assert.Equal(t, models.StrategyNoise, rec.Strategy)

	assert.Equal(t, 1, m.Series.Ticker.Len())
	assert.Equal(t, []float64{101.5}, m.Series.History.Prices("ABC"))

	stats, ok := m.Store.Stats()
	require.True(t, ok)
	assert.Equal(t, int64(1), stats.TotalTrades)

	_, ok = m.Store.Market("ABC")
	assert.True(t, ok)

	journal.mu.Lock()
	defer journal.mu.Unlock()
	assert.Equal(t, "s1", journal.session)
	assert.Equal(t, 1, journal.trades)
	assert.Equal(t, 1, journal.stats)
}

func TestHistoryClearedOncePerOpen(t *testing.T) {
	m, _, _, exch := startMonitor(t)

	m.OnOpen("s1")
	for i := 0; i < 120; i++ {
		m.OnMessage(tradeFrame("ABC", i))
	}
	m.Flush()
	assert.Equal(t, 100, m.Series.History.Len("ABC"))
	assert.Equal(t, 30, m.Series.Ticker.Len())

	m.OnClosed(errors.New("reset by peer"), time.Second, false)
	m.OnMessage(tradeFrame("ABC", 500))
	m.Flush()
	assert.Equal(t, 100, m.Series.History.Len("ABC"), "close alone does not clear")

	m.OnOpen("s2")
	m.Flush()
	assert.Equal(t, 0, m.Series.History.Len("ABC"))
	assert.Equal(t, 30, m.Series.Ticker.Len(), "ticker survives reconnect")
	assert.Equal(t, 2, m.OpenCount())

	resets := 0
	for _, ev := range exch.seen() {
		if ev == monitor.EventHistory {
			resets++
		}
	}
	assert.Equal(t, 2, resets)
}

func TestPauseReassertedOnOpen(t *testing.T) {
	m, conn, _, exch := startMonitor(t)
	conn.setState(models.ConnOpen)

	require.NoError(t, m.SubmitGlobal(models.MGlobalRequest{Command: models.CommandReset}))
	assert.True(t, m.Store.Paused())

	m.OnOpen("s2")
	m.Flush()
	assert.True(t, m.Store.Paused())
	assert.Contains(t, exch.seen(), monitor.EventPause)

	conn.mu.Lock()
	defer conn.mu.Unlock()
	assert.Equal(t, []string{`{"command":"reset"}`}, conn.sent, "re-assertion is local only")
}

func TestSubmitControlThroughLoop(t *testing.T) {
	m, conn, journal, _ := startMonitor(t)

	err := m.SubmitControl("Agent_2", models.ParamSetRisk, 1.5)
	var cErr *helpers.ConnectivityError
	require.True(t, errors.As(err, &cErr))

	conn.setState(models.ConnOpen)
	require.NoError(t, m.SubmitControl("Agent_2", models.ParamSetRisk, 1.5))
	rec, _ := m.Store.Get("Agent_2")
	assert.Equal(t, 1.5, rec.RiskFactor)

	err = m.SubmitControl("Agent_2", models.ParamSetRisk, 0.05)
	var vErr *helpers.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, 1.5, vErr.RevertTo)

	journal.mu.Lock()
	defer journal.mu.Unlock()
	assert.Equal(t, []string{models.ParamSetRisk}, journal.commands)
}

func TestViewSnapshot(t *testing.T) {
	m, conn, _, _ := startMonitor(t)
	conn.setState(models.ConnOpen)
	m.OnMessage(tradeFrame("XYZ", 3))
	m.Flush()

	view := m.View(models.ViewInitial)
	assert.Equal(t, models.ViewInitial, view.Type)
	assert.Equal(t, "open", view.Connection.State)
	assert.Len(t, view.Agents, 3)
	require.Len(t, view.Trades, 1)
	assert.Equal(t, "t3", view.Trades[0].TradeID)
	assert.Nil(t, view.Stats)
}

func TestStoppedMonitorRejectsCommands(t *testing.T) {
	m := monitor.NewMonitor(testConfig(), logger.NewNopLogger("Monitor"))
	m.Attach(&fakeConnection{state: models.ConnOpen})
	m.Start(context.Background())
	m.Stop()

	assert.ErrorIs(t, m.SubmitGlobal(models.MGlobalRequest{Command: models.CommandSetPause}), helpers.ErrClosed)
}
