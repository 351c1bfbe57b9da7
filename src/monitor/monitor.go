package monitor

import (
	"context"
	"time"

	"github.com/sourcegraph/conc"

	"flashbook-monitor/src/command"
	"flashbook-monitor/src/helpers"
	"flashbook-monitor/src/interfaces"
	"flashbook-monitor/src/logger"
	"flashbook-monitor/src/metrics"
	"flashbook-monitor/src/models"
	"flashbook-monitor/src/router"
	"flashbook-monitor/src/series"
	"flashbook-monitor/src/state"
)

// View event names relayed to render clients.
const (
	EventConnection = "connection"
	EventPause      = "pause"
	EventAgent      = "agent"
	EventTrade      = "trade"
	EventQuote      = "bbo"
	EventBook       = "book"
	EventStats      = "stats"
	EventHistory    = "history_reset"
)

const inboxSize = 1024

// -----------------------------------------------------------------------------
// Monitor is the single event loop. Connection callbacks, routed frames and
// operator commands all run as closures on one goroutine, in arrival order.
// -----------------------------------------------------------------------------

type Monitor struct {
	Config       *models.MConfig
	Store        *state.EntityStateStore
	Series       *series.BufferedSeries
	Router       *router.MessageRouter
	ErrorHandler *helpers.ErrorHandler
	Logger       *logger.Logger

	commands   *command.CommandChannel
	conn       interfaces.IConnection
	journal    interfaces.IJournalWriter
	exchangers []interfaces.IDataExchanger

	inbox   chan func()
	done    chan struct{}
	wg      conc.WaitGroup
	started bool
	opens   int
}

// -----------------------------------------------------------------------------

func NewMonitor(cfg *models.MConfig, log *logger.Logger) *Monitor {
	if log == nil {
		log = logger.NewLogger(cfg, "Monitor")
	}
	m := &Monitor{
		Config:       cfg,
		Store:        state.NewEntityStateStore(),
		Series:       series.NewBufferedSeries(cfg.Buffers.TradeCapacity, cfg.Buffers.HistoryCapacity),
		ErrorHandler: helpers.NewErrorHandler(log),
		Logger:       log,
		inbox:        make(chan func(), inboxSize),
		done:         make(chan struct{}),
	}
	m.Router = router.NewMessageRouter(m, log)
	return m
}

// -----------------------------------------------------------------------------

// Attach wires the exchange connection. Commands are sent through it.
func (m *Monitor) Attach(conn interfaces.IConnection) {
	m.conn = conn
	m.commands = command.NewCommandChannel(conn, m.Store, m.Config.Symbols(), m.Logger)
	if m.journal != nil {
		m.commands.SetRecorder(m.journal)
	}
}

// SetJournal routes trades, stats and sent commands to the journal.
func (m *Monitor) SetJournal(journal interfaces.IJournalWriter) {
	m.journal = journal
	if m.commands != nil {
		m.commands.SetRecorder(journal)
	}
}

// AddExchanger registers a render sink for view events.
func (m *Monitor) AddExchanger(x interfaces.IDataExchanger) {
	m.exchangers = append(m.exchangers, x)
}

// -----------------------------------------------------------------------------
// Loop
// -----------------------------------------------------------------------------

// Start runs the loop until ctx is done or Stop is called. The local roster
// is seeded immediately so the table is populated before the first connect.
func (m *Monitor) Start(ctx context.Context) {
	if m.started {
		return
	}
	m.started = true
	m.Store.Seed(m.Config.Exchange.Roster)

	m.wg.Go(func() {
		for {
			select {
			case fn := <-m.inbox:
				fn()
			case <-ctx.Done():
				m.shutdown()
				return
			case <-m.done:
				return
			}
		}
	})
}

// Stop ends the loop and waits for it. Pending closures are discarded.
func (m *Monitor) Stop() {
	m.shutdown()
	m.wg.Wait()
}

func (m *Monitor) shutdown() {
	select {
	case <-m.done:
	default:
		close(m.done)
	}
}

// -----------------------------------------------------------------------------

func (m *Monitor) enqueue(fn func()) bool {
	select {
	case m.inbox <- fn:
		return true
	case <-m.done:
		return false
	}
}

// call runs fn on the loop and waits for its result.
func (m *Monitor) call(fn func() error) error {
	result := make(chan error, 1)
	if !m.enqueue(func() { result <- fn() }) {
		return helpers.ErrClosed
	}
	select {
	case err := <-result:
		return err
	case <-m.done:
		return helpers.ErrClosed
	}
}

// Flush blocks until every closure queued before it has run.
func (m *Monitor) Flush() {
	m.call(func() error { return nil })
}

// -----------------------------------------------------------------------------
// Connection callbacks (run on the loop)
// -----------------------------------------------------------------------------

func (m *Monitor) OnOpen(sessionID string) {
	m.enqueue(func() {
		m.opens++
		m.Series.ResetHistory()
		metrics.HistorySize.Reset()
		if m.journal != nil {
			m.journal.SetSession(sessionID)
		}

		created := m.Store.Seed(m.Config.Exchange.Roster)
		if len(created) > 0 {
			m.Logger.Info("Seeded %d agents from local roster", len(created))
		}
		for _, id := range created {
			if rec, ok := m.Store.Get(id); ok {
				m.publish(EventAgent, rec)
			}
		}

		m.publish(EventHistory, nil)
		m.publish(EventConnection, m.connectionStatus())
		// the server does not report pause state; republish the local value
		m.publish(EventPause, m.Store.Paused())
		m.Logger.Info("Session %s open", sessionID)
	})
}

func (m *Monitor) OnMessage(frame []byte) {
	m.enqueue(func() {
		if err := m.Router.Route(frame); err != nil {
			m.ErrorHandler.ErrorCount++
		}
	})
}

func (m *Monitor) OnClosed(err error, retryIn time.Duration, terminal bool) {
	m.enqueue(func() {
		if terminal {
			m.Logger.Error("Exchange unreachable, manual retry required: %v", err)
		} else {
			m.ErrorHandler.Handle(err, "connection")
		}
		m.publish(EventConnection, m.connectionStatus())
	})
}

// -----------------------------------------------------------------------------
// Routed events (called by the router, already on the loop)
// -----------------------------------------------------------------------------

func (m *Monitor) OnBBO(event models.MBBOUpdate) {
	m.Store.SetBBO(event)
	m.publish(EventQuote, event)
}

func (m *Monitor) OnTrade(event models.MTrade) {
	trade, point := m.Series.RecordTrade(event)
	metrics.TickerSize.Set(float64(m.Series.Ticker.Len()))
	metrics.HistorySize.WithLabelValues(trade.Symbol).Set(float64(m.Series.History.Len(trade.Symbol)))
	if m.journal != nil {
		m.journal.RecordTrade(trade)
	}
	m.publish(EventTrade, map[string]any{"trade": trade, "point": point})
}

func (m *Monitor) OnBook(event models.MBookSnapshot) {
	m.Store.SetBook(event)
	m.publish(EventBook, event)
}

func (m *Monitor) OnAgentStatus(event models.MAgentStatus) {
	rec := m.Store.ApplyDelta(event.AgentID, event.MAgentDelta)
	m.publish(EventAgent, rec)
}

func (m *Monitor) OnStats(event models.MExchangeStats) {
	m.Store.SetStats(event)
	if m.journal != nil {
		m.journal.RecordStats(event)
	}
	m.publish(EventStats, event)
}

func (m *Monitor) OnOrderUpdate(event models.MOrderUpdate) {
	m.Logger.Debug("Order %s %s", event.ID, event.Status)
}

func (m *Monitor) OnAgentAction(event models.MAgentAction) {
	m.Logger.Debug("Agent %s %s", event.AgentID, event.Action)
}

// -----------------------------------------------------------------------------
// Operator commands
// -----------------------------------------------------------------------------

// SubmitControl validates and sends one agent control on the loop.
func (m *Monitor) SubmitControl(agentID, parameter string, value any) error {
	return m.call(func() error {
		if m.commands == nil {
			return helpers.NewConnectivityError(parameter, helpers.ErrNotConnected)
		}
		if err := m.commands.SubmitControl(agentID, parameter, value); err != nil {
			return err
		}
		if rec, ok := m.Store.Get(agentID); ok {
			m.publish(EventAgent, rec)
		}
		return nil
	})
}

// SubmitGlobal validates and sends one global command on the loop.
func (m *Monitor) SubmitGlobal(req models.MGlobalRequest) error {
	return m.call(func() error {
		if m.commands == nil {
			return helpers.NewConnectivityError(req.Command, helpers.ErrNotConnected)
		}
		if err := m.commands.SubmitGlobal(req); err != nil {
			return err
		}
		m.publish(EventPause, m.Store.Paused())
		return nil
	})
}

// RetryNow pre-empts the reconnect wait.
func (m *Monitor) RetryNow() error {
	if m.conn == nil {
		return helpers.ErrNotConnected
	}
	return m.conn.RetryNow()
}

// -----------------------------------------------------------------------------
// Read side
// -----------------------------------------------------------------------------

func (m *Monitor) ConnectionStatus() models.MConnectionStatus {
	return m.connectionStatus()
}

func (m *Monitor) Agents() []models.MAgentRecord {
	return m.Store.Snapshot()
}

func (m *Monitor) Agent(id string) (models.MAgentRecord, bool) {
	return m.Store.Get(id)
}

// Trades returns up to limit ticker entries, newest first; limit <= 0 means all.
func (m *Monitor) Trades(limit int) []models.MTradeEvent {
	if limit <= 0 {
		return m.Series.Ticker.Items()
	}
	return m.Series.Ticker.Head(limit)
}

func (m *Monitor) History(symbol string) []models.MPricePoint {
	return m.Series.History.Points(symbol)
}

func (m *Monitor) Summary(symbol string) models.MSeriesSummary {
	return m.Series.Summary(symbol)
}

func (m *Monitor) Market(symbol string) (models.MMarketView, bool) {
	return m.Store.Market(symbol)
}

func (m *Monitor) Stats() (models.MExchangeStats, bool) {
	return m.Store.Stats()
}

// OpenCount is the number of sessions opened so far.
func (m *Monitor) OpenCount() int {
	var n int
	m.call(func() error { n = m.opens; return nil })
	return n
}

// View builds a full snapshot for a render client.
func (m *Monitor) View(kind string) models.MDashboardView {
	view := models.MDashboardView{
		Type:       kind,
		Connection: m.connectionStatus(),
		Paused:     m.Store.Paused(),
		Agents:     m.Store.Snapshot(),
		Trades:     m.Series.Ticker.Items(),
		Timestamp:  time.Now().UnixMilli(),
	}
	if stats, ok := m.Store.Stats(); ok {
		view.Stats = &stats
	}
	return view
}

// -----------------------------------------------------------------------------

func (m *Monitor) connectionStatus() models.MConnectionStatus {
	if m.conn == nil {
		return models.MConnectionStatus{State: models.ConnIdle.String()}
	}
	return m.conn.Status()
}

func (m *Monitor) publish(event string, data any) {
	if len(m.exchangers) == 0 {
		return
	}
	msg := models.MViewEvent{
		Type:      models.ViewUpdate,
		Event:     event,
		Data:      data,
		Timestamp: time.Now().UnixMilli(),
	}
	for _, x := range m.exchangers {
		x.Broadcast(msg)
	}
}
