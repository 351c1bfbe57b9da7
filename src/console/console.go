package console

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/olekukonko/tablewriter"
	"golang.org/x/time/rate"

	"flashbook-monitor/src/interfaces"
	"flashbook-monitor/src/logger"
	"flashbook-monitor/src/models"
)

// -----------------------------------------------------------------------------
// Console redraws the agent table, the ticker head and the exchange stats
// on a terminal. Updates only mark the view dirty; redraws are rate limited.
// -----------------------------------------------------------------------------

type Console struct {
	Logger    *logger.Logger
	out       io.Writer
	source    interfaces.IViewSource
	limiter   *rate.Limiter
	tradeRows int
	interval  time.Duration

	dirty    atomic.Bool
	renderMu sync.Mutex
	done     chan struct{}
	stopOnce sync.Once
}

// -----------------------------------------------------------------------------

func NewConsole(cfg *models.MConfig, source interfaces.IViewSource, log *logger.Logger) *Console {
	return NewConsoleWriter(os.Stdout, cfg, source, log)
}

// NewConsoleWriter draws to w. Used by tests.
func NewConsoleWriter(w io.Writer, cfg *models.MConfig, source interfaces.IViewSource, log *logger.Logger) *Console {
	if log == nil {
		log = logger.NewLogger(cfg, "Console")
	}
	hz := cfg.Console.RefreshHz
	if hz <= 0 {
		hz = 2
	}
	rows := cfg.Console.TradeRows
	if rows <= 0 {
		rows = 10
	}
	return &Console{
		Logger:    log,
		out:       w,
		source:    source,
		limiter:   rate.NewLimiter(rate.Limit(hz), 1),
		tradeRows: rows,
		interval:  time.Duration(float64(time.Second) / hz),
		done:      make(chan struct{}),
	}
}

// -----------------------------------------------------------------------------
// Data Exchange Interface Implementation
// -----------------------------------------------------------------------------

func (c *Console) Broadcast(models.MViewEvent) {
	c.dirty.Store(true)
}

// Start redraws until Stop. It blocks.
func (c *Console) Start() error {
	c.dirty.Store(true)
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Tick()
		case <-c.done:
			return nil
		}
	}
}

func (c *Console) Stop() error {
	c.stopOnce.Do(func() { close(c.done) })
	return nil
}

// -----------------------------------------------------------------------------

// Tick redraws when something changed and the limiter allows it.
// Reports whether a frame was drawn.
func (c *Console) Tick() bool {
	if !c.dirty.Load() || !c.limiter.Allow() {
		return false
	}
	c.dirty.Store(false)
	if err := c.Render(c.source.View(models.ViewUpdate)); err != nil {
		c.Logger.Warning("Console render failed: %v", err)
	}
	return true
}

// -----------------------------------------------------------------------------
// Rendering
// -----------------------------------------------------------------------------

func (c *Console) Render(view models.MDashboardView) error {
	c.renderMu.Lock()
	defer c.renderMu.Unlock()

	paused := "running"
	if view.Paused {
		paused = "PAUSED"
	}
	fmt.Fprintf(c.out, "\n[%s] connection=%s attempts=%d sim=%s\n",
		time.UnixMilli(view.Timestamp).Format("15:04:05"),
		view.Connection.State, view.Connection.ReconnectAttempts, paused)
	if view.Connection.Terminal {
		fmt.Fprintln(c.out, "reconnect attempts exhausted, retry from the operator API")
	}

	if err := c.renderAgents(view.Agents); err != nil {
		return err
	}
	if err := c.renderTrades(view.Trades); err != nil {
		return err
	}
	if view.Stats != nil {
		fmt.Fprintf(c.out, "trades=%d volume=%.2f\n", view.Stats.TotalTrades, view.Stats.TotalVolumeValue)
	}
	return nil
}

func (c *Console) renderAgents(agents []models.MAgentRecord) error {
	table := tablewriter.NewWriter(c.out)
	table.Header("Agent", "Sym", "Strategy", "Risk", "Bankroll", "Pos", "rPnL", "uPnL", "Trades", "Orders", "Active")
	for _, a := range agents {
		if err := table.Append(
			a.ID,
			a.Symbol,
			a.Strategy,
			fmt.Sprintf("%.2f", a.RiskFactor),
			fmt.Sprintf("%.2f", a.Bankroll),
			strconv.FormatInt(a.Position, 10),
			fmt.Sprintf("%.2f", a.RealizedPnL),
			fmt.Sprintf("%.2f", a.UnrealizedPnL),
			strconv.FormatInt(a.TradeCount, 10),
			strconv.Itoa(len(a.OpenOrders)),
			strconv.FormatBool(a.IsActive),
		); err != nil {
			return err
		}
	}
	return table.Render()
}

func (c *Console) renderTrades(trades []models.MTradeEvent) error {
	if len(trades) > c.tradeRows {
		trades = trades[:c.tradeRows]
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("Time", "Sym", "Price", "Qty", "Trade")
	for _, t := range trades {
		if err := table.Append(
			string(t.Timestamp),
			t.Symbol,
			fmt.Sprintf("%.2f", t.Price),
			strconv.FormatInt(t.Quantity, 10),
			t.TradeID,
		); err != nil {
			return err
		}
	}
	return table.Render()
}
