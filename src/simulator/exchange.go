package simulator

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/sourcegraph/conc"
	"golang.org/x/time/rate"

	"flashbook-monitor/src/logger"
)

const (
	writeWait  = 2 * time.Second
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// -----------------------------------------------------------------------------
// Exchange serves a Market over a websocket, one frame per event.
// -----------------------------------------------------------------------------

type Exchange struct {
	Market  *Market
	Logger  *logger.Logger
	limiter *rate.Limiter
	engine  *gin.Engine
	http    *http.Server

	mu      sync.Mutex
	clients map[*peer]struct{}
	wg      conc.WaitGroup
}

type peer struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (p *peer) close() {
	p.once.Do(func() { close(p.send) })
}

// -----------------------------------------------------------------------------

// NewExchange emits ticksPerSecond market steps to every connected client.
func NewExchange(market *Market, ticksPerSecond float64, log *logger.Logger) *Exchange {
	if log == nil {
		log = logger.NewLogger(nil, "Exchange")
	}
	if ticksPerSecond <= 0 {
		ticksPerSecond = 4
	}
	gin.SetMode(gin.ReleaseMode)

	x := &Exchange{
		Market:  market,
		Logger:  log,
		limiter: rate.NewLimiter(rate.Limit(ticksPerSecond), 1),
		engine:  gin.New(),
		clients: make(map[*peer]struct{}),
	}
	x.engine.Use(gin.Recovery())
	x.engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "paused": x.Market.Paused(), "clients": x.ClientCount()})
	})
	x.engine.GET("/api/v1/ws/dashboard", x.handleWebSocket)
	return x
}

func (x *Exchange) Handler() http.Handler {
	return x.engine
}

func (x *Exchange) ClientCount() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.clients)
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Serve listens on addr and emits ticks until ctx is done.
func (x *Exchange) Serve(ctx context.Context, addr string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	x.http = &http.Server{Addr: addr, Handler: x.engine, ReadHeaderTimeout: 5 * time.Second}
	x.wg.Go(func() { x.Run(ctx) })
	x.wg.Go(func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		x.http.Shutdown(shutdown)
	})

	x.Logger.Info("Simulated exchange on ws://%s/api/v1/ws/dashboard", addr)
	err := x.http.ListenAndServe()
	cancel()
	x.wg.Wait()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Run steps the market at the limiter's pace until ctx is done.
func (x *Exchange) Run(ctx context.Context) {
	defer x.dropAll()
	for {
		if err := x.limiter.Wait(ctx); err != nil {
			return
		}
		frames, err := x.Market.Step(time.Now())
		if err != nil {
			x.Logger.Error("Market step failed: %v", err)
			continue
		}
		for _, f := range frames {
			x.broadcast(f)
		}
	}
}

// -----------------------------------------------------------------------------

func (x *Exchange) broadcast(frame []byte) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for p := range x.clients {
		select {
		case p.send <- frame:
		default:
			x.Logger.Warning("Client too slow, dropping it")
			delete(x.clients, p)
			p.close()
		}
	}
}

func (x *Exchange) dropAll() {
	x.mu.Lock()
	defer x.mu.Unlock()
	for p := range x.clients {
		delete(x.clients, p)
		p.close()
	}
}

// -----------------------------------------------------------------------------
// WebSocket
// -----------------------------------------------------------------------------

func (x *Exchange) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		x.Logger.Info("Failed to upgrade websocket: %v", err)
		return
	}
	p := &peer{conn: conn, send: make(chan []byte, sendBuffer)}

	x.mu.Lock()
	x.clients[p] = struct{}{}
	x.mu.Unlock()
	x.Logger.Info("Monitor connected from %s", c.Request.RemoteAddr)

	go x.writePump(p)
	go x.readPump(p)
}

func (x *Exchange) readPump(p *peer) {
	defer func() {
		x.mu.Lock()
		if _, ok := x.clients[p]; ok {
			delete(x.clients, p)
			p.close()
		}
		x.mu.Unlock()
		p.conn.Close()
	}()

	for {
		_, msg, err := p.conn.ReadMessage()
		if err != nil {
			return
		}
		name, err := x.Market.Apply(msg)
		if err != nil {
			x.Logger.Warning("Rejected command %s: %v", name, err)
			continue
		}
		x.Logger.Info("Applied command %s", name)
	}
}

func (x *Exchange) writePump(p *peer) {
	defer p.conn.Close()
	for frame := range p.send {
		p.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := p.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
			return
		}
	}
	p.conn.SetWriteDeadline(time.Now().Add(writeWait))
	p.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
