package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"flashbook-monitor/src/interfaces"
	"flashbook-monitor/src/logger"
	"flashbook-monitor/src/models"
)

// -----------------------------------------------------------------------------
// OperatorServer
// -----------------------------------------------------------------------------

type OperatorServer struct {
	Config  *models.MConfig
	Logger  *logger.Logger
	Backend interfaces.IOperatorBackend
	Journal interfaces.IJournal
	engine  *gin.Engine
	http    *http.Server

	// WebSocket clients
	clients    map[*Client]struct{}
	broadcast  chan models.MViewEvent
	register   chan *Client
	unregister chan *Client
	snapshot   chan *Client
	done       chan struct{}
}

// -----------------------------------------------------------------------------
// Constructor
// -----------------------------------------------------------------------------

func NewOperatorServer(cfg *models.MConfig, backend interfaces.IOperatorBackend, log *logger.Logger) *OperatorServer {
	if !strings.EqualFold(cfg.LogLevel, "DEBUG") {
		gin.SetMode(gin.ReleaseMode)
	}
	if log == nil {
		log = logger.NewLogger(cfg, "OperatorAPI")
	}

	s := &OperatorServer{
		Config:     cfg,
		Logger:     log,
		Backend:    backend,
		engine:     gin.New(),
		clients:    make(map[*Client]struct{}),
		broadcast:  make(chan models.MViewEvent, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		snapshot:   make(chan *Client),
		done:       make(chan struct{}),
	}
	s.engine.Use(gin.Recovery())

	// Add CORS Middleware
	s.engine.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if strings.HasPrefix(origin, "http://127.0.0.1:") || strings.HasPrefix(origin, "http://localhost:") {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	s.setupRoutes()
	return s
}

// -----------------------------------------------------------------------------
// Route Setup
// -----------------------------------------------------------------------------

func (s *OperatorServer) setupRoutes() {
	api := s.engine.Group("/api")
	api.GET("/health", s.getHealth)
	api.GET("/connection", s.getConnection)
	api.POST("/connection/retry", s.postRetry)

	api.GET("/agents", s.getAgents)
	api.GET("/agents/:id", s.getAgent)
	api.POST("/agents/:id/control", s.postControl)
	api.POST("/commands", s.postCommand)

	api.GET("/trades", s.getTrades)
	api.GET("/history/:symbol", s.getHistory)
	api.GET("/summary/:symbol", s.getSummary)
	api.GET("/market/:symbol", s.getMarket)
	api.GET("/stats", s.getStats)
	api.GET("/journal/trades/:symbol", s.getJournalTrades)

	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.engine.GET("/ws", s.handleWebSocket)
}

// Handler exposes the router, mainly for tests.
func (s *OperatorServer) Handler() http.Handler {
	return s.engine
}

// -----------------------------------------------------------------------------
// Server Lifecycle
// -----------------------------------------------------------------------------

// Start runs the hub and serves HTTP until Stop. It blocks.
func (s *OperatorServer) Start() error {
	addr := fmt.Sprintf("%s:%d", s.Config.Host, s.Config.Port)
	s.Logger.Info("Starting operator API on %s", addr)

	go s.handleWebsockets()

	s.http = &http.Server{Addr: addr, Handler: s.engine, ReadHeaderTimeout: 5 * time.Second}
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// -----------------------------------------------------------------------------

func (s *OperatorServer) Stop() error {
	select {
	case <-s.done:
		return nil
	default:
		close(s.done)
	}
	if s.http == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}
