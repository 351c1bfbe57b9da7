package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"flashbook-monitor/src/models"
)

// -----------------------------------------------------------------------------
// Read Handlers
// -----------------------------------------------------------------------------

func (s *OperatorServer) getHealth(c *gin.Context) {
	status := s.Backend.ConnectionStatus()
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"connection": status.State,
		"timestamp":  time.Now().UnixMilli(),
	})
}

func (s *OperatorServer) getConnection(c *gin.Context) {
	c.JSON(http.StatusOK, s.Backend.ConnectionStatus())
}

func (s *OperatorServer) getAgents(c *gin.Context) {
	c.JSON(http.StatusOK, s.Backend.Agents())
}

func (s *OperatorServer) getAgent(c *gin.Context) {
	rec, ok := s.Backend.Agent(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown agent"})
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (s *OperatorServer) getTrades(c *gin.Context) {
	c.JSON(http.StatusOK, s.Backend.Trades(parseLimit(c, defaultLimit)))
}

func (s *OperatorServer) getHistory(c *gin.Context) {
	c.JSON(http.StatusOK, s.Backend.History(c.Param("symbol")))
}

func (s *OperatorServer) getSummary(c *gin.Context) {
	c.JSON(http.StatusOK, s.Backend.Summary(c.Param("symbol")))
}

func (s *OperatorServer) getMarket(c *gin.Context) {
	view, ok := s.Backend.Market(c.Param("symbol"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no market data"})
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *OperatorServer) getStats(c *gin.Context) {
	stats, ok := s.Backend.Stats()
	if !ok {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// -----------------------------------------------------------------------------

func (s *OperatorServer) getJournalTrades(c *gin.Context) {
	if s.Journal == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "journal disabled"})
		return
	}
	trades, err := s.Journal.RecentTrades(c.Request.Context(), c.Param("symbol"), parseLimit(c, defaultLimit))
	if err != nil {
		s.Logger.Error("Journal query failed: %v", err)
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, trades)
}

// -----------------------------------------------------------------------------
// Command Handlers
// -----------------------------------------------------------------------------

func (s *OperatorServer) postControl(c *gin.Context) {
	var req models.MControlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.Backend.SubmitControl(c.Param("id"), req.Parameter, req.Value); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "sent", "command": req.Parameter})
}

func (s *OperatorServer) postCommand(c *gin.Context) {
	var req models.MGlobalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.Backend.SubmitGlobal(req); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"status": "sent", "command": req.Command})
}

func (s *OperatorServer) postRetry(c *gin.Context) {
	if err := s.Backend.RetryNow(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, s.Backend.ConnectionStatus())
}
