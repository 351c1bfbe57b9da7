package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"flashbook-monitor/src/helpers"
)

// -----------------------------------------------------------------------------
// Helper functions
// -----------------------------------------------------------------------------

const (
	defaultLimit = 30
	maxLimit     = 500
)

// parseLimit reads ?limit=, falling back to def when absent or malformed.
func parseLimit(c *gin.Context, def int) int {
	raw := c.Query("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}

// -----------------------------------------------------------------------------

// writeError maps monitor errors to HTTP statuses.
func writeError(c *gin.Context, err error) {
	var (
		validErr *helpers.ValidationError
		connErr  *helpers.ConnectivityError
	)
	switch {
	case errors.As(err, &validErr):
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":     validErr.Error(),
			"parameter": validErr.Parameter,
			"revert_to": validErr.RevertTo,
		})
	case errors.As(err, &connErr),
		errors.Is(err, helpers.ErrNotConnected),
		errors.Is(err, helpers.ErrClosed),
		errors.Is(err, helpers.ErrTerminal):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
