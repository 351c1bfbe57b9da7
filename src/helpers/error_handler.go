package helpers

import (
	"errors"
	"fmt"

	"flashbook-monitor/src/logger"
)

// -----------------------------------------------------------------------------
// Custom Error Types
// -----------------------------------------------------------------------------

type MonitorError struct {
	Message string
	Cause   error
}

func (e *MonitorError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *MonitorError) Unwrap() error {
	return e.Cause
}

// Distinct error types for errors.As checks
type ConfigurationError struct{ MonitorError }
type TransportError struct{ MonitorError }
type ProtocolError struct{ MonitorError }
type ConnectivityError struct{ MonitorError }
type DatabaseError struct{ MonitorError }

// ValidationError rejects operator input before any network call.
// RevertTo holds the last known-good value for the offending input.
type ValidationError struct {
	MonitorError
	Parameter string
	RevertTo  any
}

var (
	ErrNotConnected = errors.New("connection is not open")
	ErrTerminal     = errors.New("reconnect attempts exhausted")
	ErrClosed       = errors.New("connection manager closed")
)

// -----------------------------------------------------------------------------
// Constructors
// -----------------------------------------------------------------------------

func NewTransportError(message string, cause error) *TransportError {
	return &TransportError{MonitorError{Message: message, Cause: cause}}
}

func NewProtocolError(message string, cause error) *ProtocolError {
	return &ProtocolError{MonitorError{Message: message, Cause: cause}}
}

func NewConnectivityError(command string, cause error) *ConnectivityError {
	return &ConnectivityError{MonitorError{Message: fmt.Sprintf("cannot send %s", command), Cause: cause}}
}

func NewDatabaseError(message string, cause error) *DatabaseError {
	return &DatabaseError{MonitorError{Message: message, Cause: cause}}
}

func NewConfigurationError(message string) *ConfigurationError {
	return &ConfigurationError{MonitorError{Message: message}}
}

func NewValidationError(parameter, reason string, revertTo any) *ValidationError {
	return &ValidationError{
		MonitorError: MonitorError{Message: fmt.Sprintf("invalid %s: %s", parameter, reason)},
		Parameter:    parameter,
		RevertTo:     revertTo,
	}
}

// -----------------------------------------------------------------------------
// Error Handler
// -----------------------------------------------------------------------------

// ErrorHandler logs errors by category and keeps a running count.
type ErrorHandler struct {
	Logger     *logger.Logger
	ErrorCount int
}

func NewErrorHandler(log *logger.Logger) *ErrorHandler {
	if log == nil {
		log = logger.NewLogger(nil, "ErrorHandler")
	}
	return &ErrorHandler{Logger: log}
}

// -----------------------------------------------------------------------------

func (e *ErrorHandler) ResetErrorCount() {
	e.ErrorCount = 0
}

// -----------------------------------------------------------------------------

// Handle logs err at a level matching its category. Protocol and validation
// problems are expected traffic; transport and database errors are not.
func (e *ErrorHandler) Handle(err error, context string) {
	if err == nil {
		return
	}
	e.ErrorCount++

	var (
		protoErr *ProtocolError
		validErr *ValidationError
		connErr  *ConnectivityError
	)
	switch {
	case errors.As(err, &protoErr):
		e.Logger.Warning("Protocol error in %s: %v", context, err)
	case errors.As(err, &validErr):
		e.Logger.Info("Rejected input in %s: %v", context, err)
	case errors.As(err, &connErr):
		e.Logger.Warning("Connectivity error in %s: %v", context, err)
	default:
		e.Logger.Error("Error in %s: %v", context, err)
	}
}
