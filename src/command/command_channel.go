package command

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"

	"github.com/goccy/go-json"

	"flashbook-monitor/src/helpers"
	"flashbook-monitor/src/interfaces"
	"flashbook-monitor/src/logger"
	"flashbook-monitor/src/metrics"
	"flashbook-monitor/src/models"
	"flashbook-monitor/src/state"
)

// -----------------------------------------------------------------------------
// CommandChannel validates operator commands, writes them to the exchange
// connection and applies the matching optimistic change to the store.
// Nothing is queued or retried.
// -----------------------------------------------------------------------------

type CommandChannel struct {
	sender   interfaces.ICommandSender
	store    *state.EntityStateStore
	recorder interfaces.ICommandRecorder
	symbols  []string
	logger   *logger.Logger
}

// -----------------------------------------------------------------------------

func NewCommandChannel(sender interfaces.ICommandSender, store *state.EntityStateStore, symbols []string, log *logger.Logger) *CommandChannel {
	if log == nil {
		log = logger.NewLogger(nil, "Commands")
	}
	return &CommandChannel{
		sender:  sender,
		store:   store,
		symbols: append([]string(nil), symbols...),
		logger:  log,
	}
}

// SetRecorder attaches a journal for sent commands.
func (c *CommandChannel) SetRecorder(recorder interfaces.ICommandRecorder) {
	c.recorder = recorder
}

// -----------------------------------------------------------------------------
// Agent controls
// -----------------------------------------------------------------------------

func (c *CommandChannel) SetActive(agentID string, active bool) error {
	if _, err := c.agent(agentID, models.ParamSetActive); err != nil {
		return err
	}
	return c.sendControl(agentID, models.ParamSetActive, active, func() {
		c.store.SetActive(agentID, active)
	})
}

// -----------------------------------------------------------------------------

func (c *CommandChannel) ChangeStrategy(agentID, strategy string) error {
	rec, err := c.agent(agentID, models.ParamChangeStrategy)
	if err != nil {
		return err
	}
	if !models.IsKnownStrategy(strategy) {
		return c.invalid(models.ParamChangeStrategy, fmt.Sprintf("unknown strategy %q", strategy), rec.Strategy)
	}
	return c.sendControl(agentID, models.ParamChangeStrategy, strategy, func() {
		c.store.SetStrategy(agentID, strategy)
	})
}

// -----------------------------------------------------------------------------

func (c *CommandChannel) SetRisk(agentID string, risk float64) error {
	rec, err := c.agent(agentID, models.ParamSetRisk)
	if err != nil {
		return err
	}
	if math.IsNaN(risk) || risk < models.MinRiskFactor || risk > models.MaxRiskFactor {
		reason := fmt.Sprintf("%v outside [%v, %v]", risk, models.MinRiskFactor, models.MaxRiskFactor)
		return c.invalid(models.ParamSetRisk, reason, rec.RiskFactor)
	}
	return c.sendControl(agentID, models.ParamSetRisk, risk, func() {
		c.store.SetRiskFactor(agentID, risk)
	})
}

// -----------------------------------------------------------------------------

func (c *CommandChannel) SetBankroll(agentID string, bankroll float64) error {
	rec, err := c.agent(agentID, models.ParamSetBankroll)
	if err != nil {
		return err
	}
	if math.IsNaN(bankroll) || math.IsInf(bankroll, 0) || bankroll < 0 {
		return c.invalid(models.ParamSetBankroll, fmt.Sprintf("%v is not a non-negative amount", bankroll), rec.Bankroll)
	}
	return c.sendControl(agentID, models.ParamSetBankroll, bankroll, func() {
		c.store.SetBankroll(agentID, bankroll)
	})
}

// -----------------------------------------------------------------------------

// SubmitControl dispatches an untyped control value, as received from the
// operator API, to the matching typed control.
func (c *CommandChannel) SubmitControl(agentID, parameter string, value any) error {
	switch parameter {
	case models.ParamSetActive:
		b, ok := value.(bool)
		if !ok {
			return c.invalidFor(agentID, parameter, "value must be a boolean")
		}
		return c.SetActive(agentID, b)
	case models.ParamChangeStrategy:
		s, ok := value.(string)
		if !ok {
			return c.invalidFor(agentID, parameter, "value must be a string")
		}
		return c.ChangeStrategy(agentID, s)
	case models.ParamSetRisk, models.ParamSetBankroll:
		f, ok := toFloat(value)
		if !ok {
			return c.invalidFor(agentID, parameter, "value must be a number")
		}
		if parameter == models.ParamSetRisk {
			return c.SetRisk(agentID, f)
		}
		return c.SetBankroll(agentID, f)
	}
	metrics.CommandsTotal.WithLabelValues(parameter, metrics.OutcomeInvalid).Inc()
	return helpers.NewValidationError("parameter", fmt.Sprintf("unknown parameter %q", parameter), nil)
}

// -----------------------------------------------------------------------------
// Global commands
// -----------------------------------------------------------------------------

func (c *CommandChannel) Pause() error {
	return c.sendGlobal(models.MGlobalCommand{Command: models.CommandSetPause}, func() {
		c.store.SetPaused(true)
	})
}

func (c *CommandChannel) Resume() error {
	return c.sendGlobal(models.MGlobalCommand{Command: models.CommandSetResume}, func() {
		c.store.SetPaused(false)
	})
}

// Reset also marks the exchange paused locally. The server sends no
// confirmation, so this is a local signal only.
func (c *CommandChannel) Reset() error {
	return c.sendGlobal(models.MGlobalCommand{Command: models.CommandReset}, func() {
		c.store.SetPaused(true)
	})
}

// -----------------------------------------------------------------------------

// MarketEvent shifts symbol's price by percent (-100..100). The wire value is
// the fraction percent/100.
func (c *CommandChannel) MarketEvent(symbol string, percent float64) error {
	if !slices.Contains(c.symbols, symbol) {
		return c.invalid(models.CommandMarketEvent, fmt.Sprintf("unknown symbol %q", symbol), nil)
	}
	if math.IsNaN(percent) || percent < models.MinShiftPercent || percent > models.MaxShiftPercent {
		reason := fmt.Sprintf("%v%% outside [%v, %v]", percent, models.MinShiftPercent, models.MaxShiftPercent)
		return c.invalid(models.CommandMarketEvent, reason, nil)
	}
	cmd := models.MGlobalCommand{
		Command: models.CommandMarketEvent,
		Payload: &models.MMarketEventPayload{Symbol: symbol, PercentShift: percent / 100},
	}
	return c.sendGlobal(cmd, nil)
}

// -----------------------------------------------------------------------------

// SubmitGlobal dispatches an operator API global request.
func (c *CommandChannel) SubmitGlobal(req models.MGlobalRequest) error {
	switch req.Command {
	case models.CommandSetPause:
		return c.Pause()
	case models.CommandSetResume:
		return c.Resume()
	case models.CommandReset:
		return c.Reset()
	case models.CommandMarketEvent:
		if req.Percent == nil {
			return c.invalid(models.CommandMarketEvent, "percent is required", nil)
		}
		return c.MarketEvent(req.Symbol, *req.Percent)
	}
	metrics.CommandsTotal.WithLabelValues(req.Command, metrics.OutcomeInvalid).Inc()
	return helpers.NewValidationError("command", fmt.Sprintf("unknown command %q", req.Command), c.store.Paused())
}

// -----------------------------------------------------------------------------
// Sending
// -----------------------------------------------------------------------------

func (c *CommandChannel) sendControl(agentID, parameter string, value any, apply func()) error {
	msg := models.MAgentControl{AgentID: agentID, Parameter: parameter, Value: value}
	return c.send(msg, apply)
}

func (c *CommandChannel) sendGlobal(cmd models.MGlobalCommand, apply func()) error {
	return c.send(cmd, apply)
}

// -----------------------------------------------------------------------------

func (c *CommandChannel) send(cmd models.OutboundCommand, apply func()) error {
	name := cmd.CommandName()

	if c.sender == nil || c.sender.State() != models.ConnOpen {
		metrics.CommandsTotal.WithLabelValues(name, metrics.OutcomeDisconnected).Inc()
		c.logger.Warning("Dropping %s: not connected", name)
		return helpers.NewConnectivityError(name, helpers.ErrNotConnected)
	}

	body, err := json.Marshal(cmd)
	if err != nil {
		metrics.CommandsTotal.WithLabelValues(name, metrics.OutcomeFailed).Inc()
		return fmt.Errorf("encode %s: %w", name, err)
	}

	if err := c.sender.Send(body); err != nil {
		outcome := metrics.OutcomeFailed
		if errors.Is(err, helpers.ErrNotConnected) {
			outcome = metrics.OutcomeDisconnected
		}
		metrics.CommandsTotal.WithLabelValues(name, outcome).Inc()
		c.logger.Warning("Sending %s failed: %v", name, err)
		return helpers.NewConnectivityError(name, err)
	}

	if apply != nil {
		apply()
	}
	metrics.CommandsTotal.WithLabelValues(name, metrics.OutcomeSent).Inc()
	if c.recorder != nil {
		c.recorder.RecordCommand(name, body)
	}
	c.logger.Info("Sent %s", body)
	return nil
}

// -----------------------------------------------------------------------------
// Validation helpers
// -----------------------------------------------------------------------------

func (c *CommandChannel) agent(agentID, parameter string) (models.MAgentRecord, error) {
	rec, ok := c.store.Get(agentID)
	if !ok {
		return rec, c.invalid(parameter, fmt.Sprintf("unknown agent %q", agentID), nil)
	}
	return rec, nil
}

// invalidFor rejects a malformed value, reverting to the agent's stored field.
func (c *CommandChannel) invalidFor(agentID, parameter, reason string) error {
	rec, err := c.agent(agentID, parameter)
	if err != nil {
		return err
	}
	return c.invalid(parameter, reason, StoredValue(rec, parameter))
}

func (c *CommandChannel) invalid(parameter, reason string, revertTo any) error {
	metrics.CommandsTotal.WithLabelValues(parameter, metrics.OutcomeInvalid).Inc()
	c.logger.Info("Rejected %s: %s", parameter, reason)
	return helpers.NewValidationError(parameter, reason, revertTo)
}

// -----------------------------------------------------------------------------

// StoredValue returns the record field a control parameter writes.
func StoredValue(rec models.MAgentRecord, parameter string) any {
	switch parameter {
	case models.ParamSetActive:
		return rec.IsActive
	case models.ParamChangeStrategy:
		return rec.Strategy
	case models.ParamSetRisk:
		return rec.RiskFactor
	case models.ParamSetBankroll:
		return rec.Bankroll
	}
	return nil
}

// -----------------------------------------------------------------------------

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		return f, err == nil
	}
	return 0, false
}
