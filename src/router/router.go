package router

import (
	"bytes"
	"fmt"

	"github.com/goccy/go-json"

	"flashbook-monitor/src/helpers"
	"flashbook-monitor/src/interfaces"
	"flashbook-monitor/src/logger"
	"flashbook-monitor/src/metrics"
	"flashbook-monitor/src/models"
)

// -----------------------------------------------------------------------------
// MessageRouter decodes inbound text frames and dispatches each one to exactly
// one handler method. It is not safe for concurrent use; frames of a connection
// must be routed in arrival order from a single goroutine.
// -----------------------------------------------------------------------------

type MessageRouter struct {
	handler interfaces.IEventHandler
	logger  *logger.Logger
}

// -----------------------------------------------------------------------------

func NewMessageRouter(handler interfaces.IEventHandler, log *logger.Logger) *MessageRouter {
	if log == nil {
		log = logger.NewLogger(nil, "Router")
	}
	return &MessageRouter{handler: handler, logger: log}
}

// -----------------------------------------------------------------------------

// Route handles one frame. A *helpers.ProtocolError is returned for frames
// that were dropped; unknown event types are ignored and return nil.
func (r *MessageRouter) Route(frame []byte) error {
	env, err := decodeEnvelope(frame)
	if err != nil {
		return r.drop(err)
	}
	event, err := decodePayload(env)
	if err != nil {
		return r.drop(err)
	}
	if event == nil {
		metrics.UnknownEventsTotal.Inc()
		r.logger.Debug("Ignoring unknown event type %q", env.Type)
		return nil
	}

	metrics.FramesTotal.WithLabelValues(event.EventType()).Inc()
	r.dispatch(event)
	return nil
}

// -----------------------------------------------------------------------------

func (r *MessageRouter) drop(err error) error {
	metrics.ProtocolErrorsTotal.Inc()
	r.logger.Warning("Dropping frame: %v", err)
	return err
}

// -----------------------------------------------------------------------------

func (r *MessageRouter) dispatch(event models.InboundEvent) {
	switch ev := event.(type) {
	case models.MBBOUpdate:
		r.handler.OnBBO(ev)
	case models.MTrade:
		r.handler.OnTrade(ev)
	case models.MBookSnapshot:
		r.handler.OnBook(ev)
	case models.MAgentStatus:
		r.handler.OnAgentStatus(ev)
	case models.MExchangeStats:
		r.handler.OnStats(ev)
	case models.MOrderUpdate:
		r.handler.OnOrderUpdate(ev)
	case models.MAgentAction:
		r.handler.OnAgentAction(ev)
	default:
		r.logger.Error("No dispatch for event type %s", event.EventType())
	}
}

// -----------------------------------------------------------------------------
// Decoding
// -----------------------------------------------------------------------------

// Decode parses one frame into its typed event. It returns (nil, nil) for a
// well-formed envelope whose type is not recognized.
func Decode(frame []byte) (models.InboundEvent, error) {
	env, err := decodeEnvelope(frame)
	if err != nil {
		return nil, err
	}
	return decodePayload(env)
}

// -----------------------------------------------------------------------------

func decodeEnvelope(frame []byte) (models.MEnvelope, error) {
	var env models.MEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return env, helpers.NewProtocolError("malformed frame", err)
	}
	if env.Type == "" {
		return env, helpers.NewProtocolError("frame has no type", nil)
	}
	env.Payload = bytes.TrimSpace(env.Payload)
	if len(env.Payload) == 0 || bytes.Equal(env.Payload, []byte("null")) {
		return env, helpers.NewProtocolError(fmt.Sprintf("%s frame has no payload", env.Type), nil)
	}
	if env.Payload[0] != '{' {
		return env, helpers.NewProtocolError(fmt.Sprintf("%s payload is not an object", env.Type), nil)
	}
	return env, nil
}

// -----------------------------------------------------------------------------

func decodePayload(env models.MEnvelope) (models.InboundEvent, error) {
	payload := env.Payload

	switch env.Type {
	case models.EventBBOUpdate:
		return decodeAs[models.MBBOUpdate](env.Type, payload)
	case models.EventTrade:
		return decodeAs[models.MTrade](env.Type, payload)
	case models.EventBookSnapshot:
		return decodeAs[models.MBookSnapshot](env.Type, payload)
	case models.EventAgentStatus:
		ev, err := decodeAs[models.MAgentStatus](env.Type, payload)
		if err != nil {
			return nil, err
		}
		if ev.(models.MAgentStatus).AgentID == "" {
			return nil, helpers.NewProtocolError("agent_status payload has no agent_id", nil)
		}
		return ev, nil
	case models.EventExchangeStats:
		return decodeAs[models.MExchangeStats](env.Type, payload)
	case models.EventOrderUpdate:
		return decodeAs[models.MOrderUpdate](env.Type, payload)
	case models.EventAgentAction:
		return decodeAs[models.MAgentAction](env.Type, payload)
	}
	return nil, nil
}

// -----------------------------------------------------------------------------

func decodeAs[T models.InboundEvent](eventType string, payload []byte) (models.InboundEvent, error) {
	var ev T
	if err := json.Unmarshal(payload, &ev); err != nil {
		return nil, helpers.NewProtocolError(fmt.Sprintf("bad %s payload", eventType), err)
	}
	return ev, nil
}
