package network

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"

	"flashbook-monitor/src/helpers"
	"flashbook-monitor/src/interfaces"
	"flashbook-monitor/src/logger"
	"flashbook-monitor/src/metrics"
	"flashbook-monitor/src/models"
	"flashbook-monitor/src/utils"
)

// -----------------------------------------------------------------------------
// ConnectionManager owns the single exchange connection and its reconnect
// state machine: Idle -> Connecting -> Open | Closed, Closed -> Connecting
// after a scheduled delay, or terminal Closed once the attempt budget is spent.
// -----------------------------------------------------------------------------

type ConnectionManager struct {
	URL         string
	MaxAttempts int

	dialer    interfaces.IDialer
	scheduler interfaces.IScheduler
	handler   interfaces.IConnectionHandler
	policy    *backoff.ExponentialBackOff
	logger    *logger.Logger

	mu        sync.Mutex
	ctx       context.Context
	cancel    context.CancelFunc
	state     models.ConnState
	attempts  int
	terminal  bool
	closed    bool
	retry     interfaces.ICancelable
	retryGen  uint64
	session   *session
	sessionID string
	lastErr   error
}

// -----------------------------------------------------------------------------

func NewConnectionManager(
	cfg *models.MConfig,
	dialer interfaces.IDialer,
	scheduler interfaces.IScheduler,
	handler interfaces.IConnectionHandler,
	log *logger.Logger,
) *ConnectionManager {
	if log == nil {
		log = logger.NewLogger(nil, "Connection")
	}
	if scheduler == nil {
		scheduler = utils.NewTimerScheduler()
	}

	base := utils.DefaultReconnectBase
	if cfg.Reconnect.BaseDelayMs > 0 {
		base = utils.Millis(cfg.Reconnect.BaseDelayMs)
	}
	maxDelay := utils.DefaultReconnectCap
	if cfg.Reconnect.MaxDelayMs > 0 {
		maxDelay = utils.Millis(cfg.Reconnect.MaxDelayMs)
	}
	maxAttempts := utils.DefaultMaxReconnectAttempts
	if cfg.Reconnect.MaxAttempts > 0 {
		maxAttempts = cfg.Reconnect.MaxAttempts
	}

	return &ConnectionManager{
		URL:         cfg.Exchange.URL,
		MaxAttempts: maxAttempts,
		dialer:      dialer,
		scheduler:   scheduler,
		handler:     handler,
		policy:      NewReconnectPolicy(base, maxDelay),
		logger:      log,
		ctx:         context.Background(),
	}
}

// -----------------------------------------------------------------------------

// NewReconnectPolicy returns a deterministic doubling backoff: base, 2*base,
// 4*base, ... capped at maxDelay.
func NewReconnectPolicy(base, maxDelay time.Duration) *backoff.ExponentialBackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = base
	policy.Multiplier = 2
	policy.MaxInterval = maxDelay
	policy.RandomizationFactor = 0
	policy.Reset()
	return policy
}

// -----------------------------------------------------------------------------
// Lifecycle
// -----------------------------------------------------------------------------

// Connect dials the exchange once. A failed dial still schedules the first
// retry; the error is returned for logging only.
func (m *ConnectionManager) Connect(ctx context.Context) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return helpers.ErrClosed
	}
	if m.state == models.ConnConnecting || m.state == models.ConnOpen {
		m.mu.Unlock()
		return nil
	}
	if m.retry != nil {
		m.retry.Cancel()
		m.retry = nil
		m.retryGen++
	}
	if m.cancel != nil {
		m.cancel()
	}
	m.ctx, m.cancel = context.WithCancel(ctx)
	dialCtx := m.ctx
	m.setStateLocked(models.ConnConnecting)
	m.mu.Unlock()

	return m.dial(dialCtx)
}

// -----------------------------------------------------------------------------

// RetryNow pre-empts a pending retry and dials immediately. From the terminal
// state it also restores the full attempt budget.
func (m *ConnectionManager) RetryNow() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return helpers.ErrClosed
	}
	if m.state == models.ConnConnecting || m.state == models.ConnOpen {
		m.mu.Unlock()
		return nil
	}
	if m.retry != nil {
		if !m.retry.Cancel() {
			// already firing
			m.mu.Unlock()
			return nil
		}
		m.retry = nil
		m.retryGen++
	}
	if m.terminal {
		m.logger.Info("Manual retry, restoring reconnect budget")
		m.resetBudgetLocked()
	}
	dialCtx := m.ctx
	m.setStateLocked(models.ConnConnecting)
	m.mu.Unlock()

	return m.dial(dialCtx)
}

// -----------------------------------------------------------------------------

// Close tears down the connection and cancels any pending retry. The manager
// cannot be reused.
func (m *ConnectionManager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	if m.retry != nil {
		m.retry.Cancel()
		m.retry = nil
		m.retryGen++
	}
	s := m.session
	m.session = nil
	if m.cancel != nil {
		m.cancel()
	}
	m.setStateLocked(models.ConnClosed)
	m.mu.Unlock()

	if s != nil {
		s.close()
		s.wg.Wait()
	}
	m.logger.Info("Connection closed")
}

// -----------------------------------------------------------------------------
// Outbound
// -----------------------------------------------------------------------------

// Send queues one text frame on the open session.
func (m *ConnectionManager) Send(frame []byte) error {
	m.mu.Lock()
	s := m.session
	open := m.state == models.ConnOpen
	m.mu.Unlock()

	if !open || s == nil {
		return helpers.ErrNotConnected
	}
	return s.enqueue(frame)
}

// -----------------------------------------------------------------------------
// Status
// -----------------------------------------------------------------------------

func (m *ConnectionManager) State() models.ConnState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *ConnectionManager) Status() models.MConnectionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	status := models.MConnectionStatus{
		State:             m.state.String(),
		ReconnectAttempts: m.attempts,
		Terminal:          m.terminal,
		RetryPending:      m.retry != nil,
		SessionID:         m.sessionID,
	}
	if m.lastErr != nil {
		status.LastError = m.lastErr.Error()
	}
	return status
}

// -----------------------------------------------------------------------------
// Internals
// -----------------------------------------------------------------------------

func (m *ConnectionManager) dial(ctx context.Context) error {
	m.logger.Info("Connecting to %s", m.URL)

	conn, err := m.dialer.Dial(ctx, m.URL)
	if err != nil {
		err = helpers.NewTransportError("dial "+m.URL, err)
		m.fail(err)
		return err
	}

	m.mu.Lock()
	if m.closed || m.state != models.ConnConnecting {
		m.mu.Unlock()
		conn.Close()
		return helpers.ErrClosed
	}
	id := uuid.NewString()
	s := newSession(id, conn, m.handler.OnMessage, m.sessionEnded)
	m.session = s
	m.sessionID = id
	m.lastErr = nil
	m.resetBudgetLocked()
	m.setStateLocked(models.ConnOpen)
	m.mu.Unlock()

	m.logger.Info("Connected, session %s", id)
	m.handler.OnOpen(id)
	s.start()
	return nil
}

// -----------------------------------------------------------------------------

func (m *ConnectionManager) sessionEnded(s *session, err error) {
	m.mu.Lock()
	if m.session != s {
		m.mu.Unlock()
		return
	}
	m.session = nil
	m.mu.Unlock()

	if errors.Is(err, helpers.ErrClosed) {
		return
	}
	m.logger.Warning("Session %s lost: %v", s.id, err)
	m.fail(err)
}

// -----------------------------------------------------------------------------

// fail moves to Closed and schedules the next attempt if the budget allows.
func (m *ConnectionManager) fail(err error) {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.lastErr = err
	m.setStateLocked(models.ConnClosed)

	var delay time.Duration
	if m.attempts >= m.MaxAttempts {
		m.terminal = true
		metrics.ConnectionTerminal.Set(1)
	} else {
		delay = m.policy.NextBackOff()
		m.attempts++
		m.retryGen++
		gen := m.retryGen
		m.retry = m.scheduler.Schedule(delay, func() { m.fireRetry(gen) })
		metrics.ReconnectAttemptsTotal.Inc()
	}
	attempts, terminal := m.attempts, m.terminal
	m.mu.Unlock()

	if terminal {
		m.logger.Error("Giving up after %d reconnect attempts: %v", attempts, err)
	} else {
		m.logger.Warning("Reconnect attempt %d/%d in %s", attempts, m.MaxAttempts, delay)
	}
	m.handler.OnClosed(err, delay, terminal)
}

// -----------------------------------------------------------------------------

func (m *ConnectionManager) fireRetry(gen uint64) {
	m.mu.Lock()
	if m.closed || m.retryGen != gen || m.state != models.ConnClosed {
		m.mu.Unlock()
		return
	}
	m.retry = nil
	dialCtx := m.ctx
	m.setStateLocked(models.ConnConnecting)
	m.mu.Unlock()

	m.dial(dialCtx)
}

// -----------------------------------------------------------------------------

func (m *ConnectionManager) resetBudgetLocked() {
	m.attempts = 0
	m.terminal = false
	m.policy.Reset()
	metrics.ConnectionTerminal.Set(0)
}

func (m *ConnectionManager) setStateLocked(state models.ConnState) {
	m.state = state
	metrics.ConnectionState.Set(float64(state))
}
