package network

import (
	"context"
	"errors"
	"sync"
	"time"

	"flashbook-monitor/src/interfaces"
)

// -----------------------------------------------------------------------------
// fakeConn delivers frames pushed by the test and records writes.
// -----------------------------------------------------------------------------

type fakeConn struct {
	inbox  chan []byte
	mu     sync.Mutex
	writes [][]byte
	closed bool
	once   sync.Once
	gone   chan struct{}
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbox: make(chan []byte, 16), gone: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case frame := <-c.inbox:
		return 1, frame, nil
	case <-c.gone:
		return 0, nil, errors.New("connection reset")
	}
}

func (c *fakeConn) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return errors.New("use of closed connection")
	}
	if messageType == 1 {
		c.writes = append(c.writes, append([]byte(nil), data...))
	}
	return nil
}

func (c *fakeConn) WriteControl(int, []byte, time.Time) error { return nil }
func (c *fakeConn) SetReadLimit(int64)                        {}
func (c *fakeConn) SetReadDeadline(time.Time) error           { return nil }
func (c *fakeConn) SetWriteDeadline(time.Time) error          { return nil }
func (c *fakeConn) SetPongHandler(func(string) error)         {}

func (c *fakeConn) Close() error {
	c.once.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()
		close(c.gone)
	})
	return nil
}

func (c *fakeConn) written() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.writes))
	for i, w := range c.writes {
		out[i] = string(w)
	}
	return out
}

// -----------------------------------------------------------------------------
// fakeDialer fails while failures > 0, then hands out fresh fakeConns.
// -----------------------------------------------------------------------------

type fakeDialer struct {
	mu       sync.Mutex
	failures int
	dials    int
	conns    []*fakeConn
}

func (d *fakeDialer) Dial(context.Context, string) (interfaces.IConn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if d.failures > 0 {
		d.failures--
		return nil, errors.New("connection refused")
	}
	conn := newFakeConn()
	d.conns = append(d.conns, conn)
	return conn, nil
}

func (d *fakeDialer) setFailures(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failures = n
}

func (d *fakeDialer) lastConn() *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.conns) == 0 {
		return nil
	}
	return d.conns[len(d.conns)-1]
}

// -----------------------------------------------------------------------------
// manualScheduler records scheduled work; tests fire it explicitly.
// -----------------------------------------------------------------------------

type manualTask struct {
	delay     time.Duration
	fn        func()
	mu        sync.Mutex
	cancelled bool
	fired     bool
}

func (t *manualTask) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled || t.fired {
		return false
	}
	t.cancelled = true
	return true
}

func (t *manualTask) fire() bool {
	t.mu.Lock()
	if t.cancelled || t.fired {
		t.mu.Unlock()
		return false
	}
	t.fired = true
	t.mu.Unlock()
	t.fn()
	return true
}

type manualScheduler struct {
	mu    sync.Mutex
	tasks []*manualTask
}

func (s *manualScheduler) Schedule(delay time.Duration, fn func()) interfaces.ICancelable {
	s.mu.Lock()
	defer s.mu.Unlock()
	task := &manualTask{delay: delay, fn: fn}
	s.tasks = append(s.tasks, task)
	return task
}

func (s *manualScheduler) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tasks)
}

func (s *manualScheduler) task(i int) *manualTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tasks[i]
}

func (s *manualScheduler) delays() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]time.Duration, len(s.tasks))
	for i, t := range s.tasks {
		out[i] = t.delay
	}
	return out
}

// -----------------------------------------------------------------------------
// recordingHandler captures lifecycle callbacks.
// -----------------------------------------------------------------------------

type closedCall struct {
	err      error
	retryIn  time.Duration
	terminal bool
}

type recordingHandler struct {
	mu     sync.Mutex
	opens  []string
	frames []string
	closes []closedCall
}

func (h *recordingHandler) OnOpen(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.opens = append(h.opens, sessionID)
}

func (h *recordingHandler) OnMessage(frame []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.frames = append(h.frames, string(frame))
}

func (h *recordingHandler) OnClosed(err error, retryIn time.Duration, terminal bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closes = append(h.closes, closedCall{err: err, retryIn: retryIn, terminal: terminal})
}

func (h *recordingHandler) snapshot() (opens, frames []string, closes []closedCall) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.opens...),
		append([]string(nil), h.frames...),
		append([]closedCall(nil), h.closes...)
}
