package series

import (
	"sync"

	"flashbook-monitor/src/models"
	"flashbook-monitor/src/utils"
)

// -----------------------------------------------------------------------------
// TradeTicker keeps the most recent trades, newest first.
// Redelivered trades are not deduplicated.
// -----------------------------------------------------------------------------

type TradeTicker struct {
	ring *utils.RingBuffer[models.MTradeEvent]
	mu   sync.RWMutex
}

// -----------------------------------------------------------------------------

func NewTradeTicker(capacity int) *TradeTicker {
	if capacity <= 0 {
		capacity = utils.DefaultTradeCapacity
	}
	return &TradeTicker{ring: utils.NewRingBuffer[models.MTradeEvent](capacity)}
}

// -----------------------------------------------------------------------------

// Insert puts trade at the head; the oldest entry drops off the tail when full.
func (t *TradeTicker) Insert(trade models.MTradeEvent) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ring.Append(trade)
}

// -----------------------------------------------------------------------------

// Items returns the whole ticker, index 0 being the most recent trade.
func (t *TradeTicker) Items() []models.MTradeEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ring.GetNewestFirst(t.ring.Size())
}

// -----------------------------------------------------------------------------

// Head returns the n most recent trades, newest first.
func (t *TradeTicker) Head(n int) []models.MTradeEvent {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ring.GetNewestFirst(n)
}

// -----------------------------------------------------------------------------

func (t *TradeTicker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ring.Size()
}

// -----------------------------------------------------------------------------

func (t *TradeTicker) Capacity() int {
	return t.ring.Capacity()
}
