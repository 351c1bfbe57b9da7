package series

import (
	"sort"
	"sync"

	"flashbook-monitor/src/models"
	"flashbook-monitor/src/utils"
)

// -----------------------------------------------------------------------------
// PriceHistory keeps a bounded chronological price series per symbol.
// -----------------------------------------------------------------------------

type PriceHistory struct {
	streams  map[string]*symbolStream
	capacity int
	mu       sync.RWMutex
}

type symbolStream struct {
	ring *utils.RingBuffer[models.MPricePoint]
	next int64 // sequence_index of the next point
}

// -----------------------------------------------------------------------------

func NewPriceHistory(capacity int) *PriceHistory {
	if capacity <= 0 {
		capacity = utils.DefaultHistoryCapacity
	}
	return &PriceHistory{
		streams:  make(map[string]*symbolStream),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// AddPoint appends a price at the tail of the symbol's series and returns the
// stored point. The oldest point drops off the head when full.
func (ph *PriceHistory) AddPoint(symbol string, price float64, ts models.Timestamp) models.MPricePoint {
	ph.mu.Lock()
	defer ph.mu.Unlock()

	stream, ok := ph.streams[symbol]
	if !ok {
		stream = &symbolStream{ring: utils.NewRingBuffer[models.MPricePoint](ph.capacity)}
		ph.streams[symbol] = stream
	}

	point := models.MPricePoint{
		SequenceIndex:   stream.next,
		Price:           price,
		SourceTimestamp: ts,
	}
	stream.next++
	stream.ring.Append(point)
	return point
}

// -----------------------------------------------------------------------------

// Points returns the symbol's series, oldest first.
func (ph *PriceHistory) Points(symbol string) []models.MPricePoint {
	ph.mu.RLock()
	defer ph.mu.RUnlock()

	stream, ok := ph.streams[symbol]
	if !ok {
		return []models.MPricePoint{}
	}
	return stream.ring.GetAll()
}

// -----------------------------------------------------------------------------

// Prices returns only the price column of the symbol's series.
func (ph *PriceHistory) Prices(symbol string) []float64 {
	points := ph.Points(symbol)
	prices := make([]float64, len(points))
	for i, p := range points {
		prices[i] = p.Price
	}
	return prices
}

// -----------------------------------------------------------------------------

func (ph *PriceHistory) Len(symbol string) int {
	ph.mu.RLock()
	defer ph.mu.RUnlock()

	if stream, ok := ph.streams[symbol]; ok {
		return stream.ring.Size()
	}
	return 0
}

// -----------------------------------------------------------------------------

// Symbols lists the symbols with at least one point, sorted.
func (ph *PriceHistory) Symbols() []string {
	ph.mu.RLock()
	defer ph.mu.RUnlock()

	symbols := make([]string, 0, len(ph.streams))
	for sym, stream := range ph.streams {
		if stream.ring.Size() > 0 {
			symbols = append(symbols, sym)
		}
	}
	sort.Strings(symbols)
	return symbols
}

// -----------------------------------------------------------------------------

// ClearAll drops every series and restarts sequence numbering.
func (ph *PriceHistory) ClearAll() {
	ph.mu.Lock()
	defer ph.mu.Unlock()

	ph.streams = make(map[string]*symbolStream)
}

// -----------------------------------------------------------------------------

func (ph *PriceHistory) Capacity() int {
	return ph.capacity
}
