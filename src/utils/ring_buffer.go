package utils

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer.
// True ring buffer - no resizing allowed!
// -----------------------------------------------------------------------------

type RingBuffer[T any] struct {
	data     []T
	capacity int
	index    int // Next write position
	size     int // Current number of elements
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity <= 0 {
		capacity = 1
	}

	return &RingBuffer[T]{
		data:     make([]T, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Append writes item at the tail. When full, the oldest item is overwritten
// and returned with evicted=true.
func (rb *RingBuffer[T]) Append(item T) (old T, evicted bool) {
	if rb.size == rb.capacity {
		old = rb.data[rb.index]
		evicted = true
	}

	rb.data[rb.index] = item
	rb.index = (rb.index + 1) % rb.capacity

	// Update size (never exceeds capacity)
	if rb.size < rb.capacity {
		rb.size++
	}
	return old, evicted
}

// -----------------------------------------------------------------------------

// GetLatest returns the n latest items, oldest first
func (rb *RingBuffer[T]) GetLatest(n int) []T {
	if rb.size == 0 || n <= 0 {
		return []T{}
	}

	count := min(n, rb.size)
	result := make([]T, count)

	// Latest item is at index-1
	startIdx := (rb.index - count + rb.capacity) % rb.capacity
	for i := 0; i < count; i++ {
		result[i] = rb.data[(startIdx+i)%rb.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

// GetNewestFirst returns the n latest items, newest first
func (rb *RingBuffer[T]) GetNewestFirst(n int) []T {
	if rb.size == 0 || n <= 0 {
		return []T{}
	}

	count := min(n, rb.size)
	result := make([]T, count)
	for i := 0; i < count; i++ {
		result[i] = rb.data[(rb.index-1-i+2*rb.capacity)%rb.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

// GetAll returns all data in insertion order (oldest to newest)
func (rb *RingBuffer[T]) GetAll() []T {
	return rb.GetLatest(rb.size)
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *RingBuffer[T]) Size() int {
	return rb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (rb *RingBuffer[T]) Capacity() int {
	return rb.capacity
}

// -----------------------------------------------------------------------------

// Clear resets the buffer
func (rb *RingBuffer[T]) Clear() {
	clear(rb.data)
	rb.index = 0
	rb.size = 0
}
