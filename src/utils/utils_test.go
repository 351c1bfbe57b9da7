package utils_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"flashbook-monitor/src/utils"
)

func TestRingBufferEvictsOldest(t *testing.T) {
	rb := utils.NewRingBuffer[int](3)
	for i := 1; i <= 3; i++ {
		_, evicted := rb.Append(i)
		assert.False(t, evicted)
	}
	assert.Equal(t, rb.Capacity(), rb.Size())

	old, evicted := rb.Append(4)
	assert.True(t, evicted)
	assert.Equal(t, 1, old)

	assert.Equal(t, []int{2, 3, 4}, rb.GetAll())
	assert.Equal(t, []int{4, 3}, rb.GetNewestFirst(2))
	assert.Equal(t, []int{3, 4}, rb.GetLatest(2))
}

func TestRingBufferClearAndBounds(t *testing.T) {
	rb := utils.NewRingBuffer[string](0)
	assert.Equal(t, 1, rb.Capacity())

	rb.Append("a")
	rb.Append("b")
	assert.Equal(t, []string{"b"}, rb.GetAll())
	assert.Equal(t, []string{"b"}, rb.GetNewestFirst(10))

	rb.Clear()
	assert.Zero(t, rb.Size())
	assert.Empty(t, rb.GetAll())
	assert.Empty(t, rb.GetNewestFirst(1))
}

func TestTimerSchedulerFires(t *testing.T) {
	s := utils.NewTimerScheduler()
	fired := make(chan struct{})
	s.Schedule(5*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("task did not fire")
	}
}

func TestTimerSchedulerCancel(t *testing.T) {
	s := utils.NewTimerScheduler()
	fired := make(chan struct{}, 1)
	task := s.Schedule(50*time.Millisecond, func() { fired <- struct{}{} })

	assert.True(t, task.Cancel())
	assert.False(t, task.Cancel(), "second cancel is a no-op")

	select {
	case <-fired:
		t.Fatal("cancelled task fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestMillis(t *testing.T) {
	assert.Equal(t, utils.DefaultReconnectBase, utils.Millis(1000))
}
