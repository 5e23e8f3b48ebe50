package watcher

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebounceCoalescesBursts(t *testing.T) {
	d := NewDebounceScheduler(50 * time.Millisecond)
	defer d.CancelAll()

	var calls atomic.Int32
	for i := 0; i < 5; i++ {
		d.Schedule(FileEvent, "/lib/a.mkv", func() { calls.Add(1) })
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 },
		time.Second, 10*time.Millisecond)
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load(), "burst must fire exactly once")
}

func TestDebounceResetsWindowOnRepeat(t *testing.T) {
	d := NewDebounceScheduler(80 * time.Millisecond)
	defer d.CancelAll()

	var calls atomic.Int32
	d.Schedule(FileEvent, "/lib/a.mkv", func() { calls.Add(1) })
	time.Sleep(40 * time.Millisecond)
	d.Schedule(FileEvent, "/lib/a.mkv", func() { calls.Add(1) })

	// The first window would have expired by now; the reset one has not.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load(), "reset window fired early")

	require.Eventually(t, func() bool { return calls.Load() == 1 },
		time.Second, 10*time.Millisecond)
}

func TestDebounceKeysAreIndependent(t *testing.T) {
	d := NewDebounceScheduler(30 * time.Millisecond)
	defer d.CancelAll()

	var calls atomic.Int32
	d.Schedule(FileEvent, "/lib/a.mkv", func() { calls.Add(1) })
	d.Schedule(FileEvent, "/lib/b.mkv", func() { calls.Add(1) })
	d.Schedule(DirEvent, "/lib/a.mkv", func() { calls.Add(1) })

	assert.Equal(t, 3, d.Pending())
	require.Eventually(t, func() bool { return calls.Load() == 3 },
		time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, d.Pending())
}

func TestDebounceLateFireKeepsSuccessorEntry(t *testing.T) {
	d := NewDebounceScheduler(20 * time.Millisecond)
	defer d.CancelAll()

	var calls atomic.Int32
	d.Schedule(FileEvent, "/lib/a.mkv", func() { calls.Add(1) })

	// Hold the lock so the fired timer's callback stalls before its map
	// cleanup, then install a successor under the same key, exactly as a
	// Schedule racing the fire would.
	key := debounceKey{class: FileEvent, path: "/lib/a.mkv"}
	d.mu.Lock()
	time.Sleep(60 * time.Millisecond)
	successor := time.AfterFunc(time.Hour, func() { calls.Add(100) })
	d.timers[key] = successor
	d.mu.Unlock()

	require.Eventually(t, func() bool { return calls.Load() == 1 },
		time.Second, 10*time.Millisecond)

	d.mu.Lock()
	kept := d.timers[key] == successor
	d.mu.Unlock()
	assert.True(t, kept, "a late fire must not drop the successor's entry")
}

func TestDebounceCancelAll(t *testing.T) {
	d := NewDebounceScheduler(30 * time.Millisecond)

	var calls atomic.Int32
	d.Schedule(FileEvent, "/lib/a.mkv", func() { calls.Add(1) })
	d.Schedule(FileEvent, "/lib/b.mkv", func() { calls.Add(1) })
	d.CancelAll()

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load(), "canceled timers must not fire")
	assert.Equal(t, 0, d.Pending())

	// Scheduling after CancelAll is a no-op.
	d.Schedule(FileEvent, "/lib/c.mkv", func() { calls.Add(1) })
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(0), calls.Load())
}
