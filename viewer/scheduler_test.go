package viewer

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestCronSchedulerRunsAndStops(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping cron timing test in short mode")
	}

	var runs atomic.Int32
	ticked := make(chan struct{}, 10)
	cancel := NewCronScheduler(testLogger()).Every(time.Second, func() {
		runs.Add(1)
		ticked <- struct{}{}
	})

	select {
	case <-ticked:
	case <-time.After(3 * time.Second):
		t.Fatal("job never ran")
	}

	cancel()
	cancel()
	after := runs.Load()
	time.Sleep(1500 * time.Millisecond)
	if runs.Load() != after {
		t.Errorf("job ran %d more times after cancel", runs.Load()-after)
	}
}
