package scheduler

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestEngineStressConcurrentReminders(t *testing.T) {
	engine := NewEngine(4096)
	engine.Start()
	defer engine.Stop()

	const workers = 8
	const perWorker = 200
	total := workers * perWorker

	now := time.Now()
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := range workers {
		go func() {
			defer wg.Done()
			for i := range perWorker {
				delay := time.Duration((w+i)%50+10) * time.Millisecond
				ev := Event{
					Key:       fmt.Sprintf("%d@%d", w*perWorker+i, now.Unix()),
					Kind:      KindReminder,
					TaskID:    int64(w*perWorker + i),
					TriggerAt: now.Add(delay),
				}
				if err := engine.Schedule(ev); err != nil {
					t.Errorf("schedule failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	deadline := time.After(5 * time.Second)
	seen := make(map[int64]bool, total)
	for len(seen) < total {
		select {
		case <-deadline:
			t.Fatalf("timeout waiting events: received=%d total=%d dropped=%d", len(seen), total, engine.Dropped())
		case ev := <-engine.C():
			if seen[ev.TaskID] {
				t.Fatalf("reminder for task %d delivered twice", ev.TaskID)
			}
			seen[ev.TaskID] = true
		}
	}

	if engine.Dropped() != 0 {
		t.Fatalf("expected zero drops with active consumer, got=%d", engine.Dropped())
	}
}
