package metrics

import (
	"sync"
	"testing"
)

func TestInMemoryCounters(t *testing.T) {
	m := NewInMemory()

	m.IncPaperCreated()
	m.IncPaperCreated()
	m.IncProgressLogged()
	m.IncWebhookFailed()
	m.SetActivityQueueDepth(42)

	snap := m.Snapshot()
	if snap.PapersCreated != 2 {
		t.Errorf("PapersCreated = %d, want 2", snap.PapersCreated)
	}
	if snap.ProgressLogged != 1 {
		t.Errorf("ProgressLogged = %d, want 1", snap.ProgressLogged)
	}
	if snap.WebhooksFailed != 1 {
		t.Errorf("WebhooksFailed = %d, want 1", snap.WebhooksFailed)
	}
	if snap.ActivityQueueDepth != 42 {
		t.Errorf("ActivityQueueDepth = %d, want 42", snap.ActivityQueueDepth)
	}
}

func TestInMemoryConcurrent(t *testing.T) {
	m := NewInMemory()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				m.IncProgressLogged()
			}
		}()
	}
	wg.Wait()

	if got := m.Snapshot().ProgressLogged; got != 5000 {
		t.Errorf("ProgressLogged = %d, want 5000", got)
	}
}
