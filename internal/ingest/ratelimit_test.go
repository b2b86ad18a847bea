package ingest

import (
	"sync"
	"testing"
	"time"
)

func TestWindowLimiter_AllowsUpToCap(t *testing.T) {
	l := NewWindowLimiter(60*time.Second, 100)
	for i := 0; i < 100; i++ {
		if !l.Allow("web") {
			t.Fatalf("event %d should be allowed", i+1)
		}
	}
	if l.Allow("web") {
		t.Error("101st event in the window should be rejected")
	}
}

func TestWindowLimiter_NextWindowStartsFresh(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := NewWindowLimiter(60*time.Second, 100)
	l.nowF = func() time.Time { return now }

	for i := 0; i < 101; i++ {
		l.Allow("web")
	}
	if l.Allow("web") {
		t.Fatal("over-cap event should be rejected")
	}

	now = now.Add(60 * time.Second)
	if !l.Allow("web") {
		t.Error("first event of the next window should be accepted")
	}
}

func TestWindowLimiter_ProductsAreIndependent(t *testing.T) {
	l := NewWindowLimiter(60*time.Second, 2)
	l.Allow("a")
	l.Allow("a")
	if l.Allow("a") {
		t.Error("product a should be over its cap")
	}
	if !l.Allow("b") {
		t.Error("product b should be unaffected by product a's cap")
	}
}

func TestWindowLimiter_ConcurrentIncrementsDoNotUndercount(t *testing.T) {
	const workers = 20
	const perWorker = 10
	l := NewWindowLimiter(time.Minute, workers*perWorker)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				l.Allow("web")
			}
		}()
	}
	wg.Wait()

	// All cap slots are consumed; one more must be rejected.
	if l.Allow("web") {
		t.Error("limiter undercounted under concurrent increments")
	}
}
