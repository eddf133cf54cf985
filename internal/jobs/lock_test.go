package jobs

import (
	"errors"
	"sync"
	"testing"
)

func TestLockMutualExclusion(t *testing.T) {
	l := NewLock()

	release, err := l.TryAcquire("sync")
	if err != nil {
		t.Fatalf("first acquire failed: %v", err)
	}

	_, err = l.TryAcquire("deduplicate")
	if err == nil {
		t.Fatal("second acquire should fail while sync holds the lock")
	}

	var conflict *ConflictError
	if !errors.As(err, &conflict) {
		t.Fatalf("error type = %T, want *ConflictError", err)
	}
	if conflict.Running != "sync" {
		t.Errorf("conflict names %q, want sync", conflict.Running)
	}

	release()

	release2, err := l.TryAcquire("deduplicate")
	if err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
	release2()
}

func TestLockStatus(t *testing.T) {
	l := NewLock()

	if name, running := l.Status(); running || name != "" {
		t.Fatalf("idle status = %q/%v", name, running)
	}

	release, _ := l.TryAcquire("reprocess")
	if name, running := l.Status(); !running || name != "reprocess" {
		t.Fatalf("busy status = %q/%v", name, running)
	}
	release()

	if _, running := l.Status(); running {
		t.Fatal("lock still reported running after release")
	}
}

func TestLockConcurrentAcquire(t *testing.T) {
	l := NewLock()

	const workers = 32
	var wg sync.WaitGroup
	var mu sync.Mutex
	acquired := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if release, err := l.TryAcquire("sync"); err == nil {
				mu.Lock()
				acquired++
				mu.Unlock()
				release()
			}
		}()
	}
	wg.Wait()

	if acquired == 0 {
		t.Fatal("no goroutine acquired the lock")
	}
}
