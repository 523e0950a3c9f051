package lock

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestMemoryLockAcquireRelease(t *testing.T) {
	l := NewMemoryLock()
	ctx := context.Background()

	ok, err := l.Acquire(ctx, "report:p1", time.Minute, 0)
	if err != nil || !ok {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}

	if err := l.Release("report:p1"); err != nil {
		t.Fatalf("release: %v", err)
	}

	ok, err = l.Acquire(ctx, "report:p1", time.Minute, 0)
	if err != nil || !ok {
		t.Fatalf("reacquire after release: ok=%v err=%v", ok, err)
	}
}

func TestMemoryLockZeroTimeoutBusy(t *testing.T) {
	l := NewMemoryLock()
	ctx := context.Background()

	if ok, _ := l.Acquire(ctx, "report:p1", time.Minute, 0); !ok {
		t.Fatal("setup acquire failed")
	}

	start := time.Now()
	ok, err := l.Acquire(ctx, "report:p1", time.Minute, 0)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if ok {
		t.Fatal("expected busy result against a held lease")
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Fatalf("zero timeout should not retry, took %s", elapsed)
	}
}

func TestMemoryLockDifferentKeysIndependent(t *testing.T) {
	l := NewMemoryLock()
	ctx := context.Background()

	if ok, _ := l.Acquire(ctx, "report:p1", time.Minute, 0); !ok {
		t.Fatal("acquire p1 failed")
	}
	if ok, _ := l.Acquire(ctx, "report:p2", time.Minute, 0); !ok {
		t.Fatal("acquire p2 should be independent of p1")
	}
}

func TestMemoryLockExpiredLeaseReclaimable(t *testing.T) {
	l := NewMemoryLock()
	ctx := context.Background()

	if ok, _ := l.Acquire(ctx, "report:p1", 10*time.Millisecond, 0); !ok {
		t.Fatal("setup acquire failed")
	}
	time.Sleep(20 * time.Millisecond)

	ok, err := l.Acquire(ctx, "report:p1", time.Minute, 0)
	if err != nil || !ok {
		t.Fatalf("expired lease should be reclaimable: ok=%v err=%v", ok, err)
	}
}

func TestMemoryLockReleaseIdempotent(t *testing.T) {
	l := NewMemoryLock()
	if err := l.Release("report:never-held"); err != nil {
		t.Fatalf("releasing an unheld lock should not error: %v", err)
	}
}

func TestMemoryLockWaitsForRelease(t *testing.T) {
	l := NewMemoryLock()
	ctx := context.Background()

	if ok, _ := l.Acquire(ctx, "report:p1", time.Minute, 0); !ok {
		t.Fatal("setup acquire failed")
	}

	go func() {
		time.Sleep(150 * time.Millisecond)
		l.Release("report:p1")
	}()

	ok, err := l.Acquire(ctx, "report:p1", time.Minute, time.Second)
	if err != nil || !ok {
		t.Fatalf("acquire should succeed once the holder releases: ok=%v err=%v", ok, err)
	}
}

func TestMemoryLockSingleWinnerUnderContention(t *testing.T) {
	l := NewMemoryLock()
	ctx := context.Background()

	const racers = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0

	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.Acquire(ctx, "report:p1", time.Minute, 0)
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if winners != 1 {
		t.Fatalf("expected exactly one winner, got %d", winners)
	}
}

func TestMemoryLockContextCancellation(t *testing.T) {
	l := NewMemoryLock()
	ctx, cancel := context.WithCancel(context.Background())

	if ok, _ := l.Acquire(ctx, "report:p1", time.Minute, 0); !ok {
		t.Fatal("setup acquire failed")
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	_, err := l.Acquire(ctx, "report:p1", time.Minute, 5*time.Second)
	if err != context.Canceled {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
