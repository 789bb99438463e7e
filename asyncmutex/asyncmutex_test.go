package asyncmutex

import (
	"context"
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

func TestLockUncontended(t *testing.T) {
	var m Mutex
	release, err := m.Lock(context.Background())
	if err != nil {
		t.Fatalf("Lock() error = %v", err)
	}
	release()
}

func TestTryLock(t *testing.T) {
	var m Mutex
	release, ok := m.TryLock()
	if !ok {
		t.Fatal("TryLock() on free mutex = false")
	}
	if _, ok := m.TryLock(); ok {
		t.Fatal("TryLock() on held mutex = true")
	}
	release()
	release2, ok := m.TryLock()
	if !ok {
		t.Fatal("TryLock() after release = false")
	}
	release2()
}

func TestFIFOOrdering(t *testing.T) {
	var m Mutex
	hold, err := m.Lock(context.Background())
	if err != nil {
		t.Fatalf("initial Lock() error = %v", err)
	}

	const n = 5
	var mu sync.Mutex
	var order []int
	var g errgroup.Group

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			release, err := m.Lock(context.Background())
			if err != nil {
				return err
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			release()
			return nil
		})
		// Give the goroutine time to enqueue before starting the next one,
		// so enqueue order is deterministic.
		time.Sleep(15 * time.Millisecond)
	}

	hold()

	if err := g.Wait(); err != nil {
		t.Fatalf("g.Wait() error = %v", err)
	}

	for i, v := range order {
		if v != i {
			t.Fatalf("acquisition order = %v, want 0..%d in order", order, n-1)
		}
	}
}

func TestCancelWhileQueued(t *testing.T) {
	var m Mutex
	hold, err := m.Lock(context.Background())
	if err != nil {
		t.Fatalf("initial Lock() error = %v", err)
	}
	defer hold()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := m.Lock(ctx)
		done <- err
	}()

	time.Sleep(15 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Fatal("expected error from cancelled Lock()")
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled Lock() never returned")
	}
}

func TestCancelPassesWakeToNextWaiter(t *testing.T) {
	var m Mutex
	hold, err := m.Lock(context.Background())
	if err != nil {
		t.Fatalf("initial Lock() error = %v", err)
	}

	ctx1, cancel1 := context.WithCancel(context.Background())
	firstDone := make(chan error, 1)
	go func() {
		_, err := m.Lock(ctx1)
		firstDone <- err
	}()
	time.Sleep(10 * time.Millisecond)

	secondAcquired := make(chan struct{})
	go func() {
		release, err := m.Lock(context.Background())
		if err != nil {
			return
		}
		close(secondAcquired)
		release()
	}()
	time.Sleep(10 * time.Millisecond)

	// Cancel the first waiter, then release the held lock: ownership must
	// still reach the second waiter even though the first is no longer
	// interested.
	cancel1()
	hold()

	select {
	case <-secondAcquired:
	case <-time.After(time.Second):
		t.Fatal("second waiter never acquired the mutex after first cancelled")
	}

	if err := <-firstDone; err == nil {
		t.Fatal("expected error for cancelled first waiter")
	}
}
