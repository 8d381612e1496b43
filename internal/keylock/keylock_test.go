package keylock

import (
	"sync"
	"testing"
)

func TestKeyLock_MutualExclusion(t *testing.T) {
	t.Parallel()

	kl := New()

	const goroutines = 32
	const iterations = 200

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < iterations; j++ {
				kl.Lock("k")
				counter++
				kl.Unlock("k")
			}
		}()
	}
	wg.Wait()

	if counter != goroutines*iterations {
		t.Fatalf("counter = %d, want %d", counter, goroutines*iterations)
	}
}

func TestKeyLock_IndependentKeys(t *testing.T) {
	t.Parallel()

	kl := New()
	kl.Lock("a")

	done := make(chan struct{})
	go func() {
		kl.Lock("b")
		kl.Unlock("b")
		close(done)
	}()

	// A held lock on "a" must not block "b".
	<-done
	kl.Unlock("a")
}

func TestKeyLock_DropsIdleEntries(t *testing.T) {
	t.Parallel()

	kl := New()
	kl.Lock("a")
	kl.Unlock("a")

	kl.mu.Lock()
	defer kl.mu.Unlock()
	if len(kl.locks) != 0 {
		t.Fatalf("lock map size = %d, want 0", len(kl.locks))
	}
}

func TestKeyLock_UnlockUnheldPanics(t *testing.T) {
	t.Parallel()

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on unlock of unheld key")
		}
	}()
	New().Unlock("missing")
}
