package locks

import (
	"sync"
	"testing"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	km := NewKeyedMutex()

	const workers = 50
	counter := 0

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			km.Lock("booking-1")
			counter++
			km.Unlock("booking-1")
		}()
	}
	wg.Wait()

	if counter != workers {
		t.Fatalf("expected counter %d, got %d", workers, counter)
	}
	if km.Len() != 0 {
		t.Fatalf("expected empty arena after release, got %d entries", km.Len())
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	km := NewKeyedMutex()

	km.Lock("booking-a")

	done := make(chan struct{})
	go func() {
		// Must not block on an unrelated key.
		km.Lock("booking-b")
		km.Unlock("booking-b")
		close(done)
	}()

	<-done
	km.Unlock("booking-a")

	if km.Len() != 0 {
		t.Fatalf("expected empty arena, got %d entries", km.Len())
	}
}

func TestWithLockReturnsFnError(t *testing.T) {
	km := NewKeyedMutex()

	want := errSentinel
	got := km.WithLock("booking-1", func() error { return want })
	if got != want {
		t.Fatalf("expected sentinel error, got %v", got)
	}
	if km.Len() != 0 {
		t.Fatalf("lock leaked after WithLock")
	}
}

var errSentinel = &lockErr{}

type lockErr struct{}

func (*lockErr) Error() string { return "sentinel" }
