package catalog

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLockSet_SerializesSameTenant(t *testing.T) {
	l := newLockSet()
	unlock := l.Lock("T1")

	acquired := make(chan struct{})
	go func() {
		release := l.Lock("T1")
		close(acquired)
		release()
	}()

	select {
	case <-acquired:
		t.Fatal("second lock acquired while first is held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second lock never acquired")
	}
}

func TestLockSet_IndependentTenants(t *testing.T) {
	l := newLockSet()
	unlockA := l.Lock("A")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		l.Lock("B")()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock on B blocked by A")
	}
}

func TestLockSet_ReleasesEntries(t *testing.T) {
	l := newLockSet()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.Lock("T1")()
		}()
	}
	wg.Wait()
	assert.Equal(t, 0, l.size())
}
