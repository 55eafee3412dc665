package service

import (
	"sync"
	"testing"
)

func TestItemLocks_SerializesSameID(t *testing.T) {
	locks := newItemLocks()

	var wg sync.WaitGroup
	inside := 0
	maxInside := 0
	var mu sync.Mutex

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.lock(1)
			defer unlock()

			mu.Lock()
			inside++
			if inside > maxInside {
				maxInside = inside
			}
			mu.Unlock()

			mu.Lock()
			inside--
			mu.Unlock()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("expected at most 1 holder, saw %d", maxInside)
	}
	if locks.size() != 0 {
		t.Errorf("expected no lock entries left, got %d", locks.size())
	}
}

func TestItemLocks_IndependentIDs(t *testing.T) {
	locks := newItemLocks()

	unlockA := locks.lock(1)
	done := make(chan struct{})
	go func() {
		unlockB := locks.lock(2)
		unlockB()
		close(done)
	}()
	<-done

	if locks.size() != 1 {
		t.Errorf("expected 1 held entry, got %d", locks.size())
	}
	unlockA()
	if locks.size() != 0 {
		t.Errorf("expected entries released, got %d", locks.size())
	}
}
