package service

import (
	"sync"
	"testing"
	"time"
)

func TestUserLocks_SerializesSameUser(t *testing.T) {
	locks := newUserLocks()
	var (
		wg      sync.WaitGroup
		counter int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock := locks.Lock(7)
			defer unlock()
			v := counter
			time.Sleep(time.Microsecond)
			counter = v + 1
		}()
	}
	wg.Wait()

	if counter != 100 {
		t.Errorf("counter = %d, want 100", counter)
	}
	if n := locks.size(); n != 0 {
		t.Errorf("lock table holds %d entries after release", n)
	}
}

func TestUserLocks_DifferentUsersDoNotBlock(t *testing.T) {
	locks := newUserLocks()
	unlockA := locks.Lock(1)
	defer unlockA()

	acquired := make(chan struct{})
	go func() {
		unlock := locks.Lock(2)
		unlock()
		close(acquired)
	}()

	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock for user 2 blocked behind user 1")
	}
}
