package app

import (
	"sync"
	"time"
)

// Scheduler arms the session's periodic tick and one-shot timeouts.
// Both methods return a stop function that is safe to call more than once.
type Scheduler interface {
	Every(interval time.Duration, fn func()) (stop func())
	After(delay time.Duration, fn func()) (stop func())
}

// SystemScheduler runs tasks on the wall clock.
type SystemScheduler struct{}

func (SystemScheduler) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				fn()
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

func (SystemScheduler) After(delay time.Duration, fn func()) func() {
	t := time.AfterFunc(delay, fn)
	return func() {
		t.Stop()
	}
}
