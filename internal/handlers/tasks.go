package handlers

import (
	"context"
	"sync"
)

// Tasks tracks work that outlives the request that started it, so shutdown
// can wait for it.
type Tasks struct {
	wg sync.WaitGroup
}

// Go runs fn in the background.
func (t *Tasks) Go(fn func()) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		fn()
	}()
}

// Wait blocks until every task finished or ctx is done.
func (t *Tasks) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
