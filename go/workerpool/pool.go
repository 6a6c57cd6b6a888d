package workerpool

import "sync"

// Pool is a fire-and-forget bounded pool for side work whose results nobody
// collects, e.g. async artifact writes. For task sets that need per-task
// results and cancellation, use Run.
type Pool struct {
	wg     sync.WaitGroup
	tokens chan struct{}
	closed bool
	mtx    sync.Mutex
}

// New returns a Pool running at most n functions concurrently.
func New(n int) *Pool {
	if n < 1 {
		n = 1
	}
	return &Pool{tokens: make(chan struct{}, n)}
}

// Go schedules f, blocking while n functions are already running. Panics if
// called after Wait.
func (p *Pool) Go(f func()) {
	p.mtx.Lock()
	if p.closed {
		p.mtx.Unlock()
		panic("workerpool: Go called after Wait")
	}
	p.wg.Add(1)
	p.mtx.Unlock()

	p.tokens <- struct{}{}
	go func() {
		defer func() {
			<-p.tokens
			p.wg.Done()
		}()
		f()
	}()
}

// Wait blocks until all scheduled functions finish. The pool cannot be
// reused afterward; a second Wait panics.
func (p *Pool) Wait() {
	p.mtx.Lock()
	if p.closed {
		p.mtx.Unlock()
		panic("workerpool: Wait called twice")
	}
	p.closed = true
	p.mtx.Unlock()
	p.wg.Wait()
}
