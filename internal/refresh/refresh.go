package refresh

import (
	"context"
	"sync"
	"time"
)

// Job identifies one unit of background work. Jobs with the same Key are
// coalesced while one is queued or running.
type Job struct {
	Key    string
	Reason string
}

type Refresher struct {
	ch      chan Job
	mu      sync.RWMutex // guards closed against sends racing Close
	closed  bool
	inFly   sync.Map // key -> struct{}
	timeout time.Duration
	wg      sync.WaitGroup
	Do      func(ctx context.Context, j Job)
}

// New starts workerCount goroutines that run do for each accepted job with a
// per-job timeout.
func New(capacity int, workerCount int, timeout time.Duration, do func(ctx context.Context, j Job)) *Refresher {
	if capacity <= 0 {
		capacity = 256
	}
	if workerCount <= 0 {
		workerCount = 2
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	r := &Refresher{ch: make(chan Job, capacity), timeout: timeout, Do: do}
	for i := 0; i < workerCount; i++ {
		r.wg.Add(1)
		go r.worker()
	}
	return r
}

// Enqueue reports whether the job was accepted. It returns false when the key
// is already in flight, the queue is saturated or the Refresher is closed.
func (r *Refresher) Enqueue(j Job) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return false
	}
	if _, exists := r.inFly.LoadOrStore(j.Key, struct{}{}); exists {
		return false
	}
	select {
	case r.ch <- j:
		return true
	default:
		r.inFly.Delete(j.Key)
		return false
	}
}

// Close stops accepting work and waits for queued jobs to finish. Later
// Enqueue calls are rejected. Close is idempotent.
func (r *Refresher) Close() {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.ch)
	}
	r.mu.Unlock()
	r.wg.Wait()
}

func (r *Refresher) worker() {
	defer r.wg.Done()
	for j := range r.ch {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		func() {
			defer func() {
				r.inFly.Delete(j.Key)
				cancel()
			}()
			if r.Do != nil {
				r.Do(ctx, j)
			}
		}()
	}
}
