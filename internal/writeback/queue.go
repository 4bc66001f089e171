// Package writeback coalesces rapid successive writes to the same key behind
// a short delay. A later write for a key replaces the pending one; runs for
// the same key never overlap.
package writeback

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// WriteFunc performs the actual save. It should read the state it persists
// when called, not when scheduled.
type WriteFunc func(ctx context.Context) error

type Queue struct {
	delay   time.Duration
	timeout time.Duration
	logger  *slog.Logger

	mu       sync.Mutex
	pending  map[string]*pendingWrite
	keyLocks map[string]*keyLock
	inflight sync.WaitGroup
}

// keyLock serializes runs for one key. It is dropped once no run holds or
// waits on it.
type keyLock struct {
	sync.Mutex
	users int
}

type pendingWrite struct {
	timer *time.Timer
	write WriteFunc
}

func New(delay, timeout time.Duration, logger *slog.Logger) *Queue {
	if logger == nil {
		logger = slog.Default()
	}
	return &Queue{
		delay:    delay,
		timeout:  timeout,
		logger:   logger,
		pending:  make(map[string]*pendingWrite),
		keyLocks: make(map[string]*keyLock),
	}
}

// Schedule arms a write for key, superseding any write still waiting on its
// timer.
func (q *Queue) Schedule(key string, write WriteFunc) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if p, ok := q.pending[key]; ok && p.timer.Stop() {
		p.write = write
		p.timer.Reset(q.delay)
		return
	}

	p := &pendingWrite{write: write}
	q.inflight.Add(1)
	p.timer = time.AfterFunc(q.delay, func() { q.run(key, p) })
	q.pending[key] = p
}

// Cancel drops a write that has not started yet.
func (q *Queue) Cancel(key string) {
	q.mu.Lock()
	defer q.mu.Unlock()

	p, ok := q.pending[key]
	if !ok || !p.timer.Stop() {
		return
	}
	delete(q.pending, key)
	q.inflight.Done()
}

// Pending reports how many writes are waiting on their timer.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Flush starts every waiting write immediately and blocks until all writes,
// including ones already running, have finished.
func (q *Queue) Flush(ctx context.Context) error {
	q.mu.Lock()
	for key, p := range q.pending {
		if p.timer.Stop() {
			go q.run(key, p)
		}
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.inflight.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) run(key string, p *pendingWrite) {
	defer q.inflight.Done()

	q.mu.Lock()
	if q.pending[key] == p {
		delete(q.pending, key)
	}
	write := p.write
	lock := q.acquireLocked(key)
	q.mu.Unlock()

	lock.Lock()
	defer q.release(key, lock)

	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()

	if err := write(ctx); err != nil {
		q.logger.Error("write-back failed", "key", key, "error", err)
	}
}

func (q *Queue) acquireLocked(key string) *keyLock {
	lock, ok := q.keyLocks[key]
	if !ok {
		lock = &keyLock{}
		q.keyLocks[key] = lock
	}
	lock.users++
	return lock
}

func (q *Queue) release(key string, lock *keyLock) {
	lock.Unlock()

	q.mu.Lock()
	defer q.mu.Unlock()
	lock.users--
	if lock.users == 0 {
		delete(q.keyLocks, key)
	}
}
