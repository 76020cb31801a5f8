package scraper

import (
	"sync"
	"time"
)

// workerPool bounds fetch concurrency and enforces a minimum interval
// between requests, so the listing sites see a slow, polite client.
type workerPool struct {
	semaphore   chan struct{}
	wg          sync.WaitGroup
	mu          sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

func newWorkerPool(maxWorkers int, minInterval time.Duration) *workerPool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &workerPool{
		semaphore:   make(chan struct{}, maxWorkers),
		minInterval: minInterval,
		lastRequest: time.Now().Add(-minInterval),
	}
}

// Submit enqueues a job for execution in the pool.
func (p *workerPool) Submit(job func()) {
	p.wg.Add(1)
	p.semaphore <- struct{}{}

	go func() {
		defer p.wg.Done()
		defer func() { <-p.semaphore }()

		p.enforceRateLimit()
		job()
	}()
}

// Wait blocks until all submitted jobs have completed.
func (p *workerPool) Wait() {
	p.wg.Wait()
}

func (p *workerPool) enforceRateLimit() {
	if p.minInterval <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	elapsed := time.Since(p.lastRequest)
	if elapsed < p.minInterval {
		time.Sleep(p.minInterval - elapsed)
	}
	p.lastRequest = time.Now()
}
