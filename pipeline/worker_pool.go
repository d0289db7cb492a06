// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
)

// ErrPoolStopped is returned when submitting to a stopped worker pool.
var ErrPoolStopped = errors.New("pipeline: worker pool is stopped")

// ErrPoolNotStarted is returned when submitting to a worker pool that hasn't been started.
var ErrPoolNotStarted = errors.New("pipeline: worker pool not started")

// Task is a unit of work run by a WorkerPool. The context is cancelled when the pool stops.
type Task func(ctx context.Context)

// WorkerPoolConfig holds configuration for creating a WorkerPool.
type WorkerPoolConfig struct {
	// NumWorkers is the number of parallel workers; defaults to 1 if <= 0.
	NumWorkers int
	// QueueSize is the number of tasks that can wait for a free worker.
	QueueSize int
}

// WorkerPool runs submitted tasks on a fixed number of goroutines.
type WorkerPool struct {
	numWorkers int
	tasks      chan Task
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	started    atomic.Bool
	stopped    atomic.Bool
	inFlight   atomic.Int64
	mu         sync.Mutex   // protects Start/Stop
	submitMu   sync.RWMutex // protects Submit against concurrent Stop
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(config WorkerPoolConfig) *WorkerPool {
	numWorkers := config.NumWorkers
	if numWorkers <= 0 {
		numWorkers = 1
	}
	queueSize := max(config.QueueSize, 0)
	return &WorkerPool{
		numWorkers: numWorkers,
		tasks:      make(chan Task, queueSize),
	}
}

// Start starts the workers. This method is idempotent.
func (p *WorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped.Load() {
		return ErrPoolStopped
	}
	if p.started.Load() {
		return nil
	}
	p.ctx, p.cancel = context.WithCancel(ctx)
	for range p.numWorkers {
		p.wg.Add(1)
		go p.worker(p.ctx) //nolint:contextcheck
	}
	p.started.Store(true)
	return nil
}

// Submit queues a task. It blocks while the queue is full, until ctx is done or the pool
// stops.
func (p *WorkerPool) Submit(ctx context.Context, task Task) error {
	p.submitMu.RLock()
	defer p.submitMu.RUnlock()
	if p.stopped.Load() {
		return ErrPoolStopped
	}
	if !p.started.Load() {
		return ErrPoolNotStarted
	}
	select {
	case p.tasks <- task:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-p.ctx.Done():
		return ErrPoolStopped
	}
}

// TrySubmit queues a task if a worker or queue slot is free, and reports whether it did.
// It never blocks.
func (p *WorkerPool) TrySubmit(task Task) bool {
	p.submitMu.RLock()
	defer p.submitMu.RUnlock()
	if p.stopped.Load() || !p.started.Load() {
		return false
	}
	select {
	case p.tasks <- task:
		return true
	default:
		return false
	}
}

// InFlight returns the number of tasks currently running.
func (p *WorkerPool) InFlight() int64 {
	return p.inFlight.Load()
}

// Stop cancels running tasks and waits for all workers to exit. Queued tasks that have
// not started are dropped.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped.Swap(true) {
		return
	}
	if p.cancel != nil {
		p.cancel()
	}
	// Wait for in-progress Submit calls to notice the stop
	p.submitMu.Lock()
	p.submitMu.Unlock() //nolint:staticcheck
	p.wg.Wait()
}

func (p *WorkerPool) worker(ctx context.Context) {
	defer p.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case task := <-p.tasks:
			p.inFlight.Add(1)
			task(ctx)
			p.inFlight.Add(-1)
		}
	}
}
