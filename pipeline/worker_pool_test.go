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

package pipeline_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/gokitties/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestWorkerPoolRunsTasks(t *testing.T) {
	defer goleak.VerifyNone(t)
	pool := pipeline.NewWorkerPool(pipeline.WorkerPoolConfig{NumWorkers: 3, QueueSize: 10})
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop()
	var count atomic.Int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		require.NoError(t, pool.Submit(context.Background(), func(context.Context) {
			defer wg.Done()
			count.Add(1)
		}))
	}
	wg.Wait()
	assert.Equal(t, int32(20), count.Load())
}

func TestWorkerPoolNotStarted(t *testing.T) {
	pool := pipeline.NewWorkerPool(pipeline.WorkerPoolConfig{})
	err := pool.Submit(context.Background(), func(context.Context) {})
	require.ErrorIs(t, err, pipeline.ErrPoolNotStarted)
}

func TestWorkerPoolStopCancelsTasks(t *testing.T) {
	defer goleak.VerifyNone(t)
	pool := pipeline.NewWorkerPool(pipeline.WorkerPoolConfig{NumWorkers: 1})
	require.NoError(t, pool.Start(context.Background()))
	running := make(chan struct{})
	cancelled := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func(ctx context.Context) {
		close(running)
		<-ctx.Done()
		close(cancelled)
	}))
	<-running
	assert.Equal(t, int64(1), pool.InFlight())
	pool.Stop()
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("task was not cancelled")
	}
	err := pool.Submit(context.Background(), func(context.Context) {})
	require.ErrorIs(t, err, pipeline.ErrPoolStopped)
	require.ErrorIs(t, pool.Start(context.Background()), pipeline.ErrPoolStopped)
}

func TestWorkerPoolSubmitBlocksUntilContextDone(t *testing.T) {
	defer goleak.VerifyNone(t)
	pool := pipeline.NewWorkerPool(pipeline.WorkerPoolConfig{NumWorkers: 1})
	require.NoError(t, pool.Start(context.Background()))
	defer pool.Stop()
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, pool.Submit(context.Background(), func(context.Context) {
		close(started)
		<-release
	}))
	<-started
	// The only worker is busy and there is no queue
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := pool.Submit(ctx, func(context.Context) {})
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, pool.TrySubmit(func(context.Context) {}))
	close(release)
}
