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
	"sync"
	"sync/atomic"
	"time"
)

// GraphMetrics tracks metrics for a graph.
// Uses atomic counters so Stats can be called from any goroutine.
type GraphMetrics struct {
	publishes   atomic.Uint64
	suppressed  atomic.Uint64
	stageRuns   atomic.Uint64
	stageErrors atomic.Uint64

	mu          sync.RWMutex
	lastRunTime time.Time
	startTime   time.Time
}

// NewGraphMetrics creates a new GraphMetrics.
func NewGraphMetrics() *GraphMetrics {
	return &GraphMetrics{
		startTime: time.Now(),
	}
}

// RecordPublish records a published value and whether it was suppressed.
func (m *GraphMetrics) RecordPublish(suppressed bool) {
	m.publishes.Add(1)
	if suppressed {
		m.suppressed.Add(1)
	}
}

// RecordRun records a stage run.
func (m *GraphMetrics) RecordRun(err error) {
	m.stageRuns.Add(1)
	if err != nil {
		m.stageErrors.Add(1)
	}
	m.mu.Lock()
	m.lastRunTime = time.Now()
	m.mu.Unlock()
}

// Stats returns a snapshot of the current metrics.
func (m *GraphMetrics) Stats() GraphStats {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return GraphStats{
		Publishes:   m.publishes.Load(),
		Suppressed:  m.suppressed.Load(),
		StageRuns:   m.stageRuns.Load(),
		StageErrors: m.stageErrors.Load(),
		LastRunTime: m.lastRunTime,
		StartTime:   m.startTime,
	}
}

// Reset resets all metrics.
func (m *GraphMetrics) Reset() {
	m.publishes.Store(0)
	m.suppressed.Store(0)
	m.stageRuns.Store(0)
	m.stageErrors.Store(0)

	m.mu.Lock()
	m.lastRunTime = time.Time{}
	m.startTime = time.Now()
	m.mu.Unlock()
}
