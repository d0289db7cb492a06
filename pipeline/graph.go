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
	"fmt"
	"log/slog"
)

// ErrDuplicateStage is returned when adding a stage whose name is already in use.
var ErrDuplicateStage = errors.New("pipeline: duplicate stage name")

// ErrNilStage is returned when adding a nil stage.
var ErrNilStage = errors.New("pipeline: stage is nil")

// ErrRunaway is returned when a single publish causes more than MaxRuns stage runs.
var ErrRunaway = errors.New("pipeline: stage runs did not settle")

// Graph is a dataflow graph of stages connected by named values.
//
// Publishing a value that differs from the held one schedules every stage that lists the
// value as an input. Scheduled stages run in the order they were scheduled, and a stage
// that is already waiting to run is not scheduled twice. Values published from inside a
// stage are handled by the publish that is already draining the queue, so stages never
// run re-entrantly.
//
// A Graph is owned by a single goroutine and is not safe for concurrent use, except for
// Stats.
type Graph struct {
	config     GraphConfig
	logger     *slog.Logger
	stages     map[string]Stage
	dependents map[string][]Stage
	values     map[string]any
	queue      []Stage
	queued     map[string]bool
	draining   bool
	metrics    *GraphMetrics
}

// New creates a new Graph using functional options.
//
// Example:
//
//	g := New(
//	    WithEqualFunc(myEqualFunc),
//	    WithMaxRuns(100),
//	)
func New(opts ...GraphOption) *Graph {
	config := DefaultGraphConfig()
	for _, opt := range opts {
		opt(&config)
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Graph{
		config:     config,
		logger:     logger,
		stages:     make(map[string]Stage),
		dependents: make(map[string][]Stage),
		values:     make(map[string]any),
		queued:     make(map[string]bool),
		metrics:    NewGraphMetrics(),
	}
}

// AddStage adds a stage to the graph. Stages whose inputs already have values are not run
// until one of those inputs changes.
func (g *Graph) AddStage(stage Stage) error {
	if stage == nil {
		return ErrNilStage
	}
	if _, ok := g.stages[stage.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateStage, stage.Name())
	}
	g.stages[stage.Name()] = stage
	for _, input := range stage.Inputs() {
		g.dependents[input] = append(g.dependents[input], stage)
	}
	return nil
}

// Publish sets the named value. If it's not equal to the held value, the stages depending
// on it are run, along with any stages depending on values they publish in turn. Errors
// from stages are joined and returned once the graph settles.
func (g *Graph) Publish(ctx context.Context, name string, value any) error {
	if old, ok := g.values[name]; ok && g.config.EqualFunc(old, value) {
		g.metrics.RecordPublish(true)
		g.logger.Debug(
			"suppressed unchanged value",
			"component", "pipeline",
			"value", name,
		)
		return nil
	}
	g.metrics.RecordPublish(false)
	g.values[name] = value
	for _, stage := range g.dependents[name] {
		g.schedule(stage)
	}
	if g.draining {
		return nil
	}
	return g.drain(ctx)
}

// Value returns the held value for name.
func (g *Graph) Value(name string) (any, bool) {
	v, ok := g.values[name]
	return v, ok
}

// Stats returns the current graph statistics.
func (g *Graph) Stats() GraphStats {
	return g.metrics.Stats()
}

func (g *Graph) schedule(stage Stage) {
	if g.queued[stage.Name()] {
		return
	}
	g.queued[stage.Name()] = true
	g.queue = append(g.queue, stage)
}

func (g *Graph) drain(ctx context.Context) error {
	g.draining = true
	defer func() {
		g.draining = false
	}()
	var errs []error
	runs := 0
	for len(g.queue) > 0 {
		if err := ctx.Err(); err != nil {
			g.clearQueue()
			return errors.Join(append(errs, err)...)
		}
		if runs >= g.config.MaxRuns {
			g.clearQueue()
			return errors.Join(
				append(errs, fmt.Errorf("%w after %d runs", ErrRunaway, runs))...,
			)
		}
		stage := g.queue[0]
		g.queue = g.queue[1:]
		delete(g.queued, stage.Name())
		runs++
		g.logger.Debug(
			"running stage",
			"component", "pipeline",
			"stage", stage.Name(),
		)
		err := stage.Process(ctx, g.inputsFor(stage))
		g.metrics.RecordRun(err)
		if err != nil {
			errs = append(errs, fmt.Errorf("stage %s: %w", stage.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (g *Graph) inputsFor(stage Stage) Values {
	values := make(Values, len(stage.Inputs()))
	for _, input := range stage.Inputs() {
		if v, ok := g.values[input]; ok {
			values[input] = v
		}
	}
	return values
}

func (g *Graph) clearQueue() {
	g.queue = nil
	clear(g.queued)
}
