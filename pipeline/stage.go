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

// Package pipeline provides a small dataflow scheduler. Stages declare the named values
// they read, and publishing a changed value re-runs every stage that depends on it.
package pipeline

import (
	"context"
	"time"
)

// Stage represents a node in the dataflow graph.
type Stage interface {
	// Name returns the name of the stage for logging and metrics.
	Name() string
	// Inputs returns the names of the values the stage depends on.
	Inputs() []string
	// Process runs the stage with the current values of its inputs.
	Process(ctx context.Context, values Values) error
}

// StageFunc is an adapter that allows using ordinary functions as Stage implementations.
type StageFunc struct {
	name   string
	inputs []string
	fn     func(ctx context.Context, values Values) error
}

// NewStageFunc creates a new StageFunc with the given name, inputs and processing function.
func NewStageFunc(
	name string,
	inputs []string,
	fn func(ctx context.Context, values Values) error,
) *StageFunc {
	return &StageFunc{
		name:   name,
		inputs: inputs,
		fn:     fn,
	}
}

// Name returns the name of the stage.
func (s *StageFunc) Name() string {
	return s.name
}

// Inputs returns the names of the values the stage depends on.
func (s *StageFunc) Inputs() []string {
	return s.inputs
}

// Process calls the underlying function.
func (s *StageFunc) Process(ctx context.Context, values Values) error {
	return s.fn(ctx, values)
}

// Values holds the current values of a stage's inputs. Inputs that have never been
// published are missing.
type Values map[string]any

// Value returns the named value as type T. The second return value is false when the
// value is missing or has a different type.
func Value[T any](values Values, name string) (T, bool) {
	var zero T
	v, ok := values[name]
	if !ok {
		return zero, false
	}
	ret, ok := v.(T)
	if !ok {
		return zero, false
	}
	return ret, true
}

// GraphStats contains statistics about graph activity.
type GraphStats struct {
	// Publishes is the total number of values published.
	Publishes uint64
	// Suppressed is the number of publishes that were equal to the held value and
	// triggered nothing.
	Suppressed uint64
	// StageRuns is the total number of stage runs.
	StageRuns uint64
	// StageErrors is the number of stage runs that returned an error.
	StageErrors uint64
	// LastRunTime is the time the last stage finished running.
	LastRunTime time.Time
	// StartTime is when the graph was created or last reset.
	StartTime time.Time
}
