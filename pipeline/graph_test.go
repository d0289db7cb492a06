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
	"errors"
	"testing"

	"github.com/blinklabs-io/gokitties/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder returns a stage that records the values it was run with
func recorder(name string, inputs []string, runs *[]pipeline.Values) pipeline.Stage {
	return pipeline.NewStageFunc(
		name,
		inputs,
		func(_ context.Context, values pipeline.Values) error {
			*runs = append(*runs, values)
			return nil
		},
	)
}

func TestPublishRunsDependents(t *testing.T) {
	g := pipeline.New()
	var runsA, runsB []pipeline.Values
	require.NoError(t, g.AddStage(recorder("a", []string{"x"}, &runsA)))
	require.NoError(t, g.AddStage(recorder("b", []string{"x", "y"}, &runsB)))
	require.NoError(t, g.Publish(context.Background(), "x", 1))
	require.Len(t, runsA, 1)
	require.Len(t, runsB, 1)
	// Missing inputs are left out
	assert.Equal(t, pipeline.Values{"x": 1}, runsB[0])
	require.NoError(t, g.Publish(context.Background(), "y", "hello"))
	assert.Len(t, runsA, 1)
	require.Len(t, runsB, 2)
	assert.Equal(t, pipeline.Values{"x": 1, "y": "hello"}, runsB[1])
}

func TestPublishSuppressesEqualValues(t *testing.T) {
	g := pipeline.New()
	var runs []pipeline.Values
	require.NoError(t, g.AddStage(recorder("a", []string{"x"}, &runs)))
	ctx := context.Background()
	require.NoError(t, g.Publish(ctx, "x", []int{1, 2, 3}))
	// A structurally equal value in a different slice triggers nothing
	require.NoError(t, g.Publish(ctx, "x", []int{1, 2, 3}))
	assert.Len(t, runs, 1)
	require.NoError(t, g.Publish(ctx, "x", []int{1, 2}))
	assert.Len(t, runs, 2)
	stats := g.Stats()
	assert.Equal(t, uint64(3), stats.Publishes)
	assert.Equal(t, uint64(1), stats.Suppressed)
	assert.Equal(t, uint64(2), stats.StageRuns)
}

func TestCustomEqualFunc(t *testing.T) {
	// Never equal, so every publish triggers
	g := pipeline.New(
		pipeline.WithEqualFunc(func(a, b any) bool { return false }),
	)
	var runs []pipeline.Values
	require.NoError(t, g.AddStage(recorder("a", []string{"x"}, &runs)))
	require.NoError(t, g.Publish(context.Background(), "x", 1))
	require.NoError(t, g.Publish(context.Background(), "x", 1))
	assert.Len(t, runs, 2)
}

func TestChainSettles(t *testing.T) {
	g := pipeline.New()
	var order []string
	// double publishes 2*x as y, and sink depends on both
	require.NoError(t, g.AddStage(pipeline.NewStageFunc(
		"double",
		[]string{"x"},
		func(ctx context.Context, values pipeline.Values) error {
			order = append(order, "double")
			x, _ := pipeline.Value[int](values, "x")
			return g.Publish(ctx, "y", x*2)
		},
	)))
	var sinkRuns []pipeline.Values
	require.NoError(t, g.AddStage(pipeline.NewStageFunc(
		"sink",
		[]string{"x", "y"},
		func(_ context.Context, values pipeline.Values) error {
			order = append(order, "sink")
			sinkRuns = append(sinkRuns, values)
			return nil
		},
	)))
	require.NoError(t, g.Publish(context.Background(), "x", 2))
	// The sink was queued by x and not queued again by y
	assert.Equal(t, []string{"double", "sink"}, order)
	require.Len(t, sinkRuns, 1)
	assert.Equal(t, pipeline.Values{"x": 2, "y": 4}, sinkRuns[0])
	y, ok := g.Value("y")
	require.True(t, ok)
	assert.Equal(t, 4, y)
}

func TestSelfDependentStageReachesFixedPoint(t *testing.T) {
	g := pipeline.New()
	runs := 0
	// The stage depends on its own output, which stops changing after a few runs
	require.NoError(t, g.AddStage(pipeline.NewStageFunc(
		"clamp",
		[]string{"x", "out"},
		func(ctx context.Context, values pipeline.Values) error {
			runs++
			out, _ := pipeline.Value[int](values, "out")
			return g.Publish(ctx, "out", min(out+1, 3))
		},
	)))
	require.NoError(t, g.Publish(context.Background(), "x", true))
	out, _ := g.Value("out")
	assert.Equal(t, 3, out)
	// Three changing runs plus the one that published an equal value
	assert.Equal(t, 4, runs)
}

func TestRunaway(t *testing.T) {
	g := pipeline.New(pipeline.WithMaxRuns(10))
	require.NoError(t, g.AddStage(pipeline.NewStageFunc(
		"counter",
		[]string{"n"},
		func(ctx context.Context, values pipeline.Values) error {
			n, _ := pipeline.Value[int](values, "n")
			return g.Publish(ctx, "n", n+1)
		},
	)))
	err := g.Publish(context.Background(), "n", 0)
	require.ErrorIs(t, err, pipeline.ErrRunaway)
	// The graph is usable afterwards
	g2 := pipeline.New()
	require.NoError(t, g2.Publish(context.Background(), "n", 0))
}

func TestStageErrors(t *testing.T) {
	g := pipeline.New()
	errTest := errors.New("test error")
	var runs []pipeline.Values
	require.NoError(t, g.AddStage(pipeline.NewStageFunc(
		"fails",
		[]string{"x"},
		func(context.Context, pipeline.Values) error {
			return errTest
		},
	)))
	require.NoError(t, g.AddStage(recorder("ok", []string{"x"}, &runs)))
	err := g.Publish(context.Background(), "x", 1)
	require.ErrorIs(t, err, errTest)
	assert.Contains(t, err.Error(), "stage fails")
	// Other stages still run
	assert.Len(t, runs, 1)
	assert.Equal(t, uint64(1), g.Stats().StageErrors)
}

func TestAddStageErrors(t *testing.T) {
	g := pipeline.New()
	var runs []pipeline.Values
	require.NoError(t, g.AddStage(recorder("a", nil, &runs)))
	require.ErrorIs(t, g.AddStage(recorder("a", nil, &runs)), pipeline.ErrDuplicateStage)
	require.ErrorIs(t, g.AddStage(nil), pipeline.ErrNilStage)
}

func TestCancelledContext(t *testing.T) {
	g := pipeline.New()
	var runs []pipeline.Values
	require.NoError(t, g.AddStage(recorder("a", []string{"x"}, &runs)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := g.Publish(ctx, "x", 1)
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, runs)
	// The value is still recorded
	v, ok := g.Value("x")
	require.True(t, ok)
	assert.Equal(t, 1, v)
}

func TestValueTypeMismatch(t *testing.T) {
	values := pipeline.Values{"x": "not an int"}
	_, ok := pipeline.Value[int](values, "x")
	assert.False(t, ok)
	_, ok = pipeline.Value[int](values, "missing")
	assert.False(t, ok)
}
