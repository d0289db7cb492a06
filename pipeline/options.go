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
	"log/slog"
	"reflect"
)

// DefaultMaxRuns is the default limit of stage runs caused by a single publish. Hitting
// it means the stages keep producing different values and never settle.
const DefaultMaxRuns = 1000

// EqualFunc reports whether two published values are equal.
type EqualFunc func(a, b any) bool

// GraphConfig holds configuration for a Graph.
type GraphConfig struct {
	// EqualFunc decides whether a published value differs from the held one.
	// Default is reflect.DeepEqual.
	EqualFunc EqualFunc
	// MaxRuns limits the stage runs caused by a single publish.
	MaxRuns int
	// Logger is used for debug logging of stage runs.
	Logger *slog.Logger
}

// DefaultGraphConfig returns a GraphConfig with sensible defaults.
func DefaultGraphConfig() GraphConfig {
	return GraphConfig{
		EqualFunc: reflect.DeepEqual,
		MaxRuns:   DefaultMaxRuns,
	}
}

// GraphOption is a functional option for configuring a Graph.
type GraphOption func(*GraphConfig)

// WithConfig applies a complete GraphConfig, replacing all default values.
//
// Note: Options applied after WithConfig will still override the config values.
func WithConfig(config GraphConfig) GraphOption {
	return func(c *GraphConfig) {
		*c = config
	}
}

// WithEqualFunc sets the function used for value-equality suppression.
func WithEqualFunc(fn EqualFunc) GraphOption {
	return func(c *GraphConfig) {
		if fn != nil {
			c.EqualFunc = fn
		}
	}
}

// WithMaxRuns sets the limit of stage runs caused by a single publish.
func WithMaxRuns(n int) GraphOption {
	return func(c *GraphConfig) {
		if n > 0 {
			c.MaxRuns = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) GraphOption {
	return func(c *GraphConfig) {
		c.Logger = logger
	}
}
