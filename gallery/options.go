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

package gallery

import (
	"log/slog"
	"time"

	"github.com/blinklabs-io/gokitties/ledger"
	"github.com/blinklabs-io/gokitties/pipeline"
)

// Config holds configuration for an Orchestrator
type Config struct {
	Logger *slog.Logger
	// PollInterval re-reads everything periodically when non-zero
	PollInterval time.Duration
	// DiscardStale drops payload and owner responses issued for an older count, and count
	// responses from a replaced source. When false the last response to arrive wins
	DiscardStale bool
	// Workers limits the number of reads in flight
	Workers    int
	SS58Prefix uint8
	EqualFunc  pipeline.EqualFunc
	Submitter  Submitter
	NonceFunc  func() uint64
}

// OrchestratorOptionFunc is a functional option for configuring an Orchestrator
type OrchestratorOptionFunc func(*Config)

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		DiscardStale: true,
		Workers:      4,
		SS58Prefix:   ledger.SS58PrefixGeneric,
		NonceFunc: func() uint64 {
			return uint64(time.Now().UnixNano()) // #nosec G115
		},
	}
}

// WithLogger specifies the logger
func WithLogger(logger *slog.Logger) OrchestratorOptionFunc {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithPollInterval specifies how often to re-read the count, DNA and owners
func WithPollInterval(interval time.Duration) OrchestratorOptionFunc {
	return func(c *Config) {
		c.PollInterval = interval
	}
}

// WithDiscardStale specifies whether stale responses are dropped
func WithDiscardStale(discardStale bool) OrchestratorOptionFunc {
	return func(c *Config) {
		c.DiscardStale = discardStale
	}
}

// WithWorkers specifies the number of reads that may be in flight at once
func WithWorkers(workers int) OrchestratorOptionFunc {
	return func(c *Config) {
		if workers > 0 {
			c.Workers = workers
		}
	}
}

// WithSS58Prefix specifies the network prefix used to format owner addresses
func WithSS58Prefix(prefix uint8) OrchestratorOptionFunc {
	return func(c *Config) {
		c.SS58Prefix = prefix
	}
}

// WithEqualFunc overrides the equality used to suppress unchanged results
func WithEqualFunc(fn pipeline.EqualFunc) OrchestratorOptionFunc {
	return func(c *Config) {
		c.EqualFunc = fn
	}
}

// WithSubmitter specifies where calls are submitted. By default the data source is used
// when it also implements Submitter
func WithSubmitter(submitter Submitter) OrchestratorOptionFunc {
	return func(c *Config) {
		c.Submitter = submitter
	}
}

// WithNonceFunc specifies how call nonces are generated
func WithNonceFunc(nonceFunc func() uint64) OrchestratorOptionFunc {
	return func(c *Config) {
		if nonceFunc != nil {
			c.NonceFunc = nonceFunc
		}
	}
}
