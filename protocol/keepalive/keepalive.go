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

// Package keepalive implements the keep-alive mini-protocol, which is used to detect and
// maintain liveness of a connection to a node
package keepalive

import (
	"time"

	"github.com/blinklabs-io/gokitties/protocol"
)

const (
	ProtocolName        = "keep-alive"
	ProtocolId   uint16 = 8
	// DefaultKeepAlivePeriod is the default interval between keep-alive probes
	DefaultKeepAlivePeriod = 30 * time.Second
	// DefaultKeepAliveTimeout is the default timeout for keep-alive responses
	DefaultKeepAliveTimeout = 10 * time.Second
)

// ClientTimeout is the maximum time the server waits for the next ping once the client
// has started pinging
const ClientTimeout = 90 * time.Second

var (
	StateClient = protocol.NewState(1, "Client")
	StateServer = protocol.NewState(2, "Server")
	StateDone   = protocol.NewState(3, "Done")
)

// StateMap is the keep-alive protocol state machine
var StateMap = protocol.StateMap{
	StateClient: protocol.StateMapEntry{
		Agency:  protocol.AgencyClient,
		Timeout: ClientTimeout,
		Transitions: []protocol.StateTransition{
			{
				MsgType:  MessageTypeKeepAlive,
				NewState: StateServer,
			},
			{
				MsgType:  MessageTypeDone,
				NewState: StateDone,
			},
		},
	},
	StateServer: protocol.StateMapEntry{
		Agency:  protocol.AgencyServer,
		Timeout: DefaultKeepAliveTimeout,
		Transitions: []protocol.StateTransition{
			{
				MsgType:  MessageTypeKeepAliveResponse,
				NewState: StateClient,
			},
		},
	},
	StateDone: protocol.StateMapEntry{
		Agency: protocol.AgencyNone,
	},
}

// KeepAlive is a wrapper object that holds the client and server instances
type KeepAlive struct {
	Client *Client
	Server *Server
}

// Config is used to configure the KeepAlive protocol instance
type Config struct {
	KeepAliveFunc         KeepAliveFunc
	KeepAliveResponseFunc KeepAliveResponseFunc
	DoneFunc              DoneFunc
	Timeout               time.Duration
	Period                time.Duration
	Cookie                uint16
}

// CallbackContext provides context to the callback functions
type CallbackContext struct {
	ConnectionId string
	Client       *Client
	Server       *Server
}

// Callback function types
type (
	KeepAliveFunc         func(CallbackContext, uint16) error
	KeepAliveResponseFunc func(CallbackContext, uint16) error
	DoneFunc              func(CallbackContext) error
)

// New returns a new KeepAlive object
func New(protoOptions protocol.ProtocolOptions, cfg *Config) *KeepAlive {
	k := &KeepAlive{
		Client: NewClient(protoOptions, cfg),
		Server: NewServer(protoOptions, cfg),
	}
	return k
}

// KeepAliveOptionFunc represents a function used to modify the KeepAlive protocol config
type KeepAliveOptionFunc func(*Config)

// NewConfig returns a new KeepAlive config object with the provided options
func NewConfig(options ...KeepAliveOptionFunc) Config {
	c := Config{
		Period:  DefaultKeepAlivePeriod,
		Timeout: DefaultKeepAliveTimeout,
	}
	// Apply provided options functions
	for _, option := range options {
		option(&c)
	}
	return c
}

// WithKeepAliveFunc specifies the callback for a ping received by the server. The
// callback replaces the automatic response
func WithKeepAliveFunc(keepAliveFunc KeepAliveFunc) KeepAliveOptionFunc {
	return func(c *Config) {
		c.KeepAliveFunc = keepAliveFunc
	}
}

// WithKeepAliveResponseFunc specifies the callback for a response received by the client
func WithKeepAliveResponseFunc(
	keepAliveResponseFunc KeepAliveResponseFunc,
) KeepAliveOptionFunc {
	return func(c *Config) {
		c.KeepAliveResponseFunc = keepAliveResponseFunc
	}
}

// WithDoneFunc specifies the Done callback function
func WithDoneFunc(doneFunc DoneFunc) KeepAliveOptionFunc {
	return func(c *Config) {
		c.DoneFunc = doneFunc
	}
}

// WithTimeout specifies how long the client waits for a response
func WithTimeout(timeout time.Duration) KeepAliveOptionFunc {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// WithPeriod specifies the interval between pings
func WithPeriod(period time.Duration) KeepAliveOptionFunc {
	return func(c *Config) {
		c.Period = period
	}
}

// WithCookie specifies the cookie sent with each ping
func WithCookie(cookie uint16) KeepAliveOptionFunc {
	return func(c *Config) {
		c.Cookie = cookie
	}
}
