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

// Package kittyquery implements the kitty-query mini-protocol, which reads the kitty count,
// kitty DNA, owners and asking prices from a node
package kittyquery

import (
	"time"

	"github.com/blinklabs-io/gokitties/ledger"
	"github.com/blinklabs-io/gokitties/protocol"
)

// Protocol identifiers
const (
	ProtocolName = "kitty-query"
	ProtocolId   = 7
)

// ProtocolVersionPrices is the first protocol version supporting GetPrices
const ProtocolVersionPrices = 2

var (
	stateIdle     = protocol.NewState(1, "Idle")
	stateQuerying = protocol.NewState(2, "Querying")
	stateDone     = protocol.NewState(3, "Done")
)

// StateMap is the kitty-query protocol state machine
var StateMap = protocol.StateMap{
	stateIdle: protocol.StateMapEntry{
		Agency: protocol.AgencyClient,
		Transitions: []protocol.StateTransition{
			{
				MsgType:  MessageTypeCount,
				NewState: stateQuerying,
			},
			{
				MsgType:  MessageTypeGetKitties,
				NewState: stateQuerying,
			},
			{
				MsgType:  MessageTypeGetOwners,
				NewState: stateQuerying,
			},
			{
				MsgType:  MessageTypeGetPrices,
				NewState: stateQuerying,
			},
			{
				MsgType:  MessageTypeDone,
				NewState: stateDone,
			},
		},
	},
	stateQuerying: protocol.StateMapEntry{
		Agency: protocol.AgencyServer,
		Transitions: []protocol.StateTransition{
			{
				MsgType:  MessageTypeResult,
				NewState: stateIdle,
			},
		},
	},
	stateDone: protocol.StateMapEntry{
		Agency: protocol.AgencyNone,
	},
}

// KittyQuery is a wrapper object that holds the client and server instances
type KittyQuery struct {
	Client *Client
	Server *Server
}

// Config is used to configure the KittyQuery protocol instance
type Config struct {
	CountFunc      CountFunc
	GetKittiesFunc GetKittiesFunc
	GetOwnersFunc  GetOwnersFunc
	GetPricesFunc  GetPricesFunc
	DoneFunc       DoneFunc
	QueryTimeout   time.Duration
}

// CallbackContext provides context to the callback functions
type CallbackContext struct {
	ConnectionId string
	Client       *Client
	Server       *Server
}

// Callback function types
type (
	CountFunc      func(CallbackContext) (uint32, error)
	GetKittiesFunc func(CallbackContext, []ledger.KittyIndex) ([]ledger.Option[ledger.Dna], error)
	GetOwnersFunc  func(CallbackContext, []ledger.KittyIndex) ([]ledger.Option[ledger.AccountId], error)
	GetPricesFunc  func(CallbackContext, []ledger.KittyIndex) ([]ledger.Option[ledger.Balance], error)
	DoneFunc       func(CallbackContext) error
)

// New returns a new KittyQuery object
func New(protoOptions protocol.ProtocolOptions, cfg *Config) *KittyQuery {
	k := &KittyQuery{
		Client: NewClient(protoOptions, cfg),
		Server: NewServer(protoOptions, cfg),
	}
	return k
}

// KittyQueryOptionFunc represents a function used to modify the KittyQuery protocol config
type KittyQueryOptionFunc func(*Config)

// NewConfig returns a new KittyQuery config object with the provided options
func NewConfig(options ...KittyQueryOptionFunc) Config {
	c := Config{
		QueryTimeout: 30 * time.Second,
	}
	// Apply provided options functions
	for _, option := range options {
		option(&c)
	}
	return c
}

// WithCountFunc specifies the Count callback function
func WithCountFunc(countFunc CountFunc) KittyQueryOptionFunc {
	return func(c *Config) {
		c.CountFunc = countFunc
	}
}

// WithGetKittiesFunc specifies the GetKitties callback function
func WithGetKittiesFunc(getKittiesFunc GetKittiesFunc) KittyQueryOptionFunc {
	return func(c *Config) {
		c.GetKittiesFunc = getKittiesFunc
	}
}

// WithGetOwnersFunc specifies the GetOwners callback function
func WithGetOwnersFunc(getOwnersFunc GetOwnersFunc) KittyQueryOptionFunc {
	return func(c *Config) {
		c.GetOwnersFunc = getOwnersFunc
	}
}

// WithGetPricesFunc specifies the GetPrices callback function
func WithGetPricesFunc(getPricesFunc GetPricesFunc) KittyQueryOptionFunc {
	return func(c *Config) {
		c.GetPricesFunc = getPricesFunc
	}
}

// WithDoneFunc specifies the Done callback function
func WithDoneFunc(doneFunc DoneFunc) KittyQueryOptionFunc {
	return func(c *Config) {
		c.DoneFunc = doneFunc
	}
}

// WithQueryTimeout specifies the timeout for a query to be answered
func WithQueryTimeout(timeout time.Duration) KittyQueryOptionFunc {
	return func(c *Config) {
		c.QueryTimeout = timeout
	}
}
