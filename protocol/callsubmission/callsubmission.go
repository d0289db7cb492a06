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

// Package callsubmission implements the call-submission mini-protocol, which submits signed
// pallet calls to a node and reports whether they were applied
package callsubmission

import (
	"time"

	"github.com/blinklabs-io/gokitties/ledger"
	"github.com/blinklabs-io/gokitties/protocol"
)

// Protocol identifiers
const (
	ProtocolName = "call-submission"
	ProtocolId   = 6
)

var (
	stateIdle = protocol.NewState(1, "Idle")
	stateBusy = protocol.NewState(2, "Busy")
	stateDone = protocol.NewState(3, "Done")
)

// StateMap is the call-submission protocol state machine
var StateMap = protocol.StateMap{
	stateIdle: protocol.StateMapEntry{
		Agency: protocol.AgencyClient,
		Transitions: []protocol.StateTransition{
			{
				MsgType:  MessageTypeSubmitCall,
				NewState: stateBusy,
			},
			{
				MsgType:  MessageTypeDone,
				NewState: stateDone,
			},
		},
	},
	stateBusy: protocol.StateMapEntry{
		Agency: protocol.AgencyServer,
		Transitions: []protocol.StateTransition{
			{
				MsgType:  MessageTypeAcceptCall,
				NewState: stateIdle,
			},
			{
				MsgType:  MessageTypeRejectCall,
				NewState: stateIdle,
			},
		},
	},
	stateDone: protocol.StateMapEntry{
		Agency: protocol.AgencyNone,
	},
}

// CallSubmission is a wrapper object that holds the client and server instances
type CallSubmission struct {
	Client *Client
	Server *Server
}

// Config is used to configure the CallSubmission protocol instance
type Config struct {
	SubmitCallFunc SubmitCallFunc
	Timeout        time.Duration
}

// CallbackContext provides context to the callback functions
type CallbackContext struct {
	ConnectionId string
	Client       *Client
	Server       *Server
}

// SubmitCallFunc applies a signed call. Returning a *CallRejectedError (or any other error)
// sends a rejection to the client with the error as the reason
type SubmitCallFunc func(CallbackContext, ledger.SignedCall) error

// New returns a new CallSubmission object
func New(protoOptions protocol.ProtocolOptions, cfg *Config) *CallSubmission {
	c := &CallSubmission{
		Client: NewClient(protoOptions, cfg),
		Server: NewServer(protoOptions, cfg),
	}
	return c
}

// CallSubmissionOptionFunc represents a function used to modify the CallSubmission protocol
// config
type CallSubmissionOptionFunc func(*Config)

// NewConfig returns a new CallSubmission config object with the provided options
func NewConfig(options ...CallSubmissionOptionFunc) Config {
	c := Config{
		Timeout: 30 * time.Second,
	}
	// Apply provided options functions
	for _, option := range options {
		option(&c)
	}
	return c
}

// WithSubmitCallFunc specifies the callback function when a call is submitted
func WithSubmitCallFunc(submitCallFunc SubmitCallFunc) CallSubmissionOptionFunc {
	return func(c *Config) {
		c.SubmitCallFunc = submitCallFunc
	}
}

// WithTimeout specifies the timeout for a call to be accepted or rejected
func WithTimeout(timeout time.Duration) CallSubmissionOptionFunc {
	return func(c *Config) {
		c.Timeout = timeout
	}
}
