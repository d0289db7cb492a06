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

package callsubmission

import (
	"context"
	"fmt"
	"sync"

	"github.com/blinklabs-io/gokitties/ledger"
	"github.com/blinklabs-io/gokitties/protocol"
)

type submitResult struct {
	hash ledger.Blake2b256
	err  error
}

// Client implements the CallSubmission client
type Client struct {
	*protocol.Protocol
	config           *Config
	callbackContext  CallbackContext
	busyMutex        sync.Mutex
	submitResultChan chan submitResult
	onceStart        sync.Once
	onceStop         sync.Once
}

// NewClient returns a new CallSubmission client object
func NewClient(protoOptions protocol.ProtocolOptions, cfg *Config) *Client {
	if cfg == nil {
		tmpCfg := NewConfig()
		cfg = &tmpCfg
	}
	c := &Client{
		config:           cfg,
		submitResultChan: make(chan submitResult),
	}
	c.callbackContext = CallbackContext{
		Client:       c,
		ConnectionId: protoOptions.ConnectionId,
	}
	// Update state map with timeout
	stateMap := StateMap.Copy()
	if entry, ok := stateMap[stateBusy]; ok {
		entry.Timeout = c.config.Timeout
		stateMap[stateBusy] = entry
	}
	// Configure underlying Protocol
	protoConfig := protocol.ProtocolConfig{
		Name:                ProtocolName,
		ProtocolId:          ProtocolId,
		ConnectionId:        protoOptions.ConnectionId,
		Muxer:               protoOptions.Muxer,
		Logger:              protoOptions.Logger,
		ErrorChan:           protoOptions.ErrorChan,
		Role:                protocol.ProtocolRoleClient,
		MessageHandlerFunc:  c.messageHandler,
		MessageFromCborFunc: NewMsgFromCbor,
		StateMap:            stateMap,
		InitialState:        stateIdle,
	}
	c.Protocol = protocol.New(protoConfig)
	return c
}

func (c *Client) Start() {
	c.onceStart.Do(func() {
		c.Protocol.Logger().
			Debug("starting client protocol",
				"component", "network",
				"protocol", ProtocolName,
				"connection_id", c.callbackContext.ConnectionId,
			)
		c.Protocol.Start()
	})
}

// Stop transitions the protocol to the Done state. The Done message is only sent when no
// submission is outstanding
func (c *Client) Stop() error {
	var err error
	c.onceStop.Do(func() {
		c.Protocol.Logger().
			Debug("stopping client protocol",
				"component", "network",
				"protocol", ProtocolName,
				"connection_id", c.callbackContext.ConnectionId,
			)
		if c.busyMutex.TryLock() {
			msg := NewMsgDone()
			err = c.SendMessage(msg)
			c.busyMutex.Unlock()
		}
		c.Protocol.Stop()
	})
	return err
}

// SubmitCall submits a signed call and waits for the node to accept or reject it. On
// acceptance the hash of the call is returned. A rejection is returned as a
// *CallRejectedError
func (c *Client) SubmitCall(
	ctx context.Context,
	signedCall ledger.SignedCall,
) (ledger.Blake2b256, error) {
	c.Protocol.Logger().
		Debug(fmt.Sprintf("calling SubmitCall(call: %s)", signedCall.Call),
			"component", "network",
			"protocol", ProtocolName,
			"role", "client",
			"connection_id", c.callbackContext.ConnectionId,
		)
	c.busyMutex.Lock()
	msg := NewMsgSubmitCall(signedCall)
	if err := c.SendMessage(msg); err != nil {
		c.busyMutex.Unlock()
		return ledger.Blake2b256{}, err
	}
	select {
	case <-ctx.Done():
		// The server still owes us an answer, so keep the client busy until it arrives
		go c.discardResult()
		return ledger.Blake2b256{}, ctx.Err()
	case <-c.DoneChan():
		c.busyMutex.Unlock()
		return ledger.Blake2b256{}, protocol.ErrProtocolShuttingDown
	case result := <-c.submitResultChan:
		c.busyMutex.Unlock()
		return result.hash, result.err
	}
}

func (c *Client) discardResult() {
	defer c.busyMutex.Unlock()
	select {
	case <-c.DoneChan():
	case <-c.submitResultChan:
	}
}

func (c *Client) messageHandler(msg protocol.Message) error {
	var err error
	switch msg.Type() {
	case MessageTypeAcceptCall:
		err = c.handleAcceptCall(msg)
	case MessageTypeRejectCall:
		err = c.handleRejectCall(msg)
	default:
		err = fmt.Errorf(
			"%s: received unexpected message type %d",
			ProtocolName,
			msg.Type(),
		)
	}
	return err
}

func (c *Client) handleAcceptCall(msgGeneric protocol.Message) error {
	c.Protocol.Logger().
		Debug("accept call",
			"component", "network",
			"protocol", ProtocolName,
			"role", "client",
			"connection_id", c.callbackContext.ConnectionId,
		)
	msg := msgGeneric.(*MsgAcceptCall)
	select {
	case <-c.DoneChan():
		return protocol.ErrProtocolShuttingDown
	case c.submitResultChan <- submitResult{hash: msg.Hash}:
	}
	return nil
}

func (c *Client) handleRejectCall(msgGeneric protocol.Message) error {
	c.Protocol.Logger().
		Debug("reject call",
			"component", "network",
			"protocol", ProtocolName,
			"role", "client",
			"connection_id", c.callbackContext.ConnectionId,
		)
	msg := msgGeneric.(*MsgRejectCall)
	err := &CallRejectedError{
		Reason: msg.Reason,
	}
	select {
	case <-c.DoneChan():
		return protocol.ErrProtocolShuttingDown
	case c.submitResultChan <- submitResult{err: err}:
	}
	return nil
}
