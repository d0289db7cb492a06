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

package keepalive

import (
	"fmt"
	"sync"
	"time"

	"github.com/blinklabs-io/gokitties/protocol"
)

// Client implements the KeepAlive client. It pings the server every Period
type Client struct {
	*protocol.Protocol
	config          *Config
	callbackContext CallbackContext
	timer           *time.Timer
	timerMutex      sync.Mutex
	onceStart       sync.Once
	onceStop        sync.Once
}

// NewClient returns a new KeepAlive client object
func NewClient(protoOptions protocol.ProtocolOptions, cfg *Config) *Client {
	if cfg == nil {
		tmpCfg := NewConfig()
		cfg = &tmpCfg
	}
	c := &Client{
		config: cfg,
	}
	c.callbackContext = CallbackContext{
		Client:       c,
		ConnectionId: protoOptions.ConnectionId,
	}
	// Update state map with timeout
	stateMap := StateMap.Copy()
	if entry, ok := stateMap[StateServer]; ok {
		entry.Timeout = c.config.Timeout
		stateMap[StateServer] = entry
	}
	// The client drives the pings, so it never waits on itself
	if entry, ok := stateMap[StateClient]; ok {
		entry.Timeout = 0
		stateMap[StateClient] = entry
	}
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
		InitialState:        StateClient,
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
		// Stop the timer on protocol shutdown
		go func() {
			<-c.Protocol.DoneChan()
			c.timerMutex.Lock()
			if c.timer != nil {
				c.timer.Stop()
			}
			c.timerMutex.Unlock()
		}()
		c.startTimer()
	})
}

// Stop sends Done, unless a ping is outstanding, and shuts down the protocol
func (c *Client) Stop() error {
	var err error
	c.onceStop.Do(func() {
		c.Protocol.Logger().
			Debug("stopping client protocol",
				"component", "network",
				"protocol", ProtocolName,
				"connection_id", c.callbackContext.ConnectionId,
			)
		c.timerMutex.Lock()
		if c.timer != nil {
			c.timer.Stop()
		}
		if c.CurrentState() == StateClient {
			err = c.SendMessage(NewMsgDone())
		}
		c.timerMutex.Unlock()
		c.Protocol.Stop()
	})
	return err
}

func (c *Client) sendKeepAlive() {
	c.timerMutex.Lock()
	if c.IsDone() {
		c.timerMutex.Unlock()
		return
	}
	c.Protocol.Logger().
		Debug("sending keep-alive",
			"component", "network",
			"protocol", ProtocolName,
			"role", "client",
			"connection_id", c.callbackContext.ConnectionId,
			"cookie", c.config.Cookie,
		)
	err := c.SendMessage(NewMsgKeepAlive(c.config.Cookie))
	c.timerMutex.Unlock()
	if err != nil {
		c.SendError(err)
	}
}

func (c *Client) startTimer() {
	c.timerMutex.Lock()
	defer c.timerMutex.Unlock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.config.Period, c.sendKeepAlive)
}

func (c *Client) messageHandler(msg protocol.Message) error {
	var err error
	switch msg.Type() {
	case MessageTypeKeepAliveResponse:
		err = c.handleKeepAliveResponse(msg)
	default:
		err = fmt.Errorf(
			"%s: received unexpected message type %d",
			ProtocolName,
			msg.Type(),
		)
	}
	return err
}

func (c *Client) handleKeepAliveResponse(msgGeneric protocol.Message) error {
	msg := msgGeneric.(*MsgKeepAliveResponse)
	if msg.Cookie != c.config.Cookie {
		return fmt.Errorf(
			"%s: unexpected cookie in response, expected %d but received %d",
			ProtocolName,
			c.config.Cookie,
			msg.Cookie,
		)
	}
	// The next ping is scheduled once the previous one is answered
	c.startTimer()
	if c.config.KeepAliveResponseFunc != nil {
		return c.config.KeepAliveResponseFunc(c.callbackContext, msg.Cookie)
	}
	return nil
}
